package auth

import "errors"

// Error kinds. Match them with errors.Is; the concrete *Error carries the reason.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAuthorizationFailed  = errors.New("authorization failed")
	ErrSignOutRestricted    = errors.New("sign out restricted")
)

type Reason string

const (
	ReasonUsernameNotFound Reason = "username_not_found"
	ReasonPasswordMismatch Reason = "password_mismatch"
	ReasonTokenNotFound    Reason = "token_not_found"
	ReasonUserLoggedOut    Reason = "user_logged_out"
	ReasonSessionExpired   Reason = "session_expired"
	ReasonUserNotFound     Reason = "user_not_found"
	ReasonNotOwner         Reason = "not_owner"
	ReasonNotAdmin         Reason = "not_admin"
)

var reasonMessages = map[Reason]string{
	ReasonUsernameNotFound: "username not found",
	ReasonPasswordMismatch: "password mismatch",
	ReasonTokenNotFound:    "token not found",
	ReasonUserLoggedOut:    "user logged out",
	ReasonSessionExpired:   "session expired",
	ReasonUserNotFound:     "user not found",
	ReasonNotOwner:         "not owner",
	ReasonNotAdmin:         "not admin",
}

// Message is the human readable form returned to clients.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

type Error struct {
	Kind   error
	Reason Reason
}

func newError(kind error, reason Reason) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Reason.Message()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// ReasonOf extracts the reason from an auth error anywhere in the chain.
func ReasonOf(err error) (Reason, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason, true
	}
	return "", false
}
