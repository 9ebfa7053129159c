package jobs

import "time"

// UserWelcomePayload carries what the notifier needs to greet a new account.
// Keep payloads ID-based plus the contact fields; they outlive the user row.
type UserWelcomePayload struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
}

// UserRemovedPayload records an admin account deletion.
type UserRemovedPayload struct {
	UserID              string    `json:"userId"`
	UserName            string    `json:"userName"`
	Email               string    `json:"email"`
	RemovedBy           string    `json:"removedBy"`
	InvalidatedSessions int64     `json:"invalidatedSessions"`
	RemovedAt           time.Time `json:"removedAt"`
	RequestID           string    `json:"requestId,omitempty"`
}
