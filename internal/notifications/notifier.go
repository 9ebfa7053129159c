package notifications

import "context"

type WelcomeInput struct {
	UserID   string
	Email    string
	Name     string
	UserName string
}

type AccountRemovedInput struct {
	UserID              string
	Email               string
	UserName            string
	InvalidatedSessions int64
}

type Notifier interface {
	SendWelcome(ctx context.Context, input WelcomeInput) error
	SendAccountRemoved(ctx context.Context, input AccountRemovedInput) error
}
