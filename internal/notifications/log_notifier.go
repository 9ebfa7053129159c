package notifications

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"
)

var ErrProviderDown = errors.New("notification provider down")

// LogNotifier writes notifications to the structured log instead of a mail provider.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendWelcome(ctx context.Context, in WelcomeInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.user_welcome",
		"user_id", in.UserID,
		"email", in.Email,
		"name", in.Name,
		"user_name", in.UserName,
	)
	return nil
}

func (n *LogNotifier) SendAccountRemoved(ctx context.Context, in AccountRemovedInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.user_removed",
		"user_id", in.UserID,
		"email", in.Email,
		"user_name", in.UserName,
		"invalidated_sessions", in.InvalidatedSessions,
	)
	return nil
}

// simulateProvider honours NOTIFIER_SLEEP_MS and NOTIFIER_FAIL for local failure drills.
func simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return ErrProviderDown
	}
	return nil
}
