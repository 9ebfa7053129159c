package auth

import (
	"time"

	"github.com/geocoder89/quorahub/internal/domain/session"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/geocoder89/quorahub/internal/auth")

type Config struct {
	SessionTTL time.Duration
	Policy     Policy
	Now        func() time.Time
	NewToken   func() (string, error)
	Observer   Observer
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = session.DefaultTTL
	}
	if c.Policy == nil {
		c.Policy = DefaultPolicy()
	} else {
		c.Policy = c.Policy.clone()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	if c.NewToken == nil {
		c.NewToken = session.GenerateToken
	}
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	return c
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if r, ok := ReasonOf(err); ok {
		return string(r)
	}
	return "error"
}
