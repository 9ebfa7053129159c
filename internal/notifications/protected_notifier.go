package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

type ProtectedNotifierConfig struct {
	Timeout          time.Duration // per send
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // open period before a trial call
	HalfOpenMaxCalls int

	// OnStateChange runs outside the breaker lock after every transition.
	OnStateChange func(from, to BreakerState)
}

// ProtectedNotifier guards a Notifier with a per-call timeout and a
// consecutive-failure circuit breaker.
type ProtectedNotifier struct {
	inner Notifier
	cfg   ProtectedNotifierConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	openedAt  time.Time
	trialsOut int

	now func() time.Time
}

func NewProtectedNotifier(inner Notifier, cfg ProtectedNotifierConfig) *ProtectedNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedNotifier{
		inner: inner,
		cfg:   cfg,
		state: BreakerClosed,
		now:   time.Now,
	}
}

func (n *ProtectedNotifier) SendWelcome(ctx context.Context, input WelcomeInput) error {
	return n.guarded(ctx, func(ctx context.Context) error {
		return n.inner.SendWelcome(ctx, input)
	})
}

func (n *ProtectedNotifier) SendAccountRemoved(ctx context.Context, input AccountRemovedInput) error {
	return n.guarded(ctx, func(ctx context.Context) error {
		return n.inner.SendAccountRemoved(ctx, input)
	})
}

// State reports the breaker position for health output.
func (n *ProtectedNotifier) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return string(n.state)
}

func (n *ProtectedNotifier) guarded(ctx context.Context, send func(ctx context.Context) error) error {
	ok, from, to := n.admit()
	n.notify(from, to)
	if !ok {
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	err := send(sendCtx)

	from, to = n.settle(err)
	n.notify(from, to)
	return err
}

// admit decides whether a call may reach the provider.
func (n *ProtectedNotifier) admit() (ok bool, from, to BreakerState) {
	n.mu.Lock()
	defer n.mu.Unlock()

	from = n.state
	switch n.state {
	case BreakerOpen:
		if n.now().Sub(n.openedAt) < n.cfg.Cooldown {
			return false, from, from
		}
		n.state = BreakerHalfOpen
		n.trialsOut = 1
		return true, from, n.state
	case BreakerHalfOpen:
		if n.trialsOut >= n.cfg.HalfOpenMaxCalls {
			return false, from, from
		}
		n.trialsOut++
		return true, from, from
	default:
		return true, from, from
	}
}

// settle records the outcome of an admitted call.
func (n *ProtectedNotifier) settle(err error) (from, to BreakerState) {
	n.mu.Lock()
	defer n.mu.Unlock()

	from = n.state
	if n.state == BreakerHalfOpen && n.trialsOut > 0 {
		n.trialsOut--
	}

	switch {
	case err == nil:
		n.failures = 0
		n.state = BreakerClosed
	case n.state == BreakerHalfOpen:
		n.failures++
		n.trip()
	default:
		n.failures++
		if n.failures >= n.cfg.FailureThreshold {
			n.trip()
		}
	}
	return from, n.state
}

func (n *ProtectedNotifier) trip() {
	n.state = BreakerOpen
	n.openedAt = n.now()
}

func (n *ProtectedNotifier) notify(from, to BreakerState) {
	if from != to && n.cfg.OnStateChange != nil {
		n.cfg.OnStateChange(from, to)
	}
}
