package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/quorahub/internal/actorctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestProm_ObserveAuth(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveAuth("authenticate", "ok")
	p.ObserveAuth("authenticate", "ok")
	p.ObserveAuth("resolve", "session_expired")

	if got := counterValue(t, p.AuthOutcomes.WithLabelValues("authenticate", "ok")); got != 2 {
		t.Fatalf("got %v, want 2", got)
	}
	if got := counterValue(t, p.AuthOutcomes.WithLabelValues("resolve", "session_expired")); got != 1 {
		t.Fatalf("got %v, want 1", got)
	}
}

func TestProm_ObserveDB(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("users_create", func() error {
		return &pgconn.PgError{Code: "23505"}
	})
	if err == nil {
		t.Fatalf("expected error to pass through")
	}

	if got := counterValue(t, p.DbErrorsTotal.WithLabelValues("users_create", "unique_violation")); got != 1 {
		t.Fatalf("got %v, want 1", got)
	}
}

func TestProm_ObserveDB_NoRowsIsNotAnError(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("sessions_find", func() error { return pgx.ErrNoRows })
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("got %v", err)
	}

	if got := counterValue(t, p.DbErrorsTotal.WithLabelValues("sessions_find", "unknown")); got != 0 {
		t.Fatalf("no-rows counted as error")
	}
}

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pgconn.PgError{Code: "40001"}, "serialization_failure"},
		{&pgconn.PgError{Code: "22001"}, "pg_22001"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{&pgconn.PgError{Code: "23503"}, "fk_violation"},
		{errors.New("connection refused"), "connection"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		if got := classifyDBErr(tt.err); got != tt.want {
			t.Fatalf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestJobMetrics_Snapshot(t *testing.T) {
	m := NewJobMetrics()
	m.Record("user.welcome", JobClaimed)
	m.Record("user.welcome", JobDone)
	m.Record("user.removed", JobClaimed)
	m.Record("user.removed", JobRetried)
	m.ObserveDuration(10 * time.Millisecond)
	m.ObserveDuration(30 * time.Millisecond)

	s := m.Snapshot()
	if s.Claimed != 2 || s.Done != 1 || s.Retried != 1 {
		t.Fatalf("got %+v", s)
	}
	if s.ByType["user.removed"].Retried != 1 || s.ByType["user.welcome"].Done != 1 {
		t.Fatalf("got by type %+v", s.ByType)
	}
	if len(s.Types) != 2 || s.Types[0] != "user.removed" {
		t.Fatalf("got types %v", s.Types)
	}
	if s.AverageDuration != 20*time.Millisecond || s.MaxDuration != 30*time.Millisecond {
		t.Fatalf("got avg %v max %v", s.AverageDuration, s.MaxDuration)
	}
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "inside span")
	span.End()

	out := buf.String()
	if !strings.Contains(out, `"trace_id"`) || !strings.Contains(out, span.SpanContext().TraceID().String()) {
		t.Fatalf("trace id missing from %s", out)
	}

	buf.Reset()
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be off outside dev")
	}
}

func TestLogger_AddsActor(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := actorctx.WithRequestID(context.Background(), "req-7")
	ctx = actorctx.WithUserID(ctx, "u-1")

	log.InfoContext(ctx, "with actor")
	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-7"`) || !strings.Contains(out, `"user_id":"u-1"`) {
		t.Fatalf("actor missing from %s", out)
	}

	buf.Reset()
	log.InfoContext(ctx, "explicit", "request_id", "req-7")
	if strings.Count(buf.String(), "request_id") != 1 {
		t.Fatalf("request id duplicated: %s", buf.String())
	}
}
