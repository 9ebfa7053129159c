package observability

import (
	"sort"
	"sync"
	"time"
)

// Job outcomes recorded per notification type.
const (
	JobClaimed = "claimed"
	JobDone    = "done"
	JobRetried = "retry"
	JobFailed  = "failed"
)

// JobCounts tallies outcomes for one job type, or for all of them.
type JobCounts struct {
	Claimed uint64 `json:"claimed"`
	Done    uint64 `json:"done"`
	Retried uint64 `json:"retried"`
	Failed  uint64 `json:"failed"`
}

func (c *JobCounts) add(outcome string) {
	switch outcome {
	case JobClaimed:
		c.Claimed++
	case JobDone:
		c.Done++
	case JobRetried:
		c.Retried++
	case JobFailed:
		c.Failed++
	}
}

// JobMetrics is the in-process view served on the worker's /statsz.
// Prometheus carries the same signal for scraping.
type JobMetrics struct {
	mu     sync.Mutex
	totals JobCounts
	byType map[string]*JobCounts

	durationCount uint64
	durationTotal time.Duration
	durationMax   time.Duration
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{byType: make(map[string]*JobCounts)}
}

func (m *JobMetrics) Record(jobType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byType[jobType]
	if !ok {
		c = &JobCounts{}
		m.byType[jobType] = c
	}
	c.add(outcome)
	m.totals.add(outcome)
}

func (m *JobMetrics) ObserveDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.durationCount++
	m.durationTotal += d
	if d > m.durationMax {
		m.durationMax = d
	}
}

type JobStats struct {
	JobCounts
	ByType          map[string]JobCounts
	Types           []string
	DurationCount   uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration
}

func (m *JobMetrics) Snapshot() JobStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := JobStats{
		JobCounts:     m.totals,
		ByType:        make(map[string]JobCounts, len(m.byType)),
		Types:         make([]string, 0, len(m.byType)),
		DurationCount: m.durationCount,
		MaxDuration:   m.durationMax,
	}
	for t, c := range m.byType {
		s.ByType[t] = *c
		s.Types = append(s.Types, t)
	}
	sort.Strings(s.Types)

	if m.durationCount > 0 {
		s.AverageDuration = m.durationTotal / time.Duration(m.durationCount)
	}
	return s
}
