package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/answer"
	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/domain/user"
)

type rwLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// held is used by repos handed out inside Do, where the store lock is already taken.
type held struct{}

func (held) Lock()    {}
func (held) Unlock()  {}
func (held) RLock()   {}
func (held) RUnlock() {}

type state struct {
	users      map[string]user.User // {"id": user}
	byUsername map[string]string    // {"username": id}
	byEmail    map[string]string    // {"email": id}
	sessions   map[string]session.Session
	questions  map[string]question.Question
	answers    map[string]answer.Answer
	jobs       map[string]job.Job
	jobKeys    map[string]string // {"idempotency key": job id}
}

func newState() *state {
	return &state{
		users:      make(map[string]user.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		sessions:   make(map[string]session.Session),
		questions:  make(map[string]question.Question),
		answers:    make(map[string]answer.Answer),
		jobs:       make(map[string]job.Job),
		jobKeys:    make(map[string]string),
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() state {
	return state{
		users:      cloneMap(s.users),
		byUsername: cloneMap(s.byUsername),
		byEmail:    cloneMap(s.byEmail),
		sessions:   cloneMap(s.sessions),
		questions:  cloneMap(s.questions),
		answers:    cloneMap(s.answers),
		jobs:       cloneMap(s.jobs),
		jobKeys:    cloneMap(s.jobKeys),
	}
}

// Store keeps every table in process memory behind a single RWMutex.
type Store struct {
	mu sync.RWMutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Users() *UsersRepo {
	return &UsersRepo{mu: &s.mu, st: s.st}
}

func (s *Store) Sessions() *SessionsRepo {
	return &SessionsRepo{mu: &s.mu, st: s.st}
}

func (s *Store) Questions() *QuestionsRepo {
	return &QuestionsRepo{mu: &s.mu, st: s.st}
}

func (s *Store) Answers() *AnswersRepo {
	return &AnswersRepo{mu: &s.mu, st: s.st}
}

func (s *Store) Jobs() *JobsRepo {
	return &JobsRepo{mu: &s.mu, st: s.st}
}

// Do holds the write lock for all of fn. If fn fails or panics every table is restored to its prior contents.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, stores auth.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()

	stores := auth.Stores{
		Users:    &UsersRepo{mu: held{}, st: s.st},
		Sessions: &SessionsRepo{mu: held{}, st: s.st},
		Jobs:     &JobsRepo{mu: held{}, st: s.st},
	}

	committed := false
	defer func() {
		if !committed {
			*s.st = snapshot
		}
	}()

	err := fn(ctx, stores)
	if err != nil {
		return err
	}

	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
