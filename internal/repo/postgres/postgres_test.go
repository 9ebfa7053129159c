package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/db"
	"github.com/geocoder89/quorahub/internal/domain/answer"
	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// These tests need a disposable database: TEST_DB_DSN=postgres://... go test ./internal/repo/postgres
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := db.NewPool(dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, db.Migrate(ctx, pool))

	return pool
}

func newTestUser() user.User {
	suffix := uuid.NewString()[:8]
	return user.NewFromSignup(user.SignupRequest{
		FirstName:    "Test",
		LastName:     "User",
		UserName:     "user-" + suffix,
		EmailAddress: suffix + "@example.com",
	}, "hash")
}

func TestUsersRepo_Postgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUsersRepo(pool, nil)

	u := newTestUser()
	_, err := users.Create(ctx, u)
	require.NoError(t, err)

	got, err := users.FindByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, user.RoleNonAdmin, got.Role)

	dupName := newTestUser()
	dupName.Username = u.Username
	dupName.Email = u.Email
	_, err = users.Create(ctx, dupName)
	require.ErrorIs(t, err, user.ErrDuplicateUsername)

	dupEmail := newTestUser()
	dupEmail.Email = u.Email
	_, err = users.Create(ctx, dupEmail)
	require.ErrorIs(t, err, user.ErrDuplicateEmail)

	require.NoError(t, users.Delete(ctx, u.ID))
	require.ErrorIs(t, users.Delete(ctx, u.ID), user.ErrNotFound)

	_, err = users.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestSessionsRepo_Postgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	sessions := NewSessionsRepo(pool, nil)

	userID := uuid.NewString()
	t0 := time.Now().UTC().Truncate(time.Microsecond)

	tok1, err := session.GenerateToken()
	require.NoError(t, err)
	tok2, err := session.GenerateToken()
	require.NoError(t, err)

	require.NoError(t, sessions.Create(ctx, session.New(tok1, userID, t0, 0)))
	require.NoError(t, sessions.Create(ctx, session.New(tok2, userID, t0, 0)))

	out, err := sessions.MarkLoggedOut(ctx, tok1, t0.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, out.IsLoggedOut)
	require.True(t, out.LogoutAt.Equal(t0.Add(time.Minute)))

	again, err := sessions.MarkLoggedOut(ctx, tok1, t0.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, again.LogoutAt.Equal(t0.Add(time.Minute)))

	n, err := sessions.InvalidateAllForUser(ctx, userID, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	s2, err := sessions.FindByToken(ctx, tok2)
	require.NoError(t, err)
	require.True(t, s2.IsLoggedOut)

	_, err = sessions.FindByToken(ctx, "missing")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestUnitOfWork_Postgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	uow := NewUnitOfWork(pool, nil)
	users := NewUsersRepo(pool, nil)

	u := newTestUser()
	err := uow.Do(ctx, func(ctx context.Context, s auth.Stores) error {
		if _, err := s.Users.Create(ctx, u); err != nil {
			return err
		}
		// duplicate username aborts the whole unit
		_, err := s.Users.Create(ctx, u)
		return err
	})
	require.ErrorIs(t, err, user.ErrDuplicateUsername)

	_, err = users.FindByID(ctx, u.ID)
	require.ErrorIs(t, err, user.ErrNotFound)

	key := "user.welcome:" + u.ID
	err = uow.Do(ctx, func(ctx context.Context, s auth.Stores) error {
		if _, err := s.Users.Create(ctx, u); err != nil {
			return err
		}
		_, err := s.Jobs.Enqueue(ctx, job.CreateRequest{Type: "user.welcome", Payload: []byte(`{}`), IdempotencyKey: &key})
		return err
	})
	require.NoError(t, err)

	jobs := NewJobsRepo(pool, nil)
	first, err := jobs.Enqueue(ctx, job.CreateRequest{Type: "user.welcome", Payload: []byte(`{}`), IdempotencyKey: &key})
	require.NoError(t, err)
	require.Equal(t, key, *first.IdempotencyKey)
}

func TestQuestionsAnswers_Postgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUsersRepo(pool, nil)
	questions := NewQuestionsRepo(pool, nil)
	answers := NewAnswersRepo(pool, nil)

	u := newTestUser()
	_, err := users.Create(ctx, u)
	require.NoError(t, err)

	q, err := questions.Create(ctx, question.New(question.CreateRequest{Content: "what is go?"}, u.ID))
	require.NoError(t, err)

	a, err := answers.Create(ctx, answer.New(answer.CreateRequest{Answer: "a language"}, q.ID, u.ID))
	require.NoError(t, err)

	edited, err := answers.UpdateContent(ctx, a.ID, "a programming language")
	require.NoError(t, err)
	require.Equal(t, "a programming language", edited.Content)

	uid := u.ID
	page, _, _, err := questions.ListCursor(ctx, question.ListFilter{UserID: &uid, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)

	require.NoError(t, users.Delete(ctx, u.ID))

	_, err = questions.GetByID(ctx, q.ID)
	require.ErrorIs(t, err, question.ErrNotFound)
	_, err = answers.GetByID(ctx, a.ID)
	require.ErrorIs(t, err, answer.ErrNotFound)
}

func TestJobsRepo_Postgres(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	jobs := NewJobsRepo(pool, nil)

	key := "user.removed:" + uuid.NewString()
	j, err := jobs.Enqueue(ctx, job.CreateRequest{Type: "user.removed", Payload: []byte(`{}`), IdempotencyKey: &key})
	require.NoError(t, err)

	require.ErrorIs(t, jobs.Retry(ctx, j.ID), job.ErrJobNotFailed)
	require.ErrorIs(t, jobs.Retry(ctx, uuid.NewString()), job.ErrJobNotFound)

	require.NoError(t, jobs.MarkFailed(ctx, j.ID, "smtp down"))
	got, err := jobs.GetByID(ctx, j.ID)
	require.NoError(t, err)
	require.Equal(t, job.StatusFailed, got.Status)
	require.Equal(t, 1, got.Attempts)

	failed := string(job.StatusFailed)
	page, next, _, err := jobs.ListCursor(ctx, &failed, 1, time.Time{}, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, job.StatusFailed, page[0].Status)
	if next != nil {
		rest, _, _, err := jobs.ListCursor(ctx, &failed, 10, page[0].UpdatedAt, page[0].ID)
		require.NoError(t, err)
		for _, r := range rest {
			require.NotEqual(t, page[0].ID, r.ID)
		}
	}

	require.NoError(t, jobs.Retry(ctx, j.ID))
	got, err = jobs.GetByID(ctx, j.ID)
	require.NoError(t, err)
	require.Equal(t, job.StatusPending, got.Status)
	require.Zero(t, got.Attempts)
	require.Nil(t, got.LastError)

	_, err = jobs.RequeueStaleProcessing(ctx, time.Minute)
	require.NoError(t, err)
}

// Postgres rejects malformed uuid literals; those ids must read as missing records
// without a round trip, so no pool is needed here.
func TestRepos_MalformedIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	users := NewUsersRepo(nil, nil)
	questions := NewQuestionsRepo(nil, nil)
	answers := NewAnswersRepo(nil, nil)

	_, err := users.FindByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, user.ErrNotFound)
	require.ErrorIs(t, users.Delete(ctx, "42"), user.ErrNotFound)

	_, err = questions.GetByID(ctx, "missing")
	require.ErrorIs(t, err, question.ErrNotFound)
	_, err = questions.UpdateContent(ctx, "missing", "x")
	require.ErrorIs(t, err, question.ErrNotFound)
	require.ErrorIs(t, questions.Delete(ctx, "missing"), question.ErrNotFound)

	_, err = answers.GetByID(ctx, "missing")
	require.ErrorIs(t, err, answer.ErrNotFound)
	_, err = answers.UpdateContent(ctx, "missing", "x")
	require.ErrorIs(t, err, answer.ErrNotFound)
	require.ErrorIs(t, answers.Delete(ctx, "missing"), answer.ErrNotFound)

	items, err := answers.ListByQuestion(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, items)
}
