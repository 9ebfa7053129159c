package memory

import (
	"context"
	"fmt"

	"github.com/geocoder89/quorahub/internal/domain/user"
)

type UsersRepo struct {
	mu rwLocker
	st *state
}

func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.st.byUsername[username]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.st.users[id], nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.st.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// Create enforces unique username then unique email. Comparison is case-sensitive.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.st.byUsername[u.Username]; taken {
		return user.User{}, user.ErrDuplicateUsername
	}
	if _, taken := r.st.byEmail[u.Email]; taken {
		return user.User{}, user.ErrDuplicateEmail
	}
	if _, taken := r.st.users[u.ID]; taken {
		return user.User{}, fmt.Errorf("user id %s already exists", u.ID)
	}

	r.st.users[u.ID] = u
	r.st.byUsername[u.Username] = u.ID
	r.st.byEmail[u.Email] = u.ID

	return u, nil
}

// Delete removes the account and, like the relational schema, everything it owns.
// Sessions are kept for audit.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.st.users[id]
	if !ok {
		return user.ErrNotFound
	}

	delete(r.st.users, id)
	delete(r.st.byUsername, u.Username)
	delete(r.st.byEmail, u.Email)

	for qid, q := range r.st.questions {
		if q.UserID == id {
			r.st.deleteQuestion(qid)
		}
	}
	for aid, a := range r.st.answers {
		if a.UserID == id {
			delete(r.st.answers, aid)
		}
	}

	return nil
}
