package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/answer"
)

type AnswersRepo struct {
	mu rwLocker
	st *state
}

func (r *AnswersRepo) Create(ctx context.Context, a answer.Answer) (answer.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.st.answers[a.ID] = a
	return a, nil
}

func (r *AnswersRepo) GetByID(ctx context.Context, id string) (answer.Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.st.answers[id]
	if !ok {
		return answer.Answer{}, answer.ErrNotFound
	}
	return a, nil
}

func (r *AnswersRepo) UpdateContent(ctx context.Context, id, content string) (answer.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.st.answers[id]
	if !ok {
		return answer.Answer{}, answer.ErrNotFound
	}
	a.Content = content
	a.UpdatedAt = time.Now().UTC()
	r.st.answers[id] = a
	return a, nil
}

func (r *AnswersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.st.answers[id]; !ok {
		return answer.ErrNotFound
	}
	delete(r.st.answers, id)
	return nil
}

// ListByQuestion returns answers oldest first.
func (r *AnswersRepo) ListByQuestion(ctx context.Context, questionID string) ([]answer.Answer, error) {
	r.mu.RLock()
	out := make([]answer.Answer, 0)
	for _, a := range r.st.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
