package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/geocoder89/quorahub/internal/utils"
)

type QuestionsRepo struct {
	mu rwLocker
	st *state
}

func (r *QuestionsRepo) Create(ctx context.Context, q question.Question) (question.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.st.questions[q.ID] = q
	return q, nil
}

func (r *QuestionsRepo) GetByID(ctx context.Context, id string) (question.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.st.questions[id]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	return q, nil
}

func (r *QuestionsRepo) UpdateContent(ctx context.Context, id, content string) (question.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.st.questions[id]
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	q.Content = content
	q.UpdatedAt = time.Now().UTC()
	r.st.questions[id] = q
	return q, nil
}

// Delete removes the question and its answers.
func (r *QuestionsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.st.questions[id]; !ok {
		return question.ErrNotFound
	}
	r.st.deleteQuestion(id)
	return nil
}

func (s *state) deleteQuestion(id string) {
	delete(s.questions, id)
	for aid, a := range s.answers {
		if a.QuestionID == id {
			delete(s.answers, aid)
		}
	}
}

// ListCursor pages newest first on (created_at, id).
func (r *QuestionsRepo) ListCursor(ctx context.Context, f question.ListFilter) (items []question.Question, nextCursor *string, hasMore bool, err error) {
	r.mu.RLock()
	all := make([]question.Question, 0, len(r.st.questions))
	for _, q := range r.st.questions {
		if f.UserID != nil && q.UserID != *f.UserID {
			continue
		}
		all = append(all, q)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return newerThan(all[i], all[j].CreatedAt, all[j].ID)
	})

	out := make([]question.Question, 0, f.Limit)
	for _, q := range all {
		if f.BeforeID != "" && !newerThan(question.Question{CreatedAt: f.BeforeCreatedAt, ID: f.BeforeID}, q.CreatedAt, q.ID) {
			continue
		}
		out = append(out, q)
		if len(out) > f.Limit {
			break
		}
	}

	if len(out) > f.Limit {
		hasMore = true
		out = out[:f.Limit]
		last := out[len(out)-1]

		cur, encErr := utils.EncodeQuestionCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}

// newerThan reports whether q comes strictly before (createdAt, id) in newest-first order.
func newerThan(q question.Question, createdAt time.Time, id string) bool {
	if !q.CreatedAt.Equal(createdAt) {
		return q.CreatedAt.After(createdAt)
	}
	return q.ID > id
}
