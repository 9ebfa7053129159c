package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/geocoder89/quorahub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type QuestionsRepo struct {
	observer
	db DBTX
}

func NewQuestionsRepo(db DBTX, prom *observability.Prom) *QuestionsRepo {
	return &QuestionsRepo{observer: observer{prom: prom}, db: db}
}

func (r *QuestionsRepo) Create(ctx context.Context, q question.Question) (question.Question, error) {
	err := r.observe("questions.create", func() error {
		_, err := r.db.Exec(ctx, `
		INSERT INTO questions (id, content, user_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		`, q.ID, q.Content, q.UserID, q.CreatedAt, q.UpdatedAt)
		return err
	})
	if err != nil {
		return question.Question{}, err
	}
	return q, nil
}

func (r *QuestionsRepo) GetByID(ctx context.Context, id string) (question.Question, error) {
	if !utils.IsUUID(id) {
		return question.Question{}, question.ErrNotFound
	}

	var q question.Question

	err := r.observe("questions.get_by_id", func() error {
		return r.db.QueryRow(ctx, `
		SELECT id, content, user_id, created_at, updated_at
		FROM questions
		WHERE id = $1
		`, id).Scan(&q.ID, &q.Content, &q.UserID, &q.CreatedAt, &q.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, err
	}
	return q, nil
}

func (r *QuestionsRepo) UpdateContent(ctx context.Context, id, content string) (question.Question, error) {
	if !utils.IsUUID(id) {
		return question.Question{}, question.ErrNotFound
	}

	var q question.Question

	err := r.observe("questions.update_content", func() error {
		return r.db.QueryRow(ctx, `
		UPDATE questions
		SET content = $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING id, content, user_id, created_at, updated_at
		`, id, content, time.Now().UTC()).Scan(&q.ID, &q.Content, &q.UserID, &q.CreatedAt, &q.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, err
	}
	return q, nil
}

func (r *QuestionsRepo) Delete(ctx context.Context, id string) error {
	if !utils.IsUUID(id) {
		return question.ErrNotFound
	}

	var tag pgconn.CommandTag

	err := r.observe("questions.delete", func() error {
		var err error
		tag, err = r.db.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return question.ErrNotFound
	}
	return nil
}

// ListCursor pages newest first on (created_at, id).
func (r *QuestionsRepo) ListCursor(ctx context.Context, f question.ListFilter) (items []question.Question, nextCursor *string, hasMore bool, err error) {
	op := "questions.list_cursor"

	base := `
		SELECT id, content, user_id, created_at, updated_at
		FROM questions
	`

	var (
		conds   []string
		args    []any
		argsPos = 1
	)

	if f.UserID != nil {
		conds = append(conds, fmt.Sprintf("user_id = $%d", argsPos))
		args = append(args, *f.UserID)
		argsPos++
	}

	// DESC keyset: fetch rows "older" than cursor
	if f.BeforeID != "" {
		conds = append(conds, fmt.Sprintf("(created_at, id) < ($%d, $%d)", argsPos, argsPos+1))
		args = append(args, f.BeforeCreatedAt, f.BeforeID)
		argsPos += 2
	}

	q := base
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argsPos)
	args = append(args, f.Limit+1)

	var rows pgx.Rows

	err = r.observe(op, func() error {
		var qerr error
		rows, qerr = r.db.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]question.Question, 0, f.Limit)

	for rows.Next() {
		var item question.Question
		if scanErr := rows.Scan(&item.ID, &item.Content, &item.UserID, &item.CreatedAt, &item.UpdatedAt); scanErr != nil {
			return nil, nil, false, scanErr
		}
		out = append(out, item)
	}

	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
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
