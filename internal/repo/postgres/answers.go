package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/answer"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/geocoder89/quorahub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type AnswersRepo struct {
	observer
	db DBTX
}

func NewAnswersRepo(db DBTX, prom *observability.Prom) *AnswersRepo {
	return &AnswersRepo{observer: observer{prom: prom}, db: db}
}

const answerColumns = `id, content, question_id, user_id, created_at, updated_at`

func scanAnswer(row pgx.Row) (answer.Answer, error) {
	var a answer.Answer
	err := row.Scan(&a.ID, &a.Content, &a.QuestionID, &a.UserID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *AnswersRepo) Create(ctx context.Context, a answer.Answer) (answer.Answer, error) {
	err := r.observe("answers.create", func() error {
		_, err := r.db.Exec(ctx, `
		INSERT INTO answers (`+answerColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
		`, a.ID, a.Content, a.QuestionID, a.UserID, a.CreatedAt, a.UpdatedAt)
		return err
	})
	if err != nil {
		return answer.Answer{}, err
	}
	return a, nil
}

func (r *AnswersRepo) GetByID(ctx context.Context, id string) (answer.Answer, error) {
	if !utils.IsUUID(id) {
		return answer.Answer{}, answer.ErrNotFound
	}

	var a answer.Answer

	err := r.observe("answers.get_by_id", func() error {
		var err error
		a, err = scanAnswer(r.db.QueryRow(ctx,
			`SELECT `+answerColumns+` FROM answers WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return answer.Answer{}, answer.ErrNotFound
		}
		return answer.Answer{}, err
	}
	return a, nil
}

func (r *AnswersRepo) UpdateContent(ctx context.Context, id, content string) (answer.Answer, error) {
	if !utils.IsUUID(id) {
		return answer.Answer{}, answer.ErrNotFound
	}

	var a answer.Answer

	err := r.observe("answers.update_content", func() error {
		var err error
		a, err = scanAnswer(r.db.QueryRow(ctx, `
		UPDATE answers
		SET content = $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING `+answerColumns,
			id, content, time.Now().UTC()))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return answer.Answer{}, answer.ErrNotFound
		}
		return answer.Answer{}, err
	}
	return a, nil
}

func (r *AnswersRepo) Delete(ctx context.Context, id string) error {
	if !utils.IsUUID(id) {
		return answer.ErrNotFound
	}

	var tag pgconn.CommandTag

	err := r.observe("answers.delete", func() error {
		var err error
		tag, err = r.db.Exec(ctx, `DELETE FROM answers WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return answer.ErrNotFound
	}
	return nil
}

// ListByQuestion returns answers oldest first.
func (r *AnswersRepo) ListByQuestion(ctx context.Context, questionID string) ([]answer.Answer, error) {
	if !utils.IsUUID(questionID) {
		return nil, nil
	}

	var rows pgx.Rows

	err := r.observe("answers.list_by_question", func() error {
		var qerr error
		rows, qerr = r.db.Query(ctx, `
		SELECT `+answerColumns+`
		FROM answers
		WHERE question_id = $1
		ORDER BY created_at ASC, id ASC
		`, questionID)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]answer.Answer, 0)
	for rows.Next() {
		a, scanErr := scanAnswer(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
