package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor payload")

// QuestionCursor is the keyset position for newest-first question listings.
type QuestionCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func (c QuestionCursor) complete() bool { return c.ID != "" && !c.CreatedAt.IsZero() }

// JobCursor pages the admin job listing by last update.
type JobCursor struct {
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
}

func (c JobCursor) complete() bool { return c.ID != "" && !c.UpdatedAt.IsZero() }

type keyset interface {
	QuestionCursor | JobCursor
	complete() bool
}

// Cursors are opaque to clients: unpadded base64url over a small JSON object.
func encodeCursor[C keyset](c C) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor[C keyset](s string) (C, error) {
	var c C
	if s == "" {
		return c, fmt.Errorf("%w: empty", ErrInvalidCursor)
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if !c.complete() {
		return c, ErrInvalidCursor
	}
	return c, nil
}

func EncodeQuestionCursor(createdAt time.Time, id string) (string, error) {
	return encodeCursor(QuestionCursor{CreatedAt: createdAt, ID: id})
}

func DecodeQuestionCursor(cursor string) (QuestionCursor, error) {
	return decodeCursor[QuestionCursor](cursor)
}

func EncodeJobCursor(updatedAt time.Time, id string) (string, error) {
	return encodeCursor(JobCursor{UpdatedAt: updatedAt, ID: id})
}

func DecodeJobCursor(cursor string) (JobCursor, error) {
	return decodeCursor[JobCursor](cursor)
}
