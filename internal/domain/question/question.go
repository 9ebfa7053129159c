package question

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("question not found")

type Question struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (q Question) OwnerID() string {
	return q.UserID
}

type CreateRequest struct {
	Content string `json:"content" binding:"required,min=3,max=2000"`
}

type EditRequest struct {
	Content string `json:"content" binding:"required,min=3,max=2000"`
}

// ListFilter drives keyset pagination, newest first.
type ListFilter struct {
	UserID          *string
	Limit           int
	BeforeCreatedAt time.Time
	BeforeID        string
}

func New(req CreateRequest, userID string) Question {
	now := time.Now().UTC()

	return Question{
		ID:        uuid.NewString(),
		Content:   req.Content,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
