package answer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("answer not found")

type Answer struct {
	ID         string    `json:"id"`
	Content    string    `json:"answerContent"`
	QuestionID string    `json:"questionId"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (a Answer) OwnerID() string {
	return a.UserID
}

type CreateRequest struct {
	Answer string `json:"answer" binding:"required,min=1,max=5000"`
}

type EditRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

func New(req CreateRequest, questionID, userID string) Answer {
	now := time.Now().UTC()

	return Answer{
		ID:         uuid.NewString(),
		Content:    req.Answer,
		QuestionID: questionID,
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
