package user

import (
	"time"

	"github.com/google/uuid"
)

// NewFromSignup builds a nonadmin account from the signup DTO. The caller supplies the password hash.
func NewFromSignup(req SignupRequest, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:            uuid.NewString(),
		Username:      req.UserName,
		Email:         req.EmailAddress,
		PasswordHash:  passwordHash,
		Role:          RoleNonAdmin,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Country:       req.Country,
		AboutMe:       req.AboutMe,
		DOB:           req.DOB,
		ContactNumber: req.ContactNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
