package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleNonAdmin Role = "nonadmin"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidRole       = errors.New("invalid role")
)

// ParseRole only accepts the two known roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleNonAdmin:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"userName"`
	Email         string    `json:"emailAddress"`
	PasswordHash  string    `json:"-"` // never expose hash in JSON
	Role          Role      `json:"role"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Country       string    `json:"country,omitempty"`
	AboutMe       string    `json:"aboutMe,omitempty"`
	DOB           string    `json:"dob,omitempty"`
	ContactNumber string    `json:"contactNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// OwnerID lets a user account take part in ownership checks: an account is owned by itself.
func (u User) OwnerID() string {
	return u.ID
}

type SignupRequest struct {
	FirstName     string `json:"firstName" binding:"required,max=60"`
	LastName      string `json:"lastName" binding:"required,max=60"`
	UserName      string `json:"userName" binding:"required,min=3,max=40"`
	EmailAddress  string `json:"emailAddress" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=8,max=72"`
	Country       string `json:"country" binding:"omitempty,max=60"`
	AboutMe       string `json:"aboutMe" binding:"omitempty,max=1000"`
	DOB           string `json:"dob" binding:"omitempty,max=20"`
	ContactNumber string `json:"contactNumber" binding:"omitempty,max=20"`
}

// Profile is the public view returned by GET /userprofile/:userId.
type Profile struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	UserName      string `json:"userName"`
	EmailAddress  string `json:"emailAddress"`
	Country       string `json:"country"`
	AboutMe       string `json:"aboutMe"`
	DOB           string `json:"dob"`
	ContactNumber string `json:"contactNumber"`
}

func (u User) Profile() Profile {
	return Profile{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		UserName:      u.Username,
		EmailAddress:  u.Email,
		Country:       u.Country,
		AboutMe:       u.AboutMe,
		DOB:           u.DOB,
		ContactNumber: u.ContactNumber,
	}
}
