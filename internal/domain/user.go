package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User validation errors
var (
	ErrEmptyUserID   = fmt.Errorf("%w: user ID cannot be empty", ErrValidation)
	ErrEmptyUserName = fmt.Errorf("%w: user needs a first name or a display name", ErrValidation)
)

// User is a member of the feed. Only the profile fields needed to render
// likers and comment authors are kept here.
type User struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUser creates a new User with a freshly generated ID.
func NewUser(firstName, lastName, displayName, image string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		ID:          uuid.New(),
		FirstName:   firstName,
		LastName:    lastName,
		DisplayName: displayName,
		Image:       image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.FirstName == "" && u.DisplayName == "" {
		return ErrEmptyUserName
	}
	return nil
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Name returns the display name, falling back to the full name.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.FullName()
}
