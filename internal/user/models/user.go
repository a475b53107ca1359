package models

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"conduit/pkg/domainerrors"
)

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the service layer.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Bio          string
	Image        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a user as seen by another (possibly
// anonymous) user.
type Profile struct {
	Username  string
	Bio       string
	Image     string
	Following bool
}

// Profile projects the user into its public shape.
func (u *User) Profile(following bool) Profile {
	return Profile{
		Username:  u.Username,
		Bio:       u.Bio,
		Image:     u.Image,
		Following: following,
	}
}

// NewUserInput carries registration input after transport decoding.
type NewUserInput struct {
	Username string
	Email    string
	Password string
}

// Validate enforces the registration business rules.
func (in NewUserInput) Validate() error {
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

// UpdateUserInput carries the optional fields of a user update. Nil means
// "leave unchanged".
type UpdateUserInput struct {
	Username *string
	Email    *string
	Password *string
	Bio      *string
	Image    *string
}

// Validate checks only the fields that are present.
func (in UpdateUserInput) Validate() error {
	if in.Username != nil {
		if err := validateUsername(*in.Username); err != nil {
			return err
		}
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return err
		}
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return err
		}
	}
	return nil
}

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < 1 || len(username) > 64 {
		return domainerrors.WithCode(domainerrors.KindValidation, "INVALID_USERNAME",
			"username must be between 1 and 64 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return domainerrors.WithCode(domainerrors.KindValidation, "INVALID_EMAIL",
			"email address is not valid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return domainerrors.WithCode(domainerrors.KindValidation, "WEAK_PASSWORD",
			"password must be at least 8 characters")
	}
	return nil
}
