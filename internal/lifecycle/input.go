package lifecycle

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/jellydator/validation"

	"steward/pkg/platform/sentinel"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// LoginInput is the sign-in form.
type LoginInput struct {
	Username string
	Password string
}

func (in LoginInput) Validate() error {
	return wrap(validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required.Error("username is required"), validation.Length(1, 255)),
		validation.Field(&in.Password, validation.Required.Error("password is required"), validation.Length(1, 128)),
	))
}

// DetailsInput is the account details form.
type DetailsInput struct {
	Name     string
	Email    string
	Position string
}

func (in DetailsInput) Validate() error {
	return wrap(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("name is required"), validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Required.Error("email is required"), validation.Match(emailPattern).Error("email is invalid")),
		validation.Field(&in.Position, validation.Length(0, 100)),
	))
}

// PasswordInput is the password form.
type PasswordInput struct {
	Password string
	Confirm  string
}

func (in PasswordInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
		),
	)
	if err == nil && in.Password != in.Confirm {
		err = errors.New("passwords do not match")
	}
	return wrap(err)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", sentinel.ErrInvalidInput, err)
}
