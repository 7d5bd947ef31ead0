package auth

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

type signUpRequest struct {
	Name     string `validate:"required,max=64"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=72"`
}

type signInRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// validationError turns the first failed rule into a readable ErrInvalidInput
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, fe.Field())
		case "email":
			return fmt.Errorf("%w: %s is not a valid email", ErrInvalidInput, fe.Field())
		case "min":
			return fmt.Errorf("%w: %s must be at least %s characters", ErrInvalidInput, fe.Field(), fe.Param())
		case "max":
			return fmt.Errorf("%w: %s must be at most %s characters", ErrInvalidInput, fe.Field(), fe.Param())
		}
		return fmt.Errorf("%w: %s is invalid", ErrInvalidInput, fe.Field())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
