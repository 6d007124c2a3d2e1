// Package identity signs shoppers up and in against a hosted auth service and
// remembers the signed-in user per storefront session.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/DNLCodess/ReezBlank/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUnauthorized       = errors.New("not signed in")
	ErrUnavailable        = errors.New("identity service unavailable")
	ErrDisabled           = errors.New("identity service not configured")
)

type Service interface {
	SignUp(ctx context.Context, email, password string) (domain.User, error)
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

// APIError is a rejection reported by the auth service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("auth service returned status %d", e.StatusCode)
}

// Disabled is used when no auth service is configured.
type Disabled struct{}

func (Disabled) SignUp(context.Context, string, string) (domain.User, error) {
	return domain.User{}, ErrDisabled
}

func (Disabled) SignIn(context.Context, string, string) (domain.Session, error) {
	return domain.Session{}, ErrDisabled
}

func (Disabled) SignOut(context.Context, string) error {
	return ErrDisabled
}

func (Disabled) GetUser(context.Context, string) (domain.User, error) {
	return domain.User{}, ErrDisabled
}

func (Disabled) RequestPasswordReset(context.Context, string) error {
	return ErrDisabled
}
