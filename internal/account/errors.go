package account

import (
	"errors"
	"fmt"

	"github.com/geocoder89/storefront/internal/security"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidOTP         = errors.New("invalid email or otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrOTPIncorrect       = errors.New("otp incorrect")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrMailDelivery       = errors.New("could not deliver otp email")
	ErrInvalidName        = errors.New("name must have at least 2 characters")
	ErrPasswordTooLong    = fmt.Errorf("account: %w", security.ErrPasswordTooLong)
)

const minNameLength = 2
