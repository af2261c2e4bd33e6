package services

import (
	"errors"
	"fmt"
)

// Error roots. Handlers map these to status codes; specific errors wrap one of them.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient credits")
	ErrAuth              = errors.New("authentication failed")
	ErrUpstream          = errors.New("upstream service failed")
)

var (
	ErrDuplicateApplication    = fmt.Errorf("%w: an active application already exists for this phone", ErrConflict)
	ErrCodeGenerationExhausted = fmt.Errorf("%w: could not generate a unique person code", ErrConflict)
	ErrSelfTransfer            = fmt.Errorf("%w: cannot transfer credits to yourself", ErrConflict)
	ErrInvalidTransition       = fmt.Errorf("%w: application is not pending", ErrConflict)
	ErrPhoneTaken              = fmt.Errorf("%w: phone already registered", ErrConflict)
	ErrDuplicateLocation       = fmt.Errorf("%w: location already exists", ErrConflict)
	ErrDuplicatePosition       = fmt.Errorf("%w: position already exists", ErrConflict)
	ErrPositionTaken           = fmt.Errorf("%w: position already has an active application", ErrConflict)

	ErrApplicationNotFound = fmt.Errorf("%w: application", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("%w: user", ErrNotFound)
	ErrPositionNotFound    = fmt.Errorf("%w: position", ErrNotFound)
	ErrLocationNotFound    = fmt.Errorf("%w: location", ErrNotFound)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid phone or password", ErrAuth)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrAuth)
	ErrOTPMismatch        = fmt.Errorf("%w: invalid OTP", ErrAuth)
	ErrOTPExpired         = fmt.Errorf("%w: OTP expired or not requested", ErrAuth)
	ErrOTPAttempts        = fmt.Errorf("%w: too many failed OTP attempts", ErrAuth)
	ErrOTPThrottled       = fmt.Errorf("%w: OTP requested too recently", ErrValidation)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
