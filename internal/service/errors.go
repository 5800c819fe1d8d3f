package service

import "errors"

// Operation failures. Handlers map these to HTTP statuses; anything else that
// escapes the service is an internal fault wrapped with an oops code.
var (
	ErrMissingFields     = errors.New("all fields are required")
	ErrDuplicateAccount  = errors.New("user already exists")
	ErrNotFound          = errors.New("user not found")
	ErrInvalidCredential = errors.New("invalid password")
	ErrUnauthenticated   = errors.New("not authorized, login again")
	ErrAlreadyVerified   = errors.New("account already verified")
	ErrInvalidOTP        = errors.New("invalid OTP")
	ErrOTPExpired        = errors.New("OTP expired")

	// ErrNotifierFailure marks a failed email send. It is only ever logged.
	ErrNotifierFailure = errors.New("notification delivery failed")
)
