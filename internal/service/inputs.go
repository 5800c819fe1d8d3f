package service

import "strings"

// RegisterInput is the signup payload.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *RegisterInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return ErrMissingFields
	}
	return nil
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return ErrMissingFields
	}
	return nil
}

// VerifyEmailInput carries the code from the verification email.
type VerifyEmailInput struct {
	OTP string `json:"otp"`
}

func (in *VerifyEmailInput) Validate() error {
	in.OTP = strings.TrimSpace(in.OTP)
	if in.OTP == "" {
		return ErrMissingFields
	}
	return nil
}

// SendResetOTPInput names the account that wants a reset code.
type SendResetOTPInput struct {
	Email string `json:"email"`
}

func (in *SendResetOTPInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return ErrMissingFields
	}
	return nil
}

// ResetPasswordInput is the reset-password payload.
type ResetPasswordInput struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (in *ResetPasswordInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
	if in.Email == "" || in.OTP == "" || in.NewPassword == "" {
		return ErrMissingFields
	}
	return nil
}
