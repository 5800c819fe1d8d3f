// Package notify builds the account emails and delivers them through a
// pluggable transport. Delivery is best effort: callers log failures and
// never let them fail the operation that triggered the email.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies which account email a message is.
type Kind string

const (
	KindWelcome   Kind = "welcome"
	KindVerifyOTP Kind = "verify_otp"
	KindResetOTP  Kind = "reset_otp"
)

// ErrDisabled is returned by the disabled notifier so the caller can log a
// skipped send instead of a failure.
var ErrDisabled = errors.New("mail delivery disabled")

// Message is a plain-text email addressed to a single recipient.
type Message struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier delivers a message. Implementations must honour ctx cancellation.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Disabled is the notifier used when no transport is configured.
type Disabled struct{}

func (Disabled) Notify(context.Context, Message) error { return ErrDisabled }

const signature = "\n\nBest regards,\nThe Team Code Ninjas"

// WelcomeMessage is sent after a successful registration.
func WelcomeMessage(username, email string) Message {
	return Message{
		Kind:    KindWelcome,
		To:      email,
		Subject: "Welcome to Our Website",
		Body:    fmt.Sprintf("Hello %s, Thank you for registering!", username),
	}
}

// VerifyOTPMessage carries an email verification code.
func VerifyOTPMessage(username, email, code string, ttlMinutes int) Message {
	return Message{
		Kind:    KindVerifyOTP,
		To:      email,
		Subject: "Your Account Verification OTP",
		Body: fmt.Sprintf("Hello %s,\n\nYour OTP for account verification is: %s\nThis OTP is valid for %d minutes.%s",
			username, code, ttlMinutes, signature),
	}
}

// ResetOTPMessage carries a password reset code.
func ResetOTPMessage(username, email, code string, ttlMinutes int) Message {
	return Message{
		Kind:    KindResetOTP,
		To:      email,
		Subject: "Your Password Reset OTP",
		Body: fmt.Sprintf("Hello %s,\n\nYour OTP for account password reset is: %s\nThis OTP is valid for %d minutes.%s",
			username, code, ttlMinutes, signature),
	}
}
