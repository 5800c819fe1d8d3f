package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	t.Run("welcome", func(t *testing.T) {
		m := WelcomeMessage("alice", "a@x.com")
		assert.Equal(t, KindWelcome, m.Kind)
		assert.Equal(t, "a@x.com", m.To)
		assert.Equal(t, "Welcome to Our Website", m.Subject)
		assert.Contains(t, m.Body, "Hello alice")
	})

	t.Run("verify otp", func(t *testing.T) {
		m := VerifyOTPMessage("alice", "a@x.com", "123456", 10)
		assert.Equal(t, KindVerifyOTP, m.Kind)
		assert.Equal(t, "Your Account Verification OTP", m.Subject)
		assert.Contains(t, m.Body, "account verification is: 123456")
		assert.Contains(t, m.Body, "valid for 10 minutes")
	})

	t.Run("reset otp", func(t *testing.T) {
		m := ResetOTPMessage("alice", "a@x.com", "654321", 10)
		assert.Equal(t, KindResetOTP, m.Kind)
		assert.Contains(t, m.Body, "password reset is: 654321")
	})
}

func TestDisabled(t *testing.T) {
	err := Disabled{}.Notify(context.Background(), WelcomeMessage("a", "a@x.com"))
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNotifierFunc(t *testing.T) {
	var got Message
	n := NotifierFunc(func(_ context.Context, m Message) error { got = m; return nil })
	require.NoError(t, n.Notify(context.Background(), WelcomeMessage("a", "a@x.com")))
	assert.Equal(t, KindWelcome, got.Kind)
}

func TestNewSMTPNotifier_Validation(t *testing.T) {
	_, err := NewSMTPNotifier(SMTPConfig{Sender: "noreply@x.com"})
	assert.ErrorContains(t, err, "host is required")

	_, err = NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com"})
	assert.ErrorContains(t, err, "sender is required")

	n, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.example.com", Sender: "noreply@x.com", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, 587, n.cfg.Port)
}

func TestBuildMsg(t *testing.T) {
	m, err := buildMsg("noreply@x.com", VerifyOTPMessage("alice", "a@x.com", "123456", 10))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Your Account Verification OTP")
	assert.Contains(t, raw, "<a@x.com>")
	assert.Contains(t, raw, "123456")

	_, err = buildMsg("noreply@x.com", Message{To: "not an address"})
	assert.Error(t, err)
}
