package model

import "time"

// Account represents a storefront account as stored in the `accounts`
// table. Handlers define their own response types; this struct is used by
// the repository and service layers.
//
// Fields:
//
//	ID           – UUID assigned at creation, never changes.
//	Username     – unique display name.
//	Email        – unique, trimmed and lower-cased address.
//	PasswordHash – bcrypt hash of the password.
//	IsVerified   – true once the email has been confirmed; never reverts.
//	VerifyOTP    – pending email verification code (nil when none).
//	ResetOTP     – pending password reset code (nil when none).
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type Account struct {
	ID           string    // accounts.id
	Username     string    // accounts.username
	Email        string    // accounts.email
	PasswordHash string    // accounts.password_hash
	IsVerified   bool      // accounts.is_verified
	VerifyOTP    *OTP      // accounts.verify_otp + verify_otp_expires_at
	ResetOTP     *OTP      // accounts.reset_otp + reset_otp_expires_at
	CreatedAt    time.Time // accounts.created_at
	UpdatedAt    time.Time // accounts.updated_at
}

// OTP is a one-time passcode together with its absolute expiry. The code and
// the expiry are always stored and cleared as a pair, which is why accounts
// hold a pointer to this value instead of two nullable fields.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether now is strictly after the expiry. The expiry
// instant itself is still valid.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Matches reports whether code equals the stored code. A nil OTP never
// matches, which makes a consumed code unusable.
func (o *OTP) Matches(code string) bool {
	if o == nil || o.Code == "" {
		return false
	}
	return o.Code == code
}
