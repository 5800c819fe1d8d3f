package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/iliyamo/storefront-auth/internal/model"
)

// OTP configuration.
const (
	OTPTTL = 10 * time.Minute // default validity of a one-time passcode
	otpMin = 100000           // smallest 6-digit value
	otpMax = 999999           // largest 6-digit value
)

// OTPGenerator produces 6-digit one-time passcodes with an absolute expiry.
type OTPGenerator struct {
	ttl time.Duration
	now func() time.Time
}

// NewOTPGenerator returns a generator whose codes expire ttl after issuance.
// A non-positive ttl falls back to OTPTTL and a nil clock to time.Now.
func NewOTPGenerator(ttl time.Duration, now func() time.Time) *OTPGenerator {
	if ttl <= 0 {
		ttl = OTPTTL
	}
	if now == nil {
		now = time.Now
	}
	return &OTPGenerator{ttl: ttl, now: now}
}

// TTL returns how long generated codes stay valid.
func (g *OTPGenerator) TTL() time.Duration { return g.ttl }

// Generate draws a code uniformly from 100000–999999 and stamps the expiry.
// Times are kept at millisecond precision to round-trip through DATETIME(3).
func (g *OTPGenerator) Generate() (model.OTP, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return model.OTP{}, err
	}
	code := strconv.FormatInt(n.Int64()+otpMin, 10)
	exp := g.now().UTC().Truncate(time.Millisecond).Add(g.ttl)
	return model.OTP{Code: code, ExpiresAt: exp}, nil
}
