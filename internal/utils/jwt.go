package utils // package utils provides the credential primitives: hashing, session tokens and OTPs

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// SessionTTL is the default validity window of a session token.
const SessionTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and unexpected
	// signing algorithms.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned once the token's exp has been reached.
	ErrExpiredToken = errors.New("token expired")
)

// Numeric dates are signed with millisecond precision, so a token issued at
// T expires at T+ttl rather than at the start of that second.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// SessionToken is a signed JWT together with its expiry. The expiry is used
// by handlers to size the cookie.
type SessionToken struct {
	Value string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenIssuer signs and validates HS256 session tokens. The subject claim
// carries the account id; iat and exp are always set. Nothing is stored
// server-side, so a token stays valid until exp.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer for the given secret. A non-positive ttl
// falls back to SessionTTL and a nil clock to time.Now.
func NewTokenIssuer(secret string, ttl time.Duration, now func() time.Time) *TokenIssuer {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: now}
}

// TTL returns the validity window of issued tokens.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue builds and signs a token for accountID.
func (i *TokenIssuer) Issue(accountID string) (SessionToken, error) {
	if accountID == "" {
		return SessionToken{}, ErrInvalidToken
	}
	// Truncate to the signed precision so the returned expiry equals the
	// signed one.
	iat := i.now().UTC().Truncate(jwt.TimePrecision)
	exp := iat.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Value: signed, Exp: exp}, nil
}

// Verify parses raw and returns the account id it was issued for.
func (i *TokenIssuer) Verify(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
