package middleware

// identity.go carries the authenticated account id from the session guard to
// handlers. The id travels in the request context.Context; the echo context
// copy under AccountIDKey is for echo-aware helpers such as the request
// logger.

import (
	"context"

	"github.com/labstack/echo/v4"
)

// AccountIDKey is the echo context key holding the authenticated account id.
const AccountIDKey = "account_id"

type accountIDKey struct{}

// WithAccountID returns a copy of ctx carrying id.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey{}, id)
}

// AccountIDFrom returns the account id stored by the session guard.
func AccountIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey{}).(string)
	return id, ok && id != ""
}

// AccountID is AccountIDFrom for an echo context. It returns "" for
// unauthenticated requests.
func AccountID(c echo.Context) string {
	id, _ := AccountIDFrom(c.Request().Context())
	return id
}
