package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/service"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "token"

// TokenVerifier validates a session token and returns its account id.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// SessionGuard returns an Echo middleware that admits only requests carrying
// a valid session token. The token is read from the "token" cookie, or from
// an "Authorization: Bearer" header when no cookie is present. On success the
// account id is stored in the request context and the next handler runs; on
// any failure the chain stops with service.ErrUnauthenticated. The guard
// never reads or writes account state.
func SessionGuard(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return fmt.Errorf("%w: no session token", service.ErrUnauthenticated)
			}
			id, err := v.Verify(raw)
			if err != nil {
				return fmt.Errorf("%w: %w", service.ErrUnauthenticated, err)
			}

			req := c.Request()
			c.SetRequest(req.WithContext(WithAccountID(req.Context(), id)))
			c.Set(AccountIDKey, id)
			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
