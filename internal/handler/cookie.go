package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// CookiePolicy describes how the session cookie is written.
type CookiePolicy struct {
	config.CookieConfig
	MaxAge time.Duration
}

func (p CookiePolicy) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

// setSession attaches tok as the session cookie.
func (p CookiePolicy) setSession(c echo.Context, tok utils.SessionToken) {
	c.SetCookie(p.cookie(tok.Value, int(p.MaxAge/time.Second), tok.Exp))
}

// clearSession expires the session cookie with the same attributes it was set
// with; browsers ignore a clear whose attributes do not match.
func (p CookiePolicy) clearSession(c echo.Context) {
	c.SetCookie(p.cookie("", -1, time.Unix(0, 0)))
}
