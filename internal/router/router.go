package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/storefront-auth/internal/handler"
	"github.com/iliyamo/storefront-auth/internal/middleware"
)

// New returns an Echo instance with the JSON error handler and the shared
// middleware stack: request logging, panic recovery, a body size limit and
// CORS for the storefront origin with credentials.
func New(log *slog.Logger, clientOrigin string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)

	// The logger runs outermost so it sees the status of recovered panics.
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			}
			if id := middleware.AccountID(c); id != "" {
				attrs = append(attrs, "account_id", id)
			}
			if v.Error != nil {
				log.Warn("request", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{clientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	return e
}

// RegisterRoutes registers the operational endpoints that need no session:
// liveness, readiness, metrics and the root banner.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metrics http.Handler) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the account endpoints under /api/auth. Signup,
// login, logout and the password reset pair are public; the rest sit behind
// the session guard.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/signup", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.POST("/send-pass-reset-otp", a.SendResetOTP)
	g.POST("/reset-password", a.ResetPassword)

	g.POST("/send-verify-otp", a.SendVerifyOTP, guard)
	g.POST("/verify-account", a.VerifyAccount, guard)
	g.POST("/is-auth", a.IsAuthenticated, guard)
}

// RegisterUser registers the signed-in account endpoints under /api/user.
// The profile cache runs after the guard because it keys on the account id.
func RegisterUser(e *echo.Echo, u *handler.UserHandler, guard echo.MiddlewareFunc, cache *middleware.ProfileCache) {
	g := e.Group("/api/user", guard)
	g.GET("/userdata", u.UserData, cache.Middleware())
}
