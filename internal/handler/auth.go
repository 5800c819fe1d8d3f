package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// AuthService is the subset of *service.AuthService the auth endpoints use.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Session, error)
	Login(ctx context.Context, in service.LoginInput) (service.Session, error)
	SendVerifyOTP(ctx context.Context, accountID string) error
	VerifyEmail(ctx context.Context, accountID string, in service.VerifyEmailInput) error
	CheckSession(ctx context.Context, accountID string) error
	SendResetOTP(ctx context.Context, in service.SendResetOTPInput) error
	ResetPassword(ctx context.Context, in service.ResetPasswordInput) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Svc    AuthService
	Cookie CookiePolicy
}

func NewAuthHandler(svc AuthService, cookie CookiePolicy) *AuthHandler {
	return &AuthHandler{Svc: svc, Cookie: cookie}
}

// ----- DTOs -----

type messageResp struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(c echo.Context, status int, msg string) error {
	return c.JSON(status, messageResp{Success: true, Message: msg})
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// Register: create the account and start a session right away.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sess, err := h.Svc.Register(ctx, req)
	if err != nil {
		return err
	}
	h.Cookie.setSession(c, sess.Token)
	return ok(c, http.StatusCreated, "User created successfully")
}

// Login: verify the password and start a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sess, err := h.Svc.Login(ctx, req)
	if err != nil {
		return err
	}
	h.Cookie.setSession(c, sess.Token)
	return ok(c, http.StatusOK, "Login successful")
}

// Logout: clear the session cookie. Tokens are not tracked server-side, so
// this always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Cookie.clearSession(c)
	return ok(c, http.StatusOK, "Logout successful")
}

// SendVerifyOTP: email a verification code to the signed-in account.
func (h *AuthHandler) SendVerifyOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.SendVerifyOTP(ctx, middleware.AccountID(c)); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Verification OTP sent to your email")
}

// VerifyAccount: consume the verification code.
func (h *AuthHandler) VerifyAccount(c echo.Context) error {
	var req service.VerifyEmailInput
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.VerifyEmail(ctx, middleware.AccountID(c), req); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Email verified successfully")
}

// IsAuthenticated: the session guard already did the work.
func (h *AuthHandler) IsAuthenticated(c echo.Context) error {
	if err := h.Svc.CheckSession(c.Request().Context(), middleware.AccountID(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Success: true})
}

// SendResetOTP: email a password reset code. No session required.
func (h *AuthHandler) SendResetOTP(c echo.Context) error {
	var req service.SendResetOTPInput
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.SendResetOTP(ctx, req); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Password reset OTP sent to your email")
}

// ResetPassword: set a new password with a reset code.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req service.ResetPasswordInput
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.ResetPassword(ctx, req); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Password has been reset successfully")
}
