package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/model"
)

// ProfileService loads the signed-in account.
type ProfileService interface {
	Profile(ctx context.Context, accountID string) (model.Account, error)
}

// UserHandler serves account data for the storefront.
type UserHandler struct {
	Svc ProfileService
}

func NewUserHandler(svc ProfileService) *UserHandler {
	return &UserHandler{Svc: svc}
}

type userData struct {
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	IsAccountVerified bool      `json:"isAccountVerified"`
	CreatedAt         time.Time `json:"createdAt"`
}

type userDataResp struct {
	Success  bool     `json:"success"`
	UserData userData `json:"userData"`
}

// UserData returns the public profile of the signed-in account.
func (h *UserHandler) UserData(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Svc.Profile(ctx, middleware.AccountID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userDataResp{
		Success: true,
		UserData: userData{
			Username:          a.Username,
			Email:             a.Email,
			IsAccountVerified: a.IsVerified,
			CreatedAt:         a.CreatedAt.UTC(),
		},
	})
}
