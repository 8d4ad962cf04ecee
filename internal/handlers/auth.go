package handlers

import (
	"context"
	"net/http"

	"foodgram-api/internal/models"
	"foodgram-api/internal/services"

	"github.com/labstack/echo/v4"
)

type authService interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, input services.LoginInput) (*services.TokenResponse, error)
	SetPassword(ctx context.Context, userID uint, input services.SetPasswordInput) error
	DeleteAccount(ctx context.Context, userID uint, input services.DeleteAccountInput) error
}

type AuthHandler struct {
	authService authService
}

func NewAuthHandler(authService authService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var input services.RegisterInput
	if err := bind(c, &input); err != nil {
		return err
	}

	user, err := h.authService.Register(ctx, input)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, user.ToResponse(false))
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var input services.LoginInput
	if err := bind(c, &input); err != nil {
		return err
	}

	token, err := h.authService.Login(ctx, input)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, token)
}

// Logout only acknowledges the call; tokens are stateless and expire on
// their own.
func (h *AuthHandler) Logout(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) SetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var input services.SetPasswordInput
	if err := bind(c, &input); err != nil {
		return err
	}

	if err := h.authService.SetPassword(ctx, userID, input); err != nil {
		return serviceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var input services.DeleteAccountInput
	if err := bind(c, &input); err != nil {
		return err
	}

	if err := h.authService.DeleteAccount(ctx, userID, input); err != nil {
		return serviceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
