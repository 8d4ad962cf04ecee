package handlers

import (
	"context"
	"net/http"
	"strconv"

	"foodgram-api/internal/models"
	"foodgram-api/internal/pagination"
	"foodgram-api/internal/validation"

	"github.com/labstack/echo/v4"
)

type userService interface {
	GetByID(ctx context.Context, id uint, viewerID *uint) (*models.UserResponse, error)
	List(ctx context.Context, viewerID *uint, params pagination.Params) ([]models.UserResponse, int64, error)
}

type subscriptionService interface {
	Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*models.AuthorResponse, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	List(ctx context.Context, userID uint, params pagination.Params, recipesLimit int) ([]models.AuthorResponse, int64, error)
}

type UserHandler struct {
	userService         userService
	subscriptionService subscriptionService
	paginator           pagination.Paginator
	recipesLimit        int
}

func NewUserHandler(users userService, subscriptions subscriptionService, paginator pagination.Paginator, recipesLimit int) *UserHandler {
	return &UserHandler{
		userService:         users,
		subscriptionService: subscriptions,
		paginator:           paginator,
		recipesLimit:        recipesLimit,
	}
}

func (h *UserHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	params := h.paginator.Parse(c.QueryParams())
	users, total, err := h.userService.List(ctx, viewer(c), params)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, pagination.NewPage(absoluteURL(c), params, total, users))
}

func (h *UserHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.GetByID(ctx, id, viewer(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	user, err := h.userService.GetByID(ctx, userID, &userID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	authorID, err := pathID(c)
	if err != nil {
		return err
	}
	limit, err := h.parseRecipesLimit(c)
	if err != nil {
		return err
	}

	author, err := h.subscriptionService.Subscribe(ctx, userID, authorID, limit)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, author)
}

func (h *UserHandler) Unsubscribe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	authorID, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.subscriptionService.Unsubscribe(ctx, userID, authorID); err != nil {
		return serviceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, err := h.parseRecipesLimit(c)
	if err != nil {
		return err
	}

	params := h.paginator.Parse(c.QueryParams())
	authors, total, err := h.subscriptionService.List(ctx, userID, params, limit)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, pagination.NewPage(absoluteURL(c), params, total, authors))
}

func (h *UserHandler) parseRecipesLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("recipes_limit")
	if raw == "" {
		return h.recipesLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, validation.NewFieldError("recipes_limit", "A valid non-negative integer is required.")
	}
	return limit, nil
}
