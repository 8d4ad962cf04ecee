package handlers

import (
	"context"
	"net/http"

	"foodgram-api/internal/models"
	"foodgram-api/internal/services"

	"github.com/labstack/echo/v4"
)

type tagService interface {
	List(ctx context.Context) ([]models.Tag, error)
	Get(ctx context.Context, id uint) (*models.Tag, error)
	Create(ctx context.Context, input services.CreateTagInput) (*models.Tag, error)
}

type TagHandler struct {
	tagService tagService
}

func NewTagHandler(tagService tagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

func (h *TagHandler) List(c echo.Context) error {
	tags, err := h.tagService.List(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	tag, err := h.tagService.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, tag)
}

func (h *TagHandler) Create(c echo.Context) error {
	var input services.CreateTagInput
	if err := bind(c, &input); err != nil {
		return err
	}

	tag, err := h.tagService.Create(c.Request().Context(), input)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, tag)
}
