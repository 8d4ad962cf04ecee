package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"foodgram-api/internal/models"
	"foodgram-api/internal/services"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

type ingredientService interface {
	Search(ctx context.Context, prefix string) ([]models.Ingredient, error)
	Get(ctx context.Context, id uint) (*models.Ingredient, error)
	Create(ctx context.Context, inputs []services.CreateIngredientInput) ([]models.Ingredient, error)
}

type IngredientHandler struct {
	ingredientService ingredientService
}

func NewIngredientHandler(ingredientService ingredientService) *IngredientHandler {
	return &IngredientHandler{ingredientService: ingredientService}
}

func (h *IngredientHandler) List(c echo.Context) error {
	ingredients, err := h.ingredientService.Search(c.Request().Context(), c.QueryParam("name"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, ingredients)
}

func (h *IngredientHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ingredient, err := h.ingredientService.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, ingredient)
}

// Create accepts a single ingredient object or an array of them. The
// response mirrors the shape of the request.
func (h *IngredientHandler) Create(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}

	bulk := bytes.HasPrefix(bytes.TrimSpace(body), []byte("["))

	var inputs []services.CreateIngredientInput
	if bulk {
		err = json.Unmarshal(body, &inputs)
	} else {
		var input services.CreateIngredientInput
		err = json.Unmarshal(body, &input)
		inputs = append(inputs, input)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	if len(inputs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Expected at least one ingredient.")
	}

	for i := range inputs {
		if err := c.Validate(&inputs[i]); err != nil {
			return err
		}
	}

	created, err := h.ingredientService.Create(c.Request().Context(), inputs)
	if err != nil {
		return serviceError(err)
	}

	if bulk {
		return c.JSON(http.StatusCreated, created)
	}
	return c.JSON(http.StatusCreated, created[0])
}
