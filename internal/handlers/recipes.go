package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"foodgram-api/internal/models"
	"foodgram-api/internal/pagination"
	"foodgram-api/internal/services"
	"foodgram-api/internal/validation"

	"github.com/labstack/echo/v4"
)

type recipeService interface {
	List(ctx context.Context, viewerID *uint, query services.RecipeQuery, params pagination.Params) ([]models.RecipeResponse, int64, error)
	Get(ctx context.Context, id uint, viewerID *uint) (*models.RecipeResponse, error)
	Create(ctx context.Context, actor services.Actor, input services.CreateRecipeInput) (*models.RecipeResponse, error)
	Update(ctx context.Context, id uint, actor services.Actor, input services.UpdateRecipeInput) (*models.RecipeResponse, error)
	Delete(ctx context.Context, id uint, actor services.Actor) error
}

type membershipService interface {
	Add(ctx context.Context, c services.Collection, userID, recipeID uint) (*models.RecipeShortResponse, error)
	Remove(ctx context.Context, c services.Collection, userID, recipeID uint) error
}

type shoppingListService interface {
	Build(ctx context.Context, userID uint) ([]models.ShoppingListItem, error)
}

type RecipeHandler struct {
	recipeService       recipeService
	membershipService   membershipService
	shoppingListService shoppingListService
	paginator           pagination.Paginator
}

func NewRecipeHandler(recipes recipeService, membership membershipService, shoppingList shoppingListService, paginator pagination.Paginator) *RecipeHandler {
	return &RecipeHandler{
		recipeService:       recipes,
		membershipService:   membership,
		shoppingListService: shoppingList,
		paginator:           paginator,
	}
}

func (h *RecipeHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	query, err := parseRecipeQuery(c)
	if err != nil {
		return err
	}

	params := h.paginator.Parse(c.QueryParams())
	recipes, total, err := h.recipeService.List(ctx, viewer(c), query, params)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, pagination.NewPage(absoluteURL(c), params, total, recipes))
}

func (h *RecipeHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c)
	if err != nil {
		return err
	}

	recipe, err := h.recipeService.Get(ctx, id, viewer(c))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	who, err := actor(c)
	if err != nil {
		return err
	}

	var input services.CreateRecipeInput
	if err := bind(c, &input); err != nil {
		return err
	}

	recipe, err := h.recipeService.Create(ctx, who, input)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	who, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var input services.UpdateRecipeInput
	if err := bind(c, &input); err != nil {
		return err
	}

	recipe, err := h.recipeService.Update(ctx, id, who, input)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	who, err := actor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.recipeService.Delete(ctx, id, who); err != nil {
		return serviceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c echo.Context) error {
	return h.add(c, services.Favorites)
}

func (h *RecipeHandler) RemoveFavorite(c echo.Context) error {
	return h.remove(c, services.Favorites)
}

func (h *RecipeHandler) AddToShoppingCart(c echo.Context) error {
	return h.add(c, services.ShoppingCart)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c echo.Context) error {
	return h.remove(c, services.ShoppingCart)
}

func (h *RecipeHandler) add(c echo.Context, collection services.Collection) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	recipe, err := h.membershipService.Add(ctx, collection, userID, id)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) remove(c echo.Context, collection services.Collection) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.membershipService.Remove(ctx, collection, userID, id); err != nil {
		return serviceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *RecipeHandler) DownloadShoppingCart(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	items, err := h.shoppingListService.Build(ctx, userID)
	if err != nil {
		return serviceError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", services.ShoppingListFilename))
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, services.RenderShoppingList(items))
}

func parseRecipeQuery(c echo.Context) (services.RecipeQuery, error) {
	values := c.QueryParams()
	query := services.RecipeQuery{}
	for _, slug := range values["tags"] {
		if slug = strings.TrimSpace(slug); slug != "" {
			query.Tags = append(query.Tags, slug)
		}
	}

	if raw := values.Get("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return query, validation.NewFieldError("author", "Select a valid choice.")
		}
		author := uint(id)
		query.AuthorID = &author
	}

	var err error
	if query.IsFavorited, err = parseFlag(values.Get("is_favorited"), "is_favorited"); err != nil {
		return query, err
	}
	if query.IsInShoppingCart, err = parseFlag(values.Get("is_in_shopping_cart"), "is_in_shopping_cart"); err != nil {
		return query, err
	}

	return query, nil
}

func parseFlag(raw, field string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, validation.NewFieldError(field, "Must be a valid boolean.")
	}
	return &v, nil
}
