package services

import (
	"context"
	"strconv"
	"strings"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

const ShoppingListFilename = "shopping_list.txt"

type ShoppingListService struct {
	db        *gorm.DB
	downloads metric.Int64Counter
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{
		db:        db,
		downloads: newCounter("shopping_list.downloads", "Total number of shopping lists built"),
	}
}

// Build sums ingredient amounts over every recipe in the user's cart, one
// line per (name, unit) pair, ordered by name.
func (s *ShoppingListService) Build(ctx context.Context, userID uint) ([]models.ShoppingListItem, error) {
	ctx, span := tracer.Start(ctx, "shopping_list.build")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", int64(userID)))

	var carted int64
	if err := s.db.WithContext(ctx).Model(&models.ShoppingCartItem{}).
		Where("user_id = ?", userID).
		Count(&carted).Error; err != nil {
		return nil, err
	}
	if carted == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.ShoppingListItem, 0)
	if err := s.db.WithContext(ctx).
		Table("ingredient_recipes").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(ingredient_recipes.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = ingredient_recipes.ingredient_id").
		Joins("JOIN shopping_cart_items ON shopping_cart_items.recipe_id = ingredient_recipes.recipe_id").
		Where("shopping_cart_items.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error; err != nil {
		return nil, err
	}

	addCount(ctx, s.downloads)
	span.SetAttributes(attribute.Int("shopping_list.lines", len(items)))

	logging.Debug(ctx).
		Uint("user_id", userID).
		Int("lines", len(items)).
		Msg("shopping list built")

	return items, nil
}

// RenderShoppingList formats one line per item as " - name (unit) -  - amount".
func RenderShoppingList(items []models.ShoppingListItem) []byte {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(" - ")
		b.WriteString(item.Name)
		b.WriteString(" (")
		b.WriteString(item.MeasurementUnit)
		b.WriteString(") -  - ")
		b.WriteString(strconv.FormatInt(item.Amount, 10))
	}
	return []byte(b.String())
}
