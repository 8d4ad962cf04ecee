package services

import (
	"context"
	"errors"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Collection is a per-user set of recipes.
type Collection int

const (
	Favorites Collection = iota
	ShoppingCart
)

func (c Collection) String() string {
	switch c {
	case Favorites:
		return "favorites"
	case ShoppingCart:
		return "shopping_cart"
	default:
		return "unknown"
	}
}

func (c Collection) edge(userID, recipeID uint) any {
	if c == ShoppingCart {
		return &models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}
	}
	return &models.Favorite{UserID: userID, RecipeID: recipeID}
}

type MembershipService struct {
	db       *gorm.DB
	recipes  *RecipeService
	counters map[Collection]metric.Int64Counter
}

func NewMembershipService(db *gorm.DB, recipes *RecipeService) *MembershipService {
	return &MembershipService{
		db:      db,
		recipes: recipes,
		counters: map[Collection]metric.Int64Counter{
			Favorites:    newCounter("recipes.favorited", "Total number of recipes added to favorites"),
			ShoppingCart: newCounter("recipes.carted", "Total number of recipes added to shopping carts"),
		},
	}
}

// Add puts the recipe into the user's collection and returns its short form.
func (s *MembershipService) Add(ctx context.Context, c Collection, userID, recipeID uint) (*models.RecipeShortResponse, error) {
	ctx, span := tracer.Start(ctx, "collection.add")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", c.String()),
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("recipe.id", int64(recipeID)),
	)

	var recipe models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&recipe, recipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(c.edge(0, 0)).
			Where("user_id = ? AND recipe_id = ?", userID, recipeID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyAdded
		}

		if err := tx.Omit(clause.Associations).Create(c.edge(userID, recipeID)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyAdded
			}
			return err
		}
		return nil
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		err = missingReference(ctx, s.db, userID, ErrRecipeNotFound)
	}
	if err != nil {
		return nil, err
	}

	addCount(ctx, s.counters[c])

	logging.Info(ctx).
		Str("collection", c.String()).
		Uint("user_id", userID).
		Uint("recipe_id", recipeID).
		Msg("recipe added to collection")

	short := recipe.ToShortResponse(s.recipes.ImageURL)
	return &short, nil
}

func (s *MembershipService) Remove(ctx context.Context, c Collection, userID, recipeID uint) error {
	ctx, span := tracer.Start(ctx, "collection.remove")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", c.String()),
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("recipe.id", int64(recipeID)),
	)

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(c.edge(0, 0))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyRemoved
	}

	logging.Info(ctx).
		Str("collection", c.String()).
		Uint("user_id", userID).
		Uint("recipe_id", recipeID).
		Msg("recipe removed from collection")

	return nil
}
