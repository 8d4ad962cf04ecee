package services

import (
	"context"
	"errors"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

var (
	tracer = otel.Tracer("foodgram-api")
	meter  = otel.Meter("foodgram-api")
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("current password is incorrect")
	// ErrAccountGone means a still valid token names a deleted account.
	ErrAccountGone        = errors.New("account no longer exists")

	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrForbidden          = errors.New("only the author or an administrator may change this recipe")

	ErrAlreadyAdded   = errors.New("recipe already added")
	ErrAlreadyRemoved = errors.New("recipe already removed")
	ErrEmptyCart      = errors.New("shopping cart is empty")

	ErrSelfSubscription  = errors.New("cannot subscribe to yourself")
	ErrAlreadySubscribed = errors.New("already subscribed to this author")
	ErrNotSubscribed     = errors.New("subscription not found")
)

// Actor is the authenticated caller of a mutation.
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// Jobs is the background work the services hand off. A nil Jobs disables it.
type Jobs interface {
	EnqueueRecipePublished(ctx context.Context, recipeID, authorID uint, recipeName string) error
	EnqueueImageDelete(ctx context.Context, key string) error
}

func newCounter(name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		logging.Logger().Error().Err(err).Str("counter", name).Msg("failed to create counter")
	}
	return counter
}

func addCount(ctx context.Context, counter metric.Int64Counter, opts ...metric.AddOption) {
	if counter != nil {
		counter.Add(ctx, 1, opts...)
	}
}

// missingReference explains a foreign key failure on a row written on behalf
// of userID. Either the account was deleted or the other referenced row was.
func missingReference(ctx context.Context, db *gorm.DB, userID uint, otherwise error) error {
	var n int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountGone
	}
	return otherwise
}
