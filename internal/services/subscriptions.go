package services

import (
	"context"
	"errors"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"
	"foodgram-api/internal/pagination"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionService struct {
	db                   *gorm.DB
	recipes              *RecipeService
	subscriptionsCounter metric.Int64Counter
}

func NewSubscriptionService(db *gorm.DB, recipes *RecipeService) *SubscriptionService {
	return &SubscriptionService{
		db:                   db,
		recipes:              recipes,
		subscriptionsCounter: newCounter("subscriptions.created", "Total number of subscriptions created"),
	}
}

// Subscribe makes userID follow authorID and returns the author card.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*models.AuthorResponse, error) {
	ctx, span := tracer.Start(ctx, "subscription.create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("author.id", int64(authorID)),
	)

	var author models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&author, authorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if userID == authorID {
			return ErrSelfSubscription
		}

		var existing int64
		if err := tx.Model(&models.Subscription{}).
			Where("user_id = ? AND author_id = ?", userID, authorID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadySubscribed
		}

		sub := models.Subscription{UserID: userID, AuthorID: authorID}
		if err := tx.Omit(clause.Associations).Create(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySubscribed
			}
			if errors.Is(err, gorm.ErrCheckConstraintViolated) {
				return ErrSelfSubscription
			}
			return err
		}
		return nil
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		err = missingReference(ctx, s.db, userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}

	addCount(ctx, s.subscriptionsCounter)

	logging.Info(ctx).
		Uint("user_id", userID).
		Uint("author_id", authorID).
		Msg("subscribed to author")

	cards, err := s.authorCards(ctx, []models.User{author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &cards[0], nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	ctx, span := tracer.Start(ctx, "subscription.delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("author.id", int64(authorID)),
	)

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotSubscribed
	}

	logging.Info(ctx).
		Uint("user_id", userID).
		Uint("author_id", authorID).
		Msg("unsubscribed from author")

	return nil
}

// List returns one page of the authors userID follows, most recent
// subscription first.
func (s *SubscriptionService) List(ctx context.Context, userID uint, params pagination.Params, recipesLimit int) ([]models.AuthorResponse, int64, error) {
	ctx, span := tracer.Start(ctx, "subscription.list")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
	)

	followed := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID)

	var total int64
	if err := followed.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	if err := followed.Session(&gorm.Session{}).
		Order("subscriptions.id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&authors).Error; err != nil {
		return nil, 0, err
	}

	cards, err := s.authorCards(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

type recipeCount struct {
	AuthorID uint
	Count    int64
}

// authorCards loads, for every author, their newest recipesLimit recipes
// and their total recipe count. The viewer follows every author here.
func (s *SubscriptionService) authorCards(ctx context.Context, authors []models.User, recipesLimit int) ([]models.AuthorResponse, error) {
	cards := make([]models.AuthorResponse, len(authors))
	if len(authors) == 0 {
		return cards, nil
	}

	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	var recent []models.Recipe
	if recipesLimit > 0 {
		if err := s.db.WithContext(ctx).Raw(
			`SELECT * FROM (
				SELECT recipes.*, ROW_NUMBER() OVER (PARTITION BY author_id ORDER BY created_at DESC, id DESC) AS rank_in_author
				FROM recipes WHERE author_id IN ?
			) ranked WHERE rank_in_author <= ? ORDER BY created_at DESC, id DESC`,
			ids, recipesLimit,
		).Scan(&recent).Error; err != nil {
			return nil, err
		}
	}

	var counts []recipeCount
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS count").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	byAuthor := make(map[uint][]models.RecipeShortResponse, len(authors))
	for i := range recent {
		r := &recent[i]
		if r.AuthorID != nil {
			byAuthor[*r.AuthorID] = append(byAuthor[*r.AuthorID], r.ToShortResponse(s.recipes.ImageURL))
		}
	}
	countByAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByAuthor[c.AuthorID] = c.Count
	}

	for i := range authors {
		recipes := byAuthor[authors[i].ID]
		if recipes == nil {
			recipes = make([]models.RecipeShortResponse, 0)
		}
		cards[i] = models.AuthorResponse{
			UserResponse: authors[i].ToResponse(true),
			Recipes:      recipes,
			RecipesCount: countByAuthor[authors[i].ID],
		}
	}
	return cards, nil
}
