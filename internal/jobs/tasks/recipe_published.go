package tasks

import (
	"context"
	"fmt"
	"time"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/models"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"gorm.io/gorm"
)

// RecipePublishedHandler tells every follower of an author about a new recipe.
// Delivery is a structured log line per follower.
type RecipePublishedHandler struct {
	db *gorm.DB
}

func NewRecipePublishedHandler(db *gorm.DB) *RecipePublishedHandler {
	return &RecipePublishedHandler{db: db}
}

func (h *RecipePublishedHandler) ProcessTask(ctx context.Context, task *asynq.Task) (err error) {
	start := time.Now()
	defer func() { metrics.record(ctx, TypeRecipePublished, err, start) }()

	var payload RecipePublishedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(payload.TraceContext))
	ctx, span := tracer.Start(parentCtx, "job.recipe_published")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("recipe.id", int64(payload.RecipeID)),
		attribute.Int64("author.id", int64(payload.AuthorID)),
		attribute.String("job.type", TypeRecipePublished),
	)

	followers, err := h.followers(ctx, payload.AuthorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load followers")
		return err
	}

	for _, follower := range followers {
		logging.Info(ctx).
			Uint("recipe_id", payload.RecipeID).
			Str("recipe_name", payload.RecipeName).
			Uint("author_id", payload.AuthorID).
			Uint("follower_id", follower.ID).
			Str("follower_email", follower.Email).
			Msg("new recipe notification")
	}

	span.SetAttributes(attribute.Int("notifications.sent", len(followers)))
	span.SetStatus(codes.Ok, "notifications processed")

	return nil
}

func (h *RecipePublishedHandler) followers(ctx context.Context, authorID uint) ([]models.User, error) {
	var users []models.User
	err := h.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.user_id = users.id").
		Where("subscriptions.author_id = ?", authorID).
		Order("users.id").
		Find(&users).Error
	return users, err
}
