package tasks

import (
	"context"
	"fmt"
	"time"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/storage"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

type ImageDeleteHandler struct {
	store storage.ImageStore
}

func NewImageDeleteHandler(store storage.ImageStore) *ImageDeleteHandler {
	return &ImageDeleteHandler{store: store}
}

func (h *ImageDeleteHandler) ProcessTask(ctx context.Context, task *asynq.Task) (err error) {
	start := time.Now()
	defer func() { metrics.record(ctx, TypeImageDelete, err, start) }()

	var payload ImageDeletePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(payload.TraceContext))
	ctx, span := tracer.Start(parentCtx, "job.image_delete")
	defer span.End()

	span.SetAttributes(
		attribute.String("image.key", payload.Key),
		attribute.String("job.type", TypeImageDelete),
	)

	if err := h.store.Delete(ctx, payload.Key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete image")
		return err
	}

	logging.Info(ctx).Str("key", payload.Key).Msg("recipe image deleted")

	return nil
}
