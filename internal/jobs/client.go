package jobs

import (
	"context"
	"fmt"

	"foodgram-api/internal/jobs/tasks"
	"foodgram-api/internal/logging"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

const (
	DefaultQueue = "default"
	// MaintenanceQueue holds storage cleanup, served after notifications.
	MaintenanceQueue = "maintenance"
)

var (
	tracer = otel.Tracer("foodgram-api")
	meter  = otel.Meter("foodgram-api")
)

type Client struct {
	client       *asynq.Client
	jobsEnqueued metric.Int64Counter
}

func NewClient(redisAddr string) (*Client, error) {
	jobsEnqueued, err := meter.Int64Counter(
		"jobs.enqueued",
		metric.WithDescription("Total number of jobs enqueued"),
	)
	if err != nil {
		return nil, fmt.Errorf("create jobs enqueued counter: %w", err)
	}

	return &Client{
		client:       asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		jobsEnqueued: jobsEnqueued,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnqueueRecipePublished(ctx context.Context, recipeID, authorID uint, recipeName string) error {
	ctx, span := tracer.Start(ctx, "job.enqueue.recipe_published")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("recipe.id", int64(recipeID)),
		attribute.Int64("author.id", int64(authorID)),
	)

	return c.enqueue(ctx, tasks.TypeRecipePublished, tasks.RecipePublishedPayload{
		RecipeID:     recipeID,
		AuthorID:     authorID,
		RecipeName:   recipeName,
		TraceContext: traceCarrier(ctx),
	})
}

func (c *Client) EnqueueImageDelete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "job.enqueue.image_delete")
	defer span.End()

	span.SetAttributes(attribute.String("image.key", key))

	return c.enqueue(ctx, tasks.TypeImageDelete, tasks.ImageDeletePayload{
		Key:          key,
		TraceContext: traceCarrier(ctx),
	}, asynq.MaxRetry(5), asynq.Queue(MaintenanceQueue))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, payloadBytes), opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	c.jobsEnqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("job.type", taskType)))

	logging.Info(ctx).
		Str("job_id", info.ID).
		Str("job_type", taskType).
		Str("queue", info.Queue).
		Msg("job enqueued")

	return nil
}

func traceCarrier(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}
