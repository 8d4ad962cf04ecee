package jobs

import (
	"context"
	"time"

	"foodgram-api/internal/jobs/tasks"
	"foodgram-api/internal/logging"
	"foodgram-api/internal/storage"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// Server consumes subscriber notifications and image cleanup tasks.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(redisAddr string, concurrency int, db *gorm.DB, store storage.ImageStore) *Server {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				DefaultQueue:     6,
				MaintenanceQueue: 1,
			},
			ShutdownTimeout: 15 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(reportFailure),
		},
	)

	return &Server{
		server: server,
		mux:    NewMux(db, store),
	}
}

// NewMux routes each task type to its handler.
func NewMux(db *gorm.DB, store storage.ImageStore) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeRecipePublished, tasks.NewRecipePublishedHandler(db))
	mux.Handle(tasks.TypeImageDelete, tasks.NewImageDeleteHandler(store))
	return mux
}

func reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	queue, _ := asynq.GetQueueName(ctx)

	event := logging.Warn(ctx)
	if retried >= maxRetry {
		event = logging.Error(ctx)
	}
	event.
		Err(err).
		Str("task_type", task.Type()).
		Str("queue", queue).
		Int("retried", retried).
		Int("max_retry", maxRetry).
		Msg("task failed")
}

func (s *Server) Start() error {
	logging.Logger().Info().Msg("starting recipe worker")
	return s.server.Start(s.mux)
}

func (s *Server) Shutdown() {
	logging.Logger().Info().Msg("shutting down recipe worker")
	s.server.Shutdown()
}
