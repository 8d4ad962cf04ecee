package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"foodgram-api/config"
	"foodgram-api/internal/database"
	"foodgram-api/internal/handlers"
	"foodgram-api/internal/jobs"
	"foodgram-api/internal/logging"
	"foodgram-api/internal/middleware"
	"foodgram-api/internal/pagination"
	"foodgram-api/internal/services"
	"foodgram-api/internal/storage"
	"foodgram-api/internal/telemetry"
	"foodgram-api/internal/validation"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Options{
		Development: cfg.IsDevelopment(),
		Level:       cfg.LogLevel,
		Service:     cfg.OTelServiceName,
	})

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: cfg.OTelServiceName,
		Endpoint:    cfg.OTelEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logging.Logger().Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	httpMetrics, err := middleware.NewHTTPMetrics(otel.Meter(cfg.OTelServiceName))
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize metrics")
	}

	db, err := database.Connect(database.Options{
		URL:             cfg.DatabaseURL,
		LogSQL:          cfg.IsDevelopment(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to run database migrations")
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to initialize image storage")
	}

	jobClient, err := jobs.NewClient(cfg.RedisAddr())
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to create job client")
	}
	defer jobClient.Close()

	paginator := pagination.New(cfg.PageSize, cfg.MaxPageSize)

	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.JWTExpiresIn, cfg.AdminEmails...)
	userService := services.NewUserService(db)
	recipeService := services.NewRecipeService(db, store, jobClient)
	membershipService := services.NewMembershipService(db, recipeService)
	shoppingListService := services.NewShoppingListService(db)
	subscriptionService := services.NewSubscriptionService(db, recipeService)
	tagService := services.NewTagService(db)
	ingredientService := services.NewIngredientService(db)

	if _, err := authService.PromoteAdmins(ctx); err != nil {
		logging.Logger().Fatal().Err(err).Msg("failed to promote administrators")
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = middleware.JSONSerializer{}
	e.Validator = validation.EchoValidator{}
	e.HTTPErrorHandler = middleware.ErrorHandler

	mediaPrefix := strings.TrimSuffix(cfg.MediaURL, "/")
	e.Pre(echomiddleware.AddTrailingSlashWithConfig(echomiddleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, mediaPrefix+"/")
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	probeRoutes := func(c echo.Context) bool {
		return c.Path() == "/api/health/" || c.Path() == "/metrics/"
	}
	e.Use(otelecho.Middleware(cfg.OTelServiceName, otelecho.WithSkipper(probeRoutes)))
	e.Use(httpMetrics.Middleware(probeRoutes))

	if cfg.IsDevelopment() {
		e.Use(echomiddleware.Logger())
	}

	if cfg.StorageBackend == "local" {
		e.Static(mediaPrefix, cfg.MediaRoot)
	}

	health := handlers.NewHealthHandler(map[string]handlers.Probe{
		"database": handlers.DatabaseProbe(db),
		"redis":    handlers.RedisProbe(cfg.RedisAddr()),
	})

	handlers.RegisterRoutes(e, handlers.Handlers{
		Health:      health,
		Auth:        handlers.NewAuthHandler(authService),
		Users:       handlers.NewUserHandler(userService, subscriptionService, paginator, cfg.RecipesLimit),
		Tags:        handlers.NewTagHandler(tagService),
		Ingredients: handlers.NewIngredientHandler(ingredientService),
		Recipes:     handlers.NewRecipeHandler(recipeService, membershipService, shoppingListService, paginator),
	}, cfg.JWTSecret, userService)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logging.Logger().Info().Str("port", cfg.Port).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Logger().Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Logger().Error().Err(err).Msg("failed to shutdown server")
	}
}
