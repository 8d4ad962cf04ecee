package handlers

import (
	"foodgram-api/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health      *HealthHandler
	Auth        *AuthHandler
	Users       *UserHandler
	Tags        *TagHandler
	Ingredients *IngredientHandler
	Recipes     *RecipeHandler
}

// RegisterRoutes mounts the API under /api. Paths end with a slash; the
// server adds a missing one before routing.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, accounts middleware.AccountLookup) {
	requireAuth := middleware.JWTAuth(jwtSecret, accounts)
	optionalAuth := middleware.OptionalJWTAuth(jwtSecret, accounts)
	requireAdmin := middleware.RequireAdmin()

	e.GET("/metrics/", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	if h.Health != nil {
		api.GET("/health/", h.Health.Check)
	}

	api.POST("/auth/token/login/", h.Auth.Login)
	api.POST("/auth/token/logout/", h.Auth.Logout, requireAuth)

	api.POST("/users/", h.Auth.Register)
	api.GET("/users/", h.Users.List, optionalAuth)
	api.GET("/users/me/", h.Users.Me, requireAuth)
	api.DELETE("/users/me/", h.Auth.DeleteAccount, requireAuth)
	api.POST("/users/set_password/", h.Auth.SetPassword, requireAuth)
	api.GET("/users/subscriptions/", h.Users.Subscriptions, requireAuth)
	api.GET("/users/:id/", h.Users.Get, optionalAuth)
	api.POST("/users/:id/subscribe/", h.Users.Subscribe, requireAuth)
	api.DELETE("/users/:id/subscribe/", h.Users.Unsubscribe, requireAuth)

	api.GET("/tags/", h.Tags.List)
	api.GET("/tags/:id/", h.Tags.Get)
	api.POST("/tags/", h.Tags.Create, requireAuth, requireAdmin)

	api.GET("/ingredients/", h.Ingredients.List)
	api.GET("/ingredients/:id/", h.Ingredients.Get)
	api.POST("/ingredients/", h.Ingredients.Create, requireAuth, requireAdmin)

	recipes := api.Group("/recipes")
	recipes.GET("/", h.Recipes.List, optionalAuth)
	recipes.GET("/download_shopping_cart/", h.Recipes.DownloadShoppingCart, requireAuth)
	recipes.GET("/:id/", h.Recipes.Get, optionalAuth)
	recipes.POST("/", h.Recipes.Create, requireAuth)
	recipes.PATCH("/:id/", h.Recipes.Update, requireAuth)
	recipes.DELETE("/:id/", h.Recipes.Delete, requireAuth)
	recipes.POST("/:id/favorite/", h.Recipes.AddFavorite, requireAuth)
	recipes.DELETE("/:id/favorite/", h.Recipes.RemoveFavorite, requireAuth)
	recipes.POST("/:id/shopping_cart/", h.Recipes.AddToShoppingCart, requireAuth)
	recipes.DELETE("/:id/shopping_cart/", h.Recipes.RemoveFromShoppingCart, requireAuth)
}
