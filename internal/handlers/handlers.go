package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"foodgram-api/internal/middleware"
	"foodgram-api/internal/services"
	"foodgram-api/internal/validation"

	"github.com/labstack/echo/v4"
)

// serviceError maps domain errors onto HTTP errors. Anything unknown is
// returned as is and rendered as a 500 by the error handler.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrRecipeNotFound),
		errors.Is(err, services.ErrTagNotFound),
		errors.Is(err, services.ErrIngredientNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found.").SetInternal(err)
	case errors.Is(err, services.ErrAccountGone):
		return echo.NewHTTPError(http.StatusUnauthorized, "User not found.").SetInternal(err)
	case errors.Is(err, services.ErrNotSubscribed):
		return echo.NewHTTPError(http.StatusNotFound, "You are not subscribed to this author.").SetInternal(err)
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You do not have permission to perform this action.").SetInternal(err)
	case errors.Is(err, services.ErrAlreadyAdded):
		return echo.NewHTTPError(http.StatusBadRequest, "Recipe already added!").SetInternal(err)
	case errors.Is(err, services.ErrAlreadyRemoved):
		return echo.NewHTTPError(http.StatusBadRequest, "Recipe already removed!").SetInternal(err)
	case errors.Is(err, services.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, "Shopping cart is empty.").SetInternal(err)
	case errors.Is(err, services.ErrSelfSubscription):
		return echo.NewHTTPError(http.StatusBadRequest, "You cannot subscribe to yourself.").SetInternal(err)
	case errors.Is(err, services.ErrAlreadySubscribed):
		return echo.NewHTTPError(http.StatusBadRequest, "You are already subscribed to this author.").SetInternal(err)
	case errors.Is(err, services.ErrUserExists):
		return echo.NewHTTPError(http.StatusBadRequest, "A user with that email or username already exists.").SetInternal(err)
	case errors.Is(err, services.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to log in with provided credentials.").SetInternal(err)
	case errors.Is(err, services.ErrWrongPassword):
		return validation.NewFieldError("current_password", "Invalid password.")
	case errors.Is(err, services.ErrTagExists),
		errors.Is(err, services.ErrIngredientExists):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	default:
		return err
	}
}

func bind(c echo.Context, input any) error {
	if err := c.Bind(input); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	return c.Validate(input)
}

func currentUser(c echo.Context) (uint, error) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication credentials were not provided")
	}
	return userID, nil
}

func actor(c echo.Context) (services.Actor, error) {
	userID, err := currentUser(c)
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{UserID: userID, IsAdmin: middleware.IsAdmin(c)}, nil
}

// viewer is the optional identity used for per-user annotations.
func viewer(c echo.Context) *uint {
	if id, ok := middleware.GetUserID(c); ok {
		return &id
	}
	return nil
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return uint(id), nil
}

// absoluteURL rebuilds the request URL for pagination links.
func absoluteURL(c echo.Context) *url.URL {
	req := c.Request()
	return &url.URL{
		Scheme:   c.Scheme(),
		Host:     req.Host,
		Path:     req.URL.Path,
		RawQuery: req.URL.RawQuery,
	}
}
