package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type JWTClaims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// AccountLookup reloads the account a token names. found is false once the
// account has been deleted.
type AccountLookup interface {
	LookupAccount(ctx context.Context, userID uint) (isAdmin, found bool, err error)
}

type contextKey string

const (
	UserIDKey  contextKey = "user_id"
	IsAdminKey contextKey = "is_admin"
)

// tokenFromHeader accepts both "Token <jwt>" and "Bearer <jwt>".
func tokenFromHeader(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return parts[1], true
	}
	return "", false
}

func parseToken(tokenString, secret string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// JWTAuth requires a valid token. With a non-nil accounts the admin flag comes
// from the stored account, and tokens of deleted accounts are rejected.
func JWTAuth(secret string, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication credentials were not provided")
			}

			tokenString, ok := tokenFromHeader(authHeader)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
			}

			claims, err := parseToken(tokenString, secret)
			if err != nil {
				return err
			}

			found, err := refresh(c, claims, accounts)
			if err != nil {
				return err
			}
			if !found {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not found.")
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

// OptionalJWTAuth identifies the user when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalJWTAuth(secret string, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := tokenFromHeader(c.Request().Header.Get("Authorization"))
			if !ok {
				return next(c)
			}

			claims, err := parseToken(tokenString, secret)
			if err != nil {
				return next(c)
			}

			found, err := refresh(c, claims, accounts)
			if err != nil {
				return err
			}
			if found {
				setClaims(c, claims)
			}

			return next(c)
		}
	}
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAdmin(c) {
				return echo.NewHTTPError(http.StatusForbidden, "you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}

// refresh overwrites the token's admin flag with the stored one.
func refresh(c echo.Context, claims *JWTClaims, accounts AccountLookup) (bool, error) {
	if accounts == nil {
		return true, nil
	}

	isAdmin, found, err := accounts.LookupAccount(c.Request().Context(), claims.UserID)
	if err != nil {
		return false, err
	}
	claims.IsAdmin = isAdmin
	return found, nil
}

func setClaims(c echo.Context, claims *JWTClaims) {
	c.Set(string(UserIDKey), claims.UserID)
	c.Set(string(IsAdminKey), claims.IsAdmin)
}

func GetUserID(c echo.Context) (uint, bool) {
	userID, ok := c.Get(string(UserIDKey)).(uint)
	return userID, ok
}

func IsAdmin(c echo.Context) bool {
	isAdmin, _ := c.Get(string(IsAdminKey)).(bool)
	return isAdmin
}
