package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/listing-relay/internal/repository"
)

const apiTokenContextKey = "api_token"

// APITokenAuth authenticates machine callers (the scheduler callback) by a
// bearer API token. The verified token row is stored in context so scope
// checks and handlers can inspect it. Every failure mode reads as 401; the
// caller learns nothing about whether the token exists.
func APITokenAuth(tokens *repository.APITokenRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing api token"})
			}
			plain := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			tok, err := tokens.FindByPlaintext(ctx, plain)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid api token"})
			}
			c.Set(apiTokenContextKey, tok)
			return next(c)
		}
	}
}

// CurrentAPIToken returns the verified token from context, or nil when the
// request did not pass APITokenAuth.
func CurrentAPIToken(c echo.Context) *repository.APIToken {
	if t, ok := c.Get(apiTokenContextKey).(*repository.APIToken); ok {
		return t
	}
	return nil
}
