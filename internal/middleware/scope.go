package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireScope enforces that the API token on the request carries at least
// one of the named scopes. It assumes APITokenAuth ran earlier in the chain;
// without a token the request is rejected outright.
func RequireScope(scopes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok := CurrentAPIToken(c)
			if tok == nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			for _, s := range scopes {
				if tok.HasScope(s) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}
