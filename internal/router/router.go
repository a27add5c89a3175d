package router // route registration for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/listing-relay/internal/handler"
	"github.com/listing-relay/internal/middleware"
	"github.com/listing-relay/internal/repository"
)

// Handlers bundles everything the router needs to wire the full surface.
type Handlers struct {
	Auth     *handler.AuthHandler
	Configs  *handler.ConfigHandler
	Listings *handler.ListingHandler
	Tokens   *handler.APITokenHandler
	Callback *handler.CallbackHandler
}

// Register wires every route. Three auth zones: open (health, register,
// login, refresh, logout), JWT-protected dashboard endpoints, and the
// API-token-protected scheduler callback.
func Register(e *echo.Echo, h Handlers, jwtSecret string, tokenRepo *repository.APITokenRepo, extra ...echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	auth := e.Group("/api/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Dashboard endpoints. The extra middleware (rate limiter, response
	// cache) runs after JWT auth so keys can include the user identity.
	api := e.Group("/api", middleware.JWTAuth(jwtSecret))
	for _, m := range extra {
		api.Use(m)
	}

	api.GET("/auth/me", h.Auth.Me)
	api.PUT("/auth/me", h.Auth.UpdateMe)

	api.GET("/tokens", h.Tokens.List)
	api.POST("/tokens", h.Tokens.Create)
	api.DELETE("/tokens/:id", h.Tokens.Revoke)

	api.GET("/request-configs", h.Configs.List)
	api.POST("/request-configs", h.Configs.Create)
	api.GET("/request-configs/:id", h.Configs.Get)
	api.PUT("/request-configs/:id", h.Configs.Update)
	api.DELETE("/request-configs/:id", h.Configs.Delete)

	api.GET("/product-listings", h.Listings.List)
	api.POST("/product-listings", h.Listings.Create)
	api.GET("/product-listings/:id", h.Listings.Get)
	api.POST("/product-listings/upload", h.Listings.Upload)

	// The scheduler reports results here with a bearer API token carrying
	// the callback scope.
	cb := e.Group("/api/scheduler",
		middleware.APITokenAuth(tokenRepo),
		middleware.RequireScope("callback"))
	cb.POST("/callback", h.Callback.Receive)
}
