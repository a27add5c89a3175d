package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/listing-relay/internal/middleware"
	"github.com/listing-relay/internal/repository"
	"github.com/listing-relay/internal/utils"
)

// APITokenHandler manages machine tokens. The plaintext secret appears in
// exactly one response, at creation; afterwards only prefix and suffix are
// shown so a user can tell their tokens apart.
type APITokenHandler struct {
	Tokens *repository.APITokenRepo
}

func NewAPITokenHandler(r *repository.APITokenRepo) *APITokenHandler {
	return &APITokenHandler{Tokens: r}
}

type createTokenReq struct {
	Name          string   `json:"name"`
	Scopes        []string `json:"scopes"`
	ExpiresInDays *int     `json:"expires_in_days"`
}

type tokenResp struct {
	ID         uint64     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Suffix     string     `json:"suffix"`
	Scopes     []string   `json:"scopes"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toTokenResp(t *repository.APIToken) tokenResp {
	return tokenResp{
		ID:         t.ID,
		Name:       t.Name,
		Prefix:     t.Prefix,
		Suffix:     t.Suffix,
		Scopes:     t.ScopeList(),
		ExpiresAt:  t.ExpiresAt,
		IsActive:   t.IsActive,
		LastUsedAt: t.LastUsedAt,
		CreatedAt:  t.CreatedAt,
	}
}

// Create mints a token and returns the plaintext once.
func (h *APITokenHandler) Create(c echo.Context) error {
	var req createTokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if len(req.Scopes) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one scope required"})
	}

	gen, err := utils.NewAPIToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generate token failed"})
	}
	scopes, err := json.Marshal(req.Scopes)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scopes"})
	}

	tok := &repository.APIToken{
		UserID:    middleware.CurrentUserID(c),
		Name:      req.Name,
		TokenHash: gen.Hash,
		Prefix:    gen.Prefix,
		Suffix:    gen.Suffix,
		Scopes:    string(scopes),
	}
	if req.ExpiresInDays != nil && *req.ExpiresInDays > 0 {
		exp := time.Now().UTC().Add(time.Duration(*req.ExpiresInDays) * 24 * time.Hour)
		tok.ExpiresAt = &exp
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.Create(ctx, tok); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create token failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":     gen.Plain, // shown this once, never again
		"api_token": toTokenResp(tok),
	})
}

// List returns the caller's tokens without secrets.
func (h *APITokenHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tokens, err := h.Tokens.ListByOwner(ctx, middleware.CurrentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tokens failed"})
	}
	out := make([]tokenResp, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toTokenResp(t))
	}
	return c.JSON(http.StatusOK, out)
}

// Revoke deactivates a token. Revocation is permanent; a revoked token
// never verifies again.
func (h *APITokenHandler) Revoke(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, id, middleware.CurrentUserID(c)); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "token not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke token failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
