package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/listing-relay/internal/middleware"
	"github.com/listing-relay/internal/repository"
)

// ConfigHandler serves the request-config CRUD endpoints. Every operation
// is scoped to the authenticated owner; nobody can read or touch another
// user's configs, not even to learn they exist.
type ConfigHandler struct {
	Configs *repository.ConfigRepo
}

func NewConfigHandler(r *repository.ConfigRepo) *ConfigHandler {
	return &ConfigHandler{Configs: r}
}

type configReq struct {
	Name                   string `json:"name"`
	URL                    string `json:"url"`
	Method                 string `json:"method"`
	Body                   string `json:"body"`
	Header                 string `json:"header"`
	RequestIntervalMinutes *int   `json:"request_interval_minutes"`
	RandomMin              *int   `json:"random_min"`
	RandomMax              *int   `json:"random_max"`
}

type configResp struct {
	ID                     uint64    `json:"id"`
	Name                   string    `json:"name"`
	URL                    string    `json:"url"`
	Method                 string    `json:"method"`
	Body                   string    `json:"body,omitempty"`
	Header                 string    `json:"header,omitempty"`
	RequestIntervalMinutes int       `json:"request_interval_minutes"`
	RandomMin              int       `json:"random_min"`
	RandomMax              int       `json:"random_max"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toConfigResp(c *repository.RequestConfig) configResp {
	return configResp{
		ID:                     c.ID,
		Name:                   c.Name,
		URL:                    c.RequestURL,
		Method:                 c.Method,
		Body:                   c.Body,
		Header:                 c.Header,
		RequestIntervalMinutes: c.RequestIntervalMinutes,
		RandomMin:              c.RandomMin,
		RandomMax:              c.RandomMax,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

// Create registers a new config. Pacing fields default when omitted; an
// unknown HTTP method or inverted jitter bounds read as 400.
func (h *ConfigHandler) Create(c echo.Context) error {
	var req configReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" || req.URL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and url required"})
	}

	cfg := &repository.RequestConfig{
		UserID:                 middleware.CurrentUserID(c),
		Name:                   req.Name,
		RequestURL:             req.URL,
		Method:                 strings.ToUpper(strings.TrimSpace(req.Method)),
		Body:                   req.Body,
		Header:                 req.Header,
		RequestIntervalMinutes: repository.DefaultIntervalMinutes,
		RandomMin:              repository.DefaultRandomMin,
		RandomMax:              repository.DefaultRandomMax,
	}
	if req.RequestIntervalMinutes != nil {
		cfg.RequestIntervalMinutes = *req.RequestIntervalMinutes
	}
	if req.RandomMin != nil {
		cfg.RandomMin = *req.RandomMin
	}
	if req.RandomMax != nil {
		cfg.RandomMax = *req.RandomMax
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Configs.Create(ctx, cfg); err != nil {
		switch err {
		case repository.ErrInvalidMethod:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid http method"})
		case repository.ErrInvalidPacing:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "random_min must not exceed random_max"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create config failed"})
	}
	return c.JSON(http.StatusCreated, toConfigResp(cfg))
}

// List returns all configs of the caller, newest first.
func (h *ConfigHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	configs, err := h.Configs.ListByOwner(ctx, middleware.CurrentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list configs failed"})
	}
	out := make([]configResp, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, toConfigResp(cfg))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one config by id.
func (h *ConfigHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.Configs.GetByIDAndOwner(ctx, id, middleware.CurrentUserID(c))
	if err != nil {
		if err == repository.ErrConfigNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "config not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load config failed"})
	}
	return c.JSON(http.StatusOK, toConfigResp(cfg))
}

type configUpdateReq struct {
	Name                   *string `json:"name"`
	URL                    *string `json:"url"`
	Method                 *string `json:"method"`
	Body                   *string `json:"body"`
	Header                 *string `json:"header"`
	RequestIntervalMinutes *int    `json:"request_interval_minutes"`
	RandomMin              *int    `json:"random_min"`
	RandomMax              *int    `json:"random_max"`
}

// Update applies a partial update; only supplied fields change.
func (h *ConfigHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req configUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Method != nil {
		m := strings.ToUpper(strings.TrimSpace(*req.Method))
		req.Method = &m
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.Configs.Update(ctx, id, middleware.CurrentUserID(c), repository.ConfigUpdate{
		Name:            req.Name,
		RequestURL:      req.URL,
		Method:          req.Method,
		Body:            req.Body,
		Header:          req.Header,
		IntervalMinutes: req.RequestIntervalMinutes,
		RandomMin:       req.RandomMin,
		RandomMax:       req.RandomMax,
	})
	if err != nil {
		switch err {
		case repository.ErrConfigNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "config not found"})
		case repository.ErrInvalidMethod:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid http method"})
		case repository.ErrInvalidPacing:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "random_min must not exceed random_max"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update config failed"})
	}
	return c.JSON(http.StatusOK, toConfigResp(cfg))
}

// Delete removes a config owned by the caller.
func (h *ConfigHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Configs.Delete(ctx, id, middleware.CurrentUserID(c)); err != nil {
		if err == repository.ErrConfigNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "config not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete config failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// pathID parses the :id path segment.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
