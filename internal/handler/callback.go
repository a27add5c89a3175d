package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/listing-relay/internal/repository"
	"github.com/listing-relay/internal/service"
)

// CallbackHandler receives task results from the scheduler. The route is
// guarded by API-token auth; the body identifies the listing by the
// callback id the batch envelope carried out.
type CallbackHandler struct {
	Svc *service.ListingService
}

func NewCallbackHandler(svc *service.ListingService) *CallbackHandler {
	return &CallbackHandler{Svc: svc}
}

// callbackReq tolerates both field names the scheduler has used for the
// listing id. The id arrives as the string we handed out in callback_id.
type callbackReq struct {
	CallbackID      string  `json:"callback_id"`
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	ResponseCode    *int    `json:"response_code"`
	ResponseContent *string `json:"response_content"`
}

// Receive applies a callback to the identified listing. Status overwrites
// unconditionally; response code and content only when present.
func (h *CallbackHandler) Receive(c echo.Context) error {
	var req callbackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	rawID := strings.TrimSpace(req.CallbackID)
	if rawID == "" {
		rawID = strings.TrimSpace(req.ID)
	}
	req.Status = strings.TrimSpace(req.Status)
	if rawID == "" || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id and status required"})
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.Svc.ApplyCallback(ctx, id, req.Status, req.ResponseCode, req.ResponseContent)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "apply callback failed"})
	}
	return c.JSON(http.StatusOK, toListingResp(l))
}
