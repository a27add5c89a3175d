package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/listing-relay/internal/excel"
	"github.com/listing-relay/internal/middleware"
	"github.com/listing-relay/internal/repository"
	"github.com/listing-relay/internal/service"
)

// ListingHandler serves the product-listing endpoints. Writes go through
// the lifecycle service so every creation carries its inline dispatch
// attempt; reads hit the repository directly.
type ListingHandler struct {
	Svc      *service.ListingService
	Listings *repository.ListingRepo
}

func NewListingHandler(svc *service.ListingService, listings *repository.ListingRepo) *ListingHandler {
	return &ListingHandler{Svc: svc, Listings: listings}
}

type listingReq struct {
	RequestConfigID uint64  `json:"request_config_id"`
	ProductID       *string `json:"product_id"`
	ProductLink     *string `json:"product_link"`
	Title           *string `json:"title"`
	Stock           *int64  `json:"stock"`
	ListingCode     *string `json:"listing_code"`
}

type listingResp struct {
	ID              uint64    `json:"id"`
	RequestConfigID uint64    `json:"request_config_id"`
	Status          string    `json:"status"`
	ProductID       *string   `json:"product_id,omitempty"`
	ProductLink     *string   `json:"product_link,omitempty"`
	Title           *string   `json:"title,omitempty"`
	Stock           *int64    `json:"stock,omitempty"`
	ListingCode     *string   `json:"listing_code,omitempty"`
	ResponseCode    *int      `json:"response_code,omitempty"`
	ResponseContent *string   `json:"response_content,omitempty"`
	SendTime        time.Time `json:"send_time"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toListingResp(l *repository.ProductListing) listingResp {
	return listingResp{
		ID:              l.ID,
		RequestConfigID: l.RequestConfigID,
		Status:          l.Status,
		ProductID:       l.ProductID,
		ProductLink:     l.ProductLink,
		Title:           l.Title,
		Stock:           l.Stock,
		ListingCode:     l.ListingCode,
		ResponseCode:    l.ResponseCode,
		ResponseContent: l.ResponseContent,
		SendTime:        l.SendTime,
		UpdatedAt:       l.UpdatedAt,
	}
}

// Create persists one listing and attempts its dispatch inline. The
// response reflects the post-dispatch status: "dispatched" when the
// scheduler accepted the task, the initial "pending" when it did not.
func (h *ListingHandler) Create(c echo.Context) error {
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RequestConfigID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request_config_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	l, err := h.Svc.CreateAndDispatch(ctx, middleware.CurrentUserID(c), req.RequestConfigID, service.ListingInput{
		ProductID:   req.ProductID,
		ProductLink: req.ProductLink,
		Title:       req.Title,
		Stock:       req.Stock,
		ListingCode: req.ListingCode,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "request config not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
	}
	return c.JSON(http.StatusCreated, toListingResp(l))
}

// List returns the caller's listings, optionally filtered by ?status=.
func (h *ListingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	listings, err := h.Listings.ListByOwner(ctx, middleware.CurrentUserID(c), c.QueryParam("status"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list listings failed"})
	}
	out := make([]listingResp, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResp(l))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one listing by id.
func (h *ListingHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l, err := h.Listings.GetByIDAndOwner(ctx, id, middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load listing failed"})
	}
	return c.JSON(http.StatusOK, toListingResp(l))
}

// Upload ingests a spreadsheet of listings and dispatches them as one
// batch. Validation is front-loaded: a wrong file type, a bad header row or
// an unknown config aborts before any row is persisted.
func (h *ListingHandler) Upload(c echo.Context) error {
	configID, err := strconv.ParseUint(c.FormValue("request_config_id"), 10, 64)
	if err != nil || configID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "request_config_id required"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".xlsx", ".xls":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file must be .xlsx or .xls"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read upload failed"})
	}
	defer f.Close()

	inputs, err := excel.ParseListings(f)
	if err != nil {
		var hdrErr *excel.HeaderError
		if errors.As(err, &hdrErr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": hdrErr.Error()})
		}
		if errors.Is(err, excel.ErrEmptySheet) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "workbook has no data rows"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot parse workbook"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	rows, err := h.Svc.ImportAndDispatch(ctx, middleware.CurrentUserID(c), configID, inputs)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "request config not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}

	out := make([]listingResp, 0, len(rows))
	for _, l := range rows {
		out = append(out, toListingResp(l))
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "imported " + strconv.Itoa(len(rows)) + " listings",
		"count":    len(rows),
		"listings": out,
	})
}
