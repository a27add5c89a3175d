// Package dispatch turns stored request configs and product listings into
// concrete request definitions and forwards them to the external scheduler
// service. Dispatch outcomes are reported as booleans, never as errors: a
// failed handoff leaves the listing where it was and the caller decides what
// to do about it.
package dispatch

import (
	"errors"
	"log"
	"strconv"

	"github.com/listing-relay/internal/repository"
	"github.com/listing-relay/internal/template"
)

// ErrNoConfig is returned when a listing has no resolvable request config.
// Unlike a template failure this is fatal for the listing: without a config
// there is no way to know how to dispatch it.
var ErrNoConfig = errors.New("listing has no request config")

// Descriptor is a dispatchable request definition rendered from a config
// and a listing. Header and Body hold rendered JSON trees; either may be
// nil when its template failed to render or was never set.
type Descriptor struct {
	Method string
	URL    string
	Header any
	Body   any
}

// listingParams builds the substitution bag for a listing. Every key is
// always present; optional listing fields contribute empty/zero values so
// templates never see an unresolved placeholder for a known name.
func listingParams(l *repository.ProductListing) template.Params {
	var stock any = ""
	if l.Stock != nil {
		stock = *l.Stock
	}
	return template.Params{
		"title":        strVal(l.Title),
		"product_link": strVal(l.ProductLink),
		"product_id":   strVal(l.ProductID),
		"stock":        stock,
		"listing_code": strVal(l.ListingCode),
		"id":           l.ID,
		"user_id":      l.UserID,
	}
}

// BuildDescriptor renders a config's header and body templates against a
// listing. The two templates render independently and a failure on either
// is non-fatal: the field is dropped with a warning and the descriptor is
// still returned. Only a missing config aborts the build.
func BuildDescriptor(cfg *repository.RequestConfig, l *repository.ProductListing) (Descriptor, error) {
	if cfg == nil {
		return Descriptor{}, ErrNoConfig
	}
	params := listingParams(l)
	d := Descriptor{Method: cfg.Method, URL: cfg.RequestURL}

	if cfg.Header != "" {
		hdr, err := template.Render("header", template.FromString(cfg.Header), params)
		if err != nil {
			log.Printf("dispatch: listing %d: %v; continuing without header", l.ID, err)
		} else {
			d.Header = hdr
		}
	}
	if cfg.Body != "" {
		body, err := template.Render("body", template.FromString(cfg.Body), params)
		if err != nil {
			log.Printf("dispatch: listing %d: %v; continuing without body", l.ID, err)
		} else {
			d.Body = body
		}
	}
	return d, nil
}

// TaskName picks a human-readable name for a scheduler task: title first,
// then listing code, then product id, falling back to the row id.
func TaskName(l *repository.ProductListing) string {
	if v := strVal(l.Title); v != "" {
		return v
	}
	if v := strVal(l.ListingCode); v != "" {
		return v
	}
	if v := strVal(l.ProductID); v != "" {
		return v
	}
	return "listing-" + strconv.FormatUint(l.ID, 10)
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
