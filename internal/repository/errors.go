// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrConfigNotFound means a request config either does not
// exist or is owned by a different user; the two cases are deliberately
// indistinguishable so that ownership cannot be probed through 404s.
package repository

import "errors"

// ErrConfigNotFound is returned when a request config does not exist or
// does not belong to the requesting user. Handlers should translate
// this into an HTTP 404 response.
var ErrConfigNotFound = errors.New("request config not found")

// ErrListingNotFound is returned when a product listing cannot be found.
// Handlers should translate this into an HTTP 404 response.
var ErrListingNotFound = errors.New("product listing not found")

// ErrTokenNotFound is returned when an API token lookup or verification
// fails. Handlers should translate this into 404 (management endpoints)
// or 401 (authentication).
var ErrTokenNotFound = errors.New("api token not found")

// ErrInvalidMethod is returned when a request config carries an HTTP
// method outside the allowed set. Handlers should translate this into
// an HTTP 400 response.
var ErrInvalidMethod = errors.New("invalid http method")
