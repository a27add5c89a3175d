// This file defines the RequestConfig model and repository. A request config
// is a reusable template describing how to build and pace a dispatched
// request: target URL, HTTP method, body/header templates and pacing
// parameters. Configs belong to exactly one user and every lookup used by
// the dispatch pipeline is ownership-filtered.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// RequestConfig mirrors the 'request_configs' table. Body and Header hold
// raw template text (serialized JSON or placeholder-bearing strings); the
// template package decides how to interpret them at dispatch time.
type RequestConfig struct {
	ID                     uint64
	UserID                 uint64
	Name                   string
	RequestURL             string
	Method                 string
	Body                   string
	Header                 string
	RequestIntervalMinutes int
	RandomMin              int
	RandomMax              int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Pacing defaults applied when a config is created without explicit values.
const (
	DefaultIntervalMinutes = 8
	DefaultRandomMin       = 2
	DefaultRandomMax       = 15
)

// ValidMethods enumerates the HTTP methods a request config may carry.
var ValidMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// ErrInvalidPacing is returned when random_min exceeds random_max.
var ErrInvalidPacing = errors.New("random_min must not exceed random_max")

type ConfigRepo struct{ DB *sql.DB }

func NewConfigRepo(db *sql.DB) *ConfigRepo { return &ConfigRepo{DB: db} }

// Create inserts a config and populates its ID and timestamps. The method
// must already be upper-cased by the caller; invalid methods and inverted
// pacing bounds are rejected before touching the database.
func (r *ConfigRepo) Create(ctx context.Context, c *RequestConfig) error {
	if !ValidMethods[c.Method] {
		return ErrInvalidMethod
	}
	if c.RandomMin > c.RandomMax {
		return ErrInvalidPacing
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO request_configs (user_id, name, request_url, method, body, header, request_interval_minutes, random_min, random_max) VALUES (?,?,?,?,?,?,?,?,?)",
		c.UserID, c.Name, c.RequestURL, c.Method, c.Body, c.Header,
		c.RequestIntervalMinutes, c.RandomMin, c.RandomMax)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM request_configs WHERE id=?",
		c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

const configColumns = "id, user_id, name, request_url, method, body, header, request_interval_minutes, random_min, random_max, created_at, updated_at"

func scanConfig(row interface{ Scan(...any) error }) (*RequestConfig, error) {
	var c RequestConfig
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.RequestURL, &c.Method,
		&c.Body, &c.Header, &c.RequestIntervalMinutes, &c.RandomMin,
		&c.RandomMax, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByIDAndOwner fetches a config only if it belongs to the given user.
// Missing and foreign-owned rows are both reported as ErrConfigNotFound.
func (r *ConfigRepo) GetByIDAndOwner(ctx context.Context, id, userID uint64) (*RequestConfig, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+configColumns+" FROM request_configs WHERE id=? AND user_id=? LIMIT 1",
		id, userID)
	c, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	return c, err
}

// GetByID fetches a config regardless of owner. The dispatch pipeline uses
// this when resolving a listing's stored config reference.
func (r *ConfigRepo) GetByID(ctx context.Context, id uint64) (*RequestConfig, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+configColumns+" FROM request_configs WHERE id=? LIMIT 1", id)
	c, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	return c, err
}

// ListByOwner returns all configs for a user, newest first.
func (r *ConfigRepo) ListByOwner(ctx context.Context, userID uint64) ([]*RequestConfig, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+configColumns+" FROM request_configs WHERE user_id=? ORDER BY id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*RequestConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConfigUpdate carries the optional fields of a partial config update.
// Nil pointers leave the corresponding column untouched.
type ConfigUpdate struct {
	Name            *string
	RequestURL      *string
	Method          *string
	Body            *string
	Header          *string
	IntervalMinutes *int
	RandomMin       *int
	RandomMax       *int
}

// Update applies a partial update to a config owned by userID and returns
// the fresh row. Method validity and pacing bounds are re-checked against
// the merged result so a partial update cannot invert them.
func (r *ConfigRepo) Update(ctx context.Context, id, userID uint64, upd ConfigUpdate) (*RequestConfig, error) {
	cur, err := r.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	set := make([]string, 0, 8)
	args := make([]any, 0, 9)
	if upd.Name != nil {
		set = append(set, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.RequestURL != nil {
		set = append(set, "request_url=?")
		args = append(args, *upd.RequestURL)
	}
	if upd.Method != nil {
		m := strings.ToUpper(strings.TrimSpace(*upd.Method))
		if !ValidMethods[m] {
			return nil, ErrInvalidMethod
		}
		set = append(set, "method=?")
		args = append(args, m)
	}
	if upd.Body != nil {
		set = append(set, "body=?")
		args = append(args, *upd.Body)
	}
	if upd.Header != nil {
		set = append(set, "header=?")
		args = append(args, *upd.Header)
	}
	min, max := cur.RandomMin, cur.RandomMax
	if upd.RandomMin != nil {
		min = *upd.RandomMin
	}
	if upd.RandomMax != nil {
		max = *upd.RandomMax
	}
	if min > max {
		return nil, ErrInvalidPacing
	}
	if upd.IntervalMinutes != nil {
		set = append(set, "request_interval_minutes=?")
		args = append(args, *upd.IntervalMinutes)
	}
	if upd.RandomMin != nil {
		set = append(set, "random_min=?")
		args = append(args, *upd.RandomMin)
	}
	if upd.RandomMax != nil {
		set = append(set, "random_max=?")
		args = append(args, *upd.RandomMax)
	}
	if len(set) > 0 {
		args = append(args, id, userID)
		q := "UPDATE request_configs SET " + strings.Join(set, ",") + ", updated_at=NOW() WHERE id=? AND user_id=?"
		if _, err := r.DB.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
	}
	return r.GetByIDAndOwner(ctx, id, userID)
}

// Delete removes a config owned by userID. Listing creation validates the
// config reference up front, so live rows never point at a deleted config.
func (r *ConfigRepo) Delete(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM request_configs WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConfigNotFound
	}
	return nil
}
