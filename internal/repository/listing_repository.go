// This file defines the ProductListing model and repository. A listing is
// one externally-dispatchable task: it references the request config that
// describes how to build the outbound request, and carries the status the
// dispatch pipeline and the scheduler callback advance over time.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Listing status markers. Pending is the initial state; Dispatched is set
// only after the scheduler accepted the task. Terminal states arrive from
// the scheduler callback and are free-form strings.
const (
	StatusPending    = "pending"
	StatusDispatched = "dispatched"
)

// ProductListing mirrors the 'product_listings' table. Optional columns are
// pointers so that absent values stay NULL instead of becoming zero values.
type ProductListing struct {
	ID              uint64
	UserID          uint64
	RequestConfigID uint64
	APITokenID      *uint64
	Status          string
	ProductID       *string
	ProductLink     *string
	Title           *string
	Stock           *int64
	ListingCode     *string
	ResponseCode    *int
	ResponseContent *string
	SendTime        time.Time
	UpdatedAt       time.Time
}

type ListingRepo struct{ DB *sql.DB }

func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{DB: db} }

const listingColumns = "id, user_id, request_config_id, api_token_id, status, product_id, product_link, title, stock, listing_code, response_code, response_content, send_time, updated_at"

func scanListing(row interface{ Scan(...any) error }) (*ProductListing, error) {
	var l ProductListing
	err := row.Scan(&l.ID, &l.UserID, &l.RequestConfigID, &l.APITokenID,
		&l.Status, &l.ProductID, &l.ProductLink, &l.Title, &l.Stock,
		&l.ListingCode, &l.ResponseCode, &l.ResponseContent,
		&l.SendTime, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a listing and populates its ID and timestamps. An empty
// status defaults to pending.
func (r *ListingRepo) Create(ctx context.Context, l *ProductListing) error {
	if l.Status == "" {
		l.Status = StatusPending
	}
	if l.SendTime.IsZero() {
		l.SendTime = time.Now().UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO product_listings (user_id, request_config_id, api_token_id, status, product_id, product_link, title, stock, listing_code, send_time) VALUES (?,?,?,?,?,?,?,?,?,?)",
		l.UserID, l.RequestConfigID, l.APITokenID, l.Status, l.ProductID,
		l.ProductLink, l.Title, l.Stock, l.ListingCode, l.SendTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// CreateBatch inserts all listings inside one transaction. Any failure
// rolls the whole batch back; there are no partial commits.
func (r *ListingRepo) CreateBatch(ctx context.Context, listings []*ProductListing) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO product_listings (user_id, request_config_id, api_token_id, status, product_id, product_link, title, stock, listing_code, send_time) VALUES (?,?,?,?,?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range listings {
		if l.Status == "" {
			l.Status = StatusPending
		}
		if l.SendTime.IsZero() {
			l.SendTime = now
		}
		res, err := stmt.ExecContext(ctx,
			l.UserID, l.RequestConfigID, l.APITokenID, l.Status, l.ProductID,
			l.ProductLink, l.Title, l.Stock, l.ListingCode, l.SendTime)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		l.ID = uint64(id)
	}
	return tx.Commit()
}

// GetByID fetches a listing by id regardless of owner. The callback path
// identifies listings by id alone.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (*ProductListing, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM product_listings WHERE id=? LIMIT 1", id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	return l, err
}

// GetByIDAndOwner fetches a listing only if it belongs to the given user.
func (r *ListingRepo) GetByIDAndOwner(ctx context.Context, id, userID uint64) (*ProductListing, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM product_listings WHERE id=? AND user_id=? LIMIT 1",
		id, userID)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	return l, err
}

// ListByOwner returns the user's listings, newest send time first, with an
// optional equality filter on status.
func (r *ListingRepo) ListByOwner(ctx context.Context, userID uint64, status string) ([]*ProductListing, error) {
	q := "SELECT " + listingColumns + " FROM product_listings WHERE user_id=?"
	args := []any{userID}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY send_time DESC, id DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ProductListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateStatus overwrites a listing's status and refreshes updated_at.
func (r *ListingRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE product_listings SET status=?, updated_at=NOW() WHERE id=?",
		status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrListingNotFound
	}
	return nil
}

// UpdateStatusAll overwrites the status of every listed id in one statement.
// Used by the batch path so all rows flip together.
func (r *ListingRepo) UpdateStatusAll(ctx context.Context, ids []uint64, status string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, status)
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE product_listings SET status=?, updated_at=NOW() WHERE id IN ("+placeholders+")",
		args...)
	return err
}

// ApplyCallback overwrites the status and, only when supplied, the response
// code and content. Omitted fields keep their stored values.
func (r *ListingRepo) ApplyCallback(ctx context.Context, id uint64, status string, respCode *int, respContent *string) error {
	set := []string{"status=?", "updated_at=NOW()"}
	args := []any{status}
	if respCode != nil {
		set = append(set, "response_code=?")
		args = append(args, *respCode)
	}
	if respContent != nil {
		set = append(set, "response_content=?")
		args = append(args, *respContent)
	}
	args = append(args, id)
	// No rows-affected check: re-delivering an identical status is valid and
	// affects zero rows on MySQL. Existence is checked by the caller.
	_, err := r.DB.ExecContext(ctx,
		"UPDATE product_listings SET "+strings.Join(set, ",")+" WHERE id=?",
		args...)
	return err
}
