// This file defines the APIToken model and repository. API tokens
// authenticate machine callers (the scheduler callback in particular).
// Only a SHA-256 hash of the secret is stored; the plaintext is returned
// exactly once at creation. Verification narrows candidates by the stored
// non-secret prefix before comparing hashes, so lookup cost stays flat as
// the table grows.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/listing-relay/internal/utils"
)

// APIToken mirrors the 'api_tokens' table.
type APIToken struct {
	ID         uint64
	UserID     uint64
	Name       string
	TokenHash  string
	Prefix     string
	Suffix     string
	Scopes     string // JSON array of scope strings
	ExpiresAt  *time.Time
	IsActive   bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// ScopeList decodes the stored scopes column. A malformed or empty column
// decodes to no scopes.
func (t *APIToken) ScopeList() []string {
	var scopes []string
	_ = json.Unmarshal([]byte(t.Scopes), &scopes)
	return scopes
}

// HasScope reports whether the token carries the named scope.
func (t *APIToken) HasScope(scope string) bool {
	for _, s := range t.ScopeList() {
		if s == scope {
			return true
		}
	}
	return false
}

// VerifyPlain reports whether plain matches this token and the token is
// still usable. An inactive or expired token never verifies, even when the
// hash matches.
func (t *APIToken) VerifyPlain(plain string, now time.Time) bool {
	if !t.IsActive {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return utils.HashAPIToken(plain) == t.TokenHash
}

type APITokenRepo struct{ DB *sql.DB }

func NewAPITokenRepo(db *sql.DB) *APITokenRepo { return &APITokenRepo{DB: db} }

// Create inserts a token row and populates its ID and creation time.
func (r *APITokenRepo) Create(ctx context.Context, t *APIToken) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO api_tokens (user_id, name, token_hash, prefix, suffix, scopes, expires_at, is_active) VALUES (?,?,?,?,?,?,?,1)",
		t.UserID, t.Name, t.TokenHash, t.Prefix, t.Suffix, t.Scopes, t.ExpiresAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.IsActive = true
	return r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM api_tokens WHERE id=?", t.ID).Scan(&t.CreatedAt)
}

const apiTokenColumns = "id, user_id, name, token_hash, prefix, suffix, scopes, expires_at, is_active, last_used_at, created_at"

func scanAPIToken(row interface{ Scan(...any) error }) (*APIToken, error) {
	var t APIToken
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.Prefix,
		&t.Suffix, &t.Scopes, &t.ExpiresAt, &t.IsActive, &t.LastUsedAt,
		&t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOwner returns the user's tokens, newest first.
func (r *APITokenRepo) ListByOwner(ctx context.Context, userID uint64) ([]*APIToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens WHERE user_id=? ORDER BY id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*APIToken
	for rows.Next() {
		t, err := scanAPIToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Revoke deactivates a token owned by userID.
func (r *APITokenRepo) Revoke(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE api_tokens SET is_active=0 WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// FindByPlaintext verifies a presented secret. Candidates are narrowed by
// the token's display prefix, then each survivor is checked by hash, active
// flag and expiry. On success the token's last_used_at is refreshed.
func (r *APITokenRepo) FindByPlaintext(ctx context.Context, plain string) (*APIToken, error) {
	prefix := utils.APITokenPrefix(plain)
	if prefix == "" {
		return nil, ErrTokenNotFound
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+apiTokenColumns+" FROM api_tokens WHERE prefix=? AND is_active=1", prefix)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var match *APIToken
	for rows.Next() {
		t, err := scanAPIToken(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if t.VerifyPlain(plain, now) {
			match = t
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrTokenNotFound
	}
	_, _ = r.DB.ExecContext(ctx,
		"UPDATE api_tokens SET last_used_at=NOW() WHERE id=?", match.ID)
	return match, nil
}
