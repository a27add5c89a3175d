package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/listing-relay/internal/utils"
)

// User mirrors the 'users' table.
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// Create inserts a user and returns its ID.  Username and email are unique;
// a duplicate of either maps to the matching sentinel error.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?,?,?)",
		username, email, hash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			if strings.Contains(err.Error(), "email") {
				return 0, ErrEmailExists
			}
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,email,password_hash,is_active,created_at,updated_at FROM users WHERE username=? LIMIT 1",
		username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,email,password_hash,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UserUpdate carries the optional fields of a profile update.  Nil pointers
// leave the corresponding column untouched.
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
	IsActive *bool
}

// Update applies a partial profile update and returns the fresh row.
// Supplying no fields is not an error; the current row is returned.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate, cost int) (User, error) {
	set := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if upd.Username != nil {
		set = append(set, "username=?")
		args = append(args, strings.TrimSpace(*upd.Username))
	}
	if upd.Email != nil {
		set = append(set, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password, cost)
		if err != nil {
			return User{}, err
		}
		set = append(set, "password_hash=?")
		args = append(args, hash)
	}
	if upd.IsActive != nil {
		set = append(set, "is_active=?")
		args = append(args, *upd.IsActive)
	}
	if len(set) > 0 {
		args = append(args, id)
		q := "UPDATE users SET " + strings.Join(set, ",") + ", updated_at=NOW() WHERE id=?"
		if _, err := r.DB.ExecContext(ctx, q, args...); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				if strings.Contains(err.Error(), "email") {
					return User{}, ErrEmailExists
				}
				return User{}, ErrUsernameExists
			}
			return User{}, err
		}
	}
	return r.GetByID(ctx, id)
}
