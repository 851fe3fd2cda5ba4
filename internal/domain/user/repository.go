package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines user data access interface
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Resolve looks a user up by id when ref parses as a UUID, by email otherwise.
	Resolve(ctx context.Context, ref string) (*User, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const selectUser = `SELECT id, email, display_name, role, is_banned, created_at, updated_at FROM users`

func (r *repository) Create(ctx context.Context, user *User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role, is_banned)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, strings.ToLower(strings.TrimSpace(user.Email)), user.DisplayName, user.Role, user.IsBanned)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("user repository create: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the user does not exist.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, selectUser+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns nil, nil when the user does not exist.
func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, selectUser+` WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) Resolve(ctx context.Context, ref string) (*User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return r.GetByID(ctx, id)
	}
	return r.GetByEmail(ctx, ref)
}
