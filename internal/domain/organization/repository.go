package organization

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines organization data access
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates organization repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const selectOrganization = `SELECT id, name, is_active, created_at, updated_at FROM organizations WHERE id = $1`

func (r *repository) Create(ctx context.Context, org *Organization) error {
	query := `
		INSERT INTO organizations (id, name, is_active)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query, org.ID, org.Name, org.IsActive).
		Scan(&org.CreatedAt, &org.UpdatedAt)
}

// GetByID returns nil, nil when the organization does not exist.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	var org Organization
	err := r.db.GetContext(ctx, &org, selectOrganization, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}
