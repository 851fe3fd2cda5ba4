package quest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LockMode selects the row lock taken by GetTx.
type LockMode int

const (
	LockNone LockMode = iota
	LockShare
	LockUpdate
)

func (m LockMode) clause() string {
	switch m {
	case LockShare:
		return " FOR SHARE"
	case LockUpdate:
		return " FOR UPDATE"
	}
	return ""
}

const questColumns = `id, title, description, reward_coins, status, creator_id,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	quest_type, config, active, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, q *Quest) error {
	query := `
		INSERT INTO quests (id, title, description, reward_coins, status, creator_id, quest_type, config, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		q.ID, q.Title, q.Description, q.RewardCoins, q.Status, q.CreatorID, q.Type, q.Config, q.Active,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}

// GetByID returns nil, nil when the quest does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quest, error) {
	var q Quest
	err := r.db.GetContext(ctx, &q, `SELECT `+questColumns+` FROM quests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// GetTx reads the quest inside tx with the given row lock.
// Returns nil, nil when the quest does not exist.
func (r *Repository) GetTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, lock LockMode) (*Quest, error) {
	var q Quest
	err := tx.GetContext(ctx, &q, `SELECT `+questColumns+` FROM quests WHERE id = $1`+lock.clause(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// UpdateTx writes every mutable column of q.
func (r *Repository) UpdateTx(ctx context.Context, tx *sqlx.Tx, q *Quest) error {
	query := `
		UPDATE quests SET
			title = $2, description = $3, reward_coins = $4, status = $5,
			approved_by = $6, approved_at = $7, rejected_by = $8, rejected_at = $9, rejection_reason = $10,
			quest_type = $11, config = $12, active = $13, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		q.ID, q.Title, q.Description, q.RewardCoins, q.Status,
		q.ApprovedBy, q.ApprovedAt, q.RejectedBy, q.RejectedAt, q.RejectionReason,
		q.Type, q.Config, q.Active,
	).Scan(&q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update quest %s: %w", q.ID, err)
	}
	return nil
}
