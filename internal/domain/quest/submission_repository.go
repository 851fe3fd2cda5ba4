package quest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const submissionColumns = `id, quest_id, user_id, status, answer, score, reviewed_by, reviewed_at, created_at, updated_at`

type SubmissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// LockForUserTx get-or-creates the (quest, user) submission and locks it.
// A new row starts as pending with an empty answer.
func (r *SubmissionRepository) LockForUserTx(ctx context.Context, tx *sqlx.Tx, questID, userID uuid.UUID) (*Submission, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO quest_submissions (id, quest_id, user_id, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (quest_id, user_id) DO NOTHING
	`, uuid.New(), questID, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure submission: %w", err)
	}

	var s Submission
	err = tx.GetContext(ctx, &s, `
		SELECT `+submissionColumns+` FROM quest_submissions
		WHERE quest_id = $1 AND user_id = $2
		FOR UPDATE
	`, questID, userID)
	if err != nil {
		return nil, fmt.Errorf("lock submission: %w", err)
	}
	return &s, nil
}

// LockByIDTx locks a submission by id. Returns nil, nil when it does not exist.
func (r *SubmissionRepository) LockByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Submission, error) {
	var s Submission
	err := tx.GetContext(ctx, &s, `SELECT `+submissionColumns+` FROM quest_submissions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, s *Submission) error {
	query := `
		UPDATE quest_submissions SET
			status = $2, answer = $3, score = $4, reviewed_by = $5, reviewed_at = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		s.ID, s.Status, s.Answer, s.Score, s.ReviewedBy, s.ReviewedAt,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update submission %s: %w", s.ID, err)
	}
	return nil
}

// CountForUser returns how many submission rows exist for (quest, user).
func (r *SubmissionRepository) CountForUser(ctx context.Context, questID, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM quest_submissions WHERE quest_id = $1 AND user_id = $2`, questID, userID)
	return n, err
}
