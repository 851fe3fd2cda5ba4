package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
)

func newMockTransactor(t *testing.T, attempts int) (*Transactor, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewTransactor(sqlx.NewDb(raw, "postgres"), attempts, 0), mock
}

func TestWithTxCommits(t *testing.T) {
	tr, mock := newMockTransactor(t, 3)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE platform_wallet`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tr.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE platform_wallet SET coins = coins + 1`)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	tr, mock := newMockTransactor(t, 3)
	boom := apperror.InvalidState("quest is approved")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tr.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRetriesConflicts(t *testing.T) {
	tr, mock := newMockTransactor(t, 3)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE quests`).WillReturnError(&pq.Error{Code: "40P01"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE quests`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calls := 0
	err := tr.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		calls++
		_, err := tx.ExecContext(ctx, `UPDATE quests SET status = 'approved'`)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxGivesUpAfterMaxAttempts(t *testing.T) {
	tr, mock := newMockTransactor(t, 2)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE quests`).WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
	}

	err := tr.WithTx(context.Background(), func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE quests SET status = 'approved'`)
		return err
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindUnknown, apperror.KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(apperror.Internal(&pq.Error{Code: "40P01"}, "lock wallet")))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
