package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
	"github.com/questboard/questboard-api/internal/pkg/database"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewRepository(database.NewTransactor(sqlx.NewDb(raw, "postgres"), 1, 0)), mock
}

func pqError(code string) error {
	return &pq.Error{Code: pq.ErrorCode(code)}
}

func TestAppendCreditsUserWallet(t *testing.T) {
	repo, mock := newMockRepository(t)
	userID := uuid.New()
	actorID := uuid.New()
	questID := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_wallets`).WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT balance AS balance, updated_at FROM user_wallets WHERE user_id = \$1 FOR UPDATE`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "updated_at"}).AddRow(int64(100), now))
	mock.ExpectExec(`UPDATE user_wallets SET balance`).WithArgs(int64(150), userID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO ledger_entries`).
		WithArgs("user", userID, "CREDIT", int64(50), "quest reward", questID, actorID, uuid.NullUUID{}, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))
	mock.ExpectCommit()

	entry, err := repo.Append(context.Background(), EntryInput{
		Owner:     UserOwner(userID),
		Direction: Credit,
		Amount:    50,
		Reason:    "quest reward",
		ActorID:   actorID,
		QuestID:   questID,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, int64(150), entry.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRejectsOverdraft(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO platform_wallet`).WithArgs(true).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT coins AS balance, updated_at FROM platform_wallet WHERE singleton = \$1 FOR UPDATE`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "updated_at"}).AddRow(int64(100), time.Now()))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), EntryInput{
		Owner:     PlatformOwner(),
		Direction: Debit,
		Amount:    300,
		Reason:    "quest approval",
		ActorID:   uuid.New(),
		QuestID:   uuid.NullUUID{UUID: uuid.New(), Valid: true},
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientFunds, apperror.KindOf(err))
	assert.Equal(t, "platform has 100 coins but quest requires 300", apperror.MessageOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendValidatesInput(t *testing.T) {
	tests := []struct {
		name string
		in   EntryInput
	}{
		{name: "zero amount", in: EntryInput{Owner: PlatformOwner(), Direction: Credit, Amount: 0, Reason: "top up"}},
		{name: "negative amount", in: EntryInput{Owner: PlatformOwner(), Direction: Credit, Amount: -5, Reason: "top up"}},
		{name: "blank reason", in: EntryInput{Owner: PlatformOwner(), Direction: Credit, Amount: 5, Reason: "  "}},
		{name: "bad direction", in: EntryInput{Owner: PlatformOwner(), Direction: "SIDEWAYS", Amount: 5, Reason: "x"}},
		{name: "user without id", in: EntryInput{Owner: Owner{Tier: TierUser}, Direction: Credit, Amount: 5, Reason: "x"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectBegin()
			mock.ExpectRollback()

			_, err := repo.Append(context.Background(), tc.in)

			assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAppendUnknownOrganization(t *testing.T) {
	repo, mock := newMockRepository(t)
	orgID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO org_wallets`).WithArgs(orgID).WillReturnError(pqError("23503"))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), EntryInput{
		Owner: OrgOwner(orgID), Direction: Credit, Amount: 10, Reason: "allocation", ActorID: uuid.New(),
	})

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntriesCapsPage(t *testing.T) {
	repo, mock := newMockRepository(t)
	userID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "tier", "owner_id", "direction", "amount", "reason", "quest_id", "actor_id", "correlation_id", "metadata", "created_at"}).
		AddRow(int64(2), "user", userID.String(), "DEBIT", int64(5), "spend", nil, uuid.NewString(), nil, []byte(`{}`), time.Now()).
		AddRow(int64(1), "user", userID.String(), "CREDIT", int64(20), "reward", uuid.NewString(), uuid.NewString(), nil, []byte(`{"source":"mcq"}`), time.Now())
	mock.ExpectQuery(`FROM ledger_entries WHERE tier = \$1 AND owner_id = \$2 ORDER BY created_at DESC, id DESC`).
		WithArgs("user", userID, MaxPageSize, 0).
		WillReturnRows(rows)

	entries, err := repo.ListEntries(context.Background(), UserOwner(userID), 500, -3)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Debit, entries[0].Direction)
	assert.False(t, entries[0].QuestID.Valid)
	assert.True(t, entries[1].QuestID.Valid)
	assert.Equal(t, "mcq", entries[1].Metadata["source"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile(t *testing.T) {
	repo, mock := newMockRepository(t)
	orgID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT balance AS balance, updated_at FROM org_wallets WHERE org_id = \$1`).
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"balance", "updated_at"}).AddRow(int64(40), time.Now()))
	mock.ExpectQuery(`FROM ledger_entries WHERE tier = \$1 AND owner_id = \$2`).
		WithArgs("org", orgID).
		WillReturnRows(sqlmock.NewRows([]string{"ledger_sum", "entries"}).AddRow(int64(40), int64(3)))
	mock.ExpectCommit()

	rec, err := repo.Reconcile(context.Background(), OrgOwner(orgID))

	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(3), rec.Entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizePage(t *testing.T) {
	limit, offset := NormalizePage(0, 0)
	assert.Equal(t, DefaultPageSize, limit)
	assert.Equal(t, 0, offset)

	limit, offset = NormalizePage(50, 10)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 10, offset)
}

func TestParseOwner(t *testing.T) {
	owner, err := ParseOwner("platform", "ignored")
	require.NoError(t, err)
	assert.Equal(t, PlatformOwner(), owner)

	id := uuid.New()
	owner, err = ParseOwner("org", id.String())
	require.NoError(t, err)
	assert.Equal(t, OrgOwner(id), owner)

	_, err = ParseOwner("bank", id.String())
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	_, err = ParseOwner("user", "not-a-uuid")
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
}

func TestGetBalanceUnknownUser(t *testing.T) {
	repo, mock := newMockRepository(t)
	userID := uuid.New()

	mock.ExpectExec(`INSERT INTO user_wallets`).WithArgs(userID).WillReturnError(pqError("23503"))

	_, err := repo.GetBalance(context.Background(), UserOwner(userID))

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
