package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
	"github.com/questboard/questboard-api/internal/pkg/database"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type walletTable struct {
	name      string
	keyColumn string
	balance   string
}

var walletTables = map[Tier]walletTable{
	TierPlatform: {name: "platform_wallet", keyColumn: "singleton", balance: "coins"},
	TierOrg:      {name: "org_wallets", keyColumn: "org_id", balance: "balance"},
	TierUser:     {name: "user_wallets", keyColumn: "user_id", balance: "balance"},
}

// key is the primary key value for owner. The platform row is keyed by TRUE.
func (t walletTable) key(o Owner) interface{} {
	if o.Tier == TierPlatform {
		return true
	}
	return o.ID
}

func (t walletTable) ensureSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, 0) ON CONFLICT (%s) DO NOTHING`,
		t.name, t.keyColumn, t.balance, t.keyColumn)
}

func (t walletTable) selectSQL(lock bool) string {
	q := fmt.Sprintf(`SELECT %s AS balance, updated_at FROM %s WHERE %s = $1`, t.balance, t.name, t.keyColumn)
	if lock {
		q += ` FOR UPDATE`
	}
	return q
}

func (t walletTable) updateSQL() string {
	return fmt.Sprintf(`UPDATE %s SET %s = $1, updated_at = now() WHERE %s = $2`,
		t.name, t.balance, t.keyColumn)
}

// Repository is the wallet registry and the append-only ledger store.
// Entries are never updated or deleted.
type Repository struct {
	db *sqlx.DB
	tx *database.Transactor
}

func NewRepository(tx *database.Transactor) *Repository {
	return &Repository{db: tx.DB(), tx: tx}
}

// GetBalance returns the owner's wallet, creating an empty one if needed.
// User and org wallets reference the identity store, so an owner missing from
// it fails with NOT_FOUND instead.
func (r *Repository) GetBalance(ctx context.Context, owner Owner) (*Wallet, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	t := walletTables[owner.Tier]

	if _, err := r.db.ExecContext(ctx, t.ensureSQL(), t.key(owner)); err != nil {
		return nil, mapWalletError(owner, err)
	}

	w := Wallet{Tier: owner.Tier, OwnerID: owner.ID}
	if err := r.db.GetContext(ctx, &w, t.selectSQL(false), t.key(owner)); err != nil {
		return nil, apperror.Internal(fmt.Errorf("read %s wallet: %w", owner, err), "wallet read failed")
	}
	return &w, nil
}

// LockTx get-or-creates the owner's wallet and locks its row until tx ends.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, owner Owner) (*Wallet, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	t := walletTables[owner.Tier]

	if _, err := tx.ExecContext(ctx, t.ensureSQL(), t.key(owner)); err != nil {
		return nil, mapWalletError(owner, err)
	}

	w := Wallet{Tier: owner.Tier, OwnerID: owner.ID}
	if err := tx.GetContext(ctx, &w, t.selectSQL(true), t.key(owner)); err != nil {
		if database.IsRetryable(err) {
			return nil, err
		}
		return nil, apperror.Internal(fmt.Errorf("lock %s wallet: %w", owner, err), "wallet lock failed")
	}
	return &w, nil
}

// AppendTx applies the entry to its wallet and records it inside tx.
// A debit that would leave the wallet negative fails with INSUFFICIENT_FUNDS.
func (r *Repository) AppendTx(ctx context.Context, tx *sqlx.Tx, in EntryInput) (*Entry, error) {
	if in.Amount <= 0 {
		return nil, apperror.InvalidInput("amount must be greater than zero, got %d", in.Amount)
	}
	if in.Direction != Debit && in.Direction != Credit {
		return nil, apperror.InvalidInput("unknown direction %q", in.Direction)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperror.InvalidInput("reason is required")
	}

	w, err := r.LockTx(ctx, tx, in.Owner)
	if err != nil {
		return nil, err
	}

	next := w.Balance + in.Direction.Signed(in.Amount)
	if next < 0 {
		return nil, insufficientFunds(in, w.Balance)
	}

	t := walletTables[in.Owner.Tier]
	if _, err := tx.ExecContext(ctx, t.updateSQL(), next, t.key(in.Owner)); err != nil {
		if database.IsRetryable(err) {
			return nil, err
		}
		if database.IsCheckViolation(err, t.name+"_non_negative") {
			return nil, insufficientFunds(in, w.Balance)
		}
		return nil, apperror.Internal(fmt.Errorf("update %s balance: %w", in.Owner, err), "wallet update failed")
	}

	metadata := in.Metadata
	if metadata == nil {
		metadata = Metadata{}
	}

	entry := &Entry{
		Tier:          in.Owner.Tier,
		OwnerID:       in.Owner.ID,
		Direction:     in.Direction,
		Amount:        in.Amount,
		Reason:        strings.TrimSpace(in.Reason),
		QuestID:       in.QuestID,
		ActorID:       in.ActorID,
		CorrelationID: in.CorrelationID,
		Metadata:      metadata,
		BalanceAfter:  next,
	}

	query := `
		INSERT INTO ledger_entries (tier, owner_id, direction, amount, reason, quest_id, actor_id, correlation_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err = tx.QueryRowxContext(ctx, query,
		entry.Tier, entry.OwnerID, entry.Direction, entry.Amount, entry.Reason,
		entry.QuestID, entry.ActorID, entry.CorrelationID, entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if database.IsRetryable(err) {
			return nil, err
		}
		return nil, apperror.Internal(fmt.Errorf("insert ledger entry: %w", err), "ledger write failed")
	}

	return entry, nil
}

// Append runs AppendTx in its own transaction.
func (r *Repository) Append(ctx context.Context, in EntryInput) (*Entry, error) {
	var entry *Entry
	err := r.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		entry, err = r.AppendTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns the owner's entries newest first.
func (r *Repository) ListEntries(ctx context.Context, owner Owner, limit, offset int) ([]*Entry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	limit, offset = NormalizePage(limit, offset)

	query := `
		SELECT id, tier, owner_id, direction, amount, reason, quest_id, actor_id, correlation_id, metadata, created_at
		FROM ledger_entries
		WHERE tier = $1 AND owner_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	entries := []*Entry{}
	if err := r.db.SelectContext(ctx, &entries, query, owner.Tier, owner.ID, limit, offset); err != nil {
		return nil, apperror.Internal(fmt.Errorf("list %s entries: %w", owner, err), "ledger read failed")
	}
	return entries, nil
}

// Reconcile recomputes the signed ledger sum for owner from one snapshot.
// A wallet that was never created reconciles as zero.
func (r *Repository) Reconcile(ctx context.Context, owner Owner) (*Reconciliation, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	t := walletTables[owner.Tier]

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, apperror.Internal(err, "begin reconcile")
	}
	defer tx.Rollback()

	rec := &Reconciliation{Tier: owner.Tier, OwnerID: owner.ID}

	var w Wallet
	err = tx.GetContext(ctx, &w, t.selectSQL(false), t.key(owner))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, apperror.Internal(fmt.Errorf("read %s wallet: %w", owner, err), "reconcile failed")
	default:
		rec.Balance = w.Balance
	}

	var sums struct {
		Sum   int64 `db:"ledger_sum"`
		Count int64 `db:"entries"`
	}
	err = tx.GetContext(ctx, &sums, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'CREDIT' THEN amount ELSE -amount END), 0) AS ledger_sum,
		       COUNT(*) AS entries
		FROM ledger_entries
		WHERE tier = $1 AND owner_id = $2
	`, owner.Tier, owner.ID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("sum %s entries: %w", owner, err), "reconcile failed")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperror.Internal(err, "commit reconcile")
	}

	rec.LedgerSum = sums.Sum
	rec.Entries = sums.Count
	rec.Consistent = rec.Balance == rec.LedgerSum
	return rec, nil
}

// NormalizePage applies the default and maximum page size.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func insufficientFunds(in EntryInput, balance int64) error {
	if in.QuestID.Valid {
		return apperror.InsufficientFunds("%s has %d coins but quest requires %d", in.Owner, balance, in.Amount)
	}
	return apperror.InsufficientFunds("%s has %d coins but %d were requested", in.Owner, balance, in.Amount)
}

func mapWalletError(owner Owner, err error) error {
	if database.IsRetryable(err) {
		return err
	}
	if database.IsForeignKeyViolation(err) {
		return apperror.NotFound("%s does not exist", owner)
	}
	return apperror.Internal(fmt.Errorf("ensure %s wallet: %w", owner, err), "wallet create failed")
}
