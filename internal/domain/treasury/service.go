// Package treasury runs the compound money movements: quest approval and
// rejection, allocations from the platform wallet and platform top-ups.
// Every operation is one transaction; locks are taken in the order
// quest row, platform wallet, target wallet.
package treasury

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/questboard/questboard-api/internal/domain/authz"
	"github.com/questboard/questboard-api/internal/domain/ledger"
	"github.com/questboard/questboard-api/internal/domain/notification"
	"github.com/questboard/questboard-api/internal/domain/organization"
	"github.com/questboard/questboard-api/internal/domain/quest"
	"github.com/questboard/questboard-api/internal/domain/user"
	"github.com/questboard/questboard-api/internal/pkg/apperror"
	"github.com/questboard/questboard-api/internal/pkg/database"
	"github.com/questboard/questboard-api/internal/pkg/metrics"
)

type ApproveResult struct {
	QuestID          uuid.UUID `json:"quest_id"`
	CoinsDeducted    int64     `json:"coins_deducted"`
	RemainingBalance int64     `json:"remaining_balance"`
}

type RejectResult struct {
	QuestID    uuid.UUID `json:"quest_id"`
	RejectedAt time.Time `json:"rejected_at"`
}

type AllocationResult struct {
	RemainingBalance int64     `json:"remaining_balance"`
	TargetBalance    int64     `json:"target_balance"`
	CorrelationID    uuid.UUID `json:"correlation_id"`
}

type TopUpResult struct {
	NewBalance int64 `json:"new_balance"`
}

type Service struct {
	tx        *database.Transactor
	quests    *quest.Repository
	ledger    *ledger.Repository
	users     user.Repository
	orgs      organization.Repository
	guard     *authz.Guard
	publisher notification.Publisher
	now       func() time.Time
}

func NewService(
	tx *database.Transactor,
	quests *quest.Repository,
	ledgerRepo *ledger.Repository,
	users user.Repository,
	orgs organization.Repository,
	guard *authz.Guard,
	publisher notification.Publisher,
) *Service {
	if publisher == nil {
		publisher = notification.NopPublisher{}
	}
	return &Service{
		tx:        tx,
		quests:    quests,
		ledger:    ledgerRepo,
		users:     users,
		orgs:      orgs,
		guard:     guard,
		publisher: publisher,
		now:       time.Now,
	}
}

// ApproveQuest funds a submitted quest from the platform wallet and approves it.
func (s *Service) ApproveQuest(ctx context.Context, questID, actor uuid.UUID) (*ApproveResult, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.Approvers...); err != nil {
		return nil, err
	}

	var (
		result   *ApproveResult
		approved *quest.Quest
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		q, err := s.quests.GetTx(ctx, tx, questID, quest.LockUpdate)
		if err != nil {
			return err
		}
		if q == nil {
			return apperror.NotFound("quest %s not found", questID)
		}
		if !quest.CanTransition(q.Status, quest.StatusApproved) {
			return apperror.InvalidState("quest %s is %s, only submitted quests can be approved", q.ID, q.Status)
		}

		entry, err := s.ledger.AppendTx(ctx, tx, ledger.EntryInput{
			Owner:     ledger.PlatformOwner(),
			Direction: ledger.Debit,
			Amount:    q.RewardCoins,
			Reason:    fmt.Sprintf("quest approval: %s", q.Title),
			ActorID:   actor,
			QuestID:   uuid.NullUUID{UUID: q.ID, Valid: true},
		})
		if err != nil {
			return err
		}

		if err := q.Transition(quest.StatusApproved); err != nil {
			return err
		}
		q.ApprovedBy = uuid.NullUUID{UUID: actor, Valid: true}
		q.ApprovedAt = sql.NullTime{Time: s.now(), Valid: true}
		if err := s.quests.UpdateTx(ctx, tx, q); err != nil {
			return err
		}

		approved = q
		result = &ApproveResult{QuestID: q.ID, CoinsDeducted: entry.Amount, RemainingBalance: entry.BalanceAfter}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntry(string(ledger.TierPlatform), string(ledger.Debit), result.CoinsDeducted)
	log.Info().
		Str("tier", string(ledger.TierPlatform)).
		Str("quest_id", questID.String()).
		Int64("amount", result.CoinsDeducted).
		Int64("remaining", result.RemainingBalance).
		Str("actor_id", actor.String()).
		Msg("quest approved")

	notification.PublishAsync(s.publisher, notification.Event{
		Type:        notification.TypeQuestApproved,
		QuestID:     approved.ID,
		RecipientID: approved.CreatorID,
		ActorID:     actor,
		Title:       approved.Title,
		Coins:       approved.RewardCoins,
		OccurredAt:  approved.ApprovedAt.Time,
	})
	return result, nil
}

// RejectQuest sends a submitted quest back to its creator with a reason.
func (s *Service) RejectQuest(ctx context.Context, questID, actor uuid.UUID, reason string) (*RejectResult, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.Approvers...); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.InvalidInput("rejection reason is required")
	}

	var rejected *quest.Quest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		q, err := s.quests.GetTx(ctx, tx, questID, quest.LockUpdate)
		if err != nil {
			return err
		}
		if q == nil {
			return apperror.NotFound("quest %s not found", questID)
		}
		if err := q.Transition(quest.StatusRejected); err != nil {
			return err
		}
		q.RejectedBy = uuid.NullUUID{UUID: actor, Valid: true}
		q.RejectedAt = sql.NullTime{Time: s.now(), Valid: true}
		q.RejectionReason = sql.NullString{String: reason, Valid: true}
		if err := s.quests.UpdateTx(ctx, tx, q); err != nil {
			return err
		}
		rejected = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("quest_id", questID.String()).Str("actor_id", actor.String()).Msg("quest rejected")

	notification.PublishAsync(s.publisher, notification.Event{
		Type:        notification.TypeQuestRejected,
		QuestID:     rejected.ID,
		RecipientID: rejected.CreatorID,
		ActorID:     actor,
		Title:       rejected.Title,
		Reason:      reason,
		OccurredAt:  rejected.RejectedAt.Time,
	})
	return &RejectResult{QuestID: rejected.ID, RejectedAt: rejected.RejectedAt.Time}, nil
}

// AllocateOrgCoins moves coins from the platform wallet to an organization.
func (s *Service) AllocateOrgCoins(ctx context.Context, orgID uuid.UUID, amount int64, reason string, actor uuid.UUID) (*AllocationResult, error) {
	if err := s.checkMovement(ctx, actor, amount, reason); err != nil {
		return nil, err
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, apperror.Internal(err, "load organization")
	}
	if org == nil || !org.IsActive {
		return nil, apperror.NotFound("organization %s not found", orgID)
	}

	return s.allocate(ctx, ledger.OrgOwner(org.ID), amount, reason, actor)
}

// AllocateUserCoins moves coins from the platform wallet to a user found by id or email.
func (s *Service) AllocateUserCoins(ctx context.Context, userEmailOrID string, amount int64, reason string, actor uuid.UUID) (*AllocationResult, error) {
	if err := s.checkMovement(ctx, actor, amount, reason); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userEmailOrID) == "" {
		return nil, apperror.InvalidInput("user is required")
	}

	u, err := s.users.Resolve(ctx, userEmailOrID)
	if err != nil {
		return nil, apperror.Internal(err, "load user")
	}
	if u == nil {
		return nil, apperror.NotFound("user %s not found", userEmailOrID)
	}

	return s.allocate(ctx, ledger.UserOwner(u.ID), amount, reason, actor)
}

func (s *Service) checkMovement(ctx context.Context, actor uuid.UUID, amount int64, reason string) error {
	if _, err := s.guard.RequireRole(ctx, actor, authz.PlatformAdmins...); err != nil {
		return err
	}
	if amount <= 0 {
		return apperror.InvalidInput("amount must be greater than zero")
	}
	if strings.TrimSpace(reason) == "" {
		return apperror.InvalidInput("reason is required")
	}
	return nil
}

// allocate writes the platform debit and the target credit under one correlation id.
func (s *Service) allocate(ctx context.Context, target ledger.Owner, amount int64, reason string, actor uuid.UUID) (*AllocationResult, error) {
	var result *AllocationResult
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		correlation := uuid.NullUUID{UUID: uuid.New(), Valid: true}
		meta := ledger.Metadata{"target_tier": string(target.Tier), "target_id": target.ID.String()}

		debit, err := s.ledger.AppendTx(ctx, tx, ledger.EntryInput{
			Owner:         ledger.PlatformOwner(),
			Direction:     ledger.Debit,
			Amount:        amount,
			Reason:        reason,
			ActorID:       actor,
			CorrelationID: correlation,
			Metadata:      meta,
		})
		if err != nil {
			return err
		}

		credit, err := s.ledger.AppendTx(ctx, tx, ledger.EntryInput{
			Owner:         target,
			Direction:     ledger.Credit,
			Amount:        amount,
			Reason:        reason,
			ActorID:       actor,
			CorrelationID: correlation,
		})
		if err != nil {
			return err
		}

		result = &AllocationResult{
			RemainingBalance: debit.BalanceAfter,
			TargetBalance:    credit.BalanceAfter,
			CorrelationID:    correlation.UUID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntry(string(ledger.TierPlatform), string(ledger.Debit), amount)
	metrics.RecordEntry(string(target.Tier), string(ledger.Credit), amount)
	log.Info().
		Str("tier", string(target.Tier)).
		Str("owner_id", target.ID.String()).
		Int64("amount", amount).
		Str("actor_id", actor.String()).
		Str("correlation_id", result.CorrelationID.String()).
		Msg("coins allocated from platform")
	return result, nil
}

// TopUpPlatformBalance credits the platform wallet.
func (s *Service) TopUpPlatformBalance(ctx context.Context, amount int64, reason string, actor uuid.UUID) (*TopUpResult, error) {
	if err := s.checkMovement(ctx, actor, amount, reason); err != nil {
		return nil, err
	}

	entry, err := s.ledger.Append(ctx, ledger.EntryInput{
		Owner:     ledger.PlatformOwner(),
		Direction: ledger.Credit,
		Amount:    amount,
		Reason:    reason,
		ActorID:   actor,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntry(string(ledger.TierPlatform), string(ledger.Credit), amount)
	log.Info().
		Str("tier", string(ledger.TierPlatform)).
		Int64("amount", amount).
		Int64("balance", entry.BalanceAfter).
		Str("actor_id", actor.String()).
		Msg("platform topped up")
	return &TopUpResult{NewBalance: entry.BalanceAfter}, nil
}

// PlatformWallet returns the platform balance.
func (s *Service) PlatformWallet(ctx context.Context, actor uuid.UUID) (*ledger.Wallet, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.PlatformAdmins...); err != nil {
		return nil, err
	}
	return s.ledger.GetBalance(ctx, ledger.PlatformOwner())
}

// OwnerLedger lists any owner's entries for audit.
func (s *Service) OwnerLedger(ctx context.Context, actor uuid.UUID, owner ledger.Owner, limit, offset int) ([]*ledger.Entry, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.PlatformAdmins...); err != nil {
		return nil, err
	}
	return s.ledger.ListEntries(ctx, owner, limit, offset)
}

// Reconcile checks an owner's balance against its ledger.
func (s *Service) Reconcile(ctx context.Context, actor uuid.UUID, owner ledger.Owner) (*ledger.Reconciliation, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.PlatformAdmins...); err != nil {
		return nil, err
	}
	rec, err := s.ledger.Reconcile(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !rec.Consistent {
		log.Error().
			Str("tier", string(owner.Tier)).
			Str("owner_id", owner.ID.String()).
			Int64("balance", rec.Balance).
			Int64("ledger_sum", rec.LedgerSum).
			Msg("wallet balance does not match ledger")
	}
	return rec, nil
}
