package quest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/questboard/questboard-api/internal/domain/authz"
	"github.com/questboard/questboard-api/internal/domain/ledger"
	"github.com/questboard/questboard-api/internal/pkg/apperror"
	"github.com/questboard/questboard-api/internal/pkg/database"
	"github.com/questboard/questboard-api/internal/pkg/metrics"
)

// Decision is a reviewer's verdict on a pending submission.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Service owns the quest state machine and the submission flow.
type Service struct {
	tx          *database.Transactor
	quests      *Repository
	submissions *SubmissionRepository
	ledger      *ledger.Repository
	guard       *authz.Guard
	now         func() time.Time
}

func NewService(
	tx *database.Transactor,
	quests *Repository,
	submissions *SubmissionRepository,
	ledgerRepo *ledger.Repository,
	guard *authz.Guard,
) *Service {
	return &Service{
		tx:          tx,
		quests:      quests,
		submissions: submissions,
		ledger:      ledgerRepo,
		guard:       guard,
		now:         time.Now,
	}
}

// CreateQuestInput is a new quest definition.
type CreateQuestInput struct {
	Title       string
	Description string
	RewardCoins int64
	Type        Type
	Config      json.RawMessage
}

// UpdateQuestInput holds optional field changes. Config must accompany a type change.
type UpdateQuestInput struct {
	Title       *string
	Description *string
	RewardCoins *int64
	Type        *Type
	Config      json.RawMessage
}

// SubmissionResult is returned from SubmitAnswer.
type SubmissionResult struct {
	SubmissionID uuid.UUID        `json:"submission_id"`
	Status       SubmissionStatus `json:"status"`
	Score        *int             `json:"score"`
	CoinsAwarded int64            `json:"coins_awarded"`
}

// CreateQuest stores a new draft owned by actor.
func (s *Service) CreateQuest(ctx context.Context, actor uuid.UUID, in CreateQuestInput) (*Quest, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.Creators...); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.InvalidInput("title is required")
	}
	if in.RewardCoins <= 0 {
		return nil, apperror.InvalidInput("reward_coins must be greater than zero")
	}
	cfg, err := DecodeConfig(in.Type, in.Config)
	if err != nil {
		return nil, err
	}
	raw, err := EncodeConfig(cfg)
	if err != nil {
		return nil, apperror.Internal(err, "encode config")
	}

	q := &Quest{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		RewardCoins: in.RewardCoins,
		Status:      StatusDraft,
		CreatorID:   actor,
		Type:        in.Type,
		Config:      raw,
		Active:      true,
	}
	if err := s.quests.Create(ctx, q); err != nil {
		return nil, apperror.Internal(err, "create quest")
	}

	log.Info().Str("quest_id", q.ID.String()).Str("creator_id", actor.String()).Str("type", string(q.Type)).Msg("quest created")
	return q, nil
}

// UpdateQuest edits a draft or rejected quest. Editing a rejected quest moves
// it back to draft and clears the rejection.
func (s *Service) UpdateQuest(ctx context.Context, actor, questID uuid.UUID, in UpdateQuestInput) (*Quest, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.Creators...); err != nil {
		return nil, err
	}

	var updated *Quest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		q, err := s.lockOwnQuest(ctx, tx, questID, actor)
		if err != nil {
			return err
		}
		if !q.Status.IsEditable() {
			return apperror.InvalidState("quest %s is %s and can no longer be edited", q.ID, q.Status)
		}

		if err := applyUpdate(q, in); err != nil {
			return err
		}
		if q.Status == StatusRejected {
			if err := q.Transition(StatusDraft); err != nil {
				return err
			}
			q.RejectedBy = uuid.NullUUID{}
			q.RejectedAt = sql.NullTime{}
			q.RejectionReason = sql.NullString{}
		}

		if err := s.quests.UpdateTx(ctx, tx, q); err != nil {
			return err
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyUpdate(q *Quest, in UpdateQuestInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return apperror.InvalidInput("title is required")
		}
		q.Title = title
	}
	if in.Description != nil {
		q.Description = strings.TrimSpace(*in.Description)
	}
	if in.RewardCoins != nil {
		if *in.RewardCoins <= 0 {
			return apperror.InvalidInput("reward_coins must be greater than zero")
		}
		q.RewardCoins = *in.RewardCoins
	}

	nextType := q.Type
	if in.Type != nil {
		nextType = *in.Type
	}
	if nextType != q.Type && len(in.Config) == 0 {
		return apperror.InvalidInput("config is required when changing quest type")
	}
	if len(in.Config) > 0 {
		cfg, err := DecodeConfig(nextType, in.Config)
		if err != nil {
			return err
		}
		raw, err := EncodeConfig(cfg)
		if err != nil {
			return apperror.Internal(err, "encode config")
		}
		q.Type = nextType
		q.Config = raw
	}
	return nil
}

// SubmitForApproval hands a draft to the approvers. No coins move until approval.
func (s *Service) SubmitForApproval(ctx context.Context, questID, actor uuid.UUID) (*Quest, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.Creators...); err != nil {
		return nil, err
	}

	var submitted *Quest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		q, err := s.lockOwnQuest(ctx, tx, questID, actor)
		if err != nil {
			return err
		}
		if err := q.Transition(StatusSubmitted); err != nil {
			return err
		}
		if err := s.quests.UpdateTx(ctx, tx, q); err != nil {
			return err
		}
		submitted = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("quest_id", questID.String()).Str("actor_id", actor.String()).Msg("quest submitted for approval")
	return submitted, nil
}

// ArchiveQuest closes an approved quest to new answers.
func (s *Service) ArchiveQuest(ctx context.Context, questID, actor uuid.UUID) (*Quest, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.Approvers...); err != nil {
		return nil, err
	}

	var archived *Quest
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		q, err := s.quests.GetTx(ctx, tx, questID, LockUpdate)
		if err != nil {
			return err
		}
		if q == nil {
			return questNotFound(questID)
		}
		if err := q.Transition(StatusArchived); err != nil {
			return err
		}
		q.Active = false
		if err := s.quests.UpdateTx(ctx, tx, q); err != nil {
			return err
		}
		archived = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("quest_id", questID.String()).Str("actor_id", actor.String()).Msg("quest archived")
	return archived, nil
}

// GetQuest returns a quest. Unapproved quests are only visible to their
// creator and to reviewers, who are also the only ones shown the answer key.
func (s *Service) GetQuest(ctx context.Context, principal, questID uuid.UUID) (*Quest, bool, error) {
	role, err := s.guard.RequireRole(ctx, principal, authz.Submitters...)
	if err != nil {
		return nil, false, err
	}

	q, err := s.quests.GetByID(ctx, questID)
	if err != nil {
		return nil, false, apperror.Internal(err, "get quest")
	}
	if q == nil {
		return nil, false, questNotFound(questID)
	}

	privileged := q.CreatorID == principal || authz.Allows(authz.Reviewers, role)
	if !privileged && q.Status != StatusApproved && q.Status != StatusArchived {
		return nil, false, questNotFound(questID)
	}
	return q, privileged, nil
}

// SubmitAnswer records the principal's answer, overwriting an earlier
// unrewarded one. MCQ answers are graded here and a full score is paid out in
// the same transaction.
func (s *Service) SubmitAnswer(ctx context.Context, questID, principal uuid.UUID, answer Answer) (*SubmissionResult, error) {
	if _, err := s.guard.RequireRole(ctx, principal, authz.Submitters...); err != nil {
		return nil, err
	}

	var result *SubmissionResult
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		q, err := s.quests.GetTx(ctx, tx, questID, LockShare)
		if err != nil {
			return err
		}
		if q == nil || !q.IsOpen() {
			return questNotFound(questID)
		}
		if q.CreatorID == principal {
			return apperror.Forbidden("creators cannot answer their own quest")
		}

		cfg, err := q.ParsedConfig()
		if err != nil {
			return apperror.Internal(err, "stored config for quest %s is invalid", q.ID)
		}
		if err := answer.Validate(cfg); err != nil {
			return err
		}

		sub, err := s.submissions.LockForUserTx(ctx, tx, q.ID, principal)
		if err != nil {
			return err
		}
		if sub.IsRewarded() {
			return apperror.InvalidState("submission for quest %s was already rewarded", q.ID)
		}

		raw, err := json.Marshal(answer)
		if err != nil {
			return apperror.Internal(err, "encode answer")
		}
		sub.Answer = raw
		sub.ReviewedBy = uuid.NullUUID{}
		sub.ReviewedAt = sql.NullTime{}
		sub.Score = sql.NullInt32{}
		sub.Status = SubmissionPending

		if mcq, ok := cfg.(MCQConfig); ok {
			sub.Status = SubmissionAutograded
			sub.Score = sql.NullInt32{Int32: int32(mcq.Grade(answer.ChoiceID)), Valid: true}
		}

		if err := s.submissions.UpdateTx(ctx, tx, sub); err != nil {
			return err
		}

		result = &SubmissionResult{SubmissionID: sub.ID, Status: sub.Status, Score: scoreOf(sub)}
		if sub.IsRewarded() {
			if err := s.reward(ctx, tx, q, sub, principal, "auto"); err != nil {
				return err
			}
			result.CoinsAwarded = q.RewardCoins
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.CoinsAwarded > 0 {
		metrics.RecordEntry(string(ledger.TierUser), string(ledger.Credit), result.CoinsAwarded)
	}
	log.Info().
		Str("quest_id", questID.String()).
		Str("user_id", principal.String()).
		Str("status", string(result.Status)).
		Int64("coins_awarded", result.CoinsAwarded).
		Msg("quest answer submitted")
	return result, nil
}

// ReviewSubmission settles a pending submission. Accepting it pays the reward
// in the same transaction.
func (s *Service) ReviewSubmission(ctx context.Context, submissionID, actor uuid.UUID, decision Decision, score *int) (*Submission, error) {
	if _, err := s.guard.RequireRole(ctx, actor, authz.Reviewers...); err != nil {
		return nil, err
	}
	if decision != DecisionAccepted && decision != DecisionRejected {
		return nil, apperror.InvalidInput("decision must be accepted or rejected")
	}
	if score != nil && (*score < 0 || *score > FullScore) {
		return nil, apperror.InvalidInput("score must be between 0 and %d", FullScore)
	}

	var (
		reviewed *Submission
		awarded  int64
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		sub, err := s.submissions.LockByIDTx(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return submissionNotFound(submissionID)
		}
		if sub.UserID == actor {
			return apperror.Forbidden("reviewers cannot review their own submission")
		}
		if sub.Status != SubmissionPending {
			return apperror.InvalidState("submission %s is %s, only pending submissions can be reviewed", sub.ID, sub.Status)
		}

		q, err := s.quests.GetTx(ctx, tx, sub.QuestID, LockNone)
		if err != nil {
			return err
		}
		if q == nil {
			return questNotFound(sub.QuestID)
		}

		sub.Status = SubmissionStatus(decision)
		sub.ReviewedBy = uuid.NullUUID{UUID: actor, Valid: true}
		sub.ReviewedAt = sql.NullTime{Time: s.now(), Valid: true}
		if score != nil {
			sub.Score = sql.NullInt32{Int32: int32(*score), Valid: true}
		}
		if err := s.submissions.UpdateTx(ctx, tx, sub); err != nil {
			return err
		}

		if decision == DecisionAccepted {
			if err := s.reward(ctx, tx, q, sub, actor, "review"); err != nil {
				return err
			}
			awarded = q.RewardCoins
		}
		reviewed = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if awarded > 0 {
		metrics.RecordEntry(string(ledger.TierUser), string(ledger.Credit), awarded)
	}
	log.Info().
		Str("submission_id", submissionID.String()).
		Str("reviewer_id", actor.String()).
		Str("decision", string(decision)).
		Msg("submission reviewed")
	return reviewed, nil
}

func (s *Service) reward(ctx context.Context, tx *sqlx.Tx, q *Quest, sub *Submission, actor uuid.UUID, grading string) error {
	entry, err := s.ledger.AppendTx(ctx, tx, ledger.EntryInput{
		Owner:     ledger.UserOwner(sub.UserID),
		Direction: ledger.Credit,
		Amount:    q.RewardCoins,
		Reason:    fmt.Sprintf("quest reward: %s", q.Title),
		ActorID:   actor,
		QuestID:   uuid.NullUUID{UUID: q.ID, Valid: true},
		Metadata:  ledger.Metadata{"submission_id": sub.ID.String(), "grading": grading},
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("tier", string(ledger.TierUser)).
		Str("owner_id", sub.UserID.String()).
		Int64("amount", entry.Amount).
		Str("actor_id", actor.String()).
		Str("quest_id", q.ID.String()).
		Msg("quest reward credited")
	return nil
}

// lockOwnQuest locks a quest that actor created.
func (s *Service) lockOwnQuest(ctx context.Context, tx *sqlx.Tx, questID, actor uuid.UUID) (*Quest, error) {
	q, err := s.quests.GetTx(ctx, tx, questID, LockUpdate)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, questNotFound(questID)
	}
	if q.CreatorID != actor {
		return nil, apperror.Forbidden("only the creator can change quest %s", q.ID)
	}
	return q, nil
}

func scoreOf(sub *Submission) *int {
	if !sub.Score.Valid {
		return nil
	}
	v := int(sub.Score.Int32)
	return &v
}
