package quest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CreateQuestRequest for POST /quests
type CreateQuestRequest struct {
	Title       string          `json:"title" validate:"required,notblank,max=200"`
	Description string          `json:"description" validate:"omitempty,max=5000"`
	RewardCoins int64           `json:"reward_coins" validate:"required,gt=0"`
	Type        string          `json:"type" validate:"required,quest_type"`
	Config      json.RawMessage `json:"config" validate:"required"`
}

func (r *CreateQuestRequest) Input() CreateQuestInput {
	return CreateQuestInput{
		Title:       r.Title,
		Description: r.Description,
		RewardCoins: r.RewardCoins,
		Type:        Type(r.Type),
		Config:      r.Config,
	}
}

// UpdateQuestRequest for PATCH /quests/{id}
type UpdateQuestRequest struct {
	Title       *string         `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=5000"`
	RewardCoins *int64          `json:"reward_coins" validate:"omitempty,gt=0"`
	Type        *string         `json:"type" validate:"omitempty,quest_type"`
	Config      json.RawMessage `json:"config"`
}

func (r *UpdateQuestRequest) Input() UpdateQuestInput {
	in := UpdateQuestInput{
		Title:       r.Title,
		Description: r.Description,
		RewardCoins: r.RewardCoins,
		Config:      r.Config,
	}
	if r.Type != nil {
		t := Type(*r.Type)
		in.Type = &t
	}
	return in
}

// AnswerRequest for POST /quests/{id}/answers
type AnswerRequest struct {
	ChoiceID string `json:"choice_id" validate:"omitempty,max=100"`
	Text     string `json:"text" validate:"omitempty,max=10000"`
	MediaRef string `json:"media_ref" validate:"omitempty,max=1000"`
}

// ReviewRequest for POST /submissions/{id}/review
type ReviewRequest struct {
	Decision string `json:"decision" validate:"required,decision"`
	Score    *int   `json:"score" validate:"omitempty,gte=0,lte=100"`
}

// QuestResponse is the client view of a quest. MCQ answers are only included
// for the creator and reviewers.
type QuestResponse struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	RewardCoins     int64       `json:"reward_coins"`
	Status          Status      `json:"status"`
	Type            Type        `json:"type"`
	Config          interface{} `json:"config"`
	Active          bool        `json:"active"`
	CreatorID       uuid.UUID   `json:"creator_id"`
	ApprovedBy      *uuid.UUID  `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	RejectedBy      *uuid.UUID  `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func QuestResponseFromEntity(q *Quest, withAnswerKey bool) *QuestResponse {
	resp := &QuestResponse{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		RewardCoins: q.RewardCoins,
		Status:      q.Status,
		Type:        q.Type,
		Active:      q.Active,
		CreatorID:   q.CreatorID,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
	cfg, err := q.ParsedConfig()
	switch {
	case err != nil:
		log.Error().Err(err).Str("quest_id", q.ID.String()).Msg("stored quest config is invalid")
	case withAnswerKey:
		resp.Config = cfg
	default:
		resp.Config = cfg.Public()
	}
	if q.ApprovedBy.Valid {
		resp.ApprovedBy = &q.ApprovedBy.UUID
	}
	if q.ApprovedAt.Valid {
		resp.ApprovedAt = &q.ApprovedAt.Time
	}
	if q.RejectedBy.Valid {
		resp.RejectedBy = &q.RejectedBy.UUID
	}
	if q.RejectedAt.Valid {
		resp.RejectedAt = &q.RejectedAt.Time
	}
	if q.RejectionReason.Valid {
		resp.RejectionReason = q.RejectionReason.String
	}
	return resp
}

// SubmissionResponse is the review result returned to reviewers.
type SubmissionResponse struct {
	ID         uuid.UUID        `json:"id"`
	QuestID    uuid.UUID        `json:"quest_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Status     SubmissionStatus `json:"status"`
	Answer     json.RawMessage  `json:"answer"`
	Score      *int             `json:"score"`
	ReviewedBy *uuid.UUID       `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func SubmissionResponseFromEntity(s *Submission) *SubmissionResponse {
	resp := &SubmissionResponse{
		ID:        s.ID,
		QuestID:   s.QuestID,
		UserID:    s.UserID,
		Status:    s.Status,
		Answer:    s.Answer,
		Score:     scoreOf(s),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.ReviewedBy.Valid {
		resp.ReviewedBy = &s.ReviewedBy.UUID
	}
	if s.ReviewedAt.Valid {
		resp.ReviewedAt = &s.ReviewedAt.Time
	}
	return resp
}
