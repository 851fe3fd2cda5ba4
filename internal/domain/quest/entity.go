package quest

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents quest workflow state
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusArchived  Status = "archived"
)

// Type selects the config and answer variant of a quest.
type Type string

const (
	TypeMCQ     Type = "mcq"
	TypeText    Type = "text"
	TypeVideo   Type = "video"
	TypeCheckin Type = "checkin"
)

// IsValid checks if quest type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeMCQ, TypeText, TypeVideo, TypeCheckin:
		return true
	}
	return false
}

// Quest is a funded task gated by the approval workflow.
type Quest struct {
	ID              uuid.UUID       `db:"id"`
	Title           string          `db:"title"`
	Description     string          `db:"description"`
	RewardCoins     int64           `db:"reward_coins"`
	Status          Status          `db:"status"`
	CreatorID       uuid.UUID       `db:"creator_id"`
	ApprovedBy      uuid.NullUUID   `db:"approved_by"`
	ApprovedAt      sql.NullTime    `db:"approved_at"`
	RejectedBy      uuid.NullUUID   `db:"rejected_by"`
	RejectedAt      sql.NullTime    `db:"rejected_at"`
	RejectionReason sql.NullString  `db:"rejection_reason"`
	Type            Type            `db:"quest_type"`
	Config          json.RawMessage `db:"config"`
	Active          bool            `db:"active"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// IsOpen reports whether students can submit answers.
func (q *Quest) IsOpen() bool {
	return q.Status == StatusApproved && q.Active
}

// ParsedConfig decodes the stored config for the quest type.
func (q *Quest) ParsedConfig() (Config, error) {
	return DecodeConfig(q.Type, q.Config)
}

// SubmissionStatus represents review state of a submission
type SubmissionStatus string

const (
	SubmissionPending    SubmissionStatus = "pending"
	SubmissionAccepted   SubmissionStatus = "accepted"
	SubmissionRejected   SubmissionStatus = "rejected"
	SubmissionAutograded SubmissionStatus = "autograded"
)

const FullScore = 100

// Submission is one user's attempt at a quest, unique per (quest, user).
type Submission struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	QuestID    uuid.UUID        `db:"quest_id" json:"quest_id"`
	UserID     uuid.UUID        `db:"user_id" json:"user_id"`
	Status     SubmissionStatus `db:"status" json:"status"`
	Answer     json.RawMessage  `db:"answer" json:"answer"`
	Score      sql.NullInt32    `db:"score" json:"-"`
	ReviewedBy uuid.NullUUID    `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt sql.NullTime     `db:"reviewed_at" json:"-"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// IsRewarded reports whether the reward for this submission was paid.
func (s *Submission) IsRewarded() bool {
	switch s.Status {
	case SubmissionAccepted:
		return true
	case SubmissionAutograded:
		return s.Score.Valid && s.Score.Int32 == FullScore
	}
	return false
}
