package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type represents quest event type
type Type string

const (
	TypeQuestApproved Type = "quest_approved" // Creator: quest funded and live
	TypeQuestRejected Type = "quest_rejected" // Creator: quest sent back with a reason
)

// Event is the payload published after a quest decision commits.
type Event struct {
	Type        Type      `json:"type"`
	QuestID     uuid.UUID `json:"quest_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	ActorID     uuid.UUID `json:"actor_id"`
	Title       string    `json:"title"`
	Reason      string    `json:"reason,omitempty"`
	Coins       int64     `json:"coins,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
