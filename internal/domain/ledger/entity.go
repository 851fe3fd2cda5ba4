package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
)

// Tier is one level of the wallet hierarchy.
type Tier string

const (
	TierPlatform Tier = "platform"
	TierOrg      Tier = "org"
	TierUser     Tier = "user"
)

// IsValid checks if tier is known
func (t Tier) IsValid() bool {
	switch t {
	case TierPlatform, TierOrg, TierUser:
		return true
	}
	return false
}

type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// Signed returns amount with the sign this direction applies to a balance.
func (d Direction) Signed(amount int64) int64 {
	if d == Debit {
		return -amount
	}
	return amount
}

// Owner addresses a wallet. The platform owner has a nil ID.
type Owner struct {
	Tier Tier
	ID   uuid.UUID
}

func PlatformOwner() Owner {
	return Owner{Tier: TierPlatform, ID: uuid.Nil}
}

func OrgOwner(orgID uuid.UUID) Owner {
	return Owner{Tier: TierOrg, ID: orgID}
}

func UserOwner(userID uuid.UUID) Owner {
	return Owner{Tier: TierUser, ID: userID}
}

// ParseOwner builds an owner from path parameters. The platform tier ignores id.
func ParseOwner(tier, id string) (Owner, error) {
	t := Tier(tier)
	if !t.IsValid() {
		return Owner{}, apperror.InvalidInput("unknown tier %q", tier)
	}
	if t == TierPlatform {
		return PlatformOwner(), nil
	}
	ownerID, err := uuid.Parse(id)
	if err != nil {
		return Owner{}, apperror.InvalidInput("invalid owner id %q", id)
	}
	return Owner{Tier: t, ID: ownerID}, nil
}

// Validate rejects unknown tiers and owners whose id does not fit the tier.
func (o Owner) Validate() error {
	if !o.Tier.IsValid() {
		return apperror.InvalidInput("unknown tier %q", o.Tier)
	}
	if o.Tier == TierPlatform && o.ID != uuid.Nil {
		return apperror.InvalidInput("platform wallet has no owner id")
	}
	if o.Tier != TierPlatform && o.ID == uuid.Nil {
		return apperror.InvalidInput("%s wallet requires an owner id", o.Tier)
	}
	return nil
}

func (o Owner) String() string {
	if o.Tier == TierPlatform {
		return "platform"
	}
	return fmt.Sprintf("%s %s", o.Tier, o.ID)
}

// Wallet is the current balance of one owner.
type Wallet struct {
	Tier      Tier      `db:"-" json:"tier"`
	OwnerID   uuid.UUID `db:"-" json:"owner_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Metadata is an opaque key-value map stored as JSONB.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("ledger: unsupported metadata type")
	}
	return json.Unmarshal(data, m)
}

// Entry is one immutable balance movement.
type Entry struct {
	ID            int64         `db:"id" json:"id"`
	Tier          Tier          `db:"tier" json:"tier"`
	OwnerID       uuid.UUID     `db:"owner_id" json:"owner_id"`
	Direction     Direction     `db:"direction" json:"direction"`
	Amount        int64         `db:"amount" json:"amount"`
	Reason        string        `db:"reason" json:"reason"`
	QuestID       uuid.NullUUID `db:"quest_id" json:"quest_id"`
	ActorID       uuid.UUID     `db:"actor_id" json:"actor_id"`
	CorrelationID uuid.NullUUID `db:"correlation_id" json:"correlation_id"`
	Metadata      Metadata      `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`

	// BalanceAfter is only set on entries returned from an append.
	BalanceAfter int64 `db:"-" json:"balance_after,omitempty"`
}

// EntryInput describes an entry to append.
type EntryInput struct {
	Owner         Owner
	Direction     Direction
	Amount        int64
	Reason        string
	ActorID       uuid.UUID
	QuestID       uuid.NullUUID
	CorrelationID uuid.NullUUID
	Metadata      Metadata
}

// Reconciliation compares a stored balance with the signed sum of its entries.
type Reconciliation struct {
	Tier       Tier      `json:"tier"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Balance    int64     `json:"balance"`
	LedgerSum  int64     `json:"ledger_sum"`
	Entries    int64     `json:"entries"`
	Consistent bool      `json:"consistent"`
}
