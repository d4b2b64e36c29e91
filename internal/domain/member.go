package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// Member accounts are never deleted, only deactivated; the sponsor link forms
// the referral chain the commission walk follows.
type Member struct {
	MemberID      string          `json:"member_id"`
	DisplayName   string          `json:"display_name"`
	SponsorID     string          `json:"sponsor_id,omitempty"`
	Status        string          `json:"status"`
	CurrentTierID string          `json:"current_tier_id,omitempty"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	JoinedAt      time.Time       `json:"joined_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (m Member) IsActive() bool { return m.Status == MemberStatusActive }

// TierHistoryEntry records when a member reached a tier. Entries are
// append-only and ordered by EffectiveAt; the weighted annual profit
// calculation splits periods on these boundaries.
type TierHistoryEntry struct {
	EntryID     string    `json:"entry_id"`
	MemberID    string    `json:"member_id"`
	TierID      string    `json:"tier_id"`
	Rank        int       `json:"rank"`
	EffectiveAt time.Time `json:"effective_at"`
}

type EngineAuditLog struct {
	AuditLogID string            `json:"audit_log_id"`
	MemberID   string            `json:"member_id"`
	Action     string            `json:"action"`
	ActorID    string            `json:"actor_id"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
