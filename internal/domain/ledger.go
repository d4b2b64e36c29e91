package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LedgerTypeInvestment         = "investment"
	LedgerTypeReferralCommission = "referral_commission"
	LedgerTypeCommissionClawback = "commission_clawback"
	LedgerTypeWithdrawal         = "withdrawal"
	LedgerTypeProfitShare        = "profit_share"
)

const (
	LedgerStatusPending = "pending"
	LedgerStatusPosted  = "posted"
)

// LedgerEntry is the append-only audit trail. Every money-moving operation
// posts exactly one entry; amounts are signed from the member's point of view.
type LedgerEntry struct {
	EntryID     string          `json:"entry_id"`
	MemberID    string          `json:"member_id"`
	EntryType   string          `json:"entry_type"`
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
