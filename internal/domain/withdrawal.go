package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalTypeFull      = "full"
	WithdrawalTypePartial   = "partial"
	WithdrawalTypeEmergency = "emergency"
)

const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusProcessed = "processed"
)

type WithdrawalRequest struct {
	RequestID       string          `json:"request_id"`
	MemberID        string          `json:"member_id"`
	InvestmentID    string          `json:"investment_id,omitempty"`
	Type            string          `json:"type"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	PenaltyAmount   decimal.Decimal `json:"penalty_amount"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	Reason          string          `json:"reason,omitempty"`
	Status          string          `json:"status"`
	AdminNotes      string          `json:"admin_notes,omitempty"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	RequestedAt     time.Time       `json:"requested_at"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CanTransition encodes the strict forward state machine:
// pending -> approved -> processed, or pending -> rejected. No skips,
// processed and rejected are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case WithdrawalStatusPending:
		return to == WithdrawalStatusApproved || to == WithdrawalStatusRejected
	case WithdrawalStatusApproved:
		return to == WithdrawalStatusProcessed
	default:
		return false
	}
}

func (w WithdrawalRequest) Outstanding() bool {
	return w.Status == WithdrawalStatusPending || w.Status == WithdrawalStatusApproved
}

func ValidWithdrawalType(t string) bool {
	return t == WithdrawalTypeFull || t == WithdrawalTypePartial || t == WithdrawalTypeEmergency
}

// ComputePenalty prices an early withdrawal: zero at or past the lock-in
// boundary, otherwise the schedule percentage of the requested amount.
func ComputePenalty(schedule PolicySchedule, requested decimal.Decimal, elapsedMonths, lockInMonths int) decimal.Decimal {
	if elapsedMonths >= lockInMonths {
		return decimal.Zero
	}
	return PercentOf(requested, schedule.PercentFor(elapsedMonths))
}
