package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvestmentStatusPending   = "pending"
	InvestmentStatusActive    = "active"
	InvestmentStatusRejected  = "rejected"
	InvestmentStatusWithdrawn = "withdrawn"
)

// Investment amounts are immutable once active; only status and the withdrawn
// running total move, and status moves forward only.
type Investment struct {
	InvestmentID    string          `json:"investment_id"`
	MemberID        string          `json:"member_id"`
	Amount          decimal.Decimal `json:"amount"`
	TierIDAtTime    string          `json:"tier_id_at_time,omitempty"`
	Status          string          `json:"status"`
	WithdrawnAmount decimal.Decimal `json:"withdrawn_amount"`
	ActivatedAt     time.Time       `json:"activated_at"`
	LockInEndsAt    time.Time       `json:"lock_in_ends_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (i Investment) IsActive() bool { return i.Status == InvestmentStatusActive }

// ElapsedMonths is the investment age used by penalty and clawback schedules.
func (i Investment) ElapsedMonths(now time.Time) int { return MonthsBetween(i.ActivatedAt, now) }

func (i Investment) PastLockIn(now time.Time) bool { return !now.Before(i.LockInEndsAt) }
