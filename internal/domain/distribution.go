package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodTypeQuarterly = "quarterly"
	PeriodTypeAnnual    = "annual"
)

const (
	DistributionStatusRunning   = "running"
	DistributionStatusCompleted = "completed"
	DistributionStatusFailed    = "failed"
)

const (
	ShareTypeQuarterlyBonus = "quarterly_bonus"
	ShareTypeAnnual         = "annual"
)

// ProfitDistribution is one batch execution. Re-running a period means a new
// row; the engine never re-triggers a period implicitly.
type ProfitDistribution struct {
	DistributionID    string          `json:"distribution_id"`
	PeriodType        string          `json:"period_type"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodEnd         time.Time       `json:"period_end"`
	PoolAmount        decimal.Decimal `json:"pool_amount"`
	DistributedAmount decimal.Decimal `json:"distributed_amount"`
	MemberCount       int             `json:"member_count"`
	Status            string          `json:"status"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

type ProfitShare struct {
	ShareID        string          `json:"share_id"`
	DistributionID string          `json:"distribution_id"`
	MemberID       string          `json:"member_id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}
