package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CommissionStatusPending    = "pending"
	CommissionStatusPaid       = "paid"
	CommissionStatusClawedBack = "clawed_back"
	CommissionStatusVoided     = "voided"
)

// ReferralCommission is unique per (referrer, investment, level). The Amount
// field keeps its original value forever; clawbacks accumulate in
// ClawedBackAmount and the status flips to clawed_back only when the full
// paid amount has been reversed.
type ReferralCommission struct {
	CommissionID     string          `json:"commission_id"`
	ReferrerID       string          `json:"referrer_id"`
	ReferredID       string          `json:"referred_id"`
	InvestmentID     string          `json:"investment_id"`
	Level            int             `json:"level"`
	Rate             decimal.Decimal `json:"rate"`
	Amount           decimal.Decimal `json:"amount"`
	ClawedBackAmount decimal.Decimal `json:"clawed_back_amount"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// RemainingPaid is the upper bound for any further clawback.
func (c ReferralCommission) RemainingPaid() decimal.Decimal {
	rem := c.Amount.Sub(c.ClawedBackAmount)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

type CommissionClawback struct {
	ClawbackID    string          `json:"clawback_id"`
	CommissionID  string          `json:"commission_id"`
	ReferrerID    string          `json:"referrer_id"`
	InvestmentID  string          `json:"investment_id"`
	Amount        decimal.Decimal `json:"amount"`
	ElapsedMonths int             `json:"elapsed_months"`
	Reason        string          `json:"reason"`
	CreatedAt     time.Time       `json:"created_at"`
}
