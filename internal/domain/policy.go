package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PolicyBand applies its percentage to withdrawals made strictly before
// UpToMonths elapsed since activation. Bands must be sorted ascending.
type PolicyBand struct {
	UpToMonths int             `json:"up_to_months"`
	Percent    decimal.Decimal `json:"percent"`
}

type PolicySchedule []PolicyBand

// PercentFor returns the percentage of the first band that still covers the
// elapsed age, zero once every band is outgrown. At the exact boundary the
// next (cheaper) band applies.
func (s PolicySchedule) PercentFor(elapsedMonths int) decimal.Decimal {
	if elapsedMonths < 0 {
		elapsedMonths = 0
	}
	for _, band := range s {
		if elapsedMonths < band.UpToMonths {
			return band.Percent
		}
	}
	return decimal.Zero
}

// DefaultPenaltySchedule and DefaultClawbackSchedule carry the product-policy
// breakpoints; deployments override them through configuration.
func DefaultPenaltySchedule() PolicySchedule {
	return PolicySchedule{
		{UpToMonths: 3, Percent: decimal.NewFromInt(25)},
		{UpToMonths: 6, Percent: decimal.NewFromInt(15)},
		{UpToMonths: 9, Percent: decimal.NewFromInt(10)},
		{UpToMonths: 12, Percent: decimal.NewFromInt(5)},
	}
}

func DefaultClawbackSchedule() PolicySchedule {
	return PolicySchedule{
		{UpToMonths: 3, Percent: decimal.NewFromInt(25)},
		{UpToMonths: 6, Percent: decimal.NewFromInt(15)},
		{UpToMonths: 12, Percent: decimal.NewFromInt(10)},
	}
}

// PercentOf applies a percentage rate to an amount, rounded to cents.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}

// MonthsBetween counts whole calendar months elapsed from a to b, never
// negative. A withdrawal exactly at the lock-in boundary counts the full
// month, so a 12-month lock-in yields 12 and a zero penalty band.
func MonthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
