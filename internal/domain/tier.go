package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is reference data: once any member's history points at a tier it is
// never deleted, only superseded by catalog reloads.
type Tier struct {
	TierID            string          `json:"tier_id"`
	Name              string          `json:"name"`
	Rank              int             `json:"rank"`
	MinInvestment     decimal.Decimal `json:"min_investment"`
	AnnualRate        decimal.Decimal `json:"annual_rate"`
	Level1Rate        decimal.Decimal `json:"level1_rate"`
	Level2Rate        decimal.Decimal `json:"level2_rate"`
	Level3Rate        decimal.Decimal `json:"level3_rate"`
	ReinvestBonusRate decimal.Decimal `json:"reinvest_bonus_rate"`
	Benefits          []string        `json:"benefits,omitempty"`
}

// LevelRate returns the commission percentage for a referral depth. Zero for
// depths the tier does not pay; lower tiers legitimately carry zero level-2/3
// rates.
func (t Tier) LevelRate(level int) decimal.Decimal {
	switch level {
	case 1:
		return t.Level1Rate
	case 2:
		return t.Level2Rate
	case 3:
		return t.Level3Rate
	default:
		return decimal.Zero
	}
}

// TierCatalog is the ordered tier registry. It is immutable after
// construction and safe for concurrent readers.
type TierCatalog struct {
	tiers []Tier
	byID  map[string]int
}

func NewTierCatalog(tiers []Tier) (TierCatalog, error) {
	c := TierCatalog{tiers: append([]Tier(nil), tiers...), byID: map[string]int{}}
	for i, t := range c.tiers {
		if t.TierID == "" || t.Name == "" {
			return TierCatalog{}, fmt.Errorf("tier %d: %w", i, ErrInvalidInput)
		}
		if t.Rank != i+1 {
			return TierCatalog{}, fmt.Errorf("tier %q: rank %d out of order: %w", t.TierID, t.Rank, ErrInvalidInput)
		}
		if i > 0 && t.MinInvestment.LessThanOrEqual(c.tiers[i-1].MinInvestment) {
			return TierCatalog{}, fmt.Errorf("tier %q: threshold must exceed %q: %w", t.TierID, c.tiers[i-1].TierID, ErrInvalidInput)
		}
		if t.MinInvestment.IsNegative() {
			return TierCatalog{}, fmt.Errorf("tier %q: negative threshold: %w", t.TierID, ErrInvalidInput)
		}
		if _, dup := c.byID[t.TierID]; dup {
			return TierCatalog{}, fmt.Errorf("tier %q: duplicate id: %w", t.TierID, ErrConflict)
		}
		c.byID[t.TierID] = i
	}
	return c, nil
}

func (c TierCatalog) Empty() bool   { return len(c.tiers) == 0 }
func (c TierCatalog) Tiers() []Tier { return append([]Tier(nil), c.tiers...) }

func (c TierCatalog) ByID(tierID string) (Tier, bool) {
	i, ok := c.byID[tierID]
	if !ok {
		return Tier{}, false
	}
	return c.tiers[i], true
}

// Resolve returns the highest-ranked tier whose threshold is at or below the
// cumulative amount. ok is false when the catalog is empty or the amount sits
// below the lowest threshold; callers handle the no-tier case explicitly.
func (c TierCatalog) Resolve(amount decimal.Decimal) (Tier, bool) {
	var out Tier
	found := false
	for _, t := range c.tiers {
		if t.MinInvestment.LessThanOrEqual(amount) {
			out = t
			found = true
		}
	}
	return out, found
}

func (c TierCatalog) Next(t Tier) (Tier, bool) {
	i, ok := c.byID[t.TierID]
	if !ok || i+1 >= len(c.tiers) {
		return Tier{}, false
	}
	return c.tiers[i+1], true
}

// Progress reports how far amount has advanced from current toward next, as a
// percentage clamped to [0,100]. A non-increasing threshold pair is a data
// integrity fault and reports 100 rather than dividing by zero.
func (c TierCatalog) Progress(current, next Tier, amount decimal.Decimal) decimal.Decimal {
	span := next.MinInvestment.Sub(current.MinInvestment)
	if span.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(100)
	}
	pct := amount.Sub(current.MinInvestment).Div(span).Mul(decimal.NewFromInt(100))
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct.Round(2)
}
