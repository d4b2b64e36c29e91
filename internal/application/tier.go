package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthfund/matrix-engine/internal/domain"
)

// applyTierUpgrade re-resolves the member's tier after a cumulative change.
// Transitions only ever go to a strictly higher rank; downgrades never happen
// automatically. The caller persists the member row.
func (s *Service) applyTierUpgrade(ctx context.Context, member *domain.Member, actor Actor, now time.Time) (bool, domain.Tier, error) {
	tier, ok := s.cfg.Catalog.Resolve(member.TotalInvested)
	if !ok {
		return false, domain.Tier{}, nil
	}
	if member.CurrentTierID != "" {
		current, found := s.cfg.Catalog.ByID(member.CurrentTierID)
		if found && tier.Rank <= current.Rank {
			return false, current, nil
		}
	}
	from := member.CurrentTierID
	member.CurrentTierID = tier.TierID
	if s.tierHistory != nil {
		if err := s.tierHistory.Append(ctx, domain.TierHistoryEntry{
			EntryID: "th_" + uuid.NewString(), MemberID: member.MemberID,
			TierID: tier.TierID, Rank: tier.Rank, EffectiveAt: now,
		}); err != nil {
			return false, domain.Tier{}, err
		}
	}
	_ = s.appendAudit(ctx, member.MemberID, "tier.upgraded", actor.SubjectID, "", map[string]string{
		"from_tier_id": from, "to_tier_id": tier.TierID,
	})
	_ = s.enqueueTierUpgraded(ctx, *member, from, tier, now)
	return true, tier, nil
}

// weightedAnnualProfit computes a member's annual entitlement on base, split
// into sub-intervals bounded by tier-history change dates inside the period.
// A flat end-of-period lookup would over- or under-credit anyone who changed
// tier mid-year.
func (s *Service) weightedAnnualProfit(ctx context.Context, member domain.Member, base decimal.Decimal, periodStart, periodEnd time.Time) (decimal.Decimal, error) {
	flat := func() decimal.Decimal {
		tier, ok := s.cfg.Catalog.ByID(member.CurrentTierID)
		if !ok {
			return decimal.Zero
		}
		return domain.PercentOf(base, tier.AnnualRate)
	}
	if s.tierHistory == nil {
		return flat(), nil
	}
	history, err := s.tierHistory.ListByMemberID(ctx, member.MemberID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(history) == 0 {
		return flat(), nil
	}

	totalDays := periodEnd.Sub(periodStart).Hours() / 24
	if totalDays <= 0 {
		return decimal.Zero, domain.ErrInvalidInput
	}

	// Tier in effect at the period start, if any.
	activeTierID := ""
	for _, h := range history {
		if !h.EffectiveAt.After(periodStart) {
			activeTierID = h.TierID
		}
	}

	sum := decimal.Zero
	cursor := periodStart
	idx := 0
	for idx < len(history) && !history[idx].EffectiveAt.After(periodStart) {
		idx++
	}
	for {
		segEnd := periodEnd
		nextTierID := ""
		if idx < len(history) && history[idx].EffectiveAt.Before(periodEnd) {
			segEnd = history[idx].EffectiveAt
			nextTierID = history[idx].TierID
			idx++
		}
		if tier, ok := s.cfg.Catalog.ByID(activeTierID); ok {
			segDays := segEnd.Sub(cursor).Hours() / 24
			if segDays > 0 {
				weight := decimal.NewFromFloat(segDays).Div(decimal.NewFromFloat(totalDays))
				sum = sum.Add(base.Mul(tier.AnnualRate).Div(decimal.NewFromInt(100)).Mul(weight))
			}
		}
		if segEnd.Equal(periodEnd) {
			break
		}
		cursor = segEnd
		activeTierID = nextTierID
	}
	return sum.Round(2), nil
}
