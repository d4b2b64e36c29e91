package application

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/growthfund/matrix-engine/internal/domain"
)

type memberShare struct {
	memberID string
	base     decimal.Decimal
	amount   decimal.Decimal
}

// RunAnnualDistribution credits every member whose investments have been
// active past the eligibility age with their fixed per-tier annual
// entitlement, tier-history weighted when the tier moved inside the period.
// The pool figure is recorded for reporting; fixed-rate entitlements do not
// split it proportionally.
func (s *Service) RunAnnualDistribution(ctx context.Context, actor Actor, in RunDistributionInput) (domain.ProfitDistribution, error) {
	return s.runDistribution(ctx, actor, domain.PeriodTypeAnnual, in)
}

// RunQuarterlyDistribution splits the bonus pool pro-rata across all active
// investment principal; the shares sum to the pool exactly, with the rounding
// residual assigned to the largest eligible investor.
func (s *Service) RunQuarterlyDistribution(ctx context.Context, actor Actor, in RunDistributionInput) (domain.ProfitDistribution, error) {
	return s.runDistribution(ctx, actor, domain.PeriodTypeQuarterly, in)
}

func (s *Service) runDistribution(ctx context.Context, actor Actor, periodType string, in RunDistributionInput) (domain.ProfitDistribution, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ProfitDistribution{}, domain.ErrUnauthorized
	}
	if !isAdmin(actor) {
		return domain.ProfitDistribution{}, domain.ErrForbidden
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.ProfitDistribution{}, domain.ErrIdempotencyRequired
	}
	if in.Pool.LessThanOrEqual(decimal.Zero) {
		return domain.ProfitDistribution{}, domain.ErrPoolInvalid
	}
	now := s.nowFn()
	if in.PeriodEnd.IsZero() {
		in.PeriodEnd = now
	}
	if in.PeriodStart.IsZero() {
		if periodType == domain.PeriodTypeAnnual {
			in.PeriodStart = in.PeriodEnd.AddDate(-1, 0, 0)
		} else {
			in.PeriodStart = in.PeriodEnd.AddDate(0, -3, 0)
		}
	}
	if !in.PeriodStart.Before(in.PeriodEnd) {
		return domain.ProfitDistribution{}, domain.ErrInvalidInput
	}
	requestHash := hashJSON(map[string]any{"op": "run_distribution", "period_type": periodType, "pool": in.Pool.String(), "start": in.PeriodStart, "end": in.PeriodEnd})
	if raw, ok, err := s.getIdempotent(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.ProfitDistribution{}, err
	} else if ok {
		var out domain.ProfitDistribution
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.ProfitDistribution{}, err
	}

	dist := domain.ProfitDistribution{
		DistributionID:    "dist_" + uuid.NewString(),
		PeriodType:        periodType,
		PeriodStart:       in.PeriodStart,
		PeriodEnd:         in.PeriodEnd,
		PoolAmount:        in.Pool.Round(2),
		DistributedAmount: decimal.Zero,
		Status:            domain.DistributionStatusRunning,
		StartedAt:         now,
	}
	if err := s.distributions.Create(ctx, dist); err != nil {
		return domain.ProfitDistribution{}, err
	}
	_ = s.enqueueDistributionStarted(ctx, dist, actor.RequestID, now)

	allocations, err := s.computeAllocations(ctx, periodType, dist)
	if err != nil {
		return s.failDistribution(ctx, dist, err.Error())
	}
	if len(allocations) == 0 {
		return s.failDistribution(ctx, dist, "no eligible investments")
	}

	shareType := domain.ShareTypeAnnual
	if periodType == domain.PeriodTypeQuarterly {
		shareType = domain.ShareTypeQuarterlyBonus
	}
	total := decimal.Zero
	for _, alloc := range allocations {
		share := domain.ProfitShare{
			ShareID:        "shr_" + uuid.NewString(),
			DistributionID: dist.DistributionID,
			MemberID:       alloc.memberID,
			Type:           shareType,
			Amount:         alloc.amount,
			CreatedAt:      s.nowFn(),
		}
		if err := s.shares.Create(ctx, share); err != nil {
			return s.rollbackDistribution(ctx, dist, err)
		}
		if err := s.ledger.Append(ctx, domain.LedgerEntry{
			EntryID: "txn_" + uuid.NewString(), MemberID: alloc.memberID,
			EntryType: domain.LedgerTypeProfitShare, ReferenceID: dist.DistributionID,
			Amount: alloc.amount, Status: domain.LedgerStatusPosted, OccurredAt: share.CreatedAt,
		}); err != nil {
			return s.rollbackDistribution(ctx, dist, err)
		}
		total = total.Add(alloc.amount)
	}

	completedAt := s.nowFn()
	dist.DistributedAmount = total
	dist.MemberCount = len(allocations)
	dist.Status = domain.DistributionStatusCompleted
	dist.CompletedAt = &completedAt
	if err := s.distributions.Update(ctx, dist); err != nil {
		return s.rollbackDistribution(ctx, dist, err)
	}
	_ = s.appendAudit(ctx, "", "distribution.completed", actor.SubjectID, "", map[string]string{
		"distribution_id": dist.DistributionID, "period_type": periodType, "distributed": total.String(),
	})
	_ = s.enqueueDistributionCompleted(ctx, dist, actor.RequestID, completedAt)
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, dist)
	return dist, nil
}

func (s *Service) computeAllocations(ctx context.Context, periodType string, dist domain.ProfitDistribution) ([]memberShare, error) {
	members, err := s.members.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var out []memberShare
	switch periodType {
	case domain.PeriodTypeAnnual:
		for _, m := range members {
			base, err := s.eligibleAnnualBase(ctx, m.MemberID, dist.PeriodEnd)
			if err != nil {
				return nil, err
			}
			if base.LessThanOrEqual(decimal.Zero) {
				continue
			}
			amount, err := s.weightedAnnualProfit(ctx, m, base, dist.PeriodStart, dist.PeriodEnd)
			if err != nil {
				return nil, err
			}
			if amount.LessThanOrEqual(decimal.Zero) {
				continue
			}
			out = append(out, memberShare{memberID: m.MemberID, base: base, amount: amount})
		}
	case domain.PeriodTypeQuarterly:
		totalBase := decimal.Zero
		for _, m := range members {
			base, err := s.activePrincipal(ctx, m.MemberID)
			if err != nil {
				return nil, err
			}
			if base.LessThanOrEqual(decimal.Zero) {
				continue
			}
			out = append(out, memberShare{memberID: m.MemberID, base: base})
			totalBase = totalBase.Add(base)
		}
		if totalBase.LessThanOrEqual(decimal.Zero) {
			return nil, nil
		}
		allocated := decimal.Zero
		for i := range out {
			out[i].amount = dist.PoolAmount.Mul(out[i].base).Div(totalBase).Round(2)
			allocated = allocated.Add(out[i].amount)
		}
		// Conservation: the rounded shares must sum to the pool exactly, so
		// the residual lands on the largest investor (ties by member id).
		if residual := dist.PoolAmount.Sub(allocated); !residual.IsZero() && len(out) > 0 {
			canonical := 0
			for i := range out {
				if out[i].base.GreaterThan(out[canonical].base) ||
					(out[i].base.Equal(out[canonical].base) && out[i].memberID < out[canonical].memberID) {
					canonical = i
				}
			}
			out[canonical].amount = out[canonical].amount.Add(residual)
		}
	default:
		return nil, domain.ErrInvalidInput
	}
	sort.Slice(out, func(i, j int) bool { return out[i].memberID < out[j].memberID })
	return out, nil
}

func (s *Service) eligibleAnnualBase(ctx context.Context, memberID string, asOf time.Time) (decimal.Decimal, error) {
	rows, err := s.investments.ListByMemberID(ctx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	base := decimal.Zero
	for _, inv := range rows {
		if !inv.IsActive() {
			continue
		}
		if domain.MonthsBetween(inv.ActivatedAt, asOf) < s.cfg.AnnualEligibleAge {
			continue
		}
		base = base.Add(inv.Amount.Sub(inv.WithdrawnAmount))
	}
	return base, nil
}

func (s *Service) activePrincipal(ctx context.Context, memberID string) (decimal.Decimal, error) {
	rows, err := s.investments.ListByMemberID(ctx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	base := decimal.Zero
	for _, inv := range rows {
		if !inv.IsActive() {
			continue
		}
		base = base.Add(inv.Amount.Sub(inv.WithdrawnAmount))
	}
	return base, nil
}

// rollbackDistribution removes every share and ledger entry the batch wrote
// before failing: partial distributions must never stay visible.
func (s *Service) rollbackDistribution(ctx context.Context, dist domain.ProfitDistribution, cause error) (domain.ProfitDistribution, error) {
	if err := s.shares.DeleteByDistributionID(ctx, dist.DistributionID); err != nil {
		s.logger.Error("distribution rollback: share cleanup failed",
			zap.String("distribution_id", dist.DistributionID), zap.Error(err))
	}
	if err := s.ledger.DeleteByReferenceID(ctx, dist.DistributionID); err != nil {
		s.logger.Error("distribution rollback: ledger cleanup failed",
			zap.String("distribution_id", dist.DistributionID), zap.Error(err))
	}
	return s.failDistribution(ctx, dist, cause.Error())
}

func (s *Service) failDistribution(ctx context.Context, dist domain.ProfitDistribution, reason string) (domain.ProfitDistribution, error) {
	dist.Status = domain.DistributionStatusFailed
	dist.FailureReason = reason
	if err := s.distributions.Update(ctx, dist); err != nil {
		s.logger.Error("marking distribution failed", zap.String("distribution_id", dist.DistributionID), zap.Error(err))
	}
	s.logger.Warn("distribution failed", zap.String("distribution_id", dist.DistributionID), zap.String("reason", reason))
	return dist, domain.ErrDistributionFailed
}

func (s *Service) GetDistribution(ctx context.Context, actor Actor, distributionID string) (domain.ProfitDistribution, []domain.ProfitShare, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ProfitDistribution{}, nil, domain.ErrUnauthorized
	}
	dist, err := s.distributions.GetByID(ctx, strings.TrimSpace(distributionID))
	if err != nil {
		return domain.ProfitDistribution{}, nil, err
	}
	shares, err := s.shares.ListByDistributionID(ctx, dist.DistributionID)
	if err != nil {
		return domain.ProfitDistribution{}, nil, err
	}
	return dist, shares, nil
}
