package application

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/growthfund/matrix-engine/internal/domain"
)

// GetTierProgress reports where a member stands between their current tier
// threshold and the next one, as a clamped percentage of cumulative invested.
func (s *Service) GetTierProgress(ctx context.Context, actor Actor, memberID string) (TierProgress, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return TierProgress{}, domain.ErrUnauthorized
	}
	member, err := s.members.GetByID(ctx, strings.TrimSpace(memberID))
	if err != nil {
		return TierProgress{}, err
	}
	out := TierProgress{Member: member}
	current, ok := s.cfg.Catalog.ByID(member.CurrentTierID)
	if !ok {
		// Below the lowest threshold: progress measures toward the first tier.
		if tiers := s.cfg.Catalog.Tiers(); len(tiers) > 0 {
			first := tiers[0]
			out.NextTier = &first
			out.Progress = s.cfg.Catalog.Progress(domain.Tier{}, first, member.TotalInvested)
		}
		return out, nil
	}
	out.CurrentTier = &current
	next, found := s.cfg.Catalog.Next(current)
	if !found {
		out.Progress = decimal.NewFromInt(100)
		return out, nil
	}
	out.NextTier = &next
	out.Progress = s.cfg.Catalog.Progress(current, next, member.TotalInvested)
	return out, nil
}

// GetDownline summarizes a sponsor's subtree per level: occupied slots against
// the fixed-width capacity for that depth.
func (s *Service) GetDownline(ctx context.Context, actor Actor, sponsorID string) (Downline, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return Downline{}, domain.ErrUnauthorized
	}
	sponsorID = strings.TrimSpace(sponsorID)
	if _, err := s.members.GetByID(ctx, sponsorID); err != nil {
		return Downline{}, err
	}
	counts, err := s.positions.CountDownline(ctx, sponsorID)
	if err != nil {
		return Downline{}, err
	}
	out := Downline{MemberID: sponsorID}
	for level := 1; level <= s.cfg.MatrixDepthCap; level++ {
		occupied := counts[level]
		if occupied == 0 {
			continue
		}
		out.Levels = append(out.Levels, DownlineStat{
			Level:    level,
			Occupied: occupied,
			Capacity: domain.SlotsAtLevel(s.cfg.MatrixWidth, level),
		})
		out.Total += occupied
	}
	return out, nil
}

func (s *Service) ListCommissions(ctx context.Context, actor Actor, referrerID string) ([]domain.ReferralCommission, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.commissions.ListByReferrerID(ctx, strings.TrimSpace(referrerID))
}

func (s *Service) ListClawbacks(ctx context.Context, actor Actor, referrerID string) ([]domain.CommissionClawback, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.clawbacks.ListByReferrerID(ctx, strings.TrimSpace(referrerID))
}

func (s *Service) ListLedger(ctx context.Context, actor Actor, memberID string) ([]domain.LedgerEntry, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.ledger.ListByMemberID(ctx, strings.TrimSpace(memberID))
}

func (s *Service) ListWithdrawals(ctx context.Context, actor Actor, memberID string) ([]domain.WithdrawalRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.withdrawals.ListByMemberID(ctx, strings.TrimSpace(memberID))
}

func (s *Service) ListDistributions(ctx context.Context, actor Actor) ([]domain.ProfitDistribution, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if !isAdmin(actor) {
		return nil, domain.ErrForbidden
	}
	return s.distributions.List(ctx)
}

func (s *Service) GetMember(ctx context.Context, actor Actor, memberID string) (domain.Member, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Member{}, domain.ErrUnauthorized
	}
	return s.members.GetByID(ctx, strings.TrimSpace(memberID))
}
