package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/growthfund/matrix-engine/internal/domain"
)

// emitCommissions walks the sponsor chain upward from the investor, one
// commission level per hop up to the configured depth. Each level pays at the
// referrer's current tier rate, not the investor's. A missing or inactive
// link skips that level and keeps walking; only storage failures abort.
func (s *Service) emitCommissions(ctx context.Context, actor Actor, inv domain.Investment, investor domain.Member) ([]domain.ReferralCommission, error) {
	unlock := s.investmentLocks.lock(inv.InvestmentID)
	defer unlock()

	var out []domain.ReferralCommission
	current := investor
	for level := 1; level <= s.cfg.CommissionDepth; level++ {
		sponsorID := strings.TrimSpace(current.SponsorID)
		if sponsorID == "" {
			break
		}
		sponsor, err := s.members.GetByID(ctx, sponsorID)
		if err == domain.ErrNotFound {
			s.logger.Warn("sponsor missing, upward walk stopped",
				zap.String("investment_id", inv.InvestmentID), zap.String("sponsor_id", sponsorID), zap.Int("level", level))
			break
		}
		if err != nil {
			return nil, err
		}

		comm, created, err := s.commissionForLevel(ctx, inv, current, sponsor, level)
		if err != nil {
			return nil, err
		}
		if created {
			out = append(out, comm)
			_ = s.enqueueCommissionCreated(ctx, comm, actor.RequestID)
		}
		current = sponsor
	}
	return out, nil
}

func (s *Service) commissionForLevel(ctx context.Context, inv domain.Investment, child, sponsor domain.Member, level int) (domain.ReferralCommission, bool, error) {
	none := domain.ReferralCommission{}
	if !sponsor.IsActive() {
		s.logger.Info("sponsor inactive, commission level skipped",
			zap.String("investment_id", inv.InvestmentID), zap.String("sponsor_id", sponsor.MemberID), zap.Int("level", level))
		return none, false, nil
	}
	pos, err := s.positions.GetByMemberAndSponsor(ctx, child.MemberID, sponsor.MemberID)
	if err == domain.ErrNotFound || (err == nil && !pos.Active) {
		s.logger.Info("no active matrix position, commission level skipped",
			zap.String("investment_id", inv.InvestmentID), zap.String("sponsor_id", sponsor.MemberID), zap.Int("level", level))
		return none, false, nil
	}
	if err != nil {
		return none, false, err
	}
	tier, ok := s.cfg.Catalog.ByID(sponsor.CurrentTierID)
	if !ok {
		return none, false, nil
	}
	rate := tier.LevelRate(level)
	if rate.LessThanOrEqual(decimal.Zero) {
		return none, false, nil
	}
	// One commission per (referrer, investment, level); reprocessing must not
	// duplicate rows.
	if _, err := s.commissions.GetByUniqueKey(ctx, sponsor.MemberID, inv.InvestmentID, level); err == nil {
		return none, false, nil
	} else if err != domain.ErrNotFound {
		return none, false, err
	}

	now := s.nowFn()
	comm := domain.ReferralCommission{
		CommissionID:     "comm_" + uuid.NewString(),
		ReferrerID:       sponsor.MemberID,
		ReferredID:       inv.MemberID,
		InvestmentID:     inv.InvestmentID,
		Level:            level,
		Rate:             rate,
		Amount:           domain.PercentOf(inv.Amount, rate),
		ClawedBackAmount: decimal.Zero,
		Status:           domain.CommissionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.commissions.Create(ctx, comm); err != nil {
		if err == domain.ErrConflict {
			return none, false, nil
		}
		return none, false, err
	}
	// Commission row and its ledger entry are one unit: if the entry cannot
	// be appended the row is removed again.
	if err := s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID: "txn_" + uuid.NewString(), MemberID: comm.ReferrerID,
		EntryType: domain.LedgerTypeReferralCommission, ReferenceID: comm.CommissionID,
		Amount: comm.Amount, Status: domain.LedgerStatusPending, OccurredAt: now,
	}); err != nil {
		_ = s.commissions.Delete(ctx, comm.CommissionID)
		return none, false, err
	}
	return comm, true, nil
}

// SettleCommission advances a pending commission to paid. From that point the
// amount counts as received and only a clawback can reduce it.
func (s *Service) SettleCommission(ctx context.Context, actor Actor, commissionID string) (domain.ReferralCommission, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ReferralCommission{}, domain.ErrUnauthorized
	}
	if !isAdmin(actor) {
		return domain.ReferralCommission{}, domain.ErrForbidden
	}
	commissionID = strings.TrimSpace(commissionID)
	if commissionID == "" {
		return domain.ReferralCommission{}, domain.ErrInvalidInput
	}
	comm, err := s.commissions.GetByID(ctx, commissionID)
	if err != nil {
		return domain.ReferralCommission{}, err
	}
	if comm.Status != domain.CommissionStatusPending {
		return domain.ReferralCommission{}, domain.ErrCommissionSettled
	}
	now := s.nowFn()
	comm.Status = domain.CommissionStatusPaid
	comm.PaidAt = &now
	comm.UpdatedAt = now
	if err := s.commissions.Update(ctx, comm); err != nil {
		return domain.ReferralCommission{}, err
	}
	_ = s.appendAudit(ctx, comm.ReferrerID, "commission.settled", actor.SubjectID, "", map[string]string{"commission_id": comm.CommissionID})
	_ = s.enqueueCommissionSettled(ctx, comm, actor.RequestID, now)
	return comm, nil
}
