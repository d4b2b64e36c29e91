package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/growthfund/matrix-engine/internal/domain"
)

// clawbackInvestment reverses upstream commission for every commission keyed
// to a withdrawn investment. Pending commissions are simply voided: nothing
// was paid, so there is nothing to reverse. Paid commissions get a clawback
// record and a negative ledger entry, bounded by the amount still unreversed.
func (s *Service) clawbackInvestment(ctx context.Context, actor Actor, inv domain.Investment, elapsedMonths int, reason string) error {
	rows, err := s.commissions.ListByInvestmentID(ctx, inv.InvestmentID)
	if err != nil {
		return err
	}
	for _, comm := range rows {
		if err := s.clawbackCommission(ctx, actor, comm, inv, elapsedMonths, reason); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) clawbackCommission(ctx context.Context, actor Actor, comm domain.ReferralCommission, inv domain.Investment, elapsedMonths int, reason string) error {
	now := s.nowFn()
	switch comm.Status {
	case domain.CommissionStatusPending:
		return s.voidCommission(ctx, actor, comm, reason, now)
	case domain.CommissionStatusPaid:
		// fall through to the reversal below
	default:
		// Already voided or fully clawed back; reversing twice is a no-op.
		return nil
	}

	pct := s.cfg.ClawbackSchedule.PercentFor(elapsedMonths)
	if pct.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	amount := domain.PercentOf(comm.Amount, pct)
	if remaining := comm.RemainingPaid(); amount.GreaterThan(remaining) {
		amount = remaining
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	cb := domain.CommissionClawback{
		ClawbackID:    "cbk_" + uuid.NewString(),
		CommissionID:  comm.CommissionID,
		ReferrerID:    comm.ReferrerID,
		InvestmentID:  inv.InvestmentID,
		Amount:        amount,
		ElapsedMonths: elapsedMonths,
		Reason:        reason,
		CreatedAt:     now,
	}
	if err := s.clawbacks.Create(ctx, cb); err != nil {
		return err
	}
	if err := s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID: "txn_" + uuid.NewString(), MemberID: comm.ReferrerID,
		EntryType: domain.LedgerTypeCommissionClawback, ReferenceID: cb.ClawbackID,
		Amount: amount.Neg(), Status: domain.LedgerStatusPosted, OccurredAt: now,
	}); err != nil {
		return err
	}

	comm.ClawedBackAmount = comm.ClawedBackAmount.Add(amount)
	if comm.ClawedBackAmount.GreaterThanOrEqual(comm.Amount) {
		comm.Status = domain.CommissionStatusClawedBack
	}
	comm.UpdatedAt = now
	if err := s.commissions.Update(ctx, comm); err != nil {
		return err
	}
	_ = s.appendAudit(ctx, comm.ReferrerID, "commission.clawed_back", actor.SubjectID, reason, map[string]string{
		"commission_id": comm.CommissionID, "clawback_id": cb.ClawbackID, "amount": amount.String(),
	})
	_ = s.enqueueCommissionClawedBack(ctx, comm, cb, actor.RequestID, now)
	return nil
}

func (s *Service) voidCommission(ctx context.Context, actor Actor, comm domain.ReferralCommission, reason string, now time.Time) error {
	comm.Status = domain.CommissionStatusVoided
	comm.UpdatedAt = now
	if err := s.commissions.Update(ctx, comm); err != nil {
		return err
	}
	s.logger.Info("pending commission voided",
		zap.String("commission_id", comm.CommissionID), zap.String("reason", reason))
	_ = s.appendAudit(ctx, comm.ReferrerID, "commission.voided", actor.SubjectID, reason, map[string]string{"commission_id": comm.CommissionID})
	_ = s.enqueueCommissionVoided(ctx, comm, actor.RequestID, now)
	return nil
}
