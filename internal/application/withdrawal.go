package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthfund/matrix-engine/internal/domain"
)

// SubmitWithdrawal validates and prices a withdrawal request. Full and
// partial withdrawals require the lock-in to have elapsed; emergency requests
// bypass the lock-in gate but always run through the penalty schedule, and
// must carry a reason. A member can have one outstanding request at a time.
func (s *Service) SubmitWithdrawal(ctx context.Context, actor Actor, in SubmitWithdrawalInput) (domain.WithdrawalRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.WithdrawalRequest{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.WithdrawalRequest{}, domain.ErrIdempotencyRequired
	}
	in.MemberID = strings.TrimSpace(in.MemberID)
	in.InvestmentID = strings.TrimSpace(in.InvestmentID)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Reason = strings.TrimSpace(in.Reason)
	if in.MemberID == "" || !domain.ValidWithdrawalType(in.Type) {
		return domain.WithdrawalRequest{}, domain.ErrInvalidInput
	}
	if in.Type == domain.WithdrawalTypeEmergency && in.Reason == "" {
		return domain.WithdrawalRequest{}, domain.ErrReasonRequired
	}
	requestHash := hashJSON(map[string]any{"op": "submit_withdrawal", "member_id": in.MemberID, "investment_id": in.InvestmentID, "type": in.Type, "amount": in.Amount.String()})
	if raw, ok, err := s.getIdempotent(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.WithdrawalRequest{}, err
	} else if ok {
		var out domain.WithdrawalRequest
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.WithdrawalRequest{}, err
	}

	unlock := s.memberLocks.lock(in.MemberID)
	defer unlock()

	member, err := s.members.GetByID(ctx, in.MemberID)
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	if !member.IsActive() {
		return domain.WithdrawalRequest{}, domain.ErrMemberInactive
	}
	if _, err := s.withdrawals.FindOutstandingByMember(ctx, in.MemberID); err == nil {
		return domain.WithdrawalRequest{}, domain.ErrWithdrawalPending
	} else if err != domain.ErrNotFound {
		return domain.WithdrawalRequest{}, err
	}

	now := s.nowFn()
	requested := in.Amount
	penalty := decimal.Zero

	if in.InvestmentID != "" {
		inv, err := s.investments.GetByID(ctx, in.InvestmentID)
		if err != nil {
			return domain.WithdrawalRequest{}, err
		}
		if inv.MemberID != in.MemberID || !inv.IsActive() {
			return domain.WithdrawalRequest{}, domain.ErrNotWithdrawable
		}
		remaining := inv.Amount.Sub(inv.WithdrawnAmount)
		if remaining.LessThanOrEqual(decimal.Zero) {
			return domain.WithdrawalRequest{}, domain.ErrNotWithdrawable
		}
		switch in.Type {
		case domain.WithdrawalTypeFull, domain.WithdrawalTypeEmergency:
			if in.Type == domain.WithdrawalTypeFull && !inv.PastLockIn(now) {
				return domain.WithdrawalRequest{}, domain.ErrNotWithdrawable
			}
			requested = remaining
		case domain.WithdrawalTypePartial:
			if !inv.PastLockIn(now) {
				return domain.WithdrawalRequest{}, domain.ErrNotWithdrawable
			}
			ceiling := domain.PercentOf(inv.Amount, s.cfg.PartialCeilingPct)
			if requested.LessThanOrEqual(decimal.Zero) || requested.GreaterThan(ceiling) || requested.GreaterThan(remaining) {
				return domain.WithdrawalRequest{}, domain.ErrAmountExceedsLimit
			}
		}
		penalty = domain.ComputePenalty(s.cfg.PenaltySchedule, requested, inv.ElapsedMonths(now), s.cfg.LockInMonths)
	} else {
		// General request: draws on accrued profit shares only. The allowance
		// is a balance, not a per-request cap, so prior processed general
		// requests reduce what remains. No principal moves, so no penalty
		// applies.
		if in.Type != domain.WithdrawalTypePartial {
			return domain.WithdrawalRequest{}, domain.ErrInvalidInput
		}
		accrued, err := s.ledger.SumByMemberAndType(ctx, in.MemberID, domain.LedgerTypeProfitShare)
		if err != nil {
			return domain.WithdrawalRequest{}, err
		}
		drawn, err := s.generalDrawn(ctx, in.MemberID)
		if err != nil {
			return domain.WithdrawalRequest{}, err
		}
		available := domain.PercentOf(accrued, s.cfg.PartialCeilingPct).Sub(drawn)
		if requested.LessThanOrEqual(decimal.Zero) || requested.GreaterThan(available) {
			return domain.WithdrawalRequest{}, domain.ErrAmountExceedsLimit
		}
	}

	row := domain.WithdrawalRequest{
		RequestID:       "wd_" + uuid.NewString(),
		MemberID:        in.MemberID,
		InvestmentID:    in.InvestmentID,
		Type:            in.Type,
		RequestedAmount: requested.Round(2),
		PenaltyAmount:   penalty,
		NetAmount:       requested.Round(2).Sub(penalty),
		Reason:          in.Reason,
		Status:          domain.WithdrawalStatusPending,
		RequestedAt:     now,
		UpdatedAt:       now,
	}
	if err := s.withdrawals.Create(ctx, row); err != nil {
		return domain.WithdrawalRequest{}, err
	}
	_ = s.appendAudit(ctx, row.MemberID, "withdrawal.requested", actor.SubjectID, in.Reason, map[string]string{
		"request_id": row.RequestID, "type": row.Type, "amount": row.RequestedAmount.String(),
	})
	_ = s.enqueueWithdrawalTransition(ctx, domain.EventWithdrawalRequested, row, actor.RequestID, now)
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, row)
	return row, nil
}

// generalDrawn sums what earlier processed general requests already paid out
// of the member's profit-share allowance.
func (s *Service) generalDrawn(ctx context.Context, memberID string) (decimal.Decimal, error) {
	rows, err := s.withdrawals.ListByMemberID(ctx, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, r := range rows {
		if r.InvestmentID == "" && r.Status == domain.WithdrawalStatusProcessed {
			sum = sum.Add(r.RequestedAmount)
		}
	}
	return sum, nil
}

// ApproveWithdrawal marks a pending request approved. No money moves until
// processing.
func (s *Service) ApproveWithdrawal(ctx context.Context, actor Actor, requestID, notes string) (domain.WithdrawalRequest, error) {
	return s.transitionWithdrawal(ctx, actor, requestID, notes, domain.WithdrawalStatusApproved)
}

// RejectWithdrawal is terminal; the investment stays active and unaffected.
func (s *Service) RejectWithdrawal(ctx context.Context, actor Actor, requestID, notes string) (domain.WithdrawalRequest, error) {
	if strings.TrimSpace(notes) == "" {
		return domain.WithdrawalRequest{}, domain.ErrInvalidInput
	}
	return s.transitionWithdrawal(ctx, actor, requestID, notes, domain.WithdrawalStatusRejected)
}

// ProcessWithdrawal settles an approved request: posts the net-amount ledger
// entry, moves the investment's withdrawn total, and, when the withdrawal is
// early, reverses upstream commissions through the clawback schedule.
func (s *Service) ProcessWithdrawal(ctx context.Context, actor Actor, requestID string) (domain.WithdrawalRequest, error) {
	return s.transitionWithdrawal(ctx, actor, requestID, "", domain.WithdrawalStatusProcessed)
}

func (s *Service) transitionWithdrawal(ctx context.Context, actor Actor, requestID, notes, target string) (domain.WithdrawalRequest, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.WithdrawalRequest{}, domain.ErrUnauthorized
	}
	if !isAdmin(actor) {
		return domain.WithdrawalRequest{}, domain.ErrForbidden
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domain.WithdrawalRequest{}, domain.ErrInvalidInput
	}
	row, err := s.withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	if !domain.CanTransition(row.Status, target) {
		return domain.WithdrawalRequest{}, domain.ErrInvalidTransition
	}

	now := s.nowFn()
	row.Status = target
	row.UpdatedAt = now
	if notes != "" {
		row.AdminNotes = notes
	}
	eventType := ""
	switch target {
	case domain.WithdrawalStatusApproved:
		row.ApprovedBy = actor.SubjectID
		row.ApprovedAt = &now
		eventType = domain.EventWithdrawalApproved
	case domain.WithdrawalStatusRejected:
		row.RejectedAt = &now
		eventType = domain.EventWithdrawalRejected
	case domain.WithdrawalStatusProcessed:
		row.ProcessedAt = &now
		eventType = domain.EventWithdrawalProcessed
	}
	if err := s.withdrawals.Update(ctx, row); err != nil {
		return domain.WithdrawalRequest{}, err
	}

	if target == domain.WithdrawalStatusProcessed {
		if err := s.settleWithdrawal(ctx, actor, &row, now); err != nil {
			return domain.WithdrawalRequest{}, err
		}
	}
	_ = s.appendAudit(ctx, row.MemberID, eventType, actor.SubjectID, notes, map[string]string{"request_id": row.RequestID})
	_ = s.enqueueWithdrawalTransition(ctx, eventType, row, actor.RequestID, now)
	return row, nil
}

func (s *Service) settleWithdrawal(ctx context.Context, actor Actor, row *domain.WithdrawalRequest, now time.Time) error {
	if err := s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID: "txn_" + uuid.NewString(), MemberID: row.MemberID,
		EntryType: domain.LedgerTypeWithdrawal, ReferenceID: row.RequestID,
		Amount: row.NetAmount.Neg(), Status: domain.LedgerStatusPosted, OccurredAt: now,
	}); err != nil {
		return err
	}
	if row.InvestmentID == "" {
		return nil
	}
	inv, err := s.investments.GetByID(ctx, row.InvestmentID)
	if err != nil {
		return err
	}
	inv.WithdrawnAmount = inv.WithdrawnAmount.Add(row.RequestedAmount)
	if inv.WithdrawnAmount.GreaterThanOrEqual(inv.Amount) {
		inv.Status = domain.InvestmentStatusWithdrawn
	}
	inv.UpdatedAt = now
	if err := s.investments.Update(ctx, inv); err != nil {
		return err
	}

	elapsed := inv.ElapsedMonths(now)
	if elapsed >= s.cfg.LockInMonths {
		return nil
	}
	return s.clawbackInvestment(ctx, actor, inv, elapsed, "early withdrawal "+row.RequestID)
}
