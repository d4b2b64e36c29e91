package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/growthfund/matrix-engine/internal/domain"
)

func (s *Service) RegisterMember(ctx context.Context, actor Actor, in RegisterMemberInput) (domain.Member, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Member{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.Member{}, domain.ErrIdempotencyRequired
	}
	in.MemberID = strings.TrimSpace(in.MemberID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.SponsorID = strings.TrimSpace(in.SponsorID)
	if in.DisplayName == "" {
		return domain.Member{}, domain.ErrInvalidInput
	}
	requestHash := hashJSON(map[string]any{"op": "register_member", "member_id": in.MemberID, "name": in.DisplayName, "sponsor_id": in.SponsorID})
	if raw, ok, err := s.getIdempotent(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Member{}, err
	} else if ok {
		var out domain.Member
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Member{}, err
	}
	if in.SponsorID != "" {
		sponsor, err := s.members.GetByID(ctx, in.SponsorID)
		if err != nil {
			return domain.Member{}, err
		}
		if !sponsor.IsActive() {
			return domain.Member{}, domain.ErrMemberInactive
		}
	}
	now := s.nowFn()
	row := domain.Member{
		MemberID:      in.MemberID,
		DisplayName:   in.DisplayName,
		SponsorID:     in.SponsorID,
		Status:        domain.MemberStatusActive,
		TotalInvested: decimal.Zero,
		JoinedAt:      now,
		UpdatedAt:     now,
	}
	if row.MemberID == "" {
		row.MemberID = "mem_" + uuid.NewString()
	}
	if err := s.members.Create(ctx, row); err != nil {
		return domain.Member{}, err
	}
	_ = s.appendAudit(ctx, row.MemberID, "member.registered", actor.SubjectID, "", map[string]string{"sponsor_id": row.SponsorID})
	_ = s.enqueueMemberRegistered(ctx, row, actor.RequestID, now)
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, row)
	return row, nil
}

// ActivateInvestment is the single entry point behind the deposit-approval
// gate: it records the investment, moves the member's tier if the cumulative
// amount now qualifies, places the member into the sponsor's matrix on their
// first investment, and walks the tree upward emitting commissions.
func (s *Service) ActivateInvestment(ctx context.Context, actor Actor, in ActivateInvestmentInput) (ActivateInvestmentResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return ActivateInvestmentResult{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return ActivateInvestmentResult{}, domain.ErrIdempotencyRequired
	}
	in.MemberID = strings.TrimSpace(in.MemberID)
	in.InvestmentID = strings.TrimSpace(in.InvestmentID)
	if in.MemberID == "" || in.Amount.LessThanOrEqual(decimal.Zero) {
		return ActivateInvestmentResult{}, domain.ErrInvalidInput
	}
	requestHash := hashJSON(map[string]any{"op": "activate_investment", "member_id": in.MemberID, "investment_id": in.InvestmentID, "amount": in.Amount.String()})
	if raw, ok, err := s.getIdempotent(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return ActivateInvestmentResult{}, err
	} else if ok {
		var out ActivateInvestmentResult
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return ActivateInvestmentResult{}, err
	}

	unlock := s.memberLocks.lock(in.MemberID)
	defer unlock()

	member, err := s.members.GetByID(ctx, in.MemberID)
	if err != nil {
		return ActivateInvestmentResult{}, err
	}
	if !member.IsActive() {
		return ActivateInvestmentResult{}, domain.ErrMemberInactive
	}

	now := s.nowFn()
	inv := domain.Investment{
		InvestmentID:    in.InvestmentID,
		MemberID:        member.MemberID,
		Amount:          in.Amount.Round(2),
		Status:          domain.InvestmentStatusActive,
		WithdrawnAmount: decimal.Zero,
		ActivatedAt:     now,
		LockInEndsAt:    now.AddDate(0, s.cfg.LockInMonths, 0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if inv.InvestmentID == "" {
		inv.InvestmentID = "inv_" + uuid.NewString()
	}
	newTotal := member.TotalInvested.Add(inv.Amount)
	if tier, ok := s.cfg.Catalog.Resolve(newTotal); ok {
		inv.TierIDAtTime = tier.TierID
	}
	if err := s.investments.Create(ctx, inv); err != nil {
		return ActivateInvestmentResult{}, err
	}
	// Investment row and its ledger entry are one unit: if the entry cannot
	// be appended the row is removed again.
	if err := s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID: "txn_" + uuid.NewString(), MemberID: member.MemberID,
		EntryType: domain.LedgerTypeInvestment, ReferenceID: inv.InvestmentID,
		Amount: inv.Amount, Status: domain.LedgerStatusPosted, OccurredAt: now,
	}); err != nil {
		_ = s.investments.Delete(ctx, inv.InvestmentID)
		return ActivateInvestmentResult{}, err
	}

	member.TotalInvested = newTotal
	upgraded, newTier, err := s.applyTierUpgrade(ctx, &member, actor, now)
	if err != nil {
		return ActivateInvestmentResult{}, err
	}
	member.UpdatedAt = now
	if err := s.members.Update(ctx, member); err != nil {
		return ActivateInvestmentResult{}, err
	}

	result := ActivateInvestmentResult{Investment: inv, TierUpgraded: upgraded, TierID: member.CurrentTierID}
	if upgraded {
		result.TierID = newTier.TierID
	}

	// Placement happens once, on the first investment under this sponsor. A
	// member without a sponsor gets no position and no upstream commissions.
	if member.SponsorID != "" {
		if _, err := s.positions.GetByMemberAndSponsor(ctx, member.MemberID, member.SponsorID); err == domain.ErrNotFound {
			pos, perr := s.placeMember(ctx, member.SponsorID, member.MemberID)
			switch perr {
			case nil:
				result.Placed = true
				result.Position = pos
				_ = s.enqueueMemberPlaced(ctx, pos, actor.RequestID, now)
			case domain.ErrMatrixFull:
				s.logger.Warn("matrix depth cap exceeded, member left unplaced",
					zap.String("member_id", member.MemberID), zap.String("sponsor_id", member.SponsorID))
			default:
				return ActivateInvestmentResult{}, perr
			}
		} else if err != nil {
			return ActivateInvestmentResult{}, err
		}
	}

	commissions, err := s.emitCommissions(ctx, actor, inv, member)
	if err != nil {
		return ActivateInvestmentResult{}, err
	}
	result.Commissions = commissions

	_ = s.appendAudit(ctx, member.MemberID, "investment.activated", actor.SubjectID, "", map[string]string{
		"investment_id": inv.InvestmentID, "amount": inv.Amount.String(),
	})
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, result)
	return result, nil
}

func (s *Service) appendAudit(ctx context.Context, memberID, action, actorID, reason string, meta map[string]string) error {
	if s.auditLogs == nil {
		return nil
	}
	return s.auditLogs.Append(ctx, domain.EngineAuditLog{
		AuditLogID: "audit_" + uuid.NewString(), MemberID: memberID, Action: action,
		ActorID: actorID, Reason: reason, Metadata: meta, CreatedAt: s.nowFn(),
	})
}

func isAdmin(actor Actor) bool { return strings.ToLower(strings.TrimSpace(actor.Role)) == "admin" }

func hashJSON(v any) string {
	raw, _ := json.Marshal(v)
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:])
}

func (s *Service) getIdempotent(ctx context.Context, key, expectedHash string) ([]byte, bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return nil, false, err
	}
	if rec.RequestHash != expectedHash {
		return nil, false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return nil, false, nil
	}
	return rec.ResponseBody, true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	now := s.nowFn()
	return s.idempotency.Reserve(ctx, key, requestHash, now, now.Add(s.cfg.IdempotencyTTL))
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, v any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	raw, _ := json.Marshal(v)
	return s.idempotency.Complete(ctx, key, code, raw, s.nowFn())
}
