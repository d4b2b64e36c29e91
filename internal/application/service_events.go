package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/growthfund/matrix-engine/internal/contracts"
	"github.com/growthfund/matrix-engine/internal/domain"
	"github.com/growthfund/matrix-engine/internal/ports"
)

// HandleCanonicalEvent is the consumer entry point. The only input the engine
// accepts is investment.activated; the event id doubles as the idempotency key
// so redelivery replays the stored outcome instead of re-crediting anyone.
func (s *Service) HandleCanonicalEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	if err := validateEnvelope(envelope); err != nil {
		return err
	}
	if !domain.IsCanonicalInputEvent(envelope.EventType) {
		return domain.ErrUnsupportedEventType
	}
	expectedClass := domain.CanonicalEventClass(envelope.EventType)
	if strings.TrimSpace(envelope.EventClass) != "" && expectedClass != "" && envelope.EventClass != expectedClass {
		return domain.ErrUnsupportedEventClass
	}
	if err := validatePartitionKeyInvariant(envelope, domain.CanonicalPartitionKeyPath(envelope.EventType)); err != nil {
		return err
	}
	now := s.nowFn()
	dup, err := s.eventDedup.IsDuplicate(ctx, envelope.EventID, now)
	if err != nil {
		return err
	}
	if dup {
		return nil
	}
	if err := s.applyInboundEvent(ctx, envelope); err != nil {
		return err
	}
	return s.eventDedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, now.Add(s.cfg.EventDedupTTL))
}

func (s *Service) applyInboundEvent(ctx context.Context, envelope contracts.EventEnvelope) error {
	var p contracts.InvestmentActivatedPayload
	if err := json.Unmarshal(envelope.Data, &p); err != nil {
		return domain.ErrInvalidEnvelope
	}
	actor := Actor{
		SubjectID:      "system:" + envelope.SourceService,
		Role:           "admin",
		RequestID:      envelope.TraceID,
		IdempotencyKey: "evt:" + envelope.EventID,
	}
	_, err := s.ActivateInvestment(ctx, actor, ActivateInvestmentInput{
		MemberID:     strings.TrimSpace(p.MemberID),
		InvestmentID: strings.TrimSpace(p.InvestmentID),
		Amount:       p.Amount,
	})
	return err
}

func (s *Service) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		now := s.nowFn()
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents != nil {
				if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
					if s.dlq != nil {
						nowDLQ := s.nowFn()
						_ = s.dlq.PublishDLQ(ctx, contracts.DLQRecord{OriginalEvent: rec.Envelope, ErrorSummary: err.Error(), RetryCount: 1, FirstSeenAt: nowDLQ, LastErrorAt: nowDLQ, SourceTopic: rec.Envelope.EventType, DLQTopic: "matrix-engine.dlq", TraceID: rec.Envelope.TraceID})
					}
					return err
				}
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil {
				if err := s.analytics.PublishAnalytics(ctx, rec.Envelope); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedEventClass, rec.EventClass)
		}
		if err := s.outbox.MarkSent(ctx, rec.RecordID, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey, traceID string, occurredAt time.Time, payload any) error {
	if s.outbox == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	trace := strings.TrimSpace(traceID)
	if trace == "" {
		trace = uuid.NewString()
	}
	envelope := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       occurredAt,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          trace,
		SchemaVersion:    "v1",
		Data:             raw,
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: envelope.EventClass,
		Envelope:   envelope,
		CreatedAt:  s.nowFn(),
	})
}

func (s *Service) enqueueMemberRegistered(ctx context.Context, row domain.Member, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventMemberRegistered, row.MemberID, traceID, now, map[string]string{
		"member_id": row.MemberID, "sponsor_id": row.SponsorID, "display_name": row.DisplayName,
	})
}

func (s *Service) enqueueMemberPlaced(ctx context.Context, pos domain.MatrixPosition, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventMemberPlaced, pos.MemberID, traceID, now, contracts.MemberPlacedPayload{
		MemberID: pos.MemberID, SponsorID: pos.SponsorID, Level: pos.Level, Slot: pos.Slot,
		PlacedAt: pos.PlacedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueTierUpgraded(ctx context.Context, member domain.Member, fromTierID string, tier domain.Tier, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventTierUpgraded, member.MemberID, "", now, contracts.TierUpgradedPayload{
		MemberID: member.MemberID, FromTierID: fromTierID, ToTierID: tier.TierID, ToRank: tier.Rank,
		TotalInvested: member.TotalInvested, EffectiveAt: now.Format(time.RFC3339),
	})
}

func (s *Service) enqueueCommissionCreated(ctx context.Context, comm domain.ReferralCommission, traceID string) error {
	return s.enqueueEvent(ctx, domain.EventCommissionCreated, comm.ReferrerID, traceID, comm.CreatedAt, contracts.CommissionCreatedPayload{
		MemberID: comm.ReferrerID, CommissionID: comm.CommissionID, ReferredID: comm.ReferredID,
		InvestmentID: comm.InvestmentID, Level: comm.Level, Rate: comm.Rate, Amount: comm.Amount,
		CreatedAt: comm.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Service) enqueueCommissionSettled(ctx context.Context, comm domain.ReferralCommission, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventCommissionSettled, comm.ReferrerID, traceID, now, contracts.CommissionSettledPayload{
		MemberID: comm.ReferrerID, CommissionID: comm.CommissionID, Amount: comm.Amount,
		SettledAt: now.Format(time.RFC3339),
	})
}

func (s *Service) enqueueCommissionClawedBack(ctx context.Context, comm domain.ReferralCommission, cb domain.CommissionClawback, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventCommissionClawedBack, comm.ReferrerID, traceID, now, contracts.CommissionClawedBackPayload{
		MemberID: comm.ReferrerID, CommissionID: comm.CommissionID, ClawbackID: cb.ClawbackID,
		InvestmentID: comm.InvestmentID, Amount: cb.Amount, ElapsedMonths: cb.ElapsedMonths,
		Reason: cb.Reason, OccurredAt: now.Format(time.RFC3339),
	})
}

func (s *Service) enqueueCommissionVoided(ctx context.Context, comm domain.ReferralCommission, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventCommissionVoided, comm.ReferrerID, traceID, now, contracts.CommissionClawedBackPayload{
		MemberID: comm.ReferrerID, CommissionID: comm.CommissionID, InvestmentID: comm.InvestmentID,
		Amount: comm.Amount, OccurredAt: now.Format(time.RFC3339),
	})
}

func (s *Service) enqueueWithdrawalTransition(ctx context.Context, eventType string, row domain.WithdrawalRequest, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, eventType, row.MemberID, traceID, now, contracts.WithdrawalTransitionPayload{
		MemberID: row.MemberID, RequestID: row.RequestID, InvestmentID: row.InvestmentID,
		Type: row.Type, Status: row.Status, RequestedAmount: row.RequestedAmount,
		PenaltyAmount: row.PenaltyAmount, NetAmount: row.NetAmount,
		OccurredAt: now.Format(time.RFC3339),
	})
}

func (s *Service) enqueueDistributionStarted(ctx context.Context, dist domain.ProfitDistribution, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDistributionStarted, dist.DistributionID, traceID, now, contracts.DistributionStartedPayload{
		DistributionID: dist.DistributionID, PeriodType: dist.PeriodType,
		PeriodStart: dist.PeriodStart.Format(time.RFC3339), PeriodEnd: dist.PeriodEnd.Format(time.RFC3339),
		PoolAmount: dist.PoolAmount, StartedAt: now.Format(time.RFC3339),
	})
}

func (s *Service) enqueueDistributionCompleted(ctx context.Context, dist domain.ProfitDistribution, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDistributionComplete, dist.DistributionID, traceID, now, contracts.DistributionCompletedPayload{
		DistributionID: dist.DistributionID, PeriodType: dist.PeriodType,
		PoolAmount: dist.PoolAmount, DistributedAmount: dist.DistributedAmount,
		MemberCount: dist.MemberCount, CompletedAt: now.Format(time.RFC3339),
	})
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() {
		return domain.ErrInvalidEnvelope
	}
	if strings.TrimSpace(event.SourceService) == "" || strings.TrimSpace(event.TraceID) == "" || strings.TrimSpace(event.SchemaVersion) == "" {
		return domain.ErrInvalidEnvelope
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidEnvelope
	}
	return nil
}

func validatePartitionKeyInvariant(event contracts.EventEnvelope, expectedPath string) error {
	if strings.TrimSpace(expectedPath) == "" || event.PartitionKeyPath != expectedPath {
		return domain.ErrInvalidEnvelope
	}
	field := strings.TrimPrefix(expectedPath, "data.")
	var payload map[string]any
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return domain.ErrInvalidEnvelope
	}
	v, ok := payload[field]
	if !ok || fmt.Sprint(v) != event.PartitionKey {
		return domain.ErrInvalidEnvelope
	}
	return nil
}
