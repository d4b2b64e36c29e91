package contracts

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	DLQTopic      string        `json:"dlq_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}

// InvestmentActivatedPayload is the consumed input event: the deposit/payment
// gate has approved a deposit and this engine takes over.
type InvestmentActivatedPayload struct {
	MemberID     string          `json:"member_id"`
	InvestmentID string          `json:"investment_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	TierIDAtTime string          `json:"tier_id_at_time,omitempty"`
	ActivatedAt  string          `json:"activated_at,omitempty"`
}

type MemberPlacedPayload struct {
	MemberID  string `json:"member_id"`
	SponsorID string `json:"sponsor_id"`
	Level     int    `json:"level"`
	Slot      int    `json:"slot"`
	PlacedAt  string `json:"placed_at"`
}

type TierUpgradedPayload struct {
	MemberID      string          `json:"member_id"`
	FromTierID    string          `json:"from_tier_id,omitempty"`
	ToTierID      string          `json:"to_tier_id"`
	ToRank        int             `json:"to_rank"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	EffectiveAt   string          `json:"effective_at"`
}

type CommissionCreatedPayload struct {
	MemberID     string          `json:"member_id"`
	CommissionID string          `json:"commission_id"`
	ReferredID   string          `json:"referred_id"`
	InvestmentID string          `json:"investment_id"`
	Level        int             `json:"level"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    string          `json:"created_at"`
}

type CommissionSettledPayload struct {
	MemberID     string          `json:"member_id"`
	CommissionID string          `json:"commission_id"`
	Amount       decimal.Decimal `json:"amount"`
	SettledAt    string          `json:"settled_at"`
}

type CommissionClawedBackPayload struct {
	MemberID      string          `json:"member_id"`
	CommissionID  string          `json:"commission_id"`
	ClawbackID    string          `json:"clawback_id,omitempty"`
	InvestmentID  string          `json:"investment_id"`
	Amount        decimal.Decimal `json:"amount"`
	ElapsedMonths int             `json:"elapsed_months"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    string          `json:"occurred_at"`
}

type WithdrawalTransitionPayload struct {
	MemberID        string          `json:"member_id"`
	RequestID       string          `json:"request_id"`
	InvestmentID    string          `json:"investment_id,omitempty"`
	Type            string          `json:"type"`
	Status          string          `json:"status"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	PenaltyAmount   decimal.Decimal `json:"penalty_amount"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	OccurredAt      string          `json:"occurred_at"`
}

type DistributionStartedPayload struct {
	DistributionID string          `json:"distribution_id"`
	PeriodType     string          `json:"period_type"`
	PeriodStart    string          `json:"period_start"`
	PeriodEnd      string          `json:"period_end"`
	PoolAmount     decimal.Decimal `json:"pool_amount"`
	StartedAt      string          `json:"started_at"`
}

type DistributionCompletedPayload struct {
	MemberID          string          `json:"member_id"`
	DistributionID    string          `json:"distribution_id"`
	PeriodType        string          `json:"period_type"`
	PoolAmount        decimal.Decimal `json:"pool_amount"`
	DistributedAmount decimal.Decimal `json:"distributed_amount"`
	MemberCount       int             `json:"member_count"`
	CompletedAt       string          `json:"completed_at"`
}
