package application

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/growthfund/matrix-engine/internal/domain"
	"github.com/growthfund/matrix-engine/internal/ports"
)

type Config struct {
	ServiceName string

	Catalog domain.TierCatalog

	MatrixWidth     int
	MatrixDepthCap  int
	CommissionDepth int

	LockInMonths        int
	PartialCeilingPct   decimal.Decimal
	PenaltySchedule     domain.PolicySchedule
	ClawbackSchedule    domain.PolicySchedule
	AnnualEligibleAge   int // months an investment must have been active
	IdempotencyTTL      time.Duration
	EventDedupTTL       time.Duration
	ConsumerPollInterval time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type RegisterMemberInput struct {
	MemberID    string
	DisplayName string
	SponsorID   string
}

type ActivateInvestmentInput struct {
	MemberID     string
	InvestmentID string
	Amount       decimal.Decimal
}

type ActivateInvestmentResult struct {
	Investment   domain.Investment
	TierUpgraded bool
	TierID       string
	Placed       bool
	Position     domain.MatrixPosition
	Commissions  []domain.ReferralCommission
}

type SubmitWithdrawalInput struct {
	MemberID     string
	InvestmentID string
	Type         string
	Amount       decimal.Decimal
	Reason       string
}

type RunDistributionInput struct {
	Pool        decimal.Decimal
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type TierProgress struct {
	Member        domain.Member
	CurrentTier   *domain.Tier
	NextTier      *domain.Tier
	Progress      decimal.Decimal
}

type DownlineStat struct {
	Level    int
	Occupied int
	Capacity int
}

type Downline struct {
	MemberID string
	Total    int
	Levels   []DownlineStat
}

type Service struct {
	cfg    Config
	logger *zap.Logger

	members       ports.MemberRepository
	tierHistory   ports.TierHistoryRepository
	investments   ports.InvestmentRepository
	positions     ports.MatrixPositionRepository
	commissions   ports.CommissionRepository
	clawbacks     ports.ClawbackRepository
	withdrawals   ports.WithdrawalRepository
	distributions ports.DistributionRepository
	shares        ports.ProfitShareRepository
	ledger        ports.LedgerRepository
	auditLogs     ports.AuditLogRepository
	idempotency   ports.IdempotencyRepository
	eventDedup    ports.EventDedupRepository
	outbox        ports.OutboxRepository

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher

	// Serialize read-then-write critical sections: cumulative amount + tier
	// resolution per member, slot search-and-claim per sponsor subtree,
	// commission check-and-insert per investment.
	memberLocks     keyedMutex
	sponsorLocks    keyedMutex
	investmentLocks keyedMutex

	nowFn func() time.Time
}

type Dependencies struct {
	Config Config
	Logger *zap.Logger

	// Now overrides the service clock. Leave nil for wall time.
	Now func() time.Time

	Members       ports.MemberRepository
	TierHistory   ports.TierHistoryRepository
	Investments   ports.InvestmentRepository
	Positions     ports.MatrixPositionRepository
	Commissions   ports.CommissionRepository
	Clawbacks     ports.ClawbackRepository
	Withdrawals   ports.WithdrawalRepository
	Distributions ports.DistributionRepository
	Shares        ports.ProfitShareRepository
	Ledger        ports.LedgerRepository
	AuditLogs     ports.AuditLogRepository
	Idempotency   ports.IdempotencyRepository
	EventDedup    ports.EventDedupRepository
	Outbox        ports.OutboxRepository

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	DLQ          ports.DLQPublisher
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "matrix-engine"
	}
	if cfg.MatrixWidth <= 0 {
		cfg.MatrixWidth = 3
	}
	if cfg.MatrixDepthCap <= 0 {
		cfg.MatrixDepthCap = 10
	}
	if cfg.CommissionDepth <= 0 {
		cfg.CommissionDepth = 3
	}
	if cfg.LockInMonths <= 0 {
		cfg.LockInMonths = 12
	}
	if cfg.PartialCeilingPct.LessThanOrEqual(decimal.Zero) {
		cfg.PartialCeilingPct = decimal.NewFromInt(50)
	}
	if len(cfg.PenaltySchedule) == 0 {
		cfg.PenaltySchedule = domain.DefaultPenaltySchedule()
	}
	if len(cfg.ClawbackSchedule) == 0 {
		cfg.ClawbackSchedule = domain.DefaultClawbackSchedule()
	}
	if cfg.AnnualEligibleAge <= 0 {
		cfg.AnnualEligibleAge = 12
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.ConsumerPollInterval <= 0 {
		cfg.ConsumerPollInterval = 2 * time.Second
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:    cfg,
		logger: logger,

		members:       deps.Members,
		tierHistory:   deps.TierHistory,
		investments:   deps.Investments,
		positions:     deps.Positions,
		commissions:   deps.Commissions,
		clawbacks:     deps.Clawbacks,
		withdrawals:   deps.Withdrawals,
		distributions: deps.Distributions,
		shares:        deps.Shares,
		ledger:        deps.Ledger,
		auditLogs:     deps.AuditLogs,
		idempotency:   deps.Idempotency,
		eventDedup:    deps.EventDedup,
		outbox:        deps.Outbox,

		domainEvents: deps.DomainEvents,
		analytics:    deps.Analytics,
		dlq:          deps.DLQ,

		nowFn: nowFn,
	}
}
