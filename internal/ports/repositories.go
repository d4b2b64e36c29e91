package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/growthfund/matrix-engine/internal/domain"
)

type MemberRepository interface {
	Create(ctx context.Context, row domain.Member) error
	GetByID(ctx context.Context, memberID string) (domain.Member, error)
	Update(ctx context.Context, row domain.Member) error
	ListActive(ctx context.Context) ([]domain.Member, error)
}

type TierHistoryRepository interface {
	Append(ctx context.Context, row domain.TierHistoryEntry) error
	ListByMemberID(ctx context.Context, memberID string) ([]domain.TierHistoryEntry, error)
}

type InvestmentRepository interface {
	Create(ctx context.Context, row domain.Investment) error
	Delete(ctx context.Context, investmentID string) error
	GetByID(ctx context.Context, investmentID string) (domain.Investment, error)
	Update(ctx context.Context, row domain.Investment) error
	ListByMemberID(ctx context.Context, memberID string) ([]domain.Investment, error)
}

type MatrixPositionRepository interface {
	Create(ctx context.Context, row domain.MatrixPosition) error
	GetByMemberAndSponsor(ctx context.Context, memberID, sponsorID string) (domain.MatrixPosition, error)
	ListBySponsorAndLevel(ctx context.Context, sponsorID string, level int) ([]domain.MatrixPosition, error)
	CountDownline(ctx context.Context, sponsorID string) (map[int]int, error)
	Update(ctx context.Context, row domain.MatrixPosition) error
}

type CommissionRepository interface {
	Create(ctx context.Context, row domain.ReferralCommission) error
	Delete(ctx context.Context, commissionID string) error
	GetByID(ctx context.Context, commissionID string) (domain.ReferralCommission, error)
	GetByUniqueKey(ctx context.Context, referrerID, investmentID string, level int) (domain.ReferralCommission, error)
	Update(ctx context.Context, row domain.ReferralCommission) error
	ListByInvestmentID(ctx context.Context, investmentID string) ([]domain.ReferralCommission, error)
	ListByReferrerID(ctx context.Context, referrerID string) ([]domain.ReferralCommission, error)
}

type ClawbackRepository interface {
	Create(ctx context.Context, row domain.CommissionClawback) error
	ListByReferrerID(ctx context.Context, referrerID string) ([]domain.CommissionClawback, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, row domain.WithdrawalRequest) error
	GetByID(ctx context.Context, requestID string) (domain.WithdrawalRequest, error)
	Update(ctx context.Context, row domain.WithdrawalRequest) error
	ListByMemberID(ctx context.Context, memberID string) ([]domain.WithdrawalRequest, error)
	FindOutstandingByMember(ctx context.Context, memberID string) (domain.WithdrawalRequest, error)
}

type DistributionRepository interface {
	Create(ctx context.Context, row domain.ProfitDistribution) error
	GetByID(ctx context.Context, distributionID string) (domain.ProfitDistribution, error)
	Update(ctx context.Context, row domain.ProfitDistribution) error
	List(ctx context.Context) ([]domain.ProfitDistribution, error)
}

type ProfitShareRepository interface {
	Create(ctx context.Context, row domain.ProfitShare) error
	ListByDistributionID(ctx context.Context, distributionID string) ([]domain.ProfitShare, error)
	DeleteByDistributionID(ctx context.Context, distributionID string) error
}

type LedgerRepository interface {
	Append(ctx context.Context, row domain.LedgerEntry) error
	ListByMemberID(ctx context.Context, memberID string) ([]domain.LedgerEntry, error)
	SumByMemberAndType(ctx context.Context, memberID, entryType string) (decimal.Decimal, error)
	DeleteByReferenceID(ctx context.Context, referenceID string) error
}

type AuditLogRepository interface {
	Append(ctx context.Context, row domain.EngineAuditLog) error
	ListByMemberID(ctx context.Context, memberID string) ([]domain.EngineAuditLog, error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, now, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}
