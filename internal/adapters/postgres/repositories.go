package postgres

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/growthfund/matrix-engine/internal/domain"
	"github.com/growthfund/matrix-engine/internal/ports"
)

type Repositories struct {
	Members       *MemberRepository
	TierHistory   *TierHistoryRepository
	Investments   *InvestmentRepository
	Positions     *MatrixPositionRepository
	Commissions   *CommissionRepository
	Clawbacks     *ClawbackRepository
	Withdrawals   *WithdrawalRepository
	Distributions *DistributionRepository
	Shares        *ProfitShareRepository
	Ledger        *LedgerRepository
	AuditLogs     *AuditLogRepository
	Idempotency   *IdempotencyRepository
	EventDedup    *EventDedupRepository
	Outbox        *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Members:       &MemberRepository{byID: map[string]domain.Member{}},
		TierHistory:   &TierHistoryRepository{byMemberID: map[string][]domain.TierHistoryEntry{}},
		Investments:   &InvestmentRepository{byID: map[string]domain.Investment{}, byMemberID: map[string][]string{}},
		Positions:     &MatrixPositionRepository{byID: map[string]domain.MatrixPosition{}, bySponsorLevel: map[string][]string{}, byMemberSponsor: map[string]string{}},
		Commissions:   &CommissionRepository{byID: map[string]domain.ReferralCommission{}, byUnique: map[string]string{}, byInvestmentID: map[string][]string{}, byReferrerID: map[string][]string{}},
		Clawbacks:     &ClawbackRepository{byID: map[string]domain.CommissionClawback{}},
		Withdrawals:   &WithdrawalRepository{byID: map[string]domain.WithdrawalRequest{}, byMemberID: map[string][]string{}},
		Distributions: &DistributionRepository{byID: map[string]domain.ProfitDistribution{}},
		Shares:        &ProfitShareRepository{byID: map[string]domain.ProfitShare{}, byDistributionID: map[string][]string{}},
		Ledger:        &LedgerRepository{records: []domain.LedgerEntry{}},
		AuditLogs:     &AuditLogRepository{records: []domain.EngineAuditLog{}},
		Idempotency:   &IdempotencyRepository{records: map[string]ports.IdempotencyRecord{}},
		EventDedup:    &EventDedupRepository{records: map[string]dedupRecord{}},
		Outbox:        &OutboxRepository{records: map[string]ports.OutboxRecord{}},
	}
}

type MemberRepository struct {
	mu   sync.RWMutex
	byID map[string]domain.Member
}

func (r *MemberRepository) Create(_ context.Context, row domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.MemberID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.MemberID] = row
	return nil
}
func (r *MemberRepository) GetByID(_ context.Context, memberID string) (domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.byID[memberID]
	if !ok {
		return domain.Member{}, domain.ErrNotFound
	}
	return row, nil
}
func (r *MemberRepository) Update(_ context.Context, row domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.MemberID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[row.MemberID] = row
	return nil
}
func (r *MemberRepository) ListActive(_ context.Context) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Member, 0, len(r.byID))
	for _, row := range r.byID {
		if row.Status == domain.MemberStatusActive {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

type TierHistoryRepository struct {
	mu         sync.RWMutex
	byMemberID map[string][]domain.TierHistoryEntry
}

func (r *TierHistoryRepository) Append(_ context.Context, row domain.TierHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMemberID[row.MemberID] = append(r.byMemberID[row.MemberID], row)
	return nil
}
func (r *TierHistoryRepository) ListByMemberID(_ context.Context, memberID string) ([]domain.TierHistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.byMemberID[memberID]
	out := make([]domain.TierHistoryEntry, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveAt.Before(out[j].EffectiveAt) })
	return out, nil
}

type InvestmentRepository struct {
	mu         sync.RWMutex
	byID       map[string]domain.Investment
	byMemberID map[string][]string
}

func (r *InvestmentRepository) Create(_ context.Context, row domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.InvestmentID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.InvestmentID] = row
	r.byMemberID[row.MemberID] = append(r.byMemberID[row.MemberID], row.InvestmentID)
	return nil
}
func (r *InvestmentRepository) Delete(_ context.Context, investmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[investmentID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, investmentID)
	r.byMemberID[row.MemberID] = removeID(r.byMemberID[row.MemberID], investmentID)
	return nil
}
func (r *InvestmentRepository) GetByID(_ context.Context, investmentID string) (domain.Investment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.byID[investmentID]
	if !ok {
		return domain.Investment{}, domain.ErrNotFound
	}
	return row, nil
}
func (r *InvestmentRepository) Update(_ context.Context, row domain.Investment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.InvestmentID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[row.InvestmentID] = row
	return nil
}
func (r *InvestmentRepository) ListByMemberID(_ context.Context, memberID string) ([]domain.Investment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byMemberID[memberID]
	out := make([]domain.Investment, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	return out, nil
}
type MatrixPositionRepository struct {
	mu              sync.RWMutex
	byID            map[string]domain.MatrixPosition
	bySponsorLevel  map[string][]string
	byMemberSponsor map[string]string
}

func sponsorLevelKey(sponsorID string, level int) string {
	return fmt.Sprintf("%s|%d", sponsorID, level)
}
func memberSponsorKey(memberID, sponsorID string) string {
	return memberID + "|" + sponsorID
}

func (r *MatrixPositionRepository) Create(_ context.Context, row domain.MatrixPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.PositionID]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byMemberSponsor[memberSponsorKey(row.MemberID, row.SponsorID)]; ok {
		return domain.ErrConflict
	}
	r.byID[row.PositionID] = row
	key := sponsorLevelKey(row.SponsorID, row.Level)
	r.bySponsorLevel[key] = append(r.bySponsorLevel[key], row.PositionID)
	r.byMemberSponsor[memberSponsorKey(row.MemberID, row.SponsorID)] = row.PositionID
	return nil
}
func (r *MatrixPositionRepository) GetByMemberAndSponsor(_ context.Context, memberID, sponsorID string) (domain.MatrixPosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byMemberSponsor[memberSponsorKey(memberID, sponsorID)]
	if !ok {
		return domain.MatrixPosition{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}
func (r *MatrixPositionRepository) ListBySponsorAndLevel(_ context.Context, sponsorID string, level int) ([]domain.MatrixPosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.bySponsorLevel[sponsorLevelKey(sponsorID, level)]
	out := make([]domain.MatrixPosition, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}
func (r *MatrixPositionRepository) CountDownline(_ context.Context, sponsorID string) (map[int]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[int]int{}
	for _, row := range r.byID {
		if row.SponsorID == sponsorID && row.Active {
			out[row.Level]++
		}
	}
	return out, nil
}
func (r *MatrixPositionRepository) Update(_ context.Context, row domain.MatrixPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.PositionID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[row.PositionID] = row
	return nil
}

type CommissionRepository struct {
	mu             sync.RWMutex
	byID           map[string]domain.ReferralCommission
	byUnique       map[string]string
	byInvestmentID map[string][]string
	byReferrerID   map[string][]string
}

func commissionUniqueKey(referrerID, investmentID string, level int) string {
	return fmt.Sprintf("%s|%s|%d", referrerID, investmentID, level)
}

func (r *CommissionRepository) Create(_ context.Context, row domain.ReferralCommission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.CommissionID]; ok {
		return domain.ErrConflict
	}
	key := commissionUniqueKey(row.ReferrerID, row.InvestmentID, row.Level)
	if _, ok := r.byUnique[key]; ok {
		return domain.ErrConflict
	}
	r.byID[row.CommissionID] = row
	r.byUnique[key] = row.CommissionID
	r.byInvestmentID[row.InvestmentID] = append(r.byInvestmentID[row.InvestmentID], row.CommissionID)
	r.byReferrerID[row.ReferrerID] = append(r.byReferrerID[row.ReferrerID], row.CommissionID)
	return nil
}
func (r *CommissionRepository) Delete(_ context.Context, commissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[commissionID]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, commissionID)
	delete(r.byUnique, commissionUniqueKey(row.ReferrerID, row.InvestmentID, row.Level))
	r.byInvestmentID[row.InvestmentID] = removeID(r.byInvestmentID[row.InvestmentID], commissionID)
	r.byReferrerID[row.ReferrerID] = removeID(r.byReferrerID[row.ReferrerID], commissionID)
	return nil
}
func (r *CommissionRepository) GetByID(_ context.Context, commissionID string) (domain.ReferralCommission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.byID[commissionID]
	if !ok {
		return domain.ReferralCommission{}, domain.ErrNotFound
	}
	return row, nil
}
func (r *CommissionRepository) GetByUniqueKey(_ context.Context, referrerID, investmentID string, level int) (domain.ReferralCommission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUnique[commissionUniqueKey(referrerID, investmentID, level)]
	if !ok {
		return domain.ReferralCommission{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}
func (r *CommissionRepository) Update(_ context.Context, row domain.ReferralCommission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.CommissionID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[row.CommissionID] = row
	return nil
}
func (r *CommissionRepository) ListByInvestmentID(_ context.Context, investmentID string) ([]domain.ReferralCommission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(r.byInvestmentID[investmentID]), nil
}
func (r *CommissionRepository) ListByReferrerID(_ context.Context, referrerID string) ([]domain.ReferralCommission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(r.byReferrerID[referrerID]), nil
}
func (r *CommissionRepository) collect(ids []string) []domain.ReferralCommission {
	out := make([]domain.ReferralCommission, 0, len(ids))
	for _, id := range ids {
		if row, ok := r.byID[id]; ok {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].CommissionID < out[j].CommissionID
	})
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type ClawbackRepository struct {
	mu    sync.RWMutex
	byID  map[string]domain.CommissionClawback
	order []string
}

func (r *ClawbackRepository) Create(_ context.Context, row domain.CommissionClawback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.ClawbackID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.ClawbackID] = row
	r.order = append(r.order, row.ClawbackID)
	return nil
}
func (r *ClawbackRepository) ListByReferrerID(_ context.Context, referrerID string) ([]domain.CommissionClawback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.CommissionClawback
	for _, id := range r.order {
		if row := r.byID[id]; row.ReferrerID == referrerID {
			out = append(out, row)
		}
	}
	return out, nil
}

type WithdrawalRepository struct {
	mu         sync.RWMutex
	byID       map[string]domain.WithdrawalRequest
	byMemberID map[string][]string
}

func (r *WithdrawalRepository) Create(_ context.Context, row domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.RequestID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.RequestID] = row
	r.byMemberID[row.MemberID] = append(r.byMemberID[row.MemberID], row.RequestID)
	return nil
}
func (r *WithdrawalRepository) GetByID(_ context.Context, requestID string) (domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.byID[requestID]
	if !ok {
		return domain.WithdrawalRequest{}, domain.ErrNotFound
	}
	return row, nil
}
func (r *WithdrawalRepository) Update(_ context.Context, row domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.RequestID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[row.RequestID] = row
	return nil
}
func (r *WithdrawalRepository) ListByMemberID(_ context.Context, memberID string) ([]domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byMemberID[memberID]
	out := make([]domain.WithdrawalRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}
func (r *WithdrawalRepository) FindOutstandingByMember(_ context.Context, memberID string) (domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.byMemberID[memberID] {
		row := r.byID[id]
		if row.Outstanding() {
			return row, nil
		}
	}
	return domain.WithdrawalRequest{}, domain.ErrNotFound
}

type DistributionRepository struct {
	mu    sync.RWMutex
	byID  map[string]domain.ProfitDistribution
	order []string
}

func (r *DistributionRepository) Create(_ context.Context, row domain.ProfitDistribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.DistributionID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.DistributionID] = row
	r.order = append(r.order, row.DistributionID)
	return nil
}
func (r *DistributionRepository) GetByID(_ context.Context, distributionID string) (domain.ProfitDistribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.byID[distributionID]
	if !ok {
		return domain.ProfitDistribution{}, domain.ErrNotFound
	}
	return row, nil
}
func (r *DistributionRepository) Update(_ context.Context, row domain.ProfitDistribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.DistributionID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[row.DistributionID] = row
	return nil
}
func (r *DistributionRepository) List(_ context.Context) ([]domain.ProfitDistribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProfitDistribution, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

type ProfitShareRepository struct {
	mu               sync.RWMutex
	byID             map[string]domain.ProfitShare
	byDistributionID map[string][]string
}

func (r *ProfitShareRepository) Create(_ context.Context, row domain.ProfitShare) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.ShareID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.ShareID] = row
	r.byDistributionID[row.DistributionID] = append(r.byDistributionID[row.DistributionID], row.ShareID)
	return nil
}
func (r *ProfitShareRepository) ListByDistributionID(_ context.Context, distributionID string) ([]domain.ProfitShare, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byDistributionID[distributionID]
	out := make([]domain.ProfitShare, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}
func (r *ProfitShareRepository) DeleteByDistributionID(_ context.Context, distributionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.byDistributionID[distributionID] {
		delete(r.byID, id)
	}
	delete(r.byDistributionID, distributionID)
	return nil
}
type LedgerRepository struct {
	mu      sync.RWMutex
	records []domain.LedgerEntry
}

func (r *LedgerRepository) Append(_ context.Context, row domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, row)
	return nil
}
func (r *LedgerRepository) ListByMemberID(_ context.Context, memberID string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, row := range r.records {
		if row.MemberID == memberID {
			out = append(out, row)
		}
	}
	return out, nil
}
func (r *LedgerRepository) SumByMemberAndType(_ context.Context, memberID, entryType string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, row := range r.records {
		if row.MemberID == memberID && row.EntryType == entryType {
			sum = sum.Add(row.Amount)
		}
	}
	return sum, nil
}
func (r *LedgerRepository) DeleteByReferenceID(_ context.Context, referenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	for _, row := range r.records {
		if row.ReferenceID != referenceID {
			kept = append(kept, row)
		}
	}
	r.records = kept
	return nil
}

type AuditLogRepository struct {
	mu      sync.RWMutex
	records []domain.EngineAuditLog
}

func (r *AuditLogRepository) Append(_ context.Context, row domain.EngineAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, row)
	return nil
}
func (r *AuditLogRepository) ListByMemberID(_ context.Context, memberID string) ([]domain.EngineAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.EngineAuditLog
	for _, row := range r.records {
		if row.MemberID == memberID {
			out = append(out, row)
		}
	}
	return out, nil
}

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	if now.After(rec.ExpiresAt) {
		delete(r.records, key)
		return nil, nil
	}
	cp := rec
	cp.ResponseBody = append([]byte(nil), rec.ResponseBody...)
	return &cp, nil
}
func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, now, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[key]; ok && now.Before(existing.ExpiresAt) {
		if existing.RequestHash != requestHash {
			return domain.ErrIdempotencyConflict
		}
		return nil
	}
	r.records[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}
func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.ResponseCode = responseCode
	rec.ResponseBody = append([]byte(nil), responseBody...)
	if at.After(rec.ExpiresAt) {
		rec.ExpiresAt = at.Add(7 * 24 * time.Hour)
	}
	r.records[key] = rec
	return nil
}

type dedupRecord struct {
	eventType string
	expiresAt time.Time
}
type EventDedupRepository struct {
	mu      sync.Mutex
	records map[string]dedupRecord
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[eventID]
	if !ok {
		return false, nil
	}
	if now.After(rec.expiresAt) {
		delete(r.records, eventID)
		return false, nil
	}
	return true, nil
}
func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, eventType string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[eventID] = dedupRecord{eventType: eventType, expiresAt: expiresAt}
	return nil
}

type OutboxRepository struct {
	mu      sync.Mutex
	records map[string]ports.OutboxRecord
	order   []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, row ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[row.RecordID] = row
	r.order = append(r.order, row.RecordID)
	return nil
}
func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		row, ok := r.records[id]
		if !ok || row.SentAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	row.SentAt = &at
	r.records[recordID] = row
	return nil
}
