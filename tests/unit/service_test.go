package unit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	eventadapter "github.com/growthfund/matrix-engine/internal/adapters/events"
	"github.com/growthfund/matrix-engine/internal/adapters/postgres"
	"github.com/growthfund/matrix-engine/internal/app/bootstrap"
	"github.com/growthfund/matrix-engine/internal/application"
	"github.com/growthfund/matrix-engine/internal/contracts"
	"github.com/growthfund/matrix-engine/internal/domain"
	"github.com/growthfund/matrix-engine/internal/ports"
)

func serviceDependencies(repos *postgres.Repositories, pub *eventadapter.MemoryDomainPublisher) application.Dependencies {
	return application.Dependencies{
		Config: application.Config{Catalog: bootstrap.DefaultCatalog()},
		Members: repos.Members, TierHistory: repos.TierHistory, Investments: repos.Investments,
		Positions: repos.Positions, Commissions: repos.Commissions, Clawbacks: repos.Clawbacks,
		Withdrawals: repos.Withdrawals, Distributions: repos.Distributions, Shares: repos.Shares,
		Ledger: repos.Ledger, AuditLogs: repos.AuditLogs, Idempotency: repos.Idempotency,
		EventDedup: repos.EventDedup, Outbox: repos.Outbox,
		DomainEvents: pub,
	}
}

func newServiceWithPublisher() (*application.Service, *eventadapter.MemoryDomainPublisher) {
	repos := postgres.NewRepositories()
	pub := eventadapter.NewMemoryDomainPublisher()
	return application.NewService(serviceDependencies(repos, pub)), pub
}

// newServiceWithClock pins the service clock to *clock; tests move it by
// assigning through the pointer.
func newServiceWithClock(clock *time.Time) *application.Service {
	repos := postgres.NewRepositories()
	pub := eventadapter.NewMemoryDomainPublisher()
	deps := serviceDependencies(repos, pub)
	deps.Now = func() time.Time { return *clock }
	return application.NewService(deps)
}

func memberActor(subject, key string) application.Actor {
	return application.Actor{SubjectID: subject, Role: "member", IdempotencyKey: key}
}

func adminActor(key string) application.Actor {
	return application.Actor{SubjectID: "admin-1", Role: "admin", IdempotencyKey: key}
}

func mustRegister(t *testing.T, svc *application.Service, memberID, sponsorID string) {
	t.Helper()
	_, err := svc.RegisterMember(context.Background(), memberActor(memberID, "idem-reg-"+memberID), application.RegisterMemberInput{
		MemberID: memberID, DisplayName: "Member " + memberID, SponsorID: sponsorID,
	})
	if err != nil {
		t.Fatalf("register %s: %v", memberID, err)
	}
}

func mustInvest(t *testing.T, svc *application.Service, memberID string, amount int64, key string) application.ActivateInvestmentResult {
	t.Helper()
	result, err := svc.ActivateInvestment(context.Background(), memberActor(memberID, key), application.ActivateInvestmentInput{
		MemberID: memberID, Amount: decimal.NewFromInt(amount),
	})
	if err != nil {
		t.Fatalf("invest %s: %v", memberID, err)
	}
	return result
}

func TestActivateInvestmentPlacesAndPaysCommission(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	mustRegister(t, svc, "sp-1", "")
	mustInvest(t, svc, "sp-1", 1000, "idem-inv-sp1")
	mustRegister(t, svc, "m-1", "sp-1")

	result := mustInvest(t, svc, "m-1", 1000, "idem-inv-m1")
	if !result.Placed {
		t.Fatalf("expected first investment to place the member")
	}
	if result.Position.Level != 1 || result.Position.Slot != 0 {
		t.Fatalf("expected level 1 slot 0, got level %d slot %d", result.Position.Level, result.Position.Slot)
	}
	if result.TierID != "tier_starter" {
		t.Fatalf("expected tier_starter, got %s", result.TierID)
	}
	if len(result.Commissions) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(result.Commissions))
	}
	comm := result.Commissions[0]
	if comm.ReferrerID != "sp-1" || comm.Level != 1 {
		t.Fatalf("unexpected commission target: %s level %d", comm.ReferrerID, comm.Level)
	}
	if !comm.Amount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected 7%% of 1000 = 70, got %s", comm.Amount)
	}
	if comm.Status != domain.CommissionStatusPending {
		t.Fatalf("expected pending commission, got %s", comm.Status)
	}
}

func TestPlacementSpillsBreadthFirst(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	mustRegister(t, svc, "sp-2", "")

	want := []struct{ level, slot int }{{1, 0}, {1, 1}, {1, 2}, {2, 0}, {2, 1}}
	for i, w := range want {
		id := "dl-" + string(rune('a'+i))
		mustRegister(t, svc, id, "sp-2")
		result := mustInvest(t, svc, id, 600, "idem-inv-"+id)
		if !result.Placed {
			t.Fatalf("member %s not placed", id)
		}
		if result.Position.Level != w.level || result.Position.Slot != w.slot {
			t.Fatalf("member %s: expected (%d,%d), got (%d,%d)", id, w.level, w.slot, result.Position.Level, result.Position.Slot)
		}
	}

	downline, err := svc.GetDownline(context.Background(), memberActor("sp-2", ""), "sp-2")
	if err != nil {
		t.Fatalf("downline: %v", err)
	}
	if downline.Total != 5 {
		t.Fatalf("expected 5 downline members, got %d", downline.Total)
	}
	if len(downline.Levels) != 2 || downline.Levels[0].Occupied != 3 || downline.Levels[1].Occupied != 2 {
		t.Fatalf("unexpected level stats: %+v", downline.Levels)
	}
	if downline.Levels[1].Capacity != 9 {
		t.Fatalf("expected level 2 capacity 9, got %d", downline.Levels[1].Capacity)
	}
}

func TestCommissionsWalkThreeLevelsAtReferrerRates(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	mustRegister(t, svc, "top", "")
	mustInvest(t, svc, "top", 10000, "idem-top") // Elite
	mustRegister(t, svc, "mid", "top")
	mustInvest(t, svc, "mid", 2500, "idem-mid") // Builder
	mustRegister(t, svc, "low", "mid")
	mustInvest(t, svc, "low", 1000, "idem-low") // Starter
	mustRegister(t, svc, "leaf", "low")

	result := mustInvest(t, svc, "leaf", 1000, "idem-leaf")
	if len(result.Commissions) != 3 {
		t.Fatalf("expected 3 commission levels, got %d", len(result.Commissions))
	}
	// Each level pays at the referrer's own tier rate, not the investor's.
	expect := []struct {
		referrer string
		level    int
		amount   int64
	}{
		{"low", 1, 70}, // Starter level-1 7%
		{"mid", 2, 30}, // Builder level-2 3%
		{"top", 3, 30}, // Elite level-3 3%
	}
	for i, e := range expect {
		comm := result.Commissions[i]
		if comm.ReferrerID != e.referrer || comm.Level != e.level {
			t.Fatalf("commission %d: expected %s level %d, got %s level %d", i, e.referrer, e.level, comm.ReferrerID, comm.Level)
		}
		if !comm.Amount.Equal(decimal.NewFromInt(e.amount)) {
			t.Fatalf("commission %d: expected %d, got %s", i, e.amount, comm.Amount)
		}
	}
}

func TestActivateInvestmentIdempotentReplay(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "sp-3", "")
	mustInvest(t, svc, "sp-3", 1000, "idem-sp3")
	mustRegister(t, svc, "m-3", "sp-3")

	actor := memberActor("m-3", "idem-replay")
	in := application.ActivateInvestmentInput{MemberID: "m-3", Amount: decimal.NewFromInt(1000)}
	first, err := svc.ActivateInvestment(ctx, actor, in)
	if err != nil {
		t.Fatalf("first activation: %v", err)
	}
	second, err := svc.ActivateInvestment(ctx, actor, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.Investment.InvestmentID != second.Investment.InvestmentID {
		t.Fatalf("replay returned a different investment: %s vs %s", first.Investment.InvestmentID, second.Investment.InvestmentID)
	}
	comms, err := svc.ListCommissions(ctx, memberActor("sp-3", ""), "sp-3")
	if err != nil {
		t.Fatalf("list commissions: %v", err)
	}
	if len(comms) != 1 {
		t.Fatalf("expected a single commission after replay, got %d", len(comms))
	}
}

func TestTierUpgradesAreMonotonic(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "m-4", "")

	r1 := mustInvest(t, svc, "m-4", 1000, "idem-t1")
	if !r1.TierUpgraded || r1.TierID != "tier_starter" {
		t.Fatalf("expected upgrade to tier_starter, got upgraded=%v tier=%s", r1.TierUpgraded, r1.TierID)
	}
	r2 := mustInvest(t, svc, "m-4", 600, "idem-t2")
	if r2.TierUpgraded {
		t.Fatalf("1600 total still maps to tier_starter, no upgrade expected")
	}
	r3 := mustInvest(t, svc, "m-4", 1000, "idem-t3")
	if !r3.TierUpgraded || r3.TierID != "tier_builder" {
		t.Fatalf("expected upgrade to tier_builder at 2600 total, got upgraded=%v tier=%s", r3.TierUpgraded, r3.TierID)
	}

	progress, err := svc.GetTierProgress(ctx, memberActor("m-4", ""), "m-4")
	if err != nil {
		t.Fatalf("tier progress: %v", err)
	}
	if progress.CurrentTier == nil || progress.CurrentTier.TierID != "tier_builder" {
		t.Fatalf("expected current tier_builder")
	}
	if progress.NextTier == nil || progress.NextTier.TierID != "tier_growth" {
		t.Fatalf("expected next tier_growth")
	}
	// 2600 of the 2500..5000 span.
	if progress.Progress.LessThan(decimal.NewFromInt(4)) || progress.Progress.GreaterThan(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected progress %s", progress.Progress)
	}
}

func TestWithdrawalGates(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "m-5", "")
	result := mustInvest(t, svc, "m-5", 1000, "idem-w1")
	invID := result.Investment.InvestmentID

	_, err := svc.SubmitWithdrawal(ctx, memberActor("m-5", "idem-wd-full"), application.SubmitWithdrawalInput{
		MemberID: "m-5", InvestmentID: invID, Type: domain.WithdrawalTypeFull,
	})
	if err != domain.ErrNotWithdrawable {
		t.Fatalf("full before lock-in: expected ErrNotWithdrawable, got %v", err)
	}
	_, err = svc.SubmitWithdrawal(ctx, memberActor("m-5", "idem-wd-part"), application.SubmitWithdrawalInput{
		MemberID: "m-5", InvestmentID: invID, Type: domain.WithdrawalTypePartial, Amount: decimal.NewFromInt(100),
	})
	if err != domain.ErrNotWithdrawable {
		t.Fatalf("partial before lock-in: expected ErrNotWithdrawable, got %v", err)
	}
	_, err = svc.SubmitWithdrawal(ctx, memberActor("m-5", "idem-wd-em"), application.SubmitWithdrawalInput{
		MemberID: "m-5", InvestmentID: invID, Type: domain.WithdrawalTypeEmergency,
	})
	if err != domain.ErrReasonRequired {
		t.Fatalf("emergency without reason: expected ErrReasonRequired, got %v", err)
	}
	// General request draws on accrued profit shares; none exist yet.
	_, err = svc.SubmitWithdrawal(ctx, memberActor("m-5", "idem-wd-gen"), application.SubmitWithdrawalInput{
		MemberID: "m-5", Type: domain.WithdrawalTypePartial, Amount: decimal.NewFromInt(10),
	})
	if err != domain.ErrAmountExceedsLimit {
		t.Fatalf("general partial without accrued shares: expected ErrAmountExceedsLimit, got %v", err)
	}
}

func TestEmergencyWithdrawalLifecycleWithClawback(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "sp-6", "")
	mustInvest(t, svc, "sp-6", 1000, "idem-sp6")
	mustRegister(t, svc, "m-6", "sp-6")
	result := mustInvest(t, svc, "m-6", 1000, "idem-m6")
	commID := result.Commissions[0].CommissionID

	if _, err := svc.SettleCommission(ctx, adminActor(""), commID); err != nil {
		t.Fatalf("settle commission: %v", err)
	}
	if _, err := svc.SettleCommission(ctx, adminActor(""), commID); err != domain.ErrCommissionSettled {
		t.Fatalf("second settle: expected ErrCommissionSettled, got %v", err)
	}

	row, err := svc.SubmitWithdrawal(ctx, memberActor("m-6", "idem-wd-m6"), application.SubmitWithdrawalInput{
		MemberID: "m-6", InvestmentID: result.Investment.InvestmentID,
		Type: domain.WithdrawalTypeEmergency, Reason: "medical",
	})
	if err != nil {
		t.Fatalf("submit emergency: %v", err)
	}
	if !row.RequestedAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("emergency takes the full remaining principal, got %s", row.RequestedAmount)
	}
	if !row.PenaltyAmount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected 25%% early penalty = 250, got %s", row.PenaltyAmount)
	}
	if !row.NetAmount.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("expected net 750, got %s", row.NetAmount)
	}

	if _, err := svc.SubmitWithdrawal(ctx, memberActor("m-6", "idem-wd-m6b"), application.SubmitWithdrawalInput{
		MemberID: "m-6", InvestmentID: result.Investment.InvestmentID,
		Type: domain.WithdrawalTypeEmergency, Reason: "again",
	}); err != domain.ErrWithdrawalPending {
		t.Fatalf("second request while outstanding: expected ErrWithdrawalPending, got %v", err)
	}
	if _, err := svc.ProcessWithdrawal(ctx, adminActor(""), row.RequestID); err != domain.ErrInvalidTransition {
		t.Fatalf("process before approval: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.RejectWithdrawal(ctx, adminActor(""), row.RequestID, ""); err != domain.ErrInvalidInput {
		t.Fatalf("reject without notes: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, adminActor(""), row.RequestID, "verified"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	processed, err := svc.ProcessWithdrawal(ctx, adminActor(""), row.RequestID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed.Status != domain.WithdrawalStatusProcessed {
		t.Fatalf("expected processed status, got %s", processed.Status)
	}

	// Early exit claws back 25% of the paid upstream commission.
	comms, err := svc.ListCommissions(ctx, memberActor("sp-6", ""), "sp-6")
	if err != nil {
		t.Fatalf("list commissions: %v", err)
	}
	if len(comms) != 1 {
		t.Fatalf("expected one commission, got %d", len(comms))
	}
	if comms[0].ClawedBackAmount.StringFixed(2) != "17.50" {
		t.Fatalf("expected 17.50 clawed back, got %s", comms[0].ClawedBackAmount)
	}
	if comms[0].Status != domain.CommissionStatusPaid {
		t.Fatalf("partially clawed commission stays paid, got %s", comms[0].Status)
	}

	clawbacks, err := svc.ListClawbacks(ctx, memberActor("sp-6", ""), "sp-6")
	if err != nil {
		t.Fatalf("list clawbacks: %v", err)
	}
	if len(clawbacks) != 1 {
		t.Fatalf("expected one clawback record, got %d", len(clawbacks))
	}
	if clawbacks[0].CommissionID != commID || clawbacks[0].Amount.StringFixed(2) != "17.50" {
		t.Fatalf("unexpected clawback record: %+v", clawbacks[0])
	}

	entries, err := svc.ListLedger(ctx, memberActor("sp-6", ""), "sp-6")
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	foundClawback := false
	for _, e := range entries {
		if e.EntryType == domain.LedgerTypeCommissionClawback {
			foundClawback = true
			if e.Amount.StringFixed(2) != "-17.50" {
				t.Fatalf("expected clawback ledger entry -17.50, got %s", e.Amount)
			}
		}
	}
	if !foundClawback {
		t.Fatalf("clawback ledger entry missing")
	}
}

func TestEarlyWithdrawalVoidsPendingCommissions(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "sp-7", "")
	mustInvest(t, svc, "sp-7", 1000, "idem-sp7")
	mustRegister(t, svc, "m-7", "sp-7")
	result := mustInvest(t, svc, "m-7", 1000, "idem-m7")

	row, err := svc.SubmitWithdrawal(ctx, memberActor("m-7", "idem-wd-m7"), application.SubmitWithdrawalInput{
		MemberID: "m-7", InvestmentID: result.Investment.InvestmentID,
		Type: domain.WithdrawalTypeEmergency, Reason: "relocation",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, adminActor(""), row.RequestID, "ok"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.ProcessWithdrawal(ctx, adminActor(""), row.RequestID); err != nil {
		t.Fatalf("process: %v", err)
	}

	comms, err := svc.ListCommissions(ctx, memberActor("sp-7", ""), "sp-7")
	if err != nil {
		t.Fatalf("list commissions: %v", err)
	}
	if len(comms) != 1 || comms[0].Status != domain.CommissionStatusVoided {
		t.Fatalf("expected the unpaid commission to be voided, got %+v", comms)
	}
	if !comms[0].ClawedBackAmount.IsZero() {
		t.Fatalf("voided commission must not accumulate clawback, got %s", comms[0].ClawedBackAmount)
	}
}

func TestQuarterlyDistributionConservesPool(t *testing.T) {
	svc, pub := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "q-1", "")
	mustRegister(t, svc, "q-2", "")
	mustRegister(t, svc, "q-3", "")
	mustInvest(t, svc, "q-1", 1000, "idem-q1")
	mustInvest(t, svc, "q-2", 3000, "idem-q2")
	mustInvest(t, svc, "q-3", 6000, "idem-q3")

	dist, err := svc.RunQuarterlyDistribution(ctx, adminActor("idem-qd-1"), application.RunDistributionInput{
		Pool: decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("quarterly distribution: %v", err)
	}
	if dist.Status != domain.DistributionStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", dist.Status, dist.FailureReason)
	}
	if dist.MemberCount != 3 {
		t.Fatalf("expected 3 members, got %d", dist.MemberCount)
	}
	if !dist.DistributedAmount.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("distributed must equal the pool, got %s", dist.DistributedAmount)
	}

	_, shares, err := svc.GetDistribution(ctx, adminActor(""), dist.DistributionID)
	if err != nil {
		t.Fatalf("get distribution: %v", err)
	}
	want := map[string]string{"q-1": "10000.00", "q-2": "30000.00", "q-3": "60000.00"}
	for _, share := range shares {
		if share.Amount.StringFixed(2) != want[share.MemberID] {
			t.Fatalf("share for %s: expected %s, got %s", share.MemberID, want[share.MemberID], share.Amount)
		}
		if share.Type != domain.ShareTypeQuarterlyBonus {
			t.Fatalf("expected quarterly_bonus share type, got %s", share.Type)
		}
	}

	if err := svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("flush outbox: %v", err)
	}
	lifecycle := map[string]bool{}
	for _, e := range pub.Events {
		if e.EventType == domain.EventDistributionStarted || e.EventType == domain.EventDistributionComplete {
			if e.PartitionKey != dist.DistributionID {
				t.Fatalf("%s must partition on the distribution id, got %s", e.EventType, e.PartitionKey)
			}
			lifecycle[e.EventType] = true
		}
	}
	if !lifecycle[domain.EventDistributionStarted] || !lifecycle[domain.EventDistributionComplete] {
		t.Fatalf("expected started and completed lifecycle events, got %v", lifecycle)
	}
}

func TestQuarterlyResidualGoesToCanonicalMember(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	for _, id := range []string{"r-1", "r-2", "r-3"} {
		mustRegister(t, svc, id, "")
		mustInvest(t, svc, id, 1000, "idem-"+id)
	}

	dist, err := svc.RunQuarterlyDistribution(ctx, adminActor("idem-qd-res"), application.RunDistributionInput{
		Pool: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	_, shares, err := svc.GetDistribution(ctx, adminActor(""), dist.DistributionID)
	if err != nil {
		t.Fatalf("get distribution: %v", err)
	}
	total := decimal.Zero
	byMember := map[string]decimal.Decimal{}
	for _, share := range shares {
		total = total.Add(share.Amount)
		byMember[share.MemberID] = share.Amount
	}
	if !total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("shares must sum to the pool exactly, got %s", total)
	}
	// Equal bases tie-break on member id; r-1 absorbs the rounding cent.
	if byMember["r-1"].StringFixed(2) != "33.34" {
		t.Fatalf("expected r-1 to get 33.34, got %s", byMember["r-1"])
	}
	if byMember["r-2"].StringFixed(2) != "33.33" || byMember["r-3"].StringFixed(2) != "33.33" {
		t.Fatalf("expected 33.33 for r-2 and r-3, got %s / %s", byMember["r-2"], byMember["r-3"])
	}
}

func TestAnnualDistributionPaysTierRate(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "a-1", "")
	mustInvest(t, svc, "a-1", 1000, "idem-a1")

	now := time.Now().UTC()
	dist, err := svc.RunAnnualDistribution(ctx, adminActor("idem-ad-1"), application.RunDistributionInput{
		Pool:        decimal.NewFromInt(5000),
		PeriodStart: now.AddDate(1, 0, 0),
		PeriodEnd:   now.AddDate(2, 0, 0),
	})
	if err != nil {
		t.Fatalf("annual distribution: %v", err)
	}
	_, shares, err := svc.GetDistribution(ctx, adminActor(""), dist.DistributionID)
	if err != nil {
		t.Fatalf("get distribution: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("expected one share, got %d", len(shares))
	}
	// Starter fixed rate: 8% of 1000.
	if shares[0].Amount.StringFixed(2) != "80.00" {
		t.Fatalf("expected 80.00, got %s", shares[0].Amount)
	}
	if shares[0].Type != domain.ShareTypeAnnual {
		t.Fatalf("expected annual share type, got %s", shares[0].Type)
	}
}

func TestAnnualDistributionFailsWithoutEligibleInvestments(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "a-2", "")
	mustInvest(t, svc, "a-2", 1000, "idem-a2")

	// Default window ends now; the investment is brand new and below the
	// eligibility age.
	dist, err := svc.RunAnnualDistribution(ctx, adminActor("idem-ad-2"), application.RunDistributionInput{
		Pool: decimal.NewFromInt(5000),
	})
	if err != domain.ErrDistributionFailed {
		t.Fatalf("expected ErrDistributionFailed, got %v", err)
	}
	if dist.Status != domain.DistributionStatusFailed {
		t.Fatalf("expected failed status, got %s", dist.Status)
	}
}

func TestDistributionRejectsInvalidPool(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()

	_, err := svc.RunQuarterlyDistribution(ctx, adminActor("idem-bad-pool"), application.RunDistributionInput{
		Pool: decimal.Zero,
	})
	if err != domain.ErrPoolInvalid {
		t.Fatalf("expected ErrPoolInvalid, got %v", err)
	}
	rows, err := svc.ListDistributions(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("list distributions: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("invalid pool must not create a distribution row, got %d", len(rows))
	}
}

func TestDistributionRequiresAdmin(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	_, err := svc.RunQuarterlyDistribution(context.Background(), memberActor("m-x", "idem-x"), application.RunDistributionInput{
		Pool: decimal.NewFromInt(100),
	})
	if err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func canonicalInvestmentEvent(eventID, memberID string, amount int64) contracts.EventEnvelope {
	payload, _ := json.Marshal(contracts.InvestmentActivatedPayload{
		MemberID: memberID, Amount: decimal.NewFromInt(amount),
	})
	return contracts.EventEnvelope{
		EventID:          eventID,
		EventType:        domain.EventInvestmentActivated,
		OccurredAt:       time.Now().UTC(),
		PartitionKeyPath: "data.member_id",
		PartitionKey:     memberID,
		SourceService:    "payment-gateway",
		TraceID:          "trace-" + eventID,
		SchemaVersion:    "v1",
		Data:             payload,
	}
}

func TestHandleCanonicalEventActivatesOnce(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "ev-1", "")

	event := canonicalInvestmentEvent("evt-100", "ev-1", 1000)
	if err := svc.HandleCanonicalEvent(ctx, event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleCanonicalEvent(ctx, event); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	member, err := svc.GetMember(ctx, memberActor("ev-1", ""), "ev-1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if !member.TotalInvested.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("redelivery must not double-credit, total is %s", member.TotalInvested)
	}
}

func TestHandleCanonicalEventValidation(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()

	event := canonicalInvestmentEvent("evt-200", "ev-2", 1000)
	event.TraceID = ""
	if err := svc.HandleCanonicalEvent(ctx, event); err != domain.ErrInvalidEnvelope {
		t.Fatalf("missing trace id: expected ErrInvalidEnvelope, got %v", err)
	}

	event = canonicalInvestmentEvent("evt-201", "ev-2", 1000)
	event.EventType = "member.registered"
	if err := svc.HandleCanonicalEvent(ctx, event); err != domain.ErrUnsupportedEventType {
		t.Fatalf("emitted type on input path: expected ErrUnsupportedEventType, got %v", err)
	}

	event = canonicalInvestmentEvent("evt-202", "ev-2", 1000)
	event.PartitionKey = "someone-else"
	if err := svc.HandleCanonicalEvent(ctx, event); err != domain.ErrInvalidEnvelope {
		t.Fatalf("partition key mismatch: expected ErrInvalidEnvelope, got %v", err)
	}
}

func TestFlushOutboxPublishesCanonicalEvents(t *testing.T) {
	svc, pub := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "sp-8", "")
	mustInvest(t, svc, "sp-8", 1000, "idem-sp8")
	mustRegister(t, svc, "m-8", "sp-8")
	mustInvest(t, svc, "m-8", 1000, "idem-m8")

	if err := svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("flush outbox: %v", err)
	}
	seen := map[string]bool{}
	for _, e := range pub.Events {
		seen[e.EventType] = true
		if e.PartitionKey == "" || e.PartitionKeyPath == "" {
			t.Fatalf("event %s missing partition key invariant", e.EventType)
		}
		if e.SchemaVersion != "v1" {
			t.Fatalf("event %s missing schema version", e.EventType)
		}
	}
	for _, want := range []string{
		domain.EventMemberRegistered,
		domain.EventMemberPlaced,
		domain.EventTierUpgraded,
		domain.EventCommissionCreated,
	} {
		if !seen[want] {
			t.Fatalf("expected %s in published events, got %v", want, seen)
		}
	}
}

func TestGeneralWithdrawalDrawsDownAccruedShares(t *testing.T) {
	svc, _ := newServiceWithPublisher()
	ctx := context.Background()
	mustRegister(t, svc, "g-1", "")
	mustInvest(t, svc, "g-1", 1000, "idem-g1")

	if _, err := svc.RunQuarterlyDistribution(ctx, adminActor("idem-g1-dist"), application.RunDistributionInput{
		Pool: decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("distribution: %v", err)
	}

	// 100 credited, 50% allowance: the first request spends all of it.
	row, err := svc.SubmitWithdrawal(ctx, memberActor("g-1", "idem-g1-w1"), application.SubmitWithdrawalInput{
		MemberID: "g-1", Type: domain.WithdrawalTypePartial, Amount: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("first general request: %v", err)
	}
	if _, err := svc.ApproveWithdrawal(ctx, adminActor(""), row.RequestID, "ok"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.ProcessWithdrawal(ctx, adminActor(""), row.RequestID); err != nil {
		t.Fatalf("process: %v", err)
	}

	// The allowance is a balance: processed requests reduce it, so a second
	// round cannot pay out more than was ever accrued.
	_, err = svc.SubmitWithdrawal(ctx, memberActor("g-1", "idem-g1-w2"), application.SubmitWithdrawalInput{
		MemberID: "g-1", Type: domain.WithdrawalTypePartial, Amount: decimal.NewFromInt(50),
	})
	if err != domain.ErrAmountExceedsLimit {
		t.Fatalf("expected ErrAmountExceedsLimit after draining the allowance, got %v", err)
	}
	_, err = svc.SubmitWithdrawal(ctx, memberActor("g-1", "idem-g1-w3"), application.SubmitWithdrawalInput{
		MemberID: "g-1", Type: domain.WithdrawalTypePartial, Amount: decimal.NewFromInt(1),
	})
	if err != domain.ErrAmountExceedsLimit {
		t.Fatalf("expected ErrAmountExceedsLimit for any further draw, got %v", err)
	}
}

func TestAnnualDistributionWeightsMidPeriodTierChange(t *testing.T) {
	current := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := newServiceWithClock(&current)
	ctx := context.Background()
	mustRegister(t, svc, "w-1", "")
	mustInvest(t, svc, "w-1", 1000, "idem-w1a") // Starter, 8%

	mid := current.AddDate(2, 0, 0)
	current = mid
	mustInvest(t, svc, "w-1", 1500, "idem-w1b") // 2500 total, Builder, 10%

	// The tier change sits exactly halfway through the period, so the
	// entitlement is the average of the two flat-rate runs. Only the first
	// investment is old enough to count toward the base.
	dist, err := svc.RunAnnualDistribution(ctx, adminActor("idem-w1-dist"), application.RunDistributionInput{
		Pool:        decimal.NewFromInt(5000),
		PeriodStart: mid.AddDate(0, 0, -183),
		PeriodEnd:   mid.AddDate(0, 0, 183),
	})
	if err != nil {
		t.Fatalf("annual distribution: %v", err)
	}
	_, shares, err := svc.GetDistribution(ctx, adminActor(""), dist.DistributionID)
	if err != nil {
		t.Fatalf("get distribution: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("expected one share, got %d", len(shares))
	}
	if shares[0].Amount.StringFixed(2) != "90.00" {
		t.Fatalf("expected half 8%% plus half 10%% of 1000 = 90.00, got %s", shares[0].Amount)
	}
}

func TestIdempotencyReservationExpires(t *testing.T) {
	current := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newServiceWithClock(&current)
	ctx := context.Background()

	if _, err := svc.RegisterMember(ctx, memberActor("k-1", "idem-shared"), application.RegisterMemberInput{
		MemberID: "k-1", DisplayName: "Member k-1",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Same key, different payload, inside the TTL window.
	_, err := svc.RegisterMember(ctx, memberActor("k-2", "idem-shared"), application.RegisterMemberInput{
		MemberID: "k-2", DisplayName: "Member k-2",
	})
	if err != domain.ErrIdempotencyConflict {
		t.Fatalf("expected conflict inside the TTL, got %v", err)
	}

	// Past the TTL the reservation lapses and the key is free again.
	current = current.Add(8 * 24 * time.Hour)
	if _, err := svc.RegisterMember(ctx, memberActor("k-2", "idem-shared"), application.RegisterMemberInput{
		MemberID: "k-2", DisplayName: "Member k-2",
	}); err != nil {
		t.Fatalf("expected key reuse after expiry, got %v", err)
	}
}

func TestReserveHonorsCallerClock(t *testing.T) {
	repos := postgres.NewRepositories()
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := repos.Idempotency.Reserve(ctx, "key-a", "hash-1", t0, t0.Add(time.Hour)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := repos.Idempotency.Reserve(ctx, "key-a", "hash-2", t0.Add(30*time.Minute), t0.Add(2*time.Hour)); err != domain.ErrIdempotencyConflict {
		t.Fatalf("expected conflict before expiry, got %v", err)
	}
	// Expiry is judged by the caller's clock, not the wall clock.
	if err := repos.Idempotency.Reserve(ctx, "key-a", "hash-2", t0.Add(2*time.Hour), t0.Add(3*time.Hour)); err != nil {
		t.Fatalf("expected reservation after expiry, got %v", err)
	}
}

type failingLedger struct {
	ports.LedgerRepository
	failType string
}

func (l *failingLedger) Append(ctx context.Context, row domain.LedgerEntry) error {
	if row.EntryType == l.failType {
		return errors.New("ledger unavailable")
	}
	return l.LedgerRepository.Append(ctx, row)
}

func TestActivateInvestmentRemovesRowOnLedgerFailure(t *testing.T) {
	repos := postgres.NewRepositories()
	pub := eventadapter.NewMemoryDomainPublisher()
	deps := serviceDependencies(repos, pub)
	deps.Ledger = &failingLedger{LedgerRepository: repos.Ledger, failType: domain.LedgerTypeInvestment}
	svc := application.NewService(deps)
	ctx := context.Background()

	mustRegister(t, svc, "f-1", "")
	_, err := svc.ActivateInvestment(ctx, memberActor("f-1", "idem-f1"), application.ActivateInvestmentInput{
		MemberID: "f-1", Amount: decimal.NewFromInt(1000),
	})
	if err == nil {
		t.Fatalf("expected the ledger failure to surface")
	}

	// Investment row and ledger entry are one unit; neither may survive.
	rows, err := repos.Investments.ListByMemberID(ctx, "f-1")
	if err != nil {
		t.Fatalf("list investments: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("investment row must not survive a failed ledger append, got %d", len(rows))
	}
	member, err := svc.GetMember(ctx, memberActor("f-1", ""), "f-1")
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if !member.TotalInvested.IsZero() {
		t.Fatalf("total invested must stay zero, got %s", member.TotalInvested)
	}
}
