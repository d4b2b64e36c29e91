package contracts

import "github.com/shopspring/decimal"

type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type RegisterMemberRequest struct {
	MemberID    string `json:"member_id,omitempty"`
	DisplayName string `json:"display_name"`
	SponsorID   string `json:"sponsor_id,omitempty"`
}

type RegisterMemberResponse struct {
	MemberID  string `json:"member_id"`
	SponsorID string `json:"sponsor_id,omitempty"`
	Status    string `json:"status"`
	JoinedAt  string `json:"joined_at"`
}

type ActivateInvestmentRequest struct {
	MemberID     string          `json:"member_id"`
	InvestmentID string          `json:"investment_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

type ActivateInvestmentResponse struct {
	InvestmentID  string          `json:"investment_id"`
	MemberID      string          `json:"member_id"`
	Amount        decimal.Decimal `json:"amount"`
	TierID        string          `json:"tier_id,omitempty"`
	TierUpgraded  bool            `json:"tier_upgraded"`
	Placed        bool            `json:"placed"`
	Level         int             `json:"level,omitempty"`
	Slot          int             `json:"slot,omitempty"`
	Commissions   int             `json:"commissions"`
	LockInEndsAt  string          `json:"lock_in_ends_at"`
	TotalInvested decimal.Decimal `json:"total_invested"`
}

type TierProgressResponse struct {
	MemberID      string          `json:"member_id"`
	CurrentTierID string          `json:"current_tier_id,omitempty"`
	CurrentTier   string          `json:"current_tier,omitempty"`
	NextTierID    string          `json:"next_tier_id,omitempty"`
	NextTier      string          `json:"next_tier,omitempty"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	Progress      decimal.Decimal `json:"progress"`
}

type DownlineResponse struct {
	MemberID      string      `json:"member_id"`
	TotalDownline int         `json:"total_downline"`
	Levels        []LevelStat `json:"levels"`
}

type LevelStat struct {
	Level    int `json:"level"`
	Occupied int `json:"occupied"`
	Capacity int `json:"capacity"`
}

type CommissionResponse struct {
	CommissionID     string          `json:"commission_id"`
	ReferredID       string          `json:"referred_id"`
	InvestmentID     string          `json:"investment_id"`
	Level            int             `json:"level"`
	Rate             decimal.Decimal `json:"rate"`
	Amount           decimal.Decimal `json:"amount"`
	ClawedBackAmount decimal.Decimal `json:"clawed_back_amount"`
	Status           string          `json:"status"`
	CreatedAt        string          `json:"created_at"`
}

type CommissionListResponse struct {
	Items []CommissionResponse `json:"items"`
}

type ClawbackResponse struct {
	ClawbackID    string          `json:"clawback_id"`
	CommissionID  string          `json:"commission_id"`
	InvestmentID  string          `json:"investment_id"`
	Amount        decimal.Decimal `json:"amount"`
	ElapsedMonths int             `json:"elapsed_months"`
	Reason        string          `json:"reason,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type ClawbackListResponse struct {
	Items []ClawbackResponse `json:"items"`
}

type LedgerEntryResponse struct {
	EntryID     string          `json:"entry_id"`
	EntryType   string          `json:"entry_type"`
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	OccurredAt  string          `json:"occurred_at"`
}

type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
}

type SubmitWithdrawalRequest struct {
	MemberID     string          `json:"member_id"`
	InvestmentID string          `json:"investment_id,omitempty"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason,omitempty"`
}

type WithdrawalResponse struct {
	RequestID       string          `json:"request_id"`
	MemberID        string          `json:"member_id"`
	InvestmentID    string          `json:"investment_id,omitempty"`
	Type            string          `json:"type"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	PenaltyAmount   decimal.Decimal `json:"penalty_amount"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	Status          string          `json:"status"`
	AdminNotes      string          `json:"admin_notes,omitempty"`
	RequestedAt     string          `json:"requested_at"`
}

type WithdrawalActionRequest struct {
	Notes string `json:"notes,omitempty"`
}

type RunDistributionRequest struct {
	Pool        decimal.Decimal `json:"pool"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
}

type DistributionResponse struct {
	DistributionID    string          `json:"distribution_id"`
	PeriodType        string          `json:"period_type"`
	PeriodStart       string          `json:"period_start"`
	PeriodEnd         string          `json:"period_end"`
	PoolAmount        decimal.Decimal `json:"pool_amount"`
	DistributedAmount decimal.Decimal `json:"distributed_amount"`
	MemberCount       int             `json:"member_count"`
	Status            string          `json:"status"`
	FailureReason     string          `json:"failure_reason,omitempty"`
}

type ProfitShareResponse struct {
	ShareID  string          `json:"share_id"`
	MemberID string          `json:"member_id"`
	Type     string          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
}

type DistributionDetailResponse struct {
	Distribution DistributionResponse  `json:"distribution"`
	Shares       []ProfitShareResponse `json:"shares"`
}
