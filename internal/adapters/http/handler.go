package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/growthfund/matrix-engine/internal/application"
	"github.com/growthfund/matrix-engine/internal/contracts"
	"github.com/growthfund/matrix-engine/internal/domain"
)

func (h *Handler) registerMember(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.RegisterMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	member, err := h.service.RegisterMember(r.Context(), actor, application.RegisterMemberInput{
		MemberID:    strings.TrimSpace(req.MemberID),
		DisplayName: strings.TrimSpace(req.DisplayName),
		SponsorID:   strings.TrimSpace(req.SponsorID),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusCreated, contracts.RegisterMemberResponse{
		MemberID:  member.MemberID,
		SponsorID: member.SponsorID,
		Status:    member.Status,
		JoinedAt:  member.JoinedAt.Format(time.RFC3339),
	})
}

func (h *Handler) activateInvestment(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.ActivateInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	result, err := h.service.ActivateInvestment(r.Context(), actor, application.ActivateInvestmentInput{
		MemberID:     strings.TrimSpace(req.MemberID),
		InvestmentID: strings.TrimSpace(req.InvestmentID),
		Amount:       req.Amount,
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	member, merr := h.service.GetMember(r.Context(), actor, result.Investment.MemberID)
	resp := contracts.ActivateInvestmentResponse{
		InvestmentID: result.Investment.InvestmentID,
		MemberID:     result.Investment.MemberID,
		Amount:       result.Investment.Amount,
		TierID:       result.TierID,
		TierUpgraded: result.TierUpgraded,
		Placed:       result.Placed,
		Commissions:  len(result.Commissions),
		LockInEndsAt: result.Investment.LockInEndsAt.Format(time.RFC3339),
	}
	if result.Placed {
		resp.Level = result.Position.Level
		resp.Slot = result.Position.Slot
	}
	if merr == nil {
		resp.TotalInvested = member.TotalInvested
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func (h *Handler) getTierProgress(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	progress, err := h.service.GetTierProgress(r.Context(), actor, chi.URLParam(r, "member_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	resp := contracts.TierProgressResponse{
		MemberID:      progress.Member.MemberID,
		TotalInvested: progress.Member.TotalInvested,
		Progress:      progress.Progress,
	}
	if progress.CurrentTier != nil {
		resp.CurrentTierID = progress.CurrentTier.TierID
		resp.CurrentTier = progress.CurrentTier.Name
	}
	if progress.NextTier != nil {
		resp.NextTierID = progress.NextTier.TierID
		resp.NextTier = progress.NextTier.Name
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getDownline(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	downline, err := h.service.GetDownline(r.Context(), actor, chi.URLParam(r, "member_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	resp := contracts.DownlineResponse{MemberID: downline.MemberID, TotalDownline: downline.Total, Levels: []contracts.LevelStat{}}
	for _, lvl := range downline.Levels {
		resp.Levels = append(resp.Levels, contracts.LevelStat{Level: lvl.Level, Occupied: lvl.Occupied, Capacity: lvl.Capacity})
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listCommissions(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListCommissions(r.Context(), actor, chi.URLParam(r, "member_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	resp := contracts.CommissionListResponse{Items: []contracts.CommissionResponse{}}
	for _, row := range rows {
		resp.Items = append(resp.Items, contracts.CommissionResponse{
			CommissionID:     row.CommissionID,
			ReferredID:       row.ReferredID,
			InvestmentID:     row.InvestmentID,
			Level:            row.Level,
			Rate:             row.Rate,
			Amount:           row.Amount,
			ClawedBackAmount: row.ClawedBackAmount,
			Status:           row.Status,
			CreatedAt:        row.CreatedAt.Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listClawbacks(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListClawbacks(r.Context(), actor, chi.URLParam(r, "member_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	resp := contracts.ClawbackListResponse{Items: []contracts.ClawbackResponse{}}
	for _, row := range rows {
		resp.Items = append(resp.Items, contracts.ClawbackResponse{
			ClawbackID:    row.ClawbackID,
			CommissionID:  row.CommissionID,
			InvestmentID:  row.InvestmentID,
			Amount:        row.Amount,
			ElapsedMonths: row.ElapsedMonths,
			Reason:        row.Reason,
			CreatedAt:     row.CreatedAt.Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListLedger(r.Context(), actor, chi.URLParam(r, "member_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	resp := contracts.LedgerListResponse{Items: []contracts.LedgerEntryResponse{}}
	for _, row := range rows {
		resp.Items = append(resp.Items, contracts.LedgerEntryResponse{
			EntryID:     row.EntryID,
			EntryType:   row.EntryType,
			ReferenceID: row.ReferenceID,
			Amount:      row.Amount,
			Status:      row.Status,
			OccurredAt:  row.OccurredAt.Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) submitWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.SubmitWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	row, err := h.service.SubmitWithdrawal(r.Context(), actor, application.SubmitWithdrawalInput{
		MemberID:     strings.TrimSpace(req.MemberID),
		InvestmentID: strings.TrimSpace(req.InvestmentID),
		Type:         strings.TrimSpace(req.Type),
		Amount:       req.Amount,
		Reason:       strings.TrimSpace(req.Reason),
	})
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusCreated, withdrawalResponse(row))
}

func (h *Handler) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListWithdrawals(r.Context(), actor, chi.URLParam(r, "member_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	out := make([]contracts.WithdrawalResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, withdrawalResponse(row))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) approveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.actOnWithdrawal(w, r, h.service.ApproveWithdrawal)
}

func (h *Handler) rejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.actOnWithdrawal(w, r, h.service.RejectWithdrawal)
}

func (h *Handler) processWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	row, err := h.service.ProcessWithdrawal(r.Context(), actor, chi.URLParam(r, "request_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, withdrawalResponse(row))
}

func (h *Handler) actOnWithdrawal(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, actor application.Actor, requestID, notes string) (domain.WithdrawalRequest, error)) {
	actor := actorFromContext(r.Context())
	var req contracts.WithdrawalActionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	row, err := action(r.Context(), actor, chi.URLParam(r, "request_id"), strings.TrimSpace(req.Notes))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, withdrawalResponse(row))
}

func (h *Handler) settleCommission(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	comm, err := h.service.SettleCommission(r.Context(), actor, chi.URLParam(r, "commission_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, contracts.CommissionResponse{
		CommissionID:     comm.CommissionID,
		ReferredID:       comm.ReferredID,
		InvestmentID:     comm.InvestmentID,
		Level:            comm.Level,
		Rate:             comm.Rate,
		Amount:           comm.Amount,
		ClawedBackAmount: comm.ClawedBackAmount,
		Status:           comm.Status,
		CreatedAt:        comm.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) runDistribution(periodType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromContext(r.Context())
		var req contracts.RunDistributionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		in := application.RunDistributionInput{Pool: req.Pool}
		var perr error
		if in.PeriodStart, perr = parseOptionalTime(req.PeriodStart); perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "period_start must be RFC3339")
			return
		}
		if in.PeriodEnd, perr = parseOptionalTime(req.PeriodEnd); perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "period_end must be RFC3339")
			return
		}
		var dist domain.ProfitDistribution
		var err error
		if periodType == domain.PeriodTypeAnnual {
			dist, err = h.service.RunAnnualDistribution(r.Context(), actor, in)
		} else {
			dist, err = h.service.RunQuarterlyDistribution(r.Context(), actor, in)
		}
		if err != nil {
			status, code := mapDomainError(err)
			writeError(w, status, code, err.Error())
			return
		}
		writeSuccess(w, http.StatusCreated, distributionResponse(dist))
	}
}

func (h *Handler) getDistribution(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	dist, shares, err := h.service.GetDistribution(r.Context(), actor, chi.URLParam(r, "distribution_id"))
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	resp := contracts.DistributionDetailResponse{Distribution: distributionResponse(dist), Shares: []contracts.ProfitShareResponse{}}
	for _, share := range shares {
		resp.Shares = append(resp.Shares, contracts.ProfitShareResponse{
			ShareID: share.ShareID, MemberID: share.MemberID, Type: share.Type, Amount: share.Amount,
		})
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listDistributions(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	rows, err := h.service.ListDistributions(r.Context(), actor)
	if err != nil {
		status, code := mapDomainError(err)
		writeError(w, status, code, err.Error())
		return
	}
	out := make([]contracts.DistributionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, distributionResponse(row))
	}
	writeSuccess(w, http.StatusOK, out)
}

func withdrawalResponse(row domain.WithdrawalRequest) contracts.WithdrawalResponse {
	return contracts.WithdrawalResponse{
		RequestID:       row.RequestID,
		MemberID:        row.MemberID,
		InvestmentID:    row.InvestmentID,
		Type:            row.Type,
		RequestedAmount: row.RequestedAmount,
		PenaltyAmount:   row.PenaltyAmount,
		NetAmount:       row.NetAmount,
		Status:          row.Status,
		AdminNotes:      row.AdminNotes,
		RequestedAt:     row.RequestedAt.Format(time.RFC3339),
	}
}

func distributionResponse(dist domain.ProfitDistribution) contracts.DistributionResponse {
	return contracts.DistributionResponse{
		DistributionID:    dist.DistributionID,
		PeriodType:        dist.PeriodType,
		PeriodStart:       dist.PeriodStart.Format(time.RFC3339),
		PeriodEnd:         dist.PeriodEnd.Format(time.RFC3339),
		PoolAmount:        dist.PoolAmount,
		DistributedAmount: dist.DistributedAmount,
		MemberCount:       dist.MemberCount,
		Status:            dist.Status,
		FailureReason:     dist.FailureReason,
	}
}

func parseOptionalTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
