package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/growthfund/matrix-engine/internal/application"
	"github.com/growthfund/matrix-engine/internal/domain"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, nil) })
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Post("/members", handler.registerMember)
			r.Post("/investments", handler.activateInvestment)

			r.Get("/members/{member_id}/tier-progress", handler.getTierProgress)
			r.Get("/members/{member_id}/downline", handler.getDownline)
			r.Get("/members/{member_id}/commissions", handler.listCommissions)
			r.Get("/members/{member_id}/clawbacks", handler.listClawbacks)
			r.Get("/members/{member_id}/ledger", handler.listLedger)
			r.Get("/members/{member_id}/withdrawals", handler.listWithdrawals)

			r.Post("/withdrawals", handler.submitWithdrawal)
			r.Post("/withdrawals/{request_id}/approve", handler.approveWithdrawal)
			r.Post("/withdrawals/{request_id}/reject", handler.rejectWithdrawal)
			r.Post("/withdrawals/{request_id}/process", handler.processWithdrawal)

			r.Post("/commissions/{commission_id}/settle", handler.settleCommission)

			r.Post("/distributions/quarterly", handler.runDistribution(domain.PeriodTypeQuarterly))
			r.Post("/distributions/annual", handler.runDistribution(domain.PeriodTypeAnnual))
			r.Get("/distributions", handler.listDistributions)
			r.Get("/distributions/{distribution_id}", handler.getDistribution)
		})
	})
	return r
}
