package plans

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/trackkit/pkg/billing"
	"github.com/dmitrymomot/trackkit/pkg/clientip"
	"github.com/dmitrymomot/trackkit/pkg/logger"
)

type handler struct {
	svc billing.Service
	log *slog.Logger
}

type moneyView struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type planView struct {
	Kind                 billing.Kind `json:"kind"`
	Generation           int          `json:"generation"`
	Volume               string       `json:"volume"`
	MonthlyProductID     string       `json:"monthly_product_id"`
	YearlyProductID      string       `json:"yearly_product_id"`
	MonthlyPageviewLimit int64        `json:"monthly_pageview_limit"`
	MonthlyCost          *moneyView   `json:"monthly_cost,omitempty"`
	YearlyCost           *moneyView   `json:"yearly_cost,omitempty"`
}

type plansResponse struct {
	Growth   []planView `json:"growth"`
	Business []planView `json:"business"`
}

type suggestionResponse struct {
	Enterprise bool      `json:"enterprise"`
	Plan       *planView `json:"plan,omitempty"`
}

// listPlans returns the plan tiers visible to the current user, optionally
// enriched with localized prices (?with_prices=true).
func (h *handler) listPlans(w http.ResponseWriter, r *http.Request) {
	var sub *billing.Subscription
	if user, ok := billing.GetUserFromContext(r.Context()); ok && user != nil {
		sub = user.Subscription
	}

	opts := billing.AvailablePlansOptions{}
	if r.URL.Query().Get("with_prices") == "true" {
		opts.WithPrices = true
		opts.CustomerIP = clientip.GetIP(r)
	}

	available, err := h.svc.AvailablePlansFor(r.Context(), sub, opts)
	if err != nil {
		if errors.Is(err, billing.ErrCustomerIPRequired) {
			writeError(w, http.StatusBadRequest, "customer IP could not be determined")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to resolve available plans", logger.Error(err))
		writeError(w, http.StatusBadGateway, "price lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, plansResponse{
		Growth:   toPlanViews(available.Growth),
		Business: toPlanViews(available.Business),
	})
}

// suggestPlan returns the best-fitting plan for the user's current usage.
func (h *handler) suggestPlan(w http.ResponseWriter, r *http.Request) {
	user, ok := billing.GetUserFromContext(r.Context())
	if !ok || user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	suggestion, err := h.svc.SuggestPlanFromUsage(r.Context(), user)
	if err != nil {
		if errors.Is(err, billing.ErrNoUsageSource) {
			writeError(w, http.StatusNotFound, "plan suggestions are not available")
			return
		}
		h.log.ErrorContext(r.Context(), "failed to suggest plan",
			logger.Error(err), logger.UserID(user.ID))
		writeError(w, http.StatusInternalServerError, "failed to suggest plan")
		return
	}

	resp := suggestionResponse{Enterprise: suggestion.Enterprise}
	if suggestion.Plan != nil {
		v := toPlanView(*suggestion.Plan)
		resp.Plan = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// paddleWebhook ingests signed billing events from Paddle.
func (h *handler) paddleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signature := r.Header.Get("Paddle-Signature")
	if err := h.svc.HandleWebhook(r.Context(), body, signature); err != nil {
		h.log.ErrorContext(r.Context(), "webhook processing failed", logger.Error(err))
		writeError(w, http.StatusBadRequest, "webhook processing failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func toPlanViews(plans []billing.Plan) []planView {
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, toPlanView(p))
	}
	return views
}

func toPlanView(p billing.Plan) planView {
	v := planView{
		Kind:                 p.Kind,
		Generation:           p.Generation,
		Volume:               p.Volume,
		MonthlyProductID:     p.MonthlyProductID,
		YearlyProductID:      p.YearlyProductID,
		MonthlyPageviewLimit: p.MonthlyPageviewLimit,
	}
	if p.MonthlyCost != nil {
		v.MonthlyCost = &moneyView{Amount: p.MonthlyCost.Amount, Currency: p.MonthlyCost.Currency}
	}
	if p.YearlyCost != nil {
		v.YearlyCost = &moneyView{Amount: p.YearlyCost.Amount, Currency: p.YearlyCost.Currency}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
