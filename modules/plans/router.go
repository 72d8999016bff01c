package plans

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/trackkit/pkg/billing"
)

// RouterOptions configures the plans module.
type RouterOptions struct {
	Service billing.Service
	Log     *slog.Logger // optional, defaults to slog.Default()
}

// Router creates the plan-selection router. Mount it under the path of your
// choice:
//
//	r := chi.NewRouter()
//	r.Mount("/billing/plans", plans.Router(plans.RouterOptions{Service: svc}))
//
// The webhook endpoint is unauthenticated (Paddle signs its payloads); the
// plan endpoints expect the authenticated user in the request context via
// billing.SetUserToContext.
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("plans: billing service is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	h := &handler{svc: opts.Service, log: opts.Log}

	r := chi.NewRouter()
	r.Get("/", h.listPlans)
	r.Get("/suggestion", h.suggestPlan)
	r.Post("/webhooks/paddle", h.paddleWebhook)

	return r
}
