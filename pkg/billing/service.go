package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BillingProvider is the full payment provider surface the service needs.
type BillingProvider interface {
	PriceLookup
	WebhookParser
}

// Service resolves plan eligibility, suggestions, and billing intervals over
// the static catalog and the caller's subscription state.
type Service interface {
	// GrowthPlansFor returns growth plans at the subscription's resolved
	// generation, in ascending pageview-limit order.
	GrowthPlansFor(sub *Subscription) []Plan

	// BusinessPlansFor returns business plans at the business generation
	// matching the subscription's resolved growth generation.
	BusinessPlansFor(sub *Subscription) []Plan

	// AvailablePlansFor returns both plan lists, optionally enriched with
	// localized prices from the payment provider.
	AvailablePlansFor(ctx context.Context, sub *Subscription, opts AvailablePlansOptions) (*AvailablePlans, error)

	// SuggestPlan returns the smallest plan covering the given pageview
	// usage, or the enterprise sentinel when no standard tier fits.
	SuggestPlan(ctx context.Context, user *User, pageviews int64) (Suggestion, error)

	// SuggestPlanFromUsage is SuggestPlan fed from the configured UsageSource.
	SuggestPlanFromUsage(ctx context.Context, user *User) (Suggestion, error)

	// LatestEnterprisePlanWithPrice returns the user's most recently created
	// enterprise plan together with its localized price.
	LatestEnterprisePlanWithPrice(ctx context.Context, userID uuid.UUID, customerIP string) (*EnterprisePlan, Money, error)

	// SubscriptionInterval reports how often the subscription is billed.
	SubscriptionInterval(ctx context.Context, sub *Subscription) (BillingInterval, error)

	// YearlyProductIDs returns all yearly product ids, current and retired.
	YearlyProductIDs() []string

	// HandleWebhook applies a provider webhook event to the subscription store.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// AvailablePlansOptions controls plan list enrichment.
type AvailablePlansOptions struct {
	// WithPrices triggers one provider price lookup per plan and interval.
	WithPrices bool
	// CustomerIP localizes tax and currency; required when WithPrices is set.
	CustomerIP string
}

// AvailablePlans holds the plan tiers a user may subscribe to.
type AvailablePlans struct {
	Growth   []Plan
	Business []Plan
}

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithUsageSource wires a pageview usage source for SuggestPlanFromUsage.
func WithUsageSource(src UsageSource) ServiceOption {
	return func(s *service) {
		if src != nil {
			s.usage = src
		}
	}
}

// WithClock overrides the time source used for expiry checks.
// Intended for tests with fixed time values.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	catalog    *Catalog
	provider   BillingProvider
	subs       SubscriptionStore
	enterprise EnterprisePlanStore
	usage      UsageSource
	now        func() time.Time
}

// NewService creates a Service over the given catalog, provider, and stores.
// Panics if any required dependency is nil to fail fast during initialization.
func NewService(catalog *Catalog, provider BillingProvider, subs SubscriptionStore, enterprise EnterprisePlanStore, opts ...ServiceOption) Service {
	if catalog == nil {
		panic("billing: catalog is required")
	}
	if provider == nil {
		panic("billing: billing provider is required")
	}
	if subs == nil {
		panic("billing: subscription store is required")
	}
	if enterprise == nil {
		panic("billing: enterprise plan store is required")
	}

	s := &service{
		catalog:    catalog,
		provider:   provider,
		subs:       subs,
		enterprise: enterprise,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// growthGenerationFor resolves which catalog generation the subscription is
// pinned to. Absent, expired, and unrecognized subscriptions all see the
// newest generation; everyone else stays on the generation they bought into.
func (s *service) growthGenerationFor(sub *Subscription) int {
	if sub == nil || sub.IsExpiredAt(s.now()) {
		return s.catalog.LatestGeneration(KindGrowth)
	}
	if plan, ok := s.catalog.ByProductID(sub.PaddlePlanID); ok {
		return plan.Generation
	}
	if lp, ok := s.catalog.LegacyPlan(sub.PaddlePlanID); ok {
		return lp.Generation
	}
	return s.catalog.LatestGeneration(KindGrowth)
}

func (s *service) GrowthPlansFor(sub *Subscription) []Plan {
	return s.catalog.Plans(KindGrowth, s.growthGenerationFor(sub))
}

func (s *service) BusinessPlansFor(sub *Subscription) []Plan {
	if sub != nil && !sub.IsExpiredAt(s.now()) {
		// A subscription already on a business plan stays on its own generation.
		if plan, ok := s.catalog.ByProductID(sub.PaddlePlanID); ok && plan.Kind == KindBusiness {
			return s.catalog.Plans(KindBusiness, plan.Generation)
		}
	}
	gen := s.catalog.BusinessGenerationFor(s.growthGenerationFor(sub))
	return s.catalog.Plans(KindBusiness, gen)
}

func (s *service) AvailablePlansFor(ctx context.Context, sub *Subscription, opts AvailablePlansOptions) (*AvailablePlans, error) {
	plans := &AvailablePlans{
		Growth:   s.GrowthPlansFor(sub),
		Business: s.BusinessPlansFor(sub),
	}

	if !opts.WithPrices {
		return plans, nil
	}
	if opts.CustomerIP == "" {
		return nil, ErrCustomerIPRequired
	}

	for _, list := range [][]Plan{plans.Growth, plans.Business} {
		for i := range list {
			monthly, err := s.provider.LookupPrice(ctx, list[i].MonthlyProductID, opts.CustomerIP)
			if err != nil {
				return nil, err
			}
			yearly, err := s.provider.LookupPrice(ctx, list[i].YearlyProductID, opts.CustomerIP)
			if err != nil {
				return nil, err
			}
			list[i].MonthlyCost = &monthly
			list[i].YearlyCost = &yearly
		}
	}
	return plans, nil
}

func (s *service) SuggestPlan(ctx context.Context, user *User, pageviews int64) (Suggestion, error) {
	var sub *Subscription
	if user != nil {
		sub = user.Subscription
	}

	if sub != nil && !sub.IsExpiredAt(s.now()) && !sub.IsFree() {
		_, err := s.enterprise.GetByProductID(ctx, sub.PaddlePlanID)
		switch {
		case err == nil:
			// Custom deals are negotiated, never suggested from usage.
			return Suggestion{Enterprise: true}, nil
		case !errors.Is(err, ErrEnterprisePlanNotFound):
			return Suggestion{}, err
		}
	}

	for _, plan := range s.GrowthPlansFor(sub) {
		if plan.MonthlyPageviewLimit >= pageviews {
			p := plan
			return Suggestion{Plan: &p}, nil
		}
	}
	return Suggestion{Enterprise: true}, nil
}

func (s *service) SuggestPlanFromUsage(ctx context.Context, user *User) (Suggestion, error) {
	if s.usage == nil {
		return Suggestion{}, ErrNoUsageSource
	}
	if user == nil {
		return Suggestion{}, fmt.Errorf("%w: user is required", ErrNoUsageSource)
	}

	pageviews, err := s.usage.MonthlyPageviews(ctx, user.ID)
	if err != nil {
		return Suggestion{}, err
	}
	return s.SuggestPlan(ctx, user, pageviews)
}

func (s *service) LatestEnterprisePlanWithPrice(ctx context.Context, userID uuid.UUID, customerIP string) (*EnterprisePlan, Money, error) {
	plans, err := s.enterprise.ListByUser(ctx, userID)
	if err != nil {
		return nil, Money{}, err
	}
	if len(plans) == 0 {
		return nil, Money{}, ErrNoEnterprisePlan
	}

	latest := plans[0]
	for _, p := range plans[1:] {
		// Later entries win ties so re-issued deals stay authoritative.
		if !p.CreatedAt.Before(latest.CreatedAt) {
			latest = p
		}
	}

	price, err := s.provider.LookupPrice(ctx, latest.PaddlePlanID, customerIP)
	if err != nil {
		return nil, Money{}, err
	}
	return &latest, price, nil
}

func (s *service) SubscriptionInterval(ctx context.Context, sub *Subscription) (BillingInterval, error) {
	if sub == nil || sub.IsFree() {
		return IntervalNotApplicable, nil
	}

	if plan, err := s.enterprise.GetByProductID(ctx, sub.PaddlePlanID); err == nil {
		return plan.BillingInterval, nil
	} else if !errors.Is(err, ErrEnterprisePlanNotFound) {
		return "", err
	}

	if plan, ok := s.catalog.ByProductID(sub.PaddlePlanID); ok {
		if plan.YearlyProductID == sub.PaddlePlanID {
			return IntervalYearly, nil
		}
		return IntervalMonthly, nil
	}
	// Retired ids keep billing until cancelled, so they classify too.
	if lp, ok := s.catalog.LegacyPlan(sub.PaddlePlanID); ok {
		return lp.Interval, nil
	}
	return "", fmt.Errorf("%w: unknown product id %s", ErrPlanNotFound, sub.PaddlePlanID)
}

func (s *service) YearlyProductIDs() []string {
	return s.catalog.YearlyProductIDs()
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownWebhookUser, err)
	}

	now := s.now().UTC()

	switch event.Type {
	case EventSubscriptionCreated:
		sub := &Subscription{
			UserID:       userID,
			PaddlePlanID: event.PlanID,
			Status:       StatusActive,
			NextBillDate: event.NextBillDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if event.Status != "" {
			sub.Status = SubscriptionStatus(event.Status)
		}
		if err := s.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}

	case EventSubscriptionUpdated:
		sub, err := s.subs.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("subscription not found for user %s: %w", userID, err)
		}
		if event.PlanID != "" {
			sub.PaddlePlanID = event.PlanID
		}
		if event.Status != "" {
			sub.Status = SubscriptionStatus(event.Status)
		}
		if !event.NextBillDate.IsZero() {
			sub.NextBillDate = event.NextBillDate
		}
		sub.UpdatedAt = now
		if err := s.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}

	case EventSubscriptionCancelled:
		sub, err := s.subs.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("subscription not found for user %s: %w", userID, err)
		}
		sub.Status = StatusDeleted
		sub.UpdatedAt = now
		if err := s.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}

	case EventPaymentSucceeded:
		sub, err := s.subs.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("subscription not found for user %s: %w", userID, err)
		}
		sub.Status = StatusActive
		sub.LastBillDate = now
		if !event.NextBillDate.IsZero() {
			sub.NextBillDate = event.NextBillDate
		}
		sub.UpdatedAt = now
		if err := s.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

	case EventPaymentFailed:
		sub, err := s.subs.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrSubscriptionNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		sub.Status = StatusPastDue
		sub.UpdatedAt = now
		if err := s.subs.Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to update subscription status: %w", err)
		}
	}

	return nil
}
