package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trackkit/pkg/billing"
)

// Mock implementations
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) LookupPrice(ctx context.Context, productID, customerIP string) (billing.Money, error) {
	args := m.Called(ctx, productID, customerIP)
	return args.Get(0).(billing.Money), args.Error(1)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookEvent, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.WebhookEvent), args.Error(1)
}

// Test helpers
var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc        billing.Service
	provider   *mockProvider
	subs       *billing.MemorySubscriptionStore
	enterprise *billing.MemoryEnterprisePlanStore
}

func newTestEnv(t *testing.T, opts ...billing.ServiceOption) *testEnv {
	t.Helper()

	env := &testEnv{
		provider:   &mockProvider{},
		subs:       billing.NewMemorySubscriptionStore(),
		enterprise: billing.NewMemoryEnterprisePlanStore(),
	}
	opts = append(opts, billing.WithClock(func() time.Time { return testNow }))
	env.svc = billing.NewService(billing.DefaultCatalog(), env.provider, env.subs, env.enterprise, opts...)
	return env
}

func activeSub(productID string) *billing.Subscription {
	return &billing.Subscription{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		PaddlePlanID: productID,
		Status:       billing.StatusActive,
		NextBillDate: testNow.AddDate(0, 1, 0),
	}
}

func expiredSub(productID string) *billing.Subscription {
	return &billing.Subscription{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		PaddlePlanID: productID,
		Status:       billing.StatusDeleted,
		NextBillDate: testNow.AddDate(0, 0, -3),
	}
}

func generations(plans []billing.Plan) []int {
	gens := make([]int, 0, len(plans))
	for _, p := range plans {
		gens = append(gens, p.Generation)
	}
	return gens
}

func TestService_GrowthPlansFor(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	t.Run("legacy product id pins to generation 1", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(activeSub("493453"))
		require.NotEmpty(t, plans)
		for _, gen := range generations(plans) {
			assert.Equal(t, 1, gen)
		}
	})

	t.Run("generation 1 product id pins to generation 1", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(activeSub("552114"))
		require.NotEmpty(t, plans)
		for _, gen := range generations(plans) {
			assert.Equal(t, 1, gen)
		}
	})

	t.Run("generation 2 product id pins to generation 2", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(activeSub("563112"))
		require.NotEmpty(t, plans)
		for _, gen := range generations(plans) {
			assert.Equal(t, 2, gen)
		}
	})

	t.Run("yearly product id resolves like its monthly sibling", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(activeSub("563113"))
		require.NotEmpty(t, plans)
		assert.Equal(t, 2, plans[0].Generation)
	})

	t.Run("nil subscription sees the latest generation", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(nil)
		require.NotEmpty(t, plans)
		for _, gen := range generations(plans) {
			assert.Equal(t, 4, gen)
		}
	})

	t.Run("expired subscription sees the latest generation", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(expiredSub("552110"))
		require.NotEmpty(t, plans)
		for _, gen := range generations(plans) {
			assert.Equal(t, 4, gen)
		}
	})

	t.Run("free tier sees the latest generation", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(activeSub(billing.FreePlanID))
		require.NotEmpty(t, plans)
		assert.Equal(t, 4, plans[0].Generation)
	})

	t.Run("unrecognized product id falls back to the latest generation", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.GrowthPlansFor(activeSub("999999"))
		require.NotEmpty(t, plans)
		assert.Equal(t, 4, plans[0].Generation)
	})

	t.Run("never returns business plans", func(t *testing.T) {
		t.Parallel()
		for _, sub := range []*billing.Subscription{nil, activeSub("552110"), activeSub("574910"), expiredSub("563110")} {
			for _, plan := range env.svc.GrowthPlansFor(sub) {
				assert.Equal(t, billing.KindGrowth, plan.Kind)
			}
		}
	})
}

func TestService_BusinessPlansFor(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	t.Run("legacy subscription maps to business generation 3", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.BusinessPlansFor(activeSub("493453"))
		require.NotEmpty(t, plans)
		for _, plan := range plans {
			assert.Equal(t, billing.KindBusiness, plan.Kind)
			assert.Equal(t, 3, plan.Generation)
		}
	})

	t.Run("generation 2 growth maps to business generation 3", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.BusinessPlansFor(activeSub("563116"))
		require.NotEmpty(t, plans)
		assert.Equal(t, 3, plans[0].Generation)
	})

	t.Run("generation 4 growth maps to business generation 4", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.BusinessPlansFor(activeSub("585314"))
		require.NotEmpty(t, plans)
		assert.Equal(t, 4, plans[0].Generation)
	})

	t.Run("business subscription stays on its own generation", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.BusinessPlansFor(activeSub("574912"))
		require.NotEmpty(t, plans)
		assert.Equal(t, 3, plans[0].Generation)
	})

	t.Run("nil subscription sees the latest business generation", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.BusinessPlansFor(nil)
		require.NotEmpty(t, plans)
		assert.Equal(t, 4, plans[0].Generation)
	})

	t.Run("expired subscription sees the latest business generation", func(t *testing.T) {
		t.Parallel()
		plans := env.svc.BusinessPlansFor(expiredSub("563110"))
		require.NotEmpty(t, plans)
		assert.Equal(t, 4, plans[0].Generation)
	})
}

func TestService_AvailablePlansFor(t *testing.T) {
	t.Parallel()

	t.Run("without prices leaves cost fields nil", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		available, err := env.svc.AvailablePlansFor(context.Background(), nil, billing.AvailablePlansOptions{})
		require.NoError(t, err)
		require.NotEmpty(t, available.Growth)
		require.NotEmpty(t, available.Business)

		for _, plan := range append(available.Growth, available.Business...) {
			assert.Nil(t, plan.MonthlyCost)
			assert.Nil(t, plan.YearlyCost)
		}
		env.provider.AssertNotCalled(t, "LookupPrice")
	})

	t.Run("with prices populates every cost field", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.provider.On("LookupPrice", mock.Anything, mock.Anything, "203.0.113.10").
			Return(billing.Money{Amount: 999, Currency: "USD"}, nil)

		available, err := env.svc.AvailablePlansFor(context.Background(), nil, billing.AvailablePlansOptions{
			WithPrices: true,
			CustomerIP: "203.0.113.10",
		})
		require.NoError(t, err)

		for _, plan := range append(available.Growth, available.Business...) {
			require.NotNil(t, plan.MonthlyCost)
			require.NotNil(t, plan.YearlyCost)
			assert.Equal(t, int64(999), plan.MonthlyCost.Amount)
			assert.Equal(t, "USD", plan.MonthlyCost.Currency)
		}
	})

	t.Run("requires a customer IP when prices are requested", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, err := env.svc.AvailablePlansFor(context.Background(), nil, billing.AvailablePlansOptions{WithPrices: true})
		assert.ErrorIs(t, err, billing.ErrCustomerIPRequired)
	})

	t.Run("price lookup failures are fatal", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.provider.On("LookupPrice", mock.Anything, mock.Anything, mock.Anything).
			Return(billing.Money{}, billing.ErrPriceLookupFailed)

		_, err := env.svc.AvailablePlansFor(context.Background(), nil, billing.AvailablePlansOptions{
			WithPrices: true,
			CustomerIP: "203.0.113.10",
		})
		assert.ErrorIs(t, err, billing.ErrPriceLookupFailed)
	})
}

func TestService_SuggestPlan(t *testing.T) {
	t.Parallel()

	t.Run("returns the smallest plan covering the usage", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		suggestion, err := env.svc.SuggestPlan(context.Background(), &billing.User{ID: uuid.New()}, 50_000)
		require.NoError(t, err)
		assert.False(t, suggestion.Enterprise)
		require.NotNil(t, suggestion.Plan)
		assert.Equal(t, "100k", suggestion.Plan.Volume)
	})

	t.Run("zero usage suggests the smallest tier", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		suggestion, err := env.svc.SuggestPlan(context.Background(), nil, 0)
		require.NoError(t, err)
		require.NotNil(t, suggestion.Plan)
		assert.Equal(t, "10k", suggestion.Plan.Volume)
	})

	t.Run("usage at the tier boundary still fits the tier", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		suggestion, err := env.svc.SuggestPlan(context.Background(), nil, 100_000)
		require.NoError(t, err)
		require.NotNil(t, suggestion.Plan)
		assert.Equal(t, "100k", suggestion.Plan.Volume)
	})

	t.Run("suggests at the user's pinned generation", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		user := &billing.User{ID: uuid.New(), Subscription: activeSub("552110")}

		suggestion, err := env.svc.SuggestPlan(context.Background(), user, 500_000)
		require.NoError(t, err)
		require.NotNil(t, suggestion.Plan)
		assert.Equal(t, 1, suggestion.Plan.Generation)
	})

	t.Run("usage beyond the largest tier suggests enterprise", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		suggestion, err := env.svc.SuggestPlan(context.Background(), nil, 20_000_000)
		require.NoError(t, err)
		assert.True(t, suggestion.Enterprise)
		assert.Nil(t, suggestion.Plan)
	})

	t.Run("enterprise subscribers always get the enterprise sentinel", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		userID := uuid.New()
		env.enterprise.Add(billing.EnterprisePlan{
			ID:           uuid.New(),
			UserID:       userID,
			PaddlePlanID: "ent_777",
			CreatedAt:    testNow.AddDate(0, -2, 0),
		})
		user := &billing.User{ID: userID, Subscription: activeSub("ent_777")}

		suggestion, err := env.svc.SuggestPlan(context.Background(), user, 1_000)
		require.NoError(t, err)
		assert.True(t, suggestion.Enterprise)
	})
}

func TestService_SuggestPlanFromUsage(t *testing.T) {
	t.Parallel()

	t.Run("feeds usage from the configured source", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		usage := billing.UsageSourceFunc(func(ctx context.Context, id uuid.UUID) (int64, error) {
			assert.Equal(t, userID, id)
			return 1_500_000, nil
		})
		env := newTestEnv(t, billing.WithUsageSource(usage))

		suggestion, err := env.svc.SuggestPlanFromUsage(context.Background(), &billing.User{ID: userID})
		require.NoError(t, err)
		require.NotNil(t, suggestion.Plan)
		assert.Equal(t, "2M", suggestion.Plan.Volume)
	})

	t.Run("errors without a usage source", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, err := env.svc.SuggestPlanFromUsage(context.Background(), &billing.User{ID: uuid.New()})
		assert.ErrorIs(t, err, billing.ErrNoUsageSource)
	})

	t.Run("propagates source failures", func(t *testing.T) {
		t.Parallel()
		sourceErr := errors.New("counter unavailable")
		usage := billing.UsageSourceFunc(func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 0, sourceErr
		})
		env := newTestEnv(t, billing.WithUsageSource(usage))

		_, err := env.svc.SuggestPlanFromUsage(context.Background(), &billing.User{ID: uuid.New()})
		assert.ErrorIs(t, err, sourceErr)
	})
}

func TestService_LatestEnterprisePlanWithPrice(t *testing.T) {
	t.Parallel()

	t.Run("picks the most recently created plan", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		userID := uuid.New()

		env.enterprise.Add(billing.EnterprisePlan{UserID: userID, PaddlePlanID: "123", CreatedAt: testNow})
		env.enterprise.Add(billing.EnterprisePlan{UserID: userID, PaddlePlanID: "456", CreatedAt: testNow.Add(-10 * time.Hour)})
		env.enterprise.Add(billing.EnterprisePlan{UserID: userID, PaddlePlanID: "789", CreatedAt: testNow.Add(-2 * time.Minute)})

		env.provider.On("LookupPrice", mock.Anything, "123", "203.0.113.10").
			Return(billing.Money{Amount: 120_000, Currency: "EUR"}, nil)

		plan, price, err := env.svc.LatestEnterprisePlanWithPrice(context.Background(), userID, "203.0.113.10")
		require.NoError(t, err)
		assert.Equal(t, "123", plan.PaddlePlanID)
		assert.Equal(t, int64(120_000), price.Amount)
		assert.Equal(t, "EUR", price.Currency)
	})

	t.Run("fails for users without enterprise plans", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, _, err := env.svc.LatestEnterprisePlanWithPrice(context.Background(), uuid.New(), "203.0.113.10")
		assert.ErrorIs(t, err, billing.ErrNoEnterprisePlan)
	})

	t.Run("propagates price lookup failures", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		userID := uuid.New()
		env.enterprise.Add(billing.EnterprisePlan{UserID: userID, PaddlePlanID: "123", CreatedAt: testNow})
		env.provider.On("LookupPrice", mock.Anything, "123", mock.Anything).
			Return(billing.Money{}, billing.ErrPriceLookupFailed)

		_, _, err := env.svc.LatestEnterprisePlanWithPrice(context.Background(), userID, "203.0.113.10")
		assert.ErrorIs(t, err, billing.ErrPriceLookupFailed)
	})
}

func TestService_SubscriptionInterval(t *testing.T) {
	t.Parallel()

	t.Run("free tier is never billed", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		interval, err := env.svc.SubscriptionInterval(context.Background(), activeSub(billing.FreePlanID))
		require.NoError(t, err)
		assert.Equal(t, billing.IntervalNotApplicable, interval)
	})

	t.Run("nil subscription is never billed", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		interval, err := env.svc.SubscriptionInterval(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, billing.IntervalNotApplicable, interval)
	})

	t.Run("enterprise ids use the negotiated interval", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.enterprise.Add(billing.EnterprisePlan{
			UserID:          uuid.New(),
			PaddlePlanID:    "ent_42",
			BillingInterval: billing.IntervalYearly,
			CreatedAt:       testNow,
		})

		interval, err := env.svc.SubscriptionInterval(context.Background(), activeSub("ent_42"))
		require.NoError(t, err)
		assert.Equal(t, billing.IntervalYearly, interval)
	})

	t.Run("catalog membership decides monthly vs yearly", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		interval, err := env.svc.SubscriptionInterval(context.Background(), activeSub("574214"))
		require.NoError(t, err)
		assert.Equal(t, billing.IntervalMonthly, interval)

		interval, err = env.svc.SubscriptionInterval(context.Background(), activeSub("574215"))
		require.NoError(t, err)
		assert.Equal(t, billing.IntervalYearly, interval)
	})

	t.Run("retired ids keep their grandfathered interval", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		interval, err := env.svc.SubscriptionInterval(context.Background(), activeSub("493453"))
		require.NoError(t, err)
		assert.Equal(t, billing.IntervalMonthly, interval)

		interval, err = env.svc.SubscriptionInterval(context.Background(), activeSub("493457"))
		require.NoError(t, err)
		assert.Equal(t, billing.IntervalYearly, interval)
	})

	t.Run("unknown product id fails", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		_, err := env.svc.SubscriptionInterval(context.Background(), activeSub("999999"))
		assert.ErrorIs(t, err, billing.ErrPlanNotFound)
	})
}

func TestService_HandleWebhook(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"event_type":"subscription.created"}`)
	signature := "ts=1;h1=abc"

	t.Run("subscription created saves a new subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		userID := uuid.New()
		nextBill := testNow.AddDate(0, 1, 0)

		env.provider.On("ParseWebhook", mock.Anything, payload, signature).Return(&billing.WebhookEvent{
			Type:         billing.EventSubscriptionCreated,
			UserID:       userID.String(),
			PlanID:       "585312",
			Status:       "active",
			NextBillDate: nextBill,
		}, nil)

		require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, signature))

		sub, err := env.subs.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, "585312", sub.PaddlePlanID)
		assert.Equal(t, billing.StatusActive, sub.Status)
		assert.Equal(t, nextBill, sub.NextBillDate)
	})

	t.Run("subscription cancelled marks the subscription deleted", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sub := activeSub("585312")
		require.NoError(t, env.subs.Save(context.Background(), sub))

		env.provider.On("ParseWebhook", mock.Anything, payload, signature).Return(&billing.WebhookEvent{
			Type:   billing.EventSubscriptionCancelled,
			UserID: sub.UserID.String(),
		}, nil)

		require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, signature))

		got, err := env.subs.Get(context.Background(), sub.UserID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusDeleted, got.Status)
	})

	t.Run("payment succeeded advances the billing dates", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sub := activeSub("585312")
		sub.Status = billing.StatusPastDue
		require.NoError(t, env.subs.Save(context.Background(), sub))
		nextBill := testNow.AddDate(0, 1, 0)

		env.provider.On("ParseWebhook", mock.Anything, payload, signature).Return(&billing.WebhookEvent{
			Type:         billing.EventPaymentSucceeded,
			UserID:       sub.UserID.String(),
			NextBillDate: nextBill,
		}, nil)

		require.NoError(t, env.svc.HandleWebhook(context.Background(), payload, signature))

		got, err := env.subs.Get(context.Background(), sub.UserID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, got.Status)
		assert.Equal(t, nextBill, got.NextBillDate)
		assert.Equal(t, testNow, got.LastBillDate)
	})

	t.Run("payment failed without a subscription is ignored", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.provider.On("ParseWebhook", mock.Anything, payload, signature).Return(&billing.WebhookEvent{
			Type:   billing.EventPaymentFailed,
			UserID: uuid.New().String(),
		}, nil)

		assert.NoError(t, env.svc.HandleWebhook(context.Background(), payload, signature))
	})

	t.Run("rejects events without a parseable user id", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.provider.On("ParseWebhook", mock.Anything, payload, signature).Return(&billing.WebhookEvent{
			Type:   billing.EventSubscriptionCreated,
			UserID: "not-a-uuid",
		}, nil)

		err := env.svc.HandleWebhook(context.Background(), payload, signature)
		assert.ErrorIs(t, err, billing.ErrUnknownWebhookUser)
	})

	t.Run("propagates verification failures", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		env.provider.On("ParseWebhook", mock.Anything, payload, signature).
			Return(nil, billing.ErrWebhookVerificationFailed)

		err := env.svc.HandleWebhook(context.Background(), payload, signature)
		assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
	})
}

func TestService_YearlyProductIDs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ids := env.svc.YearlyProductIDs()
	assert.Len(t, ids, 38)
	assert.Contains(t, ids, "493457")
	assert.Equal(t, env.svc.YearlyProductIDs(), ids)
}
