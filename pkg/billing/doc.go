// Package billing resolves which subscription plans a user can see and buy.
//
// The package is built around a static, versioned price catalog: every
// catalog revision bumps a generation number, and subscribers stay pinned to
// the generation they bought into until their subscription lapses. All
// resolution functions are pure lookups over that table plus the caller's
// subscription snapshot; the only external call is the optional localized
// price lookup against the payment provider.
//
// # Core Components
//
//   - Catalog: immutable plan table, built once via DefaultCatalog or NewCatalog
//   - Service: plan eligibility, suggestions, intervals, webhook sync
//   - BillingProvider: payment provider surface (price lookup + webhooks),
//     implemented for Paddle by PaddleProvider
//   - SubscriptionStore / EnterprisePlanStore: persistence, with in-memory
//     and PostgreSQL implementations
//   - UsageSource: monthly pageview counters feeding plan suggestions, with
//     a Redis implementation
//
// # Generation Resolution
//
// A subscription's product id is matched against the catalog (including a
// retired-id map for grandfathered legacy plans). A match pins the user to
// that row's generation. No subscription, an expired one (cancelled with the
// paid-up period lapsed), or an unrecognized id all resolve to the newest
// generation, so new and returning customers always see current pricing.
//
// Business plans are versioned independently: growth generations 1–3 map to
// business generation 3, generation 4 maps to 4.
//
// # Quick Start
//
//	provider, err := billing.NewPaddleProvider(paddleCfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc := billing.NewService(
//		billing.DefaultCatalog(),
//		provider,
//		billing.NewPgSubscriptionStore(pool),
//		billing.NewPgEnterprisePlanStore(pool),
//		billing.WithUsageSource(billing.NewRedisUsageSource(redisClient, "billing")),
//	)
//
//	plans, err := svc.AvailablePlansFor(ctx, user.Subscription, billing.AvailablePlansOptions{
//		WithPrices: true,
//		CustomerIP: clientip.GetIP(r),
//	})
//
// Price enrichment failures are fatal for the call; the package does no
// retrying or caching of provider prices.
package billing
