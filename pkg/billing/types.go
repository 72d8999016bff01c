package billing

// Kind distinguishes the two standard pricing tiers and custom enterprise deals.
type Kind string

const (
	KindGrowth     Kind = "growth"
	KindBusiness   Kind = "business"
	KindEnterprise Kind = "enterprise"
)

// FreePlanID is the sentinel product id assigned to accounts on the
// grandfathered free tier. It never appears in the paid catalog.
const FreePlanID = "free_10k"

// BillingInterval represents the billing frequency for a subscription plan.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
	// IntervalNotApplicable is reported for the free tier, which is never billed.
	IntervalNotApplicable BillingInterval = "N/A"
)

// SubscriptionStatus represents the current state of a subscription as
// reported by the payment provider.
type SubscriptionStatus string

const (
	StatusActive  SubscriptionStatus = "active"
	StatusPastDue SubscriptionStatus = "past_due"
	StatusPaused  SubscriptionStatus = "paused"
	StatusDeleted SubscriptionStatus = "deleted"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  // Amount in smallest currency unit (cents for USD)
	Currency string // ISO 4217 currency code
}

// Suggestion is the result of a plan suggestion. When Enterprise is true the
// usage (or the account's existing deal) is beyond the standard catalog and
// Plan is nil.
type Suggestion struct {
	Enterprise bool
	Plan       *Plan
}
