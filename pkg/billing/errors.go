package billing

import "errors"

var (
	ErrEmptyCatalog   = errors.New("billing catalog is empty")
	ErrInvalidCatalog = errors.New("invalid billing catalog")
	ErrPlanNotFound   = errors.New("billing plan not found")

	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrEnterprisePlanNotFound = errors.New("enterprise plan not found")
	ErrNoEnterprisePlan       = errors.New("user has no enterprise plan")

	ErrCustomerIPRequired = errors.New("customer IP is required for price lookup")
	ErrPriceLookupFailed  = errors.New("price lookup failed")
	ErrNoUsageSource      = errors.New("no usage source configured")

	// Provider-specific errors
	ErrMissingAPIKey              = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret       = errors.New("billing provider webhook secret is required")
	ErrInvalidProviderEnvironment = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed  = errors.New("webhook signature verification failed")
	ErrUnknownWebhookUser         = errors.New("webhook event has no known user")
)
