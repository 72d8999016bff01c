package billing

import (
	"context"
	"time"
)

// PriceLookup resolves the localized price of a provider product.
// The customer IP drives tax and currency localization on the provider side.
type PriceLookup interface {
	// LookupPrice returns the current price for a product id.
	// Failures are fatal for the caller; there is no retry or fallback here.
	LookupPrice(ctx context.Context, productID, customerIP string) (Money, error)
}

// WebhookParser validates and normalizes incoming provider webhook payloads.
// Implementations must verify the signature before parsing anything.
type WebhookParser interface {
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// EventType represents the normalized billing event type.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"

	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
)

// WebhookEvent is a normalized webhook event from the payment provider.
type WebhookEvent struct {
	Type           EventType
	ProviderEvent  string // original provider event name
	SubscriptionID string // provider's subscription ID
	UserID         string // our user ID, carried in provider metadata
	Status         string
	PlanID         string // product id the user subscribed to
	NextBillDate   time.Time
	Raw            map[string]any
}
