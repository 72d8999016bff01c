package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionStore defines read/write access to subscription snapshots.
// Each user has at most one subscription, so UserID serves as the key.
type SubscriptionStore interface {
	// Get retrieves a subscription by user ID.
	// Returns ErrSubscriptionNotFound if none exists.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Save creates or updates a subscription, keyed by UserID.
	Save(ctx context.Context, sub *Subscription) error
}

// EnterprisePlanStore defines read access to negotiated enterprise plans.
type EnterprisePlanStore interface {
	// ListByUser returns all enterprise plans ever created for a user,
	// oldest first. An empty slice is not an error.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]EnterprisePlan, error)

	// GetByProductID resolves an enterprise plan from its provider product id.
	// When the same id was issued more than once, the newest plan wins.
	// Returns ErrEnterprisePlanNotFound if no plan carries the id.
	GetByProductID(ctx context.Context, productID string) (*EnterprisePlan, error)
}
