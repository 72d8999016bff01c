package billing

import (
	"context"

	"github.com/google/uuid"
)

// UsageSource reports how many pageviews a user's sites received in the
// current billing period. Implementations should be cheap to call; the
// suggestion endpoint hits this on every request.
type UsageSource interface {
	MonthlyPageviews(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UsageSourceFunc adapts a plain function to the UsageSource interface.
type UsageSourceFunc func(ctx context.Context, userID uuid.UUID) (int64, error)

func (f UsageSourceFunc) MonthlyPageviews(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f(ctx, userID)
}
