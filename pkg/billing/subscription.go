package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a read-only snapshot of a user's current plan state as
// last reported by the payment provider. Each user has at most one.
type Subscription struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PaddlePlanID string // catalog product id, enterprise product id, or FreePlanID
	Status       SubscriptionStatus
	NextBillDate time.Time
	LastBillDate time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsFree reports whether the subscription is on the grandfathered free tier.
func (s *Subscription) IsFree() bool {
	return s.PaddlePlanID == FreePlanID
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsDeleted() bool {
	return s.Status == StatusDeleted
}

// IsExpiredAt reports whether the subscription was cancelled and the paid-up
// period has lapsed. Comparison is by calendar date in UTC: a subscription
// billed through today is still in its grace period.
func (s *Subscription) IsExpiredAt(now time.Time) bool {
	if s.Status != StatusDeleted {
		return false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return s.NextBillDate.UTC().Truncate(24 * time.Hour).Before(today)
}

// IsExpired reports whether the subscription is expired right now.
func (s *Subscription) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// EnterprisePlan is a custom, per-user negotiated plan outside the standard
// catalog. A user may accumulate several over time; the most recently created
// one is authoritative.
type EnterprisePlan struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	PaddlePlanID         string
	BillingInterval      BillingInterval
	MonthlyPageviewLimit int64
	SiteLimit            int
	CreatedAt            time.Time
}

// User is the minimal account snapshot the resolver needs.
type User struct {
	ID           uuid.UUID
	Email        string
	Subscription *Subscription
}
