package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemorySubscriptionStore is an in-memory SubscriptionStore for tests and
// local development.
type MemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]Subscription
}

func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[uuid.UUID]Subscription)}
}

func (s *MemorySubscriptionStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *MemorySubscriptionStore) Save(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.UserID] = *sub
	return nil
}

// MemoryEnterprisePlanStore is an in-memory EnterprisePlanStore for tests and
// local development. Plans are kept in insertion order.
type MemoryEnterprisePlanStore struct {
	mu    sync.RWMutex
	plans []EnterprisePlan
}

func NewMemoryEnterprisePlanStore(plans ...EnterprisePlan) *MemoryEnterprisePlanStore {
	return &MemoryEnterprisePlanStore{plans: plans}
}

// Add appends a plan to the store.
func (s *MemoryEnterprisePlanStore) Add(plan EnterprisePlan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plans = append(s.plans, plan)
}

func (s *MemoryEnterprisePlanStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]EnterprisePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []EnterprisePlan
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryEnterprisePlanStore) GetByProductID(ctx context.Context, productID string) (*EnterprisePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *EnterprisePlan
	for i := range s.plans {
		p := s.plans[i]
		if p.PaddlePlanID != productID {
			continue
		}
		if found == nil || !p.CreatedAt.Before(found.CreatedAt) {
			found = &p
		}
	}
	if found == nil {
		return nil, ErrEnterprisePlanNotFound
	}
	plan := *found
	return &plan, nil
}
