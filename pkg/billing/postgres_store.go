package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSubscriptionStore persists subscriptions in PostgreSQL through pgx.
type PgSubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewPgSubscriptionStore creates a PostgreSQL-backed subscription store.
// Panics if the pool is nil to fail fast during initialization.
func NewPgSubscriptionStore(pool *pgxpool.Pool) *PgSubscriptionStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PgSubscriptionStore{pool: pool}
}

func (s *PgSubscriptionStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	const q = `
		SELECT id, user_id, paddle_plan_id, status, next_bill_date, last_bill_date, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1`

	var sub Subscription
	err := s.pool.QueryRow(ctx, q, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PaddlePlanID,
		&sub.Status,
		&sub.NextBillDate,
		&sub.LastBillDate,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return &sub, nil
}

func (s *PgSubscriptionStore) Save(ctx context.Context, sub *Subscription) error {
	const q = `
		INSERT INTO subscriptions (id, user_id, paddle_plan_id, status, next_bill_date, last_bill_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			paddle_plan_id = EXCLUDED.paddle_plan_id,
			status         = EXCLUDED.status,
			next_bill_date = EXCLUDED.next_bill_date,
			last_bill_date = EXCLUDED.last_bill_date,
			updated_at     = EXCLUDED.updated_at`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	_, err := s.pool.Exec(ctx, q,
		sub.ID,
		sub.UserID,
		sub.PaddlePlanID,
		sub.Status,
		sub.NextBillDate,
		sub.LastBillDate,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// PgEnterprisePlanStore reads negotiated enterprise plans from PostgreSQL.
type PgEnterprisePlanStore struct {
	pool *pgxpool.Pool
}

// NewPgEnterprisePlanStore creates a PostgreSQL-backed enterprise plan store.
// Panics if the pool is nil to fail fast during initialization.
func NewPgEnterprisePlanStore(pool *pgxpool.Pool) *PgEnterprisePlanStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PgEnterprisePlanStore{pool: pool}
}

func (s *PgEnterprisePlanStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]EnterprisePlan, error) {
	const q = `
		SELECT id, user_id, paddle_plan_id, billing_interval, monthly_pageview_limit, site_limit, created_at
		FROM enterprise_plans
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enterprise plans: %w", err)
	}
	defer rows.Close()

	var plans []EnterprisePlan
	for rows.Next() {
		var p EnterprisePlan
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.PaddlePlanID,
			&p.BillingInterval,
			&p.MonthlyPageviewLimit,
			&p.SiteLimit,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan enterprise plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read enterprise plans: %w", err)
	}
	return plans, nil
}

func (s *PgEnterprisePlanStore) GetByProductID(ctx context.Context, productID string) (*EnterprisePlan, error) {
	const q = `
		SELECT id, user_id, paddle_plan_id, billing_interval, monthly_pageview_limit, site_limit, created_at
		FROM enterprise_plans
		WHERE paddle_plan_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var p EnterprisePlan
	err := s.pool.QueryRow(ctx, q, productID).Scan(
		&p.ID,
		&p.UserID,
		&p.PaddlePlanID,
		&p.BillingInterval,
		&p.MonthlyPageviewLimit,
		&p.SiteLimit,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEnterprisePlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query enterprise plan: %w", err)
	}
	return &p, nil
}
