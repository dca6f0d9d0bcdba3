package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"courseforge/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoActiveSubscription is returned when the user has no subscription in its validity window.
var ErrNoActiveSubscription = errors.New("no_active_subscription")

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error)
	GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

// GetActiveSubscription returns the current active subscription for a user.
func (r *subscriptionRepo) GetActiveSubscription(ctx context.Context, userID string) (*model.UserSubscription, error) {
	const q = `
        SELECT user_id, plan_id, stripe_subscription_id, starts_at, ends_at, status, created_at, updated_at
        FROM user_subscriptions
        WHERE user_id = $1
          AND status IN ('active', 'cancelled') -- cancelled plans stay usable until period end
          AND (ends_at + INTERVAL '6 hours') > NOW()
    `
	var us model.UserSubscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&us.UserID,
		&us.PlanID,
		&us.StripeSubscriptionID,
		&us.StartsAt,
		&us.EndsAt,
		&us.Status,
		&us.CreatedAt,
		&us.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("fetch active subscription for user %s: %w", userID, err)
	}
	return &us, nil
}

// GetPlanByID returns the subscription plan with its generation quota.
func (r *subscriptionRepo) GetPlanByID(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	const q = `
        SELECT id,
               name,
               price_cents,
               billing_period::text AS billing_period,
               max_generations,
               feature_flags
        FROM subscription_plans
        WHERE id = $1
    `
	var sp model.SubscriptionPlan
	var rawFlags []byte
	err := r.pool.QueryRow(ctx, q, planID).Scan(
		&sp.ID,
		&sp.Name,
		&sp.PriceCents,
		&sp.BillingPeriod,
		&sp.MaxGenerations,
		&rawFlags,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch plan %s: %w", planID, err)
	}
	if len(rawFlags) > 0 {
		if err := json.Unmarshal(rawFlags, &sp.FeatureFlags); err != nil {
			return nil, fmt.Errorf("unmarshal feature_flags for plan %s: %w", planID, err)
		}
	}
	return &sp, nil
}
