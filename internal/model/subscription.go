package model

import "time"

// UserSubscription is a user's current plan assignment.
type UserSubscription struct {
	UserID               string    `db:"user_id" json:"user_id"`
	PlanID               string    `db:"plan_id" json:"plan_id"`
	StripeSubscriptionID *string   `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	StartsAt             time.Time `db:"starts_at" json:"starts_at"`
	EndsAt               time.Time `db:"ends_at" json:"ends_at"`
	Status               string    `db:"status" json:"status"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// SubscriptionPlan carries the limits of a plan. MaxGenerations of 0 means unlimited.
type SubscriptionPlan struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	PriceCents     int             `db:"price_cents" json:"price_cents"`
	BillingPeriod  string          `db:"billing_period" json:"billing_period"`
	MaxGenerations int             `db:"max_generations" json:"max_generations"`
	FeatureFlags   map[string]bool `db:"feature_flags" json:"feature_flags"`
}
