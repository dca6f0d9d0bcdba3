package service

import (
	"context"
	"time"

	"courseforge/internal/repository"

	"github.com/rs/zerolog"
)

// GenerationUsage is the generation quota of the user's current plan period.
type GenerationUsage struct {
	PlanID      string
	PlanName    string
	Used        int
	Limit       int // 0 means unlimited
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Remaining returns how many generations are left, or -1 when the plan is unlimited.
func (u GenerationUsage) Remaining() int {
	if u.Limit <= 0 {
		return -1
	}
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// SubscriptionService defines read-only business logic for subscriptions.
type SubscriptionService interface {
	// GetGenerationUsage returns repository.ErrNoActiveSubscription when the user has no plan.
	GetGenerationUsage(ctx context.Context, userID string) (*GenerationUsage, error)
}

type subscriptionService struct {
	subRepo   repository.SubscriptionRepository
	usageRepo repository.UsageRepository
	logger    zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(subRepo repository.SubscriptionRepository, usageRepo repository.UsageRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		subRepo:   subRepo,
		usageRepo: usageRepo,
		logger:    logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) GetGenerationUsage(ctx context.Context, userID string) (*GenerationUsage, error) {
	sub, err := s.subRepo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, err := s.subRepo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", sub.PlanID).Msg("Failed to fetch subscription plan")
		return nil, err
	}

	used, err := s.usageRepo.CountGenerationsInTimeRange(ctx, userID, sub.StartsAt, sub.EndsAt)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to count generations")
		return nil, err
	}

	return &GenerationUsage{
		PlanID:      plan.ID,
		PlanName:    plan.Name,
		Used:        used,
		Limit:       plan.MaxGenerations,
		PeriodStart: sub.StartsAt,
		PeriodEnd:   sub.EndsAt,
	}, nil
}
