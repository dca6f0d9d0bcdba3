package service

import (
	"context"
	"errors"
	"fmt"

	"courseforge/internal/model"
	"courseforge/internal/repository"

	"github.com/rs/zerolog"
)

// ErrNotEntitled is returned when the user may not start another generation.
var ErrNotEntitled = errors.New("not_entitled")

// EntitlementService enforces the generation quota of the user's plan. A generation is checked
// before the pipeline runs and only counted once its content has been stored.
type EntitlementService interface {
	// CheckGeneration reports ErrNotEntitled when the user has no active plan or no generations left.
	// It records nothing.
	CheckGeneration(ctx context.Context, userID string) error
	// RecordGeneration counts a stored generation against the plan period. The limit is re-checked in
	// the same transaction, so a concurrent generation that would overshoot it is rejected.
	RecordGeneration(ctx context.Context, userID, courseID string) error
}

type entitlementService struct {
	subRepo   repository.SubscriptionRepository
	usageRepo repository.UsageRepository
	logger    zerolog.Logger
}

func NewEntitlementService(subRepo repository.SubscriptionRepository, usageRepo repository.UsageRepository, logger zerolog.Logger) EntitlementService {
	return &entitlementService{
		subRepo:   subRepo,
		usageRepo: usageRepo,
		logger:    logger.With().Str("service", "EntitlementService").Logger(),
	}
}

func (s *entitlementService) CheckGeneration(ctx context.Context, userID string) error {
	sub, plan, err := s.activePlan(ctx, userID)
	if err != nil {
		return err
	}
	if plan.MaxGenerations <= 0 {
		return nil
	}
	used, err := s.usageRepo.CountGenerationsInTimeRange(ctx, userID, sub.StartsAt, sub.EndsAt)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to count generation usage")
		return err
	}
	if used >= plan.MaxGenerations {
		s.logger.Info().Str("user_id", userID).Str("plan_id", plan.ID).Int("max_generations", plan.MaxGenerations).Msg("Generation quota reached")
		return fmt.Errorf("%w: %w", ErrNotEntitled, repository.ErrGenerationLimitExceeded)
	}
	return nil
}

func (s *entitlementService) RecordGeneration(ctx context.Context, userID, courseID string) error {
	sub, plan, err := s.activePlan(ctx, userID)
	if err != nil {
		return err
	}
	err = s.usageRepo.CheckAndRecordGeneration(ctx, userID, courseID, sub.StartsAt, sub.EndsAt, plan.MaxGenerations)
	if errors.Is(err, repository.ErrGenerationLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrNotEntitled, err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to record generation usage")
		return err
	}
	return nil
}

func (s *entitlementService) activePlan(ctx context.Context, userID string) (*model.UserSubscription, *model.SubscriptionPlan, error) {
	sub, err := s.subRepo.GetActiveSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSubscription) {
			return nil, nil, fmt.Errorf("%w: %w", ErrNotEntitled, err)
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch active subscription")
		return nil, nil, err
	}

	plan, err := s.subRepo.GetPlanByID(ctx, sub.PlanID)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", sub.PlanID).Msg("Failed to fetch subscription plan")
		return nil, nil, err
	}
	return sub, plan, nil
}
