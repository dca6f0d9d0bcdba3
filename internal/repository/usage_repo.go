package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrGenerationLimitExceeded is returned when a user has used up the generations of their plan period.
var ErrGenerationLimitExceeded = errors.New("generation_limit_exceeded")

const eventCourseGeneration = "course_generation"

// Periods are half-open: [start, end).
const countGenerationsQuery = `
	SELECT COUNT(*)
	FROM usage_events
	WHERE user_id = $1
	  AND event_type = $2
	  AND created_at >= $3
	  AND created_at < $4
`

// UsageRepository tracks user actions for usage-based limits.
type UsageRepository interface {
	// CheckAndRecordGeneration atomically checks the user's generation count for the period and records a new one. Returns ErrGenerationLimitExceeded if the limit is reached.
	CheckAndRecordGeneration(ctx context.Context, userID, courseID string, start, end time.Time, maxGenerations int) error
	CountGenerationsInTimeRange(ctx context.Context, userID string, start, end time.Time) (int, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) CheckAndRecordGeneration(ctx context.Context, userID, courseID string, start, end time.Time, maxGenerations int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("starting transaction for generation check: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	var count int
	if err := tx.QueryRow(ctx, countGenerationsQuery, userID, eventCourseGeneration, start, end).Scan(&count); err != nil {
		return fmt.Errorf("counting generations for user %s: %w", userID, err)
	}
	if maxGenerations > 0 && count >= maxGenerations {
		return ErrGenerationLimitExceeded
	}
	const insertQ = `INSERT INTO usage_events (user_id, event_type, resource_id) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, insertQ, userID, eventCourseGeneration, courseID); err != nil {
		return fmt.Errorf("recording generation event for user %s: %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing generation event for user %s: %w", userID, err)
	}
	return nil
}

func (r *usageRepo) CountGenerationsInTimeRange(ctx context.Context, userID string, start, end time.Time) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countGenerationsQuery, userID, eventCourseGeneration, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting generation events for user %s: %w", userID, err)
	}
	return count, nil
}
