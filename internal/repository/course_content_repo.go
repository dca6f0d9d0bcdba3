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

// CourseContentRepository persists enriched course content, one row per course.
type CourseContentRepository interface {
	// UpsertCourseContent replaces any previous content of the course in a single statement.
	UpsertCourseContent(ctx context.Context, agg *model.CourseContentAggregate) error
	// GetCourseContent returns nil, nil when the course has no generated content yet.
	GetCourseContent(ctx context.Context, courseID string) (*model.CourseContent, error)
}

type courseContentRepo struct {
	pool *pgxpool.Pool
}

// NewCourseContentRepo creates a new CourseContentRepository.
func NewCourseContentRepo(pool *pgxpool.Pool) CourseContentRepository {
	return &courseContentRepo{pool: pool}
}

func (r *courseContentRepo) UpsertCourseContent(ctx context.Context, agg *model.CourseContentAggregate) error {
	modules, err := json.Marshal(agg.Modules)
	if err != nil {
		return fmt.Errorf("marshal modules for course %s: %w", agg.CourseID, err)
	}
	const q = `
		INSERT INTO course_contents (course_id, modules, degraded_modules, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (course_id) DO UPDATE
		SET modules = EXCLUDED.modules,
			degraded_modules = EXCLUDED.degraded_modules,
			updated_at = NOW();
	`
	if _, err := r.pool.Exec(ctx, q, agg.CourseID, modules, agg.DegradedCount()); err != nil {
		return fmt.Errorf("upsert content for course %s: %w", agg.CourseID, err)
	}
	return nil
}

func (r *courseContentRepo) GetCourseContent(ctx context.Context, courseID string) (*model.CourseContent, error) {
	const q = `
		SELECT course_id, modules, updated_at
		FROM course_contents
		WHERE course_id = $1
	`
	var cc model.CourseContent
	var raw []byte
	err := r.pool.QueryRow(ctx, q, courseID).Scan(&cc.CourseID, &raw, &cc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch content for course %s: %w", courseID, err)
	}
	if err := json.Unmarshal(raw, &cc.Modules); err != nil {
		return nil, fmt.Errorf("unmarshal modules for course %s: %w", courseID, err)
	}
	return &cc, nil
}
