package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"courseforge/internal/model"
)

// CourseRepository defines the interface for reading course outlines
type CourseRepository interface {
	// GetCourseByID retrieves a course by its ID. It returns nil, nil when no such course exists.
	GetCourseByID(ctx context.Context, courseID string) (*model.Course, error)
	GetCoursesByUserID(ctx context.Context, userID string) ([]model.Course, error)
}

type courseRepo struct {
	db *sql.DB
}

// NewCourseRepo creates a new CourseRepository
func NewCourseRepo(db *sql.DB) CourseRepository {
	return &courseRepo{db: db}
}

// GetCourseByID retrieves a course and decodes its outline
func (r *courseRepo) GetCourseByID(ctx context.Context, courseID string) (*model.Course, error) {
	query := `
		SELECT id, user_id, title, description, outline, created_at, updated_at
		FROM courses
		WHERE id = $1
	`
	var c model.Course
	var outline []byte
	err := r.db.QueryRowContext(ctx, query, courseID).Scan(
		&c.CourseID,
		&c.UserID,
		&c.Title,
		&c.Description,
		&outline,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch course %s: %w", courseID, err)
	}
	if err := decodeOutline(outline, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCoursesByUserID retrieves all courses associated with a given user ID
func (r *courseRepo) GetCoursesByUserID(ctx context.Context, userID string) ([]model.Course, error) {
	query := `
		SELECT id, user_id, title, description, outline, created_at, updated_at
		FROM courses
		WHERE user_id = $1
		ORDER BY title ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list courses for user %s: %w", userID, err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		var outline []byte
		if err := rows.Scan(&c.CourseID, &c.UserID, &c.Title, &c.Description, &outline, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if err := decodeOutline(outline, &c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

func decodeOutline(raw []byte, c *model.Course) error {
	if len(raw) == 0 {
		c.Outline = []model.ModuleSpec{}
		return nil
	}
	if err := json.Unmarshal(raw, &c.Outline); err != nil {
		return fmt.Errorf("unmarshal outline for course %s: %w", c.CourseID, err)
	}
	return nil
}
