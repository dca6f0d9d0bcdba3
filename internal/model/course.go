package model

import "time"

// Course represents a course in the system. Outline holds the skeleton the author entered.
type Course struct {
	CourseID    string       `db:"id" json:"course_id"`
	UserID      string       `db:"user_id" json:"user_id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Outline     []ModuleSpec `db:"outline" json:"outline"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Skeleton converts the stored outline into pipeline input.
func (c *Course) Skeleton() CourseSkeleton {
	return CourseSkeleton{ID: c.CourseID, Name: c.Title, Modules: c.Outline}
}

// CourseContent is a persisted aggregate.
type CourseContent struct {
	CourseID  string           `db:"course_id" json:"course_id"`
	Modules   []EnrichedModule `db:"modules" json:"modules"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}
