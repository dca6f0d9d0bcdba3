package service

import (
	"context"

	"courseforge/internal/model"
	"courseforge/internal/repository"
)

// CourseService defines the read operations on course outlines.
type CourseService interface {
	// ListCourses returns the courses owned by userID, ordered by title.
	ListCourses(ctx context.Context, userID string) ([]model.Course, error)
}

type courseService struct {
	repo repository.CourseRepository
}

// NewCourseService creates a new CourseService
func NewCourseService(repo repository.CourseRepository) CourseService {
	return &courseService{repo: repo}
}

func (s *courseService) ListCourses(ctx context.Context, userID string) ([]model.Course, error) {
	courses, err := s.repo.GetCoursesByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}
