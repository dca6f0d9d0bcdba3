package dto

import (
	"time"

	"courseforge/internal/model"
)

// CourseContentResponseDTO is returned after a generation and when reading stored content
type CourseContentResponseDTO struct {
	CourseID        string                 `json:"course_id"`
	Title           string                 `json:"title,omitempty"`
	Modules         []model.EnrichedModule `json:"modules"`
	DegradedModules int                    `json:"degraded_modules"`
	UpdatedAt       *time.Time             `json:"updated_at,omitempty"`
}

// GenerationErrorDTO tells the caller whether trying again later may succeed
type GenerationErrorDTO struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// GenerationJobResponseDTO is returned when a generation is queued
type GenerationJobResponseDTO struct {
	JobID int64 `json:"job_id"`
}
