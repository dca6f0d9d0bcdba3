package dto

import "time"

// CourseResponseDTO is returned in API responses for courses
type CourseResponseDTO struct {
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ModuleCount int       `json:"module_count"`
	Modules     []string  `json:"modules"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GenerationUsageDTO reports the generation quota of the current plan period.
type GenerationUsageDTO struct {
	PlanID      string    `json:"plan_id"`
	PlanName    string    `json:"plan_name"`
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	Remaining   int       `json:"remaining"` // -1 when unlimited
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}
