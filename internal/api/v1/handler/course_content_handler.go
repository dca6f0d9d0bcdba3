package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"courseforge/internal/api/v1/dto"
	"courseforge/internal/middleware"
	"courseforge/internal/model"
	"courseforge/internal/service"

	"github.com/rs/zerolog"
)

// CourseContentHandler handles content generation endpoints
type CourseContentHandler struct {
	contentSvc service.CourseContentService
	logger     zerolog.Logger
}

// NewCourseContentHandler creates a new CourseContentHandler
func NewCourseContentHandler(contentSvc service.CourseContentService, logger zerolog.Logger) *CourseContentHandler {
	return &CourseContentHandler{
		contentSvc: contentSvc,
		logger:     logger.With().Str("handler", "CourseContentHandler").Logger(),
	}
}

// RegisterRoutes mounts course content routes
func (h *CourseContentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/courses/", authMw(http.HandlerFunc(h.handleCourseContent)))
}

// handleCourseContent routes /courses/{courseId}/content and /courses/{courseId}/content/jobs
func (h *CourseContentHandler) handleCourseContent(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/courses/"), "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] != "content" || len(parts) > 3 {
		http.NotFound(w, r)
		return
	}
	courseID := parts[0]

	switch {
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.generateContent(w, r, courseID)
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.getContent(w, r, courseID)
	case len(parts) == 3 && parts[2] == "jobs" && r.Method == http.MethodPost:
		h.enqueueGeneration(w, r, courseID)
	case len(parts) == 3 && parts[2] != "jobs":
		http.NotFound(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// generateContent godoc
// @Summary Generate course content
// @Description Runs the enrichment pipeline over the course outline and stores the result.
// @Tags content
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} dto.CourseContentResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 402 {object} dto.GenerationErrorDTO "Generation quota reached"
// @Failure 404 {string} string "Course not found"
// @Failure 422 {object} dto.GenerationErrorDTO "Invalid course outline"
// @Failure 500 {object} dto.GenerationErrorDTO
// @Failure 503 {object} dto.GenerationErrorDTO "External service overloaded, retry later"
// @Router /courses/{courseId}/content [post]
func (h *CourseContentHandler) generateContent(w http.ResponseWriter, r *http.Request, courseID string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	res, err := h.contentSvc.GenerateCourseContent(r.Context(), courseID, userID)
	if err != nil {
		h.writeServiceError(w, courseID, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CourseContentResponseDTO{
		CourseID:        res.CourseID,
		Title:           res.Title,
		Modules:         res.Modules,
		DegradedModules: res.Degraded,
	})
}

// getContent godoc
// @Summary Get generated course content
// @Tags content
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} dto.CourseContentResponseDTO
// @Failure 404 {string} string "Course not found"
// @Router /courses/{courseId}/content [get]
func (h *CourseContentHandler) getContent(w http.ResponseWriter, r *http.Request, courseID string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	content, err := h.contentSvc.GetCourseContent(r.Context(), courseID, userID)
	if err != nil {
		h.writeServiceError(w, courseID, err)
		return
	}
	agg := model.CourseContentAggregate{CourseID: content.CourseID, Modules: content.Modules}
	writeJSON(w, http.StatusOK, dto.CourseContentResponseDTO{
		CourseID:        content.CourseID,
		Modules:         content.Modules,
		DegradedModules: agg.DegradedCount(),
		UpdatedAt:       &content.UpdatedAt,
	})
}

// enqueueGeneration godoc
// @Summary Queue a course content generation
// @Tags content
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 202 {object} dto.GenerationJobResponseDTO
// @Failure 402 {object} dto.GenerationErrorDTO "Generation quota reached"
// @Failure 404 {string} string "Course not found"
// @Router /courses/{courseId}/content/jobs [post]
func (h *CourseContentHandler) enqueueGeneration(w http.ResponseWriter, r *http.Request, courseID string) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	id, err := h.contentSvc.EnqueueGeneration(r.Context(), courseID, userID)
	if err != nil {
		h.writeServiceError(w, courseID, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dto.GenerationJobResponseDTO{JobID: id})
}

func (h *CourseContentHandler) writeServiceError(w http.ResponseWriter, courseID string, err error) {
	var genErr *service.GenerationError
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		http.Error(w, "Course not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNotEntitled):
		writeJSON(w, http.StatusPaymentRequired, dto.GenerationErrorDTO{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidOutline):
		writeJSON(w, http.StatusUnprocessableEntity, dto.GenerationErrorDTO{Error: err.Error()})
	case errors.As(err, &genErr) && genErr.Retryable:
		h.logger.Warn().Err(err).Str("course_id", courseID).Msg("Generation failed on an overloaded service")
		writeJSON(w, http.StatusServiceUnavailable, dto.GenerationErrorDTO{Error: err.Error(), Retryable: true})
	default:
		h.logger.Error().Err(err).Str("course_id", courseID).Msg("Generation failed")
		writeJSON(w, http.StatusInternalServerError, dto.GenerationErrorDTO{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
