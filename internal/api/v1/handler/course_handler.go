package handler

import (
	"net/http"

	"courseforge/internal/api/v1/dto"
	"courseforge/internal/middleware"
	"courseforge/internal/service"

	"github.com/rs/zerolog"
)

// CourseHandler handles course listing
type CourseHandler struct {
	courseService service.CourseService
	logger        zerolog.Logger
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(courseService service.CourseService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		logger:        logger.With().Str("handler", "CourseHandler").Logger(),
	}
}

// RegisterRoutes mounts course routes
func (h *CourseHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/courses", authMw(http.HandlerFunc(h.listCourses)))
}

// listCourses godoc
// @Summary List courses
// @Description Lists the courses of the authenticated user with their module outline.
// @Tags courses
// @Produce json
// @Success 200 {array} dto.CourseResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 500 {string} string "Failed to list courses"
// @Router /courses [get]
func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	courses, err := h.courseService.ListCourses(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list courses")
		http.Error(w, "Failed to list courses", http.StatusInternalServerError)
		return
	}

	resp := make([]dto.CourseResponseDTO, 0, len(courses))
	for _, c := range courses {
		names := make([]string, 0, len(c.Outline))
		for _, m := range c.Outline {
			names = append(names, m.Name)
		}
		resp = append(resp, dto.CourseResponseDTO{
			CourseID:    c.CourseID,
			Title:       c.Title,
			Description: c.Description,
			ModuleCount: len(c.Outline),
			Modules:     names,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
