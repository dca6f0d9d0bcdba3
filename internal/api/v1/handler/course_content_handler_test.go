package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courseforge/internal/api/v1/dto"
	"courseforge/internal/middleware"
	"courseforge/internal/model"
	"courseforge/internal/repository"
	"courseforge/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubContentService struct {
	result  *service.GenerationResult
	content *model.CourseContent
	jobID   int64
	err     error
	calls   int
}

func (s *stubContentService) GenerateCourseContent(context.Context, string, string) (*service.GenerationResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubContentService) GetCourseContent(context.Context, string, string) (*model.CourseContent, error) {
	return s.content, s.err
}

func (s *stubContentService) EnqueueGeneration(context.Context, string, string) (int64, error) {
	s.calls++
	return s.jobID, s.err
}

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				r = r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func serve(t *testing.T, h *CourseContentHandler, userID, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, asUser(userID))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGenerateContentSuccess(t *testing.T) {
	svc := &stubContentService{result: &service.GenerationResult{
		CourseID: "c1",
		Title:    "Go",
		Modules:  []model.EnrichedModule{{ModuleName: "Basics"}, model.FallbackModule(model.ModuleSpec{Name: "Later"})},
		Degraded: 1,
	}}
	h := NewCourseContentHandler(svc, zerolog.Nop())

	rec := serve(t, h, "u1", http.MethodPost, "/courses/c1/content")

	require.Equal(t, http.StatusOK, rec.Code)
	var body dto.CourseContentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "c1", body.CourseID)
	assert.Equal(t, "Go", body.Title)
	assert.Len(t, body.Modules, 2)
	assert.Equal(t, 1, body.DegradedModules)
	assert.Equal(t, model.FallbackContent, body.Modules[1].About)
}

func TestGenerateContentErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"overloaded", &service.GenerationError{Err: errors.New("503 unavailable"), Retryable: true}, http.StatusServiceUnavailable, true},
		{"persistence", &service.GenerationError{Err: errors.New("disk full")}, http.StatusInternalServerError, false},
		{"invalid outline", fmt.Errorf("%w: duplicate module name", service.ErrInvalidOutline), http.StatusUnprocessableEntity, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewCourseContentHandler(&stubContentService{err: tc.err}, zerolog.Nop())

			rec := serve(t, h, "u1", http.MethodPost, "/courses/c1/content")

			assert.Equal(t, tc.status, rec.Code)
			var body dto.GenerationErrorDTO
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.retryable, body.Retryable)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestGenerateContentNotFound(t *testing.T) {
	h := NewCourseContentHandler(&stubContentService{err: service.ErrCourseNotFound}, zerolog.Nop())
	rec := serve(t, h, "u1", http.MethodPost, "/courses/c1/content")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerationQuotaReached(t *testing.T) {
	denied := fmt.Errorf("%w: %w", service.ErrNotEntitled, repository.ErrGenerationLimitExceeded)
	for _, path := range []string{"/courses/c1/content", "/courses/c1/content/jobs"} {
		t.Run(path, func(t *testing.T) {
			h := NewCourseContentHandler(&stubContentService{err: denied}, zerolog.Nop())

			rec := serve(t, h, "u1", http.MethodPost, path)

			assert.Equal(t, http.StatusPaymentRequired, rec.Code)
			var body dto.GenerationErrorDTO
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Retryable)
		})
	}
}

func TestGenerateContentRequiresUser(t *testing.T) {
	h := NewCourseContentHandler(&stubContentService{}, zerolog.Nop())
	rec := serve(t, h, "", http.MethodPost, "/courses/c1/content")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetContent(t *testing.T) {
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &stubContentService{content: &model.CourseContent{
		CourseID:  "c1",
		Modules:   []model.EnrichedModule{{ModuleName: "Basics"}},
		UpdatedAt: updated,
	}}
	h := NewCourseContentHandler(svc, zerolog.Nop())

	rec := serve(t, h, "u1", http.MethodGet, "/courses/c1/content")

	require.Equal(t, http.StatusOK, rec.Code)
	var body dto.CourseContentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.UpdatedAt)
	assert.True(t, updated.Equal(*body.UpdatedAt))
	assert.Zero(t, body.DegradedModules)
}

func TestEnqueueGeneration(t *testing.T) {
	h := NewCourseContentHandler(&stubContentService{jobID: 17}, zerolog.Nop())

	rec := serve(t, h, "u1", http.MethodPost, "/courses/c1/content/jobs")

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body dto.GenerationJobResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(17), body.JobID)
}

func TestCourseContentRouting(t *testing.T) {
	h := NewCourseContentHandler(&stubContentService{}, zerolog.Nop())

	assert.Equal(t, http.StatusNotFound, serve(t, h, "u1", http.MethodGet, "/courses/c1").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "u1", http.MethodGet, "/courses/c1/lectures").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "u1", http.MethodPost, "/courses/c1/content/other").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, h, "u1", http.MethodDelete, "/courses/c1/content").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, h, "u1", http.MethodGet, "/courses/c1/content/jobs").Code)
}
