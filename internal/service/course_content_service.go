package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courseforge/internal/enrichment"
	"courseforge/internal/generation"
	"courseforge/internal/model"
	"courseforge/internal/pubsub"
	"courseforge/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var (
	// ErrCourseNotFound is returned when the course does not exist or belongs to someone else.
	ErrCourseNotFound = errors.New("course not found")
	// ErrInvalidOutline is returned when the stored outline cannot be enriched.
	ErrInvalidOutline = errors.New("invalid course outline")
)

// GenerationError is a course-level failure. Retryable is set when the cause is an overloaded
// external service, so the caller can try again later.
type GenerationError struct {
	Err       error
	Retryable bool
}

func (e *GenerationError) Error() string { return e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// newGenerationError classifies cause before msg is prepended.
func newGenerationError(cause error, msg string) *GenerationError {
	err := cause
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, cause)
	}
	return &GenerationError{Err: err, Retryable: isOverloaded(cause)}
}

func isOverloaded(cause error) bool {
	var modErr *enrichment.ModuleError
	if errors.As(cause, &modErr) || errors.Is(cause, context.Canceled) {
		return false
	}
	return generation.IsOverloaded(cause)
}

// ContentPipeline is satisfied by *enrichment.Pipeline.
type ContentPipeline interface {
	Run(ctx context.Context, skeleton model.CourseSkeleton) (*model.CourseContentAggregate, error)
}

// JobQueue is satisfied by *pgmq.Client.
type JobQueue interface {
	Send(ctx context.Context, queue string, payload []byte) (int64, error)
}

// GenerationJob is the payload of an asynchronous generation request.
type GenerationJob struct {
	CourseID    string    `json:"course_id"`
	UserID      string    `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// CourseContentEvent is published after content has been stored.
type CourseContentEvent struct {
	CourseID        string    `json:"course_id"`
	ModuleCount     int       `json:"module_count"`
	DegradedModules int       `json:"degraded_modules"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// GenerationResult is what the caller gets back from a successful run.
type GenerationResult struct {
	CourseID string
	Title    string
	Modules  []model.EnrichedModule
	Degraded int
}

// CourseContentService runs the enrichment pipeline for stored courses and persists the result.
type CourseContentService interface {
	// GenerateCourseContent enriches the course outline and upserts it. userID, when set, must own the course.
	GenerateCourseContent(ctx context.Context, courseID, userID string) (*GenerationResult, error)
	GetCourseContent(ctx context.Context, courseID, userID string) (*model.CourseContent, error)
	// EnqueueGeneration schedules a generation for the orchestrator and returns the job ID.
	EnqueueGeneration(ctx context.Context, courseID, userID string) (int64, error)
}

type courseContentService struct {
	courseRepo   repository.CourseRepository
	contentRepo  repository.CourseContentRepository
	pipeline     ContentPipeline
	validate     *validator.Validate
	entitlements EntitlementService
	archive      ArchiveService
	publisher    pubsub.Publisher
	contentTopic string
	queue        JobQueue
	queueName    string
	now          func() time.Time
	logger       zerolog.Logger
}

// NewCourseContentService creates a CourseContentService. entitlements, archive, publisher and queue
// are optional; without entitlements no quota applies.
func NewCourseContentService(
	courseRepo repository.CourseRepository,
	contentRepo repository.CourseContentRepository,
	pipeline ContentPipeline,
	validate *validator.Validate,
	entitlements EntitlementService,
	archive ArchiveService,
	publisher pubsub.Publisher,
	contentTopic string,
	queue JobQueue,
	queueName string,
	logger zerolog.Logger,
) CourseContentService {
	return &courseContentService{
		courseRepo:   courseRepo,
		contentRepo:  contentRepo,
		pipeline:     pipeline,
		validate:     validate,
		entitlements: entitlements,
		archive:      archive,
		publisher:    publisher,
		contentTopic: contentTopic,
		queue:        queue,
		queueName:    queueName,
		now:          time.Now,
		logger:       logger.With().Str("service", "CourseContentService").Logger(),
	}
}

func (s *courseContentService) GenerateCourseContent(ctx context.Context, courseID, userID string) (*GenerationResult, error) {
	course, err := s.loadCourse(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	skeleton := course.Skeleton()
	if err := s.validateSkeleton(skeleton); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	agg, err := s.pipeline.Run(ctx, skeleton)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", courseID).Msg("Course enrichment failed")
		return nil, newGenerationError(err, "enriching course "+courseID)
	}

	if err := s.contentRepo.UpsertCourseContent(ctx, agg); err != nil {
		s.logger.Error().Err(err).Str("course_id", courseID).Msg("Failed to persist course content")
		return nil, newGenerationError(err, "")
	}

	s.recordUsage(ctx, userID, courseID)
	s.archiveContent(ctx, agg)
	s.publishEvent(ctx, agg)

	return &GenerationResult{
		CourseID: course.CourseID,
		Title:    course.Title,
		Modules:  agg.Modules,
		Degraded: agg.DegradedCount(),
	}, nil
}

func (s *courseContentService) GetCourseContent(ctx context.Context, courseID, userID string) (*model.CourseContent, error) {
	if _, err := s.loadCourse(ctx, courseID, userID); err != nil {
		return nil, err
	}
	content, err := s.contentRepo.GetCourseContent(ctx, courseID)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", courseID).Msg("Failed to fetch course content")
		return nil, err
	}
	if content == nil {
		return nil, ErrCourseNotFound
	}
	return content, nil
}

func (s *courseContentService) EnqueueGeneration(ctx context.Context, courseID, userID string) (int64, error) {
	if s.queue == nil {
		return 0, errors.New("generation queue is not configured")
	}
	course, err := s.loadCourse(ctx, courseID, userID)
	if err != nil {
		return 0, err
	}
	if err := s.validateSkeleton(course.Skeleton()); err != nil {
		return 0, err
	}
	// The worker checks again and records the generation once it is stored.
	if err := s.checkQuota(ctx, userID); err != nil {
		return 0, err
	}
	payload, err := json.Marshal(GenerationJob{CourseID: courseID, UserID: userID, RequestedAt: s.now().UTC()})
	if err != nil {
		return 0, fmt.Errorf("marshal generation job: %w", err)
	}
	id, err := s.queue.Send(ctx, s.queueName, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", courseID).Str("queue", s.queueName).Msg("Failed to enqueue generation job")
		return 0, err
	}
	s.logger.Info().Str("course_id", courseID).Int64("job_id", id).Msg("Generation job enqueued")
	return id, nil
}

func (s *courseContentService) loadCourse(ctx context.Context, courseID, userID string) (*model.Course, error) {
	course, err := s.courseRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", courseID).Msg("Failed to load course")
		return nil, newGenerationError(err, "")
	}
	if course == nil || (userID != "" && course.UserID != userID) {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// checkQuota is skipped for runs without a user, which only trusted callers can start.
func (s *courseContentService) checkQuota(ctx context.Context, userID string) error {
	if s.entitlements == nil || userID == "" {
		return nil
	}
	err := s.entitlements.CheckGeneration(ctx, userID)
	if err == nil || errors.Is(err, ErrNotEntitled) {
		return err
	}
	return newGenerationError(err, "checking generation quota")
}

// recordUsage runs after the upsert, so the content is kept even if counting it fails.
func (s *courseContentService) recordUsage(ctx context.Context, userID, courseID string) {
	if s.entitlements == nil || userID == "" {
		return
	}
	err := s.entitlements.RecordGeneration(ctx, userID, courseID)
	switch {
	case errors.Is(err, ErrNotEntitled):
		s.logger.Warn().Err(err).Str("user_id", userID).Str("course_id", courseID).Msg("Concurrent generation went past the quota")
	case err != nil:
		s.logger.Error().Err(err).Str("user_id", userID).Str("course_id", courseID).Msg("Failed to record generation usage")
	}
}

func (s *courseContentService) validateSkeleton(skeleton model.CourseSkeleton) error {
	return ValidateSkeleton(s.validate, skeleton)
}

// ValidateSkeleton checks the struct rules and module name uniqueness of an outline.
func ValidateSkeleton(validate *validator.Validate, skeleton model.CourseSkeleton) error {
	if err := validate.Struct(skeleton); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutline, err)
	}
	if dup := skeleton.DuplicateModuleName(); dup != "" {
		return fmt.Errorf("%w: duplicate module name %q", ErrInvalidOutline, dup)
	}
	return nil
}

func (s *courseContentService) archiveContent(ctx context.Context, agg *model.CourseContentAggregate) {
	if s.archive == nil {
		return
	}
	if _, err := s.archive.Archive(ctx, agg); err != nil {
		// The upsert already succeeded; the archive is a secondary copy.
		s.logger.Warn().Err(err).Str("course_id", agg.CourseID).Msg("Course content archive skipped")
	}
}

func (s *courseContentService) publishEvent(ctx context.Context, agg *model.CourseContentAggregate) {
	if s.publisher == nil || s.contentTopic == "" {
		return
	}
	data, err := json.Marshal(CourseContentEvent{
		CourseID:        agg.CourseID,
		ModuleCount:     len(agg.Modules),
		DegradedModules: agg.DegradedCount(),
		GeneratedAt:     s.now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", agg.CourseID).Msg("Failed to marshal course content event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.contentTopic, data); err != nil {
		s.logger.Error().Err(err).Str("topic", s.contentTopic).Msg("Failed to publish course content event")
	}
}
