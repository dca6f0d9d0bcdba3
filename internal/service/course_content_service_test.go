package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"courseforge/internal/enrichment"
	"courseforge/internal/generation"
	"courseforge/internal/model"
	"courseforge/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCourseRepo struct {
	course  *model.Course
	courses []model.Course
	err     error
}

func (f *fakeCourseRepo) GetCourseByID(context.Context, string) (*model.Course, error) {
	return f.course, f.err
}

func (f *fakeCourseRepo) GetCoursesByUserID(context.Context, string) ([]model.Course, error) {
	return f.courses, f.err
}

type fakeContentRepo struct {
	mu       sync.Mutex
	upserted []*model.CourseContentAggregate
	stored   *model.CourseContent
	err      error
}

func (f *fakeContentRepo) UpsertCourseContent(_ context.Context, agg *model.CourseContentAggregate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, agg)
	return nil
}

func (f *fakeContentRepo) GetCourseContent(context.Context, string) (*model.CourseContent, error) {
	return f.stored, f.err
}

type fakePipeline struct {
	agg   *model.CourseContentAggregate
	err   error
	calls int
}

func (f *fakePipeline) Run(_ context.Context, s model.CourseSkeleton) (*model.CourseContentAggregate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.agg != nil {
		return f.agg, nil
	}
	mods := make([]model.EnrichedModule, len(s.Modules))
	for i, m := range s.Modules {
		mods[i] = model.EnrichedModule{ModuleName: m.Name, ChapterTitle: m.Name}
	}
	return &model.CourseContentAggregate{CourseID: s.ID, Modules: mods}, nil
}

type fakeArchive struct {
	keys []string
	err  error
}

func (f *fakeArchive) Archive(_ context.Context, agg *model.CourseContentAggregate) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := ArchiveKey(agg.CourseID)
	f.keys = append(f.keys, key)
	return key, nil
}

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return "msg-1", f.err
}

type fakeQueue struct {
	queue   string
	payload []byte
}

func (f *fakeQueue) Send(_ context.Context, queue string, payload []byte) (int64, error) {
	f.queue, f.payload = queue, payload
	return 42, nil
}

type fakeEntitlements struct {
	checkErr  error
	recordErr error
	checks    int
	recorded  []string
}

func (f *fakeEntitlements) CheckGeneration(context.Context, string) error {
	f.checks++
	return f.checkErr
}

func (f *fakeEntitlements) RecordGeneration(_ context.Context, _, courseID string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, courseID)
	return nil
}

func sampleCourse() *model.Course {
	return &model.Course{
		CourseID: "course-1",
		UserID:   "user-1",
		Title:    "Go for Beginners",
		Outline: []model.ModuleSpec{
			{Name: "Basics", Topics: []string{"Syntax", "Types"}},
			{Name: "Concurrency", Topics: []string{"Goroutines"}},
		},
	}
}

type serviceFixture struct {
	courses   *fakeCourseRepo
	content   *fakeContentRepo
	pipeline  *fakePipeline
	quota     *fakeEntitlements
	archive   *fakeArchive
	publisher *fakePublisher
	queue     *fakeQueue
	svc       CourseContentService
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		courses:   &fakeCourseRepo{course: sampleCourse()},
		content:   &fakeContentRepo{},
		pipeline:  &fakePipeline{},
		quota:     &fakeEntitlements{},
		archive:   &fakeArchive{},
		publisher: &fakePublisher{},
		queue:     &fakeQueue{},
	}
	f.svc = NewCourseContentService(
		f.courses, f.content, f.pipeline,
		validator.New(validator.WithRequiredStructEnabled()),
		f.quota,
		f.archive, f.publisher, "course-content-generated",
		f.queue, "course_generation_queue",
		zerolog.Nop(),
	)
	return f
}

func TestGenerateCourseContentPersistsArchivesAndPublishes(t *testing.T) {
	f := newFixture()

	res, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "Go for Beginners", res.Title)
	require.Len(t, res.Modules, 2)
	assert.Equal(t, "Basics", res.Modules[0].ModuleName)
	require.Len(t, f.content.upserted, 1)
	assert.Equal(t, "course-1", f.content.upserted[0].CourseID)
	assert.Equal(t, []string{"course-content/course-1.json"}, f.archive.keys)

	require.Len(t, f.publisher.payloads, 1)
	assert.Equal(t, "course-content-generated", f.publisher.topics[0])
	var ev CourseContentEvent
	require.NoError(t, json.Unmarshal(f.publisher.payloads[0], &ev))
	assert.Equal(t, "course-1", ev.CourseID)
	assert.Equal(t, 2, ev.ModuleCount)
	assert.Zero(t, ev.DegradedModules)
}

func TestGenerateCourseContentKeepsDegradedModules(t *testing.T) {
	f := newFixture()
	f.pipeline.agg = &model.CourseContentAggregate{CourseID: "course-1", Modules: []model.EnrichedModule{
		{ModuleName: "Basics"},
		model.FallbackModule(model.ModuleSpec{Name: "Concurrency"}),
	}}

	res, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Degraded)
	assert.True(t, res.Modules[1].IsFallback())
}

func TestGenerateCourseContentNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "someone-else")
	assert.ErrorIs(t, err, ErrCourseNotFound)

	f.courses.course = nil
	_, err = f.svc.GenerateCourseContent(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.Zero(t, f.pipeline.calls)
}

func TestGenerateCourseContentRejectsInvalidOutline(t *testing.T) {
	cases := map[string][]model.ModuleSpec{
		"duplicate names": {{Name: "Basics", Topics: []string{"a"}}, {Name: "basics", Topics: []string{"b"}}},
		"no topics":       {{Name: "Basics"}},
		"empty name":      {{Name: "", Topics: []string{"a"}}},
	}
	for name, outline := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.courses.course.Outline = outline

			_, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "")
			assert.ErrorIs(t, err, ErrInvalidOutline)
			assert.Zero(t, f.pipeline.calls)
		})
	}
}

func TestGenerateCourseContentClassifiesFailures(t *testing.T) {
	f := newFixture()
	f.pipeline.err = errors.New("model is overloaded")

	_, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "")
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.True(t, genErr.Retryable)
	assert.Empty(t, f.content.upserted)

	f = newFixture()
	f.content.err = errors.New("duplicate key value violates constraint")
	_, err = f.svc.GenerateCourseContent(context.Background(), "course-1", "")
	require.ErrorAs(t, err, &genErr)
	assert.False(t, genErr.Retryable)
	assert.Empty(t, f.archive.keys)
	assert.Empty(t, f.publisher.payloads)
}

func TestGenerateCourseContentClassifiesUndecoratedCause(t *testing.T) {
	const courseID = "9f1c5034-4291-4b7a-a429-1e2f3d4c5b6a"
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"panicking module", &enrichment.ModuleError{Index: 1, Name: "HTTP 429 handling", Err: errors.New("panic: nil map")}, false},
		{"cancelled", context.Canceled, false},
		{"overloaded after retries", &generation.Failure{Attempts: 5, Err: errors.New("model overloaded")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.courses.course.CourseID = courseID
			f.pipeline.err = tc.err

			_, err := f.svc.GenerateCourseContent(context.Background(), courseID, "")
			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Contains(t, genErr.Error(), courseID)
			assert.Equal(t, tc.retryable, genErr.Retryable)
		})
	}
}

func TestGenerateCourseContentRecordsUsageAfterStore(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.quota.checks)
	assert.Equal(t, []string{"course-1"}, f.quota.recorded)
}

func TestGenerateCourseContentFailuresLeaveUsageUntouched(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(f *serviceFixture)
		checks int
		target error
	}{
		{"other owner", func(f *serviceFixture) { f.courses.course.UserID = "someone-else" }, 0, ErrCourseNotFound},
		{"missing course", func(f *serviceFixture) { f.courses.course = nil }, 0, ErrCourseNotFound},
		{"invalid outline", func(f *serviceFixture) { f.courses.course.Outline = []model.ModuleSpec{{Name: "Basics"}} }, 0, ErrInvalidOutline},
		{"overloaded", func(f *serviceFixture) { f.pipeline.err = errors.New("model is overloaded") }, 1, nil},
		{"persistence", func(f *serviceFixture) { f.content.err = errors.New("disk full") }, 1, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			tc.setup(f)

			_, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "user-1")
			require.Error(t, err)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
			assert.Equal(t, tc.checks, f.quota.checks)
			assert.Empty(t, f.quota.recorded)
		})
	}
}

func TestGenerateCourseContentNotEntitled(t *testing.T) {
	f := newFixture()
	f.quota.checkErr = fmt.Errorf("%w: %w", ErrNotEntitled, repository.ErrGenerationLimitExceeded)

	_, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "user-1")
	assert.ErrorIs(t, err, ErrNotEntitled)
	assert.Zero(t, f.pipeline.calls)
	assert.Empty(t, f.content.upserted)
}

func TestGenerateCourseContentKeepsContentWhenRecordingFails(t *testing.T) {
	f := newFixture()
	f.quota.recordErr = errors.New("connection reset")

	res, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, res.Modules, 2)
	assert.Len(t, f.content.upserted, 1)
}

func TestGenerateCourseContentIgnoresSideChannelFailures(t *testing.T) {
	f := newFixture()
	f.archive.err = errors.New("s3 down")
	f.publisher.err = errors.New("pubsub down")

	_, err := f.svc.GenerateCourseContent(context.Background(), "course-1", "")
	assert.NoError(t, err)
	assert.Len(t, f.content.upserted, 1)
}

func TestGetCourseContent(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetCourseContent(context.Background(), "course-1", "user-1")
	assert.ErrorIs(t, err, ErrCourseNotFound)

	f.content.stored = &model.CourseContent{CourseID: "course-1", Modules: []model.EnrichedModule{{ModuleName: "Basics"}}}
	got, err := f.svc.GetCourseContent(context.Background(), "course-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, got.Modules, 1)
}

func TestEnqueueGeneration(t *testing.T) {
	f := newFixture()

	id, err := f.svc.EnqueueGeneration(context.Background(), "course-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, int64(42), id)
	assert.Equal(t, "course_generation_queue", f.queue.queue)
	var job GenerationJob
	require.NoError(t, json.Unmarshal(f.queue.payload, &job))
	assert.Equal(t, "course-1", job.CourseID)
	assert.Equal(t, "user-1", job.UserID)
	assert.WithinDuration(t, time.Now(), job.RequestedAt, time.Minute)
	assert.Equal(t, 1, f.quota.checks)
	assert.Empty(t, f.quota.recorded)
}

func TestEnqueueGenerationChecksQuotaAfterOwnership(t *testing.T) {
	f := newFixture()
	f.quota.checkErr = ErrNotEntitled

	_, err := f.svc.EnqueueGeneration(context.Background(), "course-1", "someone-else")
	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.Zero(t, f.quota.checks)

	_, err = f.svc.EnqueueGeneration(context.Background(), "course-1", "user-1")
	assert.ErrorIs(t, err, ErrNotEntitled)
	assert.Nil(t, f.queue.payload)
}
