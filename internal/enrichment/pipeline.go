package enrichment

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"courseforge/internal/metrics"
	"courseforge/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ModuleEnricher is satisfied by *Enricher.
type ModuleEnricher interface {
	Enrich(ctx context.Context, spec model.ModuleSpec) model.EnrichedModule
}

// ModuleError reports a module task that crashed. It is the only way Run fails besides
// cancellation.
type ModuleError struct {
	Index int
	Name  string
	Err   error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %d (%q): %v", e.Index, e.Name, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Pipeline enriches every module of a course concurrently.
type Pipeline struct {
	enricher ModuleEnricher
	logger   zerolog.Logger
}

func NewPipeline(enricher ModuleEnricher, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		enricher: enricher,
		logger:   logger.With().Str("component", "CoursePipeline").Logger(),
	}
}

// Run starts one task per module and waits for all of them. Modules come back in input order.
// Run does not persist anything.
func (p *Pipeline) Run(ctx context.Context, skeleton model.CourseSkeleton) (*model.CourseContentAggregate, error) {
	start := time.Now()
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	ctx = WithCourseID(ctx, skeleton.ID)
	modules := make([]model.EnrichedModule, len(skeleton.Modules))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range skeleton.Modules {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					p.logger.Error().
						Str("course_id", skeleton.ID).
						Str("module", spec.Name).
						Interface("panic", r).
						Str("stack", string(buf[:n])).
						Msg("Module task panicked")
					err = &ModuleError{Index: i, Name: spec.Name, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			modules[i] = p.enricher.Enrich(gctx, spec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("course %s enrichment cancelled: %w", skeleton.ID, err)
	}

	agg := &model.CourseContentAggregate{CourseID: skeleton.ID, Modules: modules}
	p.logger.Info().
		Str("course_id", skeleton.ID).
		Int("modules", len(modules)).
		Int("degraded", agg.DegradedCount()).
		Dur("elapsed", time.Since(start)).
		Msg("Course enrichment finished")
	return agg, nil
}
