// Package enrichment turns a course skeleton into generated lesson content with curated videos.
package enrichment

import (
	"context"

	"courseforge/internal/extract"
	"courseforge/internal/generation"
	"courseforge/internal/metrics"
	"courseforge/internal/model"

	"github.com/rs/zerolog"
)

// TextGenerator is satisfied by generation.RetryingClient.
type TextGenerator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

// VideoCurator is satisfied by video.Curator.
type VideoCurator interface {
	Curate(ctx context.Context, name string) []model.VideoResult
}

type courseIDKey struct{}

// WithCourseID tags ctx so per-module log lines carry the course they belong to.
func WithCourseID(ctx context.Context, courseID string) context.Context {
	return context.WithValue(ctx, courseIDKey{}, courseID)
}

func courseIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(courseIDKey{}).(string)
	return id
}

// Enricher produces one EnrichedModule per call. It holds no per-call state.
type Enricher struct {
	generator      TextGenerator
	curator        VideoCurator
	model          string
	responseFormat string
	logger         zerolog.Logger
}

// NewEnricher creates an Enricher. An empty responseFormat defaults to JSON.
func NewEnricher(generator TextGenerator, curator VideoCurator, modelName, responseFormat string, logger zerolog.Logger) *Enricher {
	if responseFormat == "" {
		responseFormat = generation.ResponseFormatJSON
	}
	return &Enricher{
		generator:      generator,
		curator:        curator,
		model:          modelName,
		responseFormat: responseFormat,
		logger:         logger.With().Str("component", "ModuleEnricher").Logger(),
	}
}

// Enrich always returns a module. Generation or extraction failures degrade to the placeholder
// module with no videos.
func (e *Enricher) Enrich(ctx context.Context, spec model.ModuleSpec) model.EnrichedModule {
	log := e.logger.With().Str("course_id", courseIDFrom(ctx)).Str("module", spec.Name).Logger()

	req, err := generation.BuildRequest(spec, e.model, e.responseFormat)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build generation request")
		return e.fallback(spec)
	}

	raw, err := e.generator.Generate(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("Generation failed, using placeholder content")
		return e.fallback(spec)
	}

	record, err := extract.Extract(raw)
	if err != nil {
		log.Warn().Err(err).Int("response_length", len(raw)).Msg("Unusable generation output, using placeholder content")
		return e.fallback(spec)
	}

	module := record.Apply(spec)
	module.Videos = e.curator.Curate(ctx, module.ModuleName)
	if module.Videos == nil {
		module.Videos = []model.VideoResult{}
	}

	metrics.ModulesEnriched.WithLabelValues("enriched").Inc()
	log.Info().Int("topics", len(module.Topics)).Int("videos", len(module.Videos)).Msg("Module enriched")
	return module
}

func (e *Enricher) fallback(spec model.ModuleSpec) model.EnrichedModule {
	metrics.ModulesEnriched.WithLabelValues("degraded").Inc()
	return model.FallbackModule(spec)
}
