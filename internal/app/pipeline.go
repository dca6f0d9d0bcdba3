// Package app wires external clients into the enrichment pipeline. It is shared by the API
// server, the generation orchestrator and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"courseforge/internal/config"
	"courseforge/internal/enrichment"
	"courseforge/internal/generation"
	"courseforge/internal/service"
	"courseforge/internal/video"

	"github.com/rs/zerolog"
)

// Pipeline bundles the wired pipeline with the clients that must be closed on shutdown.
type Pipeline struct {
	*enrichment.Pipeline
	closers []func() error
}

// Close releases every client the pipeline holds.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// noVideos is used when no search key is configured; modules then carry no videos.
type noVideos struct{}

func (noVideos) Search(context.Context, string, int64) ([]video.Candidate, error) { return nil, nil }

// BuildPipeline creates the generation backend, the video curator and the pipeline from cfg.
// Empty API keys are looked up in Secret Manager when a GCP project is configured.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Pipeline, error) {
	p := &Pipeline{}
	fail := func(err error) (*Pipeline, error) {
		_ = p.Close()
		return nil, err
	}

	var secrets service.SecretGetter
	if cfg.GCPProjectID != "" && (cfg.GeminiAPIKey == "" || cfg.OpenAIAPIKey == "" || cfg.YouTubeAPIKey == "") {
		sm, err := service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Secret Manager unavailable; using environment keys only")
		} else {
			secrets = sm
			p.closers = append(p.closers, sm.Close)
		}
	}

	gen, modelName, err := buildGenerator(ctx, cfg, secrets, p)
	if err != nil {
		return fail(err)
	}

	retrying := generation.NewRetryingClient(gen, logger,
		generation.WithMaxAttempts(cfg.GenerationMaxAttempts),
		generation.WithCallTimeout(cfg.CallTimeout()),
		generation.WithBackoff(generation.BackoffPolicy{
			Base:   time.Duration(cfg.GenerationBackoffBaseMs) * time.Millisecond,
			Max:    time.Duration(cfg.GenerationBackoffMaxMs) * time.Millisecond,
			Jitter: time.Duration(cfg.GenerationJitterMs) * time.Millisecond,
		}),
	)

	curator, err := buildCurator(ctx, cfg, secrets, logger, p)
	if err != nil {
		return fail(err)
	}

	enricher := enrichment.NewEnricher(retrying, curator, modelName, generation.ResponseFormatJSON, logger)
	p.Pipeline = enrichment.NewPipeline(enricher, logger)
	logger.Info().
		Str("provider", cfg.GenerationProvider).
		Str("model", modelName).
		Int("max_attempts", cfg.GenerationMaxAttempts).
		Msg("Enrichment pipeline ready")
	return p, nil
}

func buildGenerator(ctx context.Context, cfg *config.Config, secrets service.SecretGetter, p *Pipeline) (generation.Generator, string, error) {
	switch strings.ToLower(cfg.GenerationProvider) {
	case "gemini", "":
		key, err := service.ResolveAPIKey(ctx, secrets, cfg.GeminiAPIKey, cfg.GeminiAPIKeySecretName)
		if err != nil {
			return nil, "", err
		}
		g, err := generation.NewGeminiGenerator(ctx, key)
		if err != nil {
			return nil, "", err
		}
		p.closers = append(p.closers, g.Close)
		return g, cfg.GeminiModel, nil
	case "openai":
		key, err := service.ResolveAPIKey(ctx, secrets, cfg.OpenAIAPIKey, cfg.OpenAIAPIKeySecretName)
		if err != nil {
			return nil, "", err
		}
		g, err := generation.NewOpenAIGenerator(key, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, "", err
		}
		return g, cfg.OpenAIModel, nil
	default:
		return nil, "", fmt.Errorf("unknown GENERATION_PROVIDER %q", cfg.GenerationProvider)
	}
}

func buildCurator(ctx context.Context, cfg *config.Config, secrets service.SecretGetter, logger zerolog.Logger, p *Pipeline) (*video.Curator, error) {
	key, err := service.ResolveAPIKey(ctx, secrets, cfg.YouTubeAPIKey, cfg.YouTubeAPIKeySecretName)
	if err != nil {
		logger.Warn().Err(err).Msg("No YouTube key available; modules will not get videos")
	}

	var searcher video.Searcher = noVideos{}
	if key != "" {
		yt, err := video.NewYouTubeSearcher(ctx, key, cfg.VideoSearchRPS)
		if err != nil {
			return nil, err
		}
		searcher = yt
	}

	opts := []video.CuratorOption{video.WithLimits(cfg.VideoSearchMaxCandidates, cfg.VideoResultLimit)}
	if cfg.RedisURL != "" {
		cache, err := video.NewRedisCache(ctx, cfg.RedisURL, cfg.VideoCacheTTL(), logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Video cache disabled")
		} else {
			p.closers = append(p.closers, cache.Close)
			opts = append(opts, video.WithCache(cache))
		}
	}
	return video.NewCurator(searcher, logger, opts...), nil
}
