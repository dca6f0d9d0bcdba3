package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"courseforge/internal/metrics"

	"github.com/rs/zerolog"
)

const DefaultMaxAttempts = 5

// RetryingClient wraps a Generator with bounded retries.
type RetryingClient struct {
	gen         Generator
	maxAttempts int
	callTimeout time.Duration
	backoff     BackoffPolicy
	jitter      func(max time.Duration) time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      zerolog.Logger
}

type Option func(*RetryingClient)

// WithMaxAttempts overrides the default of 5 attempts.
func WithMaxAttempts(n int) Option {
	return func(c *RetryingClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithCallTimeout bounds each individual attempt. Zero disables the per-attempt deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(c *RetryingClient) { c.callTimeout = d }
}

func WithBackoff(p BackoffPolicy) Option {
	return func(c *RetryingClient) { c.backoff = p }
}

// WithSleep replaces the real timer, mostly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *RetryingClient) { c.sleep = sleep }
}

func WithJitter(jitter func(max time.Duration) time.Duration) Option {
	return func(c *RetryingClient) { c.jitter = jitter }
}

// NewRetryingClient creates a RetryingClient around gen.
func NewRetryingClient(gen Generator, logger zerolog.Logger, opts ...Option) *RetryingClient {
	c := &RetryingClient{
		gen:         gen,
		maxAttempts: DefaultMaxAttempts,
		callTimeout: 30 * time.Second,
		backoff:     DefaultBackoffPolicy(),
		jitter:      RandomJitter,
		sleep:       SleepContext,
		logger:      logger.With().Str("component", "RetryingGenerationClient").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the first non-empty text. It does not judge the content; a response that later
// fails extraction still counts as a success here.
func (c *RetryingClient) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.once(ctx, req)
		if err == nil {
			metrics.GenerationAttempts.WithLabelValues("success").Inc()
			if attempt > 1 {
				c.logger.Info().Int("attempt", attempt).Msg("Generation succeeded after retry")
			}
			return text, nil
		}
		lastErr = err
		if errors.Is(err, ErrEmptyResponse) {
			metrics.GenerationAttempts.WithLabelValues("empty").Inc()
		} else {
			metrics.GenerationAttempts.WithLabelValues("error").Inc()
		}

		if ctx.Err() != nil {
			return "", &Failure{Attempts: attempt, Err: ctx.Err()}
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoff.Delay(attempt, c.jitter(c.backoff.Jitter))
		c.logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("Generation attempt failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return "", &Failure{Attempts: attempt, Err: err}
		}
	}
	c.logger.Error().Err(lastErr).Int("attempts", c.maxAttempts).Msg("Exhausted all generation attempts")
	return "", &Failure{Attempts: c.maxAttempts, Err: lastErr}
}

func (c *RetryingClient) once(ctx context.Context, req Request) (string, error) {
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}
	text, err := c.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
