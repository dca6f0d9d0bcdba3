// Package generation runs queued course-content generation jobs.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courseforge/internal/config"
	"courseforge/internal/pgmq"
	"courseforge/internal/service"

	"github.com/rs/zerolog"
)

// Queue is satisfied by *pgmq.Client.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
}

// Options control polling and delivery limits.
type Options struct {
	QueueName      string
	VisibilitySec  int
	PollSec        int
	MaxDeliveries  int
	JobTimeout     time.Duration
	ReadErrorDelay time.Duration
}

// OptionsFromConfig maps the GENERATION_* settings onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		QueueName:      cfg.GenerationQueueName,
		VisibilitySec:  cfg.GenerationVisibility(),
		PollSec:        cfg.GenerationPollTimeoutSec,
		MaxDeliveries:  cfg.GenerationMaxDeliveries,
		JobTimeout:     time.Duration(cfg.GenerationJobTimeoutSec) * time.Second,
		ReadErrorDelay: time.Second,
	}
}

type worker struct {
	queue   Queue
	content service.CourseContentService
	dlq     service.DLQService
	opts    Options
	logger  zerolog.Logger
}

// Run starts the generation orchestrator. It returns nil once ctx is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, queue Queue, content service.CourseContentService, dlq service.DLQService, opts Options) error {
	w := &worker{
		queue:   queue,
		content: content,
		dlq:     dlq,
		opts:    opts,
		logger:  logger.With().Str("component", "GenerationOrchestrator").Str("queue", opts.QueueName).Logger(),
	}
	w.logger.Info().Msg("Starting generation orchestrator")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Shutting down generation orchestrator")
			return nil
		default:
		}

		msgs, err := queue.ReadWithPoll(ctx, opts.QueueName, opts.VisibilitySec, 1, opts.PollSec)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("Error reading generation queue")
			select {
			case <-ctx.Done():
			case <-time.After(opts.ReadErrorDelay):
			}
			continue
		}
		for _, msg := range msgs {
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes one delivery. Successful and permanently failed jobs are deleted;
// retryable failures are left to reappear after the visibility timeout.
func (w *worker) handleMessage(ctx context.Context, msg *pgmq.Message) {
	log := w.logger.With().Int64("msg_id", msg.ID).Int("read_ct", msg.ReadCount).Logger()

	if w.opts.MaxDeliveries > 0 && msg.ReadCount > w.opts.MaxDeliveries {
		w.deadLetter(ctx, log, msg, fmt.Errorf("exceeded %d deliveries", w.opts.MaxDeliveries))
		return
	}

	var job service.GenerationJob
	if err := json.Unmarshal(msg.Data, &job); err != nil || job.CourseID == "" {
		if err == nil {
			err = errors.New("missing course_id")
		}
		w.deadLetter(ctx, log, msg, fmt.Errorf("invalid job payload: %w", err))
		return
	}
	log = log.With().Str("course_id", job.CourseID).Logger()

	jobCtx := ctx
	if w.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.opts.JobTimeout)
		defer cancel()
	}

	result, err := w.content.GenerateCourseContent(jobCtx, job.CourseID, job.UserID)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn().Msg("Shutdown during generation; job will be redelivered")
			return
		}
		if isRetryable(err) {
			log.Warn().Err(err).Msg("Generation failed; job will be redelivered")
			return
		}
		w.deadLetter(ctx, log, msg, err)
		return
	}

	if err := w.queue.Delete(ctx, w.opts.QueueName, []int64{msg.ID}); err != nil {
		log.Error().Err(err).Msg("Error deleting generation message")
		return
	}
	log.Info().
		Int("modules", len(result.Modules)).
		Int("degraded_modules", result.Degraded).
		Msg("Generation job completed")
}

func (w *worker) deadLetter(ctx context.Context, log zerolog.Logger, msg *pgmq.Message, reason error) {
	log.Error().Err(reason).Msg("Moving generation job to dead letter queue")
	if err := w.dlq.RecordFailedJob(ctx, w.opts.QueueName, msg.ID, msg.Data, reason, msg.ReadCount); err != nil {
		// Keep the message so the job is not lost.
		log.Error().Err(err).Msg("Error recording dead letter")
		return
	}
	if err := w.queue.Delete(ctx, w.opts.QueueName, []int64{msg.ID}); err != nil {
		log.Error().Err(err).Msg("Error deleting generation message")
	}
}

func isRetryable(err error) bool {
	var genErr *service.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Retryable
	}
	if errors.Is(err, service.ErrCourseNotFound) || errors.Is(err, service.ErrInvalidOutline) || errors.Is(err, service.ErrNotEntitled) {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}
