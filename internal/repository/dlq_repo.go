package repository

import (
	"context"
	"database/sql"
	"fmt"

	"courseforge/internal/model"
)

// DLQRepository stores generation jobs that will not be retried.
type DLQRepository interface {
	// Create is idempotent per queue and message ID.
	Create(ctx context.Context, job *model.DeadLetterJob) error
}

type dlqRepository struct {
	db *sql.DB
}

func NewDLQRepository(db *sql.DB) DLQRepository {
	return &dlqRepository{db: db}
}

func (r *dlqRepository) Create(ctx context.Context, job *model.DeadLetterJob) error {
	query := `
        INSERT INTO dead_letter_jobs (queue_name, message_id, course_id, payload, reason, deliveries, status)
        VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)
        ON CONFLICT (queue_name, message_id) DO NOTHING
    `
	if _, err := r.db.ExecContext(ctx, query,
		job.QueueName,
		job.MessageID,
		job.CourseID,
		job.Payload,
		job.Reason,
		job.Deliveries,
		job.Status,
	); err != nil {
		return fmt.Errorf("insert dead letter %s/%d: %w", job.QueueName, job.MessageID, err)
	}
	return nil
}
