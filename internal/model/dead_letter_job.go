package model

import "time"

// DeadLetterJob is a generation job that will not be delivered again, kept for operator review.
type DeadLetterJob struct {
	ID         string    `db:"id"`
	QueueName  string    `db:"queue_name"`
	MessageID  int64     `db:"message_id"`
	CourseID   *string   `db:"course_id"` // nil when the payload could not be decoded
	Payload    string    `db:"payload"`   // JSON
	Reason     string    `db:"reason"`
	Deliveries int       `db:"deliveries"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

const DeadLetterStatusUnprocessed = "unprocessed"
