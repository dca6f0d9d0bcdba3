// Package pgmq is a thin client for the pgmq Postgres extension.
package pgmq

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Client wraps a Postgres DB for pgmq queue operations.
type Client struct {
	db *sql.DB
}

// New returns a new PGMQ client backed by the given DB connection.
func New(db *sql.DB) *Client {
	return &Client{db: db}
}

// Message represents a single pgmq message.
type Message struct {
	ID         int64     // message identifier
	ReadCount  int       // number of times the message has been delivered, including this one
	EnqueuedAt time.Time // when the message was sent
	Data       []byte    // raw JSON payload
}

// Send pushes a JSON payload into the given queue and returns the message ID.
func (c *Client) Send(ctx context.Context, queue string, payload []byte) (int64, error) {
	var id int64
	query := "SELECT pgmq.send($1, $2::jsonb)"
	if err := c.db.QueryRowContext(ctx, query, queue, string(payload)).Scan(&id); err != nil {
		return 0, fmt.Errorf("pgmq send failed: %w", err)
	}
	return id, nil
}

// ReadWithPoll reads up to maxMessages from the queue, blocking up to pollSec seconds. Read
// messages stay invisible to other consumers for visibilitySec seconds unless deleted.
func (c *Client) ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*Message, error) {
	query := "SELECT msg_id, read_ct, enqueued_at, message FROM pgmq.read_with_poll($1, $2, $3, $4)"
	rows, err := c.db.QueryContext(ctx, query, queue, visibilitySec, maxMessages, pollSec)
	if err != nil {
		return nil, fmt.Errorf("pgmq read_with_poll failed: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ReadCount, &m.EnqueuedAt, &m.Data); err != nil {
			return nil, fmt.Errorf("pgmq read scan failed: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgmq read rows error: %w", err)
	}
	return msgs, nil
}

// Delete removes messages by their IDs from the specified queue.
func (c *Client) Delete(ctx context.Context, queue string, msgIDs []int64) error {
	query := "SELECT pgmq.delete($1, $2::bigint[])"
	if _, err := c.db.ExecContext(ctx, query, queue, pq.Array(msgIDs)); err != nil {
		return fmt.Errorf("pgmq delete failed: %w", err)
	}
	return nil
}

// CreateQueue creates the queue if it does not exist yet.
func (c *Client) CreateQueue(ctx context.Context, queue string) error {
	if _, err := c.db.ExecContext(ctx, "SELECT pgmq.create($1)", queue); err != nil {
		return fmt.Errorf("pgmq create failed: %w", err)
	}
	return nil
}
