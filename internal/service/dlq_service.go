package service

import (
	"context"
	"encoding/json"

	"courseforge/internal/model"
	"courseforge/internal/repository"
)

// DLQService records generation jobs that will not be delivered again.
type DLQService interface {
	RecordFailedJob(ctx context.Context, queue string, msgID int64, payload []byte, reason error, deliveries int) error
}

type dlqService struct {
	repo repository.DLQRepository
}

func NewDLQService(repo repository.DLQRepository) DLQService {
	return &dlqService{repo: repo}
}

func (s *dlqService) RecordFailedJob(ctx context.Context, queue string, msgID int64, payload []byte, reason error, deliveries int) error {
	job := &model.DeadLetterJob{
		QueueName:  queue,
		MessageID:  msgID,
		Payload:    string(payload),
		Deliveries: deliveries,
		Status:     model.DeadLetterStatusUnprocessed,
	}
	if reason != nil {
		job.Reason = reason.Error()
	}

	// Payload column is JSON; keep undecodable payloads as a JSON string.
	var decoded GenerationJob
	if !json.Valid(payload) {
		quoted, _ := json.Marshal(string(payload))
		job.Payload = string(quoted)
	} else if err := json.Unmarshal(payload, &decoded); err == nil && decoded.CourseID != "" {
		job.CourseID = &decoded.CourseID
	}

	return s.repo.Create(ctx, job)
}
