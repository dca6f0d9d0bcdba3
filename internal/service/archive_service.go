package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"courseforge/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectPutter is the subset of *s3.Client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveService keeps a JSON copy of every generated course in object storage.
type ArchiveService interface {
	Archive(ctx context.Context, agg *model.CourseContentAggregate) (string, error)
}

type archiveService struct {
	s3     ObjectPutter
	bucket string
	logger zerolog.Logger
}

func NewArchiveService(s3Client ObjectPutter, bucket string, logger zerolog.Logger) ArchiveService {
	return &archiveService{
		s3:     s3Client,
		bucket: bucket,
		logger: logger.With().Str("service", "ArchiveService").Logger(),
	}
}

// ArchiveKey is the object key of a course's archived content.
func ArchiveKey(courseID string) string {
	return fmt.Sprintf("course-content/%s.json", courseID)
}

// Archive uploads the aggregate and returns the object key.
func (s *archiveService) Archive(ctx context.Context, agg *model.CourseContentAggregate) (string, error) {
	body, err := json.Marshal(agg)
	if err != nil {
		return "", fmt.Errorf("marshal course %s for archive: %w", agg.CourseID, err)
	}
	key := ArchiveKey(agg.CourseID)
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", key).Msg("Failed to archive course content")
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(body)).Msg("Archived course content")
	return key, nil
}
