package main

import (
	"context"
	"database/sql"
	"time"

	"courseforge/internal/api/v1/router"
	"courseforge/internal/config"
	"courseforge/internal/logger"
	"courseforge/internal/pgmq"

	"cloud.google.com/go/pubsub"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Creates the generation queue and the Pub/Sub topic used in local development.
func main() {
	logger := logger.New()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := createQueue(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create generation queue")
	}
	if err := createTopic(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Pub/Sub topic")
	}
	logger.Info().Msg("Local setup complete")
}

func createQueue(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	db, err := sql.Open("pgx", router.PrepareDSN(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := pgmq.New(db).CreateQueue(ctx, cfg.GenerationQueueName); err != nil {
		return err
	}
	logger.Info().Str("queue", cfg.GenerationQueueName).Msg("Queue ready")
	return nil
}

// createTopic only talks to the emulator; deployed topics are managed outside the service.
func createTopic(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.PubSubEmulatorHost == "" || cfg.GCPProjectID == "" {
		logger.Info().Msg("PUBSUB_EMULATOR_HOST or GCP_PROJECT_ID not set; skipping topic creation")
		return nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID,
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	topic := client.Topic(cfg.PubSubCourseContentTopic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		logger.Info().Str("topic", topic.ID()).Msg("Topic already exists")
		return nil
	}
	if _, err := client.CreateTopic(ctx, cfg.PubSubCourseContentTopic); err != nil {
		return err
	}
	logger.Info().Str("topic", cfg.PubSubCourseContentTopic).Msg("Topic created")
	return nil
}
