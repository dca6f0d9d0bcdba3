package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`
	JWTSecret          string `envconfig:"JWT_SECRET"`
	MetricsPort        string `envconfig:"METRICS_PORT" default:"9090"`

	// Generation service settings
	GenerationProvider      string `envconfig:"GENERATION_PROVIDER" default:"gemini"`
	GeminiAPIKey            string `envconfig:"GEMINI_API_KEY"`
	GeminiModel             string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OpenAIAPIKey            string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel             string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL           string `envconfig:"OPENAI_BASE_URL"`
	GenerationMaxAttempts   int    `envconfig:"GENERATION_MAX_ATTEMPTS" default:"5"`
	GenerationBackoffBaseMs int    `envconfig:"GENERATION_BACKOFF_BASE_MS" default:"1000"`
	GenerationBackoffMaxMs  int    `envconfig:"GENERATION_BACKOFF_MAX_MS" default:"10000"`
	GenerationJitterMs      int    `envconfig:"GENERATION_JITTER_MS" default:"1000"`
	ExternalCallTimeoutSec  int    `envconfig:"EXTERNAL_CALL_TIMEOUT_SEC" default:"30"`

	// Video search settings
	YouTubeAPIKey            string  `envconfig:"YOUTUBE_API_KEY"`
	VideoSearchMaxCandidates int64   `envconfig:"VIDEO_SEARCH_MAX_CANDIDATES" default:"8"`
	VideoResultLimit         int     `envconfig:"VIDEO_RESULT_LIMIT" default:"4"`
	VideoSearchRPS           float64 `envconfig:"VIDEO_SEARCH_RPS" default:"0"`
	RedisURL                 string  `envconfig:"REDIS_URL"`
	VideoCacheTTLMin         int     `envconfig:"VIDEO_CACHE_TTL_MIN" default:"1440"`

	// Content archive (S3 compatible)
	S3URL           string `envconfig:"S3_URL"`
	S3Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`
	S3ArchiveBucket string `envconfig:"S3_ARCHIVE_BUCKET"`

	// GCP
	GCPProjectID             string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost       string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubCourseContentTopic string `envconfig:"PUBSUB_COURSE_CONTENT_TOPIC" default:"course-content-generated"`
	GeminiAPIKeySecretName   string `envconfig:"GEMINI_API_KEY_SECRET_NAME" default:"gemini-api-key"`
	OpenAIAPIKeySecretName   string `envconfig:"OPENAI_API_KEY_SECRET_NAME" default:"openai-api-key"`
	YouTubeAPIKeySecretName  string `envconfig:"YOUTUBE_API_KEY_SECRET_NAME" default:"youtube-api-key"`

	// Generation orchestrator settings
	GenerationQueueName      string `envconfig:"GENERATION_QUEUE_NAME" default:"course_generation_queue"`
	GenerationPollTimeoutSec int    `envconfig:"GENERATION_POLL_TIMEOUT_SEC" default:"30"`
	GenerationVisibilitySec  int    `envconfig:"GENERATION_VISIBILITY_SEC" default:"660"`
	GenerationMaxDeliveries  int    `envconfig:"GENERATION_MAX_DELIVERIES" default:"3"`
	GenerationJobTimeoutSec  int    `envconfig:"GENERATION_JOB_TIMEOUT_SEC" default:"600"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// visibilityMarginSec leaves room for the delete or dead-letter write after a job times out.
const visibilityMarginSec = 60

// GenerationVisibility is the queue visibility timeout in seconds. It is raised to the job timeout
// plus a margin so a message cannot reappear while its job is still running.
func (c *Config) GenerationVisibility() int {
	if floor := c.GenerationJobTimeoutSec + visibilityMarginSec; c.GenerationJobTimeoutSec > 0 && c.GenerationVisibilitySec < floor {
		return floor
	}
	return c.GenerationVisibilitySec
}

// CallTimeout bounds every individual request to an external service.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.ExternalCallTimeoutSec) * time.Second
}

// VideoCacheTTL is how long curated video lists stay in redis.
func (c *Config) VideoCacheTTL() time.Duration {
	return time.Duration(c.VideoCacheTTLMin) * time.Minute
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
