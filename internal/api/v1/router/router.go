package router

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"courseforge/internal/api/v1/handler"
	"courseforge/internal/app"
	"courseforge/internal/config"
	"courseforge/internal/metrics"
	"courseforge/internal/middleware"
	"courseforge/internal/pgmq"
	"courseforge/internal/pubsub"
	"courseforge/internal/repository"
	"courseforge/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Resources are the long-lived connections behind the router. Close releases them.
type Resources struct {
	DB       *sql.DB
	Pool     *pgxpool.Pool
	Pipeline *app.Pipeline
	closers  []func() error
}

func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

// Services are the wired business services, shared by the API server and the orchestrator.
type Services struct {
	Content      service.CourseContentService
	Courses      service.CourseService
	Subscription service.SubscriptionService
	DLQ          service.DLQService
	Queue        *pgmq.Client
}

// NewServices opens the databases and builds every service from cfg.
func NewServices(ctx context.Context, cfg *config.Config, db *sql.DB, logger zerolog.Logger) (*Services, *Resources, error) {
	res := &Resources{DB: db}

	pool, err := pgxpool.New(ctx, PrepareDSN(cfg))
	if err != nil {
		return nil, nil, err
	}
	res.Pool = pool
	res.closers = append(res.closers, func() error { pool.Close(); return nil })

	pipeline, err := app.BuildPipeline(ctx, cfg, logger)
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	res.Pipeline = pipeline
	res.closers = append(res.closers, pipeline.Close)

	var archive service.ArchiveService
	if cfg.S3ArchiveBucket != "" {
		s3Client, err := newS3Client(ctx, cfg)
		if err != nil {
			res.Close()
			return nil, nil, err
		}
		archive = service.NewArchiveService(s3Client, cfg.S3ArchiveBucket, logger)
	}

	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		pub, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Pub/Sub publisher disabled")
		} else {
			publisher = pub
			res.closers = append(res.closers, pub.Close)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	queue := pgmq.New(db)

	courseRepo := repository.NewCourseRepo(db)
	contentRepo := repository.NewCourseContentRepo(pool)
	subRepo := repository.NewSubscriptionRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	dlqRepo := repository.NewDLQRepository(db)

	entitlements := service.NewEntitlementService(subRepo, usageRepo, logger)
	svcs := &Services{
		Content: service.NewCourseContentService(
			courseRepo, contentRepo, pipeline, validate, entitlements,
			archive, publisher, cfg.PubSubCourseContentTopic,
			queue, cfg.GenerationQueueName,
			logger,
		),
		Courses:      service.NewCourseService(courseRepo),
		Subscription: service.NewSubscriptionService(subRepo, usageRepo, logger),
		DLQ:          service.NewDLQService(dlqRepo),
		Queue:        queue,
	}
	return svcs, res, nil
}

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *Resources, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	svcs, res, err := NewServices(context.Background(), cfg, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	res.closers = append([]func() error{db.Close}, res.closers...)

	contentHandler := handler.NewCourseContentHandler(svcs.Content, logger)
	courseHandler := handler.NewCourseHandler(svcs.Courses, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(svcs.Subscription, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	contentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	courseHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), res, nil
}

// OpenDB opens the database/sql pool used by the course and DLQ repositories and the queue.
func OpenDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", PrepareDSN(cfg))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// PrepareDSN disables SSL for local development and forces the simple protocol elsewhere, since
// deployed databases sit behind a transaction pooler.
func PrepareDSN(cfg *config.Config) string {
	dsn := cfg.DBConnectionString
	if cfg.IsDevelopment() && !strings.Contains(dsn, "sslmode") {
		dsn = AppendDSNParam(dsn, "sslmode=disable")
	}
	if !cfg.IsDevelopment() && !strings.Contains(dsn, "default_query_exec_mode") {
		dsn = AppendDSNParam(dsn, "default_query_exec_mode=simple_protocol")
	}
	return dsn
}

// AppendDSNParam adds a setting to either a URL or a key=value DSN.
func AppendDSNParam(dsn, param string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		if dsn == "" {
			return param
		}
		return dsn + " " + param
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}

func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(s3Config, func(o *s3.Options) {
		if cfg.S3URL != "" {
			o.BaseEndpoint = aws.String(cfg.S3URL)
			o.UsePathStyle = true
		}
	}), nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
