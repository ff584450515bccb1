package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/events"
	"github.com/tendant/simple-asset/pkg/simpleasset/metrics"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	repopg "github.com/tendant/simple-asset/pkg/simpleasset/repo/postgres"
	fsstorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/fs"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
	miniostorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/minio"
	"github.com/tendant/simple-asset/pkg/simpleasset/storage/resilient"
	s3storage "github.com/tendant/simple-asset/pkg/simpleasset/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults. WithEnv resets untouched fields to their env-default
// values, so pass it before other options.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Environment:        "development",
		DatabaseType:       "memory",
		DBSchema:           "asset",
		AIFilesStorage:     defaultStorage(),
		FilesStorage:       defaultStorage(),
		StorageTimeout:     30 * time.Second,
		MetadataTimeout:    10 * time.Second,
		RowDeleteAttempts:  3,
		RowDeleteBackoff:   200 * time.Millisecond,
		BreakerEnabled:     true,
		BreakerTimeout:     30 * time.Second,
		BreakerFailureRate: 0.5,
		PurgeCron:          "0 3 * * *",
		PurgeRetention:     30 * 24 * time.Hour,
		PurgeBatch:         100,
		LogLevel:           "info",
		LogMaxSizeMB:       100,
		LogMaxBackups:      5,
		LogMaxAgeDays:      30,
		EventDriver:        events.DriverGoChannel,
		EventProducer:      "simple-asset",
		EnableEventLogging: true,
	}
}

func defaultStorage() StorageConfig {
	return StorageConfig{
		Type:           "memory",
		Region:         "us-east-1",
		UseSSL:         true,
		PresignSeconds: 3600,
		SSEAlgorithm:   "AES256",
	}
}

// ServerConfig represents configuration for the asset service and server.
type ServerConfig struct {
	// Listen address and port belong to the chi-demo app (see cmd/asset-server).
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Database configuration
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	DatabaseURL  string `env:"DATABASE_URL"`
	DBSchema     string `env:"DB_SCHEMA" env-default:"asset"`

	// Storage configuration, one backend per bucket family
	AIFilesStorage StorageConfig `env-prefix:"AI_FILES_STORAGE_"`
	FilesStorage   StorageConfig `env-prefix:"FILES_STORAGE_"`

	StorageTimeout    time.Duration `env:"STORAGE_TIMEOUT" env-default:"30s"`
	MetadataTimeout   time.Duration `env:"METADATA_TIMEOUT" env-default:"10s"`
	RowDeleteAttempts int           `env:"ROW_DELETE_ATTEMPTS" env-default:"3"`
	RowDeleteBackoff  time.Duration `env:"ROW_DELETE_BACKOFF" env-default:"200ms"`

	BreakerEnabled     bool          `env:"BREAKER_ENABLED" env-default:"true"`
	BreakerTimeout     time.Duration `env:"BREAKER_TIMEOUT" env-default:"30s"`
	BreakerFailureRate float64       `env:"BREAKER_FAILURE_RATE" env-default:"0.5"`

	// Auth
	JWTSecret         string `env:"JWT_SECRET"`
	AdminAPIKeySHA256 string `env:"ADMIN_API_KEY_SHA256"`
	// DevTenantID maps every authenticated principal to one tenant. Development only.
	DevTenantID string `env:"DEV_TENANT_ID"`

	// Trash purge
	PurgeCron      string        `env:"PURGE_CRON" env-default:"0 3 * * *"`
	PurgeRetention time.Duration `env:"PURGE_RETENTION" env-default:"720h"`
	PurgeBatch     int           `env:"PURGE_BATCH" env-default:"100"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" env-default:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" env-default:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" env-default:"30"`

	// Events
	EventDriver        string `env:"EVENT_DRIVER" env-default:"gochannel"` // "gochannel", "nats", "none"
	EventProducer      string `env:"EVENT_PRODUCER" env-default:"simple-asset"`
	NATSURL            string `env:"NATS_URL"`
	NATSJetStream      bool   `env:"NATS_JETSTREAM"`
	EnableEventLogging bool   `env:"EVENT_LOGGING" env-default:"true"`
}

// StorageConfig configures the blob store of one bucket family.
type StorageConfig struct {
	Type string `env:"TYPE" env-default:"memory"` // "memory", "fs", "s3", "minio"

	// fs
	BaseDir   string `env:"BASE_DIR"`
	URLPrefix string `env:"URL_PREFIX"`

	// s3 and minio
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" env-default:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	UseSSL          bool   `env:"USE_SSL" env-default:"true"`
	UsePathStyle    bool   `env:"USE_PATH_STYLE"`
	PresignSeconds  int    `env:"PRESIGN_SECONDS" env-default:"3600"`
	EnableSSE       bool   `env:"ENABLE_SSE"`
	SSEAlgorithm    string `env:"SSE_ALGORITHM" env-default:"AES256"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`
	CreateBucket    bool   `env:"CREATE_BUCKET"`
}

// Families returns the storage configuration keyed by bucket family.
func (c *ServerConfig) Families() map[string]StorageConfig {
	return map[string]StorageConfig{
		simpleasset.FamilyAIFiles: c.AIFilesStorage,
		simpleasset.FamilyFiles:   c.FilesStorage,
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	for family, sc := range c.Families() {
		if err := sc.validate(); err != nil {
			return fmt.Errorf("storage %s: %w", family, err)
		}
	}

	if c.StorageTimeout <= 0 || c.MetadataTimeout <= 0 {
		return errors.New("storage and metadata timeouts must be positive")
	}
	if c.RowDeleteAttempts < 1 {
		return errors.New("row_delete_attempts must be at least 1")
	}
	if c.BreakerFailureRate <= 0 || c.BreakerFailureRate > 1 {
		return errors.New("breaker_failure_rate must be in (0, 1]")
	}

	switch c.EventDriver {
	case "", "none", events.DriverGoChannel:
	case events.DriverNATS:
		if c.NATSURL == "" {
			return errors.New("nats_url is required when event_driver is nats")
		}
	default:
		return fmt.Errorf("unsupported event driver: %s", c.EventDriver)
	}

	if c.DevTenantID != "" {
		if _, err := uuid.Parse(c.DevTenantID); err != nil {
			return fmt.Errorf("dev_tenant_id: %w", err)
		}
		if c.Environment == "production" {
			return errors.New("dev_tenant_id cannot be used in production")
		}
	}

	return nil
}

func (s StorageConfig) validate() error {
	switch s.Type {
	case "memory":
	case "fs":
		if s.BaseDir == "" {
			return errors.New("base_dir is required for fs storage")
		}
	case "s3", "minio":
		if s.Bucket == "" {
			return fmt.Errorf("bucket is required for %s storage", s.Type)
		}
		if s.Type == "minio" && s.Endpoint == "" {
			return errors.New("endpoint is required for minio storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend type: %s", s.Type)
	}
	return nil
}

// Runtime is a fully wired service plus the resources that back it.
type Runtime struct {
	Service  simpleasset.Service
	Metrics  *metrics.Metrics
	Breakers map[string]*resilient.Store

	publisher message.Publisher
	pool      *pgxpool.Pool
}

// Pool returns the Postgres pool, or nil for the memory repository.
func (r *Runtime) Pool() *pgxpool.Pool {
	return r.pool
}

// Close releases the publisher and database pool.
func (r *Runtime) Close() error {
	var err error
	if r.publisher != nil {
		err = r.publisher.Close()
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return err
}

// BuildService creates the service and its collaborators from the configuration.
func (c *ServerConfig) BuildService(ctx context.Context) (*Runtime, error) {
	rt := &Runtime{Metrics: metrics.New(), Breakers: map[string]*resilient.Store{}}
	logger := slog.Default()

	options := []simpleasset.Option{
		simpleasset.WithLogger(logger),
		simpleasset.WithStorageTimeout(c.StorageTimeout),
		simpleasset.WithMetadataTimeout(c.MetadataTimeout),
		simpleasset.WithRowDeleteRetries(c.RowDeleteAttempts, c.RowDeleteBackoff),
	}

	// Set up repository
	repo, profiles, refs, pool, err := c.buildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	rt.pool = pool
	options = append(options,
		simpleasset.WithRepository(repo),
		simpleasset.WithReferenceResolver(refs),
		simpleasset.WithTenantResolver(c.tenantResolver(profiles)),
	)

	// Set up storage backends
	for family, sc := range c.Families() {
		store, err := c.buildStorageBackend(ctx, sc)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to build storage backend %s: %w", family, err)
		}
		if c.BreakerEnabled {
			breaker := resilient.New(store, resilient.Config{
				Name:        family,
				Timeout:     c.BreakerTimeout,
				FailureRate: c.BreakerFailureRate,
			})
			rt.Breakers[family] = breaker
			rt.Metrics.WatchBreaker(family, breaker.State)
			store = breaker
		}
		options = append(options, simpleasset.WithBlobStore(family, store))
	}

	// Set up event sinks
	sinks := simpleasset.MultiEventSink{rt.Metrics.Sink()}
	if c.EnableEventLogging {
		sinks = append(sinks, simpleasset.NewLoggingEventSink(logger))
	}
	if c.EventDriver != "" && c.EventDriver != "none" {
		pub, err := events.NewPublisher(events.Config{
			Driver:    c.EventDriver,
			URL:       c.NATSURL,
			ClientID:  c.EventProducer,
			JetStream: c.NATSJetStream,
		}, events.NewLoggerAdapter(logger))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to build event publisher: %w", err)
		}
		rt.publisher = pub
		sinks = append(sinks, events.NewSink(pub, c.EventProducer))
	}
	options = append(options, simpleasset.WithEventSink(sinks))

	svc, err := simpleasset.New(options...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// Publisher returns the event publisher, or nil when events are disabled.
func (r *Runtime) Publisher() message.Publisher {
	return r.publisher
}

func (c *ServerConfig) tenantResolver(profiles simpleasset.ProfileStore) simpleasset.TenantResolver {
	if c.DevTenantID == "" {
		return simpleasset.NewProfileTenantResolver(profiles)
	}
	tenantID := uuid.MustParse(c.DevTenantID)
	return simpleasset.TenantResolverFunc(func(ctx context.Context, p simpleasset.Principal) (uuid.UUID, error) {
		if p.IsZero() {
			return uuid.Nil, &simpleasset.AuthenticationError{Reason: "missing subject"}
		}
		return tenantID, nil
	})
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (simpleasset.Repository, simpleasset.ProfileStore, simpleasset.ReferenceResolver, *pgxpool.Pool, error) {
	switch c.DatabaseType {
	case "memory":
		repo := memory.New()
		return repo, repo, repo, nil, nil
	case "postgres":
		pool, err := NewPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		repo := repopg.NewWithPool(pool)
		return repo, repo, repo, pool, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// NewPool opens a pgx pool whose sessions use schema as search_path.
func NewPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres. It fails if the schema
// (when provided) cannot be selected.
func PingPostgres(ctx context.Context, databaseURL, schema string) error {
	pool, err := NewPool(ctx, databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(ctx context.Context, sc StorageConfig) (simpleasset.BlobStore, error) {
	switch sc.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   sc.BaseDir,
			URLPrefix: sc.URLPrefix,
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 sc.Region,
			Bucket:                 sc.Bucket,
			AccessKeyID:            sc.AccessKeyID,
			SecretAccessKey:        sc.SecretAccessKey,
			Endpoint:               sc.Endpoint,
			UsePathStyle:           sc.UsePathStyle,
			PresignDuration:        sc.PresignSeconds,
			EnableSSE:              sc.EnableSSE,
			SSEAlgorithm:           sc.SSEAlgorithm,
			SSEKMSKeyID:            sc.SSEKMSKeyID,
			CreateBucketIfNotExist: sc.CreateBucket,
		})

	case "minio":
		return miniostorage.New(ctx, miniostorage.Config{
			Endpoint:               sc.Endpoint,
			AccessKeyID:            sc.AccessKeyID,
			SecretAccessKey:        sc.SecretAccessKey,
			Bucket:                 sc.Bucket,
			Region:                 sc.Region,
			UseSSL:                 sc.UseSSL,
			PresignDuration:        time.Duration(sc.PresignSeconds) * time.Second,
			CreateBucketIfNotExist: sc.CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", sc.Type)
	}
}
