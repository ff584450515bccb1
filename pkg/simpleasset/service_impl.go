package simpleasset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultStorageTimeout    = 30 * time.Second
	defaultMetadataTimeout   = 10 * time.Second
	defaultRowDeleteAttempts = 3
	defaultRowDeleteBackoff  = 200 * time.Millisecond
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStores map[string]BlobStore
	resolver   TenantResolver
	references ReferenceResolver
	eventSink  EventSink
	clock      Clock
	deriver    *PathDeriver
	logger     *slog.Logger

	storageTimeout    time.Duration
	metadataTimeout   time.Duration
	rowDeleteAttempts int
	rowDeleteBackoff  time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore registers the object store for a bucket family
func WithBlobStore(family string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[family] = store
	}
}

// WithTenantResolver sets the principal to tenant resolver
func WithTenantResolver(resolver TenantResolver) Option {
	return func(s *service) {
		s.resolver = resolver
	}
}

// WithReferenceResolver enables client/product/proposal names on GetAsset
func WithReferenceResolver(resolver ReferenceResolver) Option {
	return func(s *service) {
		s.references = resolver
	}
}

// WithEventSink sets the event sink
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithClock overrides the clock used for timestamps and storage keys
func WithClock(clock Clock) Option {
	return func(s *service) {
		s.clock = clock
	}
}

// WithLogger sets the logger; defaults to slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithStorageTimeout bounds each object store call. Zero disables the bound.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *service) {
		s.storageTimeout = d
	}
}

// WithMetadataTimeout bounds each repository call. Zero disables the bound.
func WithMetadataTimeout(d time.Duration) Option {
	return func(s *service) {
		s.metadataTimeout = d
	}
}

// WithRowDeleteRetries sets how many times hard delete tries to remove the
// row after its object is gone, and the linear backoff between attempts.
func WithRowDeleteRetries(attempts int, backoff time.Duration) Option {
	return func(s *service) {
		if attempts > 0 {
			s.rowDeleteAttempts = attempts
		}
		if backoff >= 0 {
			s.rowDeleteBackoff = backoff
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores:        make(map[string]BlobStore),
		storageTimeout:    defaultStorageTimeout,
		metadataTimeout:   defaultMetadataTimeout,
		rowDeleteAttempts: defaultRowDeleteAttempts,
		rowDeleteBackoff:  defaultRowDeleteBackoff,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.resolver == nil {
		return nil, fmt.Errorf("tenant resolver is required")
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	s.deriver = NewPathDeriver(s.clock)

	return s, nil
}

func (s *service) GetBackend(family string) (BlobStore, error) {
	store, ok := s.blobStores[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, family)
	}
	return store, nil
}

// resolveTenant is called once at the top of every principal-scoped operation.
func (s *service) resolveTenant(ctx context.Context, principal Principal) (uuid.UUID, error) {
	if principal.IsZero() {
		return uuid.Nil, &AuthenticationError{Reason: "missing principal"}
	}
	tenantID, err := s.resolver.ResolveTenant(ctx, principal)
	if err != nil {
		if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrTenantResolution) {
			return uuid.Nil, err
		}
		return uuid.Nil, &TenantResolutionError{Principal: principal.Subject, Err: err}
	}
	if tenantID == uuid.Nil {
		return uuid.Nil, &TenantResolutionError{Principal: principal.Subject}
	}
	return tenantID, nil
}

func (s *service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *service) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}

func (s *service) metadataCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.metadataTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.metadataTimeout)
}

// getAsset loads a tenant-scoped row, mapping repository misses to *NotFoundError.
func (s *service) getAsset(ctx context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*Asset, error) {
	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()

	asset, err := s.repository.GetAsset(mctx, tenantID, id, includeDeleted)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{AssetID: id}
		}
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return asset, nil
}

// metadataError maps a repository write failure for id.
func metadataError(id uuid.UUID, op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{AssetID: id}
	}
	return &MetadataWriteError{AssetID: id, Op: op, Err: err}
}

// emit runs an event sink call, logging instead of failing the operation.
func (s *service) emit(ctx context.Context, event string, fn func(EventSink) error) {
	if err := fn(s.eventSink); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", event, "err", err)
	}
}

// cancelOnClose releases a timeout context when the stream is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
