package simpleasset

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// PutOptions carries object attributes for a write.
type PutOptions struct {
	ContentType string
	Size        int64
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// BlobStore is an object store holding one bucket family. Missing keys are
// reported as ErrObjectNotFound (possibly wrapped).
type BlobStore interface {
	// Put writes the object at key, replacing any existing bytes
	Put(ctx context.Context, key string, reader io.Reader, opts PutOptions) error

	// Open streams the object at key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key
	Delete(ctx context.Context, key string) error

	// Stat returns object attributes without reading the body
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// DownloadURL returns a URL for fetching the object directly
	DownloadURL(ctx context.Context, key string, filename string) (string, error)
}

// Repository persists asset metadata. Every method is tenant-scoped except
// ListDeletedBefore, which serves the system purge.
//
// IncrementCounter must be atomic at the storage layer; implementations may
// not read, add and write back in application code.
type Repository interface {
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*Asset, error)
	ListAssets(ctx context.Context, query AssetQuery) ([]*Asset, error)
	UpdateAsset(ctx context.Context, asset *Asset) error
	DeleteAsset(ctx context.Context, tenantID, id uuid.UUID) error

	SoftDeleteAsset(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error
	RestoreAsset(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error
	MarkProcessed(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error

	IncrementCounter(ctx context.Context, tenantID, id uuid.UUID, counter Counter) (int64, error)
	TouchAIUsage(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error

	CategoryStatistics(ctx context.Context, tenantID uuid.UUID) ([]CategoryStats, error)
	ListDeletedBefore(ctx context.Context, before time.Time, limit int) ([]*Asset, error)
}

// ReferenceResolver looks up display names of entities an asset points to.
// Missing entities resolve to empty names.
type ReferenceResolver interface {
	ResolveReferenceNames(ctx context.Context, tenantID uuid.UUID, asset *Asset) (ReferenceNames, error)
}

// EventSink receives lifecycle notifications. Errors are logged, never
// returned to callers of the service.
type EventSink interface {
	AssetUploaded(ctx context.Context, asset *Asset) error
	AssetUpdated(ctx context.Context, asset *Asset) error
	AssetSoftDeleted(ctx context.Context, tenantID, assetID uuid.UUID) error
	AssetRestored(ctx context.Context, tenantID, assetID uuid.UUID) error
	AssetHardDeleted(ctx context.Context, asset *Asset) error
	AssetProcessed(ctx context.Context, tenantID, assetID uuid.UUID) error
	CompensationFailed(ctx context.Context, failure *CompensationFailureError) error
}
