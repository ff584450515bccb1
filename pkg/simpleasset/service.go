package simpleasset

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-asset library. Every
// method taking a Principal resolves the tenant exactly once.
type Service interface {
	// Upload writes the object and then its metadata row, deleting the
	// object again if the row cannot be inserted.
	Upload(ctx context.Context, principal Principal, req UploadRequest) (*Asset, error)

	// Query operations
	GetAsset(ctx context.Context, principal Principal, id uuid.UUID) (*AssetDetails, error)
	ListAssets(ctx context.Context, principal Principal, filter AssetFilter) ([]*Asset, error)
	ListByCategory(ctx context.Context, principal Principal, category Category, subcategory string) ([]*Asset, error)
	CategoryStatistics(ctx context.Context, principal Principal) ([]CategoryStats, error)
	ListTrash(ctx context.Context, principal Principal, limit, offset int) ([]*Asset, error)

	// Lifecycle operations
	UpdateMetadata(ctx context.Context, principal Principal, id uuid.UUID, req UpdateRequest) (*Asset, error)
	UpdateStatus(ctx context.Context, principal Principal, id uuid.UUID, status AssetStatus) (*Asset, error)
	SoftDelete(ctx context.Context, principal Principal, id uuid.UUID) error
	Restore(ctx context.Context, principal Principal, id uuid.UUID) error
	HardDelete(ctx context.Context, principal Principal, id uuid.UUID) error
	MarkProcessed(ctx context.Context, principal Principal, id uuid.UUID) error

	// PurgeDeleted hard-deletes assets soft-deleted before the cutoff across
	// all tenants. It is a maintenance operation and takes no principal.
	PurgeDeleted(ctx context.Context, before time.Time, limit int) (*PurgeResult, error)

	// Usage operations
	RecordView(ctx context.Context, principal Principal, id uuid.UUID) (int64, error)
	RecordDownload(ctx context.Context, principal Principal, id uuid.UUID) (int64, error)
	TouchAIUsage(ctx context.Context, principal Principal, id uuid.UUID) error
	OpenAsset(ctx context.Context, principal Principal, id uuid.UUID) (io.ReadCloser, *Asset, error)
	DownloadURL(ctx context.Context, principal Principal, id uuid.UUID) (string, error)

	// Storage backend operations
	GetBackend(family string) (BlobStore, error)
}
