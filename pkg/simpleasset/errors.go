package simpleasset

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAuthentication indicates there is no valid principal
	ErrAuthentication = errors.New("authentication required")

	// ErrTenantResolution indicates a valid principal without a tenant
	ErrTenantResolution = errors.New("tenant could not be resolved")

	// ErrUnknownCategory indicates a category missing from the taxonomy
	ErrUnknownCategory = errors.New("unknown category")

	// ErrStorageWrite indicates an object store write or delete failed
	ErrStorageWrite = errors.New("storage write failed")

	// ErrMetadataWrite indicates a metadata insert, update or delete failed
	ErrMetadataWrite = errors.New("metadata write failed")

	// ErrCompensationFailure indicates an orphaned object left behind by a failed upload
	ErrCompensationFailure = errors.New("compensating delete failed")

	// ErrNotFound indicates an asset was not found or is soft-deleted
	ErrNotFound = errors.New("asset not found")

	// ErrValidation indicates malformed input
	ErrValidation = errors.New("validation failed")

	// ErrObjectNotFound is returned by blob stores for missing keys
	ErrObjectNotFound = errors.New("object not found")

	// ErrStorageBackendNotFound indicates no blob store is registered for a bucket
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrDuplicateKey indicates a storage key already used in the tenant and bucket
	ErrDuplicateKey = errors.New("duplicate storage key")

	// ErrDanglingRow indicates a row left behind after its object was deleted
	ErrDanglingRow = errors.New("metadata row references a deleted object")
)

// AuthenticationError is returned before tenant resolution when no principal is present.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return ErrAuthentication.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAuthentication, e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }

// TenantResolutionError is returned when a principal has no tenant record.
type TenantResolutionError struct {
	Principal string
	Err       error
}

func (e *TenantResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tenant resolution failed for principal %s: %v", e.Principal, e.Err)
	}
	return fmt.Sprintf("tenant resolution failed for principal %s", e.Principal)
}

func (e *TenantResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTenantResolution, e.Err}
	}
	return []error{ErrTenantResolution}
}

// UnknownCategoryError is returned for categories missing from the taxonomy.
type UnknownCategoryError struct {
	Category Category
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", string(e.Category))
}

func (e *UnknownCategoryError) Unwrap() error { return ErrUnknownCategory }

// StorageWriteError represents a failed object store operation. It is retryable.
type StorageWriteError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageWriteError) Unwrap() []error { return []error{ErrStorageWrite, e.Err} }

// Retryable always reports true; callers decide on backoff.
func (e *StorageWriteError) Retryable() bool { return true }

// MetadataWriteError represents a failed repository write. It is retryable.
type MetadataWriteError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *MetadataWriteError) Error() string {
	return fmt.Sprintf("metadata operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *MetadataWriteError) Unwrap() []error { return []error{ErrMetadataWrite, e.Err} }

func (e *MetadataWriteError) Retryable() bool { return true }

// CompensationFailureError reports an object that could not be removed after
// its metadata insert failed. The object is orphaned and needs out-of-band
// cleanup, so the error carries the full location.
//
// It unwraps to the metadata failure only; CleanupErr is kept as a field so
// errors.As never reports a *StorageWriteError for it.
type CompensationFailureError struct {
	TenantID    uuid.UUID
	Bucket      string
	Key         string
	MetadataErr error
	CleanupErr  error
}

func (e *CompensationFailureError) Error() string {
	return fmt.Sprintf("orphaned object tenant=%s bucket=%s key=%s: metadata insert failed (%v) and cleanup failed (%v)",
		e.TenantID, e.Bucket, e.Key, e.MetadataErr, e.CleanupErr)
}

func (e *CompensationFailureError) Unwrap() []error {
	return []error{ErrCompensationFailure, e.MetadataErr}
}

// DanglingRowError reports a metadata row whose object was already deleted
// but whose own delete kept failing.
type DanglingRowError struct {
	TenantID uuid.UUID
	AssetID  uuid.UUID
	Bucket   string
	Key      string
	Err      error
}

func (e *DanglingRowError) Error() string {
	return fmt.Sprintf("dangling row asset=%s tenant=%s bucket=%s key=%s: %v", e.AssetID, e.TenantID, e.Bucket, e.Key, e.Err)
}

func (e *DanglingRowError) Unwrap() []error { return []error{ErrDanglingRow, e.Err} }

// NotFoundError is returned for missing or soft-deleted assets.
type NotFoundError struct {
	AssetID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("asset %s not found", e.AssetID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsRetryable reports whether err is a transient storage or metadata failure.
// Compensation failures and dangling rows need manual cleanup and are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCompensationFailure) || errors.Is(err, ErrDanglingRow) {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
