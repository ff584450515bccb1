package simpleasset

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Compensation undoes the object write of an upload whose metadata insert
// failed. It is the saga's only corrective step.
type Compensation struct {
	TenantID uuid.UUID
	Bucket   string
	Key      string
	// Cause is the metadata failure that triggered compensation.
	Cause error
}

// Run deletes the object. It returns nil when the object is gone (including
// when it was never there) and a *CompensationFailureError otherwise.
func (c Compensation) Run(ctx context.Context, store BlobStore) error {
	err := store.Delete(ctx, c.Key)
	if err == nil || errors.Is(err, ErrObjectNotFound) {
		return nil
	}
	return &CompensationFailureError{
		TenantID:    c.TenantID,
		Bucket:      c.Bucket,
		Key:         c.Key,
		MetadataErr: c.Cause,
		CleanupErr:  err,
	}
}
