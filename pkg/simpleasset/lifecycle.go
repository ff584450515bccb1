package simpleasset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *service) UpdateMetadata(ctx context.Context, principal Principal, id uuid.UUID, req UpdateRequest) (*Asset, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := validateUpdate(&req); err != nil {
		return nil, err
	}
	asset, err := s.getAsset(ctx, tenantID, id, false)
	if err != nil {
		return nil, err
	}

	if err := applyUpdate(asset, &req); err != nil {
		return nil, err
	}
	return s.saveAsset(ctx, principal, asset)
}

// applyUpdate changes descriptive fields only. Storage key and bucket stay.
func applyUpdate(asset *Asset, req *UpdateRequest) error {
	if req.Name != nil {
		asset.Name = *req.Name
	}
	if req.Description != nil {
		asset.Description = *req.Description
	}
	if req.Category != nil {
		asset.Category = *req.Category
	}
	if req.Subcategory != nil {
		asset.Subcategory = NormalizeSubcategory(*req.Subcategory)
	}
	if asset.Subcategory != "" {
		spec, err := LookupCategory(asset.Category)
		if err != nil {
			return err
		}
		if !spec.permitsSubcategory(asset.Subcategory) {
			return &ValidationError{Field: "subcategory", Reason: fmt.Sprintf("%q is not permitted for category %s", asset.Subcategory, asset.Category)}
		}
	}
	if req.Keywords != nil {
		asset.Keywords = NormalizeKeywords(req.Keywords)
	}
	if req.Visibility != nil {
		asset.Visibility = *req.Visibility
	}
	if req.Priority != nil {
		asset.Priority = *req.Priority
	}
	if req.AIInstructions != nil {
		asset.AIInstructions = *req.AIInstructions
	}
	if req.UsageContext != nil {
		asset.UsageContext = *req.UsageContext
	}
	if req.Notes != nil {
		asset.Notes = *req.Notes
	}
	if req.AIAvailable != nil {
		asset.AIAvailable = *req.AIAvailable
	}
	if req.ClientRef != nil {
		asset.ClientRef = req.ClientRef
	}
	if req.ProductRef != nil {
		asset.ProductRef = req.ProductRef
	}
	if req.ProposalRef != nil {
		asset.ProposalRef = req.ProposalRef
	}
	if req.ContractRef != nil {
		asset.ContractRef = req.ContractRef
	}
	return nil
}

// UpdateStatus is caller-driven; any known status may follow any other.
func (s *service) UpdateStatus(ctx context.Context, principal Principal, id uuid.UUID, status AssetStatus) (*Asset, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	asset, err := s.getAsset(ctx, tenantID, id, false)
	if err != nil {
		return nil, err
	}
	asset.Status = status
	return s.saveAsset(ctx, principal, asset)
}

func (s *service) saveAsset(ctx context.Context, principal Principal, asset *Asset) (*Asset, error) {
	asset.UpdatedAt = s.now()
	asset.UpdatedBy = principal.Subject

	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	if err := s.repository.UpdateAsset(mctx, asset); err != nil {
		return nil, metadataError(asset.ID, "update", err)
	}

	s.emit(ctx, "asset.updated", func(sink EventSink) error { return sink.AssetUpdated(ctx, asset) })
	return asset, nil
}

// SoftDelete hides the asset from every default query. Calling it on an
// asset that is already soft-deleted returns *NotFoundError.
func (s *service) SoftDelete(ctx context.Context, principal Principal, id uuid.UUID) error {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return err
	}
	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	if err := s.repository.SoftDeleteAsset(mctx, tenantID, id, principal.Subject, s.now()); err != nil {
		return metadataError(id, "soft_delete", err)
	}

	s.emit(ctx, "asset.soft_deleted", func(sink EventSink) error { return sink.AssetSoftDeleted(ctx, tenantID, id) })
	return nil
}

// Restore clears deleted_at. Only soft-deleted assets can be restored.
func (s *service) Restore(ctx context.Context, principal Principal, id uuid.UUID) error {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return err
	}
	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	if err := s.repository.RestoreAsset(mctx, tenantID, id, principal.Subject, s.now()); err != nil {
		return metadataError(id, "restore", err)
	}

	s.emit(ctx, "asset.restored", func(sink EventSink) error { return sink.AssetRestored(ctx, tenantID, id) })
	return nil
}

// HardDelete removes the object and then the row. Soft-deleted assets can be
// hard-deleted.
func (s *service) HardDelete(ctx context.Context, principal Principal, id uuid.UUID) error {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return err
	}
	asset, err := s.getAsset(ctx, tenantID, id, true)
	if err != nil {
		return err
	}
	return s.hardDelete(ctx, asset)
}

func (s *service) hardDelete(ctx context.Context, asset *Asset) error {
	store, err := s.GetBackend(asset.Bucket)
	if err != nil {
		return err
	}

	// Never delete the row while its bytes still exist.
	sctx, cancel := s.storageCtx(ctx)
	err = store.Delete(sctx, asset.StorageKey)
	cancel()
	if err != nil && !errors.Is(err, ErrObjectNotFound) {
		return &StorageWriteError{Backend: asset.Bucket, Key: asset.StorageKey, Op: "delete", Err: err}
	}

	if err := s.deleteRow(ctx, asset); err != nil {
		dangling := &DanglingRowError{
			TenantID: asset.TenantID,
			AssetID:  asset.ID,
			Bucket:   asset.Bucket,
			Key:      asset.StorageKey,
			Err:      err,
		}
		s.logger.ErrorContext(ctx, "row left behind after object delete", "asset_id", asset.ID,
			"tenant_id", asset.TenantID, "bucket", asset.Bucket, "key", asset.StorageKey, "err", err)
		return dangling
	}

	s.emit(ctx, "asset.hard_deleted", func(sink EventSink) error { return sink.AssetHardDeleted(ctx, asset) })
	return nil
}

// deleteRow retries the row delete with linear backoff. The object is
// already gone, so the retries run even if the caller goes away.
func (s *service) deleteRow(ctx context.Context, asset *Asset) error {
	detached := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= s.rowDeleteAttempts; attempt++ {
		mctx, cancel := s.metadataCtx(detached)
		err = s.repository.DeleteAsset(mctx, asset.TenantID, asset.ID)
		cancel()
		if err == nil || errors.Is(err, ErrNotFound) {
			return nil
		}
		s.logger.WarnContext(ctx, "row delete failed", "asset_id", asset.ID, "attempt", attempt, "err", err)
		if attempt < s.rowDeleteAttempts && s.rowDeleteBackoff > 0 {
			time.Sleep(time.Duration(attempt) * s.rowDeleteBackoff)
		}
	}
	return err
}

func (s *service) MarkProcessed(ctx context.Context, principal Principal, id uuid.UUID) error {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return err
	}
	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	if err := s.repository.MarkProcessed(mctx, tenantID, id, principal.Subject, s.now()); err != nil {
		return metadataError(id, "mark_processed", err)
	}

	s.emit(ctx, "asset.processed", func(sink EventSink) error { return sink.AssetProcessed(ctx, tenantID, id) })
	return nil
}

func (s *service) PurgeDeleted(ctx context.Context, before time.Time, limit int) (*PurgeResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	mctx, cancel := s.metadataCtx(ctx)
	assets, err := s.repository.ListDeletedBefore(mctx, before, limit)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list deleted assets: %w", err)
	}

	result := &PurgeResult{Scanned: len(assets)}
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.hardDelete(ctx, asset); err != nil {
			result.Failed = append(result.Failed, PurgeError{AssetID: asset.ID, TenantID: asset.TenantID, Error: err.Error()})
			continue
		}
		result.Purged++
	}
	s.logger.InfoContext(ctx, "purged soft-deleted assets", "before", before, "scanned", result.Scanned,
		"purged", result.Purged, "failed", len(result.Failed))
	return result, nil
}
