package simpleasset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *service) Upload(ctx context.Context, principal Principal, req UploadRequest) (*Asset, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := validateUpload(&req); err != nil {
		return nil, err
	}
	if req.ParentAssetRef != nil {
		if err := s.checkParent(ctx, tenantID, *req.ParentAssetRef); err != nil {
			return nil, err
		}
	}

	spec, err := LookupCategory(req.Category)
	if err != nil {
		return nil, err
	}
	store, err := s.GetBackend(spec.Family)
	if err != nil {
		return nil, err
	}

	ext := ResolveExtension(req.OriginalName, req.MimeType)
	key, err := s.deriver.DeriveKey(tenantID, req.Category, req.Subcategory, req.Name, ext)
	if err != nil {
		return nil, err
	}

	// Step 1: object. Nothing is written to the repository if this fails.
	size := int64(len(req.Data))
	if err := s.writeObject(ctx, store, spec.Family, key, req.Data, req.MimeType); err != nil {
		return nil, err
	}

	// Step 2: metadata row.
	asset := s.newAsset(tenantID, principal, &req, spec, key, ext, size)
	mctx, cancel := s.metadataCtx(ctx)
	err = s.repository.CreateAsset(mctx, asset)
	cancel()
	if err != nil {
		return nil, s.compensateUpload(ctx, store, asset, err)
	}

	s.emit(ctx, "asset.uploaded", func(sink EventSink) error { return sink.AssetUploaded(ctx, asset) })
	return asset, nil
}

// checkParent requires the parent asset to be a live asset of the same tenant.
func (s *service) checkParent(ctx context.Context, tenantID, parentID uuid.UUID) error {
	if _, err := s.getAsset(ctx, tenantID, parentID, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationError{Field: "parent_asset_ref", Reason: "does not reference an asset of this tenant"}
		}
		return err
	}
	return nil
}

// writeObject puts the bytes and confirms the stored size. A mismatch removes
// the object and fails the write.
func (s *service) writeObject(ctx context.Context, store BlobStore, family, key string, data []byte, mimeType string) error {
	sctx, cancel := s.storageCtx(ctx)
	defer cancel()

	size := int64(len(data))
	if err := store.Put(sctx, key, bytes.NewReader(data), PutOptions{ContentType: mimeType, Size: size}); err != nil {
		return &StorageWriteError{Backend: family, Key: key, Op: "put", Err: err}
	}

	info, err := store.Stat(sctx, key)
	if err == nil && info.Size == size {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("stored %d bytes, expected %d", info.Size, size)
	}
	dctx, dcancel := s.storageCtx(context.WithoutCancel(ctx))
	defer dcancel()
	if delErr := store.Delete(dctx, key); delErr != nil && !errors.Is(delErr, ErrObjectNotFound) {
		s.logger.ErrorContext(ctx, "failed to remove unverified object", "bucket", family, "key", key, "err", delErr)
	}
	return &StorageWriteError{Backend: family, Key: key, Op: "verify", Err: err}
}

// compensateUpload runs on a context detached from the request so a
// cancelled caller still gets its orphan removed.
func (s *service) compensateUpload(ctx context.Context, store BlobStore, asset *Asset, cause error) error {
	metaErr := &MetadataWriteError{AssetID: asset.ID, Op: "create", Err: cause}

	cctx, cancel := s.storageCtx(context.WithoutCancel(ctx))
	defer cancel()

	comp := Compensation{TenantID: asset.TenantID, Bucket: asset.Bucket, Key: asset.StorageKey, Cause: metaErr}
	if err := comp.Run(cctx, store); err != nil {
		var failure *CompensationFailureError
		if errors.As(err, &failure) {
			s.logger.ErrorContext(ctx, "upload compensation failed, object orphaned",
				"tenant_id", failure.TenantID, "bucket", failure.Bucket, "key", failure.Key,
				"metadata_err", cause, "cleanup_err", failure.CleanupErr)
			s.emit(ctx, "asset.compensation_failed", func(sink EventSink) error { return sink.CompensationFailed(ctx, failure) })
		}
		return err
	}
	return metaErr
}

func (s *service) newAsset(tenantID uuid.UUID, principal Principal, req *UploadRequest, spec CategorySpec, key, ext string, size int64) *Asset {
	now := s.now()

	priority := DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	visibility := VisibilityPrivate
	if req.Visibility != "" {
		visibility = req.Visibility
	}
	aiAvailable := true
	if req.AIAvailable != nil {
		aiAvailable = *req.AIAvailable
	}
	originalName := req.OriginalName
	if originalName == "" {
		originalName = req.Name
	}

	return &Asset{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Name:           strings.TrimSpace(req.Name),
		OriginalName:   originalName,
		Description:    req.Description,
		Size:           size,
		MimeType:       req.MimeType,
		Extension:      ext,
		StorageKey:     key,
		Bucket:         spec.Family,
		Category:       spec.Category,
		Subcategory:    NormalizeSubcategory(req.Subcategory),
		AIInstructions: req.AIInstructions,
		UsageContext:   req.UsageContext,
		Keywords:       NormalizeKeywords(req.Keywords),
		Priority:       priority,
		Notes:          req.Notes,
		ClientRef:      req.ClientRef,
		ProductRef:     req.ProductRef,
		ProposalRef:    req.ProposalRef,
		ContractRef:    req.ContractRef,
		Status:         AssetStatusActive,
		AIAvailable:    aiAvailable,
		AIProcessed:    false,
		Version:        1,
		ParentAssetRef: req.ParentAssetRef,
		Visibility:     visibility,
		CreatedBy:      principal.Subject,
		UpdatedBy:      principal.Subject,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NormalizeKeywords trims, lowercases and de-duplicates keywords, keeping
// first-seen order.
func NormalizeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
