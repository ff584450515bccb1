package simpleasset

import (
	"context"
	"io"

	"github.com/google/uuid"
)

func (s *service) RecordView(ctx context.Context, principal Principal, id uuid.UUID) (int64, error) {
	return s.increment(ctx, principal, id, CounterViews)
}

func (s *service) RecordDownload(ctx context.Context, principal Principal, id uuid.UUID) (int64, error) {
	return s.increment(ctx, principal, id, CounterDownloads)
}

func (s *service) increment(ctx context.Context, principal Principal, id uuid.UUID, counter Counter) (int64, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return 0, err
	}
	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	n, err := s.repository.IncrementCounter(mctx, tenantID, id, counter)
	if err != nil {
		return 0, metadataError(id, "increment_"+string(counter), err)
	}
	return n, nil
}

// TouchAIUsage overwrites last_ai_usage_at with the current time.
func (s *service) TouchAIUsage(ctx context.Context, principal Principal, id uuid.UUID) error {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return err
	}
	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	if err := s.repository.TouchAIUsage(mctx, tenantID, id, s.now()); err != nil {
		return metadataError(id, "touch_ai_usage", err)
	}
	return nil
}

// OpenAsset streams the object. The storage timeout covers the whole read and
// is released when the reader is closed.
func (s *service) OpenAsset(ctx context.Context, principal Principal, id uuid.UUID) (io.ReadCloser, *Asset, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	asset, err := s.getAsset(ctx, tenantID, id, false)
	if err != nil {
		return nil, nil, err
	}
	store, err := s.GetBackend(asset.Bucket)
	if err != nil {
		return nil, nil, err
	}

	sctx, cancel := s.storageCtx(ctx)
	reader, err := store.Open(sctx, asset.StorageKey)
	if err != nil {
		cancel()
		return nil, nil, &StorageWriteError{Backend: asset.Bucket, Key: asset.StorageKey, Op: "open", Err: err}
	}
	return &cancelOnClose{ReadCloser: reader, cancel: cancel}, asset, nil
}

func (s *service) DownloadURL(ctx context.Context, principal Principal, id uuid.UUID) (string, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return "", err
	}
	asset, err := s.getAsset(ctx, tenantID, id, false)
	if err != nil {
		return "", err
	}
	store, err := s.GetBackend(asset.Bucket)
	if err != nil {
		return "", err
	}

	sctx, cancel := s.storageCtx(ctx)
	defer cancel()
	filename := asset.OriginalName
	if filename == "" {
		filename = SanitizeName(asset.Name) + "." + asset.Extension
	}
	url, err := store.DownloadURL(sctx, asset.StorageKey, filename)
	if err != nil {
		return "", &StorageWriteError{Backend: asset.Bucket, Key: asset.StorageKey, Op: "download_url", Err: err}
	}
	return url, nil
}
