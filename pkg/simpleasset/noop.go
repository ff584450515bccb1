package simpleasset

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) AssetUploaded(ctx context.Context, asset *Asset) error { return nil }
func (n *NoopEventSink) AssetUpdated(ctx context.Context, asset *Asset) error  { return nil }
func (n *NoopEventSink) AssetSoftDeleted(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return nil
}
func (n *NoopEventSink) AssetRestored(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return nil
}
func (n *NoopEventSink) AssetHardDeleted(ctx context.Context, asset *Asset) error { return nil }
func (n *NoopEventSink) AssetProcessed(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return nil
}
func (n *NoopEventSink) CompensationFailed(ctx context.Context, failure *CompensationFailureError) error {
	return nil
}

// LoggingEventSink logs events but takes no other action.
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) AssetUploaded(ctx context.Context, asset *Asset) error {
	l.logger.InfoContext(ctx, "asset uploaded", "asset_id", asset.ID, "tenant_id", asset.TenantID,
		"bucket", asset.Bucket, "key", asset.StorageKey, "size", asset.Size)
	return nil
}

func (l *LoggingEventSink) AssetUpdated(ctx context.Context, asset *Asset) error {
	l.logger.InfoContext(ctx, "asset updated", "asset_id", asset.ID, "tenant_id", asset.TenantID)
	return nil
}

func (l *LoggingEventSink) AssetSoftDeleted(ctx context.Context, tenantID, assetID uuid.UUID) error {
	l.logger.InfoContext(ctx, "asset soft-deleted", "asset_id", assetID, "tenant_id", tenantID)
	return nil
}

func (l *LoggingEventSink) AssetRestored(ctx context.Context, tenantID, assetID uuid.UUID) error {
	l.logger.InfoContext(ctx, "asset restored", "asset_id", assetID, "tenant_id", tenantID)
	return nil
}

func (l *LoggingEventSink) AssetHardDeleted(ctx context.Context, asset *Asset) error {
	l.logger.InfoContext(ctx, "asset hard-deleted", "asset_id", asset.ID, "tenant_id", asset.TenantID,
		"bucket", asset.Bucket, "key", asset.StorageKey)
	return nil
}

func (l *LoggingEventSink) AssetProcessed(ctx context.Context, tenantID, assetID uuid.UUID) error {
	l.logger.InfoContext(ctx, "asset processed", "asset_id", assetID, "tenant_id", tenantID)
	return nil
}

func (l *LoggingEventSink) CompensationFailed(ctx context.Context, failure *CompensationFailureError) error {
	l.logger.ErrorContext(ctx, "orphaned object needs manual cleanup", "tenant_id", failure.TenantID,
		"bucket", failure.Bucket, "key", failure.Key, "err", failure.CleanupErr)
	return nil
}

// MultiEventSink fans events out to several sinks and joins their errors.
type MultiEventSink []EventSink

func (m MultiEventSink) each(fn func(EventSink) error) error {
	var errs []error
	for _, sink := range m {
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) AssetUploaded(ctx context.Context, asset *Asset) error {
	return m.each(func(s EventSink) error { return s.AssetUploaded(ctx, asset) })
}

func (m MultiEventSink) AssetUpdated(ctx context.Context, asset *Asset) error {
	return m.each(func(s EventSink) error { return s.AssetUpdated(ctx, asset) })
}

func (m MultiEventSink) AssetSoftDeleted(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return m.each(func(s EventSink) error { return s.AssetSoftDeleted(ctx, tenantID, assetID) })
}

func (m MultiEventSink) AssetRestored(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return m.each(func(s EventSink) error { return s.AssetRestored(ctx, tenantID, assetID) })
}

func (m MultiEventSink) AssetHardDeleted(ctx context.Context, asset *Asset) error {
	return m.each(func(s EventSink) error { return s.AssetHardDeleted(ctx, asset) })
}

func (m MultiEventSink) AssetProcessed(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return m.each(func(s EventSink) error { return s.AssetProcessed(ctx, tenantID, assetID) })
}

func (m MultiEventSink) CompensationFailed(ctx context.Context, failure *CompensationFailureError) error {
	return m.each(func(s EventSink) error { return s.CompensationFailed(ctx, failure) })
}
