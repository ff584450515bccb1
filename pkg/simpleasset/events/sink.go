package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Sink implements simpleasset.EventSink by publishing envelopes.
type Sink struct {
	pub      message.Publisher
	producer string
	now      func() time.Time
}

var _ simpleasset.EventSink = (*Sink)(nil)

// NewSink creates a sink publishing through pub.
func NewSink(pub message.Publisher, producer string) *Sink {
	return &Sink{pub: pub, producer: producer, now: time.Now}
}

func (s *Sink) header(topic string) Header {
	return Header{
		Topic:      topic,
		Producer:   s.producer,
		OccurredAt: s.now().UTC(),
		Version:    PayloadVersionV1,
	}
}

func publish[T any](ctx context.Context, s *Sink, topic, tenantID string, payload T) error {
	msg, err := NewMessage(s.header(topic), tenantID, payload)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	return s.pub.Publish(topic, msg)
}

func assetPayload(a *simpleasset.Asset) AssetPayload {
	return AssetPayload{
		AssetID:    a.ID.String(),
		TenantID:   a.TenantID.String(),
		Category:   string(a.Category),
		Bucket:     a.Bucket,
		StorageKey: a.StorageKey,
		Size:       a.Size,
		MimeType:   a.MimeType,
		Status:     string(a.Status),
	}
}

func idPayload(tenantID, assetID uuid.UUID) AssetPayload {
	return AssetPayload{AssetID: assetID.String(), TenantID: tenantID.String()}
}

func (s *Sink) AssetUploaded(ctx context.Context, asset *simpleasset.Asset) error {
	return publish(ctx, s, TopicAssetUploaded, asset.TenantID.String(), assetPayload(asset))
}

func (s *Sink) AssetUpdated(ctx context.Context, asset *simpleasset.Asset) error {
	return publish(ctx, s, TopicAssetUpdated, asset.TenantID.String(), assetPayload(asset))
}

func (s *Sink) AssetSoftDeleted(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return publish(ctx, s, TopicAssetSoftDeleted, tenantID.String(), idPayload(tenantID, assetID))
}

func (s *Sink) AssetRestored(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return publish(ctx, s, TopicAssetRestored, tenantID.String(), idPayload(tenantID, assetID))
}

func (s *Sink) AssetHardDeleted(ctx context.Context, asset *simpleasset.Asset) error {
	return publish(ctx, s, TopicAssetHardDeleted, asset.TenantID.String(), assetPayload(asset))
}

func (s *Sink) AssetProcessed(ctx context.Context, tenantID, assetID uuid.UUID) error {
	return publish(ctx, s, TopicAssetProcessed, tenantID.String(), idPayload(tenantID, assetID))
}

func (s *Sink) CompensationFailed(ctx context.Context, failure *simpleasset.CompensationFailureError) error {
	payload := OrphanPayload{
		TenantID:   failure.TenantID.String(),
		Bucket:     failure.Bucket,
		StorageKey: failure.Key,
	}
	if failure.MetadataErr != nil {
		payload.MetadataErr = failure.MetadataErr.Error()
	}
	if failure.CleanupErr != nil {
		payload.CleanupErr = failure.CleanupErr.Error()
	}
	return publish(ctx, s, TopicCompensationFailed, payload.TenantID, payload)
}
