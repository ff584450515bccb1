// Package events publishes asset lifecycle notifications over watermill.
//
// Every message body is a JSON envelope:
//
//	{
//	  "header":  {"topic": "asset.uploaded", "producer": "simple-asset", "occurred_at": "...", "version": "v1"},
//	  "payload": {"asset_id": "...", "tenant_id": "...", ...}
//	}
//
// The tenant id is also copied into message metadata so consumers can route
// without decoding the body.
package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

// Topics.
const (
	TopicAssetUploaded      = "asset.uploaded"
	TopicAssetUpdated       = "asset.updated"
	TopicAssetSoftDeleted   = "asset.soft_deleted"
	TopicAssetRestored      = "asset.restored"
	TopicAssetHardDeleted   = "asset.hard_deleted"
	TopicAssetProcessed     = "asset.processed"
	TopicCompensationFailed = "asset.compensation_failed"
)

// PayloadVersionV1 is the current envelope version.
const PayloadVersionV1 = "v1"

// MetadataTenantID is the watermill metadata key carrying the tenant.
const MetadataTenantID = "tenant_id"

type Header struct {
	Topic      string    `json:"topic"`
	Producer   string    `json:"producer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version"`
}

type Envelope[T any] struct {
	Header  Header `json:"header"`
	Payload T      `json:"payload"`
}

// AssetPayload describes the asset an event is about. Fields that the
// emitting operation does not know are left empty.
type AssetPayload struct {
	AssetID    string `json:"asset_id"`
	TenantID   string `json:"tenant_id"`
	Category   string `json:"category,omitempty"`
	Bucket     string `json:"bucket,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
	Size       int64  `json:"size,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	Status     string `json:"status,omitempty"`
}

// OrphanPayload identifies an object left behind by a failed upload.
type OrphanPayload struct {
	TenantID    string `json:"tenant_id"`
	Bucket      string `json:"bucket"`
	StorageKey  string `json:"storage_key"`
	MetadataErr string `json:"metadata_error,omitempty"`
	CleanupErr  string `json:"cleanup_error,omitempty"`
}

// NewMessage wraps payload in an envelope and encodes it as a watermill message.
func NewMessage[T any](header Header, tenantID string, payload T) (*message.Message, error) {
	body, err := sonic.Marshal(Envelope[T]{Header: header, Payload: payload})
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(MetadataTenantID, tenantID)
	return msg, nil
}

// Parse decodes a message produced by NewMessage.
func Parse[T any](msg *message.Message) (Envelope[T], error) {
	var env Envelope[T]
	err := sonic.Unmarshal(msg.Payload, &env)
	return env, err
}
