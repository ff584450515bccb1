package simpleasset

import (
	"time"

	"github.com/google/uuid"
)

// AssetStatus is the caller-driven lifecycle status of an asset.
type AssetStatus string

// Asset status constants (typed).
const (
	AssetStatusActive   AssetStatus = "ativo"
	AssetStatusInactive AssetStatus = "inativo"
	AssetStatusArchived AssetStatus = "arquivado"
)

// Valid reports whether s is a known status.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusActive, AssetStatusInactive, AssetStatusArchived:
		return true
	}
	return false
}

// Visibility controls who may see an asset inside its tenant.
type Visibility string

// Visibility constants (typed).
const (
	VisibilityPublic     Visibility = "publico"
	VisibilityPrivate    Visibility = "privado"
	VisibilityRestricted Visibility = "restrito"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityRestricted:
		return true
	}
	return false
}

// Priority bounds. Out-of-range values are rejected, never clamped.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// Counter names an atomic usage counter on an asset row.
type Counter string

const (
	CounterViews     Counter = "view_count"
	CounterDownloads Counter = "download_count"
)

// Asset is a stored file plus its descriptive and AI-usage metadata.
type Asset struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Name         string    `json:"name"`
	OriginalName string    `json:"original_name,omitempty"`
	Description  string    `json:"description,omitempty"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	Extension    string    `json:"extension"`
	StorageKey   string    `json:"storage_key"`
	Bucket       string    `json:"bucket"`
	Category     Category  `json:"category"`
	Subcategory  string    `json:"subcategory,omitempty"`

	AIInstructions string   `json:"ai_instructions,omitempty"`
	UsageContext   string   `json:"usage_context,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Priority       int      `json:"priority"`
	Notes          string   `json:"notes,omitempty"`

	ClientRef   *uuid.UUID `json:"client_ref,omitempty"`
	ProductRef  *uuid.UUID `json:"product_ref,omitempty"`
	ProposalRef *uuid.UUID `json:"proposal_ref,omitempty"`
	ContractRef *uuid.UUID `json:"contract_ref,omitempty"`

	Status      AssetStatus `json:"status"`
	AIAvailable bool        `json:"ai_available"`
	AIProcessed bool        `json:"ai_processed"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`

	Version        int        `json:"version"`
	ParentAssetRef *uuid.UUID `json:"parent_asset_ref,omitempty"`
	Visibility     Visibility `json:"visibility"`

	ViewCount     int64      `json:"view_count"`
	DownloadCount int64      `json:"download_count"`
	LastAIUsageAt *time.Time `json:"last_ai_usage_at,omitempty"`

	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// AssetDetails is an asset plus display names of the entities it references.
type AssetDetails struct {
	Asset
	ClientName    string `json:"client_name,omitempty"`
	ProductName   string `json:"product_name,omitempty"`
	ProposalTitle string `json:"proposal_title,omitempty"`
}

// ReferenceNames holds the denormalized names resolved for an asset.
type ReferenceNames struct {
	ClientName    string
	ProductName   string
	ProposalTitle string
}

// CategoryStats aggregates non-deleted assets of one category within a tenant.
type CategoryStats struct {
	Category    Category `json:"category"`
	Total       int64    `json:"total"`
	Active      int64    `json:"active"`
	AIAvailable int64    `json:"ai_available"`
	AIProcessed int64    `json:"ai_processed"`
}

// AssetFilter composes conjunctively. Nil or empty fields do not filter.
type AssetFilter struct {
	Category    *Category
	Subcategory *string
	Status      *AssetStatus
	AIAvailable *bool
	AIProcessed *bool
	Visibility  *Visibility
	ClientRef   *uuid.UUID
	ProductRef  *uuid.UUID
	ProposalRef *uuid.UUID

	// Search is a case-insensitive substring matched against name,
	// original name and description with OR semantics.
	Search string

	// Keywords matches assets whose keyword set overlaps this one.
	Keywords []string

	Limit     int
	Offset    int
	SortBy    string // "priority" (default), "created_at", "updated_at", "name"
	SortOrder string // "desc" (default) or "asc"
}

// Pagination defaults.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// AssetQuery is what the service hands to a Repository. TenantID is always
// set by the service, never by callers.
type AssetQuery struct {
	TenantID       uuid.UUID
	Filter         AssetFilter
	IncludeDeleted bool
	OnlyDeleted    bool
}

// PurgeResult reports a PurgeDeleted run.
type PurgeResult struct {
	Scanned int          `json:"scanned"`
	Purged  int          `json:"purged"`
	Failed  []PurgeError `json:"failed,omitempty"`
}

// PurgeError is a per-asset purge failure.
type PurgeError struct {
	AssetID  uuid.UUID `json:"asset_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Error    string    `json:"error"`
}
