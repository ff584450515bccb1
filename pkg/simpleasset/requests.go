package simpleasset

import (
	"github.com/google/uuid"
)

// UploadRequest contains parameters for uploading a new asset. Size is taken
// from Data, never from the caller.
type UploadRequest struct {
	Data []byte `json:"-"`

	Name         string   `json:"name" validate:"required,max=255"`
	OriginalName string   `json:"original_name,omitempty" validate:"max=255"`
	MimeType     string   `json:"mime_type" validate:"required,max=255"`
	Category     Category `json:"category" validate:"required"`
	Subcategory  string   `json:"subcategory,omitempty" validate:"max=100"`
	Description  string   `json:"description,omitempty" validate:"max=4000"`

	AIInstructions string   `json:"ai_instructions,omitempty" validate:"max=8000"`
	UsageContext   string   `json:"usage_context,omitempty" validate:"max=4000"`
	Keywords       []string `json:"keywords,omitempty" validate:"max=50,dive,required,max=64"`
	Priority       *int     `json:"priority,omitempty" validate:"omitempty,min=1,max=10"`
	Notes          string   `json:"notes,omitempty" validate:"max=4000"`

	ClientRef      *uuid.UUID `json:"client_ref,omitempty"`
	ProductRef     *uuid.UUID `json:"product_ref,omitempty"`
	ProposalRef    *uuid.UUID `json:"proposal_ref,omitempty"`
	ContractRef    *uuid.UUID `json:"contract_ref,omitempty"`
	ParentAssetRef *uuid.UUID `json:"parent_asset_ref,omitempty"`

	Visibility  Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=publico privado restrito"`
	AIAvailable *bool      `json:"ai_available,omitempty"`
}

// UpdateRequest changes descriptive fields. Nil fields are left unchanged.
// The storage key and bucket cannot be changed.
type UpdateRequest struct {
	Name        *string     `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=4000"`
	Category    *Category   `json:"category,omitempty"`
	Subcategory *string     `json:"subcategory,omitempty" validate:"omitempty,max=100"`
	Keywords    []string    `json:"keywords,omitempty" validate:"omitempty,max=50,dive,required,max=64"`
	Visibility  *Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=publico privado restrito"`
	Priority    *int        `json:"priority,omitempty" validate:"omitempty,min=1,max=10"`

	AIInstructions *string `json:"ai_instructions,omitempty" validate:"omitempty,max=8000"`
	UsageContext   *string `json:"usage_context,omitempty" validate:"omitempty,max=4000"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=4000"`
	AIAvailable    *bool   `json:"ai_available,omitempty"`

	ClientRef   *uuid.UUID `json:"client_ref,omitempty"`
	ProductRef  *uuid.UUID `json:"product_ref,omitempty"`
	ProposalRef *uuid.UUID `json:"proposal_ref,omitempty"`
	ContractRef *uuid.UUID `json:"contract_ref,omitempty"`
}
