package simpleasset

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var sortableColumns = map[string]bool{
	"priority":   true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

func (s *service) GetAsset(ctx context.Context, principal Principal, id uuid.UUID) (*AssetDetails, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	asset, err := s.getAsset(ctx, tenantID, id, false)
	if err != nil {
		return nil, err
	}

	details := &AssetDetails{Asset: *asset}
	if s.references == nil {
		return details, nil
	}

	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	names, err := s.references.ResolveReferenceNames(mctx, tenantID, asset)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve reference names", "asset_id", id, "err", err)
		return details, nil
	}
	details.ClientName = names.ClientName
	details.ProductName = names.ProductName
	details.ProposalTitle = names.ProposalTitle
	return details, nil
}

func (s *service) ListAssets(ctx context.Context, principal Principal, filter AssetFilter) ([]*Asset, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	return s.listAssets(ctx, AssetQuery{TenantID: tenantID, Filter: filter})
}

func (s *service) ListByCategory(ctx context.Context, principal Principal, category Category, subcategory string) ([]*Asset, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	if _, err := LookupCategory(category); err != nil {
		return nil, err
	}
	filter := AssetFilter{Category: &category}
	if sub := NormalizeSubcategory(subcategory); sub != "" {
		filter.Subcategory = &sub
	}
	return s.listAssets(ctx, AssetQuery{TenantID: tenantID, Filter: filter})
}

func (s *service) CategoryStatistics(ctx context.Context, principal Principal) ([]CategoryStats, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	stats, err := s.repository.CategoryStatistics(mctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("category statistics: %w", err)
	}
	return stats, nil
}

// ListTrash lists the caller's soft-deleted assets, most recently deleted first.
func (s *service) ListTrash(ctx context.Context, principal Principal, limit, offset int) ([]*Asset, error) {
	tenantID, err := s.resolveTenant(ctx, principal)
	if err != nil {
		return nil, err
	}
	return s.listAssets(ctx, AssetQuery{
		TenantID:       tenantID,
		Filter:         AssetFilter{Limit: limit, Offset: offset},
		IncludeDeleted: true,
		OnlyDeleted:    true,
	})
}

func (s *service) listAssets(ctx context.Context, query AssetQuery) ([]*Asset, error) {
	filter, err := NormalizeFilter(query.Filter)
	if err != nil {
		return nil, err
	}
	query.Filter = filter

	mctx, cancel := s.metadataCtx(ctx)
	defer cancel()
	assets, err := s.repository.ListAssets(mctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// NormalizeFilter validates enum fields and applies pagination and sort
// defaults. Repositories can assume a normalized filter.
func NormalizeFilter(f AssetFilter) (AssetFilter, error) {
	if f.Category != nil {
		if _, err := LookupCategory(*f.Category); err != nil {
			return f, err
		}
	}
	if f.Status != nil && !f.Status.Valid() {
		return f, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *f.Status)}
	}
	if f.Visibility != nil && !f.Visibility.Valid() {
		return f, &ValidationError{Field: "visibility", Reason: fmt.Sprintf("unknown visibility %q", *f.Visibility)}
	}
	if f.Subcategory != nil {
		sub := NormalizeSubcategory(*f.Subcategory)
		if sub == "" {
			f.Subcategory = nil
		} else {
			f.Subcategory = &sub
		}
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Keywords = NormalizeKeywords(f.Keywords)

	if f.Limit < 0 || f.Offset < 0 {
		return f, &ValidationError{Field: "limit", Reason: "limit and offset must not be negative"}
	}
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}

	if f.SortBy == "" {
		f.SortBy = "priority"
	}
	if !sortableColumns[f.SortBy] {
		return f, &ValidationError{Field: "sort_by", Reason: fmt.Sprintf("cannot sort by %q", f.SortBy)}
	}
	switch strings.ToLower(f.SortOrder) {
	case "", "desc":
		f.SortOrder = "desc"
	case "asc":
		f.SortOrder = "asc"
	default:
		return f, &ValidationError{Field: "sort_order", Reason: "must be asc or desc"}
	}
	return f, nil
}
