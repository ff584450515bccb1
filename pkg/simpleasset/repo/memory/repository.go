package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Repository implements simpleasset.Repository using in-memory storage. It
// also serves as a ProfileStore and ReferenceResolver for tests and local
// runs.
type Repository struct {
	mu       sync.RWMutex
	assets   map[uuid.UUID]*simpleasset.Asset
	keys     map[string]uuid.UUID    // "tenant:bucket:key" -> asset id
	profiles map[string]uuid.UUID    // subject -> tenant
	names    map[uuid.UUID]entityRef // entity id -> tenant + display name
}

type entityRef struct {
	tenantID uuid.UUID
	name     string
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		assets:   make(map[uuid.UUID]*simpleasset.Asset),
		keys:     make(map[string]uuid.UUID),
		profiles: make(map[string]uuid.UUID),
		names:    make(map[uuid.UUID]entityRef),
	}
}

var (
	_ simpleasset.Repository        = (*Repository)(nil)
	_ simpleasset.ProfileStore      = (*Repository)(nil)
	_ simpleasset.ReferenceResolver = (*Repository)(nil)
)

func keyIndex(a *simpleasset.Asset) string {
	return a.TenantID.String() + ":" + a.Bucket + ":" + a.StorageKey
}

func copyAsset(a *simpleasset.Asset) *simpleasset.Asset {
	c := *a
	if a.Keywords != nil {
		c.Keywords = append([]string(nil), a.Keywords...)
	}
	return &c
}

// lookup returns the stored row for a tenant, or nil.
func (r *Repository) lookup(tenantID, id uuid.UUID) *simpleasset.Asset {
	a, ok := r.assets[id]
	if !ok || a.TenantID != tenantID {
		return nil
	}
	return a
}

func (r *Repository) CreateAsset(ctx context.Context, asset *simpleasset.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[asset.ID]; exists {
		return fmt.Errorf("%w: asset %s", simpleasset.ErrDuplicateKey, asset.ID)
	}
	idx := keyIndex(asset)
	if _, exists := r.keys[idx]; exists {
		return fmt.Errorf("%w: %s", simpleasset.ErrDuplicateKey, asset.StorageKey)
	}
	r.assets[asset.ID] = copyAsset(asset)
	r.keys[idx] = asset.ID
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, tenantID, id uuid.UUID, includeDeleted bool) (*simpleasset.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := r.lookup(tenantID, id)
	if a == nil || (a.DeletedAt != nil && !includeDeleted) {
		return nil, simpleasset.ErrNotFound
	}
	return copyAsset(a), nil
}

// UpdateAsset writes descriptive fields and status. Counters, key, bucket,
// processing and deletion state are owned by their dedicated methods.
func (r *Repository) UpdateAsset(ctx context.Context, asset *simpleasset.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookup(asset.TenantID, asset.ID)
	if a == nil || a.DeletedAt != nil {
		return simpleasset.ErrNotFound
	}
	a.Name = asset.Name
	a.Description = asset.Description
	a.Category = asset.Category
	a.Subcategory = asset.Subcategory
	a.AIInstructions = asset.AIInstructions
	a.UsageContext = asset.UsageContext
	a.Keywords = append([]string(nil), asset.Keywords...)
	a.Priority = asset.Priority
	a.Notes = asset.Notes
	a.ClientRef = asset.ClientRef
	a.ProductRef = asset.ProductRef
	a.ProposalRef = asset.ProposalRef
	a.ContractRef = asset.ContractRef
	a.Status = asset.Status
	a.AIAvailable = asset.AIAvailable
	a.Visibility = asset.Visibility
	a.UpdatedBy = asset.UpdatedBy
	a.UpdatedAt = asset.UpdatedAt
	return nil
}

func (r *Repository) DeleteAsset(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookup(tenantID, id)
	if a == nil {
		return simpleasset.ErrNotFound
	}
	delete(r.keys, keyIndex(a))
	delete(r.assets, id)
	// Children keep their rows but lose the link, as ON DELETE SET NULL does.
	for _, child := range r.assets {
		if child.TenantID == tenantID && child.ParentAssetRef != nil && *child.ParentAssetRef == id {
			child.ParentAssetRef = nil
		}
	}
	return nil
}

func (r *Repository) SoftDeleteAsset(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookup(tenantID, id)
	if a == nil || a.DeletedAt != nil {
		return simpleasset.ErrNotFound
	}
	deletedAt := at
	a.DeletedAt = &deletedAt
	a.UpdatedAt = at
	a.UpdatedBy = by
	return nil
}

func (r *Repository) RestoreAsset(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookup(tenantID, id)
	if a == nil || a.DeletedAt == nil {
		return simpleasset.ErrNotFound
	}
	a.DeletedAt = nil
	a.UpdatedAt = at
	a.UpdatedBy = by
	return nil
}

func (r *Repository) MarkProcessed(ctx context.Context, tenantID, id uuid.UUID, by string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookup(tenantID, id)
	if a == nil || a.DeletedAt != nil {
		return simpleasset.ErrNotFound
	}
	processedAt := at
	a.AIProcessed = true
	a.ProcessedAt = &processedAt
	a.UpdatedAt = at
	a.UpdatedBy = by
	return nil
}

// IncrementCounter adds one under the write lock, the in-memory equivalent of
// an UPDATE ... SET n = n + 1.
func (r *Repository) IncrementCounter(ctx context.Context, tenantID, id uuid.UUID, counter simpleasset.Counter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookup(tenantID, id)
	if a == nil || a.DeletedAt != nil {
		return 0, simpleasset.ErrNotFound
	}
	switch counter {
	case simpleasset.CounterViews:
		a.ViewCount++
		return a.ViewCount, nil
	case simpleasset.CounterDownloads:
		a.DownloadCount++
		return a.DownloadCount, nil
	}
	return 0, fmt.Errorf("unknown counter %q", counter)
}

func (r *Repository) TouchAIUsage(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.lookup(tenantID, id)
	if a == nil || a.DeletedAt != nil {
		return simpleasset.ErrNotFound
	}
	usedAt := at
	a.LastAIUsageAt = &usedAt
	return nil
}

func (r *Repository) ListAssets(ctx context.Context, query simpleasset.AssetQuery) ([]*simpleasset.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*simpleasset.Asset
	for _, a := range r.assets {
		if a.TenantID != query.TenantID {
			continue
		}
		if query.OnlyDeleted {
			if a.DeletedAt == nil {
				continue
			}
		} else if a.DeletedAt != nil && !query.IncludeDeleted {
			continue
		}
		if !matchesFilter(a, &query.Filter) {
			continue
		}
		matched = append(matched, a)
	}

	sortAssets(matched, query)

	offset, limit := query.Filter.Offset, query.Filter.Limit
	if offset >= len(matched) {
		return []*simpleasset.Asset{}, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*simpleasset.Asset, 0, end-offset)
	for _, a := range matched[offset:end] {
		out = append(out, copyAsset(a))
	}
	return out, nil
}

func matchesFilter(a *simpleasset.Asset, f *simpleasset.AssetFilter) bool {
	if f.Category != nil && a.Category != *f.Category {
		return false
	}
	if f.Subcategory != nil && a.Subcategory != *f.Subcategory {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.AIAvailable != nil && a.AIAvailable != *f.AIAvailable {
		return false
	}
	if f.AIProcessed != nil && a.AIProcessed != *f.AIProcessed {
		return false
	}
	if f.Visibility != nil && a.Visibility != *f.Visibility {
		return false
	}
	if f.ClientRef != nil && (a.ClientRef == nil || *a.ClientRef != *f.ClientRef) {
		return false
	}
	if f.ProductRef != nil && (a.ProductRef == nil || *a.ProductRef != *f.ProductRef) {
		return false
	}
	if f.ProposalRef != nil && (a.ProposalRef == nil || *a.ProposalRef != *f.ProposalRef) {
		return false
	}
	if f.Search != "" && !matchesSearch(a, f.Search) {
		return false
	}
	if len(f.Keywords) > 0 && !overlaps(a.Keywords, f.Keywords) {
		return false
	}
	return true
}

func matchesSearch(a *simpleasset.Asset, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{a.Name, a.OriginalName, a.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func overlaps(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, k := range have {
		set[strings.ToLower(k)] = struct{}{}
	}
	for _, k := range want {
		if _, ok := set[strings.ToLower(k)]; ok {
			return true
		}
	}
	return false
}

func sortAssets(assets []*simpleasset.Asset, query simpleasset.AssetQuery) {
	f := query.Filter
	asc := f.SortOrder == "asc"
	less := func(a, b *simpleasset.Asset) (bool, bool) {
		switch f.SortBy {
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		case "name":
			return a.Name < b.Name, a.Name == b.Name
		default:
			return a.Priority < b.Priority, a.Priority == b.Priority
		}
	}
	sort.SliceStable(assets, func(i, j int) bool {
		a, b := assets[i], assets[j]
		if query.OnlyDeleted && a.DeletedAt != nil && b.DeletedAt != nil && !a.DeletedAt.Equal(*b.DeletedAt) {
			return a.DeletedAt.After(*b.DeletedAt)
		}
		lt, eq := less(a, b)
		if !eq {
			if asc {
				return lt
			}
			return !lt
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func (r *Repository) CategoryStatistics(ctx context.Context, tenantID uuid.UUID) ([]simpleasset.CategoryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCategory := make(map[simpleasset.Category]*simpleasset.CategoryStats)
	for _, a := range r.assets {
		if a.TenantID != tenantID || a.DeletedAt != nil {
			continue
		}
		st, ok := byCategory[a.Category]
		if !ok {
			st = &simpleasset.CategoryStats{Category: a.Category}
			byCategory[a.Category] = st
		}
		st.Total++
		if a.Status == simpleasset.AssetStatusActive {
			st.Active++
		}
		if a.AIAvailable {
			st.AIAvailable++
		}
		if a.AIProcessed {
			st.AIProcessed++
		}
	}

	out := make([]simpleasset.CategoryStats, 0, len(byCategory))
	for _, st := range byCategory {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r *Repository) ListDeletedBefore(ctx context.Context, before time.Time, limit int) ([]*simpleasset.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*simpleasset.Asset
	for _, a := range r.assets {
		if a.DeletedAt != nil && a.DeletedAt.Before(before) {
			out = append(out, copyAsset(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.Before(*out[j].DeletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetProfile records the tenant of a principal subject.
func (r *Repository) SetProfile(subject string, tenantID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[subject] = tenantID
}

func (r *Repository) LookupTenant(ctx context.Context, subject string) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenantID, ok := r.profiles[subject]
	if !ok {
		return uuid.Nil, simpleasset.ErrNotFound
	}
	return tenantID, nil
}

// SetEntityName records the display name of a client, product or proposal.
func (r *Repository) SetEntityName(tenantID, id uuid.UUID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = entityRef{tenantID: tenantID, name: name}
}

func (r *Repository) ResolveReferenceNames(ctx context.Context, tenantID uuid.UUID, asset *simpleasset.Asset) (simpleasset.ReferenceNames, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := func(id *uuid.UUID) string {
		if id == nil {
			return ""
		}
		ref, ok := r.names[*id]
		if !ok || ref.tenantID != tenantID {
			return ""
		}
		return ref.name
	}
	return simpleasset.ReferenceNames{
		ClientName:    name(asset.ClientRef),
		ProductName:   name(asset.ProductRef),
		ProposalTitle: name(asset.ProposalRef),
	}, nil
}
