package simpleasset_test

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

func names(assets []*simpleasset.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Name)
	}
	return out
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "alice doc"})
	theirs := f.upload(t, f.bob, simpleasset.UploadRequest{Name: "bob doc"})

	list, err := f.svc.ListAssets(ctx, f.alice, simpleasset.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice doc"}, names(list))

	_, err = f.svc.GetAsset(ctx, f.alice, theirs.ID)
	assert.ErrorIs(t, err, simpleasset.ErrNotFound)

	assert.ErrorIs(t, f.svc.SoftDelete(ctx, f.alice, theirs.ID), simpleasset.ErrNotFound)
	assert.ErrorIs(t, f.svc.HardDelete(ctx, f.alice, theirs.ID), simpleasset.ErrNotFound)
	_, err = f.svc.RecordView(ctx, f.alice, theirs.ID)
	assert.ErrorIs(t, err, simpleasset.ErrNotFound)
	_, err = f.svc.UpdateMetadata(ctx, f.alice, theirs.ID, simpleasset.UpdateRequest{Name: ptr("stolen")})
	assert.ErrorIs(t, err, simpleasset.ErrNotFound)

	stats, err := f.svc.CategoryStatistics(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Total)

	// Both objects live in the same bucket under separate tenant prefixes.
	assert.Contains(t, mine.StorageKey, f.tenantA.String()+"/")
	assert.Contains(t, theirs.StorageKey, f.tenantB.String()+"/")

	// A parent link must stay inside the tenant.
	keys := len(f.aiFiles.Keys())
	_, err = f.svc.Upload(ctx, f.alice, simpleasset.UploadRequest{
		Data: []byte("x"), Name: "child", MimeType: "application/pdf",
		Category: simpleasset.CategoryCatalog, ParentAssetRef: &theirs.ID,
	})
	var verr *simpleasset.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "parent_asset_ref", verr.Field)
	assert.Len(t, f.aiFiles.Keys(), keys, "nothing is stored for a rejected upload")

	child := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "child", ParentAssetRef: &mine.ID})
	require.NotNil(t, child.ParentAssetRef)
	assert.Equal(t, mine.ID, *child.ParentAssetRef)

	require.NoError(t, f.svc.HardDelete(ctx, f.alice, mine.ID))
	got, err := f.svc.GetAsset(ctx, f.alice, child.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentAssetRef)
}

func TestListAssets_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := uuid.New()

	f.upload(t, f.alice, simpleasset.UploadRequest{
		Name: "Catálogo Verão", Category: simpleasset.CategoryCatalog, Keywords: []string{"verao", "moda"}, Priority: ptr(9),
	})
	f.upload(t, f.alice, simpleasset.UploadRequest{
		Name: "Preços", Description: "Tabela vigente de março", Category: simpleasset.CategoryPriceTable,
		Keywords: []string{"precos"}, ClientRef: &client, Priority: ptr(3),
	})
	f.upload(t, f.alice, simpleasset.UploadRequest{
		Name: "Onboarding", Category: simpleasset.CategoryTraining, Subcategory: "onboarding",
		MimeType: "video/mp4", AIAvailable: ptr(false), Priority: ptr(5),
	})

	tests := []struct {
		name   string
		filter simpleasset.AssetFilter
		want   []string
	}{
		{"default sort is priority desc", simpleasset.AssetFilter{}, []string{"Catálogo Verão", "Onboarding", "Preços"}},
		{"ascending", simpleasset.AssetFilter{SortOrder: "asc"}, []string{"Preços", "Onboarding", "Catálogo Verão"}},
		{"category", simpleasset.AssetFilter{Category: ptr(simpleasset.CategoryCatalog)}, []string{"Catálogo Verão"}},
		{"subcategory", simpleasset.AssetFilter{Subcategory: ptr("Onboarding")}, []string{"Onboarding"}},
		{"search description", simpleasset.AssetFilter{Search: "TABELA"}, []string{"Preços"}},
		{"search name", simpleasset.AssetFilter{Search: "verão"}, []string{"Catálogo Verão"}},
		{"keywords overlap", simpleasset.AssetFilter{Keywords: []string{"MODA", "inexistente"}}, []string{"Catálogo Verão"}},
		{"ai available", simpleasset.AssetFilter{AIAvailable: ptr(false)}, []string{"Onboarding"}},
		{"client ref", simpleasset.AssetFilter{ClientRef: &client}, []string{"Preços"}},
		{"conjunctive", simpleasset.AssetFilter{Category: ptr(simpleasset.CategoryCatalog), Search: "tabela"}, []string{}},
		{"pagination", simpleasset.AssetFilter{Limit: 1, Offset: 1}, []string{"Onboarding"}},
		{"sort by name", simpleasset.AssetFilter{SortBy: "name", SortOrder: "asc"}, []string{"Catálogo Verão", "Onboarding", "Preços"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := f.svc.ListAssets(ctx, f.alice, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(list))
		})
	}
}

func TestListAssets_InvalidFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := []simpleasset.AssetFilter{
		{Category: ptr(simpleasset.Category("planilha"))},
		{Status: ptr(simpleasset.AssetStatus("excluido"))},
		{Visibility: ptr(simpleasset.Visibility("secreto"))},
		{SortBy: "size; DROP TABLE assets"},
		{SortOrder: "sideways"},
		{Limit: -1},
	}
	for _, filter := range bad {
		_, err := f.svc.ListAssets(ctx, f.alice, filter)
		assert.Error(t, err, "%+v", filter)
	}
}

func TestNormalizeFilter_Defaults(t *testing.T) {
	f, err := simpleasset.NormalizeFilter(simpleasset.AssetFilter{Limit: 10_000, Keywords: []string{" A ", "a"}})
	require.NoError(t, err)
	assert.Equal(t, simpleasset.MaxListLimit, f.Limit)
	assert.Equal(t, "priority", f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)
	assert.Equal(t, []string{"a"}, f.Keywords)

	f, err = simpleasset.NormalizeFilter(simpleasset.AssetFilter{})
	require.NoError(t, err)
	assert.Equal(t, simpleasset.DefaultListLimit, f.Limit)
}

func TestListByCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, f.alice, simpleasset.UploadRequest{Name: "vendas 1", Category: simpleasset.CategoryTraining, Subcategory: "vendas"})
	f.upload(t, f.alice, simpleasset.UploadRequest{Name: "produto 1", Category: simpleasset.CategoryTraining, Subcategory: "produto"})
	f.upload(t, f.alice, simpleasset.UploadRequest{Name: "manual", Category: simpleasset.CategoryManual})

	list, err := f.svc.ListByCategory(ctx, f.alice, simpleasset.CategoryTraining, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vendas 1", "produto 1"}, names(list))

	list, err = f.svc.ListByCategory(ctx, f.alice, simpleasset.CategoryTraining, "Vendas")
	require.NoError(t, err)
	assert.Equal(t, []string{"vendas 1"}, names(list))

	_, err = f.svc.ListByCategory(ctx, f.alice, "planilha", "")
	assert.ErrorIs(t, err, simpleasset.ErrUnknownCategory)
}

func TestCategoryStatistics_MatchesNaiveCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "c1", Category: simpleasset.CategoryCatalog})
	f.upload(t, f.alice, simpleasset.UploadRequest{Name: "c2", Category: simpleasset.CategoryCatalog, AIAvailable: ptr(false)})
	b := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "m1", Category: simpleasset.CategoryManual})
	gone := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "m2", Category: simpleasset.CategoryManual})
	f.upload(t, f.bob, simpleasset.UploadRequest{Name: "other", Category: simpleasset.CategoryManual})

	_, err := f.svc.UpdateStatus(ctx, f.alice, a.ID, simpleasset.AssetStatusArchived)
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkProcessed(ctx, f.alice, b.ID))
	require.NoError(t, f.svc.SoftDelete(ctx, f.alice, gone.ID))

	stats, err := f.svc.CategoryStatistics(ctx, f.alice)
	require.NoError(t, err)

	all, err := f.svc.ListAssets(ctx, f.alice, simpleasset.AssetFilter{Limit: simpleasset.MaxListLimit})
	require.NoError(t, err)
	naive := map[simpleasset.Category]*simpleasset.CategoryStats{}
	for _, asset := range all {
		st, ok := naive[asset.Category]
		if !ok {
			st = &simpleasset.CategoryStats{Category: asset.Category}
			naive[asset.Category] = st
		}
		st.Total++
		if asset.Status == simpleasset.AssetStatusActive {
			st.Active++
		}
		if asset.AIAvailable {
			st.AIAvailable++
		}
		if asset.AIProcessed {
			st.AIProcessed++
		}
	}
	var want []simpleasset.CategoryStats
	for _, st := range naive {
		want = append(want, *st)
	}
	sort.Slice(want, func(i, j int) bool { return want[i].Category < want[j].Category })
	sort.Slice(stats, func(i, j int) bool { return stats[i].Category < stats[j].Category })
	assert.Equal(t, want, stats)

	assert.Equal(t, []simpleasset.CategoryStats{
		{Category: simpleasset.CategoryCatalog, Total: 2, Active: 1, AIAvailable: 1},
		{Category: simpleasset.CategoryManual, Total: 1, Active: 1, AIAvailable: 1, AIProcessed: 1},
	}, stats)
}

func TestGetAsset_ResolvesReferenceNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, product, foreign := uuid.New(), uuid.New(), uuid.New()
	f.repo.SetEntityName(f.tenantA, client, "Padaria Central")
	f.repo.SetEntityName(f.tenantA, product, "Pão de Queijo")
	f.repo.SetEntityName(f.tenantB, foreign, "Outro Tenant")

	asset := f.upload(t, f.alice, simpleasset.UploadRequest{
		Name: "proposta", Category: simpleasset.CategoryProposal,
		ClientRef: &client, ProductRef: &product, ProposalRef: &foreign,
	})

	details, err := f.svc.GetAsset(ctx, f.alice, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Padaria Central", details.ClientName)
	assert.Equal(t, "Pão de Queijo", details.ProductName)
	assert.Empty(t, details.ProposalTitle, "names from other tenants are never resolved")
}
