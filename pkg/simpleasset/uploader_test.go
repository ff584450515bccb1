package simpleasset_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
)

func TestServiceCreation(t *testing.T) {
	repo := memory.New()
	resolver := simpleasset.NewProfileTenantResolver(repo)

	tests := []struct {
		name        string
		options     []simpleasset.Option
		expectError bool
	}{
		{name: "no options should fail", expectError: true},
		{
			name:        "repository without resolver should fail",
			options:     []simpleasset.Option{simpleasset.WithRepository(repo)},
			expectError: true,
		},
		{
			name: "repository and resolver should succeed",
			options: []simpleasset.Option{
				simpleasset.WithRepository(repo),
				simpleasset.WithTenantResolver(resolver),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simpleasset.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestUpload_CatalogExample(t *testing.T) {
	f := newFixture(t)
	data := []byte("%PDF-1.7 catalog")

	asset, err := f.svc.Upload(context.Background(), f.alice, simpleasset.UploadRequest{
		Data:         data,
		Name:         "Catálogo 2024",
		OriginalName: "Catálogo 2024.pdf",
		MimeType:     "application/pdf",
		Category:     simpleasset.CategoryCatalog,
		Keywords:     []string{"Linha A", "linha a", " 2024 "},
	})
	require.NoError(t, err)

	assert.Equal(t, f.tenantA, asset.TenantID)
	assert.Equal(t, simpleasset.FamilyAIFiles, asset.Bucket)
	assert.Equal(t, "pdf", asset.Extension)
	assert.Equal(t, int64(len(data)), asset.Size)
	assert.True(t, strings.HasPrefix(asset.StorageKey, f.tenantA.String()+"/catalogos/"), asset.StorageKey)
	assert.True(t, strings.HasSuffix(asset.StorageKey, "_Catalogo_2024.pdf"), asset.StorageKey)
	assert.Equal(t, simpleasset.AssetStatusActive, asset.Status)
	assert.Equal(t, simpleasset.DefaultPriority, asset.Priority)
	assert.Equal(t, simpleasset.VisibilityPrivate, asset.Visibility)
	assert.True(t, asset.AIAvailable)
	assert.False(t, asset.AIProcessed)
	assert.Equal(t, 1, asset.Version)
	assert.Equal(t, []string{"linha a", "2024"}, asset.Keywords)
	assert.Equal(t, "alice", asset.CreatedBy)
	assert.Equal(t, f.now, asset.CreatedAt)

	assert.Equal(t, []string{asset.StorageKey}, f.aiFiles.Keys())
	assert.Empty(t, f.files.Keys())

	stored, err := f.svc.GetAsset(context.Background(), f.alice, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StorageKey, stored.StorageKey)

	assert.Equal(t, []string{"uploaded"}, f.sink.Events())
}

func TestUpload_ImageGoesToFilesBucket(t *testing.T) {
	f := newFixture(t)
	asset := f.upload(t, f.alice, simpleasset.UploadRequest{
		Name:     "logo",
		MimeType: "image/png",
		Category: simpleasset.CategoryImage,
	})

	assert.Equal(t, simpleasset.FamilyFiles, asset.Bucket)
	assert.Equal(t, "png", asset.Extension)
	assert.Equal(t, []string{asset.StorageKey}, f.files.Keys())
	assert.Empty(t, f.aiFiles.Keys())
}

func TestUpload_StorageFailureWritesNoRow(t *testing.T) {
	f := newFixture(t)
	f.aiFiles.failPut.Store(true)

	_, err := f.svc.Upload(context.Background(), f.alice, simpleasset.UploadRequest{
		Data: []byte("x"), Name: "manual", MimeType: "application/pdf", Category: simpleasset.CategoryManual,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleasset.ErrStorageWrite)
	assert.True(t, simpleasset.IsRetryable(err))

	list, err := f.svc.ListAssets(context.Background(), f.alice, simpleasset.AssetFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.sink.Events())
}

func TestUpload_MetadataFailureRemovesObject(t *testing.T) {
	f := newFixture(t)
	f.repo.failCreate.Store(true)

	_, err := f.svc.Upload(context.Background(), f.alice, simpleasset.UploadRequest{
		Data: []byte("x"), Name: "manual", MimeType: "application/pdf", Category: simpleasset.CategoryManual,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleasset.ErrMetadataWrite)
	assert.False(t, errors.Is(err, simpleasset.ErrCompensationFailure))
	assert.True(t, simpleasset.IsRetryable(err))

	assert.Empty(t, f.aiFiles.Keys(), "compensation must remove the object")
	assert.Empty(t, f.sink.Events())
}

func TestUpload_CompensationFailureReportsOrphan(t *testing.T) {
	f := newFixture(t)
	f.repo.failCreate.Store(true)
	f.aiFiles.failDelete.Store(true)

	_, err := f.svc.Upload(context.Background(), f.alice, simpleasset.UploadRequest{
		Data: []byte("x"), Name: "manual", MimeType: "application/pdf", Category: simpleasset.CategoryManual,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simpleasset.ErrCompensationFailure)
	assert.ErrorIs(t, err, simpleasset.ErrMetadataWrite)
	assert.False(t, simpleasset.IsRetryable(err))

	var failure *simpleasset.CompensationFailureError
	require.ErrorAs(t, err, &failure)
	keys := f.aiFiles.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, keys[0], failure.Key)
	assert.Equal(t, f.tenantA, failure.TenantID)
	assert.Equal(t, simpleasset.FamilyAIFiles, failure.Bucket)
	assert.ErrorIs(t, failure.CleanupErr, errInjected)

	var storageErr *simpleasset.StorageWriteError
	assert.False(t, errors.As(err, &storageErr))

	assert.Equal(t, []string{"compensation_failed"}, f.sink.Events())
	require.Len(t, f.sink.failures, 1)
	assert.Equal(t, failure.Key, f.sink.failures[0].Key)
}

func TestUpload_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		req     simpleasset.UploadRequest
		wantErr error
	}{
		{
			name:    "missing name",
			req:     simpleasset.UploadRequest{MimeType: "application/pdf", Category: simpleasset.CategoryManual},
			wantErr: simpleasset.ErrValidation,
		},
		{
			name:    "blank name",
			req:     simpleasset.UploadRequest{Name: "   ", MimeType: "application/pdf", Category: simpleasset.CategoryManual},
			wantErr: simpleasset.ErrValidation,
		},
		{
			name:    "missing mime type",
			req:     simpleasset.UploadRequest{Name: "a", Category: simpleasset.CategoryManual},
			wantErr: simpleasset.ErrValidation,
		},
		{
			name:    "unknown category",
			req:     simpleasset.UploadRequest{Name: "a", MimeType: "application/pdf", Category: "planilha"},
			wantErr: simpleasset.ErrUnknownCategory,
		},
		{
			name:    "priority out of range",
			req:     simpleasset.UploadRequest{Name: "a", MimeType: "application/pdf", Category: simpleasset.CategoryManual, Priority: ptr(11)},
			wantErr: simpleasset.ErrValidation,
		},
		{
			name:    "bad visibility",
			req:     simpleasset.UploadRequest{Name: "a", MimeType: "application/pdf", Category: simpleasset.CategoryManual, Visibility: "secreto"},
			wantErr: simpleasset.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(context.Background(), f.alice, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// The tenant is resolved first and nothing is written.
	assert.Equal(t, int32(len(tests)), f.resolver.calls.Load())
	assert.Empty(t, f.aiFiles.Keys())
	assert.Empty(t, f.files.Keys())
}

func TestUpload_AuthenticationBeforeValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), simpleasset.Principal{}, simpleasset.UploadRequest{Name: "  "})
	assert.ErrorIs(t, err, simpleasset.ErrAuthentication)

	_, err = f.svc.UpdateMetadata(context.Background(), simpleasset.Principal{}, uuid.New(), simpleasset.UpdateRequest{Priority: ptr(0)})
	assert.ErrorIs(t, err, simpleasset.ErrAuthentication)

	_, err = f.svc.ListByCategory(context.Background(), simpleasset.Principal{}, "planilha", "")
	assert.ErrorIs(t, err, simpleasset.ErrAuthentication)
}

func TestUpload_SubcategoryNotPermitted(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), f.alice, simpleasset.UploadRequest{
		Data: []byte("x"), Name: "curso", MimeType: "video/mp4", Category: simpleasset.CategoryTraining, Subcategory: "marketing",
	})
	var verr *simpleasset.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "subcategory", verr.Field)
	assert.Empty(t, f.aiFiles.Keys())

	asset := f.upload(t, f.alice, simpleasset.UploadRequest{
		Name: "curso", MimeType: "video/mp4", Category: simpleasset.CategoryTraining, Subcategory: "Vendas",
	})
	assert.Equal(t, "vendas", asset.Subcategory)
	assert.Contains(t, asset.StorageKey, "/treinamentos/vendas/")
}

func TestUpload_TenantErrors(t *testing.T) {
	f := newFixture(t)
	req := simpleasset.UploadRequest{Data: []byte("x"), Name: "a", MimeType: "application/pdf", Category: simpleasset.CategoryManual}

	_, err := f.svc.Upload(context.Background(), simpleasset.Principal{}, req)
	assert.ErrorIs(t, err, simpleasset.ErrAuthentication)

	_, err = f.svc.Upload(context.Background(), simpleasset.Principal{Subject: "mallory"}, req)
	assert.ErrorIs(t, err, simpleasset.ErrTenantResolution)

	assert.Empty(t, f.aiFiles.Keys())
}

func TestUpload_SameNameTwiceGetsDistinctKeys(t *testing.T) {
	f := newFixture(t)
	a := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "Tabela", Category: simpleasset.CategoryPriceTable})
	b := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "Tabela", Category: simpleasset.CategoryPriceTable})

	assert.NotEqual(t, a.StorageKey, b.StorageKey)
	assert.Len(t, f.aiFiles.Keys(), 2)
}

func TestUpload_EventSinkErrorDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("broker down")

	asset := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "manual", Category: simpleasset.CategoryManual})
	assert.NotEqual(t, uuid.Nil, asset.ID)
}

func TestResolverCalledOncePerOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asset := f.upload(t, f.alice, simpleasset.UploadRequest{Name: "manual", Category: simpleasset.CategoryManual})
	assert.Equal(t, int32(1), f.resolver.calls.Load())

	ops := []func() error{
		func() error { _, err := f.svc.GetAsset(ctx, f.alice, asset.ID); return err },
		func() error { _, err := f.svc.ListAssets(ctx, f.alice, simpleasset.AssetFilter{}); return err },
		func() error { _, err := f.svc.CategoryStatistics(ctx, f.alice); return err },
		func() error { _, err := f.svc.RecordView(ctx, f.alice, asset.ID); return err },
		func() error { return f.svc.MarkProcessed(ctx, f.alice, asset.ID) },
		func() error { return f.svc.SoftDelete(ctx, f.alice, asset.ID) },
		func() error { return f.svc.Restore(ctx, f.alice, asset.ID) },
		func() error { return f.svc.HardDelete(ctx, f.alice, asset.ID) },
	}
	for i, op := range ops {
		before := f.resolver.calls.Load()
		require.NoError(t, op(), "op %d", i)
		assert.Equal(t, before+1, f.resolver.calls.Load(), "op %d", i)
	}
}
