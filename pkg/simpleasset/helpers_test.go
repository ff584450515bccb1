package simpleasset_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/repo/memory"
	memorystorage "github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

var errInjected = errors.New("injected failure")

// flakyStore fails Put or Delete on demand.
type flakyStore struct {
	*memorystorage.Backend
	failPut    atomic.Bool
	failDelete atomic.Bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Backend: memorystorage.New()}
}

func (s *flakyStore) Put(ctx context.Context, key string, r io.Reader, opts simpleasset.PutOptions) error {
	if s.failPut.Load() {
		return errInjected
	}
	return s.Backend.Put(ctx, key, r, opts)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.failDelete.Load() {
		return errInjected
	}
	return s.Backend.Delete(ctx, key)
}

// flakyRepo fails CreateAsset or DeleteAsset on demand and counts row deletes.
type flakyRepo struct {
	*memory.Repository
	failCreate  atomic.Bool
	failDeletes atomic.Int32 // number of DeleteAsset calls to fail
	deleteCalls atomic.Int32
}

func (r *flakyRepo) CreateAsset(ctx context.Context, asset *simpleasset.Asset) error {
	if r.failCreate.Load() {
		return errInjected
	}
	return r.Repository.CreateAsset(ctx, asset)
}

func (r *flakyRepo) DeleteAsset(ctx context.Context, tenantID, id uuid.UUID) error {
	r.deleteCalls.Add(1)
	if r.failDeletes.Load() > 0 {
		r.failDeletes.Add(-1)
		return errInjected
	}
	return r.Repository.DeleteAsset(ctx, tenantID, id)
}

// countingResolver counts tenant resolutions.
type countingResolver struct {
	inner simpleasset.TenantResolver
	calls atomic.Int32
}

func (c *countingResolver) ResolveTenant(ctx context.Context, p simpleasset.Principal) (uuid.UUID, error) {
	c.calls.Add(1)
	return c.inner.ResolveTenant(ctx, p)
}

// recordingSink records event names in order.
type recordingSink struct {
	simpleasset.NoopEventSink
	mu       sync.Mutex
	events   []string
	failures []*simpleasset.CompensationFailureError
	err      error
}

func (s *recordingSink) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
	return s.err
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordingSink) AssetUploaded(ctx context.Context, a *simpleasset.Asset) error {
	return s.record("uploaded")
}

func (s *recordingSink) AssetUpdated(ctx context.Context, a *simpleasset.Asset) error {
	return s.record("updated")
}

func (s *recordingSink) AssetSoftDeleted(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.record("soft_deleted")
}

func (s *recordingSink) AssetRestored(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.record("restored")
}

func (s *recordingSink) AssetHardDeleted(ctx context.Context, a *simpleasset.Asset) error {
	return s.record("hard_deleted")
}

func (s *recordingSink) AssetProcessed(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.record("processed")
}

func (s *recordingSink) CompensationFailed(ctx context.Context, f *simpleasset.CompensationFailureError) error {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
	return s.record("compensation_failed")
}

type fixture struct {
	svc      simpleasset.Service
	repo     *flakyRepo
	aiFiles  *flakyStore
	files    *flakyStore
	resolver *countingResolver
	sink     *recordingSink
	tenantA  uuid.UUID
	tenantB  uuid.UUID
	alice    simpleasset.Principal
	bob      simpleasset.Principal
	now      time.Time
}

func newFixture(t *testing.T, opts ...simpleasset.Option) *fixture {
	t.Helper()
	f := &fixture{
		repo:    &flakyRepo{Repository: memory.New()},
		aiFiles: newFlakyStore(),
		files:   newFlakyStore(),
		sink:    &recordingSink{},
		tenantA: uuid.New(),
		tenantB: uuid.New(),
		alice:   simpleasset.Principal{Subject: "alice", Email: "alice@example.com"},
		bob:     simpleasset.Principal{Subject: "bob"},
		now:     time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.repo.SetProfile("alice", f.tenantA)
	f.repo.SetProfile("bob", f.tenantB)
	f.resolver = &countingResolver{inner: simpleasset.NewProfileTenantResolver(f.repo)}

	options := []simpleasset.Option{
		simpleasset.WithRepository(f.repo),
		simpleasset.WithTenantResolver(f.resolver),
		simpleasset.WithReferenceResolver(f.repo),
		simpleasset.WithBlobStore(simpleasset.FamilyAIFiles, f.aiFiles),
		simpleasset.WithBlobStore(simpleasset.FamilyFiles, f.files),
		simpleasset.WithEventSink(f.sink),
		simpleasset.WithClock(simpleasset.ClockFunc(func() time.Time { return f.now })),
		simpleasset.WithRowDeleteRetries(3, 0),
	}
	svc, err := simpleasset.New(append(options, opts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) upload(t *testing.T, p simpleasset.Principal, req simpleasset.UploadRequest) *simpleasset.Asset {
	t.Helper()
	if req.Data == nil {
		req.Data = []byte("content of " + req.Name)
	}
	if req.MimeType == "" {
		req.MimeType = "application/pdf"
	}
	if req.Category == "" {
		req.Category = simpleasset.CategoryCatalog
	}
	asset, err := f.svc.Upload(context.Background(), p, req)
	require.NoError(t, err)
	return asset
}

func ptr[T any](v T) *T { return &v }
