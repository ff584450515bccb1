package resilient

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/storage/memory"
)

type brokenStore struct {
	*memory.Backend
	err   error
	calls int
}

func (b *brokenStore) Put(ctx context.Context, key string, r io.Reader, opts simpleasset.PutOptions) error {
	b.calls++
	if b.err != nil {
		return b.err
	}
	return b.Backend.Put(ctx, key, r, opts)
}

func TestStore_TripsAfterFailures(t *testing.T) {
	next := &brokenStore{Backend: memory.New(), err: errors.New("connection refused")}
	s := New(next, Config{Name: "ai-files", MinRequests: 3, FailureRate: 0.5, Timeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.Put(ctx, "k", strings.NewReader("x"), simpleasset.PutOptions{})
		assert.EqualError(t, err, "connection refused")
	}
	assert.Equal(t, "open", s.State())

	err := s.Put(ctx, "k", strings.NewReader("x"), simpleasset.PutOptions{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, next.calls, "open breaker must not reach the store")

	// Reads share the breaker.
	_, err = s.Stat(ctx, "k")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestStore_MissingObjectsDoNotTrip(t *testing.T) {
	s := New(memory.New(), Config{MinRequests: 2, FailureRate: 0.1})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.Stat(ctx, "missing")
		assert.ErrorIs(t, err, simpleasset.ErrObjectNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "missing"), simpleasset.ErrObjectNotFound)
	}
	assert.Equal(t, "closed", s.State())
}

func TestStore_PassesThrough(t *testing.T) {
	s := New(memory.New(), Config{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", strings.NewReader("data"), simpleasset.PutOptions{ContentType: "text/plain"}))
	info, err := s.Stat(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)

	rc, err := s.Open(ctx, "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "data", string(data))

	require.NoError(t, s.Delete(ctx, "k"))
	assert.Equal(t, "closed", s.State())
}
