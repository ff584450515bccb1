package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

func TestBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Put(ctx, "t/catalogos/1_a.pdf", strings.NewReader("hello"), simpleasset.PutOptions{ContentType: "application/pdf"}))

	info, err := b.Stat(ctx, "t/catalogos/1_a.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)

	rc, err := b.Open(ctx, "t/catalogos/1_a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Equal(t, []string{"t/catalogos/1_a.pdf"}, b.Keys())

	require.NoError(t, b.Delete(ctx, "t/catalogos/1_a.pdf"))
	assert.Empty(t, b.Keys())
}

func TestBackend_MissingKey(t *testing.T) {
	ctx := context.Background()
	b := New()

	_, err := b.Open(ctx, "nope")
	assert.ErrorIs(t, err, simpleasset.ErrObjectNotFound)
	_, err = b.Stat(ctx, "nope")
	assert.ErrorIs(t, err, simpleasset.ErrObjectNotFound)
	assert.ErrorIs(t, b.Delete(ctx, "nope"), simpleasset.ErrObjectNotFound)
}

func TestBackend_DefaultContentTypeAndCancel(t *testing.T) {
	b := New()
	require.NoError(t, b.Put(context.Background(), "k", strings.NewReader("x"), simpleasset.PutOptions{}))
	info, err := b.Stat(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", info.ContentType)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Put(ctx, "k2", strings.NewReader("x"), simpleasset.PutOptions{}), context.Canceled)

	_, err = b.DownloadURL(context.Background(), "k", "k.txt")
	assert.Error(t, err)
}
