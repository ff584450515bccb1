package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Backend is an in-memory implementation of the simpleasset.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
	}
}

var _ simpleasset.BlobStore = (*Backend)(nil)

// Put stores a copy of the reader's bytes
func (b *Backend) Put(ctx context.Context, key string, reader io.Reader, opts simpleasset.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = object{data: data, contentType: contentType, modified: time.Now().UTC()}
	return nil
}

// Open returns a reader over a copy of the stored bytes
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, simpleasset.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

// Delete removes the object
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[key]; !ok {
		return simpleasset.ErrObjectNotFound
	}
	delete(b.objects, key)
	return nil
}

// Stat returns the stored size and content type
func (b *Backend) Stat(ctx context.Context, key string) (*simpleasset.ObjectInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, simpleasset.ErrObjectNotFound
	}
	return &simpleasset.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}, nil
}

// DownloadURL is not supported; objects must be streamed through Open
func (b *Backend) DownloadURL(ctx context.Context, key string, filename string) (string, error) {
	return "", errors.New("direct download required for memory backend")
}

// Keys lists stored keys in sorted order
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
