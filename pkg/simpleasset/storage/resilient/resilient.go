// Package resilient wraps a BlobStore with a circuit breaker so a failing
// object store is cut off quickly instead of tying up every request until its
// timeout. It never retries.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("object store circuit open")

// Config tunes the breaker.
type Config struct {
	Name        string
	MaxRequests uint32        // probes allowed while half-open
	Interval    time.Duration // closed-state counter reset period
	Timeout     time.Duration // open-state duration before probing
	MinRequests uint32        // requests needed before tripping
	FailureRate float64       // failure ratio that trips the breaker
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "blobstore"
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MinRequests == 0 {
		c.MinRequests = 5
	}
	if c.FailureRate == 0 {
		c.FailureRate = 0.5
	}
	return c
}

// Store guards a BlobStore with a gobreaker circuit breaker.
type Store struct {
	next simpleasset.BlobStore
	cb   *gobreaker.CircuitBreaker
}

var _ simpleasset.BlobStore = (*Store)(nil)

// New wraps next.
func New(next simpleasset.BlobStore, config Config) *Store {
	config = config.withDefaults()
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRate
		},
		// A missing object or a caller's own cancellation says nothing
		// about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, simpleasset.ErrObjectNotFound) || errors.Is(err, context.Canceled)
		},
	}
	return &Store{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state, e.g. "closed" or "open".
func (s *Store) State() string {
	return s.cb.State().String()
}

func (s *Store) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s rejected: %v", ErrCircuitOpen, op, err)
	}
	return result, err
}

func (s *Store) Put(ctx context.Context, key string, reader io.Reader, opts simpleasset.PutOptions) error {
	_, err := s.execute("put", func() (interface{}, error) {
		return nil, s.next.Put(ctx, key, reader, opts)
	})
	return err
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.execute("open", func() (interface{}, error) {
		return s.next.Open(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(io.ReadCloser), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.execute("delete", func() (interface{}, error) {
		return nil, s.next.Delete(ctx, key)
	})
	return err
}

func (s *Store) Stat(ctx context.Context, key string) (*simpleasset.ObjectInfo, error) {
	result, err := s.execute("stat", func() (interface{}, error) {
		return s.next.Stat(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*simpleasset.ObjectInfo), nil
}

// DownloadURL is presigned locally by most backends and bypasses the breaker.
func (s *Store) DownloadURL(ctx context.Context, key string, filename string) (string, error) {
	return s.next.DownloadURL(ctx, key, filename)
}
