package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Fetcher memoises external fetches for one import. Every distinct URI is
// fetched at most once no matter how many buffers and images reference it.
type Fetcher struct {
	ctx      context.Context //nolint:containedctx // fetches outlive the first waiter
	src      Source
	maxBytes int64

	mu      sync.Mutex
	entries map[string]*SharedBytes

	fetches atomic.Int64
}

// NewFetcher creates the per-import cache. Fetches run under ctx, so
// cancelling it abandons every pending fetch.
func NewFetcher(ctx context.Context, src Source) *Fetcher {
	return &Fetcher{ctx: ctx, src: src, entries: make(map[string]*SharedBytes)}
}

// WithLimit rejects resources larger than limit bytes. 0 disables the check.
func (f *Fetcher) WithLimit(limit int64) *Fetcher {
	f.maxBytes = limit
	return f
}

// Request returns the shared handle for uri. It does not start the fetch.
func (f *Fetcher) Request(uri string) *SharedBytes {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sb, ok := f.entries[uri]; ok {
		return sb
	}
	sb := &SharedBytes{uri: uri, f: f, done: make(chan struct{})}
	f.entries[uri] = sb
	return sb
}

// Fetches reports how many source fetches have been issued.
func (f *Fetcher) Fetches() int64 { return f.fetches.Load() }

// SharedBytes is a lazily started, single-shot fetch whose outcome is seen
// by any number of waiters.
type SharedBytes struct {
	uri  string
	f    *Fetcher
	once sync.Once
	done chan struct{}

	// Written once before done is closed.
	data []byte
	err  error
}

// URI returns the URI this handle fetches.
func (s *SharedBytes) URI() string { return s.uri }

// Ready reports whether the fetch has completed.
func (s *SharedBytes) Ready() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait starts the fetch if nobody has yet and blocks until it completes or
// ctx is done. Failures come back wrapped in a Shared envelope.
func (s *SharedBytes) Wait(ctx context.Context) ([]byte, error) {
	s.once.Do(func() { go s.run() })
	select {
	case <-s.done:
		return s.data, s.err
	case <-ctx.Done():
		return nil, apperrors.New(apperrors.KindIo, "fetch "+s.uri, ctx.Err())
	}
}

func (s *SharedBytes) run() {
	op := "fetch " + s.uri
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.data = nil
			s.err = apperrors.Shared(op, fmt.Errorf("source panic: %v", r))
		}
	}()

	s.f.fetches.Add(1)
	data, err := s.f.src.FetchExternal(s.f.ctx, s.uri)
	if err == nil && s.f.maxBytes > 0 && int64(len(data)) > s.f.maxBytes {
		err = fmt.Errorf("%w: %d bytes exceeds limit of %d", apperrors.ErrResourceTooLarge, len(data), s.f.maxBytes)
	}
	if err != nil {
		s.err = apperrors.Shared(op, apperrors.Wrap(apperrors.KindSource, op, err))
		return
	}
	s.data = data
}
