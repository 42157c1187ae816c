package source

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Skryldev/gltf-importer/core"
)

// Counting records how often each URI of the wrapped source is fetched and
// how many bytes came back.
type Counting struct {
	src core.Source

	roots atomic.Int64
	bytes atomic.Int64

	mu   sync.Mutex
	uris map[string]int
}

// NewCounting wraps src.
func NewCounting(src core.Source) *Counting {
	return &Counting{src: src, uris: make(map[string]int)}
}

func (c *Counting) FetchRoot(ctx context.Context) ([]byte, error) {
	c.roots.Add(1)
	data, err := c.src.FetchRoot(ctx)
	c.bytes.Add(int64(len(data)))
	return data, err
}

func (c *Counting) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	c.mu.Lock()
	c.uris[uri]++
	c.mu.Unlock()
	data, err := c.src.FetchExternal(ctx, uri)
	c.bytes.Add(int64(len(data)))
	return data, err
}

// RootFetches returns the number of FetchRoot calls.
func (c *Counting) RootFetches() int64 { return c.roots.Load() }

// Bytes returns the total number of bytes returned.
func (c *Counting) Bytes() int64 { return c.bytes.Load() }

// Fetches returns the number of FetchExternal calls for uri.
func (c *Counting) Fetches(uri string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uris[uri]
}

// URIs returns every URI fetched so far, sorted.
func (c *Counting) URIs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.uris))
	for u := range c.uris {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
