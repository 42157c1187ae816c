package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Skryldev/gltf-importer/config"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/utils"
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Unwrap maps 404 and 410 onto ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound || e.Code == http.StatusGone {
		return apperrors.ErrNotFound
	}
	return nil
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// HTTP fetches an asset over HTTP(S). Relative URIs resolve against the root
// document's URL; requests share one client and one rate limiter.
type HTTP struct {
	base      *url.URL
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBytes  int64
}

// NewHTTP creates an HTTP source for the document at rawURL.
func NewHTTP(rawURL string, cfg config.HTTPConfig) (*HTTP, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("http source: unsupported scheme %q", u.Scheme)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := &HTTP{
		base:      u,
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
	if cfg.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}
	return h, nil
}

// WithClient replaces the HTTP client.
func (h *HTTP) WithClient(c *http.Client) *HTTP {
	h.client = c
	return h
}

// WithLimit rejects responses larger than n bytes. 0 disables the check.
func (h *HTTP) WithLimit(n int64) *HTTP {
	h.maxBytes = n
	return h
}

func (h *HTTP) FetchRoot(ctx context.Context) ([]byte, error) {
	return h.get(ctx, h.base)
}

func (h *HTTP) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	if IsDataURI(uri) {
		data, _, err := DecodeDataURI(uri)
		return data, err
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("http source: %w %q: %w", apperrors.ErrInvalidURI, uri, err)
	}
	target := h.base.ResolveReference(ref)
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("http source: %w: unsupported scheme %q in %q", apperrors.ErrInvalidURI, target.Scheme, uri)
	}
	return h.get(ctx, target)
}

func (h *HTTP) get(ctx context.Context, u *url.URL) ([]byte, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, apperrors.New(apperrors.KindIo, "http.get", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u.String(), Code: resp.StatusCode}
	}
	data, err := utils.ReadAll(ctx, resp.Body, h.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	return data, nil
}
