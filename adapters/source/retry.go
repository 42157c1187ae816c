package source

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"

	"github.com/Skryldev/gltf-importer/config"
	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Retry retries failed fetches of the wrapped source with exponential
// backoff. Errors Retryable rejects fail immediately.
type Retry struct {
	src       core.Source
	cfg       config.RetryConfig
	retryable func(error) bool
}

// NewRetry wraps src. A MaxTries of 0 or 1 disables retrying.
func NewRetry(src core.Source, cfg config.RetryConfig) *Retry {
	return &Retry{src: src, cfg: cfg, retryable: Retryable}
}

// WithClassifier overrides which errors are retried.
func (r *Retry) WithClassifier(fn func(error) bool) *Retry {
	r.retryable = fn
	return r
}

func (r *Retry) FetchRoot(ctx context.Context) ([]byte, error) {
	return r.do(ctx, func() ([]byte, error) { return r.src.FetchRoot(ctx) })
}

func (r *Retry) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	return r.do(ctx, func() ([]byte, error) { return r.src.FetchExternal(ctx, uri) })
}

func (r *Retry) do(ctx context.Context, fetch func() ([]byte, error)) ([]byte, error) {
	if r.cfg.MaxTries <= 1 {
		return fetch()
	}
	b := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		b.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		b.MaxInterval = r.cfg.MaxInterval
	}

	var last error
	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		data, err := fetch()
		if err != nil {
			last = err
			if !r.retryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return data, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.cfg.MaxTries))
	if err != nil && ctx.Err() != nil && last != nil {
		// Report the fetch failure rather than the bare context error.
		return nil, last
	}
	return data, err
}

// Retryable reports whether a fetch failing with err may succeed later.
// Missing resources, malformed or unsupported URIs, size limit breaches,
// cancellation and non-transient HTTP statuses are final.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrResourceTooLarge),
		errors.Is(err, apperrors.ErrInvalidURI),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
