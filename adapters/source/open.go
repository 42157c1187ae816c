package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skryldev/gltf-importer/config"
	"github.com/Skryldev/gltf-importer/core"
)

// Open picks a source for location: an http(s) URL, an s3:// or gs:// object
// URL, or a local path. The result is wrapped in Decompress and, when
// cfg.Retry allows more than one try, in Retry.
func Open(ctx context.Context, location string, cfg config.Config) (core.Source, error) {
	var (
		src core.Source
		err error
	)
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		var h *HTTP
		h, err = NewHTTP(location, cfg.HTTP)
		if h != nil {
			src = h.WithLimit(cfg.MaxResourceBytes)
		}
	case strings.HasPrefix(lower, "s3://"):
		_, bucket, key, perr := ParseObjectURL(location)
		if perr != nil {
			return nil, perr
		}
		s3cfg := cfg.S3
		s3cfg.Bucket = bucket
		var s *S3
		s, err = NewS3(ctx, s3cfg, key)
		if s != nil {
			src = s.WithLimit(cfg.MaxResourceBytes)
		}
	case strings.HasPrefix(lower, "gs://"):
		_, bucket, key, perr := ParseObjectURL(location)
		if perr != nil {
			return nil, perr
		}
		src, err = OpenGCS(ctx, bucket, key, cfg.MaxResourceBytes)
	default:
		src = NewPath(strings.TrimPrefix(location, "file://")).WithLimit(cfg.MaxResourceBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}

	src = NewDecompress(src, cfg.MaxResourceBytes)
	if cfg.Retry.MaxTries > 1 {
		src = NewRetry(src, cfg.Retry)
	}
	return src, nil
}
