//go:build !gcp

package source

import (
	"context"
	"fmt"

	"github.com/Skryldev/gltf-importer/core"
)

// OpenGCS is unavailable without the gcp build tag.
func OpenGCS(_ context.Context, _, _ string, _ int64) (core.Source, error) {
	return nil, fmt.Errorf("GCS source is not enabled in this build (use -tags gcp)")
}
