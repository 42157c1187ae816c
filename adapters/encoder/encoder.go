// Package encoder re-encodes decoded images so imported textures can be
// written back to disk.
package encoder

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Encoder writes an Image in one file format.
type Encoder interface {
	Encode(ctx context.Context, w io.Writer, img *core.Image) error
	// Ext is the file extension, without the dot.
	Ext() string
}

// ForFormat picks the encoder that best preserves an image decoded from f.
// WebP has no pure Go encoder, so it is written losslessly as PNG.
func ForFormat(f core.Format) Encoder {
	if f == core.FormatJPEG {
		return NewJPEG(90)
	}
	return NewPNG()
}

func pixels(img *core.Image) (image.Image, error) {
	if img == nil {
		return nil, apperrors.ErrEmptyInput
	}
	px, ok := img.Pixels.(image.Image)
	if !ok || px == nil {
		return nil, fmt.Errorf("image %d: %w", img.Index, apperrors.ErrEmptyInput)
	}
	return px, nil
}

// Extract writes every decoded image of res into dir as image_<index>.<ext>
// and returns the written paths in index order.
func Extract(ctx context.Context, dir string, res *core.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("extract: mkdir %s: %w", dir, err)
	}
	paths := make([]string, 0, len(res.Images))
	for _, img := range res.Images {
		if img == nil {
			continue
		}
		enc := ForFormat(img.Format)
		name := filepath.Join(dir, fmt.Sprintf("image_%d.%s", img.Index, enc.Ext()))
		if err := writeFile(ctx, name, enc, img); err != nil {
			return paths, err
		}
		paths = append(paths, name)
	}
	return paths, nil
}

func writeFile(ctx context.Context, name string, enc Encoder, img *core.Image) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if err := enc.Encode(ctx, f, img); err != nil {
		f.Close()
		return fmt.Errorf("extract %s: %w", name, err)
	}
	return f.Close()
}
