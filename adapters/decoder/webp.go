package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// WebP decodes EXT_texture_webp images using golang.org/x/image/webp.
// Animated WebP is not supported; register the vips backend for that.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, "webp.decode", err)
	}
	img, err := webp.Decode(r)
	if err != nil {
		return nil, apperrors.New(apperrors.KindDecode, "webp.decode", err)
	}
	return newImage(img, core.FormatWebP), nil
}
