package decoder

import (
	"context"
	"image/png"
	"io"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// PNG decodes PNG images using the standard library.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(format core.Format) bool {
	return format == core.FormatPNG
}

func (p *PNG) Decode(ctx context.Context, r io.Reader) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, "png.decode", err)
	}
	img, err := png.Decode(r)
	if err != nil {
		return nil, apperrors.New(apperrors.KindDecode, "png.decode", err)
	}
	return newImage(img, core.FormatPNG), nil
}
