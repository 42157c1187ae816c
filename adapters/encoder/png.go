package encoder

import (
	"context"
	"image/png"
	"io"

	"github.com/Skryldev/gltf-importer/core"
)

// PNG encodes images to PNG format.
type PNG struct {
	Compression png.CompressionLevel
}

func NewPNG() *PNG { return &PNG{Compression: png.DefaultCompression} }

func (p *PNG) Ext() string { return "png" }

func (p *PNG) Encode(ctx context.Context, w io.Writer, img *core.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := pixels(img)
	if err != nil {
		return err
	}
	enc := &png.Encoder{CompressionLevel: p.Compression}
	return enc.Encode(w, src)
}
