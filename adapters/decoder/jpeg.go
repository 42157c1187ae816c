package decoder

import (
	"context"
	"image/jpeg"
	"io"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// JPEG decodes JPEG images using the standard library.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, "jpeg.decode", err)
	}
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, apperrors.New(apperrors.KindDecode, "jpeg.decode", err)
	}
	return newImage(img, core.FormatJPEG), nil
}
