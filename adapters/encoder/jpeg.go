package encoder

import (
	"context"
	"image/jpeg"
	"io"

	"github.com/Skryldev/gltf-importer/core"
)

// JPEG encodes images to JPEG format.
type JPEG struct {
	Quality int
}

func NewJPEG(quality int) *JPEG {
	if quality <= 0 {
		quality = 85
	}
	return &JPEG{Quality: quality}
}

func (j *JPEG) Ext() string { return "jpg" }

func (j *JPEG) Encode(ctx context.Context, w io.Writer, img *core.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := pixels(img)
	if err != nil {
		return err
	}
	return jpeg.Encode(w, src, &jpeg.Options{Quality: j.Quality})
}
