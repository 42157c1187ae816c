package encoder

import (
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

func TestForFormat(t *testing.T) {
	assert.Equal(t, "jpg", ForFormat(core.FormatJPEG).Ext())
	assert.Equal(t, "png", ForFormat(core.FormatPNG).Ext())
	assert.Equal(t, "png", ForFormat(core.FormatWebP).Ext())
}

func TestExtract(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := &core.Result{Images: []*core.Image{
		{Index: 0, Format: core.FormatPNG, Pixels: image.NewNRGBA(image.Rect(0, 0, 3, 2))},
		nil,
		{Index: 2, Format: core.FormatJPEG, Pixels: image.NewRGBA(image.Rect(0, 0, 4, 4))},
	}}

	paths, err := Extract(context.Background(), dir, res)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "image_0.png"), filepath.Join(dir, "image_2.jpg")}, paths)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Width)

	g, err := os.Open(paths[1])
	require.NoError(t, err)
	defer g.Close()
	_, err = jpeg.DecodeConfig(g)
	assert.NoError(t, err)
}

func TestEncodeWithoutPixels(t *testing.T) {
	err := NewPNG().Encode(context.Background(), nil, &core.Image{Pixels: "vips handle"})
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
}
