package decoder

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestPNGDecode(t *testing.T) {
	img, err := NewPNG().Decode(context.Background(), bytes.NewReader(encodePNG(t, 3, 2)))
	require.NoError(t, err)
	assert.Equal(t, core.FormatPNG, img.Format)
	assert.Equal(t, 3, img.Meta.Width)
	assert.Equal(t, 2, img.Meta.Height)
	assert.True(t, img.Meta.HasAlpha)
	assert.Equal(t, core.ColorSpaceRGBA, img.Meta.ColorSpace)
	_, ok := img.Pixels.(image.Image)
	assert.True(t, ok)
}

func TestJPEGDecode(t *testing.T) {
	img, err := NewJPEG().Decode(context.Background(), bytes.NewReader(encodeJPEG(t, 8, 4)))
	require.NoError(t, err)
	assert.Equal(t, core.FormatJPEG, img.Format)
	assert.Equal(t, 8, img.Meta.Width)
	assert.False(t, img.Meta.HasAlpha)
}

func TestDecodeGarbageIsDecodeError(t *testing.T) {
	garbage := []byte("definitely not pixels")
	for name, dec := range map[string]core.Decoder{"jpeg": NewJPEG(), "png": NewPNG(), "webp": NewWebP()} {
		_, err := dec.Decode(context.Background(), bytes.NewReader(garbage))
		require.Error(t, err, name)
		assert.True(t, apperrors.IsKind(err, apperrors.KindDecode), "%s: %v", name, err)
	}
}

func TestDecodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPNG().Decode(ctx, bytes.NewReader(encodePNG(t, 1, 1)))
	assert.True(t, apperrors.IsKind(err, apperrors.KindIo))
}

func TestRegister(t *testing.T) {
	reg := core.NewRegistry()
	Register(reg)
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatWebP} {
		d, ok := reg.DecoderFor(f)
		require.True(t, ok, f)
		assert.True(t, d.CanDecode(f))
	}
	_, ok := reg.DecoderFor(core.FormatUnknown)
	assert.False(t, ok)
}
