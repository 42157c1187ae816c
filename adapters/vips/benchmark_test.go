//go:build vips

package vips_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	gltfimporter "github.com/Skryldev/gltf-importer"
	"github.com/Skryldev/gltf-importer/adapters/vips"
	"github.com/Skryldev/gltf-importer/glb"
)

func makeJPEG(b *testing.B, w, h int) []byte {
	b.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92})
	return buf.Bytes()
}

// texturedGLB packs a single JPEG texture into a binary glTF.
func texturedGLB(b *testing.B, w, h int) []byte {
	b.Helper()
	tex := makeJPEG(b, w, h)
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %[1]d}],
		"bufferViews": [{"buffer": 0, "byteLength": %[1]d}],
		"images": [{"bufferView": 0, "mimeType": "image/jpeg"}],
		"textures": [{"source": 0}]
	}`, len(tex))
	return glb.Encode([]byte(doc), tex)
}

func importer(b *testing.B, maxDim int, withVips bool) (*gltfimporter.Importer, func()) {
	b.Helper()
	cfg := gltfimporter.DefaultConfig()
	cfg.MaxImageDimension = maxDim
	imp := gltfimporter.New(cfg)
	if !withVips {
		return imp, func() {}
	}
	backend := vips.NewBackend(vips.BackendConfig{MaxDimension: maxDim})
	vips.Register(imp.Registry(), backend)
	return imp, backend.Shutdown
}

func benchImport(b *testing.B, raw []byte, imp *gltfimporter.Importer) {
	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := imp.Import(context.Background(), gltfimporter.FromMemory(raw, nil)); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Decode ───────────────────────────────────────────────────────────────────

func BenchmarkImport_Stdlib_1920x1080(b *testing.B) {
	imp, done := importer(b, 0, false)
	defer done()
	benchImport(b, texturedGLB(b, 1920, 1080), imp)
}

func BenchmarkImport_Vips_1920x1080(b *testing.B) {
	imp, done := importer(b, 0, true)
	defer done()
	benchImport(b, texturedGLB(b, 1920, 1080), imp)
}

// ─── Downscale ────────────────────────────────────────────────────────────────

func BenchmarkDownscale_Stdlib_4Kto1024(b *testing.B) {
	imp, done := importer(b, 1024, false)
	defer done()
	benchImport(b, texturedGLB(b, 3840, 2160), imp)
}

func BenchmarkDownscale_Vips_4Kto1024(b *testing.B) {
	imp, done := importer(b, 1024, true)
	defer done()
	benchImport(b, texturedGLB(b, 3840, 2160), imp)
}

func TestVipsDecodesTexture(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 32)), nil); err != nil {
		t.Fatal(err)
	}
	backend := vips.NewBackend(vips.BackendConfig{MaxDimension: 16})
	defer backend.Shutdown()

	img, err := backend.Decode(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Meta.Width != 16 || img.Meta.Height != 8 {
		t.Fatalf("got %dx%d, want 16x8", img.Meta.Width, img.Meta.Height)
	}
	if _, ok := img.Pixels.(image.Image); !ok {
		t.Fatalf("pixels are %T", img.Pixels)
	}
}
