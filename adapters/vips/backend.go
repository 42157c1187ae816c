//go:build vips

// Package vips provides a libvips-backed image decoder. Build with -tags vips
// and a system libvips to enable it.
package vips

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	// MaxDimension shrinks larger textures while they load. 0 = unlimited.
	MaxDimension int
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Backend decodes JPEG, PNG and WebP textures with libvips. The decoded
// pixels are exported to an image.Image so the rest of the importer treats
// them like any other decoder's output. Safe for concurrent use.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

func (b *Backend) CanDecode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP:
		return true
	}
	return false
}

func (b *Backend) Decode(ctx context.Context, r io.Reader) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, "vips.decode", err)
	}
	raw, err := readAll(ctx, r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecode, "vips.decode", err)
	}

	ref, err := b.load(raw)
	if err != nil {
		return nil, apperrors.New(apperrors.KindDecode, "vips.decode", err)
	}
	defer ref.Close()

	format := formatOf(ref.Format())
	px, err := ref.ToImage(nil)
	if err != nil {
		return nil, apperrors.New(apperrors.KindDecode, "vips.decode.export", err)
	}
	return &core.Image{
		Format: format,
		Pixels: px,
		Meta: core.Metadata{
			Width:      ref.Width(),
			Height:     ref.Height(),
			Format:     format,
			ColorSpace: colorSpaceOf(ref.Interpretation(), ref.HasAlpha()),
			HasAlpha:   ref.HasAlpha(),
			SizeBytes:  int64(len(raw)),
		},
	}, nil
}

// load uses shrink-on-load when MaxDimension is set, so an oversized texture
// never occupies its full bitmap.
func (b *Backend) load(raw []byte) (*govips.ImageRef, error) {
	if b.cfg.MaxDimension <= 0 {
		return govips.NewImageFromBuffer(raw)
	}
	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, err
	}
	if ref.Width() <= b.cfg.MaxDimension && ref.Height() <= b.cfg.MaxDimension {
		return ref, nil
	}
	ref.Close()
	w, h := utils.FitWithin(ref.Width(), ref.Height(), b.cfg.MaxDimension)
	return govips.NewThumbnailFromBuffer(raw, w, h, govips.InterestingNone)
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if br, ok := r.(*bytes.Reader); ok {
		raw := make([]byte, br.Len())
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	raw, err := utils.ReadAll(ctx, r, 0)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("vips: %w", apperrors.ErrEmptyInput)
	}
	return raw, nil
}

// Register replaces the pure Go decoders with libvips for all formats.
func Register(reg core.Registry, b *Backend) {
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatWebP} {
		reg.RegisterDecoder(f, b)
	}
}

func formatOf(f govips.ImageType) core.Format {
	switch f {
	case govips.ImageTypeJPEG:
		return core.FormatJPEG
	case govips.ImageTypePNG:
		return core.FormatPNG
	case govips.ImageTypeWEBP:
		return core.FormatWebP
	default:
		return core.FormatUnknown
	}
}

func colorSpaceOf(i govips.Interpretation, alpha bool) core.ColorSpace {
	switch i {
	case govips.InterpretationBW, govips.InterpretationGrey16:
		return core.ColorSpaceGray
	case govips.InterpretationCMYK:
		return core.ColorSpaceCMYK
	}
	if alpha {
		return core.ColorSpaceRGBA
	}
	return core.ColorSpaceRGB
}

var _ core.Decoder = (*Backend)(nil)
