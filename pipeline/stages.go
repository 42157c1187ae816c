package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"runtime"

	"github.com/Masterminds/semver/v3"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/Skryldev/gltf-importer/config"
	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/gltf"
	"github.com/Skryldev/gltf-importer/utils"
	"github.com/Skryldev/gltf-importer/validation"
)

// SupportedExtensions lists the extensions the importer can honour when a
// document requires them. Whether each one may be used is up to the config.
var SupportedExtensions = []string{
	"EXT_texture_webp",
	"KHR_materials_emissive_strength",
	"KHR_materials_unlit",
	"KHR_mesh_quantization",
	"KHR_texture_transform",
}

// ── Parse ─────────────────────────────────────────────────────────────────────

// ParseStage deserializes the JSON document.
type ParseStage struct{}

func (s *ParseStage) Name() string { return "parse" }

func (s *ParseStage) Execute(_ context.Context, st *core.ImportState) error {
	// Later stages see the strict form, so the schema pass runs on the same
	// bytes the document was decoded from.
	if st.Config.Lenient {
		st.Raw = gltf.StripComments(st.Raw)
	}
	doc, err := gltf.Parse(st.Raw)
	if err != nil {
		return apperrors.New(apperrors.KindMalformedJSON, s.Name(), err)
	}
	st.Document = doc
	return nil
}

// ── Validate ──────────────────────────────────────────────────────────────────

// ValidateStage checks version and extension compatibility, then applies the
// configured validation strategy.
type ValidateStage struct{}

func (s *ValidateStage) Name() string { return "validate" }

var compatible = func() *semver.Constraints {
	c, err := semver.NewConstraint("2.x")
	if err != nil {
		panic(err)
	}
	return c
}()

func (s *ValidateStage) Execute(_ context.Context, st *core.ImportState) error {
	doc := st.Document
	if err := checkVersion(doc.Asset); err != nil {
		return err
	}
	if err := checkExtensions(doc.ExtensionsRequired, st.Config); err != nil {
		return err
	}

	var violations []validation.Violation
	switch st.Config.Validation {
	case config.Minimal:
		violations = validation.Minimal(doc)
	case config.Complete:
		violations = validation.Complete(doc, st.Raw)
	}
	if len(violations) > 0 {
		return apperrors.Validation(s.Name(), violations)
	}
	st.Root = gltf.NewRoot(doc)
	return nil
}

// checkVersion accepts any 2.x asset. minVersion is optional.
func checkVersion(asset gltf.Asset) error {
	versions := []string{asset.Version}
	if asset.MinVersion != "" {
		versions = append(versions, asset.MinVersion)
	}
	for _, v := range versions {
		ver, err := semver.NewVersion(v)
		if err != nil || !compatible.Check(ver) {
			return apperrors.New(apperrors.KindIncompatibleVersion, "validate", fmt.Errorf("asset version %q", v))
		}
	}
	return nil
}

func checkExtensions(required []string, cfg config.Config) error {
	for _, ext := range required {
		if !supported(ext) {
			return apperrors.New(apperrors.KindExtensionUnsupported, "validate", fmt.Errorf("%s", ext))
		}
		if !cfg.ExtensionEnabled(ext) {
			return apperrors.New(apperrors.KindExtensionDisabled, "validate", fmt.Errorf("%s", ext))
		}
	}
	return nil
}

func supported(ext string) bool {
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ── Resolve ───────────────────────────────────────────────────────────────────

// ResolveStage gathers the bytes of every buffer and every image: external
// URIs through the shared fetcher, the first URI-less buffer from the GLB
// binary chunk, and buffer-view images by reference.
type ResolveStage struct{}

func (s *ResolveStage) Name() string { return "resolve" }

func (s *ResolveStage) Execute(ctx context.Context, st *core.ImportState) error {
	doc := st.Document
	st.Buffers = make([]core.Resource, len(doc.Buffers))
	st.Encoded = make([]core.EncodedImage, len(doc.Images))

	// Plan everything first so no fetch starts for a document that cannot
	// be resolved.
	var violations []validation.Violation
	bad := func(p validation.Path, k validation.Kind, format string, args ...any) {
		violations = append(violations, validation.Violation{Path: p, Kind: k, Message: fmt.Sprintf(format, args...)})
	}

	type pending struct {
		sb  *core.SharedBytes
		dst func([]byte)
	}
	var fetches []pending

	for i, b := range doc.Buffers {
		p := validation.Path("buffers").Index(i)
		res := &st.Buffers[i]
		res.Index = i
		switch {
		case b.URI != "":
			res.URI = b.URI
			fetches = append(fetches, pending{st.Fetcher.Request(b.URI), func(d []byte) { res.Data = d }})
		case i == 0 && st.Bin != nil:
			res.Embedded = true
			res.Data = st.Bin
		default:
			bad(p.Field("uri"), validation.Missing, "buffer has no uri and no binary chunk backs it")
		}
	}

	for i, img := range doc.Images {
		p := validation.Path("images").Index(i)
		enc := &st.Encoded[i]
		enc.Index = i
		enc.Format = core.FormatFromMime(img.MimeType)
		switch {
		case img.URI != "" && img.BufferView != nil:
			bad(p, validation.Invalid, "uri and bufferView are mutually exclusive")
		case img.BufferView != nil:
			v := *img.BufferView
			if v < 0 || v >= len(doc.BufferViews) {
				bad(p.Field("bufferView"), validation.IndexOutOfBounds, "bufferView index %d, have %d", v, len(doc.BufferViews))
				continue
			}
			view := doc.BufferViews[v]
			if view.Buffer < 0 || view.Buffer >= len(doc.Buffers) {
				bad(validation.Path("bufferViews").Index(v).Field("buffer"), validation.IndexOutOfBounds,
					"buffer index %d, have %d", view.Buffer, len(doc.Buffers))
				continue
			}
			enc.Borrowed = true
			enc.View = v
			enc.Buffer = view.Buffer
			enc.Offset = view.ByteOffset
			enc.Length = view.ByteLength
		case img.URI != "":
			enc.URI = img.URI
			fetches = append(fetches, pending{st.Fetcher.Request(img.URI), func(d []byte) { enc.Data = d }})
		default:
			bad(p.Field("uri"), validation.Missing, "image needs a uri or a bufferView")
		}
	}

	if len(violations) > 0 {
		return apperrors.Validation(s.Name(), violations)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fetches {
		g.Go(func() error {
			data, err := f.sb.Wait(gctx)
			if err != nil {
				return apperrors.Unshare(err)
			}
			f.dst(data)
			return nil
		})
	}
	return g.Wait()
}

// ── Decode ────────────────────────────────────────────────────────────────────

// DecodeStage decodes every resolved image, in parallel up to
// Config.DecodeWorkers at a time.
type DecodeStage struct {
	// Resampler used when downscaling. Defaults to draw.BiLinear.
	Resampler xdraw.Interpolator
}

func (s *DecodeStage) Name() string { return "decode" }

func (s *DecodeStage) Execute(ctx context.Context, st *core.ImportState) error {
	st.Images = make([]*core.Image, len(st.Encoded))

	inputs := make([][]byte, len(st.Encoded))
	var violations []validation.Violation
	for i, enc := range st.Encoded {
		if !enc.Borrowed {
			inputs[i] = enc.Data
			continue
		}
		buf := st.Buffers[enc.Buffer].Data
		if enc.Offset < 0 || enc.Length < 0 || enc.Offset > len(buf) || enc.Length > len(buf)-enc.Offset {
			violations = append(violations, validation.Violation{
				Path:    validation.Path("bufferViews").Index(enc.View).Field("byteLength"),
				Kind:    validation.Invalid,
				Message: fmt.Sprintf("offset %d and length %d exceed buffer %d of %d bytes", enc.Offset, enc.Length, enc.Buffer, len(buf)),
			})
			continue
		}
		inputs[i] = buf[enc.Offset : enc.Offset+enc.Length]
	}
	if len(violations) > 0 {
		return apperrors.Validation(s.Name(), violations)
	}

	workers := st.Config.DecodeWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range st.Encoded {
		enc := st.Encoded[i]
		data := inputs[i]
		g.Go(func() error {
			img, err := s.decodeOne(gctx, st, enc, data)
			if err != nil {
				return err
			}
			st.Images[i] = img
			return nil
		})
	}
	return g.Wait()
}

func (s *DecodeStage) decodeOne(ctx context.Context, st *core.ImportState, enc core.EncodedImage, data []byte) (*core.Image, error) {
	op := fmt.Sprintf("%s image %d", s.Name(), enc.Index)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, op, err)
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.KindDecode, op, apperrors.ErrEmptyInput)
	}

	format := enc.Format
	if format == core.FormatUnknown {
		format = core.Format(utils.DetectFormat(data))
	}
	dec, ok := st.Registry.DecoderFor(format)
	if !ok {
		return nil, apperrors.New(apperrors.KindDecode, op, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}
	if err := checkDeclaredSize(format, data, st.Config.MaxImagePixels); err != nil {
		return nil, apperrors.New(apperrors.KindDecode, op, err)
	}
	img, err := dec.Decode(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecode, op, err)
	}

	img.Index = enc.Index
	img.URI = enc.URI
	img.Borrowed = enc.Borrowed
	img.Format = format
	img.Meta.SizeBytes = int64(len(data))

	if px, ok := img.Pixels.(image.Image); ok {
		s.postprocess(st.Config, img, px)
	}
	return img, nil
}

// checkDeclaredSize reads only the image header and rejects images that
// would need more than limit pixels. Headers that cannot be read are left
// for the decoder to report.
func checkDeclaredSize(format core.Format, data []byte, limit int64) error {
	if limit <= 0 {
		return nil
	}
	var decodeConfig func(io.Reader) (image.Config, error)
	switch format {
	case core.FormatJPEG:
		decodeConfig = jpeg.DecodeConfig
	case core.FormatPNG:
		decodeConfig = png.DecodeConfig
	case core.FormatWebP:
		decodeConfig = webp.DecodeConfig
	default:
		return nil
	}
	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > limit {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", apperrors.ErrResourceTooLarge, cfg.Width, cfg.Height, limit)
	}
	return nil
}

// postprocess applies the configured downscale and RGBA normalisation to
// pure Go pixel buffers.
func (s *DecodeStage) postprocess(cfg config.Config, img *core.Image, px image.Image) {
	b := px.Bounds()
	w, h := utils.FitWithin(b.Dx(), b.Dy(), cfg.MaxImageDimension)
	if w != b.Dx() || h != b.Dy() {
		sampler := s.Resampler
		if sampler == nil {
			sampler = xdraw.BiLinear
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		sampler.Scale(dst, dst.Bounds(), px, b, xdraw.Src, nil)
		px = dst
	} else if _, isRGBA := px.(*image.RGBA); cfg.NormalizeRGBA && !isRGBA {
		dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), px, b.Min, draw.Src)
		px = dst
	} else {
		return
	}
	img.Pixels = px
	img.Meta.Width = w
	img.Meta.Height = h
	img.Meta.ColorSpace = core.ColorSpaceRGBA
	img.Meta.HasAlpha = true
}

// ── Assemble ──────────────────────────────────────────────────────────────────

// AssembleStage packages the validated root and the decoded payloads.
type AssembleStage struct{}

func (s *AssembleStage) Name() string { return "assemble" }

func (s *AssembleStage) Execute(_ context.Context, st *core.ImportState) error {
	if st.Root == nil {
		st.Root = gltf.NewRoot(st.Document)
	}
	for i := range st.Buffers {
		st.Buffers[i].Digest = utils.Digest(st.Buffers[i].Data)
	}
	st.Result = &core.Result{
		Root:      st.Root,
		Container: st.Container,
		Buffers:   st.Buffers,
		Images:    st.Images,
	}
	return nil
}
