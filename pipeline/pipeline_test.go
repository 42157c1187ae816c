package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"testing"
	"time"

	"github.com/Skryldev/gltf-importer/adapters/decoder"
	"github.com/Skryldev/gltf-importer/config"
	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/gltf"
	"github.com/Skryldev/gltf-importer/validation"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type filesSource map[string][]byte

func (f filesSource) FetchRoot(context.Context) ([]byte, error) { return nil, errors.New("unused") }
func (f filesSource) FetchExternal(_ context.Context, uri string) ([]byte, error) {
	if d, ok := f[uri]; ok {
		return d, nil
	}
	return nil, apperrors.ErrNotFound
}

func newState(t *testing.T, raw string, cfg config.Config, files filesSource) *core.ImportState {
	t.Helper()
	reg := core.NewRegistry()
	decoder.Register(reg)
	return &core.ImportState{
		ID:        "test",
		Config:    cfg,
		Registry:  reg,
		Fetcher:   core.NewFetcher(context.Background(), files),
		Container: core.ContainerGLTF,
		Raw:       []byte(raw),
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func kindOf(t *testing.T, err error) apperrors.Kind {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	k, _ := apperrors.KindOf(err)
	return k
}

// ── Pipeline ──────────────────────────────────────────────────────────────────

type recordingHook struct{ events []string }

func (h *recordingHook) BeforeStage(_ context.Context, stage string, _ *core.ImportState) {
	h.events = append(h.events, "before:"+stage)
}

func (h *recordingHook) AfterStage(_ context.Context, stage string, _ *core.ImportState, _ time.Duration, err error) {
	if err != nil {
		stage += "!"
	}
	h.events = append(h.events, "after:"+stage)
}

type funcStage struct {
	name string
	fn   func(*core.ImportState) error
}

func (s funcStage) Name() string                                          { return s.name }
func (s funcStage) Execute(_ context.Context, st *core.ImportState) error { return s.fn(st) }

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	hook := &recordingHook{}
	boom := errors.New("boom")
	ran := false
	p := New().
		Use(funcStage{"a", func(*core.ImportState) error { return nil }}).
		Use(funcStage{"b", func(*core.ImportState) error { return boom }}).
		Use(funcStage{"c", func(*core.ImportState) error { ran = true; return nil }}).
		AddHook(hook)

	timings, err := p.Run(context.Background(), &core.ImportState{})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if ran {
		t.Error("stage after the failure ran")
	}
	if _, ok := timings["b"]; !ok {
		t.Error("failing stage must still be timed")
	}
	want := []string{"before:a", "after:a", "before:b", "after:b!"}
	if len(hook.events) != len(want) {
		t.Fatalf("events: %v", hook.events)
	}
	for i := range want {
		if hook.events[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, hook.events[i], want[i])
		}
	}
}

func TestPipeline_CancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New().
		Use(funcStage{"a", func(*core.ImportState) error { cancel(); return nil }}).
		Use(funcStage{"b", func(*core.ImportState) error { return nil }})

	_, err := p.Run(ctx, &core.ImportState{})
	if kindOf(t, err) != apperrors.KindIo {
		t.Fatalf("got %v", err)
	}
}

func TestPipeline_CloneIsIndependent(t *testing.T) {
	base := Standard()
	cp := base.Clone().Use(funcStage{"extra", nil})
	if len(base.Stages()) != 5 || len(cp.Stages()) != 6 {
		t.Errorf("stages: %v / %v", base.Stages(), cp.Stages())
	}
	want := []string{"parse", "validate", "resolve", "decode", "assemble"}
	for i, name := range base.Stages() {
		if name != want[i] {
			t.Errorf("stage %d: got %s, want %s", i, name, want[i])
		}
	}
}

// ── Validate ──────────────────────────────────────────────────────────────────

func TestValidate_VersionAndExtensionsBeforeStrategy(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want apperrors.Kind
	}{
		{"version 3", `{"asset":{"version":"3.0"},"scene":7}`, apperrors.KindIncompatibleVersion},
		{"bad min version", `{"asset":{"version":"2.0","minVersion":"two"}}`, apperrors.KindIncompatibleVersion},
		{"unsupported", `{"asset":{"version":"2.0"},"extensionsRequired":["EXT_meshopt_compression"],"scene":7}`, apperrors.KindExtensionUnsupported},
		{"disabled", `{"asset":{"version":"2.0"},"extensionsRequired":["KHR_mesh_quantization"],"scene":7}`, apperrors.KindExtensionDisabled},
		{"violations", `{"asset":{"version":"2.0"},"scene":7}`, apperrors.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newState(t, tc.doc, config.Default(), nil)
			if err := (&ParseStage{}).Execute(context.Background(), st); err != nil {
				t.Fatal(err)
			}
			err := (&ValidateStage{}).Execute(context.Background(), st)
			if got := kindOf(t, err); got != tc.want {
				t.Errorf("got %s (%v), want %s", got, err, tc.want)
			}
			if st.Root != nil {
				t.Error("no root may be produced for a rejected document")
			}
		})
	}
}

func TestValidate_AcceptsMinorVersions(t *testing.T) {
	st := newState(t, `{"asset":{"version":"2.1","minVersion":"2.0"}}`, config.Default(), nil)
	if err := (&ParseStage{}).Execute(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if err := (&ValidateStage{}).Execute(context.Background(), st); err != nil {
		t.Fatalf("2.1 should be accepted: %v", err)
	}
	if st.Root == nil || st.Root.Document() != st.Document {
		t.Error("root not set")
	}
}

// ── Resolve ───────────────────────────────────────────────────────────────────

func TestResolve_PlansBeforeFetching(t *testing.T) {
	doc := `{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "a.bin", "byteLength": 1}, {"byteLength": 1}],
		"images": [{"uri": "x.png"}]
	}`
	cfg := config.Default()
	cfg.Validation = config.Skip
	st := newState(t, doc, cfg, filesSource{"a.bin": {1}, "x.png": {2}})
	if err := (&ParseStage{}).Execute(context.Background(), st); err != nil {
		t.Fatal(err)
	}

	err := (&ResolveStage{}).Execute(context.Background(), st)
	if kindOf(t, err) != apperrors.KindValidation {
		t.Fatalf("got %v", err)
	}
	v := apperrors.ViolationsOf(err)
	if len(v) != 1 || v[0].Path != "buffers[1].uri" || v[0].Kind != validation.Missing {
		t.Errorf("violations: %v", v)
	}
	if st.Fetcher.Fetches() != 0 {
		t.Errorf("%d fetches issued for an unresolvable document", st.Fetcher.Fetches())
	}
}

func TestResolve_BinChunkBacksFirstBuffer(t *testing.T) {
	doc := `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4},{"uri":"b.bin","byteLength":2}]}`
	st := newState(t, doc, config.Default(), filesSource{"b.bin": {5, 6}})
	st.Container = core.ContainerGLB
	st.Bin = []byte{1, 2, 3, 4}
	if err := (&ParseStage{}).Execute(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if err := (&ResolveStage{}).Execute(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if !st.Buffers[0].Embedded || !bytes.Equal(st.Buffers[0].Data, st.Bin) {
		t.Error("buffer 0 should be the binary chunk")
	}
	if st.Buffers[1].Embedded || !bytes.Equal(st.Buffers[1].Data, []byte{5, 6}) {
		t.Errorf("buffer 1: %+v", st.Buffers[1])
	}
}

// ── Decode ────────────────────────────────────────────────────────────────────

func TestDecode_OutOfRangeView(t *testing.T) {
	st := newState(t, "", config.Default(), nil)
	st.Buffers = []core.Resource{{Data: make([]byte, 8)}}
	st.Encoded = []core.EncodedImage{{Borrowed: true, View: 2, Buffer: 0, Offset: 4, Length: 16, Format: core.FormatPNG}}

	err := (&DecodeStage{}).Execute(context.Background(), st)
	v := apperrors.ViolationsOf(err)
	if len(v) != 1 || v[0].Path != "bufferViews[2].byteLength" {
		t.Fatalf("got %v", err)
	}
}

func TestDecode_ViewRangeOverflow(t *testing.T) {
	st := newState(t, "", config.Default(), nil)
	st.Buffers = []core.Resource{{Data: make([]byte, 4)}}
	st.Encoded = []core.EncodedImage{{Borrowed: true, Buffer: 0, Offset: math.MaxInt, Length: 2, Format: core.FormatPNG}}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("decode panicked: %v", r)
			}
		}()
		err = (&DecodeStage{}).Execute(context.Background(), st)
	}()
	if kindOf(t, err) != apperrors.KindValidation {
		t.Fatalf("got %v", err)
	}
}

func TestDecode_SniffsUnknownFormat(t *testing.T) {
	cfg := config.Default()
	cfg.NormalizeRGBA = true
	st := newState(t, "", cfg, nil)
	st.Encoded = []core.EncodedImage{{Index: 0, URI: "x", Data: encodePNG(t, 3, 2), Format: core.FormatUnknown}}

	if err := (&DecodeStage{}).Execute(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	img := st.Images[0]
	if img.Format != core.FormatPNG || img.URI != "x" {
		t.Errorf("image: %+v", img)
	}
	rgba, ok := img.Pixels.(*image.RGBA)
	if !ok {
		t.Fatalf("pixels: %T", img.Pixels)
	}
	if c := rgba.RGBAAt(1, 1); c != (color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}) {
		t.Errorf("pixel: %v", c)
	}
}

type recordingDecoder struct{ calls int }

func (d *recordingDecoder) CanDecode(core.Format) bool { return true }
func (d *recordingDecoder) Decode(context.Context, io.Reader) (*core.Image, error) {
	d.calls++
	return &core.Image{}, nil
}

func TestDecode_DeclaredSizeCheckedBeforeDecoding(t *testing.T) {
	cfg := config.Default()
	cfg.MaxImagePixels = 16
	st := newState(t, "", cfg, nil)
	dec := &recordingDecoder{}
	st.Registry.RegisterDecoder(core.FormatPNG, dec)
	st.Encoded = []core.EncodedImage{{Data: encodePNG(t, 8, 8), Format: core.FormatPNG}}

	err := (&DecodeStage{}).Execute(context.Background(), st)
	if kindOf(t, err) != apperrors.KindDecode || !errors.Is(err, apperrors.ErrResourceTooLarge) {
		t.Fatalf("got %v, want a too large decode error", err)
	}
	if dec.calls != 0 {
		t.Error("the decoder ran for an image over the pixel budget")
	}

	st.Encoded = []core.EncodedImage{{Data: encodePNG(t, 4, 4), Format: core.FormatPNG}}
	if err := (&DecodeStage{}).Execute(context.Background(), st); err != nil {
		t.Fatalf("image at the budget: %v", err)
	}
	if dec.calls != 1 {
		t.Errorf("decoder calls: got %d, want 1", dec.calls)
	}
}

func TestParse_LenientKeepsStrictBytes(t *testing.T) {
	cfg := config.Default()
	cfg.Lenient = true
	st := newState(t, "{\"asset\": {\"version\": \"2.0\",}, // note\n}", cfg, nil)
	if err := (&ParseStage{}).Execute(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(st.Raw, []byte("//")) || bytes.Contains(st.Raw, []byte(",}")) {
		t.Errorf("raw still carries lenient syntax: %q", st.Raw)
	}
}

func TestDecode_Failures(t *testing.T) {
	cases := []struct {
		name string
		enc  core.EncodedImage
		want error
	}{
		{"empty", core.EncodedImage{Format: core.FormatPNG}, apperrors.ErrEmptyInput},
		{"unknown codec", core.EncodedImage{Data: []byte("GIF89a...."), Format: core.FormatUnknown}, apperrors.ErrUnsupportedFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newState(t, "", config.Default(), nil)
			st.Encoded = []core.EncodedImage{tc.enc}
			err := (&DecodeStage{}).Execute(context.Background(), st)
			if kindOf(t, err) != apperrors.KindDecode || !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

// ── Assemble ──────────────────────────────────────────────────────────────────

func TestAssemble_DigestsAndRoot(t *testing.T) {
	st := newState(t, `{"asset":{"version":"2.0"}}`, config.Default(), nil)
	st.Document = &gltf.Document{Asset: gltf.Asset{Version: "2.0"}}
	st.Buffers = []core.Resource{{Data: []byte("abc")}}

	if err := (&AssembleStage{}).Execute(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	if st.Result.Root == nil || st.Result.Container != core.ContainerGLTF {
		t.Errorf("result: %+v", st.Result)
	}
	if st.Result.Buffers[0].Digest == [32]byte{} {
		t.Error("digest missing")
	}
}
