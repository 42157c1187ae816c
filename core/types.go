package core

import (
	"context"
	"time"

	"github.com/Skryldev/gltf-importer/config"
	"github.com/Skryldev/gltf-importer/gltf"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// FormatFromMime maps an image MIME type to a Format.
func FormatFromMime(mime string) Format {
	switch mime {
	case gltf.MimeJPEG, "image/jpg":
		return FormatJPEG
	case gltf.MimePNG:
		return FormatPNG
	case gltf.MimeWebP:
		return FormatWebP
	}
	return FormatUnknown
}

// ColorSpace represents the image colour model.
type ColorSpace string

const (
	ColorSpaceRGB  ColorSpace = "rgb"
	ColorSpaceRGBA ColorSpace = "rgba"
	ColorSpaceCMYK ColorSpace = "cmyk"
	ColorSpaceGray ColorSpace = "gray"
)

// Metadata describes a decoded image.
type Metadata struct {
	Width      int
	Height     int
	Format     Format
	ColorSpace ColorSpace
	HasAlpha   bool
	SizeBytes  int64 // encoded size
}

// Container is the file format the root bytes were in.
type Container string

const (
	ContainerGLTF Container = "gltf"
	ContainerGLB  Container = "glb"
)

// ── Resources ─────────────────────────────────────────────────────────────────

// Resource is the resolved payload of one document buffer.
type Resource struct {
	Index    int
	URI      string // empty for the GLB binary chunk
	Embedded bool   // backed by the GLB binary chunk
	Data     []byte
	Digest   [32]byte // BLAKE3
}

// EncodedImage is an image whose bytes have been located but not decoded.
// Borrowed images point into a resolved buffer; owned images carry the bytes
// fetched from their own URI.
type EncodedImage struct {
	Index    int
	Borrowed bool

	// Borrowed images.
	View   int
	Buffer int
	Offset int
	Length int

	// Owned images.
	URI  string
	Data []byte

	// FormatUnknown means the codec is picked by sniffing the bytes.
	Format Format
}

// Image is a decoded image, in document order.
type Image struct {
	Index    int
	URI      string // empty for borrowed images
	Borrowed bool
	Format   Format

	// Pixels holds the decoded pixel buffer: an image.Image for the pure Go
	// decoders, or a backend handle for decoders such as libvips.
	Pixels any

	Meta Metadata
}

// Result is what a successful import hands back: the validated document with
// its buffer and image payloads alongside it.
type Result struct {
	ID        string
	Root      *gltf.Root
	Container Container
	Buffers   []Resource
	Images    []*Image

	// Observability.
	Duration     time.Duration
	StageTimings map[string]time.Duration
	Fetches      int64 // external fetches issued
}

// ImportState is the mutable record the pipeline stages pass along. It lives
// for exactly one import.
type ImportState struct {
	ID        string
	Config    config.Config
	Registry  Registry
	Fetcher   *Fetcher
	Logger    Logger
	Container Container

	Raw []byte // JSON document bytes
	Bin []byte // GLB binary chunk, nil when absent

	Document *gltf.Document
	Root     *gltf.Root

	// Buffers[i] holds the bytes of document buffer i once resolved.
	Buffers []Resource
	Encoded []EncodedImage
	Images  []*Image

	Result *Result
}

// ── Jobs ──────────────────────────────────────────────────────────────────────

// Job encapsulates a single import for the worker pool.
type Job struct {
	ID     string
	Ctx    context.Context //nolint:containedctx // intentional for async jobs
	Source Source
	// Result channel; nil for fire-and-forget.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	JobID  string
	Result *Result
	Err    error
}

// Stats is a snapshot of the importer's counters.
type Stats struct {
	Imported int64
	Failed   int64
}
