package core

import (
	"context"
	"io"
	"time"
)

// Source supplies the bytes of an asset: the root document and every
// external resource it references by URI. Implementations live in
// adapters/source/.
type Source interface {
	// FetchRoot returns the bytes of the root .gltf or .glb file.
	FetchRoot(ctx context.Context) ([]byte, error)
	// FetchExternal returns the bytes a URI from the document refers to. It
	// must be safe for concurrent calls with distinct URIs.
	FetchExternal(ctx context.Context, uri string) ([]byte, error)
}

// Decoder converts encoded image bytes into an in-memory Image.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode reads from r and returns a decoded Image.
	Decode(ctx context.Context, r io.Reader) (*Image, error)
	// CanDecode reports whether this decoder handles the given format hint.
	CanDecode(format Format) bool
}

// MetricsCollector receives performance observations from the importer.
type MetricsCollector interface {
	RecordStageTime(stage string, d time.Duration)
	RecordThroughput(bytes int64)
	RecordError(stage string, kind string)
	RecordImport(d time.Duration, err error)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Registry maps Format values to Decoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	RegisterDecoder(format Format, d Decoder)
}

// Stage is one step of the import pipeline. Stages communicate only through
// the ImportState they are handed.
type Stage interface {
	Name() string
	Execute(ctx context.Context, st *ImportState) error
}

// Hook is an optional observer invoked around pipeline stages.
type Hook interface {
	BeforeStage(ctx context.Context, stage string, st *ImportState)
	AfterStage(ctx context.Context, stage string, st *ImportState, d time.Duration, err error)
}

// PipelineRunner is a minimal interface over pipeline.Pipeline so that core
// does not import the pipeline package.
type PipelineRunner interface {
	Run(ctx context.Context, st *ImportState, hooks ...Hook) (map[string]time.Duration, error)
}
