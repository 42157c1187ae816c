// Package gltfimporter imports glTF 2.0 assets (.gltf and .glb) into memory:
// the validated document together with its buffer bytes and decoded images.
package gltfimporter

import (
	"context"

	"github.com/Skryldev/gltf-importer/adapters/decoder"
	"github.com/Skryldev/gltf-importer/adapters/source"
	"github.com/Skryldev/gltf-importer/config"
	"github.com/Skryldev/gltf-importer/core"
	"github.com/Skryldev/gltf-importer/pipeline"
)

// Re-export the validation strategies for convenience.
const (
	Skip     = config.Skip
	Minimal  = config.Minimal
	Complete = config.Complete
)

// DefaultConfig returns the configuration used by FromPath and ImportPath.
func DefaultConfig() config.Config { return config.Default() }

// Importer is the primary entry point.
type Importer struct {
	inner    *core.Importer
	reg      *core.DefaultRegistry
	pipeline *pipeline.Pipeline
}

// New creates a fully wired Importer with the JPEG, PNG and WebP decoders
// registered and the standard parse, validate, resolve, decode and assemble
// pipeline.
func New(cfg config.Config) *Importer {
	reg := core.NewRegistry()
	decoder.Register(reg)
	pl := pipeline.Standard()
	return &Importer{inner: core.New(cfg, reg, pl), reg: reg, pipeline: pl}
}

// SetLogger attaches a structured logger.
func (i *Importer) SetLogger(l core.Logger) { i.inner.SetLogger(l) }

// SetMetrics attaches a metrics collector.
func (i *Importer) SetMetrics(m core.MetricsCollector) { i.inner.SetMetrics(m) }

// AddHook registers an observer for pipeline stage events.
func (i *Importer) AddHook(h core.Hook) { i.inner.AddHook(h) }

// RegisterDecoder registers a custom decoder for the given format.
func (i *Importer) RegisterDecoder(f core.Format, d core.Decoder) { i.reg.RegisterDecoder(f, d) }

// Registry returns the decoder registry.
func (i *Importer) Registry() core.Registry { return i.reg }

// Pipeline returns the stage pipeline so callers can append stages or hooks.
func (i *Importer) Pipeline() *pipeline.Pipeline { return i.pipeline }

// Start starts the background worker pool.
func (i *Importer) Start() { i.inner.Start() }

// Stop shuts down the worker pool.
func (i *Importer) Stop() { i.inner.Stop() }

// Import runs a complete import of src synchronously.
func (i *Importer) Import(ctx context.Context, src core.Source) (*core.Result, error) {
	return i.inner.Import(ctx, src)
}

// Task describes an import of src without starting it.
func (i *Importer) Task(src core.Source) *core.Task { return i.inner.NewTask(src) }

// Batch imports every source concurrently. results[k] and errs[k] belong to
// sources[k].
func (i *Importer) Batch(ctx context.Context, sources []core.Source) ([]*core.Result, []error) {
	return i.inner.Batch(ctx, sources)
}

// Submit enqueues an async job for the worker pool.
func (i *Importer) Submit(job core.Job) error { return i.inner.Submit(job) }

// Stats returns lightweight import statistics.
func (i *Importer) Stats() core.Stats { return i.inner.Stats() }

// Inner exposes the underlying core.Importer for advanced use.
func (i *Importer) Inner() *core.Importer { return i.inner }

// ── Entry points ──────────────────────────────────────────────────────────────

// Custom describes an import of src under cfg.
func Custom(src core.Source, cfg config.Config) *core.Task {
	return New(cfg).Task(src)
}

// FromPath describes an import of the .gltf or .glb file at path with the
// reference file system source and the default configuration.
func FromPath(path string) *core.Task {
	cfg := DefaultConfig()
	return Custom(FromPathSource(path).WithLimit(cfg.MaxResourceBytes), cfg)
}

// ImportPath imports the file at path and waits for the outcome.
func ImportPath(ctx context.Context, path string) (*core.Result, error) {
	return FromPath(path).Wait(ctx)
}

// ── Source constructors ───────────────────────────────────────────────────────

// FromPathSource returns the reference file system source.
func FromPathSource(path string) *source.Path { return source.NewPath(path) }

// FromMemory returns a source serving root and the relative files map.
func FromMemory(root []byte, files map[string][]byte) *source.Memory {
	return source.NewMemory(root, files)
}

// FromURL opens a source for an http(s), s3:// or gs:// location, or a local
// path, configured by cfg.
func FromURL(ctx context.Context, location string, cfg config.Config) (core.Source, error) {
	return source.Open(ctx, location, cfg)
}
