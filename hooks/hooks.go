// Package hooks provides Hook, Logger and MetricsCollector implementations
// for the importer.
package hooks

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

// NewTextLogger writes text records at or above level ("debug", "info",
// "warn", "error") to w.
func NewTextLogger(w io.Writer, level string) *SlogLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return NewSlogLogger(slog.New(h))
}

// ParseLevel maps a config log level to slog. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (s *SlogLogger) Debug(msg string, fields ...any) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...any)  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...any)  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...any) { s.log.Error(msg, fields...) }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline stage.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStage(_ context.Context, stage string, st *core.ImportState) {
	h.logger.Debug("import.stage.start",
		"import_id", st.ID,
		"stage", stage,
		"container", st.Container,
	)
}

func (h *LoggingHook) AfterStage(_ context.Context, stage string, st *core.ImportState, d time.Duration, err error) {
	if err != nil {
		kind, _ := apperrors.KindOf(err)
		h.logger.Error("import.stage.error",
			"import_id", st.ID,
			"stage", stage,
			"kind", kind,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("import.stage.done",
		"import_id", st.ID,
		"stage", stage,
		"duration_ms", d.Milliseconds(),
		"buffers", len(st.Buffers),
		"images", len(st.Images),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	stageDurationsMs map[string]int64 // cumulative ms per stage
	stageCalls       map[string]int64 // call count per stage
	stageErrors      map[string]int64
	failuresByKind   map[string]int64

	totalThroughputB int64
	imports          int64
	failures         int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		stageDurationsMs: make(map[string]int64),
		stageCalls:       make(map[string]int64),
		stageErrors:      make(map[string]int64),
		failuresByKind:   make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordStageTime(stage string, d time.Duration) {
	m.mu.Lock()
	m.stageDurationsMs[stage] += d.Milliseconds()
	m.stageCalls[stage]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalThroughputB, bytes)
}

func (m *InMemoryMetrics) RecordError(stage string, kind string) {
	m.mu.Lock()
	m.stageErrors[stage]++
	m.failuresByKind[kind]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordImport(_ time.Duration, err error) {
	atomic.AddInt64(&m.imports, 1)
	if err != nil {
		atomic.AddInt64(&m.failures, 1)
	}
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		StageDurationsMs: copyCounts(m.stageDurationsMs),
		StageCalls:       copyCounts(m.stageCalls),
		StageErrors:      copyCounts(m.stageErrors),
		FailuresByKind:   copyCounts(m.failuresByKind),
		TotalThroughputB: atomic.LoadInt64(&m.totalThroughputB),
		Imports:          atomic.LoadInt64(&m.imports),
		Failures:         atomic.LoadInt64(&m.failures),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	StageDurationsMs map[string]int64
	StageCalls       map[string]int64
	StageErrors      map[string]int64
	FailuresByKind   map[string]int64
	TotalThroughputB int64
	Imports          int64
	Failures         int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds pipeline events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeStage(context.Context, string, *core.ImportState) {}

func (h *MetricsHook) AfterStage(_ context.Context, stage string, st *core.ImportState, d time.Duration, err error) {
	h.collector.RecordStageTime(stage, d)
	if err != nil {
		kind, ok := apperrors.KindOf(err)
		if !ok {
			kind = "unknown"
		}
		h.collector.RecordError(stage, string(kind))
		return
	}
	if stage == "resolve" {
		var n int64
		for _, b := range st.Buffers {
			if !b.Embedded {
				n += int64(len(b.Data))
			}
		}
		for _, e := range st.Encoded {
			n += int64(len(e.Data))
		}
		h.collector.RecordThroughput(n)
	}
}
