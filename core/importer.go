package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Skryldev/gltf-importer/config"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/glb"
)

// Importer is the central orchestrator. It is safe for concurrent use.
type Importer struct {
	cfg      config.Config
	registry Registry
	runner   PipelineRunner
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	// Worker pool.
	jobQueue chan Job
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once
	shutdown chan struct{}

	// Atomic counters for lightweight internal metrics.
	importedCount int64
	errorCount    int64
}

// New creates an Importer with the given config. Call Start() before
// submitting jobs; call Stop() when done.
func New(cfg config.Config, reg Registry, runner PipelineRunner) *Importer {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Importer{
		cfg:      cfg,
		registry: reg,
		runner:   runner,
		logger:   nopLogger{},
		jobQueue: make(chan Job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (imp *Importer) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	imp.logger = l
}

// SetMetrics attaches a metrics collector.
func (imp *Importer) SetMetrics(m MetricsCollector) { imp.metrics = m }

// AddHook registers a pipeline hook.
func (imp *Importer) AddHook(h Hook) { imp.hooks = append(imp.hooks, h) }

// Registry returns the underlying registry so callers can register
// decoders after construction.
func (imp *Importer) Registry() Registry { return imp.registry }

// Config returns the configuration every import starts from.
func (imp *Importer) Config() config.Config { return imp.cfg }

// Start launches the worker pool. It is idempotent.
func (imp *Importer) Start() {
	imp.once.Do(func() {
		workerCount := imp.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			imp.wg.Add(1)
			go imp.worker()
		}
	})
}

// Stop shuts down all workers. Jobs still queued are dropped.
func (imp *Importer) Stop() {
	imp.stopOnce.Do(func() { close(imp.shutdown) })
	imp.wg.Wait()
}

// Import is the synchronous API: it fetches the root of src, dispatches on
// the container format, and runs the pipeline to completion.
func (imp *Importer) Import(ctx context.Context, src Source) (*Result, error) {
	id := uuid.NewString()
	start := time.Now()
	imp.logger.Info("import.start", "import_id", id)

	res, err := imp.run(ctx, id, src)

	total := time.Since(start)
	if imp.metrics != nil {
		imp.metrics.RecordImport(total, err)
	}
	if err != nil {
		atomic.AddInt64(&imp.errorCount, 1)
		kind, _ := apperrors.KindOf(err)
		imp.logger.Warn("import.failed", "import_id", id, "kind", kind, "duration_ms", total.Milliseconds(), "error", err.Error())
		return nil, err
	}
	atomic.AddInt64(&imp.importedCount, 1)
	res.Duration = total
	imp.logger.Info("import.done",
		"import_id", id,
		"container", res.Container,
		"buffers", len(res.Buffers),
		"images", len(res.Images),
		"fetches", res.Fetches,
		"duration_ms", total.Milliseconds(),
	)
	return res, nil
}

func (imp *Importer) run(ctx context.Context, id string, src Source) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, "import", err)
	}

	root, err := fetchRoot(ctx, src)
	if err != nil {
		return nil, err
	}
	if limit := imp.cfg.MaxResourceBytes; limit > 0 && int64(len(root)) > limit {
		return nil, apperrors.New(apperrors.KindSource, "fetch.root",
			fmt.Errorf("%w: %d bytes exceeds limit of %d", apperrors.ErrResourceTooLarge, len(root), limit))
	}
	if imp.metrics != nil {
		imp.metrics.RecordThroughput(int64(len(root)))
	}

	// The fetch context dies with the import so an early failure abandons
	// every fetch still in flight.
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := &ImportState{
		ID:       id,
		Config:   imp.cfg,
		Registry: imp.registry,
		Fetcher:  NewFetcher(fctx, src).WithLimit(imp.cfg.MaxResourceBytes),
		Logger:   imp.logger,
	}
	if err := Dispatch(st, root); err != nil {
		return nil, err
	}

	timings, err := imp.runner.Run(fctx, st, imp.hooks...)
	if err != nil {
		return nil, err
	}
	if st.Result == nil {
		return nil, apperrors.New(apperrors.KindIo, "import", fmt.Errorf("pipeline produced no result"))
	}
	res := st.Result
	res.ID = id
	res.StageTimings = timings
	res.Fetches = st.Fetcher.Fetches()
	return res, nil
}

// Dispatch routes the root bytes: data starting with the binary glTF magic is
// split into its JSON and BIN chunks, anything else is taken as JSON.
func Dispatch(st *ImportState, data []byte) error {
	if !glb.IsBinary(data) {
		st.Container = ContainerGLTF
		st.Raw = data
		return nil
	}
	c, err := glb.Parse(data)
	if err != nil {
		return err
	}
	st.Container = ContainerGLB
	st.Raw = c.JSON
	st.Bin = c.Bin
	return nil
}

func fetchRoot(ctx context.Context, src Source) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, apperrors.New(apperrors.KindSource, "fetch.root", fmt.Errorf("source panic: %v", r))
		}
	}()
	data, err = src.FetchRoot(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindSource, "fetch.root", err)
	}
	return data, nil
}

// Submit enqueues an async job. Returns ErrWorkerPoolFull if the queue is full.
func (imp *Importer) Submit(job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	select {
	case imp.jobQueue <- job:
		return nil
	default:
		return apperrors.New(apperrors.KindIo, "submit", apperrors.ErrWorkerPoolFull)
	}
}

// Batch imports multiple sources concurrently (fan-out / fan-in). Results
// and errors are index-aligned with srcs.
func (imp *Importer) Batch(ctx context.Context, srcs []Source) ([]*Result, []error) {
	results := make([]*Result, len(srcs))
	errs := make([]error, len(srcs))
	var wg sync.WaitGroup

	for i, src := range srcs {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			results[idx], errs[idx] = imp.Import(ctx, s)
		}(i, src)
	}
	wg.Wait()
	return results, errs
}

// ── worker pool internals ──────────────────────────────────────────────────────

func (imp *Importer) worker() {
	defer imp.wg.Done()
	for {
		select {
		case <-imp.shutdown:
			return
		case job := <-imp.jobQueue:
			imp.processJob(job)
		}
	}
}

func (imp *Importer) processJob(job Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := imp.cfg.JobTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := imp.Import(ctx, job.Source)
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{JobID: job.ID, Result: result, Err: err}
	}
}

// ImportedCount returns the total number of successful imports.
func (imp *Importer) ImportedCount() int64 { return atomic.LoadInt64(&imp.importedCount) }

// ErrorCount returns the total number of failed imports.
func (imp *Importer) ErrorCount() int64 { return atomic.LoadInt64(&imp.errorCount) }

// Stats returns a snapshot of the import counters.
func (imp *Importer) Stats() Stats {
	return Stats{Imported: imp.ImportedCount(), Failed: imp.ErrorCount()}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
