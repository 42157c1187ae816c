package core

import (
	"context"
	"sync"

	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Task is a described but not yet started import. It runs at most once; the
// outcome is computed a single time and replayed to every caller.
type Task struct {
	imp *Importer
	src Source

	once sync.Once
	done chan struct{}
	res  *Result
	err  error

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

// NewTask describes an import of src without doing any work.
func (imp *Importer) NewTask(src Source) *Task {
	return &Task{imp: imp, src: src, done: make(chan struct{})}
}

// Start launches the import in the background under ctx. Further calls are
// no-ops.
func (t *Task) Start(ctx context.Context) {
	t.once.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		t.mu.Lock()
		t.cancel = cancel
		if t.cancelled {
			cancel()
		}
		t.mu.Unlock()

		go func() {
			defer cancel()
			res, err := t.imp.Import(ctx, t.src)
			t.res, t.err = res, err
			close(t.done)
		}()
	})
}

// Poll starts the task if needed and reports its outcome without blocking.
// ready is false while the import is still running.
func (t *Task) Poll() (res *Result, ready bool, err error) {
	t.Start(context.Background())
	select {
	case <-t.done:
		return t.res, true, t.err
	default:
		return nil, false, nil
	}
}

// Done is closed once the outcome is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait starts the task if needed and blocks until it completes or ctx is
// done. When Wait is what started the task, ctx also bounds the import.
func (t *Task) Wait(ctx context.Context) (*Result, error) {
	t.Start(ctx)
	select {
	case <-t.done:
		return t.res, t.err
	case <-ctx.Done():
		return nil, apperrors.New(apperrors.KindIo, "task.wait", ctx.Err())
	}
}

// Cancel abandons the import and every fetch still pending. A task cancelled
// before it starts fails as soon as it is started.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if t.cancel != nil {
		t.cancel()
	}
}
