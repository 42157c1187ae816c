package utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// bufPool reuses byte buffers to reduce GC pressure.
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// AcquireBuffer returns a reset buffer from the pool.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool. Callers must not use b after this call.
func ReleaseBuffer(b *bytes.Buffer) {
	// Cap large buffers to avoid pinning excessive memory.
	if b.Cap() > 8*1024*1024 {
		return
	}
	bufPool.Put(b)
}

// ReadAll drains r into a freshly allocated slice, checking ctx between
// chunks. A positive limit fails the read once more than limit bytes arrive.
func ReadAll(ctx context.Context, r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = &LimitedReader{R: r, Max: limit}
	}
	buf := AcquireBuffer()
	defer ReleaseBuffer(buf)

	chunk := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return CloneBytes(buf.Bytes()), nil
}

// ErrLimitExceeded is returned by LimitedReader once its budget is spent.
var ErrLimitExceeded = errors.New("read limit exceeded")

// LimitedReader wraps R and fails with ErrLimitExceeded when more than Max
// bytes are available.
type LimitedReader struct {
	R   io.Reader
	Max int64
	n   int64
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Max <= 0 {
		return l.R.Read(p)
	}
	if l.n > l.Max {
		return 0, ErrLimitExceeded
	}
	// Read one byte past the budget so an exact-size input still ends in EOF.
	if remain := l.Max - l.n + 1; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := l.R.Read(p)
	l.n += int64(n)
	if l.n > l.Max {
		return n, ErrLimitExceeded
	}
	return n, err
}
