package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const asyncWorkers = 2

// Closer flushes buffered log records.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// queue is shared by an asyncHandler and every handler derived from it.
type queue struct {
	records chan queued
	wg      sync.WaitGroup
	dropped atomic.Int64
	once    sync.Once
}

type queued struct {
	h   slog.Handler
	rec slog.Record
}

// asyncHandler hands records to a fixed worker pool. When the queue is full
// the record is dropped and counted; Close reports the count through the
// wrapped handler so lost output is visible in the log itself.
type asyncHandler struct {
	inner slog.Handler
	q     *queue
}

func newAsyncHandler(inner slog.Handler, capacity, workers int) *asyncHandler {
	if capacity < 1 {
		capacity = 1
	}
	q := &queue{records: make(chan queued, capacity)}
	for range workers {
		q.wg.Add(1)
		go q.drain()
	}
	return &asyncHandler{inner: inner, q: q}
}

func (q *queue) drain() {
	defer q.wg.Done()
	for item := range q.records {
		_ = item.h.Handle(context.Background(), item.rec)
	}
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.q.records <- queued{h: h.inner, rec: rec.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// Dropped returns how many records were discarded because the queue was full.
func (h *asyncHandler) Dropped() int64 {
	return h.q.dropped.Load()
}

// Close drains the queue and stops the workers. It is safe to call twice.
func (h *asyncHandler) Close() {
	h.q.once.Do(func() {
		close(h.q.records)
		h.q.wg.Wait()
		if n := h.q.dropped.Load(); n > 0 {
			rec := slog.NewRecord(time.Now(), slog.LevelWarn, "log records dropped", 0)
			rec.AddAttrs(slog.Int64("count", n))
			_ = h.inner.Handle(context.Background(), rec)
		}
	})
}
