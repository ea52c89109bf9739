package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize bounds the recorder queue when no size is given.
const DefaultQueueSize = 1000

const (
	recordTimeout   = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Recorder writes exchanges to a Repository on a background goroutine so
// request handlers never wait on the database. When the queue is full new
// exchanges are dropped.
type Recorder struct {
	repo   Repository
	queue  chan Exchange
	logger *slog.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
}

// NewRecorder starts a recorder draining into repo.
func NewRecorder(repo Repository, queueSize int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	r := &Recorder{
		repo:   repo,
		queue:  make(chan Exchange, queueSize),
		logger: logger,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record queues e without blocking.
func (r *Recorder) Record(e Exchange) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- e:
	default:
		n := r.dropped.Add(1)
		r.logger.Warn("Exchange queue full, dropping record",
			"kind", e.Kind,
			"queue_len", len(r.queue),
			"dropped_total", n,
		)
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.repo.RecordExchange(ctx, &e); err != nil {
			r.logger.Error("Failed to record exchange", "error", err, "kind", e.Kind)
		}
		cancel()
	}
}

// Dropped returns how many exchanges were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records and waits for queued ones to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	remaining := len(r.queue)
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Exchange recorder stopped", "flushed", remaining)
	case <-time.After(shutdownTimeout):
		r.logger.Warn("Exchange recorder shutdown timeout", "queue_remaining", len(r.queue))
	}
	return nil
}
