// Package queue implements the bounded worker pool behind asynchronous
// payload intake. Backpressure is explicit: a full queue rejects rather
// than buffering without limit.
package queue

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"voicelens/normalize"
)

// Handler runs one payload through the normalization pipeline. Bound once at
// construction; every worker calls the same handler.
type Handler func(ctx context.Context, req normalize.Request) error

// Job is one queued vendor payload awaiting normalization.
type Job struct {
	ID      string
	Request normalize.Request
}

// VendorStats counts processing outcomes for a single vendor.
type VendorStats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int                    `json:"length"`
	Capacity    int                    `json:"capacity"`
	WorkerCount int                    `json:"worker_count"`
	Processed   uint64                 `json:"processed"`
	Failed      uint64                 `json:"failed"`
	ByVendor    map[string]VendorStats `json:"by_vendor"`
}

// Queue is a bounded payload queue with a fixed worker pool and a per-job
// timeout.
type Queue struct {
	jobs        chan Job
	handler     Handler
	workerCount int
	timeout     time.Duration
	started     bool
	mu          sync.RWMutex
	wg          sync.WaitGroup
	processed   uint64
	failed      uint64
	vendorMu    sync.Mutex
	byVendor    map[string]*VendorStats
}

// New creates a Queue delivering every job to handler.
func New(capacity, workerCount int, timeout time.Duration, handler Handler) *Queue {
	return &Queue{
		jobs:        make(chan Job, capacity),
		handler:     handler,
		workerCount: workerCount,
		timeout:     timeout,
		byVendor:    make(map[string]*VendorStats),
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue attempts to queue a job without blocking. Returns false if queue is full or not started.
func (q *Queue) Enqueue(j Job) bool {
	return q.tryEnqueue(j, true)
}

// EnqueueWithRetry attempts to queue a job with a bounded retry window, for
// intake paths that can afford to wait out a short burst. Returns (enqueued,
// droppedFull).
func (q *Queue) EnqueueWithRetry(ctx context.Context, j Job, window time.Duration, interval time.Duration) (bool, bool) {
	deadline := time.Now().Add(window)
	attempt := func() bool {
		return q.tryEnqueue(j, false)
	}
	if attempt() {
		return true, false
	}
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false, false
		case <-time.After(interval):
			if attempt() {
				return true, false
			}
		}
	}
	return false, true
}

func (q *Queue) tryEnqueue(j Job, logDrop bool) bool {
	q.mu.RLock()
	started := q.started
	q.mu.RUnlock()
	if !started {
		if logDrop {
			log.Printf("enqueue called before queue started for job %s", j.ID)
		}
		return false
	}
	select {
	case q.jobs <- j:
		return true
	default:
		if logDrop {
			log.Printf("job queue full, dropping job %s vendor=%s", j.ID, j.Request.Vendor)
		}
		return false
	}
}

// Stop stops accepting new jobs and waits for workers to drain until context is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	if q.jobs != nil {
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current queue metrics including per-vendor outcome counts.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	length := 0
	if q.jobs != nil {
		length = len(q.jobs)
	}
	capacity := cap(q.jobs)
	workers := q.workerCount
	q.mu.RUnlock()

	q.vendorMu.Lock()
	byVendor := make(map[string]VendorStats, len(q.byVendor))
	for vendor, vs := range q.byVendor {
		byVendor[vendor] = *vs
	}
	q.vendorMu.Unlock()

	return Stats{
		Length:      length,
		Capacity:    capacity,
		WorkerCount: workers,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
		ByVendor:    byVendor,
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			q.handleJob(ctx, j)
		}
	}
}

func (q *Queue) handleJob(ctx context.Context, j Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("job %s panic recovered: %v", j.ID, r)
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
	err := q.handler(jobCtx, j.Request)
	cancel()
	atomic.AddUint64(&q.processed, 1)
	if err != nil {
		atomic.AddUint64(&q.failed, 1)
	}
	q.countVendor(j.Request.Vendor, err)
	status := "success"
	if err != nil {
		status = err.Error()
	}
	log.Printf("vendor=%s job=%s duration_ms=%d status=%s", j.Request.Vendor, j.ID, time.Since(start).Milliseconds(), status)
}

func (q *Queue) countVendor(vendor string, err error) {
	q.vendorMu.Lock()
	defer q.vendorMu.Unlock()
	vs, ok := q.byVendor[vendor]
	if !ok {
		vs = &VendorStats{}
		q.byVendor[vendor] = vs
	}
	vs.Processed++
	if err != nil {
		vs.Failed++
	}
}

// Healthy returns true if the queue has been started.
func (q *Queue) Healthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.started
}
