// Package syncqueue runs the background jobs that mirror repository
// mutations into the secondary search index. It supports priority ordering
// (interactive before background), same-slug deduplication, and graceful
// shutdown with in-flight job completion. Jobs are fire-and-forget from
// the repository's point of view: failures are logged, never surfaced to
// the caller, and never retried here.
package syncqueue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lecternapp/lectern/cms"
)

// ErrQueueClosed is returned when Submit is called on a closed queue.
var ErrQueueClosed = errors.New("sync queue is closed")

// Tier represents the priority tier of a sync job.
type Tier int

const (
	// TierInteractive is for jobs scheduled by user-facing mutations.
	TierInteractive Tier = iota
	// TierBackground is for bulk work such as startup index rebuilds.
	TierBackground
)

// Op is the kind of mutation being mirrored.
type Op int

const (
	OpUpsert Op = iota
	OpDelete
)

// Job mirrors one repository mutation into the secondary index.
type Job struct {
	Slug        string        // Unique identifier for deduplication
	Op          Op            // Upsert or delete
	Doc         *cms.Document // Set for upserts, nil for deletes
	Tier        Tier          // Priority tier
	SubmittedAt time.Time     // For FIFO ordering within tier
	heapIndex   int           // Internal index for heap operations
}

// Result contains the outcome of a sync job.
type Result struct {
	Err error
}

// ApplyFunc applies one job to the secondary index.
type ApplyFunc func(Job) error

// Queue manages a pool of workers that apply sync jobs in priority order.
type Queue struct {
	apply       ApplyFunc
	mu          sync.Mutex
	heap        *jobHeap
	slugJobs    map[string]*Job          // dedup by slug
	waiters     map[string][]chan Result // notification channels by slug
	jobReady    chan struct{}            // buffered(1), signals workers
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
	workerCount int
}

// New creates a sync queue with the specified number of workers.
func New(workerCount int, apply ApplyFunc) *Queue {
	if workerCount < 1 {
		workerCount = 1
	}

	q := &Queue{
		apply:       apply,
		heap:        &jobHeap{},
		slugJobs:    make(map[string]*Job),
		waiters:     make(map[string][]chan Result),
		jobReady:    make(chan struct{}, 1),
		closeCh:     make(chan struct{}),
		workerCount: workerCount,
	}

	heap.Init(q.heap)

	q.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go q.worker()
	}

	return q
}

// Submit adds a job to the queue. If a job for the same slug is already
// queued, the existing job is updated with the new op and document but
// keeps its queue position; only its newest state ever reaches the index.
// The waiter channel (if non-nil) receives the result when the job
// completes.
//
// Returns ErrQueueClosed if the queue has been shut down.
func (q *Queue) Submit(job Job, waitCh chan Result) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	if existing, ok := q.slugJobs[job.Slug]; ok {
		// Update in place; original SubmittedAt preserves FIFO position.
		existing.Op = job.Op
		existing.Doc = job.Doc

		// If the new job has higher priority (lower tier), fix the heap.
		if job.Tier < existing.Tier {
			existing.Tier = job.Tier
			q.heap.Fix(existing.heapIndex)
		}
	} else {
		jobCopy := job
		q.slugJobs[job.Slug] = &jobCopy
		heap.Push(q.heap, &jobCopy)
	}

	if waitCh != nil {
		q.waiters[job.Slug] = append(q.waiters[job.Slug], waitCh)
	}

	// Signal that a job is ready (non-blocking since channel is buffered)
	select {
	case q.jobReady <- struct{}{}:
	default:
	}

	return nil
}

// ScheduleUpsert submits a fire-and-forget upsert for doc. Used by the
// repository at the tail of a successful mutation; a closed queue is
// logged, not reported.
func (q *Queue) ScheduleUpsert(doc *cms.Document) {
	job := Job{Slug: doc.Slug, Op: OpUpsert, Doc: doc, Tier: TierInteractive}
	if err := q.Submit(job, nil); err != nil {
		slog.Warn("index sync not scheduled", "slug", doc.Slug, "error", err)
	}
}

// ScheduleDelete submits a fire-and-forget removal for slug.
func (q *Queue) ScheduleDelete(slug string) {
	job := Job{Slug: slug, Op: OpDelete, Tier: TierInteractive}
	if err := q.Submit(job, nil); err != nil {
		slog.Warn("index sync not scheduled", "slug", slug, "error", err)
	}
}

// Shutdown gracefully shuts down the queue. It stops accepting new jobs,
// drains pending jobs, waits for in-flight jobs to complete (up to the
// context deadline), then returns.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeCh)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker is the main worker loop that processes jobs from the queue.
func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.closeCh:
			// Drain remaining jobs before exiting
			for q.processOneJob() {
			}
			return
		case <-q.jobReady:
			q.processOneJob()
		}
	}
}

// processOneJob attempts to pop and apply one job. Returns true if a job
// was processed, false if the queue was empty.
func (q *Queue) processOneJob() bool {
	q.mu.Lock()
	if q.heap.Len() == 0 {
		q.mu.Unlock()
		return false
	}

	job := *heap.Pop(q.heap).(*Job)
	delete(q.slugJobs, job.Slug)

	jobWaiters := q.waiters[job.Slug]
	delete(q.waiters, job.Slug)

	// If more jobs are pending, signal the next worker.
	if q.heap.Len() > 0 {
		select {
		case q.jobReady <- struct{}{}:
		default:
		}
	}

	q.mu.Unlock()

	result := q.executeApply(job)
	if result.Err != nil {
		slog.Error("index sync failed", "slug", job.Slug, "error", result.Err)
	}

	// Notify all waiters (outside lock, non-blocking)
	for _, ch := range jobWaiters {
		if ch != nil {
			select {
			case ch <- result:
			default:
				// Waiter abandoned (buffer full or closed), skip
			}
		}
	}

	return true
}

// executeApply calls the apply function with panic recovery.
func (q *Queue) executeApply(job Job) Result {
	var result Result

	func() {
		defer func() {
			if r := recover(); r != nil {
				result = Result{Err: fmt.Errorf("sync panic: %v", r)}
			}
		}()
		result = Result{Err: q.apply(job)}
	}()

	return result
}
