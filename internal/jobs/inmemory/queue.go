package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lightsheet-rebuild/bomtool/internal/jobs"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

// ErrQueueClosed is returned when publishing to or starting a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// Queue is a channel-backed rebuild queue with a fixed worker pool.
//
// Rebuild requests for the same input, output and sheet coalesce while one is still
// waiting: the later request is answered with the pending job's id instead of
// queueing a second identical build. Once a worker picks a job up, a new request
// queues a fresh build, since the spreadsheet may have changed in between.
//
// The queue owns the jobs it runs. PublishRebuild fills in the caller's id, status and
// creation time, but workers only ever touch the queue's own copy.
type Queue struct {
	jobChan   chan *jobs.RebuildJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool

	pendingMu sync.Mutex
	pending   map[rebuildTarget]*jobs.RebuildJob

	// Backoff is the delay per attempt before a failed job is re-enqueued.
	Backoff time.Duration
}

// rebuildTarget identifies what a rebuild reads and writes.
type rebuildTarget struct {
	input, output, sheet string
}

func targetOf(job *jobs.RebuildJob) rebuildTarget {
	return rebuildTarget{input: job.Input, output: job.Output, sheet: job.Sheet}
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishRebuild blocks.
// Rebuilds write the same output file, so a single worker is the usual choice.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobChan:   make(chan *jobs.RebuildJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   workers,
		pending:   make(map[rebuildTarget]*jobs.RebuildJob),
		Backoff:   time.Second,
	}
}

// PublishRebuild implements the Publisher interface. When an identical rebuild is
// still pending, job receives that job's id and creation time and nothing is queued.
func (q *Queue) PublishRebuild(ctx context.Context, job *jobs.RebuildJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.pendingMu.Lock()
	if waiting, ok := q.pending[targetOf(job)]; ok {
		job.JobID = waiting.JobID
		job.Status = jobs.JobStatusPending
		job.CreatedAt = waiting.CreatedAt
		q.pendingMu.Unlock()

		log := logger.FromContext(ctx)
		log.Info().Str("job_id", job.JobID).Str("input", job.Input).Msg("Rebuild already pending, request coalesced")
		return nil
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	job.Status = jobs.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	queued := *job
	q.pending[targetOf(&queued)] = &queued
	q.pendingMu.Unlock()

	if err := q.enqueue(ctx, &queued); err != nil {
		q.pendingMu.Lock()
		if q.pending[targetOf(&queued)] == &queued {
			delete(q.pending, targetOf(&queued))
		}
		q.pendingMu.Unlock()
		return err
	}
	return nil
}

// enqueue records job and hands it to the workers. Callers hold q.mu for reading.
func (q *Queue) enqueue(ctx context.Context, job *jobs.RebuildJob) error {
	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return err
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrQueueClosed
	}
}

// requeue puts a retry back on the queue, bypassing coalescing so the retry keeps
// its own id and history.
func (q *Queue) requeue(ctx context.Context, job *jobs.RebuildJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	return q.enqueue(ctx, job)
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.pendingMu.Lock()
			if q.pending[targetOf(job)] == job {
				delete(q.pending, targetOf(job))
			}
			q.pendingMu.Unlock()

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs one attempt. The job's final state for this attempt is saved before
// any retry is scheduled, and the retry runs on its own copy.
func (q *Queue) processJob(ctx context.Context, job *jobs.RebuildJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.CompletedAt = nil
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.save(ctx, job)
		log.Info().
			Int("items", job.TotalItems).
			Float64("total_cost", job.TotalCost).
			Dur("duration", completedAt.Sub(now)).
			Msg("Rebuild job completed")
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Rebuild job failed")
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)
	log.Warn().Err(err).Int("retry", job.RetryCount).Msg("Rebuild job failed, retrying")

	retry := *job
	retry.Status = jobs.JobStatusPending
	retry.StartedAt = nil
	retry.CompletedAt = nil

	time.AfterFunc(time.Duration(retry.RetryCount)*q.Backoff, func() {
		if err := q.requeue(ctx, &retry); err != nil {
			log.Error().Err(err).Msg("Failed to re-enqueue rebuild job")
		}
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.RebuildJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
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

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
