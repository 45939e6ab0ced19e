// internal/workers/notification/dispatch-notifications/queue.go
package dispatchnotifications

import (
	"context"
	"errors"
	"sync"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/metrics"
	"lead-capture/internal/models"
)

var ErrQueueClosed = errors.New("NOTIFICATION_QUEUE_CLOSED")

// ChannelQueue is an in-process queue drained by a fixed pool of workers.
// Jobs do not survive a restart.
type ChannelQueue struct {
	handler *Handler
	jobs    chan *models.NotificationJob
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewChannelQueue(handler *Handler) *ChannelQueue {
	return &ChannelQueue{
		handler: handler,
		jobs:    make(chan *models.NotificationJob, handler.config.QueueSize),
		workers: handler.config.Workers,
	}
}

// Start launches the workers. ctx bounds in-flight deliveries; cancelling it
// aborts pending retries.
func (q *ChannelQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	q.handler.logger.Info("Notification workers started", map[string]interface{}{
		"workers":   q.workers,
		"queueSize": cap(q.jobs),
	})
}

// Enqueue hands job to the pool without blocking. A full queue abandons the
// job and records both channels as failed.
func (q *ChannelQueue) Enqueue(job *models.NotificationJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		metrics.NotificationQueueDepth.Set(float64(len(q.jobs)))
		return nil
	default:
		q.handler.logger.Warn("Notification queue full, dropping job", map[string]interface{}{
			"submissionId": job.SubmissionID,
		})
		q.handler.Abandon(context.Background(), job)
		return apperrors.NewNotificationDroppedError(job.SubmissionID)
	}
}

// Close stops intake and waits for the workers to drain the queue.
func (q *ChannelQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.handler.logger.Info("Notification workers stopped", nil)
}

// Len reports jobs waiting for a worker.
func (q *ChannelQueue) Len() int {
	return len(q.jobs)
}

func (q *ChannelQueue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		metrics.NotificationQueueDepth.Set(float64(len(q.jobs)))
		q.handler.logger.Debug("Worker picked up job", map[string]interface{}{
			"worker":       id,
			"submissionId": job.SubmissionID,
		})
		q.handler.Dispatch(ctx, job)
	}
}

// SyncQueue dispatches on the caller's goroutine and keeps each result.
type SyncQueue struct {
	handler *Handler

	mu      sync.Mutex
	results map[string]*Result
}

func NewSyncQueue(handler *Handler) *SyncQueue {
	return &SyncQueue{handler: handler, results: make(map[string]*Result)}
}

func (q *SyncQueue) Enqueue(job *models.NotificationJob) error {
	result := q.handler.Dispatch(context.Background(), job)
	q.mu.Lock()
	q.results[job.SubmissionID] = result
	q.mu.Unlock()
	return nil
}

// Result returns the outcome recorded for a submission, if any.
func (q *SyncQueue) Result(submissionID string) (*Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.results[submissionID]
	return r, ok
}
