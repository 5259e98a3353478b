package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/schemedesk/district-kb/internal/extract"
)

// Job is one queued extraction request.
type Job struct {
	DocumentID  int64
	SubmittedAt time.Time
	TraceID     string
}

// Runner is the extraction entry point the workers drive.
type Runner interface {
	ReExtract(ctx context.Context, documentID int64) (*extract.Result, error)
}

// ExtractQueue runs document extractions on a fixed pool of workers.
type ExtractQueue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ExtractQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ExtractQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewExtractQueue(runner Runner, logger *slog.Logger, opts ...Option) *ExtractQueue {
	q := &ExtractQueue{
		runner:  runner,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ExtractQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker_started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					_, err := q.runner.ReExtract(ctx, job.DocumentID)
					cancel()

					if err != nil {
						q.logger.Error("queue.job_failed",
							"worker_id", workerID, "document_id", job.DocumentID,
							"trace_id", job.TraceID, "error", err)
					} else {
						q.logger.Info("queue.job_done",
							"worker_id", workerID, "document_id", job.DocumentID,
							"trace_id", job.TraceID,
							"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
					}
				}

				q.logger.Info("queue.worker_stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ExtractQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue_after_shutdown", "document_id", job.DocumentID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueued", "document_id", job.DocumentID, "trace_id", job.TraceID)
	default:
		q.logger.Warn("queue.full_backpressure", "document_id", job.DocumentID)
		q.ch <- job
	}
	return nil
}

func (q *ExtractQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown_interrupted")
	case <-done:
		q.logger.Info("queue.drained")
	}
}
