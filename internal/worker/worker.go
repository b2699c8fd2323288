package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"numq/internal/config"
	"numq/internal/jobs"
	"numq/internal/metrics"
	"numq/internal/store"
)

// ProcessFunc computes the output for a job's input value. It is the
// pluggable compute step; the loop treats it as a black box and maps
// a non-nil error to the job's terminal error state.
type ProcessFunc func(ctx context.Context, value float64) (float64, error)

// Square is the default processing function.
func Square(_ context.Context, value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("input %v is not a finite number", value)
	}
	out := value * value
	if math.IsInf(out, 0) {
		return 0, fmt.Errorf("squaring %v overflows float64", value)
	}
	return out, nil
}

// Worker consumes pending entries from the store and drives each job
// to a terminal state. Multiple Worker processes may run against the
// same store; the atomic dequeue keeps them from claiming the same
// entry.
type Worker struct {
	cfg     *config.Config
	store   *store.Store
	logger  *slog.Logger
	process ProcessFunc
}

// New constructs a Worker. A nil process falls back to Square.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, process ProcessFunc) *Worker {
	if process == nil {
		process = Square
	}
	return &Worker{
		cfg:     cfg,
		store:   st,
		logger:  logger,
		process: process,
	}
}

// Start launches the configured number of consume loops plus the
// periodic retention sweep, and blocks until ctx is cancelled.
// Callers typically run this in its own goroutine and keep the
// process alive.
func (w *Worker) Start(ctx context.Context) {
	count := w.cfg.Worker.Count
	if count <= 0 {
		count = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.runLoop(ctx, n)
		}(i)
	}

	if w.cfg.Retention.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runCleanup(ctx)
		}()
	}

	wg.Wait()
}

// runLoop is one consume loop: claim the next pending entry, execute
// the processing function, record the terminal state, repeat. A nil
// reference means the blocking dequeue timed out on an empty queue;
// that is the idle path. Store failures are logged and retried on
// the next iteration, never fatal.
func (w *Worker) runLoop(ctx context.Context, n int) {
	timeout := time.Duration(w.cfg.Worker.DequeueTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	log := w.logger.With("worker", n)
	log.Info("worker loop started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ref, err := w.store.DequeuePending(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", "error", err)
			continue
		}
		if ref == nil {
			continue
		}

		w.handle(ctx, log, *ref)
	}
}

func (w *Worker) handle(ctx context.Context, log *slog.Logger, ref jobs.Reference) {
	out, err := w.invoke(ctx, ref.Value)
	if err != nil {
		metrics.RecordJobProcessed(false)
		if uerr := w.store.FailJob(ctx, ref.ID, err.Error()); uerr != nil {
			// The job may stay queued from the client's point of
			// view; there is no redelivery of a claimed entry.
			log.Error("status update failed", "job_id", ref.ID, "error", uerr)
			return
		}
		log.Info("job failed", "job_id", ref.ID, "error", err)
		return
	}

	metrics.RecordJobProcessed(true)
	if uerr := w.store.CompleteJob(ctx, ref.ID, out); uerr != nil {
		log.Error("status update failed", "job_id", ref.ID, "error", uerr)
		return
	}
	log.Info("job processed", "job_id", ref.ID, "result", out)
}

// invoke runs the processing function under a per-job deadline so a
// hung compute cannot block the loop forever. The goroutine behind a
// timed-out invocation is abandoned; it holds no job state.
func (w *Worker) invoke(ctx context.Context, value float64) (float64, error) {
	timeout := time.Duration(w.cfg.Worker.JobTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out float64
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := w.process(ctx, value)
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		return 0, fmt.Errorf("processing timed out after %s", timeout)
	}
}

// runCleanup periodically deletes finished jobs past their TTL.
func (w *Worker) runCleanup(ctx context.Context) {
	interval := time.Duration(w.cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		stats := jobs.CleanupExpiredJobs(ctx, w.cfg, w.store)
		if stats.JobsDeleted > 0 {
			w.logger.Info("retention cleanup", "jobs_deleted", stats.JobsDeleted)
		}
	}
}
