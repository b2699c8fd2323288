package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"numq/internal/jobs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb)
}

func TestSubmitThenGetJob(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Submit(ctx, "job-1", 3.5); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	job, err := st.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.Status != jobs.StatusQueued {
		t.Fatalf("expected status queued, got %q", job.Status)
	}
	if job.InputValue != 3.5 {
		t.Fatalf("expected input 3.5, got %v", job.InputValue)
	}
	if job.Result != nil {
		t.Fatalf("expected no result on a queued job, got %v", *job.Result)
	}
	if job.ErrorMessage != "" {
		t.Fatalf("expected no error message on a queued job, got %q", job.ErrorMessage)
	}
}

func TestGetJobNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetJob(context.Background(), "never-submitted")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDequeueFIFO(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	ids := []string{"a", "b", "c"}
	values := []float64{1, 2, 3}
	for i, id := range ids {
		if err := st.Submit(ctx, id, values[i]); err != nil {
			t.Fatalf("Submit %s error: %v", id, err)
		}
	}

	for i, want := range ids {
		ref, err := st.DequeuePending(ctx, time.Second)
		if err != nil {
			t.Fatalf("DequeuePending error: %v", err)
		}
		if ref == nil {
			t.Fatalf("expected a pending entry, got none")
		}
		if ref.ID != want {
			t.Fatalf("expected FIFO order %v, got %s at position %d", ids, ref.ID, i)
		}
		if ref.Value != values[i] {
			t.Fatalf("expected value %v for %s, got %v", values[i], want, ref.Value)
		}
	}
}

func TestDequeueIdleTimeout(t *testing.T) {
	st := newTestStore(t)

	start := time.Now()
	ref, err := st.DequeuePending(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("expected idle timeout to be non-error, got %v", err)
	}
	if ref != nil {
		t.Fatalf("expected no entry from an empty queue, got %+v", ref)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("idle dequeue took %s, expected to return near the timeout", elapsed)
	}
}

func TestCompleteJob(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Submit(ctx, "job-1", 3); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if err := st.CompleteJob(ctx, "job-1", 9); err != nil {
		t.Fatalf("CompleteJob error: %v", err)
	}

	job, err := st.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.Status != jobs.StatusDone {
		t.Fatalf("expected status done, got %q", job.Status)
	}
	if job.Result == nil || *job.Result != 9 {
		t.Fatalf("expected result 9, got %v", job.Result)
	}
}

func TestFailJob(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Submit(ctx, "job-1", 3); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if err := st.FailJob(ctx, "job-1", "compute exploded"); err != nil {
		t.Fatalf("FailJob error: %v", err)
	}

	job, err := st.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if job.Status != jobs.StatusError {
		t.Fatalf("expected status error, got %q", job.Status)
	}
	if job.ErrorMessage != "compute exploded" {
		t.Fatalf("expected error message to round-trip, got %q", job.ErrorMessage)
	}
	if job.Result != nil {
		t.Fatalf("expected no result on a failed job, got %v", *job.Result)
	}
}

func TestListAndDeleteForRetention(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Submit(ctx, "old-job", 1); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	cutoff := time.Now().Add(time.Minute)
	ids, err := st.ListJobsCreatedBefore(ctx, cutoff, 10)
	if err != nil {
		t.Fatalf("ListJobsCreatedBefore error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "old-job" {
		t.Fatalf("expected [old-job], got %v", ids)
	}

	if err := st.DeleteJob(ctx, "old-job"); err != nil {
		t.Fatalf("DeleteJob error: %v", err)
	}
	if _, err := st.GetJob(ctx, "old-job"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	ids, err = st.ListJobsCreatedBefore(ctx, cutoff, 10)
	if err != nil {
		t.Fatalf("ListJobsCreatedBefore error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty index after delete, got %v", ids)
	}
}
