package jobs

import (
	"context"
	"errors"
	"time"

	"numq/internal/config"
	"numq/internal/metrics"
)

// RetentionStore is the slice of the job store that cleanup needs.
type RetentionStore interface {
	ListJobsCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	GetJob(ctx context.Context, id string) (Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// RetentionStats captures the number of records deleted by TTL cleanup.
type RetentionStats struct {
	JobsDeleted int64 `json:"jobsDeleted"`
}

// cleanupBatchLimit bounds how many candidates a single sweep inspects.
const cleanupBatchLimit = 500

// CleanupExpiredJobs deletes finished jobs older than the configured
// TTL so that the store does not grow without bound. Jobs still in
// queued state are left alone: deleting one would orphan its pending
// entry.
func CleanupExpiredJobs(ctx context.Context, cfg *config.Config, st RetentionStore) RetentionStats {
	var stats RetentionStats

	days := cfg.Retention.Jobs.DefaultDays
	if days <= 0 {
		return stats
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	ids, err := st.ListJobsCreatedBefore(ctx, cutoff, cleanupBatchLimit)
	if err != nil {
		return stats
	}

	for _, id := range ids {
		job, err := st.GetJob(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Record already gone; drop the dangling index entry.
			_ = st.DeleteJob(ctx, id)
			continue
		}
		if err != nil {
			continue
		}
		if !job.Status.IsTerminal() {
			continue
		}
		if err := st.DeleteJob(ctx, id); err == nil {
			stats.JobsDeleted++
		}
	}

	if stats.JobsDeleted > 0 {
		metrics.RecordRetentionJobs(stats.JobsDeleted)
	}
	return stats
}
