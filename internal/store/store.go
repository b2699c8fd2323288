package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"numq/internal/jobs"
)

// Redis key layout: one hash per job record keyed by id, one list
// holding pending work references, and one sorted set indexing job
// ids by creation time (used by retention cleanup).
const (
	jobKeyPrefix = "numq:job:"
	pendingKey   = "numq:jobs:pending"
	createdKey   = "numq:jobs:created"
)

// ErrNotFound is returned by GetJob when no record exists for the id.
var ErrNotFound = jobs.ErrNotFound

// Store wraps access to the job records and the pending queue. It is
// safe for concurrent use; all coordination between the submission
// path and the worker loops goes through it.
type Store struct {
	RDB *redis.Client
}

// New creates a Store on a shared redis client. The client is
// acquired once at startup and reused across request handlers and
// worker loops.
func New(rdb *redis.Client) *Store {
	return &Store{RDB: rdb}
}

// Ping reports whether the backing store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.RDB.Ping(ctx).Err()
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// encodeReference renders a pending-queue entry as "<id>:<value>".
// Job ids are UUIDs and contain no colon, so the first colon always
// separates id from value.
func encodeReference(ref jobs.Reference) string {
	return ref.ID + ":" + formatFloat(ref.Value)
}

func parseReference(payload string) (jobs.Reference, error) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return jobs.Reference{}, fmt.Errorf("malformed pending entry %q", payload)
	}
	val, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return jobs.Reference{}, fmt.Errorf("malformed pending entry %q: %w", payload, err)
	}
	return jobs.Reference{ID: parts[0], Value: val}, nil
}

// CreateJob inserts a new record in queued state. If it returns an
// error the caller must not assume the job exists.
func (s *Store) CreateJob(ctx context.Context, id string, value float64) error {
	now := time.Now().UTC()
	_, err := s.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey(id),
			"status", string(jobs.StatusQueued),
			"input", formatFloat(value),
			"created_at", strconv.FormatInt(now.Unix(), 10),
		)
		pipe.ZAdd(ctx, createdKey, redis.Z{Score: float64(now.Unix()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("create job %s: %w", id, err)
	}
	return nil
}

// EnqueuePending appends a work reference to the tail of the pending
// queue. Call only after CreateJob succeeded for the same id.
func (s *Store) EnqueuePending(ctx context.Context, ref jobs.Reference) error {
	if err := s.RDB.RPush(ctx, pendingKey, encodeReference(ref)).Err(); err != nil {
		return fmt.Errorf("enqueue pending %s: %w", ref.ID, err)
	}
	return nil
}

// Submit creates the job record and its pending entry in a single
// MULTI/EXEC transaction, so a queued record always has a matching
// pending entry. By the time Submit returns, the record is visible
// to status queries.
func (s *Store) Submit(ctx context.Context, id string, value float64) error {
	now := time.Now().UTC()
	_, err := s.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobKey(id),
			"status", string(jobs.StatusQueued),
			"input", formatFloat(value),
			"created_at", strconv.FormatInt(now.Unix(), 10),
		)
		pipe.ZAdd(ctx, createdKey, redis.Z{Score: float64(now.Unix()), Member: id})
		pipe.RPush(ctx, pendingKey, encodeReference(jobs.Reference{ID: id, Value: value}))
		return nil
	})
	if err != nil {
		return fmt.Errorf("submit job %s: %w", id, err)
	}
	return nil
}

// DequeuePending blocks up to timeout waiting for the next pending
// entry, claiming it atomically (BLPOP, so no two callers receive
// the same entry). Returns (nil, nil) when the timeout expires with
// an empty queue; that is the idle-poll path, not an error.
func (s *Store) DequeuePending(ctx context.Context, timeout time.Duration) (*jobs.Reference, error) {
	res, err := s.RDB.BLPop(ctx, timeout, pendingKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue pending: %w", err)
	}
	// BLPOP returns [key, payload].
	ref, err := parseReference(res[1])
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CompleteJob transitions the job to done with its result. Best
// effort for an unknown id: Redis merges fields into whatever record
// exists, which matches the crashed-job semantics we accept.
func (s *Store) CompleteJob(ctx context.Context, id string, result float64) error {
	err := s.RDB.HSet(ctx, jobKey(id),
		"status", string(jobs.StatusDone),
		"result", formatFloat(result),
	).Err()
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// FailJob transitions the job to error with a diagnostic message.
func (s *Store) FailJob(ctx context.Context, id string, msg string) error {
	err := s.RDB.HSet(ctx, jobKey(id),
		"status", string(jobs.StatusError),
		"error", msg,
	).Err()
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return nil
}

// GetJob looks up a job record by id. Returns ErrNotFound when no
// record exists.
func (s *Store) GetJob(ctx context.Context, id string) (jobs.Job, error) {
	fields, err := s.RDB.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return jobs.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return jobs.Job{}, ErrNotFound
	}

	job := jobs.Job{
		ID:           id,
		Status:       jobs.Status(fields["status"]),
		ErrorMessage: fields["error"],
	}
	if raw, ok := fields["input"]; ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return jobs.Job{}, fmt.Errorf("get job %s: corrupt input field %q", id, raw)
		}
		job.InputValue = v
	}
	if raw, ok := fields["result"]; ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return jobs.Job{}, fmt.Errorf("get job %s: corrupt result field %q", id, raw)
		}
		job.Result = &v
	}
	if raw, ok := fields["created_at"]; ok {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			job.CreatedAt = time.Unix(secs, 0).UTC()
		}
	}
	return job, nil
}

// ListJobsCreatedBefore returns up to limit job ids created before
// the cutoff, oldest first. Used by retention cleanup.
func (s *Store) ListJobsCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	ids, err := s.RDB.ZRangeByScore(ctx, createdKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(cutoff.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs before %s: %w", cutoff, err)
	}
	return ids, nil
}

// DeleteJob removes a job record and its created-at index entry.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	_, err := s.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, jobKey(id))
		pipe.ZRem(ctx, createdKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}
