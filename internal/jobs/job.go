package jobs

import (
	"errors"
	"time"
)

// ErrNotFound reports that no record exists for a job id. Absence of
// a record means "never submitted", distinct from a queued record
// that has no result yet.
var ErrNotFound = errors.New("job not found")

// Job is the canonical job record. The store exclusively owns it;
// callers hold no job state beyond the lifetime of a single call.
//
// Result is set only when Status is StatusDone, ErrorMessage only
// when Status is StatusError.
type Job struct {
	ID           string
	Status       Status
	InputValue   float64
	Result       *float64
	ErrorMessage string
	CreatedAt    time.Time
}

// Reference is the minimal data needed to claim and process a job.
// It lives on the pending queue, separate from the job record.
type Reference struct {
	ID    string
	Value float64
}
