package jobs

// Status represents the lifecycle state of a job as stored in the
// job record. These values must match the text values stored in
// Redis (job:<id> status field).
//
// Centralizing these here avoids scattering string literals like
// "queued" or "done" across packages.
type Status string

const (
	StatusQueued Status = "queued"
	StatusDone   Status = "done"
	StatusError  Status = "error"
)

// IsTerminal reports whether the status is final. A job in a terminal
// state is never re-enqueued or re-transitioned.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}
