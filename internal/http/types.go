package http

// ErrorResponse is the error envelope shared by all endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// EnqueueRequest is the submission payload.
type EnqueueRequest struct {
	Value *float64 `json:"value"`
}

// EnqueueResponse acknowledges a submission. The id means "durably
// recorded as queued", not "processed".
type EnqueueResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	JobID   string `json:"jobId,omitempty"`
}

// JobStatusItem is the client view of a job record. Result is only
// present for done jobs, Error only for errored ones.
type JobStatusItem struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Input  float64  `json:"input"`
	Result *float64 `json:"result,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// JobStatusResponse wraps a status query result.
type JobStatusResponse struct {
	Success bool           `json:"success"`
	Code    string         `json:"code,omitempty"`
	Error   string         `json:"error,omitempty"`
	Job     *JobStatusItem `json:"job,omitempty"`
}
