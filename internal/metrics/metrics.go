package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and job
// processing. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsProcessed int64
	jobsErrors    int64

	retentionJobsDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordJobProcessed increments the processed counter on success and
// the error counter otherwise.
func RecordJobProcessed(success bool) {
	mu.Lock()
	defer mu.Unlock()

	if success {
		jobsProcessed++
	} else {
		jobsErrors++
	}
}

// RecordRetentionJobs increments the counter of jobs deleted by TTL
// cleanup.
func RecordRetentionJobs(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionJobsDeleted += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP numq_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE numq_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "numq_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP numq_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE numq_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP numq_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE numq_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "numq_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "numq_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Job processing metrics
	b.WriteString("# HELP numq_jobs_processed_total Jobs processed successfully\n")
	b.WriteString("# TYPE numq_jobs_processed_total counter\n")
	fmt.Fprintf(&b, "numq_jobs_processed_total %d\n", jobsProcessed)

	b.WriteString("# HELP numq_jobs_errors_total Jobs processed with error\n")
	b.WriteString("# TYPE numq_jobs_errors_total counter\n")
	fmt.Fprintf(&b, "numq_jobs_errors_total %d\n", jobsErrors)

	// Retention metrics
	b.WriteString("# HELP numq_retention_jobs_deleted_total Total jobs deleted by TTL\n")
	b.WriteString("# TYPE numq_retention_jobs_deleted_total counter\n")
	fmt.Fprintf(&b, "numq_retention_jobs_deleted_total %d\n", retentionJobsDeleted)

	return b.String()
}
