package ingest

import "sync/atomic"

// Stats carries the pipeline's operational counters. All fields are
// updated atomically and safe to read while the pipeline runs.
type Stats struct {
	submitted int64
	processed int64
	failed    int64
	rejected  int64
	segments  int64
}

func (s *Stats) addSubmitted() { atomic.AddInt64(&s.submitted, 1) }
func (s *Stats) addProcessed() { atomic.AddInt64(&s.processed, 1) }
func (s *Stats) addFailed()    { atomic.AddInt64(&s.failed, 1) }
func (s *Stats) addRejected()  { atomic.AddInt64(&s.rejected, 1) }
func (s *Stats) addSegments(n int) {
	atomic.AddInt64(&s.segments, int64(n))
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Submitted int64 `json:"files_submitted"`
	Processed int64 `json:"files_processed"`
	Failed    int64 `json:"files_failed"`
	Rejected  int64 `json:"files_rejected"`
	Segments  int64 `json:"segments_sent"`
	Active    int   `json:"tasks_active"`
	Queued    int   `json:"tasks_queued"`
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		Submitted: atomic.LoadInt64(&s.submitted),
		Processed: atomic.LoadInt64(&s.processed),
		Failed:    atomic.LoadInt64(&s.failed),
		Rejected:  atomic.LoadInt64(&s.rejected),
		Segments:  atomic.LoadInt64(&s.segments),
	}
}
