package event

import "sync"

// Record is one parsed line or fixed-width record, keyed by field name.
type Record map[string]string

// Segment is one bounded batch of records emitted for a single file.
// Indices start at 0 and increase by one per emission.
type Segment struct {
	File  string   `json:"file"`
	Index int      `json:"segment"`
	Lines []Record `json:"lines"`
}

// Sender delivers segments to the remote system. Delivery is
// fire-and-forget from the pipeline's perspective: errors are logged by
// the caller and never abort the file being processed.
type Sender interface {
	Send(seg Segment) error
}

// Buffer is a Sender that collects segments in memory. Used when no
// live transport is configured and by tests to inspect emissions.
type Buffer struct {
	mu       sync.Mutex
	segments []Segment
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Send(seg Segment) error {
	b.mu.Lock()
	b.segments = append(b.segments, seg)
	b.mu.Unlock()
	return nil
}

// Segments returns a copy of everything sent so far.
func (b *Buffer) Segments() []Segment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Segment, len(b.segments))
	copy(out, b.segments)
	return out
}

// Reset discards collected segments.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.segments = nil
	b.mu.Unlock()
}
