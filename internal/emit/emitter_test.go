package emit

import (
	"testing"

	"filefeed/internal/event"
)

func addRecords(t *testing.T, e *Emitter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.Add(event.Record{"field0": "v"}); err != nil {
			t.Fatalf("add record %d: %v", i, err)
		}
	}
}

func TestEmitterSplitsIntoBoundedSegments(t *testing.T) {
	buf := event.NewBuffer()
	e := New("/tmp/in.csv", 2, 0, buf)

	addRecords(t, e, 5)
	e.Flush()

	segments := buf.Segments()
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for i, want := range []int{2, 2, 1} {
		if segments[i].Index != i {
			t.Fatalf("segment %d has index %d", i, segments[i].Index)
		}
		if len(segments[i].Lines) != want {
			t.Fatalf("segment %d has %d lines, want %d", i, len(segments[i].Lines), want)
		}
		if segments[i].File != "/tmp/in.csv" {
			t.Fatalf("segment %d has file %q", i, segments[i].File)
		}
	}
}

func TestEmitterLineTotalMatchesRecords(t *testing.T) {
	buf := event.NewBuffer()
	e := New("f", 7, 0, buf)

	addRecords(t, e, 23)
	e.Flush()

	total := 0
	for _, seg := range buf.Segments() {
		if len(seg.Lines) > 7 {
			t.Fatalf("segment %d exceeds bound: %d lines", seg.Index, len(seg.Lines))
		}
		total += len(seg.Lines)
	}
	if total != 23 || e.Records() != 23 {
		t.Fatalf("line total %d, records %d, want 23", total, e.Records())
	}
}

func TestEmitterNoEmptyFinalSegment(t *testing.T) {
	buf := event.NewBuffer()
	e := New("f", 2, 0, buf)

	addRecords(t, e, 4)
	e.Flush()

	segments := buf.Segments()
	if len(segments) != 2 {
		t.Fatalf("expected exactly 2 segments, got %d", len(segments))
	}
	if e.Segments() != 2 {
		t.Fatalf("emitter counted %d segments", e.Segments())
	}
}

func TestEmitterNothingToFlush(t *testing.T) {
	buf := event.NewBuffer()
	e := New("f", 2, 0, buf)

	e.Flush()

	if got := len(buf.Segments()); got != 0 {
		t.Fatalf("expected no segments for empty source, got %d", got)
	}
}
