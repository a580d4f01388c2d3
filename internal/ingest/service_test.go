package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filefeed/internal/config"
	"filefeed/internal/event"
	"filefeed/internal/parse"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startService(t *testing.T, cfg config.Config, buf *event.Buffer) *Service {
	t.Helper()
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	s, err := New(cfg, buf)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestServiceProcessesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")
	if err := os.WriteFile(path, []byte("a,1\nb,2\nc,3\nd,4\ne,5\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	buf := event.NewBuffer()
	s := startService(t, config.Config{
		FileFolderPath:       dir,
		MaxLinesInEvent:      2,
		ProcessExistingFiles: true,
	}, buf)

	waitFor(t, "rename to terminal state", func() bool {
		_, err := os.Stat(filepath.Join(dir, "input.csv.done"))
		return err == nil
	})

	segments := buf.Segments()
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	total := 0
	for i, seg := range segments {
		if seg.Index != i {
			t.Fatalf("segment %d has index %d", i, seg.Index)
		}
		total += len(seg.Lines)
	}
	if total != 5 {
		t.Fatalf("expected 5 lines across segments, got %d", total)
	}
	for i, want := range []int{2, 2, 1} {
		if len(segments[i].Lines) != want {
			t.Fatalf("segment %d has %d lines, want %d", i, len(segments[i].Lines), want)
		}
	}

	snap := s.StatsSnapshot()
	if snap.Submitted != 1 || snap.Processed != 1 || snap.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", snap)
	}
}

func TestServicePicksUpCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	buf := event.NewBuffer()
	startService(t, config.Config{
		FileFolderPath:  dir,
		MaxLinesInEvent: 10,
	}, buf)

	// created after the watcher is live
	path := filepath.Join(dir, "fresh.csv")
	if err := os.WriteFile(path, []byte("x,y\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	waitFor(t, "created file processed", func() bool {
		return len(buf.Segments()) == 1
	})

	seg := buf.Segments()[0]
	if seg.File != path || seg.Index != 0 {
		t.Fatalf("unexpected segment: %+v", seg)
	}
	if seg.Lines[0]["field0"] != "x" || seg.Lines[0]["field1"] != "y" {
		t.Fatalf("unexpected line: %v", seg.Lines[0])
	}

	waitFor(t, "rename to terminal state", func() bool {
		_, err := os.Stat(path + ".done")
		return err == nil
	})
}

func TestServiceIgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("irrelevant"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	leftover := filepath.Join(dir, "old.csv.done")
	if err := os.WriteFile(leftover, []byte("a,b\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	buf := event.NewBuffer()
	s := startService(t, config.Config{
		FileFolderPath:       dir,
		MaxLinesInEvent:      2,
		ProcessExistingFiles: true,
	}, buf)

	// give the scan a moment, then confirm nothing moved
	time.Sleep(200 * time.Millisecond)
	if got := len(buf.Segments()); got != 0 {
		t.Fatalf("expected no segments, got %d", got)
	}
	for _, p := range []string{other, leftover} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("non-matching file disturbed: %v", err)
		}
	}
	if snap := s.StatsSnapshot(); snap.Submitted != 0 {
		t.Fatalf("nothing should have been submitted: %+v", snap)
	}
}

func TestServiceDeleteAfterProcessing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.csv")
	if err := os.WriteFile(path, []byte("a\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	buf := event.NewBuffer()
	startService(t, config.Config{
		FileFolderPath:        dir,
		MaxLinesInEvent:       5,
		ProcessExistingFiles:  true,
		DeleteAfterProcessing: true,
	}, buf)

	waitFor(t, "file deleted", func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})
	if got := len(buf.Segments()); got != 1 {
		t.Fatalf("expected 1 segment, got %d", got)
	}
}

func TestServiceFixedWidthEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.dat")
	if err := os.WriteFile(path, []byte("ABC1234567XYZ7654321"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	buf := event.NewBuffer()
	startService(t, config.Config{
		FileFolderPath:       dir,
		FileExtension:        ".dat",
		FileType:             config.FileTypeFixedWidth,
		FixedRecordSize:      10,
		MaxLinesInEvent:      5,
		ProcessExistingFiles: true,
		FixedFields: map[string]parse.FixedField{
			"code": {Offset: 0, Length: 3},
			"rev":  {Offset: 3, Length: 7, Reversed: true},
		},
	}, buf)

	waitFor(t, "fixed-width file processed", func() bool {
		return len(buf.Segments()) == 1
	})

	lines := buf.Segments()[0].Lines
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d", len(lines))
	}
	if lines[0]["code"] != "ABC" || lines[0]["rev"] != "7654321" {
		t.Fatalf("first record wrong: %v", lines[0])
	}
	if lines[1]["code"] != "XYZ" || lines[1]["rev"] != "1234567" {
		t.Fatalf("second record wrong: %v", lines[1])
	}
}
