package emit

import (
	"time"

	"github.com/rs/zerolog/log"

	"filefeed/internal/event"
)

// Emitter batches records for one file into segments of at most MaxLines
// and hands each full segment to the sender. Segment indices start at 0
// and increase by one per emission. Not safe for concurrent use; exactly
// one task processes a file at a time.
type Emitter struct {
	file     string
	maxLines int
	wait     time.Duration
	sender   event.Sender

	batch   []event.Record
	index   int
	records int
}

// New creates an emitter for one file. wait, when positive, is slept
// between consecutive emissions.
func New(file string, maxLines int, wait time.Duration, sender event.Sender) *Emitter {
	return &Emitter{
		file:     file,
		maxLines: maxLines,
		wait:     wait,
		sender:   sender,
		batch:    make([]event.Record, 0, maxLines),
	}
}

// Add appends one record, emitting a segment when the batch is full.
func (e *Emitter) Add(rec event.Record) error {
	e.batch = append(e.batch, rec)
	e.records++
	if len(e.batch) >= e.maxLines {
		e.send()
		if e.wait > 0 {
			time.Sleep(e.wait)
		}
	}
	return nil
}

// Flush emits the remaining records, if any. Call once after the source
// is exhausted.
func (e *Emitter) Flush() {
	if len(e.batch) > 0 {
		e.send()
	}
}

// Segments returns how many segments have been emitted so far.
func (e *Emitter) Segments() int {
	return e.index
}

// Records returns how many records have been accepted so far.
func (e *Emitter) Records() int {
	return e.records
}

func (e *Emitter) send() {
	seg := event.Segment{File: e.file, Index: e.index, Lines: e.batch}
	log.Info().
		Str("file", e.file).
		Int("segment", e.index).
		Int("lines", len(e.batch)).
		Int("total_records", e.records).
		Msg("tx segment")
	if err := e.sender.Send(seg); err != nil {
		// delivery is fire-and-forget; the file still completes
		log.Warn().Str("file", e.file).Int("segment", e.index).Err(err).Msg("send segment failed")
	}
	e.index++
	e.batch = make([]event.Record, 0, e.maxLines)
}
