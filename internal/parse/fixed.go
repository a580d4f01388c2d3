package parse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filefeed/internal/event"
)

// FixedWidth reads files as consecutive RecordSize-byte chunks and
// extracts named byte ranges from each one. Construct with NewFixedWidth
// so field charsets are resolved up front.
type FixedWidth struct {
	Fields     map[string]FixedField
	RecordSize int
}

// NewFixedWidth prepares a fixed-width parser. recordSize overrides the
// computed length (max field extent plus one terminator byte) when
// positive.
func NewFixedWidth(fields map[string]FixedField, recordSize int) (FixedWidth, error) {
	prepared, computed, err := BuildFixedFields(fields)
	if err != nil {
		return FixedWidth{}, err
	}
	size := computed
	if recordSize > 0 {
		size = recordSize
	}
	return FixedWidth{Fields: prepared, RecordSize: size}, nil
}

// Parse streams one record per full chunk through yield. A trailing
// chunk shorter than RecordSize is discarded: every record requires an
// exact read.
func (p FixedWidth) Parse(ctx context.Context, path string, yield func(event.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, p.RecordSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := io.ReadFull(f, buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rec := make(event.Record, len(p.Fields))
		for name, field := range p.Fields {
			end := field.Offset + field.Length
			if end > len(buf) {
				// explicit fixedRecordSize smaller than the field extent
				return fmt.Errorf("field %q extends to byte %d beyond record size %d", name, end, p.RecordSize)
			}
			value, err := field.decode(buf[field.Offset:end])
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			value = strings.TrimSpace(value)
			if field.Reversed {
				value = reverse(value)
			}
			rec[name] = value
		}
		if err := yield(rec); err != nil {
			return err
		}
	}
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
