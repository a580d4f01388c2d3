package parse

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"filefeed/internal/event"
)

// Delimited reads newline-separated files and splits each line on a
// literal delimiter. Field names are positional ("field0", "field1", ...)
// unless overridden by the schema table.
type Delimited struct {
	Delimiter         string
	Schema            map[string]string
	ProcessNullValues bool
	SkipFirstLine     bool
}

// Parse streams one record per non-header line, in file order, through
// yield. A yield error stops the scan and is returned as-is.
//
// Empty tokens never store a value. When ProcessNullValues is set they
// still advance the field index, so consecutive delimiters skip a named
// slot; when unset the index does not advance and later tokens shift
// into earlier field names. Both behaviors are relied on by existing
// deployments and must not change.
func (d Delimited) Parse(ctx context.Context, path string, yield func(event.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	delimiter := d.Delimiter
	if delimiter == "" {
		delimiter = ","
	}

	skip := d.SkipFirstLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if skip {
			skip = false
			continue
		}

		tokens := strings.Split(scanner.Text(), delimiter)
		rec := make(event.Record)
		fieldIndex := 0
		for _, tok := range tokens {
			if tok != "" {
				rec[FieldName(fieldIndex, d.Schema)] = tok
				fieldIndex++
			} else if d.ProcessNullValues {
				fieldIndex++
			}
		}
		if err := yield(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
