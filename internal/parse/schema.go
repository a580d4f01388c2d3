package parse

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// FieldName resolves the name for the delimited field at index i. The
// positional default is "fieldN"; the schema table may override it.
func FieldName(i int, schema map[string]string) string {
	field := fmt.Sprintf("field%d", i)
	if schema != nil {
		if name, ok := schema[field]; ok && name != "" {
			field = name
		}
	}
	return field
}

// FixedField describes one named byte range inside a fixed-width record.
type FixedField struct {
	Offset   int
	Length   int
	Charset  string
	Reversed bool

	enc encoding.Encoding
}

// BuildFixedFields validates descriptors and resolves their charsets.
// Returns the prepared field set and the computed record size, which is
// the maximum extent across fields plus one terminator byte.
func BuildFixedFields(fields map[string]FixedField) (map[string]FixedField, int, error) {
	if len(fields) == 0 {
		return nil, 0, fmt.Errorf("fixed-width schema has no fields")
	}
	prepared := make(map[string]FixedField, len(fields))
	extent := 0
	for name, f := range fields {
		if f.Offset < 0 {
			return nil, 0, fmt.Errorf("field %q: negative offset %d", name, f.Offset)
		}
		if f.Length <= 0 {
			return nil, 0, fmt.Errorf("field %q: non-positive length %d", name, f.Length)
		}
		if f.Charset != "" {
			enc, err := ianaindex.IANA.Encoding(f.Charset)
			if err != nil || enc == nil {
				return nil, 0, fmt.Errorf("field %q: unknown charset %q", name, f.Charset)
			}
			f.enc = enc
		}
		if f.Offset+f.Length > extent {
			extent = f.Offset + f.Length
		}
		prepared[name] = f
	}
	return prepared, extent + 1, nil
}

// decode turns the field's byte range into a string using its charset,
// or the raw bytes when none is configured.
func (f FixedField) decode(raw []byte) (string, error) {
	if f.enc == nil {
		return string(raw), nil
	}
	// decoders carry per-stream state, so each call gets a fresh one
	out, err := f.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", f.Charset, err)
	}
	return string(out), nil
}
