package ingest

import "strings"

// Filter is the name predicate deciding whether a file in the watched
// folder belongs to this pipeline. A processed file fails the extension
// test once renamed, which is what keeps terminal files from being
// picked up again.
type Filter struct {
	Prefix    string
	Extension string // dot-prefixed
}

// Accept reports whether name matches, case-insensitively: it must end
// with the configured extension and start with the configured prefix
// (empty prefix accepts all). Pure function of the name string.
func (f Filter) Accept(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, strings.ToLower(f.Extension)) &&
		strings.HasPrefix(lower, strings.ToLower(f.Prefix))
}
