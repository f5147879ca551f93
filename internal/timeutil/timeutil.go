// Package timeutil provides the timestamp format shared by the storage and
// sync layers.
//
// Timestamps are stored and transmitted as UTC strings with fixed-width
// millisecond precision so that lexical ordering in SQL matches temporal
// ordering. Comparison always goes through time.Parse, never through string
// comparison.
package timeutil

import (
	"fmt"
	"time"
)

// Layout is the canonical stored format. Fixed width: every stamped value
// sorts lexically in timestamp order.
const Layout = "2006-01-02T15:04:05.000Z"

// Accepted input layouts, tried in order. Clients stamp with JavaScript
// Date.toISOString() or RFC3339 variants; SQLite CURRENT_TIMESTAMP produces
// the space-separated form.
var parseLayouts = []string{
	Layout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Now returns the current time in the canonical format.
func Now() string {
	return time.Now().UTC().Format(Layout)
}

// Format renders t in the canonical format.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse parses a timestamp in any accepted layout.
func Parse(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// Compare parses both timestamps and returns -1, 0, or 1 as a is before,
// equal to, or after b.
func Compare(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	switch {
	case ta.Before(tb):
		return -1, nil
	case ta.After(tb):
		return 1, nil
	default:
		return 0, nil
	}
}
