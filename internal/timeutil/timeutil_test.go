// Package timeutil tests for timestamp parsing and comparison.
package timeutil

import (
	"sort"
	"testing"
	"time"
)

// TestNowFormat verifies the canonical format is fixed width.
func TestNowFormat(t *testing.T) {
	s := Now()
	if len(s) != len("2006-01-02T15:04:05.000Z") {
		t.Errorf("Now() = %q, want fixed-width millisecond format", s)
	}
	if _, err := Parse(s); err != nil {
		t.Errorf("Parse(Now()) failed: %v", err)
	}
}

// TestParseVariants verifies all accepted input layouts.
func TestParseVariants(t *testing.T) {
	cases := []string{
		"2024-01-02T00:00:00.000Z",
		"2024-01-02T00:00:00Z",
		"2024-01-02T00:00:00.123456789Z",
		"2024-01-02 00:00:00",
		"2024-01-02",
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, c := range cases {
		got, err := Parse(c)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", c, err)
			continue
		}
		if got.Truncate(time.Second) != want {
			t.Errorf("Parse(%q) = %v, want %v (ignoring sub-second)", c, got, want)
		}
	}
}

// TestParseInvalid verifies garbage input is rejected.
func TestParseInvalid(t *testing.T) {
	for _, c := range []string{"", "not-a-time", "02/01/2024"} {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) should fail", c)
		}
	}
}

// TestCompare verifies ordering semantics.
func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2024-01-01T00:00:00.000Z", "2024-01-02T00:00:00.000Z", -1},
		{"2024-01-02T00:00:00.000Z", "2024-01-01T00:00:00.000Z", 1},
		{"2024-01-01T00:00:00.000Z", "2024-01-01T00:00:00.000Z", 0},
		// Same instant, different layouts.
		{"2024-01-01T00:00:00Z", "2024-01-01 00:00:00", 0},
	}
	for _, c := range cases {
		got, err := Compare(c.a, c.b)
		if err != nil {
			t.Errorf("Compare(%q, %q) failed: %v", c.a, c.b, err)
			continue
		}
		if got != c.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}

	if _, err := Compare("bogus", Now()); err == nil {
		t.Error("Compare with unparsable input should fail")
	}
}

// TestLexicalOrderMatchesTemporal verifies the stored format sorts lexically
// in timestamp order, which RecordsSince depends on.
func TestLexicalOrderMatchesTemporal(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stamps := []string{
		Format(base.Add(500 * time.Millisecond)),
		Format(base),
		Format(base.Add(50 * time.Millisecond)),
		Format(base.Add(2 * time.Second)),
	}
	sorted := append([]string(nil), stamps...)
	sort.Strings(sorted)

	for i := 1; i < len(sorted); i++ {
		cmp, err := Compare(sorted[i-1], sorted[i])
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if cmp > 0 {
			t.Errorf("lexical order disagrees with temporal order: %q > %q", sorted[i-1], sorted[i])
		}
	}
}
