package schema

import (
	"errors"
	"testing"
	"time"
)

func TestLenientPattern(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"dd/MM/yyyy", "d/M/yyyy"},
		{"yyyy-MM-dd", "yyyy-M-d"},
		{"d/M/yy", "d/M/yy"},
		{"yyyy-MM-dd'T'HH:mm:ss", "yyyy-M-d'T'HH:m:s"},
		{"dd MMM yyyy", "d MMM yyyy"},
		{"hh:mm a", "h:m a"},
		{"'dd' dd", "'dd' d"},
		{"h 'o''clock'", "h 'o''clock'"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := lenientPattern(tt.pattern)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLenientPattern_Invalid(t *testing.T) {
	patterns := []string{"yyyy-qq", "dd/MM/yyyy 'open", "ssSSS", "GGGG"}

	for _, p := range patterns {
		t.Run(p, func(t *testing.T) {
			if _, err := lenientPattern(p); err == nil {
				t.Errorf("expected error for %q", p)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		valid   bool
	}{
		{"dd/MM/yyyy", "01/01/1990", true},
		{"dd/MM/yyyy", "31/12/1999", true},
		{"dd/MM/yyyy", "1/1/1990", true},
		{"dd/MM/yyyy", "01/01/1990 00:00", true},
		{"dd/MM/yyyy", "1990-01-01", false},
		{"dd/MM/yyyy", "32/01/1990", false},
		{"dd/MM/yyyy", "01/13/1990", false},
		{"dd/MM/yyyy", "01/01", false},
		{"dd/MM/yyyy", "", false},
		{"yyyy-MM-dd", "2020-2-9", true},
		{"yyyy-MM-dd'T'HH:mm:ss", "2020-02-29T10:11:12", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.value, func(t *testing.T) {
			_, err := parseDate(tt.pattern, tt.value)
			if tt.valid && err != nil {
				t.Errorf("expected %q to parse, got %v", tt.value, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("expected %q to be rejected", tt.value)
			}
		})
	}
}

func TestParseDate_Value(t *testing.T) {
	tests := []string{"22/05/1990", "22/5/1990", "22/05/1990T12:00"}

	expected := time.Date(1990, time.May, 22, 0, 0, 0, 0, time.UTC)
	for _, value := range tests {
		got, err := parseDate("dd/MM/yyyy", value)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", value, err)
		}
		if !got.Equal(expected) {
			t.Errorf("expected %v for %q, got %v", expected, value, got)
		}
	}
}

func TestParseDate_PatternError(t *testing.T) {
	_, err := parseDate("yyyy-qq", "2020-01")

	var pe *patternError
	if !errors.As(err, &pe) {
		t.Errorf("expected patternError, got %v", err)
	}
}

func TestParseDate_ValueErrorIsNotPatternError(t *testing.T) {
	_, err := parseDate("dd/MM/yyyy", "tomorrow")
	if err == nil {
		t.Fatal("expected error")
	}

	var pe *patternError
	if errors.As(err, &pe) {
		t.Errorf("expected a value error, got patternError %v", err)
	}
}
