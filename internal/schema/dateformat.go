package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vjeantet/jodaTime"
)

// Pattern letters Go's parser can honour.
const parseableLetters = "yMdDHhmsSaEzZ"

// patternError marks a date pattern that cannot be used, as opposed to a
// value that does not match it.
type patternError struct {
	err error
}

func (e *patternError) Error() string { return e.err.Error() }
func (e *patternError) Unwrap() error { return e.err }

// parseDate parses value with a Joda-style pattern such as dd/MM/yyyy.
// Two-letter numeric fields accept one or two digits and text after a
// complete date is ignored.
func parseDate(pattern, value string) (time.Time, error) {
	relaxed, err := lenientPattern(pattern)
	if err != nil {
		return time.Time{}, &patternError{err: err}
	}

	t, err := jodaTime.Parse(relaxed, value)
	if err == nil {
		return t, nil
	}
	var pe *time.ParseError
	if errors.As(err, &pe) && strings.HasPrefix(pe.Message, ": extra text") && len(pe.ValueElem) < len(value) {
		return jodaTime.Parse(relaxed, value[:len(value)-len(pe.ValueElem)])
	}
	return time.Time{}, err
}

// lenientPattern checks pattern and shortens dd, MM, hh, mm and ss to their
// variable-width forms. Quoted text is kept as is.
func lenientPattern(pattern string) (string, error) {
	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\'' {
			end := i + 1
			for {
				if end >= len(runes) {
					return "", fmt.Errorf("date format %q: unterminated quote", pattern)
				}
				if runes[end] == '\'' {
					if end+1 < len(runes) && runes[end+1] == '\'' {
						end += 2
						continue
					}
					break
				}
				end++
			}
			b.WriteString(string(runes[i : end+1]))
			i = end + 1
			continue
		}

		if !isPatternLetter(r) {
			b.WriteRune(r)
			i++
			continue
		}
		if !strings.ContainsRune(parseableLetters, r) {
			return "", fmt.Errorf("date format %q: unsupported pattern letter %q", pattern, r)
		}

		n := 1
		for i+n < len(runes) && runes[i+n] == r {
			n++
		}
		if r == 'S' {
			prev := b.String()
			if !strings.HasSuffix(prev, ".") && !strings.HasSuffix(prev, ",") {
				return "", fmt.Errorf("date format %q: fraction of second must follow '.' or ','", pattern)
			}
		}
		if n == 2 && strings.ContainsRune("dMhms", r) {
			n = 1
		}
		b.WriteString(strings.Repeat(string(r), n))
		i += n
		for i < len(runes) && runes[i] == r {
			i++
		}
	}
	return b.String(), nil
}

func isPatternLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
