// Package partialjson recovers the complete leading elements of a JSON
// array that has been truncated at an arbitrary byte position, as
// happens while a model response is still streaming in. Truncation is
// an expected condition here, not an error: the repair scans once,
// remembers where the last fully-closed top-level element ends, drops
// whatever dangles past it (including a string cut mid-escape), and
// closes the array.
package partialjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoArray: the buffer does not yet contain the opening bracket
	// of the response array.
	ErrNoArray = errors.New("no JSON array opening in buffer")
	// ErrMalformed: a structural error that prefix repair cannot fix,
	// such as a mismatched closing bracket or a bad literal inside an
	// element that already looked complete.
	ErrMalformed = errors.New("malformed JSON beyond repair")
)

// Repair returns a syntactically complete JSON array text covering
// every element of raw that was fully closed at the top level. A
// dangling incomplete trailing element is discarded entirely. If no
// element has completed yet the result is "[]".
func Repair(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s[0] != '[' {
		return "", ErrNoArray
	}

	var (
		inString bool
		escaped  bool
		stack    []byte
		lastEnd  = -1 // offset just past the last element closed at top level
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				if len(stack) == 1 {
					lastEnd = i + 1
				}
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return "", ErrMalformed
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				// Root array closed; anything but trailing
				// whitespace after it is a structural error.
				if strings.TrimSpace(s[i+1:]) != "" {
					return "", ErrMalformed
				}
				return s[:i+1], nil
			}
			if len(stack) == 1 {
				lastEnd = i + 1
			}
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return "", ErrMalformed
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 1 {
				lastEnd = i + 1
			}
		}
	}

	if lastEnd < 0 {
		return "[]", nil
	}
	return s[:lastEnd] + "]", nil
}

// Parse repairs raw and decodes the recovered prefix into generic
// values, one per complete element. Decode errors inside a
// structurally-complete element (a malformed literal, say) are
// reported as ErrMalformed rather than propagated.
func Parse(raw string) ([]any, error) {
	repaired, err := Repair(raw)
	if err != nil {
		return nil, err
	}
	var items []any
	if err := json.Unmarshal([]byte(repaired), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return items, nil
}
