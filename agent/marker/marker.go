// Package marker extracts structured side-effect blocks from generated
// replies. A block is announced by a verbatim header token and runs until the
// first blank line or the end of the text; inside it, each required field
// appears on its own line as "label: value", optionally bulleted.
package marker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoBlock      = errors.New("no marker block found")
	ErrMissingField = errors.New("required marker field missing")
	ErrBadNumber    = errors.New("numeric marker field malformed")
)

// Field is one required entry of a marker block. Numeric fields must start
// with an unsigned integer; the integer part is kept and trailing text such
// as units is dropped.
type Field struct {
	Label   string
	Numeric bool
}

// Spec describes the marker block of one specialist.
type Spec struct {
	Header string
	Fields []Field
}

type Values map[string]string

// Int converts a numeric field previously validated by Extract.
func (v Values) Int(label string) (int, error) {
	return strconv.Atoi(v[label])
}

// Extract locates the spec's marker block inside text and returns its field
// values. Extraction is all-or-nothing: every field of the spec must be
// present and well-typed, otherwise no values are returned and the cause
// comes back wrapped around one of the package sentinels.
func (s Spec) Extract(text string) (Values, error) {
	idx := strings.Index(text, s.Header)
	if idx < 0 {
		return nil, fmt.Errorf("%w: header %q", ErrNoBlock, s.Header)
	}

	block := text[idx+len(s.Header):]
	if end := strings.Index(block, "\n\n"); end >= 0 {
		block = block[:end]
	}

	values := make(Values, len(s.Fields))
	for _, f := range s.Fields {
		raw, ok := fieldValue(block, f.Label)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingField, f.Label)
		}
		if f.Numeric {
			num, ok := leadingInt(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %s = %q", ErrBadNumber, f.Label, raw)
			}
			raw = num
		}
		values[f.Label] = raw
	}
	return values, nil
}

// fieldValue scans the block line by line for "label: value". The label is
// matched case-insensitively; an empty value counts as missing.
func fieldValue(block, label string) (string, bool) {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-* \t")

		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), label) {
			continue
		}
		if value := strings.TrimSpace(rest); value != "" {
			return value, true
		}
		return "", false
	}
	return "", false
}

func leadingInt(value string) (string, bool) {
	i := 0
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", false
	}
	return value[:i], true
}
