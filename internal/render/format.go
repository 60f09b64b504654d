// Package render holds the value formatting shared by the HTML and
// plain-text table renderers.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/datatable/internal/table"
)

// DateLayout is how date cells and date filter inputs are written.
const DateLayout = "2006-01-02"

// Cell formats a record value for display in a column of type vt.
// nil renders as the empty string.
func Cell(v any, vt table.ValueType) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case time.Time:
		if vt == table.ValueDate {
			return t.Format(DateLayout)
		}
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = Cell(p, "")
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

// Input formats a value as the initial text of an edit input.
// Booleans are written as true/false so they parse back unchanged.
func Input(v any, vt table.ValueType) string {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return Cell(v, vt)
}

// FilterValue formats an active search value for the filter widget.
// Date filters hold Unix milliseconds and are shown as a calendar day.
func FilterValue(v any, kind table.FilterKind) string {
	if v == nil {
		return ""
	}
	if kind == table.FilterDate {
		switch ms := v.(type) {
		case int64:
			return time.UnixMilli(ms).UTC().Format(DateLayout)
		case float64:
			return time.UnixMilli(int64(ms)).UTC().Format(DateLayout)
		}
	}
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return fmt.Sprint(v)
}

// ParseDay parses a date filter input. The empty string is the zero time.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
