package core

// Edit forms post strings. The ToPg* converters accept what people type
// into a cell and return Valid=false for blank or unparseable input.

import (
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TwoDigitYearPivot is how many years past the current one a two-digit
// year may resolve to before it falls back a century.
var TwoDigitYearPivot = 20

// dateLayouts are tried in order. ISO forms come first so "2024-03-04"
// never reads as a US or EU date.
var dateLayouts = []struct {
	layout   string
	shortYrs bool
}{
	{"2006-01-02", false},
	{"2006/01/02", false},
	{"2006.01.02", false},
	{time.RFC3339, false},
	{"20060102", false},
	{"1/2/2006", false},
	{"1-2-2006", false},
	{"1.2.2006", false},
	{"Jan 2, 2006", false},
	{"2 Jan 2006", false},
	{"1/2/06", true},
	{"1-2-06", true},
	{"1.2.06", true},
}

var plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var numberNoise = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")

var boolWords = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true,
	"false": false, "f": false, "no": false, "n": false, "0": false,
}

// ToPgText trims s; blank is NULL.
func ToPgText(s string) pgtype.Text {
	if s = strings.TrimSpace(s); s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate parses a user-typed date.
func ToPgDate(s string) pgtype.Date {
	t, ok := parseUserDate(strings.TrimSpace(s), time.Now())
	if !ok {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func parseUserDate(s string, now time.Time) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.shortYrs && t.Year() > now.Year()+TwoDigitYearPivot {
			t = t.AddDate(-100, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

// ToPgNumeric parses a number, tolerating currency symbols, thousands
// separators and accounting negatives such as "(12.50)".
func ToPgNumeric(s string) pgtype.Numeric {
	text, ok := normalizeNumber(s)
	if !ok {
		return pgtype.Numeric{}
	}
	var n pgtype.Numeric
	if err := n.Scan(text); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

func normalizeNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	inner, negative := strings.CutPrefix(s, "(")
	if negative {
		if inner, negative = strings.CutSuffix(inner, ")"); !negative {
			return "", false
		}
		s = inner
	}
	s = numberNoise.Replace(s)
	if negative {
		s = "-" + s
	}
	return s, plainNumber.MatchString(s)
}

// ToPgBool accepts true/false, yes/no, t/f, y/n and 1/0 in any case.
func ToPgBool(s string) pgtype.Bool {
	b, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: b, Valid: true}
}
