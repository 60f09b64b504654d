package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/datatable/internal/table"
)

// WhereBuilder accumulates AND-ed conditions with positional arguments.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

func (wb *WhereBuilder) push(format string, value any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// Add appends "column = $n". nil and empty-string values are skipped.
func (wb *WhereBuilder) Add(column string, value any) {
	if value == nil {
		return
	}
	if s, ok := value.(string); ok && s == "" {
		return
	}
	wb.push(column+" = $%d", value)
}

// AddILike appends a case-insensitive substring match.
func (wb *WhereBuilder) AddILike(column, text string) {
	if text == "" {
		return
	}
	wb.push(column+" ILIKE $%d", "%"+escapeLike(text)+"%")
}

// AddDay matches rows whose column falls on the calendar day of day (UTC).
func (wb *WhereBuilder) AddDay(column string, day time.Time) {
	if day.IsZero() {
		return
	}
	y, m, d := day.UTC().Date()
	wb.push(column+"::date = $%d", pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true})
}

// AddSearch translates a change request's search state into conditions.
// Keys are processed in sorted order so the generated SQL is stable.
func (wb *WhereBuilder) AddSearch(search map[string]any, fields []FieldSpec) error {
	keys := make([]string, 0, len(search))
	for k := range search {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		f, ok := findField(fields, key)
		if !ok || !f.IsFilterable {
			return fmt.Errorf("%w: %s is not a filterable column", ErrInvalidFilter, key)
		}
		if err := wb.addFieldFilter(f, search[key]); err != nil {
			return err
		}
	}
	return nil
}

func (wb *WhereBuilder) addFieldFilter(f FieldSpec, value any) error {
	if value == nil {
		return nil
	}
	column := quoteIdentifier(f.DBColumn)

	switch table.KindOf(f.ValueType) {
	case table.FilterText:
		text := strings.TrimSpace(fmt.Sprint(value))
		if text == "" {
			return nil
		}
		if f.ValueType != table.ValueNumber {
			wb.AddILike(column, text)
			return nil
		}
		n := ToPgNumeric(text)
		if !n.Valid {
			return fmt.Errorf("%w: %s: invalid number %q", ErrInvalidFilter, f.DataIndex, text)
		}
		wb.Add(column, n)

	case table.FilterBooleanChoice:
		b, ok := value.(bool)
		if !ok {
			pb := ToPgBool(fmt.Sprint(value))
			if !pb.Valid {
				return fmt.Errorf("%w: %s: invalid boolean %v", ErrInvalidFilter, f.DataIndex, value)
			}
			b = pb.Bool
		}
		wb.Add(column, b)

	case table.FilterDate:
		ms, err := toMillis(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidFilter, f.DataIndex, err)
		}
		wb.AddDay(column, time.UnixMilli(ms))

	default:
		return fmt.Errorf("%w: %s: %s columns cannot be filtered", ErrInvalidFilter, f.DataIndex, f.ValueType)
	}
	return nil
}

// Build returns the WHERE clause (with a leading space) and its args.
// Both are empty when no condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex returns the next free placeholder number.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// toMillis accepts the timestamp shapes a date filter arrives in: native
// integers from the controller, float64 or json.Number from JSON, and
// digit strings from forms.
func toMillis(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case time.Time:
		return n.UnixMilli(), nil
	case string:
		ms, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", n)
		}
		return ms, nil
	}
	return 0, fmt.Errorf("invalid timestamp %v", v)
}

func findField(fields []FieldSpec, dataIndex string) (FieldSpec, bool) {
	for _, f := range fields {
		if f.DataIndex == dataIndex {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// toDBColumnName derives a snake_case column name from a data index.
// "createdAt" -> "created_at", "Account Name" -> "account_name".
func toDBColumnName(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return b.String()
}
