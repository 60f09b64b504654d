package core

// validation.go checks an edit buffer before it is saved.
//
// Only editable fields are validated and returned; anything else in the
// buffer (display-only values, the row key) is dropped so a save can
// never touch columns the catalog does not allow editing.

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/datatable/internal/table"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Column title
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every failing field of one row.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// ByField indexes the errors by column title for inline display.
func (e ValidationErrors) ByField() map[string]string {
	m := make(map[string]string, len(e))
	for _, ve := range e {
		if _, ok := m[ve.Field]; !ok {
			m[ve.Field] = ve.Message
		}
	}
	return m
}

// RowValidator validates edit buffers against a table's fields.
type RowValidator struct {
	fields []FieldSpec
}

// NewRowValidator creates a validator for the given fields.
func NewRowValidator(fields []FieldSpec) *RowValidator {
	return &RowValidator{fields: fields}
}

// Validate checks values and returns the editable fields, trimmed.
// It satisfies table.ValidateFunc.
func (v *RowValidator) Validate(values map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	var errs ValidationErrors

	for _, f := range v.fields {
		if !f.IsEditable {
			continue
		}
		raw, present := values[f.DataIndex]

		if s, ok := raw.(string); ok {
			raw = strings.TrimSpace(s)
		}
		if isBlank(raw) {
			if f.Required() {
				errs = append(errs, ValidationError{
					Field:   f.Title,
					Message: requiredMessage(f.Title),
				})
				continue
			}
			if present {
				out[f.DataIndex] = nil
			}
			continue
		}

		if err := ValidateCell(raw, f); err != nil {
			errs = append(errs, ValidationError{
				Field:   f.Title,
				Value:   fmt.Sprint(raw),
				Message: err.Error(),
			})
			continue
		}
		out[f.DataIndex] = raw
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// requiredMessage is shown under an empty required input.
func requiredMessage(title string) string {
	return fmt.Sprintf("Please Input %s!", title)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// ValidateCell checks one non-empty value against the field's type.
func ValidateCell(value any, f FieldSpec) error {
	if _, ok := value.(string); !ok {
		// native values from JSON or the controller are already typed
		switch f.ValueType {
		case table.ValueBoolean:
			if _, ok := value.(bool); ok {
				return nil
			}
		case table.ValueNumber:
			switch value.(type) {
			case int, int64, float64:
				return nil
			}
		case table.ValueDate:
			if _, ok := value.(time.Time); ok {
				return nil
			}
		}
	}

	s := fmt.Sprint(value)
	switch f.ValueType {
	case table.ValueNumber:
		if !ToPgNumeric(s).Valid {
			return fmt.Errorf("invalid number format")
		}
	case table.ValueDate:
		if !ToPgDate(s).Valid {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD or similar)")
		}
	case table.ValueBoolean:
		if !ToPgBool(s).Valid {
			return fmt.Errorf("must be yes/no, true/false, or 1/0")
		}
	case table.ValueList:
		return fmt.Errorf("list values cannot be edited")
	}
	return nil
}
