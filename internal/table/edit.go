package table

import (
	"context"
	"errors"
)

var (
	// ErrInvalid wraps validation failures returned by Form.Validate.
	ErrInvalid = errors.New("validation failed")

	// ErrNotEditing is returned when saving a row that is not in edit mode.
	ErrNotEditing = errors.New("row is not being edited")

	// ErrStaleSave is returned when a save completed after the edit
	// session had moved on. The result is discarded.
	ErrStaleSave = errors.New("stale save discarded")
)

// SaveFunc persists a validated row. It is the caller's onSave.
type SaveFunc func(ctx context.Context, row map[string]any, key string) error

// ValidateFunc checks an edit buffer and returns the validated values.
type ValidateFunc func(values map[string]any) (map[string]any, error)

// Form is the edit buffer of exactly one row, passed explicitly to the
// cells and actions of that row.
type Form interface {
	Value(field string) (any, bool)
	SetValue(field string, v any)
	Validate() (map[string]any, error)
}

// Buffer is the default Form implementation.
type Buffer struct {
	rowKey   string
	values   map[string]any
	validate ValidateFunc
}

// NewBuffer starts an edit buffer seeded with the record's fields.
func NewBuffer(rec Record, validate ValidateFunc) *Buffer {
	values := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		values[k] = v
	}
	return &Buffer{rowKey: rec.Key, values: values, validate: validate}
}

// RowKey returns the key of the row the buffer belongs to.
func (b *Buffer) RowKey() string { return b.rowKey }

func (b *Buffer) Value(field string) (any, bool) {
	v, ok := b.values[field]
	return v, ok
}

func (b *Buffer) SetValue(field string, v any) {
	b.values[field] = v
}

// Validate runs the validation collaborator over a copy of the buffer.
func (b *Buffer) Validate() (map[string]any, error) {
	values := make(map[string]any, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	if b.validate == nil {
		return values, nil
	}
	return b.validate(values)
}

// SaveTicket identifies one save attempt. A ticket only completes the
// session it was issued for.
type SaveTicket struct {
	Key string
	gen uint64
}

// EditSession tracks the single row in edit mode.
// The zero value is Idle.
type EditSession struct {
	key     string
	editing bool
	gen     uint64
}

// Edit puts key in edit mode, abandoning any other row's edit.
func (s *EditSession) Edit(key string) {
	s.key = key
	s.editing = true
	s.gen++
}

// Cancel returns to Idle and discards the unsaved buffer.
func (s *EditSession) Cancel() {
	if !s.editing {
		return
	}
	s.key = ""
	s.editing = false
	s.gen++
}

// Key returns the row being edited.
func (s *EditSession) Key() (string, bool) {
	return s.key, s.editing
}

// IsEditing reports whether rec is the row being edited.
func (s *EditSession) IsEditing(rec Record) bool {
	return s.editing && rec.Key == s.key
}

// Begin issues a ticket for saving key. It fails if key is not being edited.
func (s *EditSession) Begin(key string) (SaveTicket, bool) {
	if !s.editing || s.key != key {
		return SaveTicket{}, false
	}
	return SaveTicket{Key: key, gen: s.gen}, true
}

// Complete moves to Idle if the session still belongs to t.
// It reports false for stale tickets and leaves state untouched.
func (s *EditSession) Complete(t SaveTicket) bool {
	if !s.editing || s.key != t.Key || s.gen != t.gen {
		return false
	}
	s.key = ""
	s.editing = false
	s.gen++
	return true
}
