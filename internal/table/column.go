package table

import (
	"fmt"
	"strings"
)

// ValueType is the declared type of a column's values.
// It drives both the filter widget and the edit input.
type ValueType string

const (
	ValueString  ValueType = "string"
	ValueBoolean ValueType = "boolean"
	ValueNumber  ValueType = "number"
	ValueDate    ValueType = "date"
	ValueList    ValueType = "list"
)

// ActionsKey is the reserved key and data index of the synthetic Actions column.
const ActionsKey = "actions"

// Column is a caller-declared column descriptor.
type Column struct {
	Key       string    `yaml:"key" json:"key"`
	Title     string    `yaml:"title" json:"title"`
	DataIndex string    `yaml:"dataIndex" json:"dataIndex"`
	ValueType ValueType `yaml:"valueType" json:"valueType"`
	Width     int       `yaml:"width,omitempty" json:"width,omitempty"`

	IsFilterable bool `yaml:"filterable" json:"isFilterable"`
	IsEditable   bool `yaml:"editable" json:"isEditable"`
	IsSortable   bool `yaml:"sortable" json:"isSortable"`

	// OnFilterChange receives the change request emitted when this
	// column's filter is set or cleared. When nil the controller's
	// OnChange is used instead.
	OnFilterChange FilterFunc `yaml:"-" json:"-"`
}

// Display holds the fields forwarded verbatim to the renderer.
type Display struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	DataIndex string    `json:"dataIndex"`
	ValueType ValueType `json:"valueType"`
	Width     int       `json:"width,omitempty"`
}

// Display strips the behavior-only fields from c.
func (c Column) Display() Display {
	return Display{
		Key:       c.Key,
		Title:     c.Title,
		DataIndex: c.DataIndex,
		ValueType: c.ValueType,
		Width:     c.Width,
	}
}

// Record is one row of the data source.
type Record struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

// Value returns the field stored under dataIndex.
func (r Record) Value(dataIndex string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[dataIndex]
}

// ValidateColumns reports configuration problems that would corrupt
// controller state: empty or duplicated data indexes on filterable or
// editable columns, and use of the reserved Actions key.
func ValidateColumns(columns []Column) error {
	var errs []string
	seen := make(map[string]string)

	for i, c := range columns {
		if c.Key == ActionsKey || c.DataIndex == ActionsKey {
			errs = append(errs, fmt.Sprintf("column %d: %q is reserved", i, ActionsKey))
		}
		if !c.IsFilterable && !c.IsEditable {
			continue
		}
		if c.DataIndex == "" {
			errs = append(errs, fmt.Sprintf("column %d (%s): filterable or editable column needs a dataIndex", i, c.Title))
			continue
		}
		if prev, ok := seen[c.DataIndex]; ok {
			errs = append(errs, fmt.Sprintf("dataIndex %q used by both %q and %q", c.DataIndex, prev, c.Title))
			continue
		}
		seen[c.DataIndex] = c.Title
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid columns:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
