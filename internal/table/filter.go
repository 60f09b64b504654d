package table

import (
	"strings"
	"time"
)

// FilterKind tags the filter widget a column gets.
type FilterKind int

const (
	FilterText FilterKind = iota
	FilterBooleanChoice
	FilterDate
	FilterUnsupported
)

func (k FilterKind) String() string {
	switch k {
	case FilterText:
		return "text"
	case FilterBooleanChoice:
		return "boolean"
	case FilterDate:
		return "date"
	default:
		return "unsupported"
	}
}

// filterKinds is the single dispatch table from value type to widget.
// Value types missing from the table get FilterUnsupported.
var filterKinds = map[ValueType]FilterKind{
	"":           FilterText,
	ValueString:  FilterText,
	ValueNumber:  FilterText,
	ValueBoolean: FilterBooleanChoice,
	ValueDate:    FilterDate,
	ValueList:    FilterUnsupported,
}

// KindOf returns the filter kind for a value type.
func KindOf(vt ValueType) FilterKind {
	if k, ok := filterKinds[vt]; ok {
		return k
	}
	return FilterUnsupported
}

// Choice is one entry of a choice filter. A nil Value means "All".
type Choice struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// booleanChoices are offered by FilterBooleanChoice; "All" comes first.
var booleanChoices = []Choice{
	{Label: "All", Value: nil},
	{Label: "No", Value: false},
	{Label: "Yes", Value: true},
}

// unsupportedLabel is shown by the inert placeholder widget.
const unsupportedLabel = "List Filter"

// FilterSpec is the behavior of one column's filter widget.
type FilterSpec struct {
	Kind        FilterKind
	Placeholder string
	Choices     []Choice

	search func(any)
	clear  func()
}

// SelectFilter picks the filter behavior for a column.
func SelectFilter(vt ValueType, title string, onSearch func(any), onClear func()) FilterSpec {
	spec := FilterSpec{
		Kind:   KindOf(vt),
		search: onSearch,
		clear:  onClear,
	}

	switch spec.Kind {
	case FilterText:
		spec.Placeholder = "Search " + strings.ToLower(title)
	case FilterBooleanChoice:
		spec.Choices = booleanChoices
	case FilterUnsupported:
		spec.Placeholder = unsupportedLabel
	}
	return spec
}

// Live reports whether the widget can emit searches.
func (f FilterSpec) Live() bool {
	return f.Kind != FilterUnsupported
}

// Choose selects the option at index i of a choice filter.
// Choosing "All" clears the column's filter.
func (f FilterSpec) Choose(i int) bool {
	if f.Kind != FilterBooleanChoice || i < 0 || i >= len(f.Choices) {
		return false
	}
	opt := f.Choices[i]
	if opt.Value == nil {
		f.fireClear()
		return true
	}
	f.fireSearch(opt.Value)
	return true
}

// ChooseValue selects a choice option by its form value ("", "all", "true", "false").
func (f FilterSpec) ChooseValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all":
		return f.Choose(0)
	case "false", "no":
		return f.Choose(1)
	case "true", "yes":
		return f.Choose(2)
	}
	return false
}

// Pick emits the Unix-millisecond timestamp of t for a date filter.
// The zero time clears the filter.
func (f FilterSpec) Pick(t time.Time) bool {
	if f.Kind != FilterDate {
		return false
	}
	if t.IsZero() {
		f.fireClear()
		return true
	}
	f.fireSearch(t.UnixMilli())
	return true
}

// TextField returns the free-text input of a text filter.
func (f FilterSpec) TextField() *TextField {
	return &TextField{spec: f}
}

func (f FilterSpec) fireSearch(v any) {
	if f.search != nil {
		f.search(v)
	}
}

func (f FilterSpec) fireClear() {
	if f.clear != nil {
		f.clear()
	}
}

// TextField buffers typed text. Typing never commits a search;
// only Submit does. Emptying the buffer clears immediately.
type TextField struct {
	spec   FilterSpec
	buffer string
}

// Value returns the current buffer.
func (t *TextField) Value() string {
	return t.buffer
}

// Change replaces the buffer.
func (t *TextField) Change(text string) {
	t.buffer = text
	if t.buffer == "" && t.spec.Kind == FilterText {
		t.spec.fireClear()
	}
}

// Submit commits the buffer as a search, if there is one.
func (t *TextField) Submit() bool {
	if t.spec.Kind != FilterText || t.buffer == "" {
		return false
	}
	t.spec.fireSearch(t.buffer)
	return true
}
