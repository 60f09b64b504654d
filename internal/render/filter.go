package render

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/table"
)

// ApplyFilter drives the filter widget of dataIndex with a text input,
// the way a user would: text filters type and submit, boolean choices
// pick by value, date filters pick a YYYY-MM-DD day. clear removes the
// column's filter. Errors wrap core.ErrInvalidFilter.
func ApplyFilter(header table.HeaderRows, dataIndex, value string, clear bool) error {
	idx := -1
	for i, l := range header.Labels {
		if l.Filterable && l.DataIndex == dataIndex {
			idx = i
			break
		}
	}
	if idx < 0 || !header.HasFilterRow() {
		return fmt.Errorf("%w: column %q has no filter", core.ErrInvalidFilter, dataIndex)
	}

	if clear {
		header.Labels[idx].OnClear()
		return nil
	}

	spec := header.Filters[idx].Filter
	if !spec.Live() {
		return fmt.Errorf("%w: column %q cannot be filtered", core.ErrInvalidFilter, dataIndex)
	}
	switch spec.Kind {
	case table.FilterText:
		tf := spec.TextField()
		tf.Change(strings.TrimSpace(value))
		tf.Submit()
	case table.FilterBooleanChoice:
		if !spec.ChooseValue(value) {
			return fmt.Errorf("%w: %q is not a yes/no choice", core.ErrInvalidFilter, value)
		}
	case table.FilterDate:
		day, err := ParseDay(value)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrInvalidFilter, err)
		}
		spec.Pick(day)
	}
	return nil
}

// ParseFilterArg splits a "dataIndex=value" filter argument.
func ParseFilterArg(arg string) (dataIndex, value string, err error) {
	dataIndex, value, ok := strings.Cut(arg, "=")
	dataIndex = strings.TrimSpace(dataIndex)
	if !ok || dataIndex == "" {
		return "", "", fmt.Errorf("%w: %q is not dataIndex=value", core.ErrInvalidFilter, arg)
	}
	return dataIndex, value, nil
}
