package table

// FilterCell is one cell of the filter row. Filter is nil for
// columns that are not filterable.
type FilterCell struct {
	Key    string
	Filter *FilterSpec
}

// HeaderRows is the composed table header.
type HeaderRows struct {
	Labels  []HeaderCellProps
	Filters []FilterCell // nil when no column is filterable
}

// HasFilterRow reports whether the filter row is rendered.
func (h HeaderRows) HasFilterRow() bool {
	return h.Filters != nil
}

// ComposeHeader builds the label row and, when at least one column is
// filterable, the filter row beneath it.
func ComposeHeader(cells []HeaderCellProps) HeaderRows {
	rows := HeaderRows{Labels: cells}

	hasFilterRow := false
	for _, c := range cells {
		if c.Filterable {
			hasFilterRow = true
			break
		}
	}
	if !hasFilterRow {
		return rows
	}

	rows.Filters = make([]FilterCell, len(cells))
	for i, c := range cells {
		cell := FilterCell{Key: c.DataIndex}
		if c.Filterable {
			spec := SelectFilter(c.ValueType, c.Title, c.OnSearch, c.OnClear)
			cell.Filter = &spec
		}
		rows.Filters[i] = cell
	}
	return rows
}
