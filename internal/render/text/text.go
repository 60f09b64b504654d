// Package text renders a table view as aligned plain text for terminals.
package text

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/JonMunkholm/datatable/internal/render"
	"github.com/JonMunkholm/datatable/internal/table"
)

// DefaultMaxWidth caps a column's width; longer cells are truncated.
const DefaultMaxWidth = 40

const ellipsis = "…"

// Renderer writes tables to a writer.
type Renderer struct {
	w        io.Writer
	maxWidth int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxWidth sets the widest a column may get. Zero disables the cap.
func WithMaxWidth(n int) Option {
	return func(r *Renderer) {
		if n >= 0 {
			r.maxWidth = n
		}
	}
}

// New creates a Renderer writing to w.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, maxWidth: DefaultMaxWidth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// View writes the data columns of v, a filter summary when filters are
// active, and a pagination footer. The Actions column is skipped; the
// row being edited is marked with "*".
func (r *Renderer) View(v table.View) error {
	var cols []table.AugmentedColumn
	for _, c := range v.Columns {
		if !c.IsActions() {
			cols = append(cols, c)
		}
	}

	header := make([]string, len(cols)+1)
	for i, c := range cols {
		header[i+1] = c.Title
	}

	rows := make([][]string, len(v.Rows))
	for i, rec := range v.Rows {
		row := make([]string, len(cols)+1)
		if rec.Key != "" && rec.Key == v.EditingKey {
			row[0] = "*"
		}
		for j, c := range cols {
			row[j+1] = render.Cell(rec.Value(c.DataIndex), c.ValueType)
		}
		rows[i] = row
	}

	if err := r.grid(header, rows); err != nil {
		return err
	}

	if len(v.Search) > 0 {
		if _, err := fmt.Fprintf(r.w, "filters: %s\n", searchSummary(v)); err != nil {
			return err
		}
	}
	if v.Pagination != nil {
		if _, err := fmt.Fprintln(r.w, pageSummary(*v.Pagination)); err != nil {
			return err
		}
	}
	return nil
}

// Columns writes one line per column descriptor: its data index, value
// type, filter widget and flags.
func (r *Renderer) Columns(columns []table.Column) error {
	header := []string{"TITLE", "DATA INDEX", "TYPE", "FILTER", "EDITABLE", "SORTABLE"}
	rows := make([][]string, len(columns))
	for i, c := range columns {
		filter := "-"
		if c.IsFilterable {
			filter = table.KindOf(c.ValueType).String()
		}
		vt := string(c.ValueType)
		if vt == "" {
			vt = string(table.ValueString)
		}
		rows[i] = []string{c.Title, c.DataIndex, vt, filter, yesNo(c.IsEditable), yesNo(c.IsSortable)}
	}
	return r.grid(header, rows)
}

func (r *Renderer) grid(header []string, rows [][]string) error {
	widths := make([]int, len(header))
	measure := func(cells []string) {
		for i, cell := range cells {
			if w := runewidth.StringWidth(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}
	if r.maxWidth > 0 {
		for i, w := range widths {
			if w > r.maxWidth {
				widths[i] = r.maxWidth
			}
		}
	}

	if err := r.line(header, widths); err != nil {
		return err
	}
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	if err := r.line(rule, widths); err != nil {
		return err
	}
	for _, row := range rows {
		if err := r.line(row, widths); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) line(cells []string, widths []int) error {
	var b strings.Builder
	for i, w := range widths {
		if w == 0 {
			continue
		}
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if runewidth.StringWidth(cell) > w {
			cell = runewidth.Truncate(cell, w, ellipsis)
		}
		if b.Len() > 0 {
			b.WriteString("  ")
		}
		b.WriteString(runewidth.FillRight(cell, w))
	}
	_, err := fmt.Fprintln(r.w, strings.TrimRight(b.String(), " "))
	return err
}

func searchSummary(v table.View) string {
	kinds := make(map[string]table.FilterKind, len(v.Columns))
	for _, c := range v.Columns {
		kinds[c.DataIndex] = table.KindOf(c.ValueType)
	}

	keys := make([]string, 0, len(v.Search))
	for k := range v.Search {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + render.FilterValue(v.Search[k], kinds[k])
	}
	return strings.Join(parts, " ")
}

func pageSummary(p table.Pagination) string {
	pages := 1
	if p.PageSize > 0 && p.Total > 0 {
		pages = (p.Total + p.PageSize - 1) / p.PageSize
	}
	return fmt.Sprintf("page %d of %d (%d rows, %d per page)", p.Current, pages, p.Total, p.PageSize)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
