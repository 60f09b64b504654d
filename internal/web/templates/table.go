package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/render"
	"github.com/JonMunkholm/datatable/internal/table"
)

// TableID is the element id HTMX requests swap.
const TableID = "datatable"

// TableView is everything the table partial needs.
type TableView struct {
	Info core.TableInfo
	View table.View

	// Draft holds submitted edit inputs by dataIndex, kept after a
	// failed save so the user does not retype them.
	Draft map[string]string
	// Errors holds field messages by dataIndex.
	Errors map[string]string
	// Notice is a one-line status shown above the grid.
	Notice string
}

func (tv TableView) base() string {
	return TableURL(tv.Info.Key)
}

// Table renders the grid partial: header label row, filter row, body,
// and pager. It is the swap target of every table interaction.
func Table(tv TableView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(w)
		v := tv.View

		h.raw("<div")
		h.attr("id", TableID)
		if v.Loading {
			h.attr("class", "loading")
			h.attr("aria-busy", "true")
		}
		h.raw("><h1>")
		h.text(tv.Info.Label)
		h.raw("</h1>")
		if tv.Notice != "" {
			h.raw("<p class=\"notice\">")
			h.text(tv.Notice)
			h.raw("</p>")
		}
		if v.Loading {
			h.raw("<p>Loading…</p>")
		}

		h.raw("<table><thead><tr class=\"labels\">")
		for _, c := range v.Columns {
			labelCell(h, tv, c)
		}
		h.raw("</tr>")
		if v.Header.HasFilterRow() {
			h.raw("<tr class=\"filters\">")
			for _, f := range v.Header.Filters {
				filterCell(h, tv, f)
			}
			h.raw("</tr>")
		}
		h.raw("</thead><tbody>")
		if len(v.Rows) == 0 {
			h.raw("<tr><td")
			h.intAttr("colspan", max(len(v.Columns), 1))
			h.raw(">No data</td></tr>")
		}
		for _, rec := range v.Rows {
			row(h, tv, rec)
		}
		h.raw("</tbody></table>")

		if v.Pagination != nil {
			pager(h, tv, *v.Pagination)
		}
		h.raw("</div>")
		return h.err
	})
}

// swapAttrs targets the table partial.
func swapAttrs(h *html) {
	h.attr("hx-target", "#"+TableID)
	h.attr("hx-swap", "outerHTML")
}

func labelCell(h *html, tv TableView, c table.AugmentedColumn) {
	h.raw("<th")
	h.attr("data-key", c.Key)
	h.raw(">")
	if !c.Sortable {
		h.text(c.Title)
		h.raw("</th>")
		return
	}

	sort := tv.View.Sort
	next := "ascend"
	marker := ""
	if sort.Field == c.DataIndex {
		switch sort.Order {
		case "ascend":
			next, marker = "descend", " ▲"
		case "descend":
			next, marker = "", " ▼"
		}
	}

	q := pageQuery(tv.View)
	if next != "" {
		q.Set("field", c.DataIndex)
		q.Set("order", next)
	}
	h.raw("<a class=\"sort\" href=\"#\"")
	h.attr("hx-get", tv.base()+"/change?"+q.Encode())
	swapAttrs(h)
	h.raw(">")
	h.text(c.Title + marker)
	h.raw("</a></th>")
}

// pageQuery carries the current page so a header click is a sort-only change.
func pageQuery(v table.View) url.Values {
	q := url.Values{}
	if v.Pagination != nil {
		q.Set("current", strconv.Itoa(v.Pagination.Current))
		q.Set("pageSize", strconv.Itoa(v.Pagination.PageSize))
	}
	return q
}

func filterCell(h *html, tv TableView, cell table.FilterCell) {
	h.raw("<th>")
	defer h.raw("</th>")
	if cell.Filter == nil {
		return
	}

	spec := cell.Filter
	current, active := tv.View.Search[cell.Key]
	value := render.FilterValue(current, spec.Kind)
	action := tv.base() + "/filter/" + url.PathEscape(cell.Key)

	switch spec.Kind {
	case table.FilterText:
		h.raw("<form")
		h.attr("hx-post", action)
		swapAttrs(h)
		h.raw("><input type=\"search\" name=\"value\"")
		h.attr("placeholder", spec.Placeholder)
		h.attr("value", value)
		// Emptying the box clears the filter without a submit.
		h.raw(" hx-trigger=\"input[this.value==''], search[this.value=='']\" hx-vals='{\"clear\":\"1\"}'")
		h.attr("hx-post", action)
		swapAttrs(h)
		h.raw("></form>")

	case table.FilterBooleanChoice:
		h.raw("<select name=\"value\" hx-trigger=\"change\"")
		h.attr("hx-post", action)
		swapAttrs(h)
		h.raw(">")
		for _, opt := range spec.Choices {
			optValue := "all"
			if opt.Value != nil {
				optValue = render.FilterValue(opt.Value, spec.Kind)
			}
			h.raw("<option")
			h.attr("value", optValue)
			h.flag("selected", active && optValue == value || !active && opt.Value == nil)
			h.raw(">")
			h.text(opt.Label)
			h.raw("</option>")
		}
		h.raw("</select>")

	case table.FilterDate:
		h.raw("<input type=\"date\" name=\"value\" hx-trigger=\"change\"")
		h.attr("hx-post", action)
		h.attr("value", value)
		swapAttrs(h)
		h.raw(">")

	default:
		h.raw("<input type=\"text\" disabled")
		h.attr("placeholder", spec.Placeholder)
		h.raw(">")
		return
	}

	if active {
		h.raw("<button type=\"button\" title=\"Clear filter\" hx-vals='{\"clear\":\"1\"}'")
		h.attr("hx-post", action)
		swapAttrs(h)
		h.raw(">×</button>")
	}
}

func row(h *html, tv TableView, rec table.Record) {
	h.raw("<tr")
	h.attr("data-row", rec.Key)
	h.raw(">")
	for _, c := range tv.View.Columns {
		h.raw("<td>")
		if c.IsActions() {
			actions(h, tv, rec, c.Render(rec, nil))
		} else {
			cell(h, tv, c.BodyCell(rec))
		}
		h.raw("</td>")
	}
	h.raw("</tr>")
}

func cell(h *html, tv TableView, p table.BodyCellProps) {
	if !p.Editing || !p.IsEditable {
		h.text(render.Cell(p.Record.Value(p.DataIndex), p.ValueType))
		return
	}

	value, ok := tv.Draft[p.DataIndex]
	if !ok {
		value = render.Input(p.Record.Value(p.DataIndex), p.ValueType)
	}

	h.raw("<input")
	if p.ValueType == table.ValueNumber {
		h.raw(" type=\"number\" step=\"any\"")
	} else {
		h.raw(" type=\"text\"")
	}
	h.attr("name", p.DataIndex)
	h.attr("value", value)
	h.attr("aria-label", p.Title)
	msg, invalid := tv.Errors[p.DataIndex]
	if invalid {
		h.attr("aria-invalid", "true")
	}
	h.raw(">")
	if invalid {
		h.raw("<div class=\"field-error\">")
		h.text(msg)
		h.raw("</div>")
	}
}

func actions(h *html, tv TableView, rec table.Record, acts []table.Action) {
	for _, a := range acts {
		h.raw("<button type=\"button\"")
		h.attr("hx-post", tv.base()+"/rows/"+url.PathEscape(rec.Key)+"/"+string(a.Kind))
		if a.Kind == table.ActionSave {
			h.attr("hx-include", "closest tr")
		}
		if a.Confirm != "" {
			h.attr("hx-confirm", a.Confirm)
		}
		swapAttrs(h)
		h.raw(">")
		h.text(a.Label)
		h.raw("</button> ")
	}
}

func pager(h *html, tv TableView, p table.Pagination) {
	pages := 1
	if p.PageSize > 0 && p.Total > 0 {
		pages = (p.Total + p.PageSize - 1) / p.PageSize
	}

	link := func(label string, page int, enabled bool) {
		if !enabled {
			h.raw("<span>")
			h.text(label)
			h.raw("</span>")
			return
		}
		q := url.Values{}
		q.Set("current", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(p.PageSize))
		if s := tv.View.Sort; s.Field != "" {
			q.Set("field", s.Field)
			q.Set("order", s.Order)
		}
		h.raw("<a href=\"#\"")
		h.attr("hx-get", tv.base()+"/change?"+q.Encode())
		swapAttrs(h)
		h.raw(">")
		h.text(label)
		h.raw("</a>")
	}

	h.raw("<nav class=\"pager\">")
	link("‹ Prev", p.Current-1, p.Current > table.FirstPage)
	h.raw("<span>Page ")
	h.text(strconv.Itoa(p.Current))
	h.raw(" of ")
	h.text(strconv.Itoa(pages))
	h.raw(" · ")
	h.text(strconv.Itoa(p.Total))
	h.raw(" rows</span>")
	link("Next ›", p.Current+1, p.Current < pages)
	h.raw("</nav>")
}
