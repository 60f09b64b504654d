package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
	"github.com/JonMunkholm/datatable/internal/table"
	"github.com/JonMunkholm/datatable/internal/web/templates"
)

// filterParamPrefix marks API query parameters carrying filters:
// ?filter.name=ann&filter.active=true
const filterParamPrefix = "filter."

// handleHealth reports liveness plus table, session and query usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":   "ok",
		"tables":   core.TableCount(),
		"sessions": s.sessions.len(),
	}
	if l, ok := s.source.(limited); ok && l.Limiter() != nil {
		status["queries"] = l.Limiter().Status()
	}
	writeJSON(w, http.StatusOK, status)
}

// handleIndex lists the tables grouped for navigation.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var groups []templates.TableGroup
	for _, info := range s.source.ListTables() {
		if n := len(groups); n == 0 || groups[n-1].Name != info.Group {
			groups = append(groups, templates.TableGroup{Name: info.Group})
		}
		g := &groups[len(groups)-1]
		g.Tables = append(g.Tables, info)
	}
	s.render(w, r, templates.Page("Tables", templates.Index(groups)), http.StatusOK)
}

// handleTableView renders a table page, or the grid partial for HTMX.
// The session's filters, page and sort are kept; the rows are refetched.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, ts *tableSession) (int, error) {
		return http.StatusOK, ts.reload(ctx)
	})
}

// handleFilter applies one filter widget interaction. The form carries
// "value", or "clear" to remove the column's filter.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errors.Join(core.ErrInvalidFilter, err))
		return
	}
	dataIndex := chi.URLParam(r, "dataIndex")
	value := r.PostForm.Get("value")
	clear := r.PostForm.Get("clear") != ""

	s.withSession(w, r, func(ctx context.Context, ts *tableSession) (int, error) {
		if err := ts.filter(dataIndex, value, clear); err != nil {
			return 0, err
		}
		return http.StatusOK, ts.flush(ctx)
	})
}

// handleTableChange applies a pagination or sort change:
// ?current=2&pageSize=20&field=age&order=descend
func (s *Server) handleTableChange(w http.ResponseWriter, r *http.Request) {
	p, sorter := parseTableChange(r.URL.Query())

	s.withSession(w, r, func(ctx context.Context, ts *tableSession) (int, error) {
		ts.change(p, sorter)
		return http.StatusOK, ts.flush(ctx)
	})
}

// handleRowAction runs edit, save or cancel on a row. A save that fails
// validation re-renders the grid with the field messages.
func (s *Server) handleRowAction(w http.ResponseWriter, r *http.Request) {
	kind := table.ActionKind(chi.URLParam(r, "action"))
	switch kind {
	case table.ActionEdit, table.ActionSave, table.ActionCancel:
	default:
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err)
		return
	}
	rowKey := chi.URLParam(r, "rowKey")

	s.withSession(w, r, func(ctx context.Context, ts *tableSession) (int, error) {
		err := ts.rowAction(ctx, rowKey, kind, r.PostForm)
		if errors.Is(err, table.ErrInvalid) {
			return http.StatusUnprocessableEntity, nil
		}
		return http.StatusOK, err
	})
}

// handleListTables returns the registered tables as JSON.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.ListTables())
}

// handleAPITable answers a one-shot table query as JSON. Filters, page
// and sort are replayed through a fresh controller, so the response is
// exactly what the UI would show for the same interactions.
func (s *Server) handleAPITable(w http.ResponseWriter, r *http.Request) {
	def, err := core.Lookup(chi.URLParam(r, "tableKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ts, err := newTableSession(s.source, def, s.logger)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	var keys []string
	for k := range q {
		if strings.HasPrefix(k, filterParamPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := ts.filter(strings.TrimPrefix(k, filterParamPrefix), q.Get(k), false); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if q.Has("current") || q.Has("pageSize") || q.Has("field") {
		ts.change(parseTableChange(q))
	}

	if err := ts.flush(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAPITable(ts))
}

// withSession runs fn on the caller's table session under its lock and
// renders the grid with the returned status.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, ts *tableSession) (int, error)) {
	ts, err := s.tableSession(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	status, err := fn(r.Context(), ts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderTable(w, r, ts, status)
}

// tableSession returns the controller state of the request's session
// for the table in the URL, creating it on first use.
func (s *Server) tableSession(w http.ResponseWriter, r *http.Request) (*tableSession, error) {
	def, err := core.Lookup(chi.URLParam(r, "tableKey"))
	if err != nil {
		return nil, err
	}

	sid := sessionID(w, r)
	if ts, ok := s.sessions.get(sid, def.Info.Key); ok {
		return ts, nil
	}
	ts, err := newTableSession(s.source, def, s.logger)
	if err != nil {
		return nil, err
	}
	return s.sessions.put(sid, def.Info.Key, ts), nil
}

// renderTable writes the grid partial for HTMX and the full page otherwise.
// Callers hold ts.mu.
func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, ts *tableSession, status int) {
	tv := ts.view()
	if isHTMX(r) {
		s.render(w, r, partial(templates.Table(tv), templates.ClearErrors()), status)
		return
	}
	s.render(w, r, templates.Page(tv.Info.Label, templates.Table(tv)), status)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.WithFields(r.Context(), "path", r.URL.Path).Error("render failed", "error", err)
	}
}

// partial renders components one after another.
func partial(cs ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, c := range cs {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// parseTableChange reads the pagination and sort parameters. Missing
// numbers are zero, which the controller treats as "not given".
func parseTableChange(q url.Values) (table.Pagination, table.Sorter) {
	return table.Pagination{
			Current:  parseIntParam(q, "current"),
			PageSize: parseIntParam(q, "pageSize"),
		}, table.Sorter{
			Field: q.Get("field"),
			Order: q.Get("order"),
		}
}

// parseIntParam parses a positive integer parameter, zero otherwise.
func parseIntParam(q url.Values, name string) int {
	i, err := strconv.Atoi(q.Get(name))
	if err != nil || i < 1 {
		return 0
	}
	return i
}

// apiColumn is a column as the JSON API describes it.
type apiColumn struct {
	table.Display
	Sortable    bool   `json:"sortable"`
	Editable    bool   `json:"editable"`
	Filter      string `json:"filter,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// apiTable is the JSON view of one table state.
type apiTable struct {
	Table      core.TableInfo      `json:"table"`
	Columns    []apiColumn         `json:"columns"`
	Request    table.ChangeRequest `json:"request"`
	Pagination *table.Pagination   `json:"pagination,omitempty"`
	Rows       []table.Record      `json:"rows"`
}

func newAPITable(ts *tableSession) apiTable {
	v := ts.ctrl.View()
	out := apiTable{
		Table:      ts.def.Info,
		Request:    ts.ctrl.CurrentRequest(),
		Pagination: v.Pagination,
		Rows:       v.Rows,
	}
	for i, c := range v.Columns {
		if c.IsActions() {
			continue
		}
		col := apiColumn{Display: c.Display, Sortable: c.Sortable}
		if f, ok := ts.def.Field(c.DataIndex); ok {
			col.Editable = f.IsEditable
		}
		if v.Header.HasFilterRow() && v.Header.Filters[i].Filter != nil {
			spec := v.Header.Filters[i].Filter
			col.Filter = spec.Kind.String()
			col.Placeholder = spec.Placeholder
		}
		out.Columns = append(out.Columns, col)
	}
	if out.Rows == nil {
		out.Rows = []table.Record{}
	}
	return out
}
