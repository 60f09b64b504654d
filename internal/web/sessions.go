package web

// sessions.go keeps one table.Controller per (browser session, table).
//
// Controllers hold the filter, page, sort and edit state between
// requests. A janitor goroutine drops sessions idle for longer than the
// TTL; it runs until its context is cancelled.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/render"
	"github.com/JonMunkholm/datatable/internal/table"
	"github.com/JonMunkholm/datatable/internal/web/templates"
)

// sessionCookie names the cookie carrying the browser session id.
const sessionCookie = "datatable_session"

// janitorInterval is how often idle sessions are swept.
const janitorInterval = time.Minute

type sessionKey struct {
	session string
	table   string
}

type sessionEntry struct {
	ts       *tableSession
	lastUsed time.Time
}

// sessionStore maps sessions to their table state.
type sessionStore struct {
	mu      sync.Mutex
	entries map[sessionKey]*sessionEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func newSessionStore(ttl time.Duration, logger *slog.Logger) *sessionStore {
	return &sessionStore{
		entries: make(map[sessionKey]*sessionEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// get returns the session's state for a table and marks it used.
func (st *sessionStore) get(session, tableKey string) (*tableSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.entries[sessionKey{session, tableKey}]
	if !ok {
		return nil, false
	}
	e.lastUsed = st.now()
	return e.ts, true
}

// put stores ts unless another request stored one first, in which case
// the earlier one wins and is returned.
func (st *sessionStore) put(session, tableKey string, ts *tableSession) *tableSession {
	st.mu.Lock()
	defer st.mu.Unlock()

	k := sessionKey{session, tableKey}
	if e, ok := st.entries[k]; ok {
		e.lastUsed = st.now()
		return e.ts
	}
	st.entries[k] = &sessionEntry{ts: ts, lastUsed: st.now()}
	return ts
}

// sweep removes entries idle for longer than the TTL.
func (st *sessionStore) sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for k, e := range st.entries {
		if e.lastUsed.Before(cutoff) {
			delete(st.entries, k)
			removed++
		}
	}
	return removed
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// run sweeps every interval until ctx is cancelled.
func (st *sessionStore) run(ctx context.Context, interval time.Duration) {
	st.logger.Info("session janitor started", "ttl", st.ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			st.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := st.sweep(); n > 0 {
				st.logger.Debug("expired table sessions", "removed", n, "remaining", st.len())
			}
		}
	}
}

// sessionID returns the request's session id, issuing a cookie when the
// request carries none or an invalid one.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// tableSession binds one controller to the data source. Handlers lock
// mu for the whole interaction, so the controller's OnChange callback,
// which runs synchronously inside those calls, may touch pending
// without locking.
type tableSession struct {
	mu sync.Mutex

	def      core.TableDefinition
	src      DataSource
	validate table.ValidateFunc
	ctrl     *table.Controller
	props    table.Props
	logger   *slog.Logger

	pending *table.ChangeRequest
	draft   map[string]string
	errors  map[string]string
	notice  string
}

func newTableSession(src DataSource, def core.TableDefinition, logger *slog.Logger) (*tableSession, error) {
	validate, err := src.Validator(def.Info.Key)
	if err != nil {
		return nil, err
	}

	ts := &tableSession{
		def:      def,
		src:      src,
		validate: validate,
		logger:   logger.With("table", def.Info.Key),
	}

	size := src.PageSize(def)
	ts.props = table.Props{
		Columns:    def.Columns(),
		Editable:   def.Editable,
		Pagination: &table.Pagination{PageSize: size},
		OnChange:   ts.onChange,
		OnSave:     src.Saver(def.Info.Key),
	}
	ts.ctrl = table.New(ts.props,
		table.WithLogger(ts.logger),
		table.WithDefaultPageSize(size),
	)

	// first flush loads the initial page
	req := ts.ctrl.CurrentRequest()
	ts.pending = &req
	return ts, nil
}

func (ts *tableSession) onChange(req table.ChangeRequest) {
	ts.pending = &req
}

// flush answers the last change request the controller emitted, if any.
func (ts *tableSession) flush(ctx context.Context) error {
	if ts.pending == nil {
		return nil
	}
	req := *ts.pending
	ts.pending = nil

	page, err := ts.src.Fetch(ctx, ts.def.Info.Key, req)
	if err != nil {
		// retried by the next request
		ts.pending = &req
		return err
	}

	ts.props.Rows = page.Rows
	ts.props.Pagination = &table.Pagination{
		PageSize: page.Size,
		Current:  page.Page + table.FirstPage,
		Total:    int(page.Total),
	}
	ts.ctrl.Update(ts.props)
	return nil
}

// reload refetches the page the controller is showing.
func (ts *tableSession) reload(ctx context.Context) error {
	req := ts.ctrl.CurrentRequest()
	ts.pending = &req
	return ts.flush(ctx)
}

// filter applies a filter widget interaction for dataIndex.
func (ts *tableSession) filter(dataIndex, value string, clear bool) error {
	return render.ApplyFilter(ts.ctrl.View().Header, dataIndex, value, clear)
}

// change applies a pagination or sort change.
func (ts *tableSession) change(p table.Pagination, s table.Sorter) {
	ts.ctrl.OnTableChange(p, s)
}

// rowAction runs the Actions column control of kind on the row. form
// carries the submitted inputs for a save.
func (ts *tableSession) rowAction(ctx context.Context, rowKey string, kind table.ActionKind, form url.Values) error {
	view := ts.ctrl.View()

	var actionsCol *table.AugmentedColumn
	for i := range view.Columns {
		if view.Columns[i].IsActions() {
			actionsCol = &view.Columns[i]
			break
		}
	}
	if actionsCol == nil {
		return fmt.Errorf("%w: %s", core.ErrReadOnly, ts.def.Info.Key)
	}

	rec, ok := findRecord(view.Rows, rowKey)
	if !ok {
		return fmt.Errorf("%w: %s/%s", core.ErrRowNotFound, ts.def.Info.Key, rowKey)
	}

	var buf table.Form
	if kind == table.ActionSave {
		b := table.NewBuffer(rec, ts.validate)
		ts.draft = make(map[string]string)
		for _, f := range ts.def.Fields {
			if vals, ok := form[f.DataIndex]; ok && f.IsEditable && len(vals) > 0 {
				b.SetValue(f.DataIndex, vals[0])
				ts.draft[f.DataIndex] = vals[0]
			}
		}
		buf = b
	}

	var act *table.Action
	for _, a := range actionsCol.Render(rec, buf) {
		if a.Kind == kind {
			act = &a
			break
		}
	}
	if act == nil {
		if kind == table.ActionEdit {
			// already editing this row
			return nil
		}
		return table.ErrNotEditing
	}

	err := act.Invoke(ctx)
	switch {
	case err == nil:
		ts.draft, ts.errors = nil, nil
		if kind == table.ActionSave {
			ts.notice = "Saved"
			return ts.reload(ctx)
		}
		return nil
	case errors.Is(err, table.ErrInvalid):
		ts.errors = ts.fieldErrors(err)
	}
	return err
}

// fieldErrors keys validation messages by dataIndex.
func (ts *tableSession) fieldErrors(err error) map[string]string {
	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	byTitle := verrs.ByField()
	out := make(map[string]string, len(byTitle))
	for _, f := range ts.def.Fields {
		if msg, ok := byTitle[f.Title]; ok {
			out[f.DataIndex] = msg
		}
	}
	return out
}

// view snapshots the session for the templates. The notice is shown once.
func (ts *tableSession) view() templates.TableView {
	tv := templates.TableView{
		Info:   ts.def.Info,
		View:   ts.ctrl.View(),
		Draft:  ts.draft,
		Errors: ts.errors,
		Notice: ts.notice,
	}
	ts.notice = ""
	return tv
}

func findRecord(rows []table.Record, key string) (table.Record, bool) {
	for _, r := range rows {
		if r.Key == key {
			return r, true
		}
	}
	return table.Record{}, false
}
