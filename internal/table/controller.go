package table

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Props is everything the caller hands the controller.
// Columns and Pagination are compared by identity on Update.
type Props struct {
	Columns    []Column
	Rows       []Record
	Pagination *Pagination // nil disables the pagination UI
	Editable   bool
	Loading    bool
	OnChange   ChangeFunc
	OnSave     SaveFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDefaultPageSize overrides DefaultPageSize.
func WithDefaultPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.defaultPageSize = n
		}
	}
}

// Controller owns search, pagination and edit state for one table.
//
// Handlers may be called from concurrent goroutines; state changes are
// serialized and caller callbacks run after the lock is released.
type Controller struct {
	mu sync.Mutex

	props  Props
	search map[string]any
	page   Pagination
	sort   Sorter
	edit   EditSession
	pipe   pipeline

	defaultPageSize int
	logger          *slog.Logger
}

// View is the renderer-facing snapshot of the table.
type View struct {
	Columns    []AugmentedColumn
	Header     HeaderRows
	Rows       []Record
	Pagination *Pagination
	Loading    bool
	Search     map[string]any
	Sort       Sorter
	EditingKey string
}

// New builds a controller from the initial props.
func New(props Props, opts ...Option) *Controller {
	c := &Controller{
		search:          make(map[string]any),
		defaultPageSize: DefaultPageSize,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pipe.handlers = c

	c.page = Pagination{PageSize: c.defaultPageSize}
	if props.Pagination != nil {
		c.mergePagination(*props.Pagination)
	}
	c.page.Current = FirstPage

	c.checkColumns(props.Columns)
	c.props = props
	c.pipe.columns(props.Columns, props.Editable)
	return c
}

// Update applies new props. A new Columns slice or a toggled Editable
// flag re-runs the pipeline; a new Pagination pointer is merged into
// the pagination state.
func (c *Controller) Update(props Props) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if props.Pagination != nil && props.Pagination != c.props.Pagination {
		c.mergePagination(*props.Pagination)
	}
	if keyOf(props.Columns, props.Editable) != c.pipe.key {
		c.checkColumns(props.Columns)
	}
	c.props = props
	c.pipe.columns(props.Columns, props.Editable)
}

// mergePagination copies the caller's non-zero fields over local state.
func (c *Controller) mergePagination(p Pagination) {
	if p.PageSize > 0 {
		c.page.PageSize = p.PageSize
	}
	if p.Current >= FirstPage {
		c.page.Current = p.Current
	}
	if p.Total >= 0 {
		c.page.Total = p.Total
	}
}

func (c *Controller) checkColumns(columns []Column) {
	if err := ValidateColumns(columns); err != nil {
		c.logger.Warn("table columns misconfigured", "error", err)
	}
}

// OnFilterChange returns the search handler bound to dataIndex.
func (c *Controller) OnFilterChange(dataIndex string, cb FilterFunc) func(value any) {
	return func(value any) {
		c.mu.Lock()
		if isActive(value) {
			c.search[dataIndex] = value
		} else {
			delete(c.search, dataIndex)
		}
		c.page.Current = FirstPage
		c.sort = Sorter{}
		req, meta := c.filterRequest(dataIndex, value)
		onChange := c.props.OnChange
		c.mu.Unlock()

		c.logger.Debug("table filter changed", "field", dataIndex, "value", value)
		emitFilter(cb, onChange, req, meta)
	}
}

// OnFilterClear returns the clear handler bound to dataIndex. It does
// nothing unless the column has an active filter.
func (c *Controller) OnFilterClear(dataIndex string, cb FilterFunc) func() {
	return func() {
		c.mu.Lock()
		if !isActive(c.search[dataIndex]) {
			c.mu.Unlock()
			return
		}
		delete(c.search, dataIndex)
		c.page.Current = FirstPage
		c.sort = Sorter{}
		req, meta := c.filterRequest(dataIndex, "")
		onChange := c.props.OnChange
		c.mu.Unlock()

		c.logger.Debug("table filter cleared", "field", dataIndex)
		emitFilter(cb, onChange, req, meta)
	}
}

func emitFilter(cb FilterFunc, onChange ChangeFunc, req ChangeRequest, meta FilterMeta) {
	if cb != nil {
		cb(req, meta)
		return
	}
	if onChange != nil {
		onChange(req)
	}
}

// filterRequest builds the request for a filter edit. Callers hold mu
// and have already reset the current page.
func (c *Controller) filterRequest(field string, value any) (ChangeRequest, FilterMeta) {
	req := c.request(FirstPage, c.page.PageSize)
	meta := FilterMeta{
		Field:      field,
		Value:      value,
		Pagination: PageParams{Page: req.Page, Size: req.Size},
	}
	return req, meta
}

// request is the single place a ChangeRequest is built. current is 1-based.
func (c *Controller) request(current, size int) ChangeRequest {
	if current < FirstPage {
		current = FirstPage
	}
	return ChangeRequest{
		Search: copySearch(c.search),
		Page:   current - FirstPage,
		Size:   size,
	}
}

// OnTableChange handles pagination and sort changes from the renderer.
// A changed current page is a page/size change; otherwise the change is
// treated as sort-only and resets to the first page at the default size.
func (c *Controller) OnTableChange(p Pagination, s Sorter) {
	c.mu.Lock()

	var req ChangeRequest
	if p.Current != c.page.Current {
		size := p.PageSize
		if size <= 0 {
			size = c.page.PageSize
		}
		req = c.request(p.Current, size)
		c.page.Current = req.Page + FirstPage
		c.page.PageSize = size
	} else {
		req = c.request(FirstPage, c.defaultPageSize)
		c.page.Current = FirstPage
	}

	c.sort = Sorter{}
	if order, ok := ParseSortOrder(s.Order); ok && s.Field != "" {
		req.Sort = s.Field
		req.Order = order
		c.sort = s
	}

	onChange := c.props.OnChange
	c.mu.Unlock()

	c.logger.Debug("table changed",
		"page", req.Page,
		"size", req.Size,
		"sort", req.Sort,
		"order", req.Order,
	)
	if onChange != nil {
		onChange(req)
	}
}

// CurrentRequest returns the request matching the current state,
// including the active sort. Used for the initial data load.
func (c *Controller) CurrentRequest() ChangeRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := c.request(c.page.Current, c.page.PageSize)
	if order, ok := ParseSortOrder(c.sort.Order); ok && c.sort.Field != "" {
		req.Sort = c.sort.Field
		req.Order = order
	}
	return req
}

// IsEditing reports whether rec is the row in edit mode.
func (c *Controller) IsEditing(rec Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edit.IsEditing(rec)
}

// Edit puts the row with key in edit mode.
func (c *Controller) Edit(key string) {
	c.mu.Lock()
	prev, wasEditing := c.edit.Key()
	c.edit.Edit(key)
	c.mu.Unlock()

	if wasEditing && prev != key {
		c.logger.Debug("table edit abandoned", "row", prev, "next", key)
	}
	c.logger.Debug("table edit started", "row", key)
}

// Cancel leaves edit mode without saving.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.edit.Cancel()
	c.mu.Unlock()
}

// Save validates form and hands the validated row to OnSave. The edit
// session only returns to Idle if it still belongs to key when OnSave
// returns; otherwise ErrStaleSave is returned and state is untouched.
func (c *Controller) Save(ctx context.Context, form Form, key string) error {
	c.mu.Lock()
	ticket, ok := c.edit.Begin(key)
	persist := c.props.OnSave
	c.mu.Unlock()

	if !ok {
		return ErrNotEditing
	}

	row, err := form.Validate()
	if err != nil {
		c.logger.Warn("table row failed validation", "row", key, "error", err)
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if persist != nil {
		if err := persist(ctx, row, key); err != nil {
			return fmt.Errorf("save row %s: %w", key, err)
		}
	}

	c.mu.Lock()
	done := c.edit.Complete(ticket)
	c.mu.Unlock()

	if !done {
		c.logger.Warn("table save completed after edit moved on", "row", key)
		return ErrStaleSave
	}
	c.logger.Debug("table row saved", "row", key)
	return nil
}

// Search returns a copy of the active filters.
func (c *Controller) Search() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySearch(c.search)
}

// Pagination returns the current pagination state.
func (c *Controller) Pagination() Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Columns returns the augmented columns.
func (c *Controller) Columns() []AugmentedColumn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipe.out
}

// View snapshots the table for rendering. Hooks on the returned columns
// read live state, so View must not be called while holding mu.
func (c *Controller) View() View {
	c.mu.Lock()
	v := View{
		Columns: c.pipe.out,
		Rows:    c.props.Rows,
		Loading: c.props.Loading,
		Search:  copySearch(c.search),
		Sort:    c.sort,
	}
	if c.props.Pagination != nil {
		p := c.page
		v.Pagination = &p
	}
	if key, ok := c.edit.Key(); ok {
		v.EditingKey = key
	}
	c.mu.Unlock()

	cells := make([]HeaderCellProps, len(v.Columns))
	for i, col := range v.Columns {
		cells[i] = col.HeaderCell()
	}
	v.Header = ComposeHeader(cells)
	return v
}
