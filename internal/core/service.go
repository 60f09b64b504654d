package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/datatable/internal/table"
)

// Service answers table change requests from PostgreSQL and persists
// edited rows.
type Service struct {
	db      DBTX
	logger  *slog.Logger
	limiter *QueryLimiter

	defaultPageSize int
	maxPageSize     int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPageLimits sets the page size used when a request carries none and
// the largest page size a request may ask for.
func WithPageLimits(defaultSize, maxSize int) ServiceOption {
	return func(s *Service) {
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueryLimiter bounds concurrent Fetch and SaveRow calls.
func WithQueryLimiter(l *QueryLimiter) ServiceOption {
	return func(s *Service) {
		s.limiter = l
	}
}

// NewService creates a Service over db.
func NewService(db DBTX, opts ...ServiceOption) *Service {
	s := &Service{
		db:              db,
		logger:          slog.Default(),
		defaultPageSize: table.DefaultPageSize,
		maxPageSize:     200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTables returns information about all registered tables.
func (s *Service) ListTables() []TableInfo {
	defs := All()
	infos := make([]TableInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// PageSize returns the page size a table starts with.
func (s *Service) PageSize(def TableDefinition) int {
	return s.clampSize(def.PageSize)
}

// Limiter returns the query limiter, nil when queries are unbounded.
func (s *Service) Limiter() *QueryLimiter {
	return s.limiter
}

func (s *Service) acquire(ctx context.Context) (release func(), err error) {
	if s.limiter == nil {
		return func() {}, nil
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return s.limiter.Release, nil
}

func (s *Service) clampSize(size int) int {
	if size <= 0 {
		size = s.defaultPageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}
	return size
}

// fetchQuery is the SQL answering one change request.
type fetchQuery struct {
	count     string
	selectSQL string
	args      []any // WHERE args, shared by both statements
	fields    []FieldSpec
}

// buildFetchQuery translates req into SQL. LIMIT and OFFSET are left as
// the two placeholders following args.
func buildFetchQuery(def TableDefinition, req table.ChangeRequest) (fetchQuery, error) {
	wb := NewWhereBuilder()
	if err := wb.AddSearch(req.Search, def.Fields); err != nil {
		return fetchQuery{}, err
	}
	where, args := wb.Build()

	source := quoteIdentifier(def.Info.Source)
	keyCol := quoteIdentifier(def.Info.KeyColumn)

	cols := make([]string, 0, len(def.Fields)+1)
	cols = append(cols, keyCol+"::text")
	for _, f := range def.Fields {
		cols = append(cols, quoteIdentifier(f.DBColumn))
	}

	var order []string
	if req.Sort != "" {
		if f, ok := def.Field(req.Sort); ok && f.IsSortable {
			dir := "ASC"
			if req.Order == table.SortDesc {
				dir = "DESC"
			}
			order = append(order, quoteIdentifier(f.DBColumn)+" "+dir)
		}
	}
	// key column last so paging is stable across equal sort values
	order = append(order, keyCol+" ASC")

	next := wb.NextArgIndex()
	return fetchQuery{
		count: fmt.Sprintf("SELECT COUNT(*) FROM %s%s", source, where),
		selectSQL: fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
			strings.Join(cols, ", "),
			source,
			where,
			strings.Join(order, ", "),
			next,
			next+1,
		),
		args:   args,
		fields: def.Fields,
	}, nil
}

// Fetch returns the page of rows matching req. A page past the end is
// clamped to the last page.
func (s *Service) Fetch(ctx context.Context, tableKey string, req table.ChangeRequest) (*Page, error) {
	def, err := Lookup(tableKey)
	if err != nil {
		return nil, err
	}

	q, err := buildFetchQuery(def, req)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var total int64
	if err := s.db.QueryRow(ctx, q.count, q.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	size := s.clampSize(req.Size)
	page := req.Page
	if page < 0 {
		page = 0
	}
	if last := lastPage(total, size); page > last {
		page = last
	}

	args := append(append([]any{}, q.args...), size, page*size)
	rows, err := s.db.Query(ctx, q.selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	result := &Page{Total: total, Page: page, Size: size, Rows: []table.Record{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		if len(values) != len(q.fields)+1 {
			return nil, fmt.Errorf("read row values: got %d columns, want %d", len(values), len(q.fields)+1)
		}

		rec := table.Record{Key: keyString(values[0]), Fields: make(map[string]any, len(q.fields))}
		for i, f := range q.fields {
			rec.Fields[f.DataIndex] = displayValue(values[i+1])
		}
		result.Rows = append(result.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	s.logger.Debug("table page fetched",
		"table", tableKey,
		"page", page,
		"size", size,
		"total", total,
		"filters", len(req.Search),
	)
	return result, nil
}

func lastPage(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total - 1) / int64(size))
}

// SaveRow writes the editable fields present in row to the row
// identified by key.
func (s *Service) SaveRow(ctx context.Context, tableKey, key string, row map[string]any) error {
	def, err := Lookup(tableKey)
	if err != nil {
		return err
	}
	if !def.Editable {
		return fmt.Errorf("%w: %s", ErrReadOnly, tableKey)
	}

	var (
		sets []string
		args []any
	)
	for _, f := range def.Fields {
		v, ok := row[f.DataIndex]
		if !ok || !f.IsEditable {
			continue
		}
		dbv, err := toDBValue(f, v)
		if err != nil {
			return err
		}
		args = append(args, dbv)
		sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdentifier(f.DBColumn), len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	args = append(args, key)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s::text = $%d",
		quoteIdentifier(def.Info.Source),
		strings.Join(sets, ", "),
		quoteIdentifier(def.Info.KeyColumn),
		len(args),
	)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrRowNotFound, tableKey, key)
	}

	ip, ua := ClientFromContext(ctx)
	s.logger.Info("table row saved",
		"table", tableKey,
		"row", key,
		"fields", len(sets),
		"ip", ip,
		"user_agent", ua,
	)
	return nil
}

// Saver binds SaveRow to one table as a controller save callback.
func (s *Service) Saver(tableKey string) table.SaveFunc {
	return func(ctx context.Context, row map[string]any, key string) error {
		return s.SaveRow(ctx, tableKey, key, row)
	}
}

// Validator returns the form validation for a table's edit buffers.
func (s *Service) Validator(tableKey string) (table.ValidateFunc, error) {
	def, err := Lookup(tableKey)
	if err != nil {
		return nil, err
	}
	return NewRowValidator(def.Fields).Validate, nil
}

// toDBValue converts a validated form value for the field's column.
func toDBValue(f FieldSpec, v any) (any, error) {
	invalid := func(kind string) error {
		return ValidationError{Field: f.Title, Value: fmt.Sprint(v), Message: "invalid " + kind + " format"}
	}

	switch f.ValueType {
	case table.ValueNumber:
		if v == nil || v == "" {
			return pgtype.Numeric{}, nil
		}
		n := ToPgNumeric(fmt.Sprint(v))
		if !n.Valid {
			return nil, invalid("number")
		}
		return n, nil

	case table.ValueBoolean:
		if b, ok := v.(bool); ok {
			return pgtype.Bool{Bool: b, Valid: true}, nil
		}
		if v == nil || v == "" {
			return pgtype.Bool{}, nil
		}
		b := ToPgBool(fmt.Sprint(v))
		if !b.Valid {
			return nil, invalid("boolean")
		}
		return b, nil

	case table.ValueDate:
		switch t := v.(type) {
		case nil:
			return pgtype.Date{}, nil
		case time.Time:
			return pgtype.Date{Time: t, Valid: !t.IsZero()}, nil
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			return pgtype.Date{}, nil
		}
		d := ToPgDate(s)
		if !d.Valid {
			return nil, invalid("date")
		}
		return d, nil

	case table.ValueList:
		return nil, ValidationError{Field: f.Title, Message: "list columns cannot be edited"}

	default:
		if v == nil {
			return pgtype.Text{}, nil
		}
		return ToPgText(fmt.Sprint(v)), nil
	}
}

// keyString renders the key column, selected as ::text, as the row key.
func keyString(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// displayValue turns driver values into plain Go values for rendering.
func displayValue(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(t).String()
	}
	return v
}
