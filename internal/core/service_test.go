package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datatable/internal/table"
)

// fakeDB records statements and answers them from canned data.
type fakeDB struct {
	total    int64
	rows     [][]any
	affected int64
	err      error

	queries []string
	args    [][]any
}

func (f *fakeDB) record(sql string, args []any) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.record(sql, args)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	if f.affected == 0 {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.record(sql, args)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{data: f.rows, pos: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.record(sql, args)
	return fakeRow{total: f.total, err: f.err}
}

type fakeRow struct {
	total int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.total
	return nil
}

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Scan(...any) error                            { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func registerPeople(t *testing.T, editable bool) TableDefinition {
	t.Helper()
	resetRegistry(t)
	fields := testFields()
	for i := range fields[:4] {
		fields[i].IsEditable = true
		fields[i].Optional = i > 0
	}
	Register(TableDefinition{
		Info:     TableInfo{Key: "people", Source: "crm_people"},
		Fields:   fields,
		Editable: editable,
	})
	def, _ := Get("people")
	return def
}

func newTestService(db DBTX) *Service {
	return NewService(db,
		WithPageLimits(10, 50),
		WithServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestBuildFetchQuery(t *testing.T) {
	def := registerPeople(t, true)

	q, err := buildFetchQuery(def, table.ChangeRequest{
		Search: map[string]any{"name": "ann", "active": false},
		Page:   2,
		Size:   10,
		Sort:   "age",
		Order:  table.SortDesc,
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(*) FROM "crm_people" WHERE "is_active" = $1 AND "name" ILIKE $2`, q.count)
	assert.Equal(t,
		`SELECT "id"::text, "name", "age", "is_active", "joined_at", "tags", "notes" FROM "crm_people"`+
			` WHERE "is_active" = $1 AND "name" ILIKE $2 ORDER BY "age" DESC, "id" ASC LIMIT $3 OFFSET $4`,
		q.selectSQL)
	assert.Equal(t, []any{false, "%ann%"}, q.args)
}

func TestBuildFetchQuery_SortIgnoredUnlessSortable(t *testing.T) {
	def := registerPeople(t, true)

	q, err := buildFetchQuery(def, table.ChangeRequest{Sort: "notes", Order: table.SortAsc})
	require.NoError(t, err)
	assert.Contains(t, q.selectSQL, `ORDER BY "id" ASC LIMIT $1 OFFSET $2`)

	q, err = buildFetchQuery(def, table.ChangeRequest{Sort: "missing", Order: table.SortDesc})
	require.NoError(t, err)
	assert.Contains(t, q.selectSQL, `ORDER BY "id" ASC LIMIT $1 OFFSET $2`, "unknown sort field")
}

func TestBuildFetchQuery_InvalidFilter(t *testing.T) {
	def := registerPeople(t, true)

	_, err := buildFetchQuery(def, table.ChangeRequest{Search: map[string]any{"age": "many"}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestService_Fetch(t *testing.T) {
	registerPeople(t, true)

	var n pgtype.Numeric
	require.NoError(t, n.Scan("41"))
	id := [16]byte{0x12, 0x34}

	db := &fakeDB{
		total: 2,
		rows: [][]any{
			{"4", "Ann", n, true, nil, nil, "vip"},
			{"12340000-0000-0000-0000-000000000000", "Bob", nil, false, nil, nil, id},
		},
	}
	page, err := newTestService(db).Fetch(t.Context(), "people", table.ChangeRequest{Page: 0, Size: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "4", page.Rows[0].Key)
	assert.Equal(t, 41.0, page.Rows[0].Value("age"))
	assert.Equal(t, "vip", page.Rows[0].Value("notes"))
	assert.Equal(t, "12340000-0000-0000-0000-000000000000", page.Rows[1].Key)
	assert.Equal(t, "12340000-0000-0000-0000-000000000000", page.Rows[1].Value("notes"), "uuid values render as text")

	// count then select, with limit and offset appended
	require.Len(t, db.args, 2)
	assert.Equal(t, []any{10, 0}, db.args[1])
}

func TestService_FetchClampsPage(t *testing.T) {
	registerPeople(t, true)

	tests := []struct {
		name     string
		total    int64
		req      table.ChangeRequest
		wantPage int
		wantSize int
		wantOff  int
	}{
		{"past the end", 25, table.ChangeRequest{Page: 9, Size: 10}, 2, 10, 20},
		{"negative page", 25, table.ChangeRequest{Page: -1, Size: 10}, 0, 10, 0},
		{"empty result", 0, table.ChangeRequest{Page: 3, Size: 10}, 0, 10, 0},
		{"default size", 25, table.ChangeRequest{Page: 1}, 1, 10, 10},
		{"size capped", 500, table.ChangeRequest{Page: 1, Size: 1000}, 1, 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{total: tt.total}
			page, err := newTestService(db).Fetch(t.Context(), "people", tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantSize, page.Size)
			assert.Equal(t, []any{tt.wantSize, tt.wantOff}, db.args[1])
			assert.NotNil(t, page.Rows)
		})
	}
}

func TestService_FetchErrors(t *testing.T) {
	registerPeople(t, true)

	_, err := newTestService(&fakeDB{}).Fetch(t.Context(), "nope", table.ChangeRequest{})
	assert.ErrorIs(t, err, ErrTableNotFound)

	boom := errors.New("connection refused")
	_, err = newTestService(&fakeDB{err: boom}).Fetch(t.Context(), "people", table.ChangeRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestService_SaveRow(t *testing.T) {
	registerPeople(t, true)
	db := &fakeDB{affected: 1}

	ctx := ContextWithClient(t.Context(), "10.0.0.1", "test")
	err := newTestService(db).SaveRow(ctx, "people", "4", map[string]any{
		"name":   "Ann",
		"age":    "42",
		"active": true,
		"notes":  "ignored, not editable",
		"bogus":  "ignored, unknown",
	})
	require.NoError(t, err)

	require.Len(t, db.queries, 1)
	assert.Equal(t, `UPDATE "crm_people" SET "name" = $1, "age" = $2, "is_active" = $3 WHERE "id"::text = $4`, db.queries[0])
	args := db.args[0]
	assert.Equal(t, pgtype.Text{String: "Ann", Valid: true}, args[0])
	assert.Equal(t, pgtype.Bool{Bool: true, Valid: true}, args[2])
	assert.Equal(t, "4", args[3])
}

func TestService_SaveRowErrors(t *testing.T) {
	t.Run("read-only table", func(t *testing.T) {
		registerPeople(t, false)
		err := newTestService(&fakeDB{affected: 1}).SaveRow(t.Context(), "people", "4", map[string]any{"name": "x"})
		assert.ErrorIs(t, err, ErrReadOnly)
	})

	t.Run("missing row", func(t *testing.T) {
		registerPeople(t, true)
		err := newTestService(&fakeDB{}).SaveRow(t.Context(), "people", "99", map[string]any{"name": "x"})
		assert.ErrorIs(t, err, ErrRowNotFound)
	})

	t.Run("bad value", func(t *testing.T) {
		registerPeople(t, true)
		db := &fakeDB{affected: 1}
		err := newTestService(db).SaveRow(t.Context(), "people", "4", map[string]any{"age": "old"})

		var verr ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Age", verr.Field)
		assert.Empty(t, db.queries)
	})

	t.Run("nothing to write", func(t *testing.T) {
		registerPeople(t, true)
		db := &fakeDB{}
		require.NoError(t, newTestService(db).SaveRow(t.Context(), "people", "4", map[string]any{"notes": "x"}))
		assert.Empty(t, db.queries)
	})
}

func TestService_SaverAndValidator(t *testing.T) {
	registerPeople(t, true)
	db := &fakeDB{affected: 1}
	svc := newTestService(db)

	validate, err := svc.Validator("people")
	require.NoError(t, err)

	rec := table.Record{Key: "4", Fields: map[string]any{"name": "Ann"}}
	ctrl := table.New(table.Props{
		Columns:  mustColumns(t, "people"),
		Rows:     []table.Record{rec},
		Editable: true,
		OnSave:   svc.Saver("people"),
	})

	ctrl.Edit("4")
	buf := table.NewBuffer(rec, validate)
	buf.SetValue("name", " Anne ")
	require.NoError(t, ctrl.Save(t.Context(), buf, "4"))
	assert.False(t, ctrl.IsEditing(rec))

	require.Len(t, db.args, 1)
	assert.Equal(t, pgtype.Text{String: "Anne", Valid: true}, db.args[0][0])

	_, err = svc.Validator("nope")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestService_ListTablesAndPageSize(t *testing.T) {
	def := registerPeople(t, true)
	svc := newTestService(&fakeDB{})

	infos := svc.ListTables()
	require.Len(t, infos, 1)
	assert.Equal(t, "people", infos[0].Key)

	assert.Equal(t, 10, svc.PageSize(def))
	def.PageSize = 25
	assert.Equal(t, 25, svc.PageSize(def))
	def.PageSize = 500
	assert.Equal(t, 50, svc.PageSize(def))
}

func TestToDBValue(t *testing.T) {
	fields := testFields()

	v, err := toDBValue(fields[1], "")
	require.NoError(t, err)
	assert.Equal(t, pgtype.Numeric{}, v)

	v, err = toDBValue(fields[2], "no")
	require.NoError(t, err)
	assert.Equal(t, pgtype.Bool{Bool: false, Valid: true}, v)

	v, err = toDBValue(fields[3], "2024-03-15")
	require.NoError(t, err)
	assert.True(t, v.(pgtype.Date).Valid)

	_, err = toDBValue(fields[4], "a")
	assert.Error(t, err)

	v, err = toDBValue(fields[0], nil)
	require.NoError(t, err)
	assert.Equal(t, pgtype.Text{}, v)
}

func mustColumns(t *testing.T, key string) []table.Column {
	t.Helper()
	def, err := Lookup(key)
	require.NoError(t, err)
	return def.Columns()
}
