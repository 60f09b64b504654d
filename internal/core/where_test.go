package core

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/datatable/internal/table"
)

func testFields() []FieldSpec {
	return []FieldSpec{
		{Column: table.Column{Title: "Name", DataIndex: "name", ValueType: table.ValueString, IsFilterable: true}, DBColumn: "name"},
		{Column: table.Column{Title: "Age", DataIndex: "age", ValueType: table.ValueNumber, IsFilterable: true, IsSortable: true}, DBColumn: "age"},
		{Column: table.Column{Title: "Active", DataIndex: "active", ValueType: table.ValueBoolean, IsFilterable: true}, DBColumn: "is_active"},
		{Column: table.Column{Title: "Joined", DataIndex: "joinedAt", ValueType: table.ValueDate, IsFilterable: true}, DBColumn: "joined_at"},
		{Column: table.Column{Title: "Tags", DataIndex: "tags", ValueType: table.ValueList, IsFilterable: true}, DBColumn: "tags"},
		{Column: table.Column{Title: "Notes", DataIndex: "notes", ValueType: table.ValueString}, DBColumn: "notes"},
	}
}

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()

	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}

	whereClause, args := wb.Build()
	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Add(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("status", "active")
	wb.Add("skipped", "")
	wb.Add("also_skipped", nil)
	wb.Add("flag", false)

	whereClause, args := wb.Build()

	want := " WHERE status = $1 AND flag = $2"
	if whereClause != want {
		t.Errorf("expected %q, got %q", want, whereClause)
	}
	if len(args) != 2 || args[0] != "active" || args[1] != false {
		t.Errorf("unexpected args %v", args)
	}
	if wb.NextArgIndex() != 3 {
		t.Errorf("NextArgIndex = %d, want 3", wb.NextArgIndex())
	}
}

func TestWhereBuilder_AddILike_EscapesWildcards(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddILike(`"name"`, `50%_off\`)

	whereClause, args := wb.Build()
	if whereClause != ` WHERE "name" ILIKE $1` {
		t.Errorf("clause = %q", whereClause)
	}
	if args[0] != `%50\%\_off\\%` {
		t.Errorf("arg = %q", args[0])
	}
}

func TestWhereBuilder_AddDay(t *testing.T) {
	wb := NewWhereBuilder()
	// late evening in a positive offset is still the same UTC day
	wb.AddDay(`"joined_at"`, time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC))

	whereClause, args := wb.Build()
	if whereClause != ` WHERE "joined_at"::date = $1` {
		t.Errorf("clause = %q", whereClause)
	}
	d, ok := args[0].(pgtype.Date)
	if !ok || !d.Valid {
		t.Fatalf("arg = %#v, want valid pgtype.Date", args[0])
	}
	if got := d.Time.Format("2006-01-02"); got != "2024-03-15" {
		t.Errorf("day = %s, want 2024-03-15", got)
	}
}

func TestWhereBuilder_AddSearch(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		search     map[string]any
		wantClause string
		wantArgs   int
		wantErr    bool
	}{
		{
			name:       "empty search",
			search:     map[string]any{},
			wantClause: "",
		},
		{
			name:       "text is substring match",
			search:     map[string]any{"name": "ann"},
			wantClause: ` WHERE "name" ILIKE $1`,
			wantArgs:   1,
		},
		{
			name:       "number is equality",
			search:     map[string]any{"age": "33"},
			wantClause: ` WHERE "age" = $1`,
			wantArgs:   1,
		},
		{
			name:       "false is a real filter",
			search:     map[string]any{"active": false},
			wantClause: ` WHERE "is_active" = $1`,
			wantArgs:   1,
		},
		{
			name:       "boolean from form text",
			search:     map[string]any{"active": "yes"},
			wantClause: ` WHERE "is_active" = $1`,
			wantArgs:   1,
		},
		{
			name:       "date from timestamp",
			search:     map[string]any{"joinedAt": day.UnixMilli()},
			wantClause: ` WHERE "joined_at"::date = $1`,
			wantArgs:   1,
		},
		{
			name:       "date from json number",
			search:     map[string]any{"joinedAt": float64(day.UnixMilli())},
			wantClause: ` WHERE "joined_at"::date = $1`,
			wantArgs:   1,
		},
		{
			name:       "keys in sorted order",
			search:     map[string]any{"name": "ann", "active": true, "age": 41},
			wantClause: ` WHERE "is_active" = $1 AND "age" = $2 AND "name" ILIKE $3`,
			wantArgs:   3,
		},
		{
			name:       "blank text ignored",
			search:     map[string]any{"name": "  "},
			wantClause: "",
		},
		{name: "unknown column", search: map[string]any{"salary": 1}, wantErr: true},
		{name: "not filterable", search: map[string]any{"notes": "x"}, wantErr: true},
		{name: "list column", search: map[string]any{"tags": "a"}, wantErr: true},
		{name: "bad number", search: map[string]any{"age": "old"}, wantErr: true},
		{name: "bad boolean", search: map[string]any{"active": "maybe"}, wantErr: true},
		{name: "bad date", search: map[string]any{"joinedAt": "yesterday"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			err := wb.AddSearch(tt.search, testFields())

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("err = %v, want ErrInvalidFilter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddSearch() error = %v", err)
			}

			gotClause, gotArgs := wb.Build()
			if gotClause != tt.wantClause {
				t.Errorf("clause = %q, want %q", gotClause, tt.wantClause)
			}
			if len(gotArgs) != tt.wantArgs {
				t.Errorf("args count = %d, want %d", len(gotArgs), tt.wantArgs)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"users":                        `"users"`,
		"UserName":                     `"UserName"`,
		`user"name`:                    `"user""name"`,
		`users"; DROP TABLE users; --`: `"users""; DROP TABLE users; --"`,
		"":                             `""`,
	}
	for in, want := range tests {
		if got := quoteIdentifier(in); got != want {
			t.Errorf("quoteIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToDBColumnName(t *testing.T) {
	tests := map[string]string{
		"name":           "name",
		"user_name":      "user_name",
		"createdAt":      "created_at",
		"Account Name":   "account_name",
		"invoice-number": "invoice_number",
		"line2Total":     "line2_total",
		"ID":             "id",
	}
	for in, want := range tests {
		if got := toDBColumnName(in); got != want {
			t.Errorf("toDBColumnName(%q) = %q, want %q", in, got, want)
		}
	}
}
