package render

import (
	"testing"
	"time"

	"github.com/JonMunkholm/datatable/internal/table"
)

func TestCell(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    any
		vt   table.ValueType
		want string
	}{
		{"nil", nil, table.ValueString, ""},
		{"string", "Ann", table.ValueString, "Ann"},
		{"true", true, table.ValueBoolean, "Yes"},
		{"false", false, table.ValueBoolean, "No"},
		{"date", day, table.ValueDate, "2024-03-15"},
		{"timestamp", day, table.ValueString, "2024-03-15T00:00:00Z"},
		{"float", 41.5, table.ValueNumber, "41.5"},
		{"whole float", 41.0, table.ValueNumber, "41"},
		{"int", 7, table.ValueNumber, "7"},
		{"string list", []string{"a", "b"}, table.ValueList, "a, b"},
		{"any list", []any{"a", true}, table.ValueList, "a, Yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cell(tt.v, tt.vt); got != tt.want {
				t.Errorf("Cell(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

func TestInput(t *testing.T) {
	if got := Input(true, table.ValueBoolean); got != "true" {
		t.Errorf("Input(true) = %q, want true", got)
	}
	if got := Input(12.5, table.ValueNumber); got != "12.5" {
		t.Errorf("Input(12.5) = %q", got)
	}
}

func TestFilterValue(t *testing.T) {
	ms := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		v    any
		kind table.FilterKind
		want string
	}{
		{nil, table.FilterText, ""},
		{"ann", table.FilterText, "ann"},
		{false, table.FilterBooleanChoice, "false"},
		{ms, table.FilterDate, "2024-03-15"},
		{float64(ms), table.FilterDate, "2024-03-15"},
	}
	for _, tt := range tests {
		if got := FilterValue(tt.v, tt.kind); got != tt.want {
			t.Errorf("FilterValue(%v, %s) = %q, want %q", tt.v, tt.kind, got, tt.want)
		}
	}
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2024-03-15")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDay = %v", got)
	}

	if got, err := ParseDay("  "); err != nil || !got.IsZero() {
		t.Errorf("blank ParseDay = %v, %v; want zero, nil", got, err)
	}
	if _, err := ParseDay("15/03/2024"); err == nil {
		t.Error("expected error for wrong layout")
	}
}
