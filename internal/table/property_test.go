package table

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var propertyFields = []string{"name", "age", "active", "joined"}

func propertyColumns(filterable []bool) []Column {
	columns := make([]Column, len(filterable))
	for i, f := range filterable {
		key := fmt.Sprintf("c%d", i)
		columns[i] = Column{Key: key, Title: key, DataIndex: key, ValueType: ValueString, IsFilterable: f}
	}
	return columns
}

func TestProperty_FilterRowFollowsFilterableColumns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("filter widgets exist only for filterable columns", prop.ForAll(
		func(filterable []bool, editable bool) bool {
			ctrl := New(Props{Columns: propertyColumns(filterable), Editable: editable}, WithLogger(quietLogger()))
			header := ctrl.View().Header

			anyFilterable := false
			for _, f := range filterable {
				anyFilterable = anyFilterable || f
			}
			if !anyFilterable {
				return !header.HasFilterRow()
			}
			for i, cell := range header.Filters {
				want := i < len(filterable) && filterable[i]
				if (cell.Filter != nil) != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_ClearIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("second clear never emits", prop.ForAll(
		func(field int, value string) bool {
			var emitted int
			ctrl := New(Props{
				Columns:  sampleColumns(),
				OnChange: func(ChangeRequest) { emitted++ },
			}, WithLogger(quietLogger()))

			name := propertyFields[field]
			ctrl.OnFilterChange(name, nil)(value)
			clear := ctrl.OnFilterClear(name, nil)

			clear()
			before := emitted
			clear()
			return emitted == before
		},
		gen.IntRange(0, len(propertyFields)-1),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_LastRequestIsUnionOfActiveFilters(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("search equals the model after every change", prop.ForAll(
		func(fields []int, values []string) bool {
			var last ChangeRequest
			ctrl := New(Props{
				Columns:  sampleColumns(),
				OnChange: func(req ChangeRequest) { last = req },
			}, WithLogger(quietLogger()))

			model := make(map[string]any)
			for i, f := range fields {
				name := propertyFields[f]
				value := ""
				if len(values) > 0 {
					value = values[i%len(values)]
				}

				ctrl.OnFilterChange(name, nil)(value)
				if value == "" {
					delete(model, name)
				} else {
					model[name] = value
				}

				if !reflect.DeepEqual(model, last.Search) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(propertyFields)-1)),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestProperty_FilterChangeResetsPage(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("filter set or clear emits page 0", prop.ForAll(
		func(current, size, field int, value bool) bool {
			var reqs []ChangeRequest
			ctrl := New(Props{
				Columns:    sampleColumns(),
				Pagination: &Pagination{PageSize: 10},
				OnChange:   func(req ChangeRequest) { reqs = append(reqs, req) },
			}, WithLogger(quietLogger()))

			name := propertyFields[field]
			ctrl.OnTableChange(Pagination{Current: current, PageSize: size}, Sorter{})
			ctrl.OnFilterChange(name, nil)(value)
			if reqs[len(reqs)-1].Page != 0 || ctrl.Pagination().Current != FirstPage {
				return false
			}

			ctrl.OnTableChange(Pagination{Current: current + 1, PageSize: size}, Sorter{})
			ctrl.OnFilterClear(name, nil)()
			return reqs[len(reqs)-1].Page == 0 && ctrl.Pagination().Current == FirstPage
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, 100),
		gen.IntRange(0, len(propertyFields)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_AtMostOneRowEditing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	rows := sampleRecords()

	properties.Property("at most one row is editing after any operation", prop.ForAll(
		func(ops []int, targets []int) bool {
			ctrl := New(Props{Columns: sampleColumns(), Rows: rows, Editable: true}, WithLogger(quietLogger()))

			for i, op := range ops {
				key := rows[0].Key
				if len(targets) > 0 {
					key = rows[targets[i%len(targets)]].Key
				}

				switch op {
				case 0:
					ctrl.Edit(key)
				case 1:
					ctrl.Cancel()
				case 2:
					_ = ctrl.Save(context.Background(), NewBuffer(Record{Key: key}, nil), key)
				}

				editing := 0
				for _, rec := range rows {
					if ctrl.IsEditing(rec) {
						editing++
					}
				}
				if editing > 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.IntRange(0, len(rows)-1)),
	))

	properties.TestingRun(t)
}
