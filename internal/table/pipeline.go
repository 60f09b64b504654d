package table

import "context"

// HeaderCellProps is what a header cell receives from its column.
type HeaderCellProps struct {
	Display
	Filterable bool
	OnSearch   func(value any)
	OnClear    func()
}

// BodyCellProps is what a body cell receives for one record.
type BodyCellProps struct {
	Display
	Record     Record
	IsEditable bool
	Editing    bool
}

// ActionKind identifies a control of the Actions column.
type ActionKind string

const (
	ActionEdit   ActionKind = "edit"
	ActionSave   ActionKind = "save"
	ActionCancel ActionKind = "cancel"
)

// cancelConfirm is the prompt shown before discarding an edit.
const cancelConfirm = "Sure to cancel?"

// Action is one control rendered in the Actions column.
type Action struct {
	Kind    ActionKind
	Label   string
	Confirm string // non-empty when the renderer must ask first
	Invoke  func(ctx context.Context) error
}

// AugmentedColumn is the renderer-facing column.
type AugmentedColumn struct {
	Display
	Sortable bool

	HeaderCell func() HeaderCellProps
	BodyCell   func(rec Record) BodyCellProps

	// Render is set only on the Actions column.
	Render func(rec Record, form Form) []Action
}

// IsActions reports whether c is the synthetic Actions column.
func (c AugmentedColumn) IsActions() bool {
	return c.Render != nil && c.Key == ActionsKey
}

// Handlers are the controller operations the pipeline binds into hooks.
type Handlers interface {
	OnFilterChange(dataIndex string, cb FilterFunc) func(value any)
	OnFilterClear(dataIndex string, cb FilterFunc) func()
	IsEditing(rec Record) bool
	Edit(key string)
	Cancel()
	Save(ctx context.Context, form Form, key string) error
}

// Transform converts caller columns into augmented columns.
func Transform(columns []Column, editable bool, h Handlers) []AugmentedColumn {
	out := make([]AugmentedColumn, 0, len(columns)+1)

	for _, col := range columns {
		display := col.Display()

		out = append(out, AugmentedColumn{
			Display:  display,
			Sortable: col.IsSortable,
			HeaderCell: func() HeaderCellProps {
				return HeaderCellProps{
					Display:    display,
					Filterable: col.IsFilterable,
					OnSearch:   h.OnFilterChange(display.DataIndex, col.OnFilterChange),
					OnClear:    h.OnFilterClear(display.DataIndex, col.OnFilterChange),
				}
			},
			BodyCell: func(rec Record) BodyCellProps {
				return BodyCellProps{
					Display:    display,
					Record:     rec,
					IsEditable: col.IsEditable,
					Editing:    h.IsEditing(rec),
				}
			},
		})
	}

	if editable {
		out = append(out, actionsColumn(h))
	}
	return out
}

func actionsColumn(h Handlers) AugmentedColumn {
	display := Display{Key: ActionsKey, Title: "Actions", DataIndex: ActionsKey}

	return AugmentedColumn{
		Display: display,
		HeaderCell: func() HeaderCellProps {
			return HeaderCellProps{Display: display}
		},
		BodyCell: func(rec Record) BodyCellProps {
			return BodyCellProps{Display: display, Record: rec}
		},
		Render: func(rec Record, form Form) []Action {
			key := rec.Key
			if !h.IsEditing(rec) {
				return []Action{{
					Kind:  ActionEdit,
					Label: "Edit",
					Invoke: func(context.Context) error {
						h.Edit(key)
						return nil
					},
				}}
			}
			return []Action{
				{
					Kind:  ActionSave,
					Label: "Save",
					Invoke: func(ctx context.Context) error {
						return h.Save(ctx, form, key)
					},
				},
				{
					Kind:    ActionCancel,
					Label:   "Cancel",
					Confirm: cancelConfirm,
					Invoke: func(context.Context) error {
						h.Cancel()
						return nil
					},
				},
			}
		},
	}
}

// pipelineKey identifies a transform input: the caller's slice by
// identity (first element address and length) plus the editable flag.
type pipelineKey struct {
	head     *Column
	n        int
	editable bool
}

func keyOf(columns []Column, editable bool) pipelineKey {
	k := pipelineKey{n: len(columns), editable: editable}
	if len(columns) > 0 {
		k.head = &columns[0]
	}
	return k
}

// pipeline memoizes Transform on (columns identity, editable).
type pipeline struct {
	handlers Handlers
	key      pipelineKey
	out      []AugmentedColumn
	primed   bool
}

func (p *pipeline) columns(columns []Column, editable bool) []AugmentedColumn {
	k := keyOf(columns, editable)
	if p.primed && k == p.key {
		return p.out
	}
	p.key = k
	p.out = Transform(columns, editable, p.handlers)
	p.primed = true
	return p.out
}
