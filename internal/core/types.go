package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/datatable/internal/table"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowNotFound   = errors.New("row not found")
	ErrInvalidFilter = errors.New("invalid filter value")
	ErrReadOnly      = errors.New("table is read-only")
)

// FieldSpec is one column of a catalog table: the renderer-facing
// descriptor plus its storage and validation rules.
type FieldSpec struct {
	table.Column `yaml:",inline"`

	// DBColumn is the database column (default: dataIndex).
	DBColumn string `yaml:"column,omitempty"`

	// Optional lets an editable field be saved empty (as NULL).
	// Editable fields are required otherwise.
	Optional bool `yaml:"optional,omitempty"`
}

// Required reports whether a save must reject an empty value.
func (f FieldSpec) Required() bool {
	return f.IsEditable && !f.Optional
}

// TableInfo contains display and storage information about a table.
type TableInfo struct {
	Key       string `yaml:"key" json:"key"`             // URL key: "customers"
	Label     string `yaml:"label" json:"label"`         // Display name: "Customers"
	Group     string `yaml:"group" json:"group"`         // Menu group: "CRM"
	Source    string `yaml:"source" json:"-"`            // Database table (default: Key)
	KeyColumn string `yaml:"keyColumn" json:"keyColumn"` // Column identifying a row (default: "id")
}

// TableDefinition contains everything needed to serve one table.
type TableDefinition struct {
	Info     TableInfo
	Fields   []FieldSpec
	Editable bool
	PageSize int

	// columns is derived once at registration so every controller of
	// this table shares the same slice.
	columns []table.Column
}

// Columns returns the table's column descriptors.
func (d TableDefinition) Columns() []table.Column {
	return d.columns
}

// Field returns the field whose dataIndex is dataIndex.
func (d TableDefinition) Field(dataIndex string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.DataIndex == dataIndex {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Page is one page of rows answering a change request.
type Page struct {
	Rows  []table.Record `json:"rows"`
	Total int64          `json:"total"`
	Page  int            `json:"page"` // 0-based
	Size  int            `json:"size"`
}
