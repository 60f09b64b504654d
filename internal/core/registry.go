package core

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/JonMunkholm/datatable/internal/table"
)

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

// defaultKeyColumn identifies rows when a table declares no key column.
const defaultKeyColumn = "id"

// Register normalizes def and adds it to the registry. It panics on an
// invalid definition or a duplicate key; catalogs use register instead.
func Register(def TableDefinition) {
	if err := register(def); err != nil {
		panic(err)
	}
}

func register(def TableDefinition) error {
	if def.Info.Key == "" {
		return fmt.Errorf("table definition without key")
	}
	def = normalize(def)
	if err := table.ValidateColumns(def.columns); err != nil {
		return fmt.Errorf("table %s: %w", def.Info.Key, err)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		return fmt.Errorf("table already registered: %s", def.Info.Key)
	}
	registry[def.Info.Key] = def
	return nil
}

// normalize fills defaults and derives the shared column slice.
func normalize(def TableDefinition) TableDefinition {
	if def.Info.Label == "" {
		def.Info.Label = def.Info.Key
	}
	if def.Info.Source == "" {
		def.Info.Source = def.Info.Key
	}
	if def.Info.KeyColumn == "" {
		def.Info.KeyColumn = defaultKeyColumn
	}

	fields := make([]FieldSpec, len(def.Fields))
	columns := make([]table.Column, len(def.Fields))
	for i, f := range def.Fields {
		if f.Key == "" {
			f.Key = f.DataIndex
		}
		if f.DBColumn == "" {
			f.DBColumn = toDBColumnName(f.DataIndex)
		}
		if !def.Editable {
			f.IsEditable = false
		}
		fields[i] = f
		columns[i] = f.Column
	}
	def.Fields = fields
	def.columns = columns
	return def
}

// Get reports the definition registered under key.
func Get(key string) (TableDefinition, bool) {
	registryMu.RLock()
	def, ok := registry[key]
	registryMu.RUnlock()
	return def, ok
}

// Lookup is Get returning ErrTableNotFound.
func Lookup(key string) (TableDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return TableDefinition{}, fmt.Errorf("%w: %s", ErrTableNotFound, key)
	}
	return def, nil
}

// All returns every registered definition ordered by group, then key.
func All() []TableDefinition {
	registryMu.RLock()
	defs := slices.Collect(maps.Values(registry))
	registryMu.RUnlock()

	slices.SortFunc(defs, func(a, b TableDefinition) int {
		return cmp.Or(
			cmp.Compare(a.Info.Group, b.Info.Group),
			cmp.Compare(a.Info.Key, b.Info.Key),
		)
	})
	return defs
}

// Groups returns the distinct group names in order.
func Groups() []string {
	defs := All()
	groups := make([]string, len(defs))
	for i, def := range defs {
		groups[i] = def.Info.Group
	}
	return slices.Compact(groups)
}

// TableCount reports how many tables are registered.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear empties the registry. Tests use it between cases.
func Clear() {
	registryMu.Lock()
	clear(registry)
	registryMu.Unlock()
}
