// Package core is the data source behind the datatable controllers.
//
// It has no UI dependencies: web handlers, the CLI and tests all use it
// the same way.
//
// # Table Registry
//
// Tables are declared in a YAML [Catalog] and registered at startup:
//
//	cat, err := core.LoadCatalog("tables.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cat.Register(); err != nil {
//	    return err
//	}
//
// Each [TableDefinition] carries the column descriptors handed to the
// table controller plus the storage mapping (source table, key column,
// database column per field).
//
// # Queries
//
// [Service.Fetch] answers a table.ChangeRequest: the search state becomes
// a WHERE clause built by [WhereBuilder] (text columns match by substring,
// numbers and booleans by equality, dates by calendar day), the sort
// becomes ORDER BY, and page/size become LIMIT/OFFSET. [Service.SaveRow]
// writes the editable fields of one row after [RowValidator] accepted them.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError].
// See error_messages.go for the code reference.
package core
