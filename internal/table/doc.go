// Package table is the controller behind a server-driven data table.
//
// It sits between a table renderer and the caller's data source and
// keeps three pieces of state consistent: the active per-column filters
// (search state), the pagination state, and the single row in edit
// mode. It has no UI or database dependencies.
//
// # Columns
//
// Callers declare [Column] descriptors. [Transform] turns them into
// [AugmentedColumn]s whose HeaderCell and BodyCell hooks carry filter and
// editing behavior, and appends an Actions column when the table is
// editable. The controller memoizes the transform on the identity of the
// caller's column slice, so pass the same slice until the columns change.
//
// # Change requests
//
// Every filter, page or sort interaction produces one [ChangeRequest]
// carrying the full active search set plus page (0-based) and size. The
// caller fetches the matching rows and pushes them back with
// [Controller.Update]:
//
//	ctrl := table.New(table.Props{
//	    Columns:    columns,
//	    Pagination: &table.Pagination{PageSize: 10},
//	    OnChange: func(req table.ChangeRequest) {
//	        pending = req
//	    },
//	})
//
// Filter changes always reset to the first page. A page change keeps the
// requested size; a sort without a page change resets to the first page
// at the default size.
//
// # Editing
//
// At most one row is in edit mode. Save validates the row's [Form] and
// passes the validated values to OnSave. A save that completes after the
// user moved to another row is discarded with [ErrStaleSave].
package table
