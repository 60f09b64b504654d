package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/render"
	"github.com/JonMunkholm/datatable/internal/render/text"
	"github.com/JonMunkholm/datatable/internal/table"
)

var queryOpts queryOptions

var queryCmd = &cobra.Command{
	Use:   "query <table> [dataIndex=value...]",
	Short: "Print one page of a table",
	Long: `Query applies filters, sort and page the way the web table does and
prints the resulting page.

Filters are dataIndex=value pairs. Text columns match by substring,
boolean columns take true/false (or yes/no), date columns take YYYY-MM-DD.

Example:
  datatable query customers
  datatable query customers name=ann active=true --sort name
  datatable query invoices --sort total:descend --page 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := core.Lookup(args[0])
		if err != nil {
			return err
		}
		queryOpts.filters = args[1:]

		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		return runQuery(cmd.Context(), newService(pool), def, queryOpts, cmd.OutOrStdout())
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryOpts.page, "page", 1, "page to print, 1-based")
	queryCmd.Flags().IntVar(&queryOpts.pageSize, "page-size", 0, "rows per page (default: the table's page size)")
	queryCmd.Flags().StringVar(&queryOpts.sort, "sort", "", "sort as dataIndex[:ascend|descend]")
	queryCmd.Flags().BoolVar(&queryOpts.json, "json", false, "print the page as JSON")
	queryCmd.Flags().IntVar(&queryOpts.maxWidth, "max-width", text.DefaultMaxWidth, "widest column in text output, 0 for no limit")
}

type queryOptions struct {
	filters  []string
	page     int
	pageSize int
	sort     string
	json     bool
	maxWidth int
}

// pageSource is the part of core.Service a query needs.
type pageSource interface {
	PageSize(def core.TableDefinition) int
	Fetch(ctx context.Context, tableKey string, req table.ChangeRequest) (*core.Page, error)
}

// runQuery replays the options through a table controller, fetches the
// page the controller asks for and prints it.
func runQuery(ctx context.Context, src pageSource, def core.TableDefinition, opts queryOptions, w io.Writer) error {
	size := src.PageSize(def)
	if opts.pageSize > 0 {
		size = opts.pageSize
	}
	var pending *table.ChangeRequest

	props := table.Props{
		Columns:    def.Columns(),
		Pagination: &table.Pagination{PageSize: size},
		OnChange:   func(req table.ChangeRequest) { pending = &req },
	}
	ctrl := table.New(props,
		table.WithLogger(logger.With("table", def.Info.Key)),
		table.WithDefaultPageSize(size),
	)

	for _, arg := range opts.filters {
		dataIndex, value, err := render.ParseFilterArg(arg)
		if err != nil {
			return err
		}
		if err := render.ApplyFilter(ctrl.View().Header, dataIndex, value, false); err != nil {
			return err
		}
	}

	sorter, err := parseSortFlag(def, opts.sort)
	if err != nil {
		return err
	}
	if opts.page > table.FirstPage || sorter.Field != "" {
		ctrl.OnTableChange(table.Pagination{Current: opts.page, PageSize: size}, sorter)
	}

	req := ctrl.CurrentRequest()
	if pending != nil {
		req = *pending
	}
	page, err := src.Fetch(ctx, def.Info.Key, req)
	if err != nil {
		return err
	}

	props.Rows = page.Rows
	props.Pagination = &table.Pagination{
		PageSize: page.Size,
		Current:  page.Page + table.FirstPage,
		Total:    int(page.Total),
	}
	ctrl.Update(props)

	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Request    table.ChangeRequest `json:"request"`
			Pagination *table.Pagination   `json:"pagination"`
			Rows       []table.Record      `json:"rows"`
		}{req, props.Pagination, page.Rows})
	}
	return text.New(w, text.WithMaxWidth(opts.maxWidth)).View(ctrl.View())
}

// parseSortFlag reads "field" or "field:order". The field must be a
// sortable column.
func parseSortFlag(def core.TableDefinition, s string) (table.Sorter, error) {
	if s == "" {
		return table.Sorter{}, nil
	}
	field, order, ok := strings.Cut(s, ":")
	if !ok {
		order = "ascend"
	}
	f, found := def.Field(field)
	if !found || !f.IsSortable {
		return table.Sorter{}, fmt.Errorf("%s cannot be sorted by %q", def.Info.Key, field)
	}
	o, valid := table.ParseSortOrder(order)
	if !valid {
		return table.Sorter{}, fmt.Errorf("unknown sort order %q (want ascend or descend)", order)
	}
	if o == table.SortDesc {
		order = "descend"
	} else {
		order = "ascend"
	}
	return table.Sorter{Field: field, Order: order}, nil
}
