// Command datatable serves the tables of a YAML catalog as filterable,
// sortable and editable data tables, and queries them from the shell.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/logging"
)

var (
	// envFile is set by the --env flag.
	envFile string

	// catalogPath is set by the --catalog flag; TABLE_CATALOG otherwise.
	catalogPath string

	// cfg, logger and catalog are initialized before any command runs.
	cfg     *config.Config
	logger  *slog.Logger
	catalog *core.Catalog
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "datatable",
	Short: "Data tables over PostgreSQL",
	Long: `datatable serves the tables declared in a YAML catalog as web data
tables with per-column filters, sorting, pagination and row editing.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "env file merged into the environment when present")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "table catalog (default: $TABLE_CATALOG or tables.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(columnsCmd)
	rootCmd.AddCommand(catalogCmd)
}

// setup loads configuration, installs logging and registers the catalog.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(envFile)
	if err != nil {
		return err
	}
	cfg = c

	// only the server logs to stdout; the other commands print results there
	if cmd == serveCmd {
		logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	} else {
		logger = logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(logger)
	}

	path := catalogPath
	if path == "" {
		path = cfg.Table.CatalogPath
	}
	cat, err := core.LoadCatalog(path)
	if err != nil {
		return err
	}
	if err := cat.Register(); err != nil {
		return fmt.Errorf("register catalog %s: %w", path, err)
	}
	catalog = cat

	logger.Debug("tables registered",
		"catalog", path,
		"count", core.TableCount(),
		"groups", len(core.Groups()),
	)
	return nil
}
