package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/render/text"
)

var columnsCmd = &cobra.Command{
	Use:   "columns <table>",
	Short: "List the columns of a table and what each supports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := core.Lookup(args[0])
		if err != nil {
			return err
		}
		return text.New(cmd.OutOrStdout()).Columns(def.Columns())
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate the table catalog and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// setup has already parsed and registered it
		return catalog.Encode(cmd.OutOrStdout())
	},
}
