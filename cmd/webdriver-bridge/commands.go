package main

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/user/webdriver-bridge/internal/command"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the commands the extension understands",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg.Catalog)
		if err != nil {
			return err
		}
		return pterm.DefaultTable.WithHasHeader().WithData(catalogRows(cat)).Render()
	},
}

// catalogRows renders cat as a table in kind declaration order.
func catalogRows(cat *command.Catalog) pterm.TableData {
	entries := cat.Entries()
	rows := pterm.TableData{{"Command", "Wire name", "Parameters"}}
	for _, k := range command.Kinds() {
		e, ok := entries[k]
		if !ok {
			continue
		}
		rows = append(rows, []string{k.String(), e.Wire, strings.Join(e.Params, ", ")})
	}
	return rows
}
