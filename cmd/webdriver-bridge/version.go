package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "0.0.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		pterm.Printfln("webdriver-bridge %s", Version)
	},
}
