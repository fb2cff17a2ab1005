package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/webdriver-bridge/internal/command"
	"github.com/user/webdriver-bridge/internal/config"
	"github.com/user/webdriver-bridge/internal/observability"
)

var (
	configFile string
	debug      bool
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "webdriver-bridge",
	Short: "Drive Chrome through the WebDriver extension",
	Long: `webdriver-bridge hosts the local endpoint the Chrome WebDriver extension polls
for commands, launches the browser with the extension loaded and exposes a
control socket that client bindings use to run commands.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, execCmd, commandsCmd, versionCmd)
}

func execute() {
	err := rootCmd.Execute()
	observability.Sync()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	if err := config.Setup(v, configFile); err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if debug {
		c.Logger.Level = "debug"
	}
	cfg = c
	observability.InitializeLogger(cfg.Logger)
	return nil
}

// loadCatalog returns the default catalog, overlaid with the configured file.
// A catalog that fails validation stops startup.
func loadCatalog(c config.CatalogConfig) (*command.Catalog, error) {
	cat := command.DefaultCatalog()
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		if cat, err = command.LoadCatalog(f); err != nil {
			return nil, err
		}
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command catalog: %w", err)
	}
	return cat, nil
}
