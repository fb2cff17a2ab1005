package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/user/webdriver-bridge/internal/control"
)

var execTimeout time.Duration

var execCmd = &cobra.Command{
	Use:   "exec <command> [json-param...]",
	Short: "Run one command on a running bridge",
	Long: `Sends one command through the control socket of a running bridge and prints
its value. Parameters are JSON values in catalog order; an argument that is
not valid JSON is sent as a string.

  webdriver-bridge exec get http://example.com
  webdriver-bridge exec FindElement "css selector" "#main"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 30*time.Second, "how long to wait for the bridge and the command")
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), execTimeout)
	defer cancel()

	client, err := control.Dial(ctx, cfg.Control.Socket)
	if err != nil {
		return fmt.Errorf("is the bridge running? %w", err)
	}
	defer client.Close()

	resp, err := client.Do(ctx, args[0], parseParams(args[1:])...)
	if resp != nil && len(resp.Value) > 0 {
		pterm.Println(formatValue(resp.Value))
	}
	if err != nil {
		return err
	}
	pterm.Success.Printfln("%s: status %d", args[0], resp.Status)
	return nil
}

// parseParams treats each argument as JSON, falling back to a string.
func parseParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, a := range args {
		if json.Valid([]byte(a)) {
			params = append(params, json.RawMessage(a))
		} else {
			params = append(params, a)
		}
	}
	return params
}

func formatValue(raw json.RawMessage) string {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
