package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/webdriver-bridge/internal/bridge"
	"github.com/user/webdriver-bridge/internal/browser"
	"github.com/user/webdriver-bridge/internal/control"
	"github.com/user/webdriver-bridge/internal/driver"
	"github.com/user/webdriver-bridge/internal/observability"
	"github.com/user/webdriver-bridge/internal/registry"
)

// extensionWait is how long serve waits before warning that the extension
// has not connected.
const extensionWait = 30 * time.Second

var noBrowser bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge",
	Long: `Starts the listener the extension connects to, launches the browser with the
extension loaded and opens the control socket. Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not launch the browser; wait for an already running one")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := observability.GetLogger()

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New[*bridge.Conn]()
	listener := bridge.NewListener(cfg.Bridge.Port, reg, logger, bridge.WithBacklog(cfg.Bridge.Backlog))
	if err := listener.Start(ctx); err != nil {
		return err
	}
	defer listener.Stop()

	port := cfg.Bridge.Port
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	var opts []driver.Option
	if cfg.Chrome.Launch && !noBrowser {
		proc := browser.NewProcess(browser.Options{
			Binary:       cfg.Chrome.Binary,
			Args:         cfg.Chrome.Args,
			ExtensionDir: cfg.Chrome.ExtensionDir,
			ProfileDir:   cfg.Chrome.ProfileDir,
			Port:         port,
		}, logger)
		if err := proc.Start(); err != nil {
			return err
		}
		defer func() {
			if err := proc.Stop(); err != nil {
				logger.Warn("failed to stop browser", zap.Error(err))
			}
		}()
		opts = append(opts, driver.WithRestarter(proc))
	} else {
		pterm.Info.Printfln("Open %s in a browser with the extension loaded", browser.HostPageURL(port))
	}

	executor := bridge.NewExecutor(cat, reg, cfg.Bridge.Timeout, logger)
	drv := driver.New(executor, logger, opts...)
	server := control.NewServer(cfg.Control.Socket, drv, cat, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx)
	})
	g.Go(func() error {
		awaitExtension(gctx, listener, extensionWait)
		return nil
	})

	pterm.Success.Printfln("Bridge listening on port %d, control socket %s", port, cfg.Control.Socket)
	err = g.Wait()
	logger.Info("shutting down")
	return err
}

// awaitExtension reports when the extension first connects and warns once
// if it has not connected within wait.
func awaitExtension(ctx context.Context, listener *bridge.Listener, wait time.Duration) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(wait)

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			pterm.Warning.Printfln("The extension has not connected after %s", wait)
			deadline = nil
		case <-ticker.C:
			if listener.HasClient() {
				pterm.Success.Println("Extension connected")
				return
			}
		}
	}
}
