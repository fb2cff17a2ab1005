package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/user/webdriver-bridge/internal/config"
)

// HostPagePath is the page the extension keeps open on the bridge.
const HostPagePath = "/chromeCommandExecutor"

// candidates are tried on PATH in order.
var candidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
}

// ErrNotFound is returned when no browser binary can be located.
var ErrNotFound = errors.New("no chrome binary found; set webdriver.chrome.bin or chrome.binary")

// Discover returns the browser binary: configured if set, then the
// webdriver.chrome.bin environment variable, then the first known name on PATH.
func Discover(configured string) (string, error) {
	for _, p := range []string{configured, os.Getenv(config.EnvChromeBinary)} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("chrome binary %s: %w", p, err)
		}
		return p, nil
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Args builds the browser command line for a bridge listening on port.
func Args(opts Options, profileDir string) []string {
	args := []string{
		"--user-data-dir=" + profileDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-popup-blocking",
	}
	if opts.ExtensionDir != "" {
		args = append(args, "--load-extension="+opts.ExtensionDir)
	}
	args = append(args, opts.Args...)
	return append(args, HostPageURL(opts.Port))
}

// HostPageURL is the URL of the keep-alive page served by the listener.
func HostPageURL(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, HostPagePath)
}
