// Browser Process
//
// Runs the browser under a pseudo-terminal so its console output is line
// buffered, pumps that output into the log and tears down the whole process
// tree on stop.

package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

// Options configures a browser launch.
type Options struct {
	Binary       string
	Args         []string
	ExtensionDir string
	// ProfileDir is used as-is when set; otherwise a temporary profile is
	// created per start and removed on stop.
	ProfileDir string
	Port       int
}

// Process manages one browser instance.
type Process struct {
	opts   Options
	logger *zap.Logger

	cmd        *exec.Cmd
	ptmx       *os.File
	profileDir string
	tempDir    bool
	running    bool
	exited     chan struct{}
	outputDone chan struct{}
	mutex      sync.Mutex
}

// NewProcess creates a browser process manager.
func NewProcess(opts Options, logger *zap.Logger) *Process {
	return &Process{opts: opts, logger: logger.Named("browser")}
}

// Start launches the browser.
func (p *Process) Start() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return errors.New("browser already running")
	}

	binary, err := Discover(p.opts.Binary)
	if err != nil {
		return err
	}

	profileDir := p.opts.ProfileDir
	tempDir := false
	if profileDir == "" {
		profileDir, err = os.MkdirTemp("", "webdriver-profile-")
		if err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
		tempDir = true
	}

	cmd := exec.Command(binary, Args(p.opts, profileDir)...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		if tempDir {
			os.RemoveAll(profileDir)
		}
		return fmt.Errorf("start %s: %w", binary, err)
	}

	p.cmd = cmd
	p.ptmx = ptmx
	p.profileDir = profileDir
	p.tempDir = tempDir
	p.running = true
	p.exited = make(chan struct{})
	p.outputDone = make(chan struct{})
	p.logger.Info("started browser", zap.String("binary", binary), zap.Int("pid", cmd.Process.Pid), zap.String("profile", profileDir))

	go p.readOutput(ptmx, p.outputDone)

	exited := p.exited
	go func() {
		err := cmd.Wait()
		p.logger.Info("browser exited", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
		p.mutex.Lock()
		if p.cmd == cmd {
			p.running = false
		}
		p.mutex.Unlock()
		close(exited)
	}()

	return nil
}

// readOutput logs the browser's console output line by line.
func (p *Process) readOutput(ptmx *os.File, done chan struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(ptmx)
	for scanner.Scan() {
		p.logger.Debug("console", zap.String("line", scanner.Text()))
	}
}

// Running reports whether the browser process is alive.
func (p *Process) Running() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.running
}

// Pid returns the browser's process id, 0 when not started.
func (p *Process) Pid() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Stop kills the browser and every process it spawned.
func (p *Process) Stop() error {
	p.mutex.Lock()
	cmd, ptmx, exited, outputDone := p.cmd, p.ptmx, p.exited, p.outputDone
	profileDir, tempDir := p.profileDir, p.tempDir
	p.running = false
	p.mutex.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	select {
	case <-exited:
	default:
		if proc, err := process.NewProcessWithContext(ctx, int32(cmd.Process.Pid)); err == nil {
			killTree(ctx, proc, p.logger)
		} else {
			cmd.Process.Kill()
		}
	}

	if ptmx != nil {
		ptmx.Close()
	}

	var err error
	for _, done := range []chan struct{}{exited, outputDone} {
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("browser pid %d did not exit within %s", cmd.Process.Pid, stopTimeout)
		}
	}

	if tempDir {
		os.RemoveAll(profileDir)
	}
	return err
}

// killTree kills children before their parent so none are re-parented.
func killTree(ctx context.Context, proc *process.Process, logger *zap.Logger) {
	children, err := proc.ChildrenWithContext(ctx)
	if err == nil {
		for _, child := range children {
			killTree(ctx, child, logger)
		}
	}
	if err := proc.KillWithContext(ctx); err != nil {
		logger.Debug("kill failed", zap.Int32("pid", proc.Pid), zap.Error(err))
	}
}

// Restart stops the browser and starts a fresh instance.
func (p *Process) Restart(ctx context.Context) error {
	if err := p.Stop(); err != nil {
		p.logger.Warn("stop before restart", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Info("restarting browser")
	return p.Start()
}
