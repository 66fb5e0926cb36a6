package watchdog

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
)

// ProcessBuilder is a Builder that scaffolds a runit-style service
// directory (run script, env files) and supervises the command as a
// child process. The generated script is what actually execs, so an
// operator can inspect or run it by hand.
type ProcessBuilder struct {
	// Name is the service name
	Name string
	// Dir is the base directory where the service directory is created
	Dir string
	// Cmd is the command and arguments to execute
	Cmd []string
	// Cwd is the working directory for the service
	Cwd string
	// Env contains environment variables exported by the run script
	Env map[string]string
	// StopSignal is sent to the process on Stop
	StopSignal os.Signal
	// StopWait is the grace period before escalating to SIGKILL
	StopWait time.Duration
	// OnExit, if set, is invoked when the process exits without having
	// been asked to stop
	OnExit func(err error)
}

// NewProcessBuilder creates a ProcessBuilder with default settings
func NewProcessBuilder(name, dir string) *ProcessBuilder {
	return &ProcessBuilder{
		Name:       name,
		Dir:        dir,
		Env:        make(map[string]string),
		StopSignal: syscall.SIGTERM,
		StopWait:   DefaultStopWait,
	}
}

// WithCmd sets the command to execute
func (b *ProcessBuilder) WithCmd(cmd ...string) *ProcessBuilder {
	b.Cmd = cmd
	return b
}

// WithCwd sets the working directory
func (b *ProcessBuilder) WithCwd(cwd string) *ProcessBuilder {
	b.Cwd = cwd
	return b
}

// WithEnv adds an environment variable
func (b *ProcessBuilder) WithEnv(key, value string) *ProcessBuilder {
	b.Env[key] = value
	return b
}

// WithStopSignal sets the signal sent on Stop
func (b *ProcessBuilder) WithStopSignal(sig os.Signal) *ProcessBuilder {
	b.StopSignal = sig
	return b
}

// WithStopWait sets the grace period before SIGKILL
func (b *ProcessBuilder) WithStopWait(d time.Duration) *ProcessBuilder {
	b.StopWait = d
	return b
}

// WithExitNotify sets the callback invoked when the process exits on
// its own. Wire this to Supervisor.ExternalStopRequest so a crashed
// service is unloaded and restarted at the next monitor tick.
func (b *ProcessBuilder) WithExitNotify(fn func(err error)) *ProcessBuilder {
	b.OnExit = fn
	return b
}

// Build creates the service directory and returns an unstarted
// ProcessService. Build implements Builder, so a ProcessBuilder can be
// handed straight to New.
func (b *ProcessBuilder) Build(_ context.Context) (Service, error) {
	if b.Dir == "" {
		return nil, fmt.Errorf("service directory not specified")
	}
	if len(b.Cmd) == 0 {
		return nil, fmt.Errorf("command not specified")
	}

	serviceDir := filepath.Join(b.Dir, b.Name)
	if err := os.MkdirAll(serviceDir, DirMode); err != nil {
		return nil, fmt.Errorf("creating service directory: %w", err)
	}

	if len(b.Env) > 0 {
		envDir := filepath.Join(serviceDir, "env")
		if err := os.MkdirAll(envDir, DirMode); err != nil {
			return nil, fmt.Errorf("creating env directory: %w", err)
		}
		for key, value := range b.Env {
			envFile := filepath.Join(envDir, key)
			if err := renameio.WriteFile(envFile, []byte(value), FileMode); err != nil {
				return nil, fmt.Errorf("writing env file %s: %w", key, err)
			}
		}
	}

	runFile := filepath.Join(serviceDir, "run")
	if err := renameio.WriteFile(runFile, []byte(b.buildRunScript()), ExecMode); err != nil {
		return nil, fmt.Errorf("writing run script: %w", err)
	}

	return &ProcessService{
		dir:        serviceDir,
		script:     runFile,
		stopSignal: b.StopSignal,
		stopWait:   b.StopWait,
		onExit:     b.OnExit,
	}, nil
}

// buildRunScript generates the run script for the service
func (b *ProcessBuilder) buildRunScript() string {
	var lines []string
	lines = append(lines, "#!/bin/sh")
	lines = append(lines, "exec 2>&1")

	if b.Cwd != "" {
		lines = append(lines, fmt.Sprintf("cd %s", shellQuote(b.Cwd)))
	}

	// Stable order so rebuilding an unchanged config rewrites an
	// identical script.
	keys := make([]string, 0, len(b.Env))
	for key := range b.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("export %s=%s", key, shellQuote(b.Env[key])))
	}

	cmdParts := make([]string, 0, len(b.Cmd))
	for _, part := range b.Cmd {
		cmdParts = append(cmdParts, shellQuote(part))
	}
	lines = append(lines, "exec "+strings.Join(cmdParts, " "))

	return strings.Join(lines, "\n") + "\n"
}

// ProcessService drives one child process created from a generated run
// script. It implements Service.
type ProcessService struct {
	dir        string
	script     string
	stopSignal os.Signal
	stopWait   time.Duration
	onExit     func(err error)

	mu       sync.Mutex
	cmd      *exec.Cmd
	stopping bool
	exited   chan struct{}
	exitErr  error
}

// Start launches the run script
func (p *ProcessService) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return nil
	}

	cmd := exec.Command("/bin/sh", p.script)
	cmd.Dir = p.dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", p.script, err)
	}

	p.cmd = cmd
	p.exited = make(chan struct{})

	exited := p.exited
	go func() {
		err := cmd.Wait()

		p.mu.Lock()
		p.exitErr = err
		notify := !p.stopping && p.onExit != nil
		p.mu.Unlock()
		close(exited)

		if notify {
			p.onExit(err)
		}
	}()

	return nil
}

// Stop signals the process and waits for it to exit, escalating to
// SIGKILL after the grace period. Stopping a process that never started
// or already exited is a no-op.
func (p *ProcessService) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopping = true
	cmd := p.cmd
	exited := p.exited
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	select {
	case <-exited:
		return nil
	default:
	}

	if err := cmd.Process.Signal(p.stopSignal); err != nil {
		return fmt.Errorf("signaling pid %d: %w", cmd.Process.Pid, err)
	}

	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.stopWait):
	}

	_ = cmd.Process.Kill()

	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unload releases the handle state. The service directory is left in
// place so logs and scripts survive for inspection.
func (p *ProcessService) Unload(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmd = nil
	return nil
}

// PID returns the process ID, or 0 if the process is not running
func (p *ProcessService) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	select {
	case <-p.exited:
		return 0
	default:
	}
	return p.cmd.Process.Pid
}

// Dir returns the generated service directory
func (p *ProcessService) Dir() string {
	return p.dir
}

// shellQuote escapes a string for safe use in shell scripts
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !needsShellQuoting(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// needsShellQuoting checks if a string contains characters that require
// shell quoting
func needsShellQuoting(s string) bool {
	const specialChars = " \t\n'\"\\$`!*?[](){}<>|&;~#="

	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}
