package runner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/JustinBeckwith/flem/pkg/lib"
	"github.com/JustinBeckwith/flem/pkg/lib/output_storage"
)

// process is one engine subprocess.
type process struct {
	name string
	cmd  *exec.Cmd
	pid  int

	stdout *output_storage.LineWriter
	stderr *output_storage.LineWriter
	stdin  io.WriteCloser

	mu       sync.RWMutex
	state    lib.ProcessState
	exitCode *int
	start    time.Time
	end      *time.Time

	done chan struct{}
}

type startOptions struct {
	dir   string
	stdin bool
}

// start spawns the engine with args. name labels the process in debug output.
func (e *Engine) start(name string, opts startOptions, args ...string) (*process, error) {
	if opts.dir != "" {
		if _, err := os.Stat(opts.dir); err != nil {
			return nil, fmt.Errorf("%w: %w", lib.ErrIO, err)
		}
	}

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = opts.dir
	cmd.SysProcAttr = sysProcAttr()

	p := &process{
		name:   name,
		cmd:    cmd,
		stdout: output_storage.NewLineWriter(e.sink, slog.LevelInfo),
		stderr: output_storage.NewLineWriter(e.sink, slog.LevelError),
		done:   make(chan struct{}),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if opts.stdin {
		// Keep stdin open for the lifetime of an interactive run.
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.ToLower(name), err)
		}
		p.stdin = stdin
	}

	e.logf(slog.LevelDebug, "%s %s", e.binary, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		if p.stdin != nil {
			_ = p.stdin.Close()
		}
		if isNotInstalled(err) {
			return nil, &lib.EngineNotInstalledError{Binary: e.binary, Err: err}
		}
		e.logf(slog.LevelError, "%s process exited with err %v", name, err)
		return nil, fmt.Errorf("%s: %w", strings.ToLower(name), err)
	}

	p.pid = cmd.Process.Pid
	p.state = lib.ProcessStateRunning
	p.start = time.Now()

	go p.wait(e)

	return p, nil
}

func (p *process) wait(e *Engine) {
	err := p.cmd.Wait()

	p.stdout.Flush()
	p.stderr.Flush()

	p.mu.Lock()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			p.exitCode = &code
		}
	} else {
		code := 0
		p.exitCode = &code
	}
	now := time.Now()
	p.end = &now
	p.state = lib.ProcessStateStopped
	code := exitCodeOf(p.exitCode)
	p.mu.Unlock()

	e.logf(slog.LevelDebug, "%s process exited with code %d", p.name, code)
	close(p.done)
}

func exitCodeOf(code *int) int {
	if code == nil {
		return -1
	}
	return *code
}

// ExitCode returns the exit code, -1 if the process was killed by a signal,
// or false while it is still running.
func (p *process) ExitCode() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != lib.ProcessStateStopped {
		return 0, false
	}
	return exitCodeOf(p.exitCode), true
}

func (p *process) lockAndGetStatus() lib.ProcessStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := lib.ProcessStatus{State: p.state, StartTime: p.start}
	if p.exitCode != nil {
		st.ExitCode = new(int)
		*st.ExitCode = *p.exitCode
	}
	if p.end != nil {
		t := *p.end
		st.EndTime = &t
	}
	return st
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func isNotInstalled(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
