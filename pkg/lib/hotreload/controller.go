// Package hotreload runs a project in a container and rebuilds it whenever
// its source tree changes.
package hotreload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JustinBeckwith/flem/pkg/lib"
	"github.com/JustinBeckwith/flem/pkg/lib/runner"
)

// DefaultDebounce is how long the controller waits for a burst of file
// changes to settle before restarting.
const DefaultDebounce = 300 * time.Millisecond

// Orchestrator builds, runs and stops containers. *runner.Engine implements it.
type Orchestrator interface {
	Build(dir string) (*lib.BuildResult, error)
	Run(ctx context.Context, dir, tag string, port int) (*runner.RunHandle, error)
	Stop(ctx context.Context, containerID string) error
}

// Controller drives one hot reload session. All restarts happen on a single
// goroutine, so at most one stop or rebuild is in flight.
type Controller struct {
	orch     Orchestrator
	sink     lib.Sink
	debounce time.Duration
	skipDirs map[string]bool

	mu       sync.Mutex
	state    lib.SessionState
	handle   *runner.RunHandle
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the quiet period used to coalesce file changes.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// WithSkipDirs adds directory names that are never watched.
func WithSkipDirs(names ...string) Option {
	return func(c *Controller) {
		for _, n := range names {
			c.skipDirs[n] = true
		}
	}
}

// New creates an idle Controller.
func New(orch Orchestrator, sink lib.Sink, opts ...Option) *Controller {
	if sink == nil {
		sink = lib.Discard
	}
	c := &Controller{
		orch:     orch,
		sink:     sink,
		debounce: DefaultDebounce,
		skipDirs: map[string]bool{".git": true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current session state.
func (c *Controller) State() lib.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Handle returns the running container, or nil.
func (c *Controller) Handle() *runner.RunHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// RunHot builds and runs the project in dir with its port mapped to port,
// then starts watching the tree. It returns once the first container is
// running and the watch is established. A build failure is returned and
// leaves the controller idle.
func (c *Controller) RunHot(ctx context.Context, dir string, port int) error {
	c.mu.Lock()
	switch c.state {
	case lib.SessionClosed:
		c.mu.Unlock()
		return lib.ErrSessionClosed
	case lib.SessionIdle:
		c.state = lib.SessionBuilding
	default:
		c.mu.Unlock()
		return lib.ErrSessionActive
	}
	c.mu.Unlock()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		c.setState(lib.SessionIdle)
		return fmt.Errorf("%w: %w", lib.ErrIO, err)
	}

	res, err := c.launch(ctx, absDir, port)
	if err != nil {
		c.setState(lib.SessionIdle)
		return err
	}
	w, err := c.watch(ctx, absDir, res.GeneratedFiles)
	if err != nil {
		c.setState(lib.SessionIdle)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	if c.state == lib.SessionClosed {
		// Shut down while the first cycle was running.
		c.mu.Unlock()
		cancel()
		_ = w.Close()
		if err := c.stopActive(ctx); err != nil && !errors.Is(err, lib.ErrNoActiveProcess) {
			return errors.Join(lib.ErrSessionClosed, err)
		}
		return lib.ErrSessionClosed
	}
	c.cancel = cancel
	c.loopDone = make(chan struct{})
	done := c.loopDone
	c.mu.Unlock()

	c.emit(lib.AppStarted)
	go c.loop(loopCtx, absDir, port, w, done)

	return nil
}

// Shutdown ends the session: the watch loop exits and the running
// container is stopped. The controller cannot be reused.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.state == lib.SessionClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = lib.SessionClosed
	cancel, done := c.cancel, c.loopDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := c.stopActive(ctx); err != nil && !errors.Is(err, lib.ErrNoActiveProcess) {
		return err
	}
	return nil
}

// launch builds and runs the project.
func (c *Controller) launch(ctx context.Context, dir string, port int) (*lib.BuildResult, error) {
	c.setState(lib.SessionBuilding)
	res, err := c.orch.Build(dir)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, err := c.orch.Run(ctx, dir, res.ImageTag, port)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.handle = h
	c.mu.Unlock()
	c.setState(lib.SessionRunning)
	return res, nil
}

// watch starts watching dir. If that fails the running container is stopped.
func (c *Controller) watch(ctx context.Context, dir string, ignore []string) (*watcher, error) {
	w, err := newWatcher(dir, ignore, c.skipDirs)
	if err != nil {
		if serr := c.stopActive(ctx); serr != nil {
			c.logf(slog.LevelError, "Error stopping container: %v", serr)
		}
		return nil, err
	}
	c.setState(lib.SessionWatching)
	return w, nil
}

func (c *Controller) loop(ctx context.Context, dir string, port int, w *watcher, done chan struct{}) {
	defer close(done)

	for {
		if !c.waitForChange(ctx, w) {
			_ = w.Close()
			return
		}
		for {
			next, again, ok := c.restart(ctx, dir, port, w)
			if !ok {
				return
			}
			w = next
			if !again {
				break
			}
			c.logf(slog.LevelInfo, "Files changed during rebuild, restarting...")
		}
	}
}

// restart stops the container and runs a new cycle, then returns the watch
// for it. The old watch keeps recording changes until the new cycle is up;
// again reports whether any arrived. A failed rebuild still returns a watch
// so the next change retries. ok is false when the loop must end.
func (c *Controller) restart(ctx context.Context, dir string, port int, old *watcher) (w *watcher, again, ok bool) {
	finish := old.track()

	c.emit(lib.AppRestarting)
	if err := c.stopActive(ctx); err != nil && !errors.Is(err, lib.ErrNoActiveProcess) {
		if ctx.Err() != nil {
			finish()
			return nil, false, false
		}
		c.logf(slog.LevelError, "Error stopping container: %v", err)
	}
	c.logf(slog.LevelInfo, "Process stopped, rebuilding container...")

	res, err := c.launch(ctx, dir, port)
	again = finish()
	if ctx.Err() != nil {
		return nil, false, false
	}

	ignore := old.ignored
	if err != nil {
		c.logf(slog.LevelError, "Rebuild failed: %v", err)
	} else {
		ignore = res.GeneratedFiles
	}

	w, werr := c.watch(ctx, dir, ignore)
	if werr != nil {
		c.logf(slog.LevelError, "Unable to watch %s: %v", dir, werr)
		c.setState(lib.SessionIdle)
		return nil, false, false
	}
	if err == nil {
		c.emit(lib.AppStarted)
	}
	return w, again, true
}

// waitForChange blocks until a relevant change has been followed by a quiet
// period of c.debounce. It returns false if ctx is done or the watch fails.
func (c *Controller) waitForChange(ctx context.Context, w *watcher) bool {
	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-w.Events:
			if !ok {
				return false
			}
			if !w.relevant(ev) {
				continue
			}
			c.logf(slog.LevelInfo, "File changed: %s, %s", strings.ToLower(ev.Op.String()), ev.Name)
			if ev.Has(fsnotify.Create) {
				// New directories are picked up on the next cycle too,
				// but changes inside them must count now.
				_ = w.addTree(ev.Name)
			}
			settle = time.After(c.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return false
			}
			c.logf(slog.LevelError, "Watch error: %v", err)
		case <-settle:
			return true
		}
	}
}

func (c *Controller) stopActive(ctx context.Context) error {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h == nil {
		return nil
	}

	c.setState(lib.SessionStopping)
	err := c.orch.Stop(ctx, h.ContainerID)
	if err != nil && ctx.Err() != nil {
		return err
	}

	c.mu.Lock()
	if c.handle == h {
		c.handle = nil
	}
	c.mu.Unlock()
	return err
}

// setState moves to s unless the session is closed.
func (c *Controller) setState(s lib.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != lib.SessionClosed {
		c.state = s
	}
}

func (c *Controller) emit(event lib.AppEvent) {
	c.sink.Publish(lib.Output{Event: event, Level: slog.LevelInfo, Text: string(event)})
}

func (c *Controller) logf(level slog.Level, format string, args ...any) {
	c.sink.Publish(lib.Output{Level: level, Text: fmt.Sprintf(format, args...)})
}
