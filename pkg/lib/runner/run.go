package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// EnvVar is an environment variable passed to the container.
type EnvVar struct {
	Name  string
	Value string
}

func (v EnvVar) String() string {
	return v.Name + "=" + v.Value
}

// RunHandle identifies a running container.
type RunHandle struct {
	ContainerID string
	ImageTag    string
	Port        int
	Env         []EnvVar

	proc *process
}

// Done is closed when the run subprocess exits.
func (h *RunHandle) Done() <-chan struct{} {
	if h == nil || h.proc == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.proc.done
}

// Status reports the state of the run subprocess.
func (h *RunHandle) Status() lib.ProcessStatus {
	if h == nil || h.proc == nil {
		return lib.ProcessStatus{}
	}
	return h.proc.lockAndGetStatus()
}

// Run starts a container from tag with host port mapped to ContainerPort.
// It returns once the engine subprocess has been spawned.
func (e *Engine) Run(ctx context.Context, dir, tag string, port int) (*RunHandle, error) {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	if e.active != nil {
		if !e.active.proc.exited() {
			id := e.active.ContainerID
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", lib.ErrProcessRunning, id)
		}
		e.active = nil
	}
	e.mu.Unlock()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lib.ErrIO, err)
	}

	h := &RunHandle{
		ContainerID: lib.NewID(),
		ImageTag:    tag,
		Port:        port,
		Env:         e.envVars(ctx),
	}

	args := []string{"run", "-i", "--name", h.ContainerID, "-p", fmt.Sprintf("%d:%d", port, ContainerPort)}
	for _, v := range h.Env {
		args = append(args, "--env", v.String())
	}
	args = append(args, tag)

	e.emit(lib.AppStarting)
	e.logf(slog.LevelInfo, "Running emulator on port %d", port)

	p, err := e.start("RUN", startOptions{dir: absDir, stdin: true}, args...)
	if err != nil {
		return nil, err
	}
	h.proc = p

	e.mu.Lock()
	e.active = h
	e.mu.Unlock()

	return h, nil
}

// envVars returns the variables that emulate the hosted environment.
func (e *Engine) envVars(ctx context.Context) []EnvVar {
	service := defaultServiceName
	e.mu.Lock()
	if e.config != nil && e.config.Service != "" {
		service = e.config.Service
	}
	e.mu.Unlock()

	return []EnvVar{
		{Name: "GAE_VERSION", Value: LocalSentinel},
		{Name: "GAE_SERVICE", Value: service},
		{Name: "GAE_INSTANCE", Value: LocalSentinel},
		{Name: "GCLOUD_PROJECT", Value: e.cloudProject(ctx)},
		{Name: "PORT", Value: fmt.Sprint(ContainerPort)},
	}
}

func (e *Engine) cloudProject(ctx context.Context) string {
	if e.projects == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, cloudProjectTimeout)
	defer cancel()

	id, err := e.projects.CloudProject(ctx)
	if err != nil {
		e.logf(slog.LevelDebug, "Unable to determine cloud project: %v", err)
		return ""
	}
	return id
}
