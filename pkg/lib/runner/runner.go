// Package runner drives an external container engine (docker by default)
// through its build, run and stop subcommands. The engine is treated as an
// opaque subprocess: it is invoked by argument list and observed through its
// exit code and stdio, which is streamed line by line to a lib.Sink.
package runner

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JustinBeckwith/flem/pkg/lib"
	"github.com/JustinBeckwith/flem/pkg/lib/project"
)

const (
	// DefaultBinary is the engine executable looked up on PATH.
	DefaultBinary = "docker"
	// ContainerPort is the port the application listens on inside the container.
	ContainerPort = 8080
	// LocalSentinel fills the environment values that only exist in the cloud.
	LocalSentinel = "---local---"

	defaultStopGrace    = 10 * time.Second
	cloudProjectTimeout = 10 * time.Second
	defaultServiceName  = "default"
)

// Engine is the process orchestrator. It tracks at most one running
// container at a time.
type Engine struct {
	binary    string
	imageTag  string
	sink      lib.Sink
	projects  project.CloudProjectResolver
	stopGrace time.Duration

	// lifecycle serializes Run and Stop.
	lifecycle sync.Mutex

	mu     sync.Mutex
	active *RunHandle
	config *lib.ProjectConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithBinary sets the engine executable.
func WithBinary(binary string) Option {
	return func(e *Engine) {
		e.binary = binary
	}
}

// WithImageTag fixes the image tag instead of deriving it from the project directory.
func WithImageTag(tag string) Option {
	return func(e *Engine) {
		e.imageTag = tag
	}
}

// WithProjectResolver sets how GCLOUD_PROJECT is resolved.
func WithProjectResolver(r project.CloudProjectResolver) Option {
	return func(e *Engine) {
		e.projects = r
	}
}

// WithStopGrace sets how long Stop waits for the run subprocess to exit
// after the engine stop subcommand returns before killing it.
func WithStopGrace(d time.Duration) Option {
	return func(e *Engine) {
		e.stopGrace = d
	}
}

// NewEngine creates an Engine publishing its events and output to sink.
func NewEngine(sink lib.Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = lib.Discard
	}
	e := &Engine{
		binary:    DefaultBinary,
		sink:      sink,
		projects:  project.Gcloud{},
		stopGrace: defaultStopGrace,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Binary returns the engine executable.
func (e *Engine) Binary() string {
	return e.binary
}

// Active returns the tracked run handle, or nil.
func (e *Engine) Active() *RunHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) emit(event lib.AppEvent) {
	e.sink.Publish(lib.Output{Event: event, Level: slog.LevelInfo, Text: string(event)})
}

func (e *Engine) logf(level slog.Level, format string, args ...any) {
	e.sink.Publish(lib.Output{Level: level, Text: fmt.Sprintf(format, args...)})
}
