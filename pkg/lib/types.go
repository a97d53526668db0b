package lib

import (
	"log/slog"
	"time"
)

// Runtime is the language stack a project is built for. It selects the
// build file template.
type Runtime int

const (
	RuntimeCustom Runtime = iota
	RuntimeNodejs
	RuntimePython
	RuntimeGo
	RuntimePHP
	RuntimeRuby
	RuntimeJava
)

var runtimeNames = map[Runtime]string{
	RuntimeCustom: "custom",
	RuntimeNodejs: "nodejs",
	RuntimePython: "python",
	RuntimeGo:     "go",
	RuntimePHP:    "php",
	RuntimeRuby:   "ruby",
	RuntimeJava:   "java",
}

// Runtimes lists every runtime that has a build file template.
var Runtimes = []Runtime{RuntimeNodejs, RuntimePython, RuntimeGo, RuntimePHP, RuntimeRuby, RuntimeJava}

func (r Runtime) String() string {
	if name, ok := runtimeNames[r]; ok {
		return name
	}
	return "unknown"
}

// ProjectConfig is the parsed runtime declaration (app.yaml) of a project.
type ProjectConfig struct {
	Runtime       string         `yaml:"runtime"`
	Entrypoint    string         `yaml:"entrypoint"`
	Service       string         `yaml:"service"`
	RuntimeConfig map[string]any `yaml:"runtime_config"`
}

// RuntimeValue returns a runtime_config entry, or nil if absent.
func (c *ProjectConfig) RuntimeValue(key string) any {
	if c == nil || c.RuntimeConfig == nil {
		return nil
	}
	return c.RuntimeConfig[key]
}

// BuildResult describes a successful build.
type BuildResult struct {
	// GeneratedFiles are absolute paths written into the project directory
	// before the build. They are already deleted when Build returns.
	GeneratedFiles []string
	ImageTag       string
	Runtime        Runtime
	Config         *ProjectConfig
}

// AppEvent is a lifecycle notification. Events are observational only.
type AppEvent string

const (
	BuildStarted  AppEvent = "BUILD_STARTED"
	BuildComplete AppEvent = "BUILD_COMPLETE"
	AppStarting   AppEvent = "APP_STARTING"
	AppStarted    AppEvent = "APP_STARTED"
	AppRestarting AppEvent = "APP_RESTARTING"
	AppStopping   AppEvent = "APP_STOPPING"
	AppStopped    AppEvent = "APP_STOPPED"
)

// Output is one record on the event/output channel: either a lifecycle
// event (Event set) or a log line.
type Output struct {
	Time  time.Time
	Event AppEvent
	Level slog.Level
	Text  string
}

// IsEvent reports whether o carries a lifecycle event.
func (o Output) IsEvent() bool {
	return o.Event != ""
}

// Sink receives Output records. Implementations must not block the caller
// for long: publishers are subprocess pipes and the controller loop.
type Sink interface {
	Publish(Output)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Output)

func (f SinkFunc) Publish(o Output) { f(o) }

// Discard drops every record.
var Discard Sink = SinkFunc(func(Output) {})

// Tee returns a Sink that publishes each record to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(o Output) {
		for _, s := range sinks {
			s.Publish(o)
		}
	})
}

// ProcessState mirrors the lifecycle of one engine subprocess.
type ProcessState int

const (
	ProcessStateUnspecified ProcessState = iota
	ProcessStateRunning
	ProcessStateStopped
)

// ProcessStatus captures runtime state and timestamps.
type ProcessStatus struct {
	State     ProcessState
	ExitCode  *int
	StartTime time.Time
	EndTime   *time.Time
}

// SessionState is the state of a hot-reload session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionBuilding
	SessionRunning
	SessionWatching
	SessionStopping
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionBuilding:
		return "building"
	case SessionRunning:
		return "running"
	case SessionWatching:
		return "watching"
	case SessionStopping:
		return "stopping"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}
