package lib

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound        = errors.New("config not found")
	ErrConfigParse           = errors.New("config parse error")
	ErrRuntimeNotDetected    = errors.New("runtime not detected")
	ErrInvalidRuntimeVersion = errors.New("invalid runtime version")
	ErrEngineNotInstalled    = errors.New("container engine not installed")
	ErrBuildFailed           = errors.New("build failed")
	ErrIO                    = errors.New("i/o error")
	ErrNoActiveProcess       = errors.New("no active process")
	ErrProcessRunning        = errors.New("a process is already running")
	ErrSessionActive         = errors.New("session already active")
	ErrSessionClosed         = errors.New("session closed")
)

// BuildFailedError is returned when the engine build subcommand exits
// non-zero. ExitCode is -1 when the process was killed by a signal.
type BuildFailedError struct {
	ExitCode int
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build failed with exit code %d", e.ExitCode)
}

func (e *BuildFailedError) Is(target error) bool {
	return target == ErrBuildFailed
}

// EngineNotInstalledError is returned when the engine binary cannot be
// located or spawned.
type EngineNotInstalledError struct {
	Binary string
	Err    error
}

func (e *EngineNotInstalledError) Error() string {
	return fmt.Sprintf("flem requires %s to be installed, and available on the path. "+
		"Please visit https://www.docker.com/ to get started, and try again.", e.Binary)
}

func (e *EngineNotInstalledError) Is(target error) bool {
	return target == ErrEngineNotInstalled
}

func (e *EngineNotInstalledError) Unwrap() error {
	return e.Err
}
