package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// Stop asks the engine to stop containerID and waits for its run subprocess
// to exit. If no container with that ID is tracked nothing is spawned and
// lib.ErrNoActiveProcess is returned.
//
// When the engine stop fails, or the run subprocess has to be killed, the
// container is force removed so that killing the engine client never leaves
// it running. A failed stop is only reported if that removal fails too.
func (e *Engine) Stop(ctx context.Context, containerID string) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	h := e.active
	e.mu.Unlock()
	if h == nil || h.ContainerID != containerID {
		return fmt.Errorf("%w: %s", lib.ErrNoActiveProcess, containerID)
	}

	e.emit(lib.AppStopping)

	p, err := e.start("STOP", startOptions{}, "stop", containerID)
	if err != nil {
		return err
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.emit(lib.AppStopped)

	stopCode, _ := p.ExitCode()
	grace := e.stopGrace
	if stopCode != 0 {
		// The container may not exist yet, so nothing will end the run
		// subprocess on its own.
		grace = 0
	}
	killed := e.awaitRunExit(ctx, h, grace)

	var rmErr error
	if stopCode != 0 || killed {
		rmErr = e.forceRemove(ctx, containerID)
	}

	e.mu.Lock()
	if e.active == h {
		e.active = nil
	}
	e.mu.Unlock()

	if stopCode != 0 && rmErr != nil {
		return fmt.Errorf("%s stop %s exited with code %d: %w", e.binary, containerID, stopCode, rmErr)
	}
	return nil
}

// awaitRunExit closes the run subprocess stdin and waits up to grace for it
// to exit before killing its process group. It reports whether it killed.
func (e *Engine) awaitRunExit(ctx context.Context, h *RunHandle, grace time.Duration) bool {
	if h.proc.stdin != nil {
		_ = h.proc.stdin.Close()
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-h.proc.done:
		return false
	case <-timer.C:
	case <-ctx.Done():
	}
	if h.proc.exited() {
		return false
	}

	e.logf(slog.LevelWarn, "RUN process did not exit after stop, killing it")
	if err := killGroup(h.proc.pid); err != nil {
		e.logf(slog.LevelError, "Error killing RUN process: %v", err)
	}
	<-h.proc.done
	return true
}

// forceRemove removes containerID whatever its state.
func (e *Engine) forceRemove(ctx context.Context, containerID string) error {
	p, err := e.start("RM", startOptions{}, "rm", "-f", containerID)
	if err != nil {
		return err
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if code, _ := p.ExitCode(); code != 0 {
		return fmt.Errorf("%s rm -f %s exited with code %d", e.binary, containerID, code)
	}
	return nil
}
