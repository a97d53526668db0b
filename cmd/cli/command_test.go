package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg, err := parseConfig(nil)
	require.NoError(t, err)

	root := NewRootCmd(cfg)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDetectDeclared(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("runtime: python\nservice: api\n"), 0o644))

	out, err := execute(t, "detect", dir)
	require.NoError(t, err)

	want := strings.Join([]string{
		"+---------+----------+---------+------------+",
		"| RUNTIME | SOURCE   | SERVICE | ENTRYPOINT |",
		"+---------+----------+---------+------------+",
		"| python  | declared | api     |            |",
		"+---------+----------+---------+------------+",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestDetectHeuristic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Gemfile"), nil, 0o644))

	out, err := execute(t, "detect", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "| ruby    | heuristic | default |")
}

func TestDetectNothing(t *testing.T) {
	_, err := execute(t, "detect", t.TempDir())
	require.ErrorIs(t, err, lib.ErrRuntimeNotDetected)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "flem dev\n", out)
}

func TestBuildWithoutEngine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644))

	_, err := execute(t, "build", "--engine", "flem-engine-that-does-not-exist", dir)
	require.ErrorIs(t, err, lib.ErrEngineNotInstalled)

	var notInstalled *lib.EngineNotInstalledError
	require.True(t, errors.As(err, &notInstalled))
	assert.Equal(t, "flem-engine-that-does-not-exist", notInstalled.Binary)
}

func TestPrintStatusTable(t *testing.T) {
	var buf bytes.Buffer
	printStatusTable(&buf, "localhost:50051", healthpb.HealthCheckResponse_SERVING)
	assert.Contains(t, buf.String(), "| localhost:50051 | Container running |")

	buf.Reset()
	printStatusTable(&buf, "localhost:50051", healthpb.HealthCheckResponse_NOT_SERVING)
	assert.Contains(t, buf.String(), "| localhost:50051 | Container not running |")
}

func TestLogOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	logOutput(logger, lib.Output{Time: ts, Level: slog.LevelInfo, Text: "Building docker image in /app..."})
	logOutput(logger, lib.Output{Time: ts, Level: slog.LevelDebug, Text: "BUILD process exited with code 0"})
	logOutput(logger, lib.Output{Time: ts, Level: slog.LevelInfo, Event: lib.AppStarted})

	out := buf.String()
	assert.Contains(t, out, "time=2024-01-02T03:04:05.000Z")
	assert.Contains(t, out, `msg="Building docker image in /app..."`)
	assert.NotContains(t, out, "exited with code")
	assert.Contains(t, out, "msg=lifecycle event=APP_STARTED")

	buf.Reset()
	logOutput(newLogger(&buf, true), lib.Output{Time: ts, Level: slog.LevelDebug, Text: "BUILD process exited with code 0"})
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestSessionFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	s := newSession(&buf, false)
	for i := 0; i < 100; i++ {
		s.sink.Publish(lib.Output{Level: slog.LevelInfo, Text: "line"})
	}
	s.Close()
	assert.Equal(t, 100, strings.Count(buf.String(), "msg=line"))
}

func TestSessionDoesNotRetainOutput(t *testing.T) {
	var buf bytes.Buffer
	s := newSession(&buf, false)
	s.sink.Publish(lib.Output{Level: slog.LevelInfo, Text: "line"})
	s.Close()

	assert.Contains(t, buf.String(), "msg=line")
	assert.Empty(t, s.storage.Lines())
}
