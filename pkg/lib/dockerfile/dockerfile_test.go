package dockerfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

var baseImages = map[lib.Runtime]string{
	lib.RuntimeNodejs: "FROM node:",
	lib.RuntimePython: "FROM python:",
	lib.RuntimeGo:     "FROM golang:",
	lib.RuntimePHP:    "FROM php:",
	lib.RuntimeRuby:   "FROM ruby:",
	lib.RuntimeJava:   "FROM eclipse-temurin:",
}

func TestRender_AllRuntimes(t *testing.T) {
	for _, rt := range lib.Runtimes {
		t.Run(rt.String(), func(t *testing.T) {
			dir := t.TempDir()
			cfg := &lib.ProjectConfig{Runtime: rt.String(), Entrypoint: "run-my-app --port 8080"}

			files, err := Render(rt, cfg, dir)
			require.NoError(t, err)
			require.Equal(t, []string{
				filepath.Join(dir, BuildFileName),
				filepath.Join(dir, IgnoreFileName),
			}, files)

			content, err := os.ReadFile(files[0])
			require.NoError(t, err)
			assert.Contains(t, string(content), baseImages[rt])
			assert.Contains(t, string(content), "CMD run-my-app --port 8080")

			ignore, err := os.ReadFile(files[1])
			require.NoError(t, err)
			assert.Contains(t, string(ignore), "node_modules")
		})
	}
}

func TestRender_DefaultCommandWithoutEntrypoint(t *testing.T) {
	content, err := Build(lib.RuntimeNodejs, &lib.ProjectConfig{Runtime: "nodejs"})
	require.NoError(t, err)
	assert.Contains(t, string(content), `CMD ["npm", "start"]`)
}

func TestRender_CustomGeneratesNothing(t *testing.T) {
	dir := t.TempDir()

	files, err := Render(lib.RuntimeCustom, &lib.ProjectConfig{Runtime: "custom"}, dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRender_PythonVersion(t *testing.T) {
	tests := []struct {
		name    string
		version any
		want    string
	}{
		{"absent", nil, "FROM python:" + Python2Tag + "-slim"},
		{"two", 2, "FROM python:" + Python2Tag + "-slim"},
		{"three", 3, "FROM python:" + Python3Tag + "-slim"},
		{"three as string", "3", "FROM python:" + Python3Tag + "-slim"},
		{"three as float", 3.0, "FROM python:" + Python3Tag + "-slim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &lib.ProjectConfig{Runtime: "python"}
			if tt.version != nil {
				cfg.RuntimeConfig = map[string]any{"python_version": tt.version}
			}
			content, err := Build(lib.RuntimePython, cfg)
			require.NoError(t, err)
			assert.Contains(t, string(content), tt.want)
		})
	}
}

func TestRender_InvalidPythonVersion(t *testing.T) {
	for _, v := range []any{4, "3.6", "latest", 2.5} {
		dir := t.TempDir()
		cfg := &lib.ProjectConfig{Runtime: "python", RuntimeConfig: map[string]any{"python_version": v}}

		files, err := Render(lib.RuntimePython, cfg, dir)
		require.ErrorIs(t, err, lib.ErrInvalidRuntimeVersion, "version %v", v)
		assert.Empty(t, files)
	}
}

func TestRender_PHPDocumentRoot(t *testing.T) {
	content, err := Build(lib.RuntimePHP, &lib.ProjectConfig{Runtime: "php"})
	require.NoError(t, err)
	assert.Contains(t, string(content), "APACHE_DOCUMENT_ROOT=/app\n")

	content, err = Build(lib.RuntimePHP, &lib.ProjectConfig{
		Runtime:       "php",
		RuntimeConfig: map[string]any{"document_root": "public"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(content), "APACHE_DOCUMENT_ROOT=/app/public\n")
}

func TestRender_PartialWriteReportsWrittenFiles(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the ignore file makes the second write fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, IgnoreFileName), 0o755))

	files, err := Render(lib.RuntimeNodejs, &lib.ProjectConfig{Runtime: "nodejs"}, dir)
	require.ErrorIs(t, err, lib.ErrIO)
	assert.Equal(t, []string{filepath.Join(dir, BuildFileName)}, files)
}

func TestRender_KeepsExistingProjectFiles(t *testing.T) {
	dir := t.TempDir()
	ignorePath := filepath.Join(dir, IgnoreFileName)
	require.NoError(t, os.WriteFile(ignorePath, []byte("secrets/\n"), 0o644))

	files, err := Render(lib.RuntimeNodejs, &lib.ProjectConfig{Runtime: "nodejs"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, BuildFileName)}, files)

	content, err := os.ReadFile(ignorePath)
	require.NoError(t, err)
	assert.Equal(t, "secrets/\n", string(content))

	// A second render treats the earlier output as the project's own file.
	require.NoError(t, os.Remove(filepath.Join(dir, BuildFileName)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, BuildFileName), []byte("FROM scratch\n"), 0o644))
	files, err = Render(lib.RuntimeNodejs, &lib.ProjectConfig{Runtime: "nodejs"}, dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	content, err = os.ReadFile(filepath.Join(dir, BuildFileName))
	require.NoError(t, err)
	assert.Equal(t, "FROM scratch\n", string(content))
}
