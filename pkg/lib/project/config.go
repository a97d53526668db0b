// Package project reads a project's runtime declaration and resolves the
// Runtime it should be built with.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// ConfigFile is the declaration file name looked up at the project root.
const ConfigFile = "app.yaml"

// Source tells where a resolved runtime came from.
type Source string

const (
	SourceDeclared  Source = "declared"
	SourceHeuristic Source = "heuristic"
)

// GetConfig reads and parses the declaration file in dir.
func GetConfig(dir string) (*lib.ProjectConfig, error) {
	path := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", lib.ErrConfigNotFound, path, err)
	}

	var cfg lib.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", lib.ErrConfigParse, path, err)
	}
	return &cfg, nil
}

// ResolveRuntime maps the declared runtime name to a Runtime. Unknown names
// resolve to RuntimeCustom: the project is expected to ship its own build file.
func ResolveRuntime(cfg *lib.ProjectConfig) lib.Runtime {
	if cfg == nil {
		return lib.RuntimeCustom
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Runtime)) {
	case "node", "nodejs":
		return lib.RuntimeNodejs
	case "python":
		return lib.RuntimePython
	case "go":
		return lib.RuntimeGo
	case "php":
		return lib.RuntimePHP
	case "ruby":
		return lib.RuntimeRuby
	case "java":
		return lib.RuntimeJava
	default:
		return lib.RuntimeCustom
	}
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Config  *lib.ProjectConfig
	Runtime lib.Runtime
	Source  Source
}

// Resolve determines the runtime of the project in dir. The declaration file
// wins when present. Directory heuristics are consulted only when the
// declaration cannot be found; a declaration that fails to parse is an error.
func Resolve(dir string) (*Resolution, error) {
	cfg, err := GetConfig(dir)
	if err == nil {
		return &Resolution{Config: cfg, Runtime: ResolveRuntime(cfg), Source: SourceDeclared}, nil
	}
	if !errors.Is(err, lib.ErrConfigNotFound) || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	rt, derr := DetectRuntime(dir)
	if derr != nil {
		return nil, errors.Join(err, derr)
	}
	return &Resolution{
		Config:  &lib.ProjectConfig{Runtime: rt.String()},
		Runtime: rt,
		Source:  SourceHeuristic,
	}, nil
}
