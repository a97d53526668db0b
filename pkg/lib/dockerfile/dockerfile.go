// Package dockerfile renders the build file and ignore file generated into a
// project directory for every runtime except custom.
package dockerfile

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

const (
	BuildFileName  = "Dockerfile"
	IgnoreFileName = ".dockerignore"

	appRoot = "/app"
)

// Python image tags selected by runtime_config.python_version.
const (
	Python2Tag = "2.7"
	Python3Tag = "3.12"
)

//go:embed templates
var templates embed.FS

// Context is the data the build file templates are executed with.
type Context struct {
	Entrypoint    string
	PythonVersion string
	DocumentRoot  string
}

// NewContext builds the template context for rt from cfg.
func NewContext(rt lib.Runtime, cfg *lib.ProjectConfig) (*Context, error) {
	ctx := &Context{}
	if cfg != nil {
		ctx.Entrypoint = cfg.Entrypoint
	}

	switch rt {
	case lib.RuntimePython:
		v, err := pythonVersion(cfg.RuntimeValue("python_version"))
		if err != nil {
			return nil, err
		}
		ctx.PythonVersion = v
	case lib.RuntimePHP:
		ctx.DocumentRoot = appRoot
		if dr, ok := cfg.RuntimeValue("document_root").(string); ok && dr != "" {
			ctx.DocumentRoot = path.Join(appRoot, dr)
		}
	}
	return ctx, nil
}

func pythonVersion(v any) (string, error) {
	if v == nil {
		return Python2Tag, nil
	}

	major := -1
	switch v := v.(type) {
	case int:
		major = v
	case int64:
		major = int(v)
	case uint64:
		major = int(v)
	case float64:
		if v == float64(int(v)) {
			major = int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			major = n
		}
	}

	switch major {
	case 2:
		return Python2Tag, nil
	case 3:
		return Python3Tag, nil
	default:
		return "", fmt.Errorf("%w: python_version %v", lib.ErrInvalidRuntimeVersion, v)
	}
}

// Build renders the build file for rt without touching the filesystem.
func Build(rt lib.Runtime, cfg *lib.ProjectConfig) ([]byte, error) {
	if rt == lib.RuntimeCustom {
		return nil, fmt.Errorf("no build file template for runtime %s", rt)
	}

	name := path.Join("templates", rt.String(), BuildFileName)
	tmpl, err := template.New(BuildFileName).Option("missingkey=zero").ParseFS(templates, name)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	data, err := NewContext(rt, cfg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, BuildFileName, data); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Ignore returns the shared ignore file content.
func Ignore() ([]byte, error) {
	return templates.ReadFile("templates/dockerignore")
}

// Render writes the build file and ignore file for rt into dir and returns
// the absolute paths it wrote. Custom runtimes get nothing. A regular file
// already at either path belongs to the project: it is left untouched and
// not returned, so callers never delete it. On error the returned slice
// still lists every file that was already written so the caller can remove
// it.
func Render(rt lib.Runtime, cfg *lib.ProjectConfig, dir string) ([]string, error) {
	if rt == lib.RuntimeCustom {
		return nil, nil
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lib.ErrIO, err)
	}

	buildFile, err := Build(rt, cfg)
	if err != nil {
		return nil, err
	}
	ignoreFile, err := Ignore()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lib.ErrIO, err)
	}

	var generated []string
	for _, f := range []struct {
		name    string
		content []byte
	}{
		{BuildFileName, buildFile},
		{IgnoreFileName, ignoreFile},
	} {
		path := filepath.Join(absDir, f.name)
		if userOwned(path) {
			continue
		}
		if err := os.WriteFile(path, f.content, 0o644); err != nil {
			return generated, fmt.Errorf("%w: write %s: %w", lib.ErrIO, path, err)
		}
		generated = append(generated, path)
	}

	return generated, nil
}

// userOwned reports whether path already holds a regular file.
func userOwned(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.Mode().IsRegular()
}
