package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JustinBeckwith/flem/pkg/lib"
	"github.com/JustinBeckwith/flem/pkg/lib/dockerfile"
	"github.com/JustinBeckwith/flem/pkg/lib/project"
)

// Prepared is a project whose runtime is resolved and whose build files
// have been written.
type Prepared struct {
	Dir            string
	Runtime        lib.Runtime
	Source         project.Source
	Config         *lib.ProjectConfig
	GeneratedFiles []string
}

// Prepare resolves the project runtime in dir and renders the generated
// build files into it. When rendering fails part way the returned Prepared
// still lists the files that were written so the caller can remove them.
func (e *Engine) Prepare(dir string) (*Prepared, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lib.ErrIO, err)
	}

	res, err := project.Resolve(absDir)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.config = res.Config
	e.mu.Unlock()

	prep := &Prepared{
		Dir:     absDir,
		Runtime: res.Runtime,
		Source:  res.Source,
		Config:  res.Config,
	}
	files, err := dockerfile.Render(res.Runtime, res.Config, absDir)
	prep.GeneratedFiles = files
	if err != nil {
		return prep, err
	}
	return prep, nil
}

// Build prepares the project in dir and builds its image. Generated files
// are removed whether or not the build succeeds.
func (e *Engine) Build(dir string) (*lib.BuildResult, error) {
	e.emit(lib.BuildStarted)

	prep, err := e.Prepare(dir)
	if err != nil {
		if prep != nil {
			e.cleanup(prep.GeneratedFiles)
		}
		return nil, err
	}
	defer e.cleanup(prep.GeneratedFiles)

	tag := e.imageTag
	if tag == "" {
		tag = lib.ImageTag(prep.Dir)
	}

	e.logf(slog.LevelInfo, "Building docker image in %s...", prep.Dir)
	p, err := e.start("BUILD", startOptions{dir: prep.Dir}, "build", ".", "-t", tag)
	if err != nil {
		return nil, err
	}
	<-p.done

	e.emit(lib.BuildComplete)

	code, _ := p.ExitCode()
	if code != 0 {
		return nil, &lib.BuildFailedError{ExitCode: code}
	}

	return &lib.BuildResult{
		GeneratedFiles: prep.GeneratedFiles,
		ImageTag:       tag,
		Runtime:        prep.Runtime,
		Config:         prep.Config,
	}, nil
}

func (e *Engine) cleanup(files []string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				e.logf(slog.LevelDebug, "Generated file %s already removed", f)
				continue
			}
			e.logf(slog.LevelError, "Error cleaning up file %s: %v", f, err)
		}
	}
}
