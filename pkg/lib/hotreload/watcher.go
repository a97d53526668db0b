package hotreload

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// watcher is a recursive fsnotify watch over a project tree.
type watcher struct {
	*fsnotify.Watcher

	root     string
	ignored  []string
	ignore   map[string]struct{}
	skipDirs map[string]bool
}

func newWatcher(root string, ignore []string, skipDirs map[string]bool) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: watch %s: %w", lib.ErrIO, root, err)
	}
	w := &watcher{
		Watcher:  fw,
		root:     root,
		ignored:  ignore,
		ignore:   make(map[string]struct{}, len(ignore)),
		skipDirs: skipDirs,
	}
	for _, p := range ignore {
		w.ignore[filepath.Clean(p)] = struct{}{}
	}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it that is not skipped.
func (w *watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %w", lib.ErrIO, dir, err)
	}
	return nil
}

// relevant reports whether ev should trigger a restart.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&^fsnotify.Chmod == 0 {
		return false
	}
	name := filepath.Clean(ev.Name)
	if _, ok := w.ignore[name]; ok {
		return false
	}
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.skipDirs[part] {
			return false
		}
	}
	return true
}

// track drains the watch in the background. The returned func closes the
// watch and reports whether a relevant change arrived in the meantime.
func (w *watcher) track() func() bool {
	var changed atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if w.relevant(ev) {
					changed.Store(true)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return func() bool {
		_ = w.Close()
		<-done
		return changed.Load()
	}
}
