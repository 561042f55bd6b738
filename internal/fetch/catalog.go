package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.yaml.in/yaml/v3"
)

// catalogFile is the on-disk source catalog.
type catalogFile struct {
	Sources []Spec `yaml:"sources"`
}

// LoadCatalog reads and validates the source catalog at path.
func LoadCatalog(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) ([]Spec, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, errors.New("catalog has no sources")
	}

	seen := make(map[string]bool, len(file.Sources))
	for i, spec := range file.Sources {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, spec.ID)
		}
		seen[spec.ID] = true
	}
	return file.Sources, nil
}

// BuildFunc turns catalog specs into registry entries.
type BuildFunc func([]Spec) []Entry

// Reload loads the catalog at path into reg. On error reg is unchanged.
func Reload(path string, reg *Registry, build BuildFunc) (int, error) {
	specs, err := LoadCatalog(path)
	if err != nil {
		return 0, err
	}
	entries := build(specs)
	if err := reg.Replace(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// CatalogWatcher reloads a registry whenever its catalog file changes.
type CatalogWatcher struct {
	Path     string
	Registry *Registry
	Build    BuildFunc
	// OnReload, when set, is called after every reload attempt.
	OnReload func(count int, err error)
}

// WatchCatalog watches path until ctx is done, reloading reg on change.
func WatchCatalog(ctx context.Context, path string, reg *Registry, build BuildFunc) error {
	w := &CatalogWatcher{Path: path, Registry: reg, Build: build}
	return w.Run(ctx)
}

// Run blocks until ctx is done. The catalog's directory is watched so
// editors that replace the file by rename are still seen. A catalog that
// fails to load leaves the previous entries in place.
func (w *CatalogWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolve catalog path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			n, err := Reload(abs, w.Registry, w.Build)
			if err != nil {
				log.Printf("[fetch] catalog reload failed, keeping previous sources: %v", err)
			} else {
				log.Printf("[fetch] catalog reloaded: %d sources", n)
			}
			if w.OnReload != nil {
				w.OnReload(n, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[fetch] watcher error: %v", err)
		}
	}
}
