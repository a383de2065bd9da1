// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Watches the configuration file and pushes valid revisions into a ConfigStore.

package control

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// FileWatcher reloads a configuration file whenever it changes on disk.
// The parent directory is watched so that editors replacing the file by
// rename are picked up.
type FileWatcher struct {
	path  string
	store *ConfigStore
	log   logr.Logger
}

func NewFileWatcher(path string, store *ConfigStore, log logr.Logger) *FileWatcher {
	return &FileWatcher{path: filepath.Clean(path), store: store, log: log}
}

// Run watches until ctx is done. Invalid revisions are logged and skipped.
func (w *FileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch config directory for %q: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.Reload()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error(werr, "Config watcher error")
		}
	}
}

// Reload reads the file once and applies it when valid.
func (w *FileWatcher) Reload() bool {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.log.Error(err, "Ignoring invalid configuration revision")
		return false
	}
	w.store.Replace(cfg)
	w.log.Info("Configuration reloaded", "path", w.path, "autostartDisabled", cfg.Autostart.Disabled)
	return true
}
