package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/logging"
)

// DefaultDebounce is how long after one change further changes are ignored.
const DefaultDebounce = 100 * time.Millisecond

// configNames are the files whose edits count as a config change.
var configNames = map[string]bool{
	"pantry.yml":   true,
	"pantry.yaml":  true,
	"pantry.toml":  true,
	".pantry.yml":  true,
	".pantry.yaml": true,
}

// ConfigWatcher watches config directories and reports edits to pantry
// config files. Each change is loaded and validated before onReload runs,
// so a half-written file is logged instead of broadcast.
type ConfigWatcher struct {
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	lastChange   time.Time
	mu           sync.Mutex
	logger       *logrus.Entry
	onReload     func(file string)
	targetToLink map[string]string // symlink target path -> path of the link
}

// NewConfigWatcher watches dirs (missing ones are skipped). It also watches
// the directories of symlinked config files, since fsnotify does not follow
// links.
func NewConfigWatcher(dirs []string, debounce time.Duration, onReload func(string)) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &ConfigWatcher{
		watcher:      watcher,
		debounce:     debounce,
		logger:       logging.NewLogger("config-watcher"),
		onReload:     onReload,
		targetToLink: make(map[string]string),
	}

	watched := make(map[string]bool)
	add := func(dir string) {
		if dir == "" || watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			w.logger.WithError(err).WithField("dir", dir).Debug("Not watching config directory")
			return
		}
		watched[dir] = true
		w.logger.WithField("dir", dir).Debug("Watching config directory")
	}

	for _, dir := range dirs {
		add(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !configNames[entry.Name()] || entry.Type()&os.ModeSymlink == 0 {
				continue
			}
			link := filepath.Join(dir, entry.Name())
			target, err := filepath.EvalSymlinks(link)
			if err != nil {
				w.logger.WithError(err).Warnf("Failed to resolve symlink %s", link)
				continue
			}
			w.targetToLink[target] = link
			add(filepath.Dir(target))
		}
	}

	if len(watched) == 0 {
		watcher.Close()
		return nil, os.ErrNotExist
	}
	return w, nil
}

// ConfigDirs returns the directories a daemon started in cwd should watch:
// the global config directory and the directory of the project file.
func ConfigDirs(cwd string) []string {
	dirs := []string{filepath.Dir(config.GlobalConfigPath())}
	if file, err := config.FindConfigFile(cwd); err == nil {
		dirs = append(dirs, filepath.Dir(file))
	}
	return dirs
}

// Name implements the engine runner interface.
func (w *ConfigWatcher) Name() string { return "config-watcher" }

// Run watches until ctx is cancelled.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			file := event.Name
			if link, ok := w.targetToLink[file]; ok {
				file = link
			}
			if configNames[filepath.Base(file)] {
				w.handleChange(file)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Error("Watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}

// handleChange processes a config file change with debouncing.
func (w *ConfigWatcher) handleChange(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := time.Since(w.lastChange)
	if elapsed < w.debounce {
		w.logger.Debugf("Debounced: %s (only %v since last change)", filepath.Base(file), elapsed)
		return
	}
	w.lastChange = time.Now()

	log := w.logger.WithField("file", file)
	if _, err := config.Load(file); err != nil {
		log.WithError(err).Warn("Changed config does not load, keeping current settings")
		return
	}
	log.Info("Config changed")
	if w.onReload != nil {
		w.onReload(filepath.Base(file))
	}
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}
