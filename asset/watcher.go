package asset

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Watcher watches the asset root for filesystem changes and drives
// cascading reloads through the Registry's dependency index, mirroring
// on_file_changes in original_source/Engine/assets/asset_manager.cpp.
type Watcher struct {
	registry *Registry
	fsw      *fsnotify.Watcher
	done     chan struct{}
	log      zerolog.Logger
}

// NewWatcher starts watching registry's asset root (recursively) for
// changes. Call Close to stop.
func NewWatcher(registry *Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := addRecursive(fsw, registry.assetPath); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		registry: registry,
		fsw:      fsw,
		done:     make(chan struct{}),
		log:      log.With().Str("component", "asset.Watcher").Logger(),
	}

	go w.run()
	return w, nil
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.registry.assetPath, ev.Name)
	if err != nil {
		return
	}
	rel = sanitizePath(rel)

	switch {
	case ev.Op&fsnotify.Write == fsnotify.Write:
		w.onModified(rel)
	case ev.Op&fsnotify.Create == fsnotify.Create:
		w.onAdded(rel)
	case ev.Op&fsnotify.Remove == fsnotify.Remove:
		w.onDeleted(rel)
	case ev.Op&fsnotify.Rename == fsnotify.Rename:
		w.onDeleted(rel)
	}
}

// onAdded imports a newly created file, reloads it (a no-op if nothing has
// acquired it yet), and persists the registry, mirroring the FILE_ADDED
// branch of on_file_changes.
func (w *Watcher) onAdded(rel string) {
	w.log.Trace().Str("path", rel).Msg("file added")

	h := w.registry.ImportAsset(rel)
	if !h.IsValid() {
		return
	}

	w.reloadCascade(h, false)

	if err := w.registry.Save(); err != nil {
		w.log.Error().Err(err).Str("path", rel).Msg("failed to persist asset registry")
	}
}

func (w *Watcher) onModified(rel string) {
	h := w.registry.GetHandle(rel)
	if !h.IsValid() {
		return
	}
	w.reloadCascade(h, false)
}

func (w *Watcher) onDeleted(rel string) {
	w.mark(rel, true)
}

func (w *Watcher) mark(rel string, deleted bool) {
	w.registry.mu.Lock()
	defer w.registry.mu.Unlock()
	if id, ok := w.registry.pathIndex[rel]; ok {
		if entry := w.registry.entries[id]; entry != nil {
			entry.Deleted = deleted
		}
	}
}

// reloadCascade reloads h if it is currently loaded or force is set, then
// reloads every asset that depends on it with force set, mirroring
// internal_reload_asset. It does not compare file modification times, so a
// loaded asset is reloaded on every call.
func (w *Watcher) reloadCascade(h Handle, force bool) {
	w.registry.mu.Lock()
	entry, ok := w.registry.entries[h.UUID]
	if !ok {
		w.registry.mu.Unlock()
		return
	}
	wasLoaded := entry.State == StateLoaded
	children := append([]UUID(nil), w.registry.dependency[h.UUID]...)
	w.registry.mu.Unlock()

	if wasLoaded || force {
		w.registry.mu.Lock()
		entry.State = StateUnloaded
		delete(w.registry.cache, h.UUID)
		w.registry.mu.Unlock()

		if _, err := w.registry.Acquire(h); err != nil {
			w.log.Error().Err(err).Str("path", entry.Path).Msg("reload failed")
		}
	}

	for _, child := range children {
		w.reloadCascade(Handle{UUID: child}, true)
	}
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
