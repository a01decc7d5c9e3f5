package materials

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher keeps the catalog in sync with the library directory at runtime:
// dropped-in descriptors are imported, removed files delete their material.
type Watcher struct {
	catalog *Catalog
	logger  *logrus.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher over the catalog's library path.
func NewWatcher(catalog *Catalog, logger *logrus.Logger) *Watcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Watcher{catalog: catalog, logger: logger}
}

// Start initializes the fsnotify watcher and begins monitoring.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	go w.watchFiles()

	if err := w.addDirectories(w.catalog.cfg.LibraryPath); err != nil {
		return err
	}

	w.logger.WithField("library_path", w.catalog.cfg.LibraryPath).Info("Material watcher started")
	return nil
}

// addDirectories recursively adds subdirectories to the watcher.
func (w *Watcher) addDirectories(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (w *Watcher) watchFiles() {
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Material watcher error")
		}
	}
}

// handleEvent filters temp/hidden files and delegates create/remove actions.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	relevant := IsDescriptorFile(event.Name) || w.catalog.IsAudioFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && relevant, event.Has(fsnotify.Write) && IsDescriptorFile(event.Name):
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // let the file finish writing
			w.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && relevant:
		go w.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
			w.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile imports a descriptor, or re-imports the descriptor next to a
// newly arrived audio file so its timings pick up the real duration.
func (w *Watcher) handleNewFile(path string) {
	descriptorPath := path
	if !IsDescriptorFile(path) {
		descriptorPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		if _, err := os.Stat(descriptorPath); err != nil {
			w.logger.WithField("file_path", path).Debug("Audio file has no descriptor yet")
			return
		}
	}

	if _, err := w.catalog.ImportFile(descriptorPath); err != nil {
		w.logger.WithError(err).WithField("file_path", descriptorPath).Error("Error importing new material")
		return
	}
	w.logger.WithField("file_path", descriptorPath).Info("Imported new material")
}

// handleRemovedFile drops materials referencing deleted files.
func (w *Watcher) handleRemovedFile(path string) {
	if err := w.catalog.RemoveByPath(path); err != nil {
		w.logger.WithError(err).WithField("file_path", path).Error("Error removing material")
		return
	}
	w.logger.WithField("file_path", path).Info("Removed material")
}

// Stop closes the watcher (idempotent).
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}
