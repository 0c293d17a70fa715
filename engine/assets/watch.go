package assets

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/triangle/engine/core"
	"github.com/spaghettifunk/triangle/engine/resources"
)

// Watcher reports changes to asset files below a directory on disk. It is
// meant for development tooling; the engine itself only reads embedded
// assets.
type Watcher struct {
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	isClosed bool

	Events chan string
	Errors chan error
}

func NewWatcher(dir string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		Events:   make(chan string),
		Errors:   make(chan error),
	}
	if err := w.watchRecursive(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}
	go w.start()
	return w, nil
}

func (w *Watcher) Close() error {
	if w.isClosed {
		return errors.New("watcher already closed")
	}
	w.isClosed = true
	close(w.done)
	return nil
}

func (w *Watcher) start() {
	defer func() {
		w.fsnotify.Close()
		close(w.Events)
		close(w.Errors)
	}()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := w.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if determineAssetType(e.Name) == resources.ResourceTypeNone {
				continue
			}
			select {
			case w.Events <- e.Name:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err)
			select {
			case w.Errors <- err:
			case <-w.done:
				return
			}

		case <-w.done:
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (w *Watcher) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		return nil
	})
}
