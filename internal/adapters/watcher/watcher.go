// Package watcher reports directories whose listing changed on disk, so a
// view can invalidate the matching loaded nodes.
package watcher

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"catalogtree/internal/ports"
)

// Watcher implements ports.ChangeWatcher with fsnotify. Keys are resolved to
// directories by the resolver given to New; a change anywhere directly in a
// watched directory reports that directory's key.
type Watcher struct {
	fs      *fsnotify.Watcher
	resolve func(key string) string
	log     logrus.FieldLogger

	mu   sync.Mutex
	keys map[string]string // directory -> key

	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ ports.ChangeWatcher = (*Watcher)(nil)

// New starts a watcher. resolve maps a key to the directory it lists.
func New(resolve func(key string) string, log logrus.FieldLogger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	w := &Watcher{
		fs:      fs,
		resolve: resolve,
		log:     log,
		keys:    make(map[string]string),
		changes: make(chan string, 64),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch starts reporting changes to key's directory
func (w *Watcher) Watch(key string) error {
	dir := filepath.Clean(w.resolve(key))
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.keys[dir]; ok {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.keys[dir] = key
	return nil
}

// Unwatch stops reporting changes to key's directory
func (w *Watcher) Unwatch(key string) error {
	dir := filepath.Clean(w.resolve(key))
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.keys[dir]; !ok {
		return nil
	}
	delete(w.keys, dir)
	return w.fs.Remove(dir)
}

// Changes delivers the keys of changed directories. A key that changes
// again before it is read may be reported once.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher and closes the Changes channel
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	close(w.changes)
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.mu.Lock()
			key, watched := w.keys[filepath.Dir(event.Name)]
			w.mu.Unlock()
			if !watched {
				continue
			}
			select {
			case w.changes <- key:
			case <-w.done:
				return
			default:
				w.log.WithFields(logrus.Fields{"op": "watch", "key": key}).Debug("change dropped, consumer is behind")
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.WithField("op", "watch").WithError(err).Warn("watcher error")
		}
	}
}
