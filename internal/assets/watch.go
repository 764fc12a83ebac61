package assets

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/logger"
)

// debounce is how long a file must stay quiet before its change is
// reported, so a burst of writes is reported once, after the last one.
const debounce = 100 * time.Millisecond

// Watcher invalidates cached assets when files under the manager's directory
// roots change. Changed paths are reported on Events, root-relative, once
// the file has settled.
type Watcher struct {
	watcher *fsnotify.Watcher
	manager *Manager
	log     *zap.Logger

	Events chan string

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher watches every directory root of m, recursively.
func NewWatcher(m *Manager) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := m.Dirs()
	for _, d := range dirs {
		err := filepath.WalkDir(d, func(p string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if e.IsDir() {
				return fw.Add(p)
			}
			return nil
		})
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	w := &Watcher{
		watcher: fw,
		manager: m,
		log:     logger.Named("assets"),
		Events:  make(chan string, 16),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run(dirs)
	w.log.Info("watching asset roots", zap.Strings("roots", dirs))
	return w, nil
}

// Close stops watching. Events is closed once the watcher has stopped.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run(dirs []string) {
	defer close(w.done)
	defer close(w.Events)

	ticker := time.NewTicker(debounce / 4)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// New subdirectories need their own watch.
				_ = w.watcher.Add(event.Name)
			}

			rel, ok := relativeTo(dirs, event.Name)
			if !ok {
				continue
			}
			// Every event invalidates; only the notification is debounced.
			w.manager.Invalidate(rel)
			pending[rel] = time.Now()
		case now := <-ticker.C:
			for rel, t := range pending {
				if now.Sub(t) < debounce {
					continue
				}
				delete(pending, rel)
				w.log.Debug("asset changed", zap.String("path", rel))
				select {
				case w.Events <- rel:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("asset watcher error", zap.Error(err))
		case <-w.closeCh:
			return
		}
	}
}

func relativeTo(dirs []string, name string) (string, bool) {
	for _, d := range dirs {
		rel, err := filepath.Rel(d, name)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return Clean(filepath.ToSlash(rel)), true
	}
	return "", false
}
