package confloader

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change is
// reported.
const DefaultDebounce = 100 * time.Millisecond

// Change describes a settled modification of a watched file.
type Change struct {
	Path string
	// Removed is set when the file no longer exists once events settle.
	Removed bool
}

// Watcher reports changes to individual files. The parent directory is
// watched so that a temp-file-and-rename replacement is seen on the target
// name, and each burst of events is collapsed into a single Change.
type Watcher struct {
	fs       *fsnotify.Watcher
	log      *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	timers   map[string]*time.Timer // keyed by watched path; nil until an event
	handlers []func(Change)

	quit      chan struct{}
	closeOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce sets the quiet period. Zero reports every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a Watcher. Nothing is reported until Start.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       inner,
		log:      slog.Default(),
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds path. The file may be missing; its directory may not.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)
	if err := w.fs.Add(filepath.Dir(path)); err != nil {
		return err
	}

	w.mu.Lock()
	if _, ok := w.timers[path]; !ok {
		w.timers[path] = nil
	}
	w.mu.Unlock()

	w.log.Debug("watching file", "path", path)
	return nil
}

// OnChange registers fn. Handlers are called from timer goroutines.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	w.handlers = append(w.handlers, fn)
	w.mu.Unlock()
}

// Start consumes events in a new goroutine until Stop.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.schedule(filepath.Clean(ev.Name), ev.Op)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watch error", "error", err)
		case <-w.quit:
			return
		}
	}
}

// schedule (re)arms the timer for a watched path.
func (w *Watcher) schedule(path string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, watched := w.timers[path]
	if !watched {
		return
	}
	w.log.Debug("file event", "path", path, "op", op.String())
	if t != nil && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.settle(path) })
}

func (w *Watcher) settle(path string) {
	select {
	case <-w.quit:
		return
	default:
	}

	_, err := os.Stat(path)
	c := Change{Path: path, Removed: errors.Is(err, fs.ErrNotExist)}

	w.mu.Lock()
	handlers := slices.Clone(w.handlers)
	w.mu.Unlock()

	for _, fn := range handlers {
		fn(c)
	}
}

// Stop closes the watcher and drops pending changes. Safe to call more than
// once.
func (w *Watcher) Stop() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.quit)
		w.mu.Lock()
		for _, t := range w.timers {
			if t != nil {
				t.Stop()
			}
		}
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}
