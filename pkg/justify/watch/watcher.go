package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a source file through a Syncer whenever it changes on
// disk. Bursts of writes within the debounce window cause one reload.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	syncer   *Syncer
	path     string
	log      *zap.Logger
	debounce time.Duration
	onChange func(Change, error)

	dirty   bool
	lastHit time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithOnChange registers a callback run after every reload, including the
// initial one. It runs on the watcher goroutine.
func WithOnChange(fn func(Change, error)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// NewWatcher prepares a watcher for path. Nothing happens until Start.
func NewWatcher(path string, s *Syncer, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		syncer:   s,
		path:     abs,
		log:      zap.NewNop(),
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.Named("watch").With(zap.String("path", abs))
	return w, nil
}

// Start loads the file once and then watches its directory, since editors
// often replace files by rename.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.closed {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.reload(ctx)

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Info("watching")

	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	closed := w.closed
	w.closed = true
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if !closed {
		if err := w.watcher.Close(); err != nil {
			w.log.Error("closing watcher", zap.Error(err))
		}
		w.log.Info("stopped")
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))

		case <-ticker.C:
			w.mu.Lock()
			due := w.dirty && time.Since(w.lastHit) >= w.debounce
			if due {
				w.dirty = false
			}
			w.mu.Unlock()
			if due {
				w.reload(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	w.log.Debug("source event", zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.dirty = true
	w.lastHit = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) reload(ctx context.Context) {
	ch, err := w.syncer.Reload(ctx, w.path)
	if err != nil {
		w.log.Warn("reload failed", zap.Error(err))
	} else if !ch.Empty() {
		w.log.Info("reloaded",
			zap.Int("added", len(ch.Added)),
			zap.Int("retracted", len(ch.Retracted)),
			zap.Int("orphaned", len(ch.Orphaned)),
		)
		for _, r := range ch.Orphaned {
			w.log.Warn("rule removed from source is not retractable", zap.String("rule", r.String()))
		}
	}
	if w.onChange != nil {
		w.onChange(ch, err)
	}
}
