package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/timmarsh1987/XMCVisualiser/domain/tenant"
)

// DefaultDebounce collapses the burst of events editors emit on save
const DefaultDebounce = 500 * time.Millisecond

// TenantsWatcher reloads the tenants file when it changes and hands the new
// application context to its listeners. An invalid file is logged and the
// current tenants are kept.
type TenantsWatcher struct {
	file     TenantsFile
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	onChange []func(*tenant.ApplicationContext)
	timer    *time.Timer
	started  bool

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewTenantsWatcher creates a watcher for path. Call Start to begin watching.
func NewTenantsWatcher(path string, debounce time.Duration, logger *zap.Logger) (*TenantsWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so atomic saves (write temp, rename) are seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch tenants directory: %w", err)
	}

	return &TenantsWatcher{
		file:     TenantsFile{Path: path},
		watcher:  watcher,
		debounce: debounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers a callback for reloaded tenants
func (w *TenantsWatcher) OnChange(handler func(*tenant.ApplicationContext)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Start begins watching for changes
func (w *TenantsWatcher) Start() {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()

	go w.watchLoop()
	w.logger.Info("Tenants watcher started", zap.String("path", w.file.Path))
}

// Stop ends watching and waits for an in-flight reload
func (w *TenantsWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()

		w.mu.Lock()
		started := w.started
		w.mu.Unlock()
		if started {
			<-w.done
		}

		w.mu.Lock()
		if w.timer != nil && w.timer.Stop() {
			w.wg.Done()
		}
		w.mu.Unlock()
		w.wg.Wait()

		w.logger.Info("Tenants watcher stopped")
	})
}

func (w *TenantsWatcher) watchLoop() {
	defer close(w.done)
	target := filepath.Clean(w.file.Path)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *TenantsWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopCh:
		return
	default:
	}

	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.reload()
	})
}

func (w *TenantsWatcher) reload() {
	app, err := w.file.Load(context.Background())
	if err != nil {
		w.logger.Error("Invalid tenants file, keeping current tenants",
			zap.String("path", w.file.Path),
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	handlers := append([]func(*tenant.ApplicationContext){}, w.onChange...)
	w.mu.Unlock()

	for _, handler := range handlers {
		handler(app)
	}
	w.logger.Info("Tenants reloaded",
		zap.String("path", w.file.Path),
		zap.Int("tenants", len(app.ResourceAccess)),
	)
}
