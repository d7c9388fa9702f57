package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// DefaultDebounceDelay coalesces the burst of events editors produce on
// a single save.
const DefaultDebounceDelay = 100 * time.Millisecond

// ConfigCallback is called with each successfully reloaded and validated
// configuration.
type ConfigCallback func(*Config)

// ErrorCallback is called when a reload is rejected or the watch fails.
type ErrorCallback func(error)

// Watcher watches the configuration file and reloads it on change. A
// file that fails to load or validate leaves the last good configuration
// in place, and a save that does not change the file's bytes is ignored.
type Watcher struct {
	path          string
	fs            *fsnotify.Watcher
	callback      ConfigCallback
	errorCallback ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	mu         sync.RWMutex
	lastConfig *Config
	lastSum    [sha256.Size]byte

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay for file changes.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback for the watcher.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.errorCallback = callback
	}
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, callback ConfigCallback, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		path:          absPath,
		fs:            fs,
		callback:      callback,
		debounceDelay: DefaultDebounceDelay,
		logger:        observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start loads the file once and begins watching it. It fails if the
// initial configuration does not load or validate. The watch ends when
// ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}

	cfg, sum, err := w.load()
	if err != nil {
		return err
	}
	w.lastConfig, w.lastSum = cfg, sum

	// The directory is watched so that editors replacing the file by
	// rename are seen.
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.watch(ctx)

	w.logger.Info("watching configuration file", observability.String("path", w.path))
	return nil
}

// Stop ends the watch and releases the file watcher. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var err error
	w.closeOnce.Do(func() { err = w.fs.Close() })
	return err
}

// GetLastConfig returns the last successfully loaded configuration.
func (w *Watcher) GetLastConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastConfig
}

// ForceReload loads and validates the file immediately and invokes the
// callback on success, even when the content is unchanged.
func (w *Watcher) ForceReload() error {
	cfg, sum, err := w.load()
	if err != nil {
		return err
	}
	w.apply(cfg, sum)
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.done)

	debounce := time.NewTimer(w.debounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				debounce.Reset(w.debounceDelay)
			}

		case <-debounce.C:
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", observability.Error(err))
			w.reportError(err)
		}
	}
}

// relevant reports whether event may have changed the watched file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	cfg, sum, err := w.load()
	if err != nil {
		w.logger.Error("configuration reload rejected, keeping previous configuration",
			observability.String("path", w.path),
			observability.Error(err),
		)
		w.reportError(err)
		return
	}

	w.mu.RLock()
	unchanged := bytes.Equal(sum[:], w.lastSum[:])
	w.mu.RUnlock()
	if unchanged {
		w.logger.Debug("configuration file unchanged", observability.String("path", w.path))
		return
	}

	w.apply(cfg, sum)
	w.logger.Info("configuration reloaded", observability.String("path", w.path))
}

func (w *Watcher) apply(cfg *Config, sum [sha256.Size]byte) {
	w.mu.Lock()
	w.lastConfig, w.lastSum = cfg, sum
	w.mu.Unlock()

	if w.callback != nil {
		w.callback(cfg)
	}
}

// load reads, parses and validates the file and returns its digest.
func (w *Watcher) load() (*Config, [sha256.Size]byte, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, [sha256.Size]byte{}, fmt.Errorf("failed to read config file %s: %w", w.path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, [sha256.Size]byte{}, err
	}
	return cfg, sha256.Sum256(data), nil
}

func (w *Watcher) reportError(err error) {
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}
