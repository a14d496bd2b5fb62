package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitehub/internal/config"
	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/logfields"
)

// ReloadFunc applies a freshly loaded configuration.
type ReloadFunc func(ctx context.Context, cfg *config.Config) error

// ConfigWatcher monitors the configuration file and reloads it after writes
// settle.
type ConfigWatcher struct {
	configPath   string
	onReload     ReloadFunc
	watcher      *fsnotify.Watcher
	logger       *slog.Logger
	mu           sync.Mutex
	stopOnce     sync.Once
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// WatcherOption configures a ConfigWatcher.
type WatcherOption func(*ConfigWatcher)

// WithDebounce sets how long the file must be quiet before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(cw *ConfigWatcher) { cw.debounceTime = d }
}

func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(cw *ConfigWatcher) { cw.logger = l }
}

// NewConfigWatcher creates a watcher calling onReload with each valid new
// configuration.
func NewConfigWatcher(configPath string, onReload ReloadFunc, opts ...WatcherOption) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, ferrors.ConfigError("failed to resolve config path").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}

	cw := &ConfigWatcher{
		configPath:   absPath,
		onReload:     onReload,
		watcher:      watcher,
		logger:       slog.Default(),
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}
	for _, o := range opts {
		o(cw)
	}
	return cw, nil
}

// Start begins monitoring the configuration file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	// Editors replace files on save, so watch the directory.
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return ferrors.DaemonError("failed to watch config directory").
			WithCause(err).
			WithContext("path", configDir).
			Build()
	}

	cw.logger.Info("Starting configuration watcher", logfields.Path(cw.configPath))

	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (cw *ConfigWatcher) Stop(context.Context) error {
	cw.stopOnce.Do(func() {
		cw.logger.Info("Stopping configuration watcher")
		close(cw.stopChan)
		if err := cw.watcher.Close(); err != nil {
			cw.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	})
	return nil
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				cw.logger.Debug("Config file change detected", logfields.Path(event.Name), "op", event.Op.String())
				cw.triggerReload()
			case event.Op.Has(fsnotify.Remove):
				cw.logger.Warn("Config file removed", logfields.Path(event.Name))
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer
	stop := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-cw.stopChan:
			stop()
			return
		case <-cw.reloadChan:
			stop()
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(ctx); err != nil {
					cw.logger.Error("Failed to reload configuration", logfields.Error(err))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

// performReload loads the file and hands it to onReload. An invalid file
// leaves the running configuration untouched.
func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	cw.logger.Info("Reloading configuration", logfields.Path(cw.configPath))

	cfg, err := config.Load(cw.configPath)
	if err != nil {
		return err
	}
	if err := cw.onReload(ctx, cfg); err != nil {
		return ferrors.DaemonError("failed to apply new configuration").WithCause(err).Build()
	}

	cw.logger.Info("Configuration reloaded", "sites", len(cfg.Sites))
	return nil
}
