package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	"git.home.luguber.info/inful/sitehub/internal/broadcast"
	"git.home.luguber.info/inful/sitehub/internal/config"
	"git.home.luguber.info/inful/sitehub/internal/daemon"
	"git.home.luguber.info/inful/sitehub/internal/logfields"
	"git.home.luguber.info/inful/sitehub/internal/metrics"
	"git.home.luguber.info/inful/sitehub/internal/remote"
	"git.home.luguber.info/inful/sitehub/internal/server/httpserver"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr  string `help:"Override server.addr from the configuration"`
	Watch bool   `help:"Reload the site list when the configuration file changes" default:"true" negatable:""`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger(os.Stderr, root.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := ""
	if s.Watch {
		configPath = root.Config
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	return RunServe(ctx, cfg, configPath, logger)
}

// RunServe wires the registry, event bridge, sinks, scheduler and admin
// server, and blocks until ctx is done. An empty configPath disables config
// reloading.
func RunServe(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	promRegistry := metrics.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promRegistry)

	hub := broadcast.NewHub(
		broadcast.WithClientBuffer(cfg.Server.ClientBuffer),
		broadcast.WithHeartbeat(cfg.HeartbeatInterval()),
		broadcast.WithHubRecorder(recorder),
		broadcast.WithHubLogger(logger),
	)
	sinks := broadcast.Fanout{hub}
	if cfg.Broadcast.NATS.Enabled {
		relay, err := broadcast.DialRelay(cfg.Broadcast.NATS.URL, cfg.Broadcast.NATS.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := relay.Close(); err != nil {
				logger.Warn("NATS relay close failed", logfields.Error(err))
			}
		}()
		sinks = append(sinks, relay)
	}

	factory := remote.NewHTTPFactory(remote.Options{
		RequestTimeout:   cfg.RequestTimeout(),
		HandshakeTimeout: cfg.HandshakeTimeout(),
		Retry:            cfg.RetryPolicy(),
		Logger:           logger,
	})
	events := bridge.New(sinks, bridge.WithLogger(logger), bridge.WithRecorder(recorder))
	registry := site.NewRegistry(factory, events, site.WithLogger(logger), site.WithRecorder(recorder))
	directory := site.NewDirectory(daemon.Identities(cfg.Sites)...)

	srv := httpserver.New(httpserver.Options{
		Addr:              cfg.Server.Addr,
		Registry:          registry,
		Directory:         directory,
		Hub:               hub,
		PrometheusHandler: metrics.HTTPHandler(promRegistry),
		Recorder:          recorder,
		Logger:            logger,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	var scheduler *daemon.Scheduler
	if cfg.Warmup.Enabled {
		var err error
		scheduler, err = daemon.NewScheduler(logger)
		if err != nil {
			return err
		}
		warmer := daemon.NewWarmer(registry, directory, cfg.WarmupInterval(), logger)
		warmer.Run(ctx)
		if _, err := warmer.Schedule(scheduler, cfg.WarmupInterval()); err != nil {
			return err
		}
		scheduler.Start(ctx)
	}

	var watcher *daemon.ConfigWatcher
	if configPath != "" {
		var err error
		watcher, err = daemon.NewConfigWatcher(configPath,
			daemon.SiteReloader(registry, directory, logger),
			daemon.WithWatcherLogger(logger))
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}

	logger.Info("sitehub serving", "addr", srv.Addr(), "sites", len(cfg.Sites))
	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if watcher != nil {
		_ = watcher.Stop(stopCtx)
	}
	if scheduler != nil {
		if err := scheduler.Stop(stopCtx); err != nil {
			logger.Warn("Scheduler stop failed", logfields.Error(err))
		}
	}
	err := srv.Stop(stopCtx)
	registry.Close()
	if err != nil {
		return err
	}
	logger.Info("sitehub stopped")
	return nil
}
