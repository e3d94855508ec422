package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcsmanager/mcsm_bot/clock"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/discord"
	"github.com/mcsmanager/mcsm_bot/inactivity"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/mclogs"
	"github.com/mcsmanager/mcsm_bot/mcsmanager"
	"github.com/mcsmanager/mcsm_bot/shortcuts"
	"github.com/mcsmanager/mcsm_bot/store"
)

const shutdownTimeout = 30 * time.Second

type runParams struct {
	Holder     *config.Holder
	Logger     logger.Logger
	Store      *store.SQLiteStore
	Shortcuts  *shortcuts.Registry
	Clock      clock.Clock
	Discord    discord.Discord
	Inactivity *inactivity.Checker
	Watcher    *config.Watcher
}

func build(files []string) (runParams, error) {
	cfg, err := config.LoadWithDefaults(files...)
	if err != nil {
		return runParams{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return runParams{}, fmt.Errorf("invalid config: %w", err)
	}
	holder := config.NewHolder(cfg, files...)

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return runParams{}, fmt.Errorf("initialize logger: %w", err)
	}

	st := store.NewSQLiteStore(store.Params{
		Path:   cfg.Store.Path,
		Logger: appLogger.With("component", "store"),
	})
	registry := shortcuts.New(shortcuts.Params{
		Backend: st,
		Logger:  appLogger.With("component", "shortcuts"),
	})

	var panel mcsmanager.Client
	if cfg.MCSManager.Enabled() {
		panel = mcsmanager.FromConfig(cfg.MCSManager)
	} else {
		appLogger.WarnW("mcsmanager.base_url not set, /server is disabled")
	}

	uploader := mclogs.NewClient(cfg.LogUpload.APIURL, cfg.LogUpload.HTTPClient)
	clk := clock.FromConfig(cfg.Clock, appLogger.With("component", "clock"))

	bot, err := discord.New(discord.Params{
		Config:    holder,
		Shortcuts: registry,
		Audit:     st,
		Votes:     st,
		Panel:     panel,
		Uploader:  uploader,
		Clock:     clk,
		Logger:    appLogger.With("component", "discord"),
	})
	if err != nil {
		return runParams{}, err
	}

	checker := inactivity.New(inactivity.Params{
		Session:  bot.Session(),
		Config:   holder,
		Recorder: st,
		Clock:    clk,
		Logger:   appLogger.With("component", "inactivity"),
	})

	watcher, err := config.NewWatcher(config.WatcherParams{
		Holder: holder,
		Logger: appLogger.With("component", "config"),
	})
	if err != nil {
		return runParams{}, fmt.Errorf("create config watcher: %w", err)
	}

	return runParams{
		Holder:     holder,
		Logger:     appLogger,
		Store:      st,
		Shortcuts:  registry,
		Clock:      clk,
		Discord:    bot,
		Inactivity: checker,
		Watcher:    watcher,
	}, nil
}

// run starts all components and runs the application until shutdown.
func run(p runParams) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer p.Logger.Sync()

	cfg := p.Holder.Get()

	if err := p.Store.Open(ctx); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := p.Store.RestoreFromDisk(ctx, cfg.Store.Path); err != nil {
		p.Logger.WarnW("restore from disk", "error", err)
	}

	if n, err := p.Shortcuts.ImportJSON(ctx, cfg.Shortcuts.ImportPath); err != nil {
		p.Logger.WarnW("legacy shortcut import failed", "path", cfg.Shortcuts.ImportPath, "error", err)
	} else if n > 0 {
		p.Logger.InfoW("imported legacy shortcuts", "count", n)
	}

	if ntp, ok := p.Clock.(*clock.NTPClock); ok {
		if err := ntp.Start(ctx); err != nil {
			p.Logger.WarnW("start ntp clock", "error", err)
		}
		defer ntp.Stop()
	}

	if err := p.Discord.Start(ctx); err != nil {
		return fmt.Errorf("start discord client: %w", err)
	}

	if err := p.Inactivity.Start(ctx); err != nil {
		p.Logger.ErrorW("start inactivity checker", "error", err)
	}

	if err := p.Watcher.Start(ctx); err != nil {
		p.Logger.WarnW("start config watcher", "error", err)
	}

	p.Logger.InfoW("bot running", "version", config.Version, "guild_id", cfg.Discord.GuildID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	p.Logger.InfoW("shutting down", "signal", sig.String())

	p.Watcher.Stop()
	p.Inactivity.Stop()
	p.Discord.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := p.Store.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("store shutdown: %w", err)
	}
	return nil
}
