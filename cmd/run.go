package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bamit99/whatsapp-bot/internal/bus"
	"github.com/bamit99/whatsapp-bot/internal/channels"
	"github.com/bamit99/whatsapp-bot/internal/channels/whatsapp"
	"github.com/bamit99/whatsapp-bot/internal/config"
	httpapi "github.com/bamit99/whatsapp-bot/internal/http"
	"github.com/bamit99/whatsapp-bot/internal/pipeline"
	"github.com/bamit99/whatsapp-bot/internal/ratelimit"
	"github.com/bamit99/whatsapp-bot/internal/store"
	"github.com/bamit99/whatsapp-bot/internal/store/pg"
	"github.com/bamit99/whatsapp-bot/internal/store/sqlite"
	"github.com/bamit99/whatsapp-bot/internal/triggers"
)

// runBot wires everything and blocks until SIGINT/SIGTERM.
func runBot() {
	setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	msgBus := bus.NewWithCapacity(cfg.Pipeline.QueueSize, cfg.Pipeline.QueueSize)

	engine, err := triggers.NewEngine(ctx, stores.Triggers)
	if err != nil {
		slog.Error("failed to load trigger engine", "error", err)
		os.Exit(1)
	}
	slog.Info("trigger engine loaded", "rules", len(engine.Rules()))

	limiter := ratelimit.NewLimiter(limiterConfig(cfg))

	channel, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus)
	if err != nil {
		slog.Error("failed to create whatsapp channel", "error", err)
		os.Exit(1)
	}

	coordinator := pipeline.New(
		pipeline.Config{CommandPrefix: cfg.Pipeline.CommandPrefix},
		msgBus, engine, limiter, stores,
	)

	server := httpapi.NewServer(cfg.Gateway.Host, cfg.Gateway.Port, cfg.Gateway.Token)
	httpapi.NewTriggersHandler(engine).RegisterRoutes(server)
	httpapi.NewStatusHandler(channel, msgBus, limiter, stores).RegisterRoutes(server)

	if err := channel.Start(ctx); err != nil {
		slog.Error("failed to start whatsapp channel", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		coordinator.Run(gctx)
		return nil
	})
	g.Go(func() error {
		dispatchOutbound(gctx, msgBus, channel)
		return nil
	})
	g.Go(func() error {
		limiter.RunSweeper(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(shutdownCtx)
		return channel.Stop(shutdownCtx)
	})

	slog.Info("whatsapp-bot running", "version", Version)
	if err := g.Wait(); err != nil {
		slog.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("whatsapp-bot stopped")
}

// openStores selects the backend per config: sqlite for standalone, Postgres
// for managed mode.
func openStores(cfg *config.Config) (*store.Stores, error) {
	if cfg.IsManagedMode() {
		slog.Info("using postgres store (managed mode)")
		return pg.NewStores(cfg.Database.PostgresDSN)
	}
	slog.Info("using sqlite store", "path", cfg.Database.SQLitePath)
	return sqlite.NewStores(cfg.Database.SQLitePath)
}

// dispatchOutbound drains the outbound queue toward the channel. A failed
// send is logged and dropped, never retried; it must not block the queue.
func dispatchOutbound(ctx context.Context, msgBus *bus.MessageBus, channel channels.Channel) {
	for {
		msg, ok := msgBus.ConsumeOutbound(ctx)
		if !ok {
			return
		}
		if err := channel.Send(ctx, msg); err != nil {
			slog.Warn("outbound send failed",
				"chat_id", msg.ChatID,
				"preview", channels.Truncate(msg.Content, 50),
				"error", err,
			)
		}
	}
}

// limiterConfig maps config limits onto the rate limiter's config.
func limiterConfig(cfg *config.Config) ratelimit.Config {
	rl := ratelimit.DefaultConfig()

	apply := func(dst *ratelimit.Limits, src config.CategoryLimits) {
		if src.PerMinute > 0 {
			dst.PerMinute = src.PerMinute
		}
		if src.PerHour > 0 {
			dst.PerHour = src.PerHour
		}
		if src.PerDay > 0 {
			dst.PerDay = src.PerDay
		}
		if src.WarnFraction > 0 {
			dst.WarnFraction = src.WarnFraction
		}
	}
	apply(&rl.Message, cfg.Limits.Messages)
	apply(&rl.Media, cfg.Limits.Media)
	apply(&rl.Command, cfg.Limits.Commands)

	if cfg.Limits.WarningCooldownMinutes > 0 {
		rl.WarningCooldown = time.Duration(cfg.Limits.WarningCooldownMinutes) * time.Minute
	}
	if cfg.Limits.SweepIntervalMinutes > 0 {
		rl.SweepInterval = time.Duration(cfg.Limits.SweepIntervalMinutes) * time.Minute
	}
	if cfg.Spam.Threshold > 0 {
		rl.SpamThreshold = cfg.Spam.Threshold
	}
	if cfg.Spam.WindowMinutes > 0 {
		rl.SpamWindow = time.Duration(cfg.Spam.WindowMinutes) * time.Minute
	}
	return rl
}
