package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/pflag"

	"github.com/dkeye/tempvoice/internal/adapters/discord"
	router "github.com/dkeye/tempvoice/internal/adapters/http"
	"github.com/dkeye/tempvoice/internal/app"
	"github.com/dkeye/tempvoice/internal/command"
	"github.com/dkeye/tempvoice/internal/config"
	"github.com/dkeye/tempvoice/internal/store"
)

var configPath = pflag.StringP("config", "c", "", "path to config file (default config/config.<CONFIG_ENV>.yaml)")

func main() {
	pflag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("tempvoice stopped")
		os.Exit(1)
	}
	log.Info().Msg("tempvoice exited gracefully")
}

func setLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("unknown log level, keeping current")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

func run(ctx context.Context) error {
	cfg, loader, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setLevel(cfg.LogLevel)
	loader.OnChange(func(c *config.Config) { setLevel(c.LogLevel) })

	st, err := store.Open(cfg.Store.Type, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reg, err := app.NewRegistry(st)
	if err != nil {
		return err
	}

	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		return err
	}
	platform, err := discord.NewPlatform(session, cfg.UserCacheSize)
	if err != nil {
		return err
	}

	loop := app.NewLoop(256)
	lifecycle := &app.Lifecycle{Registry: reg, Platform: platform, NameTemplate: cfg.RoomNameTemplate}
	manager := &app.Manager{Registry: reg, Platform: platform, Lifecycle: lifecycle, Policy: app.SimplePolicy{}}
	bot := &discord.Bot{
		Session:   session,
		Platform:  platform,
		Loop:      loop,
		Lifecycle: lifecycle,
		Admin:     &app.Admin{Registry: reg, Directory: platform},
		Commands: &command.Router{
			Ownership: manager,
			Limiter:   command.NewRateLimiter(cfg.RateLimit.Commands, cfg.RateLimit.Interval),
			Prefix:    cfg.CommandPrefix,
		},
	}
	reconciler := &app.Reconciler{
		Registry:  reg,
		Platform:  platform,
		Lifecycle: lifecycle,
		Loop:      loop,
		Grace:     cfg.Reconcile.Grace,
	}

	// Deferred in this order so the loop is cancelled before it is waited on.
	var wg conc.WaitGroup
	defer wg.Wait()
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	wg.Go(func() { loop.Run(ctx) })

	if err := bot.Start(); err != nil {
		return err
	}
	if err := reconciler.Start(cfg.Reconcile.Spec); err != nil {
		if err := bot.Stop(); err != nil {
			log.Error().Err(err).Msg("gateway close failed")
		}
		return err
	}

	var srv *http.Server
	if cfg.HTTPEnabled {
		srv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: router.SetupRouter(cfg, reg),
		}
		wg.Go(func() {
			log.Info().Str("addr", srv.Addr).Msg("status API started")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("status API error")
			}
		})
	}

	log.Info().Int("rooms", len(reg.Rooms(""))).Msg("tempvoice running")
	<-ctx.Done()
	log.Info().Msg("Shutting down")

	reconciler.Stop()
	if err := bot.Stop(); err != nil {
		log.Error().Err(err).Msg("gateway close failed")
	}
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
	}
	return nil
}
