package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/tempvoice/internal/core"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DefaultReconcileSpec  = "@every 5m"
	DefaultReconcileGrace = time.Minute
)

// Reconciler periodically drops rooms whose channel vanished and tears down
// rooms that ended up empty without a presence event saying so (a failed
// move after creation, events missed while offline).
type Reconciler struct {
	Registry  *Registry
	Platform  core.Platform
	Lifecycle *Lifecycle
	Loop      *Loop
	// Rooms younger than Grace are skipped so a fresh room is not deleted
	// before its owner's move has reached the presence cache.
	Grace time.Duration

	now  func() time.Time
	cron *cron.Cron
}

// Sweep checks every room once and returns how many were removed.
func (rc *Reconciler) Sweep(ctx context.Context) int {
	logger := logFor(ctx, "app.reconcile")
	now := time.Now
	if rc.now != nil {
		now = rc.now
	}
	removed := 0
	for _, room := range rc.Registry.Rooms("") {
		if now().Sub(room.CreatedAt) < rc.Grace {
			continue
		}
		_, err := rc.Platform.ChannelInfo(ctx, room.ChannelID)
		switch {
		case errors.Is(err, domain.ErrChannelMissing):
			if _, err := rc.Registry.RemoveRoom(room.ChannelID); err != nil {
				logger.Error().Err(err).Str("channel", string(room.ChannelID)).Msg("could not drop stale room")
				continue
			}
			logger.Info().Str("channel", string(room.ChannelID)).Msg("dropped room whose channel is gone")
			removed++
		case err != nil:
			logger.Warn().Err(err).Str("channel", string(room.ChannelID)).Msg("channel lookup failed, skipping")
		default:
			deleted, err := rc.Lifecycle.TeardownIfEmpty(ctx, room.GuildID, room.ChannelID)
			if err != nil {
				logger.Warn().Err(err).Str("channel", string(room.ChannelID)).Msg("teardown during sweep failed")
			}
			if deleted {
				removed++
			}
		}
	}
	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("sweep finished")
	}
	return removed
}

// Start schedules Sweep on the event loop using a cron expression.
func (rc *Reconciler) Start(spec string) error {
	if spec == "" {
		spec = DefaultReconcileSpec
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		err := rc.Loop.Submit("reconcile", func(ctx context.Context) { rc.Sweep(ctx) })
		if err != nil {
			log.Warn().Err(err).Str("module", "app.reconcile").Msg("sweep not scheduled")
		}
	})
	if err != nil {
		return err
	}
	rc.cron = c
	c.Start()
	log.Info().Str("module", "app.reconcile").Str("spec", spec).Msg("reconciler started")
	return nil
}

func (rc *Reconciler) Stop() {
	if rc.cron == nil {
		return
	}
	<-rc.cron.Stop().Done()
}
