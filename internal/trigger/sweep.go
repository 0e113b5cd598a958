package trigger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/store"
)

// Sweeper periodically runs detection over every artifact. It is an
// explicitly constructed, explicitly stopped task owned by the
// composition root, not a package-level singleton; cancelling the context
// passed to Run is the only stop mechanism.
type Sweeper struct {
	store    *store.Store
	engine   *Engine
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a sweeper with the given interval.
func NewSweeper(st *store.Store, engine *Engine, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    st,
		engine:   engine,
		interval: interval,
		log:      log.With().Str("component", "sweep").Logger(),
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. Blocking; callers
// run it in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("sweep started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweep stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one detection pass over all artifacts. A per-artifact failure
// is logged and the pass continues; one broken design-source entry must
// not starve every other artifact of detection.
func (s *Sweeper) Sweep(ctx context.Context) {
	artifacts, err := s.store.ListArtifacts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: list artifacts failed")
		return
	}

	for _, a := range artifacts {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.engine.Handle(ctx, a.ID, model.TriggerSchedule); err != nil {
			s.log.Warn().
				Str("artifact_id", a.ID).
				Err(err).
				Msg("sweep: detection failed, continuing")
		}
	}
}
