package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/loomkit/loom/internal/metrics"
	"github.com/loomkit/loom/internal/regen"
)

// Pool drains the request queue with a fixed set of workers. Distinct
// artifacts regenerate in parallel; same-artifact requests serialize
// inside the regeneration service.
type Pool struct {
	queue    *Queue
	svc      *regen.Service
	cooldown *Cooldown
	workers  int
	timeout  time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics

	wg sync.WaitGroup
}

// NewPool creates a worker pool. timeout bounds each regeneration; zero
// means no per-request deadline.
func NewPool(
	queue *Queue,
	svc *regen.Service,
	cooldown *Cooldown,
	workers int,
	timeout time.Duration,
	log zerolog.Logger,
	m *metrics.Metrics,
) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Pool{
		queue:    queue,
		svc:      svc,
		cooldown: cooldown,
		workers:  workers,
		timeout:  timeout,
		log:      log.With().Str("component", "worker").Logger(),
		metrics:  m,
	}
}

// Start launches the workers. They run until ctx is cancelled or the
// queue is closed and drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		req, ok := p.queue.TryDequeue()
		if !ok {
			if p.queue.Closed() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-p.queue.Wait():
				continue
			}
		}

		p.metrics.QueueDepth.Set(float64(p.queue.Len()))
		p.process(ctx, id, req)
	}
}

// process runs one regeneration. A failure is logged and the worker moves
// on: the sweep re-detects persistent divergence, so giving up on one
// request loses nothing.
func (p *Pool) process(ctx context.Context, id int, req Request) {
	reqCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	res, err := p.svc.Regenerate(reqCtx, req.ArtifactID, regen.Options{
		Tokens:       req.Tokens,
		Requirements: req.Requirements,
		Trigger:      req.Origin,
	})
	if err != nil {
		p.log.Error().
			Int("worker", id).
			Str("artifact_id", req.ArtifactID).
			Err(err).
			Msg("queued regeneration failed")
		return
	}

	p.cooldown.Record(req.ArtifactID)
	p.log.Info().
		Int("worker", id).
		Str("artifact_id", req.ArtifactID).
		Str("version", res.Version.SemVer.String()).
		Msg("queued regeneration complete")
}
