package trigger

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/loomkit/loom/internal/detect"
	"github.com/loomkit/loom/internal/metrics"
	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/store"
)

// NotificationSink receives change notifications for NOTIFY-policy
// artifacts. Fire-and-forget: the engine logs failures and never
// propagates them.
type NotificationSink interface {
	Notify(ctx context.Context, artifactID, changeSummary string) error
}

// LogSink is a NotificationSink that writes to the structured log.
// The default when no external sink is wired.
type LogSink struct {
	Log zerolog.Logger
}

// Notify implements NotificationSink.
func (s LogSink) Notify(_ context.Context, artifactID, changeSummary string) error {
	s.Log.Info().
		Str("artifact_id", artifactID).
		Str("summary", changeSummary).
		Msg("input changes detected, regeneration requires approval")
	return nil
}

// Engine is the single entry point for all trigger origins: design-source
// pushes, local input-file edits, and the scheduled sweep all funnel
// through Handle so policy, cooldown, and queueing behave identically.
type Engine struct {
	store    *store.Store
	detector *detect.Detector
	queue    *Queue
	cooldown *Cooldown
	sink     NotificationSink
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewEngine wires a trigger engine. A nil sink falls back to LogSink.
func NewEngine(
	st *store.Store,
	detector *detect.Detector,
	queue *Queue,
	cooldown *Cooldown,
	sink NotificationSink,
	log zerolog.Logger,
	m *metrics.Metrics,
) *Engine {
	log = log.With().Str("component", "trigger").Logger()
	if sink == nil {
		sink = LogSink{Log: log}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Engine{
		store:    st,
		detector: detector,
		queue:    queue,
		cooldown: cooldown,
		sink:     sink,
		log:      log,
		metrics:  m,
	}
}

// Handle runs detection for one artifact and acts on the result per the
// artifact's policy. Returns the decided action; (ActionNone, nil) when
// inputs are unchanged.
//
// An AUTO decision inside the cooldown window is downgraded to nothing
// and counted; the change is not lost, the next sweep pass re-detects it.
func (e *Engine) Handle(ctx context.Context, artifactID string, origin model.Trigger) (Action, error) {
	artifact, err := e.store.GetArtifact(ctx, artifactID)
	if err != nil {
		return ActionNone, err
	}
	if artifact.CurrentVersionID == "" {
		return ActionNone, errors.New("artifact " + artifactID + " has no active version")
	}
	active, err := e.store.GetVersion(ctx, artifact.CurrentVersionID)
	if err != nil {
		return ActionNone, err
	}

	res, err := e.detector.Detect(ctx, artifact, active)
	if err != nil {
		e.metrics.DetectionsTotal.WithLabelValues("error").Inc()
		return ActionNone, err
	}
	if res == nil {
		e.metrics.DetectionsTotal.WithLabelValues("unchanged").Inc()
		return ActionNone, nil
	}
	e.metrics.DetectionsTotal.WithLabelValues("changed").Inc()

	policy, err := e.store.GetPolicy(ctx, artifactID)
	if err != nil {
		return ActionNone, err
	}

	action := Decide(policy, res.Changes)
	switch action {
	case ActionNotify:
		e.notify(ctx, artifactID, res.Changes)
	case ActionRegenerate:
		if !e.cooldown.Allow(artifactID) {
			e.metrics.CooldownSkipsTotal.Inc()
			e.log.Debug().
				Str("artifact_id", artifactID).
				Msg("auto regeneration skipped, artifact in cooldown")
			return ActionNone, nil
		}
		e.enqueue(artifactID, origin, res)
	}
	return action, nil
}

func (e *Engine) notify(ctx context.Context, artifactID string, changes model.ChangeSet) {
	e.metrics.NotificationsTotal.Inc()
	if err := e.sink.Notify(ctx, artifactID, changes.Summary()); err != nil {
		e.log.Warn().
			Str("artifact_id", artifactID).
			Err(err).
			Msg("notification sink failed")
	}
}

func (e *Engine) enqueue(artifactID string, origin model.Trigger, res *detect.Result) {
	req := Request{
		ArtifactID:   artifactID,
		Origin:       origin,
		Tokens:       res.Tokens,
		Requirements: res.Requirements,
		Changes:      res.Changes,
	}
	if !e.queue.Enqueue(req) {
		e.metrics.QueueDropsTotal.Inc()
		e.log.Warn().
			Str("artifact_id", artifactID).
			Msg("trigger queue full, request dropped")
		return
	}
	e.metrics.QueueDepth.Set(float64(e.queue.Len()))
}
