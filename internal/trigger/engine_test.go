package trigger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/detect"
	"github.com/loomkit/loom/internal/logging"
	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/regen"
	"github.com/loomkit/loom/internal/store"
	"github.com/loomkit/loom/internal/testutil"
)

// mapSource serves per-artifact-name input sets, or a per-name error.
type mapSource struct {
	tokens map[string]model.TokenSet
	reqs   map[string]model.RequirementSet
	errs   map[string]error
}

func (s *mapSource) Fetch(_ context.Context, a *model.Artifact) (model.TokenSet, model.RequirementSet, error) {
	if err := s.errs[a.Name]; err != nil {
		return nil, nil, err
	}
	return s.tokens[a.Name], s.reqs[a.Name], nil
}

// recordingSink captures notifications.
type recordingSink struct {
	calls []string
}

func (s *recordingSink) Notify(_ context.Context, artifactID, summary string) error {
	s.calls = append(s.calls, artifactID+": "+summary)
	return nil
}

type engineFixture struct {
	store    *store.Store
	source   *mapSource
	queue    *Queue
	cooldown *Cooldown
	clock    *testutil.Clock
	sink     *recordingSink
	engine   *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	source := &mapSource{
		tokens: map[string]model.TokenSet{},
		reqs:   map[string]model.RequirementSet{},
		errs:   map[string]error{},
	}
	queue := NewQueue(8)
	cooldown := NewCooldown(time.Minute, clock.Now)
	sink := &recordingSink{}

	detector := detect.New(source, logging.Nop())
	return &engineFixture{
		store:    st,
		source:   source,
		queue:    queue,
		cooldown: cooldown,
		clock:    clock,
		sink:     sink,
		engine:   NewEngine(st, detector, queue, cooldown, sink, logging.Nop(), nil),
	}
}

// seed creates an artifact whose upstream source currently matches its
// active version exactly.
func (f *engineFixture) seed(t *testing.T, name string, policy model.TriggerPolicy) *model.Artifact {
	t.Helper()
	ctx := context.Background()
	tokens := model.TokenSet{"colors.primary": "#3B82F6"}
	reqs := model.RequirementSet{"props.variant": "primary"}

	a := &model.Artifact{
		ID:        model.NewArtifactID(),
		Name:      name,
		Kind:      "component/button",
		CreatedAt: time.Now(),
	}
	v := &model.Version{
		ID:              model.NewVersionID(),
		ArtifactID:      a.ID,
		SemVer:          model.SemVer{Major: 1},
		CreatedAt:       time.Now(),
		CreatedBy:       model.SystemActor,
		Trigger:         model.TriggerManual,
		TokenHash:       model.MustHashTokens(tokens),
		RequirementHash: model.MustHashRequirements(reqs),
		Tokens:          tokens,
		Requirements:    reqs,
		Code:            "export const " + name + " = () => null;\n",
	}
	require.NoError(t, f.store.CreateArtifact(ctx, a, v))
	require.NoError(t, f.store.SetPolicy(ctx, a.ID, policy))

	f.source.tokens[name] = tokens
	f.source.reqs[name] = reqs
	return a
}

// drift changes the upstream source for an artifact.
func (f *engineFixture) drift(name, color string) {
	f.source.tokens[name] = model.TokenSet{"colors.primary": color}
}

func TestHandle_AutoEnqueuesWithFetchedInputs(t *testing.T) {
	f := newEngineFixture(t)
	a := f.seed(t, "Button", model.PolicyAuto)
	f.drift("Button", "#1D4ED8")

	action, err := f.engine.Handle(context.Background(), a.ID, model.TriggerDesignChange)
	require.NoError(t, err)
	assert.Equal(t, ActionRegenerate, action)

	req, ok := f.queue.TryDequeue()
	require.True(t, ok, "expected a queued request")
	assert.Equal(t, a.ID, req.ArtifactID)
	assert.Equal(t, model.TriggerDesignChange, req.Origin)
	assert.Equal(t, "#1D4ED8", req.Tokens["colors.primary"])
	assert.NotEmpty(t, req.Changes)
}

func TestHandle_UnchangedInputsDoNothing(t *testing.T) {
	f := newEngineFixture(t)
	a := f.seed(t, "Button", model.PolicyAuto)

	action, err := f.engine.Handle(context.Background(), a.ID, model.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	assert.Zero(t, f.queue.Len())
}

func TestHandle_NotifyEmitsAndSkipsQueue(t *testing.T) {
	f := newEngineFixture(t)
	a := f.seed(t, "Button", model.PolicyNotify)
	f.drift("Button", "#1D4ED8")

	action, err := f.engine.Handle(context.Background(), a.ID, model.TriggerDesignChange)
	require.NoError(t, err)
	assert.Equal(t, ActionNotify, action)
	assert.Zero(t, f.queue.Len())
	require.Len(t, f.sink.calls, 1)
	assert.Contains(t, f.sink.calls[0], a.ID)
	assert.Contains(t, f.sink.calls[0], "1 modified")
}

func TestHandle_ManualTakesNoAction(t *testing.T) {
	f := newEngineFixture(t)
	a := f.seed(t, "Button", model.PolicyManual)
	f.drift("Button", "#1D4ED8")

	action, err := f.engine.Handle(context.Background(), a.ID, model.TriggerDesignChange)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	assert.Zero(t, f.queue.Len())
	assert.Empty(t, f.sink.calls)
}

func TestHandle_CooldownGatesAuto(t *testing.T) {
	f := newEngineFixture(t)
	a := f.seed(t, "Button", model.PolicyAuto)
	f.drift("Button", "#1D4ED8")
	f.cooldown.Record(a.ID)

	action, err := f.engine.Handle(context.Background(), a.ID, model.TriggerDesignChange)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
	assert.Zero(t, f.queue.Len())

	// After the window the same change goes through.
	f.clock.Advance(time.Minute)
	action, err = f.engine.Handle(context.Background(), a.ID, model.TriggerDesignChange)
	require.NoError(t, err)
	assert.Equal(t, ActionRegenerate, action)
	assert.Equal(t, 1, f.queue.Len())
}

func TestHandle_RetrievalFailureSurfaces(t *testing.T) {
	f := newEngineFixture(t)
	a := f.seed(t, "Button", model.PolicyAuto)
	f.source.errs["Button"] = errors.New("design tool down")

	_, err := f.engine.Handle(context.Background(), a.ID, model.TriggerSchedule)
	require.Error(t, err)
	assert.Zero(t, f.queue.Len())
}

func TestSweep_CatchAndContinue(t *testing.T) {
	f := newEngineFixture(t)
	broken := f.seed(t, "Broken", model.PolicyAuto)
	healthy := f.seed(t, "Healthy", model.PolicyAuto)
	f.source.errs["Broken"] = errors.New("design tool down")
	f.drift("Healthy", "#1D4ED8")

	sweeper := NewSweeper(f.store, f.engine, time.Minute, logging.Nop())
	sweeper.Sweep(context.Background())

	require.Equal(t, 1, f.queue.Len())
	req, _ := f.queue.TryDequeue()
	assert.Equal(t, healthy.ID, req.ArtifactID)
	assert.NotEqual(t, broken.ID, req.ArtifactID)
	assert.Equal(t, model.TriggerSchedule, req.Origin)
}

func TestSweep_RunStopsOnCancel(t *testing.T) {
	f := newEngineFixture(t)
	sweeper := NewSweeper(f.store, f.engine, time.Millisecond, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

// End-to-end: drift, Handle enqueues, a worker drains the queue and a new
// version lands.
func TestPool_ProcessesQueuedRegeneration(t *testing.T) {
	f := newEngineFixture(t)
	a := f.seed(t, "Button", model.PolicyAuto)
	f.drift("Button", "#1D4ED8")

	ctx := context.Background()
	action, err := f.engine.Handle(ctx, a.ID, model.TriggerDesignChange)
	require.NoError(t, err)
	require.Equal(t, ActionRegenerate, action)

	svc := regen.NewService(f.store, regen.TemplateGenerator{})
	pool := NewPool(f.queue, svc, f.cooldown, 2, time.Second, logging.Nop(), nil)

	workCtx, cancel := context.WithCancel(ctx)
	pool.Start(workCtx)

	deadline := time.Now().Add(2 * time.Second)
	var active *model.Version
	for time.Now().Before(deadline) {
		active, err = f.store.ActiveVersion(ctx, a.ID)
		require.NoError(t, err)
		if active.SemVer.String() != "1.0.0" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	pool.Wait()

	require.NotNil(t, active)
	assert.Equal(t, "1.1.0", active.SemVer.String())
	assert.Equal(t, model.TriggerDesignChange, active.Trigger)
	assert.Equal(t, "#1D4ED8", active.Tokens["colors.primary"])
	assert.False(t, f.cooldown.Allow(a.ID), "worker must record the cooldown")
}
