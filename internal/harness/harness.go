// Package harness drives randomized operation sequences against a real
// store and regeneration service, then checks the structural invariants
// that must hold regardless of the sequence: at most one active version
// per artifact, strictly increasing triples along parent chains, and
// immutable historical payloads.
package harness

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/loomkit/loom/internal/fault"
	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/regen"
	"github.com/loomkit/loom/internal/store"
)

// Harness owns a fresh store and service per run. The seed makes a failed
// sequence reproducible.
type Harness struct {
	Store   *store.Store
	Service *regen.Service
	rng     *rand.Rand

	artifacts []*model.Artifact
	// snapshots pins each version's payload at write time so immutability
	// can be checked afterwards.
	snapshots map[string]string
}

// New creates a harness with a file-backed store under dir.
func New(dir string, seed int64) (*Harness, error) {
	st, err := store.Open(filepath.Join(dir, fmt.Sprintf("harness-%d.db", seed)))
	if err != nil {
		return nil, err
	}
	return &Harness{
		Store:     st,
		Service:   regen.NewService(st, regen.TemplateGenerator{}),
		rng:       rand.New(rand.NewSource(seed)),
		snapshots: make(map[string]string),
	}, nil
}

// Close releases the store.
func (h *Harness) Close() error {
	return h.Store.Close()
}

// Seed creates n artifacts, each with a 1.0.0 first version.
func (h *Harness) Seed(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		tokens := model.TokenSet{"colors.primary": h.randColor()}
		reqs := model.RequirementSet{"props.variant": "primary"}

		a := &model.Artifact{
			ID:        model.NewArtifactID(),
			Name:      fmt.Sprintf("Component%d", i),
			Kind:      "component/generic",
			CreatedAt: time.Now(),
		}
		payload, err := regen.TemplateGenerator{}.Generate(ctx, a, tokens, reqs)
		if err != nil {
			return err
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
			Code:            payload.Code,
		}
		if err := h.Store.CreateArtifact(ctx, a, v); err != nil {
			return err
		}
		h.artifacts = append(h.artifacts, a)
		h.snapshots[v.ID] = v.Code
	}
	return nil
}

// Run executes steps random operations. Unsafe rollbacks are expected
// outcomes, not failures; any other error aborts the run.
func (h *Harness) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		a := h.artifacts[h.rng.Intn(len(h.artifacts))]

		var err error
		switch h.rng.Intn(4) {
		case 0, 1:
			err = h.stepRegenerate(ctx, a)
		case 2:
			err = h.stepRemoveToken(ctx, a)
		default:
			err = h.stepRollback(ctx, a)
		}
		if err != nil {
			return fmt.Errorf("step %d (artifact %s): %w", i, a.Name, err)
		}
	}
	return nil
}

// stepRegenerate modifies or adds a token and regenerates.
func (h *Harness) stepRegenerate(ctx context.Context, a *model.Artifact) error {
	active, err := h.Store.ActiveVersion(ctx, a.ID)
	if err != nil {
		return err
	}

	tokens := cloneSet(active.Tokens)
	if h.rng.Intn(2) == 0 {
		tokens["colors.primary"] = h.randColor()
	} else {
		tokens[fmt.Sprintf("spacing.s%d", h.rng.Intn(8))] = fmt.Sprintf("%dpx", 4*(1+h.rng.Intn(8)))
	}

	res, err := h.Service.Regenerate(ctx, a.ID, regen.Options{
		Tokens:       tokens,
		Requirements: active.Requirements,
		Trigger:      model.TriggerTokenChange,
	})
	if err != nil {
		return err
	}
	h.snapshots[res.Version.ID] = res.Version.Code
	return nil
}

// stepRemoveToken drops a non-primary token if one exists, forcing a
// major bump path.
func (h *Harness) stepRemoveToken(ctx context.Context, a *model.Artifact) error {
	active, err := h.Store.ActiveVersion(ctx, a.ID)
	if err != nil {
		return err
	}

	tokens := cloneSet(active.Tokens)
	removed := false
	for k := range tokens {
		if k != "colors.primary" {
			delete(tokens, k)
			removed = true
			break
		}
	}
	if !removed {
		return h.stepRegenerate(ctx, a)
	}

	res, err := h.Service.Regenerate(ctx, a.ID, regen.Options{
		Tokens:       tokens,
		Requirements: active.Requirements,
		Trigger:      model.TriggerDesignChange,
	})
	if err != nil {
		return err
	}
	h.snapshots[res.Version.ID] = res.Version.Code
	return nil
}

// stepRollback picks a random archived version and attempts a rollback.
func (h *Harness) stepRollback(ctx context.Context, a *model.Artifact) error {
	archived, err := h.Store.ListVersions(ctx, a.ID, store.Filter{Status: model.StatusArchived})
	if err != nil {
		return err
	}
	if len(archived) == 0 {
		return nil
	}

	target := archived[h.rng.Intn(len(archived))]
	res, err := h.Service.Rollback(ctx, a.ID, target.ID, model.SystemActor)
	if err != nil {
		if fault.IsUnsafeRollback(err) {
			return nil
		}
		return err
	}
	h.snapshots[res.Version.ID] = res.Version.Code
	return nil
}

// Artifacts returns the seeded artifacts.
func (h *Harness) Artifacts() []*model.Artifact {
	return h.artifacts
}

// Snapshot returns the payload recorded when versionID was written.
func (h *Harness) Snapshot(versionID string) (string, bool) {
	code, ok := h.snapshots[versionID]
	return code, ok
}

func (h *Harness) randColor() string {
	return fmt.Sprintf("#%06X", h.rng.Intn(1<<24))
}

func cloneSet(m model.TokenSet) model.TokenSet {
	out := make(model.TokenSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
