package regen

import (
	"context"
	"errors"
	"strings"

	"github.com/loomkit/loom/internal/diff"
	"github.com/loomkit/loom/internal/fault"
	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/store"
)

// Options parameterizes a regeneration.
//
// Tokens/Requirements are the input sets to build from, usually the sets a
// detection run fetched. Nil means "reuse the active version's inputs",
// which regenerates code without an input change (e.g. after a generator
// upgrade).
type Options struct {
	Tokens       model.TokenSet
	Requirements model.RequirementSet
	Trigger      model.Trigger
	Actor        string
}

// Result describes a completed regeneration or rollback.
type Result struct {
	Previous *model.Version
	Version  *model.Version
	Changes  model.ChangeSet
	Bump     model.BumpKind
	CodeDiff []string
}

// Regenerate builds a new version of the artifact and promotes it to
// active. The whole operation either completes or leaves the store
// untouched:
//
//   - A generator failure, or a syntactically valid but empty payload,
//     aborts before any write (GENERATION_FAILED).
//   - The version insert and pointer move are one store transaction.
//   - If the pointer moved under us, the attempt is retried from a fresh
//     read; after the retry budget it fails with CONCURRENT_MODIFICATION
//     and nothing is persisted.
func (s *Service) Regenerate(ctx context.Context, artifactID string, opts Options) (*Result, error) {
	unlock := s.locks.Lock(artifactID)
	defer unlock()

	if opts.Trigger == "" {
		opts.Trigger = model.TriggerManual
	}
	if !opts.Trigger.Valid() {
		return nil, fault.Validation("unknown trigger kind "+string(opts.Trigger), nil)
	}
	if opts.Actor == "" {
		opts.Actor = model.SystemActor
	}

	start := s.now()
	res, err := s.regenerateWithRetry(ctx, artifactID, opts)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RegenerationsTotal.WithLabelValues(string(opts.Trigger), outcome).Inc()
	s.metrics.RegenerationSecs.Observe(s.now().Sub(start).Seconds())

	if err != nil {
		s.log.Error().
			Str("artifact_id", artifactID).
			Str("trigger", string(opts.Trigger)).
			Err(err).
			Msg("regeneration failed")
		return nil, err
	}

	s.metrics.BumpsTotal.WithLabelValues(string(res.Bump)).Inc()
	s.log.Info().
		Str("artifact_id", artifactID).
		Str("trigger", string(opts.Trigger)).
		Str("version", res.Version.SemVer.String()).
		Str("bump", string(res.Bump)).
		Int("changes", len(res.Changes)).
		Msg("regenerated")
	return res, nil
}

// regenerateWithRetry runs attempts until one lands or the pointer keeps
// moving. The per-artifact lock makes conflicts rare (only external
// writers cause them), so the budget is small.
func (s *Service) regenerateWithRetry(ctx context.Context, artifactID string, opts Options) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < s.casRetries; attempt++ {
		res, err := s.regenerateOnce(ctx, artifactID, opts)
		if err != nil && errors.Is(err, store.ErrConflict) {
			lastErr = err
			s.log.Warn().
				Str("artifact_id", artifactID).
				Int("attempt", attempt+1).
				Msg("pointer moved during regeneration, retrying")
			continue
		}
		return res, err
	}
	return nil, fault.ConcurrentModification(artifactID, lastErr)
}

func (s *Service) regenerateOnce(ctx context.Context, artifactID string, opts Options) (*Result, error) {
	artifact, err := s.store.GetArtifact(ctx, artifactID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fault.Validation("unknown artifact "+artifactID, err)
		}
		return nil, err
	}
	if artifact.CurrentVersionID == "" {
		return nil, fault.Validation("artifact "+artifactID+" has no active version", nil)
	}

	active, err := s.store.GetVersion(ctx, artifact.CurrentVersionID)
	if err != nil {
		return nil, err
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = active.Tokens
	}
	reqs := opts.Requirements
	if reqs == nil {
		reqs = active.Requirements
	}

	changes := diff.Inputs(active.Tokens, tokens, active.Requirements, reqs)

	payload, err := s.gen.Generate(ctx, artifact, tokens, reqs)
	if err != nil {
		return nil, fault.Generation(artifactID, err)
	}
	if payload == nil || strings.TrimSpace(payload.Code) == "" {
		return nil, fault.InvalidPayload(artifactID, "empty code payload")
	}

	tokenHash, err := model.HashTokens(tokens)
	if err != nil {
		return nil, fault.Validation("hash tokens", err)
	}
	reqHash, err := model.HashRequirements(reqs)
	if err != nil {
		return nil, fault.Validation("hash requirements", err)
	}

	kind := s.classifier.Classify(changes)
	v := &model.Version{
		ID:              model.NewVersionID(),
		ArtifactID:      artifactID,
		SemVer:          active.SemVer.Bump(kind),
		CreatedAt:       s.now(),
		CreatedBy:       opts.Actor,
		Trigger:         opts.Trigger,
		TokenHash:       tokenHash,
		RequirementHash: reqHash,
		Tokens:          tokens,
		Requirements:    reqs,
		Code:            payload.Code,
		Aux:             payload.Aux,
		ParentID:        active.ID,
	}

	if err := s.store.AppendVersion(ctx, v, active.ID); err != nil {
		return nil, err
	}

	return &Result{
		Previous: active,
		Version:  v,
		Changes:  changes,
		Bump:     kind,
		CodeDiff: diff.Code(active.Code, v.Code),
	}, nil
}
