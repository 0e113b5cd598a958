package regen

import (
	"context"
	"errors"

	"github.com/loomkit/loom/internal/diff"
	"github.com/loomkit/loom/internal/fault"
	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/store"
)

// RollbackTag marks versions created by a rollback.
const RollbackTag = "rollback"

// Rollback restores a prior version's inputs and code as a NEW version.
// History is append-only: the target stays where it is, a copy of its
// snapshot becomes the new active version with a patch bump and the
// current active as its parent. The lineage records the rollback instead
// of erasing what it undid.
//
// The safety check in CanRollback runs first and is never overridden.
func (s *Service) Rollback(ctx context.Context, artifactID, targetVersionID, actor string) (*Result, error) {
	unlock := s.locks.Lock(artifactID)
	defer unlock()

	if actor == "" {
		actor = model.SystemActor
	}

	res, err := s.rollbackWithRetry(ctx, artifactID, targetVersionID, actor)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RollbacksTotal.WithLabelValues(outcome).Inc()

	if err != nil {
		s.log.Error().
			Str("artifact_id", artifactID).
			Str("target_version_id", targetVersionID).
			Err(err).
			Msg("rollback failed")
		return nil, err
	}

	s.log.Info().
		Str("artifact_id", artifactID).
		Str("target", res.Previous.SemVer.String()).
		Str("version", res.Version.SemVer.String()).
		Msg("rolled back")
	return res, nil
}

// rollbackWithRetry re-reads and retries while the current-version pointer
// keeps moving, with the same budget as regeneration. Each attempt rolls
// back from a fresh read of the active version, so a concurrent append
// changes the parent and the bumped triple but never the restored content.
func (s *Service) rollbackWithRetry(ctx context.Context, artifactID, targetVersionID, actor string) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < s.casRetries; attempt++ {
		res, err := s.rollbackOnce(ctx, artifactID, targetVersionID, actor)
		if err != nil && errors.Is(err, store.ErrConflict) {
			lastErr = err
			s.log.Warn().
				Str("artifact_id", artifactID).
				Int("attempt", attempt+1).
				Msg("pointer moved during rollback, retrying")
			continue
		}
		return res, err
	}
	return nil, fault.ConcurrentModification(artifactID, lastErr)
}

func (s *Service) rollbackOnce(ctx context.Context, artifactID, targetVersionID, actor string) (*Result, error) {
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

	target, err := s.store.GetVersion(ctx, targetVersionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fault.Validation("unknown version "+targetVersionID, err)
		}
		return nil, err
	}

	if err := CanRollback(active, target); err != nil {
		return nil, err
	}

	v := &model.Version{
		ID:              model.NewVersionID(),
		ArtifactID:      artifactID,
		SemVer:          active.SemVer.Bump(model.BumpPatch),
		CreatedAt:       s.now(),
		CreatedBy:       actor,
		Trigger:         model.TriggerManualRollback,
		TokenHash:       target.TokenHash,
		RequirementHash: target.RequirementHash,
		Tokens:          target.Tokens,
		Requirements:    target.Requirements,
		Code:            target.Code,
		Aux:             target.Aux,
		Tags:            []string{RollbackTag, "restores:" + target.SemVer.String()},
		ParentID:        active.ID,
	}

	if err := s.store.AppendVersion(ctx, v, active.ID); err != nil {
		return nil, err
	}

	return &Result{
		Previous: active,
		Version:  v,
		Changes:  diff.Inputs(active.Tokens, v.Tokens, active.Requirements, v.Requirements),
		Bump:     model.BumpPatch,
		CodeDiff: diff.Code(active.Code, v.Code),
	}, nil
}

// CanRollback decides whether restoring target while current is active is
// safe. Pure: no I/O, no clock.
//
// A target is unsafe when:
//   - it belongs to a different artifact,
//   - it is the active version itself (nothing to restore),
//   - it is an unpromoted draft,
//   - its code payload is empty,
//   - it lacks a requirement key the current version carries. Dropping a
//     declared input on restore would silently regress consumers that rely
//     on it; such rollbacks need a fresh forward regeneration instead.
func CanRollback(current, target *model.Version) error {
	if target.ArtifactID != current.ArtifactID {
		return fault.UnsafeRollback(current.ArtifactID, target.ID,
			"target belongs to a different artifact")
	}
	if target.ID == current.ID {
		return fault.UnsafeRollback(current.ArtifactID, target.ID,
			"target is already the active version")
	}
	if target.Status == model.StatusDraft {
		return fault.UnsafeRollback(current.ArtifactID, target.ID,
			"target is a draft and was never promoted")
	}
	if target.Code == "" {
		return fault.UnsafeRollback(current.ArtifactID, target.ID,
			"target has an empty code payload")
	}
	for key := range current.Requirements {
		if _, ok := target.Requirements[key]; !ok {
			return fault.UnsafeRollback(current.ArtifactID, target.ID,
				"target is missing requirement "+key)
		}
	}
	return nil
}
