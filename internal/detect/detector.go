// Package detect compares an artifact's upstream design inputs against its
// active version and reports the exact differences.
package detect

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/loomkit/loom/internal/diff"
	"github.com/loomkit/loom/internal/fault"
	"github.com/loomkit/loom/internal/model"
)

// DesignSourceClient fetches the current design inputs for an artifact.
// Implementations talk to whatever holds the source of truth (a design
// tool export, a token service, a file on disk).
type DesignSourceClient interface {
	Fetch(ctx context.Context, artifact *model.Artifact) (model.TokenSet, model.RequirementSet, error)
}

// Result is a detected divergence between upstream inputs and the active
// version. Changes is never empty; a nil *Result means no change.
//
// Tokens and Requirements are the fetched upstream sets. Callers that go
// on to regenerate must pass these along so the new version is built from
// exactly what was compared, not from a second fetch that may differ.
type Result struct {
	Changes      model.ChangeSet
	Tokens       model.TokenSet
	Requirements model.RequirementSet
}

// Detector detects input changes for artifacts.
type Detector struct {
	source DesignSourceClient
	log    zerolog.Logger
}

// New creates a detector backed by the given design source.
func New(source DesignSourceClient, log zerolog.Logger) *Detector {
	return &Detector{
		source: source,
		log:    log.With().Str("component", "detect").Logger(),
	}
}

// Detect fetches the upstream inputs for the artifact and compares them
// against the active version.
//
// Returns (nil, nil) when inputs are unchanged. A fetch failure returns a
// RETRIEVAL_FAILED error and never a partial result: detection either
// completes against a full snapshot or reports nothing.
//
// The comparison short-circuits on content hashes. Hashes are computed
// over canonical JSON, so hash equality is set equality and the per-key
// walk only runs when something actually moved.
func (d *Detector) Detect(ctx context.Context, artifact *model.Artifact, active *model.Version) (*Result, error) {
	tokens, reqs, err := d.source.Fetch(ctx, artifact)
	if err != nil {
		return nil, fault.Retrieval(artifact.ID, err)
	}

	tokenHash, err := model.HashTokens(tokens)
	if err != nil {
		return nil, fault.Retrieval(artifact.ID, err)
	}
	reqHash, err := model.HashRequirements(reqs)
	if err != nil {
		return nil, fault.Retrieval(artifact.ID, err)
	}

	if tokenHash == active.TokenHash && reqHash == active.RequirementHash {
		d.log.Debug().
			Str("artifact_id", artifact.ID).
			Msg("inputs unchanged")
		return nil, nil
	}

	changes := diff.Inputs(active.Tokens, tokens, active.Requirements, reqs)
	if len(changes) == 0 {
		// Hash mismatch with equal sets is unreachable with canonical
		// hashing; treat it as no change rather than trip downstream.
		return nil, nil
	}

	d.log.Info().
		Str("artifact_id", artifact.ID).
		Int("changes", len(changes)).
		Msg("input changes detected")

	return &Result{
		Changes:      changes,
		Tokens:       tokens,
		Requirements: reqs,
	}, nil
}
