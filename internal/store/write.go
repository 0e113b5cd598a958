package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loomkit/loom/internal/model"
)

// CreateArtifact inserts an artifact together with its first version in a
// single transaction. The first version becomes active and the artifact's
// current-version pointer is set to it. This is the initial-generation
// path; every later version goes through AppendVersion.
func (s *Store) CreateArtifact(ctx context.Context, a *model.Artifact, first *model.Version) error {
	if first.ArtifactID != a.ID {
		return fmt.Errorf("create artifact: version %s belongs to artifact %s, not %s",
			first.ID, first.ArtifactID, a.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create artifact: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (id, name, kind, current_version_id, created_at)
		VALUES (?, ?, ?, NULL, ?)
	`, a.ID, a.Name, a.Kind, a.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("create artifact: insert artifact: %w", err)
	}

	if err := insertVersion(ctx, tx, first, model.StatusActive); err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE artifacts SET current_version_id = ? WHERE id = ?
	`, first.ID, a.ID)
	if err != nil {
		return fmt.Errorf("create artifact: set pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create artifact: commit: %w", err)
	}

	a.CurrentVersionID = first.ID
	return nil
}

// AppendVersion atomically appends a new version to an artifact's lineage
// and moves the current-version pointer, in one transaction:
//
//  1. Compare-and-swap: the artifact's pointer must still equal
//     expectedParentID, otherwise ErrConflict (retryable, nothing changed).
//  2. The previous active version is archived.
//  3. The new version is inserted with status active.
//  4. The pointer is moved to the new version.
//
// A state where the version exists but the pointer is stale is therefore
// unreachable. The partial unique index uq_versions_one_active backs the
// single-active invariant at the schema level as well.
func (s *Store) AppendVersion(ctx context.Context, v *model.Version, expectedParentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append version: begin tx: %w", err)
	}
	defer tx.Rollback()

	var current sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT current_version_id FROM artifacts WHERE id = ?
	`, v.ArtifactID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("append version: artifact %s: %w", v.ArtifactID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("append version: read pointer: %w", err)
	}

	if current.String != expectedParentID {
		return fmt.Errorf("append version: artifact %s expected parent %s, pointer at %s: %w",
			v.ArtifactID, expectedParentID, current.String, ErrConflict)
	}

	if expectedParentID != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE versions SET status = ? WHERE id = ? AND status = ?
		`, model.StatusArchived, expectedParentID, model.StatusActive)
		if err != nil {
			return fmt.Errorf("append version: archive previous: %w", err)
		}
	}

	if err := insertVersion(ctx, tx, v, model.StatusActive); err != nil {
		return fmt.Errorf("append version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE artifacts SET current_version_id = ? WHERE id = ?
	`, v.ID, v.ArtifactID)
	if err != nil {
		return fmt.Errorf("append version: move pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append version: commit: %w", err)
	}

	return nil
}

// insertVersion writes a version row inside an existing transaction.
// Token/requirement sets and tags are serialized to canonical JSON.
func insertVersion(ctx context.Context, tx *sql.Tx, v *model.Version, status model.Status) error {
	tokensJSON, err := marshalSet(v.Tokens)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	reqsJSON, err := marshalSet(v.Requirements)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	tagsJSON, err := marshalTags(v.Tags)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	var parent any
	if v.ParentID != "" {
		parent = v.ParentID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions
		(id, artifact_id, major, minor, patch, created_at, created_by, trigger_kind,
		 token_hash, requirement_hash, tokens, requirements, code, aux, status, tags, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID,
		v.ArtifactID,
		v.SemVer.Major,
		v.SemVer.Minor,
		v.SemVer.Patch,
		v.CreatedAt.UTC().UnixNano(),
		v.CreatedBy,
		string(v.Trigger),
		v.TokenHash,
		v.RequirementHash,
		tokensJSON,
		reqsJSON,
		v.Code,
		v.Aux,
		string(status),
		tagsJSON,
		parent,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	v.Status = status
	return nil
}

// UpdateStatus changes a version's lifecycle status. Status and tags are
// the only fields a written version may change.
func (s *Store) UpdateStatus(ctx context.Context, versionID string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("update status: invalid status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE versions SET status = ? WHERE id = ?
	`, string(status), versionID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update status: version %s: %w", versionID, ErrNotFound)
	}
	return nil
}

// AddTags merges tags into a version's tag set. Duplicates are ignored.
func (s *Store) AddTags(ctx context.Context, versionID string, tags ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add tags: begin tx: %w", err)
	}
	defer tx.Rollback()

	var tagsJSON string
	err = tx.QueryRowContext(ctx, `
		SELECT tags FROM versions WHERE id = ?
	`, versionID).Scan(&tagsJSON)
	if err == sql.ErrNoRows {
		return fmt.Errorf("add tags: version %s: %w", versionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("add tags: read tags: %w", err)
	}

	existing, err := unmarshalTags(tagsJSON)
	if err != nil {
		return fmt.Errorf("add tags: %w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	merged := existing
	for _, t := range tags {
		if !seen[t] {
			merged = append(merged, t)
			seen[t] = true
		}
	}

	mergedJSON, err := marshalTags(merged)
	if err != nil {
		return fmt.Errorf("add tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE versions SET tags = ? WHERE id = ?
	`, mergedJSON, versionID)
	if err != nil {
		return fmt.Errorf("add tags: write tags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add tags: commit: %w", err)
	}
	return nil
}

// SetPolicy upserts the trigger policy for an artifact.
func (s *Store) SetPolicy(ctx context.Context, artifactID string, policy model.TriggerPolicy) error {
	if !policy.Valid() {
		return fmt.Errorf("set policy: invalid policy %q", policy)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM artifacts WHERE id = ?
	`, artifactID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("set policy: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("set policy: artifact %s: %w", artifactID, ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policies (artifact_id, policy, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(artifact_id) DO UPDATE SET policy = excluded.policy, updated_at = excluded.updated_at
	`, artifactID, string(policy), time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("set policy: %w", err)
	}
	return nil
}
