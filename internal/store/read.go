package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/loomkit/loom/internal/model"
)

// Filter narrows ListVersions results. Zero values mean "no filter".
type Filter struct {
	Status  model.Status
	Tag     string
	Trigger model.Trigger
	Limit   int
}

const versionColumns = `
	id, artifact_id, major, minor, patch, created_at, created_by, trigger_kind,
	token_hash, requirement_hash, tokens, requirements, code, aux, status, tags, parent_id`

// GetArtifact loads an artifact by id.
func (s *Store) GetArtifact(ctx context.Context, id string) (*model.Artifact, error) {
	return s.scanArtifact(s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, current_version_id, created_at
		FROM artifacts WHERE id = ?
	`, id), id)
}

// GetArtifactByName loads an artifact by display name.
func (s *Store) GetArtifactByName(ctx context.Context, name string) (*model.Artifact, error) {
	return s.scanArtifact(s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, current_version_id, created_at
		FROM artifacts WHERE name = ?
	`, name), name)
}

func (s *Store) scanArtifact(row *sql.Row, key string) (*model.Artifact, error) {
	var a model.Artifact
	var current sql.NullString
	var createdAt int64

	err := row.Scan(&a.ID, &a.Name, &a.Kind, &current, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artifact %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}

	a.CurrentVersionID = current.String
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	return &a, nil
}

// ListArtifacts returns all artifacts ordered by creation time.
func (s *Store) ListArtifacts(ctx context.Context) ([]*model.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, current_version_id, created_at
		FROM artifacts ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*model.Artifact
	for rows.Next() {
		var a model.Artifact
		var current sql.NullString
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind, &current, &createdAt); err != nil {
			return nil, fmt.Errorf("list artifacts: scan: %w", err)
		}
		a.CurrentVersionID = current.String
		a.CreatedAt = time.Unix(0, createdAt).UTC()
		artifacts = append(artifacts, &a)
	}
	return artifacts, rows.Err()
}

// GetVersion loads a version by id.
func (s *Store) GetVersion(ctx context.Context, id string) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions WHERE id = ?
	`, id)

	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// ActiveVersion returns the single active version of an artifact via the
// status index.
func (s *Store) ActiveVersion(ctx context.Context, artifactID string) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions WHERE artifact_id = ? AND status = ?
	`, artifactID, model.StatusActive)

	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("active version of artifact %s: %w", artifactID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("active version: %w", err)
	}
	return v, nil
}

// ListVersions returns an artifact's versions ordered by semantic triple,
// optionally filtered. The tag filter is applied after scanning because
// tags live in a JSON column.
func (s *Store) ListVersions(ctx context.Context, artifactID string, f Filter) ([]*model.Version, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM versions WHERE artifact_id = ?`
	args := []any{artifactID}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Trigger != "" {
		query += ` AND trigger_kind = ?`
		args = append(args, string(f.Trigger))
	}
	query += ` ORDER BY major, minor, patch`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.Version
	for rows.Next() {
		v, err := scanVersionRows(rows)
		if err != nil {
			return nil, fmt.Errorf("list versions: scan: %w", err)
		}
		if f.Tag != "" && !v.HasTag(f.Tag) {
			continue
		}
		versions = append(versions, v)
		if f.Limit > 0 && len(versions) >= f.Limit {
			break
		}
	}
	return versions, rows.Err()
}

// Children returns the direct children of a version via the parent index.
// Lineage is one-directional; this query is the only way to walk down.
func (s *Store) Children(ctx context.Context, versionID string) ([]*model.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions WHERE parent_id = ?
		ORDER BY major, minor, patch
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	defer rows.Close()

	var versions []*model.Version
	for rows.Next() {
		v, err := scanVersionRows(rows)
		if err != nil {
			return nil, fmt.Errorf("children: scan: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// FindByTokenHash returns versions of an artifact whose input token hash
// matches. Used for dedup / no-op detection before regeneration.
func (s *Store) FindByTokenHash(ctx context.Context, artifactID, tokenHash string) ([]*model.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions WHERE artifact_id = ? AND token_hash = ?
		ORDER BY major, minor, patch
	`, artifactID, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("find by token hash: %w", err)
	}
	defer rows.Close()

	var versions []*model.Version
	for rows.Next() {
		v, err := scanVersionRows(rows)
		if err != nil {
			return nil, fmt.Errorf("find by token hash: scan: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetPolicy returns the trigger policy for an artifact.
// Artifacts without an explicit policy default to MANUAL.
func (s *Store) GetPolicy(ctx context.Context, artifactID string) (model.TriggerPolicy, error) {
	var policy string
	err := s.db.QueryRowContext(ctx, `
		SELECT policy FROM policies WHERE artifact_id = ?
	`, artifactID).Scan(&policy)
	if err == sql.ErrNoRows {
		return model.PolicyManual, nil
	}
	if err != nil {
		return "", fmt.Errorf("get policy: %w", err)
	}
	return model.TriggerPolicy(policy), nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanVersion.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row *sql.Row) (*model.Version, error) {
	return scanVersionFrom(row)
}

func scanVersionRows(rows *sql.Rows) (*model.Version, error) {
	return scanVersionFrom(rows)
}

func scanVersionFrom(sc rowScanner) (*model.Version, error) {
	var v model.Version
	var createdAt int64
	var trigger, status, tokensJSON, reqsJSON, tagsJSON string
	var parent sql.NullString

	err := sc.Scan(
		&v.ID,
		&v.ArtifactID,
		&v.SemVer.Major,
		&v.SemVer.Minor,
		&v.SemVer.Patch,
		&createdAt,
		&v.CreatedBy,
		&trigger,
		&v.TokenHash,
		&v.RequirementHash,
		&tokensJSON,
		&reqsJSON,
		&v.Code,
		&v.Aux,
		&status,
		&tagsJSON,
		&parent,
	)
	if err != nil {
		return nil, err
	}

	v.CreatedAt = time.Unix(0, createdAt).UTC()
	v.Trigger = model.Trigger(trigger)
	v.Status = model.Status(status)
	v.ParentID = parent.String

	tokens, err := unmarshalSet(tokensJSON)
	if err != nil {
		return nil, err
	}
	v.Tokens = model.TokenSet(tokens)

	reqs, err := unmarshalSet(reqsJSON)
	if err != nil {
		return nil, err
	}
	v.Requirements = model.RequirementSet(reqs)

	tags, err := unmarshalTags(tagsJSON)
	if err != nil {
		return nil, err
	}
	v.Tags = tags

	return &v, nil
}
