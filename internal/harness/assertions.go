package harness

import (
	"context"
	"fmt"

	"github.com/loomkit/loom/internal/model"
	"github.com/loomkit/loom/internal/store"
)

// CheckInvariants verifies the structural invariants for one artifact
// after an operation sequence. Returns the first violation found.
func (h *Harness) CheckInvariants(ctx context.Context, artifactID string) error {
	a, err := h.Store.GetArtifact(ctx, artifactID)
	if err != nil {
		return err
	}
	versions, err := h.Store.ListVersions(ctx, a.ID, store.Filter{})
	if err != nil {
		return err
	}

	if err := checkSingleActive(a, versions); err != nil {
		return err
	}
	if err := checkLineage(versions); err != nil {
		return err
	}
	return h.checkImmutable(versions)
}

// checkSingleActive: exactly one active version, and the artifact pointer
// references it.
func checkSingleActive(a *model.Artifact, versions []*model.Version) error {
	var active []*model.Version
	for _, v := range versions {
		if v.Status == model.StatusActive {
			active = append(active, v)
		}
	}
	if len(active) != 1 {
		return fmt.Errorf("artifact %s: %d active versions, want exactly 1", a.Name, len(active))
	}
	if a.CurrentVersionID != active[0].ID {
		return fmt.Errorf("artifact %s: pointer %s does not reference the active version %s",
			a.Name, a.CurrentVersionID, active[0].ID)
	}
	return nil
}

// checkLineage: every non-root version's triple is strictly greater than
// its parent's.
func checkLineage(versions []*model.Version) error {
	byID := make(map[string]*model.Version, len(versions))
	for _, v := range versions {
		byID[v.ID] = v
	}
	for _, v := range versions {
		if v.ParentID == "" {
			continue
		}
		parent, ok := byID[v.ParentID]
		if !ok {
			return fmt.Errorf("version %s: parent %s not found", v.SemVer, v.ParentID)
		}
		if !parent.SemVer.Less(v.SemVer) {
			return fmt.Errorf("version %s does not order after its parent %s", v.SemVer, parent.SemVer)
		}
	}
	return nil
}

// checkImmutable: every stored payload still matches the snapshot taken
// when the version was written.
func (h *Harness) checkImmutable(versions []*model.Version) error {
	for _, v := range versions {
		code, ok := h.Snapshot(v.ID)
		if !ok {
			return fmt.Errorf("version %s (%s): no snapshot recorded", v.SemVer, v.ID)
		}
		if code != v.Code {
			return fmt.Errorf("version %s: stored payload differs from its write-time snapshot", v.SemVer)
		}
	}
	return nil
}
