package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loomkit/loom/internal/model"
)

// createTestStore creates a file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestArtifact seeds an artifact with a 1.0.0 active first version
// and returns both.
func createTestArtifact(t *testing.T, s *Store, name string) (*model.Artifact, *model.Version) {
	t.Helper()

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
		Code:            "export const Button = () => null;\n",
	}

	if err := s.CreateArtifact(context.Background(), a, v); err != nil {
		t.Fatalf("CreateArtifact() failed: %v", err)
	}
	return a, v
}

// buildChildVersion constructs an unsaved child of parent with the given triple.
func buildChildVersion(parent *model.Version, sv model.SemVer) *model.Version {
	return &model.Version{
		ID:              model.NewVersionID(),
		ArtifactID:      parent.ArtifactID,
		SemVer:          sv,
		CreatedAt:       time.Now(),
		CreatedBy:       model.SystemActor,
		Trigger:         model.TriggerTokenChange,
		TokenHash:       parent.TokenHash,
		RequirementHash: parent.RequirementHash,
		Tokens:          parent.Tokens,
		Requirements:    parent.Requirements,
		Code:            parent.Code,
		ParentID:        parent.ID,
	}
}
