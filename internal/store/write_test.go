package store

import (
	"context"
	"errors"
	"testing"

	"github.com/loomkit/loom/internal/model"
)

func TestCreateArtifact_SetsPointerAndActive(t *testing.T) {
	s := createTestStore(t)
	a, v := createTestArtifact(t, s, "Button")

	got, err := s.GetArtifact(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetArtifact() failed: %v", err)
	}
	if got.CurrentVersionID != v.ID {
		t.Errorf("current_version_id = %q, want %q", got.CurrentVersionID, v.ID)
	}

	active, err := s.ActiveVersion(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("ActiveVersion() failed: %v", err)
	}
	if active.ID != v.ID {
		t.Errorf("active version = %q, want %q", active.ID, v.ID)
	}
	if active.Status != model.StatusActive {
		t.Errorf("status = %q, want active", active.Status)
	}
}

func TestAppendVersion_MovesPointerAndArchivesPrevious(t *testing.T) {
	s := createTestStore(t)
	a, v1 := createTestArtifact(t, s, "Button")

	v2 := buildChildVersion(v1, model.SemVer{Major: 1, Minor: 1})
	if err := s.AppendVersion(context.Background(), v2, v1.ID); err != nil {
		t.Fatalf("AppendVersion() failed: %v", err)
	}

	got, err := s.GetArtifact(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetArtifact() failed: %v", err)
	}
	if got.CurrentVersionID != v2.ID {
		t.Errorf("pointer = %q, want %q", got.CurrentVersionID, v2.ID)
	}

	old, err := s.GetVersion(context.Background(), v1.ID)
	if err != nil {
		t.Fatalf("GetVersion(v1) failed: %v", err)
	}
	if old.Status != model.StatusArchived {
		t.Errorf("previous version status = %q, want archived", old.Status)
	}

	active, err := s.ActiveVersion(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("ActiveVersion() failed: %v", err)
	}
	if active.ID != v2.ID {
		t.Errorf("active = %q, want %q", active.ID, v2.ID)
	}
}

func TestAppendVersion_CASConflictLeavesStoreUntouched(t *testing.T) {
	s := createTestStore(t)
	a, v1 := createTestArtifact(t, s, "Button")

	// Stale expectation: pretend the pointer is still at a version that
	// was never current.
	v2 := buildChildVersion(v1, model.SemVer{Major: 1, Minor: 1})
	err := s.AppendVersion(context.Background(), v2, "someone-elses-version")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("AppendVersion() error = %v, want ErrConflict", err)
	}

	// Nothing changed: pointer intact, new version absent.
	got, err := s.GetArtifact(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetArtifact() failed: %v", err)
	}
	if got.CurrentVersionID != v1.ID {
		t.Errorf("pointer moved to %q on conflict", got.CurrentVersionID)
	}
	if _, err := s.GetVersion(context.Background(), v2.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("conflicting version was persisted: err = %v", err)
	}
}

func TestAppendVersion_UnknownArtifact(t *testing.T) {
	s := createTestStore(t)
	_, v1 := createTestArtifact(t, s, "Button")

	orphan := buildChildVersion(v1, model.SemVer{Major: 1, Minor: 1})
	orphan.ArtifactID = "no-such-artifact"

	err := s.AppendVersion(context.Background(), orphan, v1.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendVersion() error = %v, want ErrNotFound", err)
	}
}

func TestAppendVersion_DuplicateTripleRejected(t *testing.T) {
	s := createTestStore(t)
	_, v1 := createTestArtifact(t, s, "Button")

	dup := buildChildVersion(v1, v1.SemVer) // same (artifact, 1.0.0)
	err := s.AppendVersion(context.Background(), dup, v1.ID)
	if err == nil {
		t.Fatal("AppendVersion() accepted a duplicate semantic triple")
	}
}

func TestUpdateStatus_AndTags(t *testing.T) {
	s := createTestStore(t)
	_, v1 := createTestArtifact(t, s, "Button")

	v2 := buildChildVersion(v1, model.SemVer{Major: 1, Minor: 1})
	if err := s.AppendVersion(context.Background(), v2, v1.ID); err != nil {
		t.Fatalf("AppendVersion() failed: %v", err)
	}

	if err := s.AddTags(context.Background(), v2.ID, "rollback", "approved", "rollback"); err != nil {
		t.Fatalf("AddTags() failed: %v", err)
	}

	got, err := s.GetVersion(context.Background(), v2.ID)
	if err != nil {
		t.Fatalf("GetVersion() failed: %v", err)
	}
	if !got.HasTag("rollback") || !got.HasTag("approved") {
		t.Errorf("tags = %v, want rollback and approved", got.Tags)
	}
	if len(got.Tags) != 2 {
		t.Errorf("duplicate tag stored: %v", got.Tags)
	}

	if err := s.UpdateStatus(context.Background(), v1.ID, model.StatusDraft); err != nil {
		t.Fatalf("UpdateStatus() failed: %v", err)
	}
	old, err := s.GetVersion(context.Background(), v1.ID)
	if err != nil {
		t.Fatalf("GetVersion() failed: %v", err)
	}
	if old.Status != model.StatusDraft {
		t.Errorf("status = %q, want draft", old.Status)
	}
}

func TestSetPolicy_UpsertAndDefault(t *testing.T) {
	s := createTestStore(t)
	a, _ := createTestArtifact(t, s, "Button")
	ctx := context.Background()

	// Default is MANUAL when unset.
	p, err := s.GetPolicy(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetPolicy() failed: %v", err)
	}
	if p != model.PolicyManual {
		t.Errorf("default policy = %q, want MANUAL", p)
	}

	if err := s.SetPolicy(ctx, a.ID, model.PolicyAuto); err != nil {
		t.Fatalf("SetPolicy() failed: %v", err)
	}
	if err := s.SetPolicy(ctx, a.ID, model.PolicyNotify); err != nil {
		t.Fatalf("SetPolicy() upsert failed: %v", err)
	}

	p, err = s.GetPolicy(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetPolicy() failed: %v", err)
	}
	if p != model.PolicyNotify {
		t.Errorf("policy = %q, want NOTIFY", p)
	}

	if err := s.SetPolicy(ctx, "nope", model.PolicyAuto); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPolicy(unknown) error = %v, want ErrNotFound", err)
	}
}
