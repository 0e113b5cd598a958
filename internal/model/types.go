package model

import (
	"fmt"
	"time"
)

// TokenSet maps dotted design-token paths ("colors.primary") to values.
type TokenSet map[string]string

// RequirementSet maps dotted requirement paths ("props.variant") to values.
type RequirementSet map[string]string

// Status is the lifecycle state of a Version.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// Trigger records what caused a Version to be created.
type Trigger string

const (
	TriggerManual         Trigger = "manual"
	TriggerTokenChange    Trigger = "token_change"
	TriggerDesignChange   Trigger = "design_change"
	TriggerSchedule       Trigger = "schedule"
	TriggerRollback       Trigger = "rollback"
	TriggerManualRollback Trigger = "manual_rollback"
)

// Valid reports whether t is a known trigger kind.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerManual, TriggerTokenChange, TriggerDesignChange,
		TriggerSchedule, TriggerRollback, TriggerManualRollback:
		return true
	}
	return false
}

// TriggerPolicy is the per-artifact regeneration policy.
type TriggerPolicy string

const (
	// PolicyAuto enqueues regeneration for any detected change.
	PolicyAuto TriggerPolicy = "AUTO"
	// PolicyNotify emits a notification but never regenerates automatically.
	PolicyNotify TriggerPolicy = "NOTIFY"
	// PolicyManual takes no automatic action.
	PolicyManual TriggerPolicy = "MANUAL"
)

// Valid reports whether p is a known policy.
func (p TriggerPolicy) Valid() bool {
	switch p {
	case PolicyAuto, PolicyNotify, PolicyManual:
		return true
	}
	return false
}

// SystemActor is the creator recorded on versions not made by a human.
const SystemActor = "system"

// Artifact is the logical generated entity being versioned.
// CurrentVersionID is the exclusively-owned pointer to the single active
// Version; it is only moved atomically with a version insert.
type Artifact struct {
	ID               string
	Name             string
	Kind             string // artifact type/category, e.g. "component/button"
	CurrentVersionID string
	CreatedAt        time.Time
}

// Version is an immutable snapshot of an artifact's inputs and generated
// output. A Version is written once; only Status and Tags may change in
// place afterwards.
type Version struct {
	ID              string
	ArtifactID      string
	SemVer          SemVer
	CreatedAt       time.Time
	CreatedBy       string // human id or SystemActor
	Trigger         Trigger
	TokenHash       string
	RequirementHash string
	Tokens          TokenSet
	Requirements    RequirementSet
	Code            string
	Aux             string // optional auxiliary payload (stories, docs, ...)
	Status          Status
	Tags            []string
	ParentID        string // empty for a lineage root
}

// HasTag reports whether the version carries the given tag.
func (v *Version) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ChangeKind classifies a single detected input difference.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// ChangeRecord is one detected input difference.
type ChangeRecord struct {
	Path string     // dotted path, e.g. "colors.primary"
	Old  string     // previous value ("" for added)
	New  string     // new value ("" for removed)
	Kind ChangeKind
}

// ChangeSet is an ordered collection of detected input differences.
// Producers guarantee stable ordering by path so diffs are reproducible.
type ChangeSet []ChangeRecord

// Summary renders a short human-readable description of the change set,
// used for notifications and logs.
func (cs ChangeSet) Summary() string {
	if len(cs) == 0 {
		return "no changes"
	}
	var added, removed, modified int
	for _, r := range cs {
		switch r.Kind {
		case ChangeAdded:
			added++
		case ChangeRemoved:
			removed++
		case ChangeModified:
			modified++
		}
	}
	return fmt.Sprintf("%d change(s): %d added, %d removed, %d modified",
		len(cs), added, removed, modified)
}
