// Package diff produces deterministic diffs of generated code and of
// token/requirement input sets. Everything here is pure: identical inputs
// always yield identical output, there is no I/O, and calls are safe to
// run in parallel.
package diff

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/loomkit/loom/internal/model"
)

// requirementPrefix qualifies requirement paths in a combined change set
// so they sort after same-named token categories and stay distinguishable.
const requirementPrefix = "requirements."

// contextLines is the unified-diff context size.
const contextLines = 3

// Code returns the unified diff between two code payloads as a line
// sequence. Identical inputs yield an empty sequence. Reversing the
// arguments inverts the +/- markers.
func Code(oldCode, newCode string) []string {
	if oldCode == newCode {
		return nil
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldCode),
		B:        difflib.SplitLines(newCode),
		FromFile: "old",
		ToFile:   "new",
		Context:  contextLines,
	}

	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		// The writer is an in-memory buffer; it cannot fail.
		return nil
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// Inputs compares two pairs of token/requirement sets and returns the
// combined change records. Requirement paths are prefixed with
// "requirements."; token paths are already category-qualified
// ("colors.primary"). Order is stable: sorted by path.
//
// The change detector uses the same comparison, so a detected change set
// and a diff of the resulting versions always agree.
func Inputs(oldTokens, newTokens model.TokenSet, oldReqs, newReqs model.RequirementSet) model.ChangeSet {
	changes := CompareKeyed(oldTokens, newTokens, "")
	changes = append(changes, CompareKeyed(oldReqs, newReqs, requirementPrefix)...)

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// CompareKeyed computes per-key differences between two string maps,
// classifying each as added, removed, or modified. The prefix is
// prepended to every path.
func CompareKeyed(old, new map[string]string, prefix string) model.ChangeSet {
	var changes model.ChangeSet

	for key, oldVal := range old {
		newVal, ok := new[key]
		switch {
		case !ok:
			changes = append(changes, model.ChangeRecord{
				Path: prefix + key,
				Old:  oldVal,
				Kind: model.ChangeRemoved,
			})
		case newVal != oldVal:
			changes = append(changes, model.ChangeRecord{
				Path: prefix + key,
				Old:  oldVal,
				New:  newVal,
				Kind: model.ChangeModified,
			})
		}
	}

	for key, newVal := range new {
		if _, ok := old[key]; !ok {
			changes = append(changes, model.ChangeRecord{
				Path: prefix + key,
				New:  newVal,
				Kind: model.ChangeAdded,
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

// VersionDiff is the result of comparing two versions.
type VersionDiff struct {
	Code   []string        `json:"code"`
	Inputs model.ChangeSet `json:"inputs"`
}

// CompareVersions diffs two version snapshots, oldest first by the
// caller's convention.
func CompareVersions(a, b *model.Version) VersionDiff {
	return VersionDiff{
		Code:   Code(a.Code, b.Code),
		Inputs: Inputs(a.Tokens, b.Tokens, a.Requirements, b.Requirements),
	}
}
