// Package bump maps a detected change set to a semantic-version bump kind.
package bump

import "github.com/loomkit/loom/internal/model"

// DefaultThreshold is the default change count above which a change set
// forces a major bump.
const DefaultThreshold = 5

// Classifier decides the bump kind for a change set. It is pure and does
// no I/O; the same change set always classifies the same way.
//
// The rules are applied in order, first match wins:
//
//  1. Any removed record forces major. One removed token always forces
//     major regardless of actual impact; this is deliberate policy, not
//     an approximation to be fixed silently.
//  2. More records than the threshold forces major.
//  3. One or more records (up to the threshold) is minor.
//  4. An empty change set is patch.
type Classifier struct {
	threshold int
}

// New creates a classifier with the given major-bump threshold.
// Non-positive values fall back to DefaultThreshold.
func New(threshold int) Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Classifier{threshold: threshold}
}

// Threshold returns the configured major-bump threshold.
// Used for logging and diagnostics.
func (c Classifier) Threshold() int {
	return c.threshold
}

// Classify returns the bump kind for the change set.
func (c Classifier) Classify(changes model.ChangeSet) model.BumpKind {
	for _, r := range changes {
		if r.Kind == model.ChangeRemoved {
			return model.BumpMajor
		}
	}

	switch n := len(changes); {
	case n > c.threshold:
		return model.BumpMajor
	case n > 0:
		return model.BumpMinor
	default:
		return model.BumpPatch
	}
}
