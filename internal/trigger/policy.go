// Package trigger turns detected input changes into actions: automatic
// regeneration, notification, or nothing, per artifact policy. It owns the
// bounded request queue, the worker pool draining it, the per-artifact
// cooldown, and the scheduled sweep.
package trigger

import "github.com/loomkit/loom/internal/model"

// Action is the decided response to a detected change set.
type Action string

const (
	// ActionNone takes no automatic action.
	ActionNone Action = "none"
	// ActionNotify emits a notification, no regeneration.
	ActionNotify Action = "notify"
	// ActionRegenerate enqueues an automatic regeneration.
	ActionRegenerate Action = "regenerate"
)

// Decide maps a policy and a change set to an action. Pure: no I/O, no
// clock. An empty change set never triggers anything regardless of policy.
func Decide(policy model.TriggerPolicy, changes model.ChangeSet) Action {
	if len(changes) == 0 {
		return ActionNone
	}
	switch policy {
	case model.PolicyAuto:
		return ActionRegenerate
	case model.PolicyNotify:
		return ActionNotify
	default:
		return ActionNone
	}
}
