// Package bolthook implements the runner's hook registry: a wildcard-keyed
// multimap of observers invoked around every stage transition.
package bolthook

import "context"

// Event identifies an observable point in the runner.
type Event string

const (
	EventStageInvoke              Event = "STAGE_INVOKE"
	EventStageWaitForCompleted     Event = "STAGE_WAIT_FOR_COMPLETED"
	EventGetServerIPsAfterStart    Event = "GET_SERVER_IPS_AFTER_START"
	EventCancelCurrentStage        Event = "CANCEL_CURRENT_STAGE"
	EventGetStageFlow              Event = "GET_STAGE_FLOW"
	EventGetNextValidStage         Event = "GET_NEXT_VALID_STAGE"
)

// Timing identifies when, relative to the wrapped action, a hook runs.
type Timing string

const (
	Before Timing = "BEFORE"
	During Timing = "DURING"
	After  Timing = "AFTER"
)

// Role identifies which peer an observation concerns. The zero value means
// the observation has no associated role (e.g. GetStageFlow concerns both
// peers at once).
type Role string

const (
	Publisher Role = "PUBLISHER"
	Partner   Role = "PARTNER"
)

// Key selects which hooks fire for an Observation. A nil field is a
// wildcard: it matches any value of that field on the observation. Timing is
// compared with the phase Execute is currently dispatching, so a key with a
// nil Timing fires at all three phases and a key with a set Timing fires at
// that phase only.
type Key struct {
	Event     *Event
	Timing    *Timing
	StageName *string
	Role      *Role
}

// Observation describes one concrete occurrence the registry is asked to
// dispatch hooks for.
type Observation struct {
	JobName   string
	Event     Event
	Timing    Timing
	StageName string
	HasRole   bool
	Role      Role

	// PreviousAttemptTimeout and PreviousAttemptCancelled let a hook
	// registered against EventStageWaitForCompleted tell a fresh wait from
	// a recovery wait apart: both are false on a stage's first attempt,
	// and reflect the outcome of the prior attempt on every retry.
	PreviousAttemptTimeout   bool
	PreviousAttemptCancelled bool
}

// Matches reports whether k matches o. Every non-nil field of k must equal
// the corresponding field of o; Timing additionally requires an exact match
// (wildcard Timing matches every phase).
func (k Key) Matches(o Observation) bool {
	if k.Event != nil && *k.Event != o.Event {
		return false
	}
	if k.Timing != nil && *k.Timing != o.Timing {
		return false
	}
	if k.StageName != nil && *k.StageName != o.StageName {
		return false
	}
	if k.Role != nil {
		if !o.HasRole || *k.Role != o.Role {
			return false
		}
	}
	return true
}

// Hook is a user-supplied side effect run around a stage transition. Its
// return value is never used to alter the wrapped action's outcome; a
// non-nil error is reported as described in Execute.
type Hook interface {
	Inject(ctx context.Context, o Observation) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, o Observation) error

// Inject implements Hook.
func (f HookFunc) Inject(ctx context.Context, o Observation) error { return f(ctx, o) }
