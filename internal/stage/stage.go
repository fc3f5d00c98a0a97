// Package stage describes stage descriptors and stage flows: the value
// types the runner agrees on between peers and steps through.
package stage

import (
	"time"

	"github.com/compose-network/bolt/internal/boltstatus"
)

// Stage is one element of a StageFlow. It is a small, cheaply-copied value
// type: the runner patches a per-attempt copy of Timeout rather than mutate
// a shared descriptor (see Stage.WithTimeout).
type Stage struct {
	Name string

	InitializedStatus boltstatus.Status
	StartedStatus     boltstatus.Status
	CompletedStatus   boltstatus.Status
	FailedStatus      boltstatus.Status

	IsJointStage bool
	IsRetryable  bool
	Timeout      time.Duration

	previous *Stage
	next     *Stage
}

// Previous returns the preceding stage in its flow, or nil at the head.
func (s Stage) Previous() *Stage { return s.previous }

// Next returns the following stage in its flow, or nil at the tail.
func (s Stage) Next() *Stage { return s.next }

// WithTimeout returns a copy of s with Timeout replaced. Used by the runner
// to apply a per-job, per-attempt effective timeout without mutating the
// flow's canonical descriptor.
func (s Stage) WithTimeout(d time.Duration) Stage {
	s.Timeout = d
	return s
}

// EffectiveTimeout returns the smaller of the stage's declared timeout and
// an optional override (a zero or negative override means "no override").
func (s Stage) EffectiveTimeout(override time.Duration) time.Duration {
	if override > 0 && override < s.Timeout {
		return override
	}
	return s.Timeout
}

// StatusPhase classifies a status against this stage's four known statuses.
type StatusPhase int

const (
	// PhaseOther means the status does not belong to this stage at all.
	PhaseOther StatusPhase = iota
	PhaseInitialized
	PhaseStarted
	PhaseCompleted
	PhaseFailed
)

// Classify reports which phase of this stage the given status represents.
func (s Stage) Classify(status boltstatus.Status) StatusPhase {
	switch status {
	case s.InitializedStatus:
		return PhaseInitialized
	case s.StartedStatus:
		return PhaseStarted
	case s.CompletedStatus:
		return PhaseCompleted
	case s.FailedStatus:
		return PhaseFailed
	default:
		return PhaseOther
	}
}
