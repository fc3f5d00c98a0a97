package stage

import "github.com/compose-network/bolt/internal/boltstatus"

// Flow is an ordered, finite sequence of stages. It is built once (see
// internal/stageflows) and never mutated; Locate, ByName and Equal are the
// operations the runner uses.
type Flow struct {
	Name   string
	stages []Stage
}

// NewFlow links stages into a flow, wiring each stage's Previous/Next.
func NewFlow(name string, stages ...Stage) Flow {
	linked := make([]Stage, len(stages))
	copy(linked, stages)
	for i := range linked {
		if i > 0 {
			linked[i].previous = &linked[i-1]
		}
		if i < len(linked)-1 {
			linked[i].next = &linked[i+1]
		}
	}
	return Flow{Name: name, stages: linked}
}

// Stages returns the flow's stages in order.
func (f Flow) Stages() []Stage {
	out := make([]Stage, len(f.stages))
	copy(out, f.stages)
	return out
}

// First returns the flow's first stage. Panics on an empty flow, which is
// never constructed by this package.
func (f Flow) First() Stage { return f.stages[0] }

// ByName returns the stage with the given name, if present.
func (f Flow) ByName(name string) (Stage, bool) {
	for _, s := range f.stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Equal reports whether two flows describe the same stage sequence by name.
// Two peers are considered to agree on a flow when Equal holds, even if the
// Stage values themselves differ in timeout overrides applied elsewhere.
func (f Flow) Equal(other Flow) bool {
	if len(f.stages) != len(other.stages) {
		return false
	}
	for i := range f.stages {
		if f.stages[i].Name != other.stages[i].Name {
			return false
		}
	}
	return true
}

// Locate finds the stage owning the given status and reports which phase of
// that stage it represents. Exploits the disjoint-statuses invariant: a
// status belongs to at most one stage within a well-formed flow.
func (f Flow) Locate(status boltstatus.Status) (Stage, StatusPhase, bool) {
	for _, s := range f.stages {
		if phase := s.Classify(status); phase != PhaseOther {
			return s, phase, true
		}
	}
	return Stage{}, PhaseOther, false
}

// IndexOf returns the position of a stage (by name) within the flow, or -1.
func (f Flow) IndexOf(name string) int {
	for i, s := range f.stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}
