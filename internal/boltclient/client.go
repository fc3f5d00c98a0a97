// Package boltclient declares the narrow contract the runner uses to talk
// to one side (Publisher or Partner) of a job. Concrete implementations are
// external collaborators; the runner only ever depends on this interface.
package boltclient

import (
	"context"

	"github.com/compose-network/bolt/internal/boltstate"
	"github.com/compose-network/bolt/internal/stage"
)

// Client is the peer-client surface the runner consumes. Implementations
// must be safe for concurrent use by multiple jobs.
type Client interface {
	// GetOrCreateInstance is idempotent: given equivalent args it returns an
	// existing instance id rather than creating a duplicate.
	GetOrCreateInstance(ctx context.Context, args Args) (instanceID string, err error)

	// UpdateInstance is a side-effect-free read of the current remote state.
	UpdateInstance(ctx context.Context, instanceID string) (boltstate.State, error)

	// RunStage kicks off a stage. It returns once the remote side has
	// accepted the request, not once the stage has completed. serverCtx is
	// the zero value for a non-joint stage or when this peer is the
	// Publisher.
	RunStage(ctx context.Context, instanceID string, st stage.Stage, serverCtx ServerContext) error

	// CancelCurrentStage is idempotent: a no-op if the instance is not
	// currently in a cancellable state.
	CancelCurrentStage(ctx context.Context, instanceID string) error

	// GetValidStage reports this peer's own opinion of the next stage to
	// run within flow, or (Stage{}, false) if it considers the job done.
	GetValidStage(ctx context.Context, instanceID string, flow stage.Flow) (stage.Stage, bool, error)

	// GetStageFlow reports this peer's own opinion of the flow in effect,
	// or (Flow{}, false) if it has none yet.
	GetStageFlow(ctx context.Context, instanceID string) (stage.Flow, bool, error)

	// ShouldInvokeStage reports false when this peer already completed st
	// (one-sided failure recovery: don't re-run a stage the peer already
	// finished).
	ShouldInvokeStage(ctx context.Context, instanceID string, st stage.Stage) (bool, error)

	// HasFeature is a capability probe.
	HasFeature(ctx context.Context, instanceID string, feature string) (bool, error)
}

// Args is the opaque, job-side argument bag passed to GetOrCreateInstance.
// The runner never inspects its contents.
type Args map[string]string

// ServerContext carries the Publisher's post-start connection material into
// a joint stage's Partner invocation. It is the zero value for a non-joint
// stage.
type ServerContext struct {
	ServerIPs       []string
	CACertificate   string
	ServerHostnames []string
}

// IsZero reports whether c carries no server context.
func (c ServerContext) IsZero() bool {
	return len(c.ServerIPs) == 0 && c.CACertificate == "" && len(c.ServerHostnames) == 0
}
