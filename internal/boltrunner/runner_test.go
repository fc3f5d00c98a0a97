package boltrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"

	"github.com/compose-network/bolt/internal/bolterr"
	"github.com/compose-network/bolt/internal/bolthook"
	"github.com/compose-network/bolt/internal/boltclient"
	"github.com/compose-network/bolt/internal/boltjob"
	"github.com/compose-network/bolt/internal/boltstate"
	"github.com/compose-network/bolt/internal/stage"
	"github.com/compose-network/bolt/internal/stageflows"
)

// --- test doubles ---

// stubPeer is a scriptable boltclient.Client: each UpdateInstance call
// advances through a fixed sequence of states and GetValidStage always
// answers consistently with the most recently served state, mirroring the
// teacher's stubSCPInstance approach (x/scp-instance-supervisor/supervisor_test.go).
type stubPeer struct {
	mu sync.Mutex

	flow        stage.Flow
	states      []boltstate.State
	stateIdx    int
	lastServed  boltstate.State
	runCalls    []stage.Stage
	serverCtxs  []boltclient.ServerContext
	cancelCalls int
	skipStage   string // ShouldInvokeStage returns false for this stage name
	runErr      error
}

func newStubPeer(flow stage.Flow, states ...boltstate.State) *stubPeer {
	p := &stubPeer{flow: flow, states: states}
	if len(states) > 0 {
		p.lastServed = states[0]
	}
	return p
}

func (p *stubPeer) GetOrCreateInstance(context.Context, boltclient.Args) (string, error) {
	return "instance-1", nil
}

func (p *stubPeer) UpdateInstance(context.Context, string) (boltstate.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return boltstate.State{}, nil
	}
	idx := p.stateIdx
	if idx >= len(p.states) {
		idx = len(p.states) - 1
	} else {
		p.stateIdx++
	}
	p.lastServed = p.states[idx]
	return p.lastServed, nil
}

func (p *stubPeer) RunStage(_ context.Context, _ string, st stage.Stage, sc boltclient.ServerContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runCalls = append(p.runCalls, st)
	p.serverCtxs = append(p.serverCtxs, sc)
	return p.runErr
}

func (p *stubPeer) CancelCurrentStage(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelCalls++
	return nil
}

// GetValidStage derives its answer from the state most recently returned by
// UpdateInstance, so a single resolution round sees a consistent picture of
// the instance (matching how a real peer client would answer both queries
// against the same underlying row).
func (p *stubPeer) GetValidStage(_ context.Context, _ string, flow stage.Flow) (stage.Stage, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, phase, ok := flow.Locate(p.lastServed.Status)
	if !ok {
		return flow.First(), true, nil
	}
	if phase == stage.PhaseCompleted {
		if n := st.Next(); n != nil {
			return *n, true, nil
		}
		return stage.Stage{}, false, nil
	}
	return st, true, nil
}

func (p *stubPeer) GetStageFlow(context.Context, string) (stage.Flow, bool, error) {
	return p.flow, true, nil
}

func (p *stubPeer) ShouldInvokeStage(_ context.Context, _ string, st stage.Stage) (bool, error) {
	return st.Name != p.skipStage, nil
}

func (p *stubPeer) HasFeature(context.Context, string, string) (bool, error) {
	return false, nil
}

func (p *stubPeer) runCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runCalls)
}

func (p *stubPeer) cancelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelCalls
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.Clock = clock.RealClock{}
	return cfg
}

// --- S1/S2: joint vs non-joint server-context propagation ---

func TestRunAsync_JointStageCarriesServerContext(t *testing.T) {
	flow := stageflows.DummyJointStage()
	st := flow.First()

	pub := newStubPeer(flow,
		boltstate.State{Status: stageflows.DummyCreated},
		boltstate.State{Status: st.StartedStatus, ServerIPs: []string{"1.1.1.0", "1.1.1.1"}, CACertificate: "test_ca", ServerHostnames: []string{"node0.test", "node1.test"}},
		boltstate.State{Status: st.CompletedStatus, ServerIPs: []string{"1.1.1.0", "1.1.1.1"}, CACertificate: "test_ca", ServerHostnames: []string{"node0.test", "node1.test"}},
	)
	part := newStubPeer(flow,
		boltstate.State{Status: stageflows.DummyCreated},
		boltstate.State{Status: st.CompletedStatus},
	)

	r := New(pub, part, testConfig())
	summaries := r.RunAsync(context.Background(), []boltjob.Job{{Name: "job1"}})

	require.Len(t, summaries, 1)
	require.True(t, summaries[0].IsSuccess, "%v", summaries[0].Err)
	require.Len(t, part.runCalls, 1)
	require.Equal(t, []string{"1.1.1.0", "1.1.1.1"}, part.serverCtxs[0].ServerIPs)
	require.Equal(t, "test_ca", part.serverCtxs[0].CACertificate)
}

func TestRunAsync_NonJointStageCarriesNoServerContext(t *testing.T) {
	flow := stageflows.DummyNonJointStage()
	st := flow.First()

	pub := newStubPeer(flow,
		boltstate.State{Status: stageflows.DummyCreated},
		boltstate.State{Status: st.CompletedStatus},
	)
	part := newStubPeer(flow,
		boltstate.State{Status: stageflows.DummyCreated},
		boltstate.State{Status: st.CompletedStatus},
	)

	r := New(pub, part, testConfig())
	summaries := r.RunAsync(context.Background(), []boltjob.Job{{Name: "job1"}})

	require.True(t, summaries[0].IsSuccess, "%v", summaries[0].Err)
	require.Len(t, part.runCalls, 1)
	require.True(t, part.serverCtxs[0].IsZero())
}

// --- S3/S4: retry budget ---

func TestRunNextStage_RetryableExhaustsBudget(t *testing.T) {
	flow := stageflows.DummyRetryableStage()
	pub := newStubPeer(flow, boltstate.State{Status: stageflows.DummyCreated})
	pub.runErr = errors.New("boom")
	part := newStubPeer(flow, boltstate.State{Status: stageflows.DummyCreated})

	cfg := testConfig()
	cfg.NumTries = 2
	r := New(pub, part, cfg)
	summaries := r.RunAsync(context.Background(), []boltjob.Job{{Name: "job1"}})

	require.False(t, summaries[0].IsSuccess)
	require.Equal(t, 2, pub.runCallCount())
}

func TestRunNextStage_NonRetryableSingleAttempt(t *testing.T) {
	flow := stageflows.DummyNonRetryableStage()
	pub := newStubPeer(flow, boltstate.State{Status: stageflows.DummyCreated})
	pub.runErr = errors.New("boom")
	part := newStubPeer(flow, boltstate.State{Status: stageflows.DummyCreated})

	r := New(pub, part, testConfig())
	summaries := r.RunAsync(context.Background(), []boltjob.Job{{Name: "job1"}})

	require.False(t, summaries[0].IsSuccess)
	require.Equal(t, 1, pub.runCallCount())
}

// --- S5: stage timeout cancels both peers ---

func TestWaitStageComplete_NonJointTimeoutCancelsOnce(t *testing.T) {
	flow := stageflows.DummyNonJointStage()
	st := flow.First().WithTimeout(5 * time.Millisecond)

	// Both peers remain stuck at "started" forever: wait_stage_complete
	// must time out and cancel both exactly once.
	pub := &stubPeer{flow: flow, states: []boltstate.State{{Status: st.StartedStatus}}}
	part := &stubPeer{flow: flow, states: []boltstate.State{{Status: st.StartedStatus}}}

	cfg := testConfig()
	r := New(pub, part, cfg)

	err := r.waitStageComplete(context.Background(), boltjob.Job{Name: "job1"}, "p1", "p2", st, false, false)
	require.Error(t, err)
	kind, ok := bolterr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, bolterr.StageTimeout, kind)
	require.Equal(t, 1, pub.cancelCount())
	require.Equal(t, 1, part.cancelCount())
}

// --- S6: joint-stage retry reuses publisher state ---

func TestRunNextStage_JointRetryReusesPublisherState(t *testing.T) {
	flow := stageflows.DummyJointStage()
	st := flow.First()

	// A retry of a joint stage finds should_invoke_stage already false for
	// the Publisher (it is still in the stage's started status from a prior
	// attempt); run_next_stage must
	// still fetch its server context via _get_publisher_state without
	// re-invoking publisher.run_stage.
	pub := newStubPeer(flow,
		boltstate.State{Status: st.StartedStatus, ServerIPs: []string{"1.1.1.1"}, CACertificate: "test_cert", ServerHostnames: []string{"domain1.test"}},
	)
	pub.skipStage = st.Name

	part := newStubPeer(flow, boltstate.State{Status: stageflows.DummyCreated})

	r := New(pub, part, testConfig())
	job := boltjob.Job{Name: "job1"}

	err := r.runNextStage(context.Background(), job, "p1", "p2", st)
	require.NoError(t, err)
	require.Len(t, pub.runCalls, 0, "publisher.run_stage must not be re-invoked on a joint-stage retry")
	require.Len(t, part.runCalls, 1)
	require.Equal(t, []string{"1.1.1.1"}, part.serverCtxs[0].ServerIPs)
	require.Equal(t, "test_cert", part.serverCtxs[0].CACertificate)
	require.Equal(t, []string{"domain1.test"}, part.serverCtxs[0].ServerHostnames)
}

// --- joint-timeout driver-side cancel (counterpart to non-joint's
// wait_stage_complete-side cancel, TestWaitStageComplete_NonJointTimeoutCancelsOnce) ---

func TestRunStageWithRetry_JointTimeoutCancelsOnce(t *testing.T) {
	flow := stageflows.DummyJointStage()
	st := flow.First().WithTimeout(5 * time.Millisecond)

	// Both peers remain stuck at "started" forever: a joint stage's timeout
	// cancel is the driver's responsibility (runStageWithRetry), not
	// wait_stage_complete's, so a single exhausted attempt must still
	// produce exactly one cancel per peer.
	pub := &stubPeer{flow: flow, states: []boltstate.State{{Status: st.StartedStatus}}}
	part := &stubPeer{flow: flow, states: []boltstate.State{{Status: st.StartedStatus}}}

	cfg := testConfig()
	cfg.NumTries = 1
	r := New(pub, part, cfg)
	job := boltjob.Job{Name: "job1"}

	err := r.runStageWithRetry(context.Background(), job, "p1", "p2", st, 1, r.cfg.Logger)
	require.Error(t, err)
	kind, ok := bolterr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, bolterr.StageTimeout, kind)
	require.Equal(t, 1, pub.cancelCount())
	require.Equal(t, 1, part.cancelCount())
}

// --- universal property 5: joint failure cancels both peers ---

func TestWaitStageComplete_JointFailureCancelsOnce(t *testing.T) {
	flow := stageflows.DummyJointStage()
	st := flow.First()

	pub := newStubPeer(flow, boltstate.State{Status: st.FailedStatus})
	part := newStubPeer(flow, boltstate.State{Status: st.StartedStatus})

	r := New(pub, part, testConfig())

	err := r.waitStageComplete(context.Background(), boltjob.Job{Name: "job1"}, "p1", "p2", st, false, false)
	require.Error(t, err)
	kind, ok := bolterr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, bolterr.StageFailed, kind)
	require.Equal(t, 1, pub.cancelCount())
	require.Equal(t, 1, part.cancelCount())
}

// --- S7: one-sided skip ---

func TestRunNextStage_OneSidedSkip(t *testing.T) {
	flow := stageflows.DummyNonJointStage()
	st := flow.First()

	pub := newStubPeer(flow,
		boltstate.State{Status: stageflows.DummyCreated},
		boltstate.State{Status: st.CompletedStatus},
	)
	part := newStubPeer(flow,
		boltstate.State{Status: st.CompletedStatus}, // already completed
	)
	part.skipStage = st.Name

	r := New(pub, part, testConfig())
	job := boltjob.Job{Name: "job1"}

	err := r.runNextStage(context.Background(), job, "p1", "p2", st)
	require.NoError(t, err)
	require.Len(t, pub.runCalls, 1)
	require.Len(t, part.runCalls, 0)
}

// --- S8: flow incompatibility ---

func TestGetStageFlow_Incompatible(t *testing.T) {
	pub := newStubPeer(stageflows.Default())
	part := newStubPeer(stageflows.DummyNonJointStage())

	r := New(pub, part, testConfig())
	_, err := r.getStageFlow(context.Background(), boltjob.Job{Name: "job1"}, "p1", "p2")
	require.Error(t, err)
	kind, ok := bolterr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, bolterr.IncompatibleStage, kind)
}

// --- hook fan-out ---

type countingHook struct {
	mu    sync.Mutex
	count int
}

func (h *countingHook) Inject(context.Context, bolthook.Observation) error {
	h.mu.Lock()
	h.count++
	h.mu.Unlock()
	return nil
}

func (h *countingHook) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func TestHooks_WildcardFiresAtEveryTiming(t *testing.T) {
	flow := stageflows.DummyNonJointStage()
	st := flow.First()

	pub := newStubPeer(flow,
		boltstate.State{Status: stageflows.DummyCreated},
		boltstate.State{Status: st.CompletedStatus},
	)
	part := newStubPeer(flow,
		boltstate.State{Status: stageflows.DummyCreated},
		boltstate.State{Status: st.CompletedStatus},
	)

	hook := &countingHook{}
	registry := bolthook.NewRegistry()
	registry.Register(bolthook.Key{}, hook)

	r := New(pub, part, testConfig())
	job := boltjob.Job{Name: "job1", Hooks: registry}

	err := r.runNextStage(context.Background(), job, "p1", "p2", st)
	require.NoError(t, err)
	// A wildcard key matches every event at every timing: the outer
	// STAGE_INVOKE wrap (3) plus the per-role RunStage wraps for both
	// publisher and partner (3 each) = 9.
	require.Equal(t, 9, hook.Count())
}
