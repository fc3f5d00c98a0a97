package boltrunner

import (
	"context"
	"time"

	"k8s.io/utils/clock"

	"github.com/compose-network/bolt/internal/bolterr"
	"github.com/compose-network/bolt/internal/bolthook"
	"github.com/compose-network/bolt/internal/boltclient"
	"github.com/compose-network/bolt/internal/boltjob"
	"github.com/compose-network/bolt/internal/stage"
)

// runNextStage executes one stage once, without retry logic, per
// SPEC_FULL.md §4.1 "run_next_stage". It folds the distilled spec's three
// cases (both sides run a joint stage; only the Partner runs a joint stage
// because the Publisher already ran it; a non-joint stage) into one rule:
// invoke the Publisher first if it still needs to run, then — if the
// Partner still needs to run — fetch the Publisher's server context when
// the stage is joint before invoking the Partner.
func (r *Runner) runNextStage(ctx context.Context, job boltjob.Job, publisherID, partnerID string, st stage.Stage) error {
	obs := bolthook.Observation{JobName: job.Name, Event: bolthook.EventStageInvoke, StageName: st.Name}
	_, err := bolthook.Execute(ctx, job.Hooks, obs, func(ctx context.Context) (struct{}, error) {
		pubNeeded, err := r.publisher.ShouldInvokeStage(ctx, publisherID, st)
		if err != nil {
			return struct{}{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher should_invoke_stage", nil)
		}
		partNeeded, err := r.partner.ShouldInvokeStage(ctx, partnerID, st)
		if err != nil {
			return struct{}{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "partner should_invoke_stage", nil)
		}

		if pubNeeded {
			pubObs := obs
			pubObs.HasRole, pubObs.Role = true, bolthook.Publisher
			if _, err := bolthook.Execute(ctx, job.Hooks, pubObs, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, r.publisher.RunStage(ctx, publisherID, st, boltclient.ServerContext{})
			}); err != nil {
				return struct{}{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher run_stage", nil)
			}
		}

		if !partNeeded {
			return struct{}{}, nil
		}

		var serverCtx boltclient.ServerContext
		if st.IsJointStage {
			sc, err := r.getPublisherState(ctx, job, publisherID, st)
			if err != nil {
				return struct{}{}, err
			}
			serverCtx = sc
		}

		partObs := obs
		partObs.HasRole, partObs.Role = true, bolthook.Partner
		if _, err := bolthook.Execute(ctx, job.Hooks, partObs, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.partner.RunStage(ctx, partnerID, st, serverCtx)
		}); err != nil {
			return struct{}{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "partner run_stage", nil)
		}
		return struct{}{}, nil
	})
	return err
}

// getPublisherState polls the Publisher until it reaches st.StartedStatus
// (exposing its server context) or a terminal failure/timeout, per
// SPEC_FULL.md §4.1 "_get_publisher_state".
func (r *Runner) getPublisherState(ctx context.Context, job boltjob.Job, publisherID string, st stage.Stage) (boltclient.ServerContext, error) {
	obs := bolthook.Observation{
		JobName: job.Name, Event: bolthook.EventGetServerIPsAfterStart, StageName: st.Name,
		HasRole: true, Role: bolthook.Publisher,
	}
	return bolthook.Execute(ctx, job.Hooks, obs, func(ctx context.Context) (boltclient.ServerContext, error) {
		deadline := r.cfg.Clock.Now().Add(st.Timeout)
		for {
			state, err := r.publisher.UpdateInstance(ctx, publisherID)
			if err != nil {
				return boltclient.ServerContext{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher update_instance", nil)
			}

			switch st.Classify(state.Status) {
			case stage.PhaseStarted:
				return boltclient.ServerContext{
					ServerIPs:       state.ServerIPs,
					CACertificate:   state.CACertificate,
					ServerHostnames: state.ServerHostnames,
				}, nil
			case stage.PhaseFailed, stage.PhaseCompleted:
				return boltclient.ServerContext{}, bolterr.New(bolterr.StageFailed,
					"publisher reached a terminal state without ever exposing server context",
					bolterr.WithStatuses(st.Name, state.Status, ""))
			}

			if !r.cfg.Clock.Now().Before(deadline) {
				return boltclient.ServerContext{}, bolterr.New(bolterr.StageTimeout,
					"timed out waiting for publisher server context", bolterr.WithStatuses(st.Name, state.Status, ""))
			}
			if err := sleep(ctx, r.cfg.Clock, r.cfg.PollInterval); err != nil {
				return boltclient.ServerContext{}, err
			}
		}
	})
}

// sleep blocks for d on clk, or returns ctx.Err() if ctx is done first.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	t := clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
