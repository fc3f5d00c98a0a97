package boltrunner

import (
	"context"

	"github.com/compose-network/bolt/internal/bolterr"
	"github.com/compose-network/bolt/internal/bolthook"
	"github.com/compose-network/bolt/internal/boltjob"
	"github.com/compose-network/bolt/internal/boltstatus"
	"github.com/compose-network/bolt/internal/stage"
)

// waitOutcome is the decision waitStageComplete reaches.
type waitOutcome int

const (
	waitContinue waitOutcome = iota
	waitSuccess
	waitFailure
)

// waitStageComplete polls both peers until a terminal decision is reached,
// per SPEC_FULL.md §4.1 "wait_stage_complete". previousAttemptTimeout and
// previousAttemptCancelled are forwarded to hooks only; they never change
// the decision table.
func (r *Runner) waitStageComplete(
	ctx context.Context,
	job boltjob.Job,
	publisherID, partnerID string,
	st stage.Stage,
	previousAttemptTimeout, previousAttemptCancelled bool,
) error {
	obs := bolthook.Observation{
		JobName: job.Name, Event: bolthook.EventStageWaitForCompleted, StageName: st.Name,
		PreviousAttemptTimeout:   previousAttemptTimeout,
		PreviousAttemptCancelled: previousAttemptCancelled,
	}
	r.cfg.Logger.Debug().
		Str("job", job.Name).Str("stage", st.Name).
		Bool("previous_attempt_timeout", previousAttemptTimeout).
		Bool("previous_attempt_cancelled", previousAttemptCancelled).
		Msg("wait_stage_complete")
	_, err := bolthook.Execute(ctx, job.Hooks, obs, func(ctx context.Context) (struct{}, error) {
		deadline := r.cfg.Clock.Now().Add(st.Timeout)

		for {
			pubState, err := r.publisher.UpdateInstance(ctx, publisherID)
			if err != nil {
				return struct{}{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher update_instance", nil)
			}
			partState, err := r.partner.UpdateInstance(ctx, partnerID)
			if err != nil {
				return struct{}{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "partner update_instance", nil)
			}

			switch decide(st, pubState.Status, partState.Status) {
			case waitSuccess:
				return struct{}{}, nil
			case waitFailure:
				if st.IsJointStage {
					r.cancelBoth(ctx, job, publisherID, partnerID, st)
				}
				return struct{}{}, bolterr.New(bolterr.StageFailed, "stage failed",
					bolterr.WithStatuses(st.Name, pubState.Status, partState.Status))
			}

			if !r.cfg.Clock.Now().Before(deadline) {
				if !st.IsJointStage {
					r.cancelBoth(ctx, job, publisherID, partnerID, st)
				}
				return struct{}{}, bolterr.New(bolterr.StageTimeout, "stage timed out",
					bolterr.WithStatuses(st.Name, pubState.Status, partState.Status))
			}
			if err := sleep(ctx, r.cfg.Clock, r.cfg.PollInterval); err != nil {
				return struct{}{}, err
			}
		}
	})
	return err
}

// decide applies the wait_stage_complete decision table to a pair of
// observed statuses. Deadline expiry is checked separately by the caller.
func decide(st stage.Stage, pub, part boltstatus.Status) waitOutcome {
	pubPhase := st.Classify(pub)
	partPhase := st.Classify(part)
	if pubPhase == stage.PhaseFailed || partPhase == stage.PhaseFailed {
		return waitFailure
	}
	if pubPhase == stage.PhaseCompleted && partPhase == stage.PhaseCompleted {
		return waitSuccess
	}
	return waitContinue
}

// cancelBoth invokes cancel_current_stage on both peers, tolerating either
// side's failure (cancel is best-effort and idempotent per the peer client
// contract).
func (r *Runner) cancelBoth(ctx context.Context, job boltjob.Job, publisherID, partnerID string, st stage.Stage) {
	obs := bolthook.Observation{JobName: job.Name, Event: bolthook.EventCancelCurrentStage, StageName: st.Name}
	_, _ = bolthook.Execute(ctx, job.Hooks, obs, func(ctx context.Context) (struct{}, error) {
		if err := r.publisher.CancelCurrentStage(ctx, publisherID); err != nil {
			r.cfg.Logger.Warn().Err(err).Str("job", job.Name).Str("stage", st.Name).Msg("publisher cancel_current_stage failed")
		}
		if err := r.partner.CancelCurrentStage(ctx, partnerID); err != nil {
			r.cfg.Logger.Warn().Err(err).Str("job", job.Name).Str("stage", st.Name).Msg("partner cancel_current_stage failed")
		}
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.StageCancels.WithLabelValues(st.Name).Inc()
		}
		return struct{}{}, nil
	})
}
