package boltrunner

import (
	"context"

	"github.com/compose-network/bolt/internal/bolterr"
	"github.com/compose-network/bolt/internal/bolthook"
	"github.com/compose-network/bolt/internal/boltjob"
	"github.com/compose-network/bolt/internal/boltstatus"
	"github.com/compose-network/bolt/internal/stage"
)

// getStageFlow resolves the flow to run for job by asking both peers their
// opinion and reconciling, per SPEC_FULL.md §4.1 "get_stage_flow".
func (r *Runner) getStageFlow(ctx context.Context, job boltjob.Job, publisherID, partnerID string) (stage.Flow, error) {
	obs := bolthook.Observation{JobName: job.Name, Event: bolthook.EventGetStageFlow}
	return bolthook.Execute(ctx, job.Hooks, obs, func(ctx context.Context) (stage.Flow, error) {
		pubFlow, pubOK, err := r.publisher.GetStageFlow(ctx, publisherID)
		if err != nil {
			return stage.Flow{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher get_stage_flow", nil)
		}
		partFlow, partOK, err := r.partner.GetStageFlow(ctx, partnerID)
		if err != nil {
			return stage.Flow{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "partner get_stage_flow", nil)
		}

		var flow stage.Flow
		switch {
		case pubOK && partOK && pubFlow.Equal(partFlow):
			flow = pubFlow
		case pubOK && !partOK:
			flow = pubFlow
		case partOK && !pubOK:
			flow = partFlow
		default:
			return stage.Flow{}, bolterr.New(bolterr.IncompatibleStage,
				"publisher and partner disagree on stage flow", nil)
		}

		if job.FinalStage != "" {
			if _, ok := flow.ByName(job.FinalStage); !ok {
				return stage.Flow{}, bolterr.New(bolterr.IncompatibleStage,
					"job final_stage is not part of the agreed stage flow", nil)
			}
		}
		return flow, nil
	})
}

// getNextValidStage resolves the next stage to run, per SPEC_FULL.md §4.1
// "get_next_valid_stage". Returns (stage, false, nil) when the job is done.
func (r *Runner) getNextValidStage(ctx context.Context, job boltjob.Job, flow stage.Flow, publisherID, partnerID string) (stage.Stage, bool, error) {
	obs := bolthook.Observation{JobName: job.Name, Event: bolthook.EventGetNextValidStage}
	type result struct {
		stage stage.Stage
		ok    bool
	}
	res, err := bolthook.Execute(ctx, job.Hooks, obs, func(ctx context.Context) (result, error) {
		pubState, err := r.publisher.UpdateInstance(ctx, publisherID)
		if err != nil {
			return result{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher update_instance", nil)
		}
		partState, err := r.partner.UpdateInstance(ctx, partnerID)
		if err != nil {
			return result{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "partner update_instance", nil)
		}

		pubNext, pubHasNext, err := r.publisher.GetValidStage(ctx, publisherID, flow)
		if err != nil {
			return result{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher get_valid_stage", nil)
		}
		partNext, partHasNext, err := r.partner.GetValidStage(ctx, partnerID, flow)
		if err != nil {
			return result{}, bolterr.Wrap(bolterr.PeerUnavailable, err, "partner get_valid_stage", nil)
		}

		// Rule 1: both peers agree (including both done).
		if pubHasNext == partHasNext && (!pubHasNext || pubNext.Name == partNext.Name) {
			if !pubHasNext {
				return result{}, nil
			}
			return result{stage: pubNext, ok: true}, nil
		}

		// Rule 2: one peer has advanced past the stage the other is still
		// in; the behind peer drives.
		if behind, ok := oneSidedAdvance(flow, pubState.Status, partState.Status); ok {
			return result{stage: behind, ok: true}, nil
		}

		return result{}, bolterr.New(bolterr.IncompatibleStage,
			"publisher and partner disagree on next valid stage", bolterr.WithStatuses("", pubState.Status, partState.Status))
	})
	if err != nil {
		return stage.Stage{}, false, err
	}
	return res.stage, res.ok, nil
}

// oneSidedAdvance implements resolution rule 2: if one peer's status is a
// stage's completed_status and the other peer's status belongs to the same
// stage (started/failed/completed), that stage is still "the next valid
// stage" for the behind peer to finish driving.
func oneSidedAdvance(flow stage.Flow, a, b boltstatus.Status) (stage.Stage, bool) {
	stAhead, phaseAhead, okAhead := flow.Locate(a)
	stBehind, phaseBehind, okBehind := flow.Locate(b)
	if !okAhead || !okBehind {
		return stage.Stage{}, false
	}
	if stAhead.Name == stBehind.Name && phaseAhead == stage.PhaseCompleted && phaseBehind != stage.PhaseCompleted {
		return stBehind, true
	}
	if stBehind.Name == stAhead.Name && phaseBehind == stage.PhaseCompleted && phaseAhead != stage.PhaseCompleted {
		return stAhead, true
	}
	return stage.Stage{}, false
}
