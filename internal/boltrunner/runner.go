// Package boltrunner is the workflow orchestrator: it drives any number of
// jobs concurrently through their declared stage flow, agreeing between two
// peers at every step, retrying retryable stages, enforcing per-stage
// timeouts with cancellation, and reporting a per-job summary.
//
// Grounded on x/scp-instance-supervisor's active-instance map and
// timeout/finalize shape, generalized from a single OnFinalize hook to the
// full BEFORE/DURING/AFTER hook registry the spec requires, and from a
// single-sided instance lifecycle to a dual-peer one.
package boltrunner

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/compose-network/bolt/internal/bolterr"
	"github.com/compose-network/bolt/internal/boltclient"
	"github.com/compose-network/bolt/internal/boltjob"
	"github.com/compose-network/bolt/internal/stage"
)

// Runner executes jobs against a fixed pair of peer clients.
type Runner struct {
	publisher boltclient.Client
	partner   boltclient.Client
	cfg       Config
}

// New builds a Runner. publisher and partner are the two peer clients every
// job submitted to RunAsync will be driven against.
func New(publisher, partner boltclient.Client, cfg Config) *Runner {
	return &Runner{publisher: publisher, partner: partner, cfg: cfg.apply()}
}

// RunAsync runs every job concurrently and returns one Summary per input
// job, in input order. A single job's failure never aborts the others or
// propagates out of RunAsync; it is recorded in that job's Summary.
func (r *Runner) RunAsync(ctx context.Context, jobs []boltjob.Job) []boltjob.Summary {
	summaries := make([]boltjob.Summary, len(jobs))

	grp, gctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		i, job := i, job
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.JobsStarted.Inc()
		}
		grp.Go(func() error {
			summaries[i] = r.driveJob(gctx, job)
			return nil
		})
	}
	_ = grp.Wait() // driveJob never returns an error; it records failures in the summary

	return summaries
}

// driveJob runs one job to completion, per SPEC_FULL.md §4.1 "per-job
// driver".
func (r *Runner) driveJob(ctx context.Context, job boltjob.Job) boltjob.Summary {
	log := r.cfg.Logger.With().Str("job", job.Name).Logger()

	publisherID, err := r.publisher.GetOrCreateInstance(ctx, job.PublisherArgs)
	if err != nil {
		return r.fail(job, bolterr.Wrap(bolterr.PeerUnavailable, err, "publisher get_or_create_instance", nil))
	}
	partnerID, err := r.partner.GetOrCreateInstance(ctx, job.PartnerArgs)
	if err != nil {
		return r.fail(job, bolterr.Wrap(bolterr.PeerUnavailable, err, "partner get_or_create_instance", nil))
	}

	flow, err := r.getStageFlow(ctx, job, publisherID, partnerID)
	if err != nil {
		return r.fail(job, err)
	}

	var lastStage string
	for {
		next, ok, err := r.getNextValidStage(ctx, job, flow, publisherID, partnerID)
		if err != nil {
			return r.fail(job, err)
		}
		if !ok {
			return r.succeed(job, lastStage)
		}

		effective := next.EffectiveTimeout(job.StageTimeoutOverride)
		attemptStage := next.WithTimeout(effective)

		budget := 1
		if attemptStage.IsRetryable {
			budget = r.cfg.NumTries
		}

		if err := r.runStageWithRetry(ctx, job, publisherID, partnerID, attemptStage, budget, log); err != nil {
			return r.fail(job, err)
		}

		lastStage = attemptStage.Name
		if job.FinalStage != "" && job.FinalStage == attemptStage.Name {
			return r.succeed(job, lastStage)
		}
	}
}

// runStageWithRetry runs one resolved stage's attempt loop (run_next_stage
// then wait_stage_complete, retried up to budget times per SPEC_FULL.md
// §4.1 step 4).
func (r *Runner) runStageWithRetry(ctx context.Context, job boltjob.Job, publisherID, partnerID string, st stage.Stage, budget int, log zerolog.Logger) error {
	var previousTimeout, previousCancelled bool

	for attempt := 1; attempt <= budget; attempt++ {
		if attempt > 1 {
			log.Info().Str("stage", st.Name).Int("attempt", attempt).Msg("retrying stage")
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.StageRetries.WithLabelValues(st.Name).Inc()
			}
		}

		start := r.cfg.Clock.Now()
		if err := r.runNextStage(ctx, job, publisherID, partnerID, st); err != nil {
			if !shouldRetry(err, st, attempt, budget) {
				return err
			}
			previousTimeout, previousCancelled = false, false
			continue
		}

		err := r.waitStageComplete(ctx, job, publisherID, partnerID, st, previousTimeout, previousCancelled)
		if err == nil {
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.StageDuration.WithLabelValues(st.Name).Observe(r.cfg.Clock.Since(start).Seconds())
			}
			return nil
		}

		kind, _ := bolterr.KindOf(err)
		previousTimeout = kind == bolterr.StageTimeout
		if kind == bolterr.StageTimeout {
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.StageTimeouts.WithLabelValues(st.Name).Inc()
			}
			if st.IsJointStage {
				// A non-joint timeout was already cancelled inside
				// wait_stage_complete; only the joint case needs the
				// driver to cancel here, so every timed-out attempt
				// cancels exactly once either way.
				r.cancelBoth(ctx, job, publisherID, partnerID, st)
			}
		}
		previousCancelled = previousTimeout

		if !shouldRetry(err, st, attempt, budget) {
			return err
		}
	}
	return nil
}

// shouldRetry reports whether a failed attempt should be retried: the
// error's kind must be retryable, the stage must allow retries, and budget
// must not be exhausted.
func shouldRetry(err error, st stage.Stage, attempt, budget int) bool {
	if attempt >= budget || !st.IsRetryable {
		return false
	}
	kind, ok := bolterr.KindOf(err)
	return ok && kind.Retryable()
}

func (r *Runner) succeed(job boltjob.Job, finalStage string) boltjob.Summary {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.JobsSucceeded.Inc()
	}
	return boltjob.Summary{JobName: job.Name, IsSuccess: true, FinalStage: finalStage}
}

func (r *Runner) fail(job boltjob.Job, err error) boltjob.Summary {
	if r.cfg.Metrics != nil {
		kind, _ := bolterr.KindOf(err)
		r.cfg.Metrics.JobsFailed.WithLabelValues(string(kind)).Inc()
	}
	r.cfg.Logger.Error().Err(err).Str("job", job.Name).Msg("job failed")
	return boltjob.Summary{JobName: job.Name, IsSuccess: false, Err: err}
}
