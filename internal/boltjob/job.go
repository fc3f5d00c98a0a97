// Package boltjob declares the immutable job description the runner
// executes and the summary it produces.
package boltjob

import (
	"time"

	"github.com/compose-network/bolt/internal/bolthook"
	"github.com/compose-network/bolt/internal/boltclient"
)

// Job is an immutable description of one workflow run. A Job is never
// mutated once handed to the runner.
type Job struct {
	Name string

	PublisherArgs boltclient.Args
	PartnerArgs   boltclient.Args

	// FinalStage, if set, stops the job once that stage completes rather
	// than running the flow to its natural end.
	FinalStage string

	// StageTimeoutOverride, if positive, caps every stage's effective
	// timeout for this job, even when the stage declares a longer one.
	StageTimeoutOverride time.Duration

	Hooks *bolthook.Registry
}

// Summary is the terminal outcome of one job, as produced by Runner.RunAsync.
type Summary struct {
	JobName    string
	IsSuccess  bool
	FinalStage string
	Err        error
}
