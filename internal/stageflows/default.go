// Package stageflows provides concrete stage.Flow instantiations: the
// production private-computation flow Bolt ships by default, and the small
// dummy flows used across the runner's test suite.
package stageflows

import (
	"time"

	"github.com/compose-network/bolt/internal/boltstatus"
	"github.com/compose-network/bolt/internal/stage"
)

// Status values for the default flow. Started, completed and failed statuses
// are unique within this flow; each stage after the first uses the previous
// stage's completed status as its initialized status, which Flow.Locate
// resolves to the earlier stage's completed phase (first match wins).
const (
	Created boltstatus.Status = "CREATED"

	IDMatchStarted   boltstatus.Status = "ID_MATCHING_STARTED"
	IDMatchCompleted boltstatus.Status = "ID_MATCHING_COMPLETED"
	IDMatchFailed    boltstatus.Status = "ID_MATCHING_FAILED"

	PIDShardStarted   boltstatus.Status = "PID_SHARD_STARTED"
	PIDShardCompleted boltstatus.Status = "PID_SHARD_COMPLETED"
	PIDShardFailed    boltstatus.Status = "PID_SHARD_FAILED"

	ComputeStarted   boltstatus.Status = "COMPUTATION_STARTED"
	ComputeCompleted boltstatus.Status = "COMPUTATION_COMPLETED"
	ComputeFailed    boltstatus.Status = "COMPUTATION_FAILED"

	AggregateStarted   boltstatus.Status = "AGGREGATION_STARTED"
	AggregateCompleted boltstatus.Status = "AGGREGATION_COMPLETED"
	AggregateFailed    boltstatus.Status = "AGGREGATION_FAILED"
)

// Default is Bolt's concrete private-computation stage flow: peers run a
// private identity-matching protocol, independently shard their matched
// identifiers, jointly compute over the sharded data, then independently
// aggregate and publish results. See SPEC_FULL.md §11.
func Default() stage.Flow {
	return stage.NewFlow("private_computation",
		stage.Stage{
			Name:              "ID_MATCH",
			InitializedStatus: Created,
			StartedStatus:     IDMatchStarted,
			CompletedStatus:   IDMatchCompleted,
			FailedStatus:      IDMatchFailed,
			IsJointStage:      true,
			IsRetryable:       true,
			Timeout:           20 * time.Minute,
		},
		stage.Stage{
			Name:              "PID_SHARD",
			InitializedStatus: IDMatchCompleted,
			StartedStatus:     PIDShardStarted,
			CompletedStatus:   PIDShardCompleted,
			FailedStatus:      PIDShardFailed,
			IsJointStage:      false,
			IsRetryable:       true,
			Timeout:           10 * time.Minute,
		},
		stage.Stage{
			Name:              "COMPUTE",
			InitializedStatus: PIDShardCompleted,
			StartedStatus:     ComputeStarted,
			CompletedStatus:   ComputeCompleted,
			FailedStatus:      ComputeFailed,
			IsJointStage:      true,
			IsRetryable:       true,
			Timeout:           60 * time.Minute,
		},
		stage.Stage{
			Name:              "AGGREGATE",
			InitializedStatus: ComputeCompleted,
			StartedStatus:     AggregateStarted,
			CompletedStatus:   AggregateCompleted,
			FailedStatus:      AggregateFailed,
			IsJointStage:      false,
			IsRetryable:       false,
			Timeout:           15 * time.Minute,
		},
	)
}
