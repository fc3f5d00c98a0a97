package stageflows

import (
	"time"

	"github.com/compose-network/bolt/internal/boltstatus"
	"github.com/compose-network/bolt/internal/stage"
)

// Dummy status values, one flow's worth, reused by all four dummy flows
// below (each flow only ever holds a single stage, so there is no
// cross-stage collision to worry about).
const (
	DummyCreated   boltstatus.Status = "DUMMY_CREATED"
	DummyStarted   boltstatus.Status = "DUMMY_STARTED"
	DummyCompleted boltstatus.Status = "DUMMY_COMPLETED"
	DummyFailed    boltstatus.Status = "DUMMY_FAILED"
)

// DummyJointStage is a single joint, retryable stage, used to exercise the
// server-context propagation and joint-cancel paths.
func DummyJointStage() stage.Flow {
	return stage.NewFlow("dummy_joint",
		stage.Stage{
			Name:              "DUMMY_JOINT",
			InitializedStatus: DummyCreated,
			StartedStatus:     DummyStarted,
			CompletedStatus:   DummyCompleted,
			FailedStatus:      DummyFailed,
			IsJointStage:      true,
			IsRetryable:       true,
			Timeout:           time.Minute,
		},
	)
}

// DummyNonJointStage is a single non-joint, retryable stage.
func DummyNonJointStage() stage.Flow {
	return stage.NewFlow("dummy_non_joint",
		stage.Stage{
			Name:              "DUMMY_NON_JOINT",
			InitializedStatus: DummyCreated,
			StartedStatus:     DummyStarted,
			CompletedStatus:   DummyCompleted,
			FailedStatus:      DummyFailed,
			IsJointStage:      false,
			IsRetryable:       true,
			Timeout:           time.Minute,
		},
	)
}

// DummyRetryableStage is a single non-joint stage explicitly retryable, used
// where a test wants to vary IsRetryable independent of IsJointStage.
func DummyRetryableStage() stage.Flow {
	return stage.NewFlow("dummy_retryable",
		stage.Stage{
			Name:              "DUMMY_RETRYABLE",
			InitializedStatus: DummyCreated,
			StartedStatus:     DummyStarted,
			CompletedStatus:   DummyCompleted,
			FailedStatus:      DummyFailed,
			IsJointStage:      false,
			IsRetryable:       true,
			Timeout:           time.Minute,
		},
	)
}

// DummyNonRetryableStage is a single non-joint, non-retryable stage.
func DummyNonRetryableStage() stage.Flow {
	return stage.NewFlow("dummy_non_retryable",
		stage.Stage{
			Name:              "DUMMY_NON_RETRYABLE",
			InitializedStatus: DummyCreated,
			StartedStatus:     DummyStarted,
			CompletedStatus:   DummyCompleted,
			FailedStatus:      DummyFailed,
			IsJointStage:      false,
			IsRetryable:       false,
			Timeout:           time.Minute,
		},
	)
}
