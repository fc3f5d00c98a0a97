package stage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/compose-network/bolt/internal/boltstatus"
	"github.com/compose-network/bolt/internal/stage"
)

const (
	created   boltstatus.Status = "CREATED"
	started   boltstatus.Status = "STARTED"
	completed boltstatus.Status = "COMPLETED"
	failed    boltstatus.Status = "FAILED"
)

func twoStageFlow() stage.Flow {
	return stage.NewFlow("test",
		stage.Stage{
			Name: "FIRST", InitializedStatus: created, StartedStatus: started,
			CompletedStatus: completed, FailedStatus: failed, Timeout: time.Minute,
		},
		stage.Stage{
			Name: "SECOND", InitializedStatus: completed, StartedStatus: "SECOND_STARTED",
			CompletedStatus: "SECOND_DONE", FailedStatus: "SECOND_FAILED", Timeout: time.Minute,
		},
	)
}

func TestFlow_LinksPreviousAndNext(t *testing.T) {
	f := twoStageFlow()
	first, ok := f.ByName("FIRST")
	require.True(t, ok)
	require.Nil(t, first.Previous())
	require.NotNil(t, first.Next())
	require.Equal(t, "SECOND", first.Next().Name)

	second, ok := f.ByName("SECOND")
	require.True(t, ok)
	require.Nil(t, second.Next())
	require.NotNil(t, second.Previous())
	require.Equal(t, "FIRST", second.Previous().Name)
}

func TestFlow_Locate(t *testing.T) {
	f := twoStageFlow()

	st, phase, ok := f.Locate(started)
	require.True(t, ok)
	require.Equal(t, "FIRST", st.Name)
	require.Equal(t, stage.PhaseStarted, phase)

	_, _, ok = f.Locate("NO_SUCH_STATUS")
	require.False(t, ok)
}

func TestFlow_Equal(t *testing.T) {
	a := twoStageFlow()
	b := twoStageFlow()
	require.True(t, a.Equal(b))

	c := stage.NewFlow("test", stage.Stage{Name: "ONLY"})
	require.False(t, a.Equal(c))
}

func TestStage_EffectiveTimeout(t *testing.T) {
	s := stage.Stage{Timeout: 10 * time.Minute}

	require.Equal(t, 10*time.Minute, s.EffectiveTimeout(0))
	require.Equal(t, 5*time.Minute, s.EffectiveTimeout(5*time.Minute))
	require.Equal(t, 10*time.Minute, s.EffectiveTimeout(20*time.Minute))
}

func TestStage_WithTimeoutDoesNotMutateOriginal(t *testing.T) {
	s := stage.Stage{Timeout: time.Minute}
	patched := s.WithTimeout(5 * time.Second)

	require.Equal(t, time.Minute, s.Timeout)
	require.Equal(t, 5*time.Second, patched.Timeout)
}
