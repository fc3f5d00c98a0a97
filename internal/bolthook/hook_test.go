package bolthook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestKey_Matches(t *testing.T) {
	inv := EventStageInvoke
	before := Before
	role := Publisher

	cases := []struct {
		name string
		key  Key
		obs  Observation
		want bool
	}{
		{"all wildcard matches anything", Key{}, Observation{Event: inv, Timing: before}, true},
		{"event must match", Key{Event: ptr(EventGetStageFlow)}, Observation{Event: inv, Timing: before}, false},
		{"timing must match", Key{Timing: ptr(During)}, Observation{Event: inv, Timing: before}, false},
		{"role wildcard matches roleless observation", Key{}, Observation{Event: inv, Timing: before, HasRole: false}, true},
		{"role key requires a role on the observation", Key{Role: &role}, Observation{Event: inv, Timing: before, HasRole: false}, false},
		{"role key matches matching role", Key{Role: &role}, Observation{Event: inv, Timing: before, HasRole: true, Role: Publisher}, true},
		{"role key rejects mismatched role", Key{Role: &role}, Observation{Event: inv, Timing: before, HasRole: true, Role: Partner}, false},
		{"stage name must match", Key{StageName: ptr("ID_MATCH")}, Observation{Event: inv, Timing: before, StageName: "PID_SHARD"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.key.Matches(tc.obs))
		})
	}
}

type recordingHook struct {
	fired []Timing
}

func (h *recordingHook) Inject(_ context.Context, o Observation) error {
	h.fired = append(h.fired, o.Timing)
	return nil
}

func TestExecute_TimingPhases(t *testing.T) {
	r := NewRegistry()
	h := &recordingHook{}
	r.Register(Key{}, h)

	obs := Observation{Event: EventStageInvoke, StageName: "ID_MATCH"}
	result, err := Execute(context.Background(), r, obs, func(context.Context) (string, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.ElementsMatch(t, []Timing{Before, During, After}, h.fired)
}

func TestExecute_HookErrorSurfacesOnlyWhenActionSucceeds(t *testing.T) {
	r := NewRegistry()
	duringTiming := During
	r.Register(Key{Timing: &duringTiming}, HookFunc(func(context.Context, Observation) error {
		return context.DeadlineExceeded
	}))

	obs := Observation{Event: EventStageInvoke}

	// Action fails: its error wins over the hook's.
	actionErr := context.Canceled
	_, err := Execute(context.Background(), r, obs, func(context.Context) (string, error) {
		return "", actionErr
	})
	require.ErrorIs(t, err, actionErr)

	// Action succeeds: the hook's error becomes the result.
	_, err = Execute(context.Background(), r, obs, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
