package bolthook

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// entry pairs a registered key with its handler, in registration order.
type entry struct {
	key  Key
	hook Hook
}

// Registry is the hook multimap the runner consults at every observable
// point. The zero value is usable (an empty registry fires nothing).
type Registry struct {
	entries []entry
}

// NewRegistry builds a registry. Entries fire in the order registered.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a hook under key. The same hook may be registered under
// several keys.
func (r *Registry) Register(key Key, hook Hook) {
	r.entries = append(r.entries, entry{key: key, hook: hook})
}

func (r *Registry) matching(o Observation, timing Timing) []Hook {
	o.Timing = timing
	var out []Hook
	for _, e := range r.entries {
		if e.key.Matches(o) {
			out = append(out, e.hook)
		}
	}
	return out
}

// Execute runs action wrapped in this registry's BEFORE/DURING/AFTER hooks
// for the given observation, implementing the runner's _execute_event
// contract:
//
//   - BEFORE hooks run sequentially, before action.
//   - DURING hooks run concurrently with action; both are awaited together.
//   - AFTER hooks always run once action (and any DURING hooks) have
//     settled, regardless of outcome.
//   - action's error wins; the first hook error from any phase is only
//     surfaced when action itself succeeded. A hook error never stops or
//     cancels action.
func Execute[T any](ctx context.Context, r *Registry, o Observation, action func(context.Context) (T, error)) (T, error) {
	if r == nil {
		r = NewRegistry()
	}

	var hookErr error
	for _, h := range r.matching(o, Before) {
		if err := h.Inject(ctx, o); err != nil && hookErr == nil {
			hookErr = err
		}
	}

	during := r.matching(o, During)
	var grp errgroup.Group

	var result T
	var actionErr error
	grp.Go(func() error {
		result, actionErr = action(ctx)
		return nil
	})
	for _, h := range during {
		h := h
		grp.Go(func() error { return h.Inject(ctx, o) })
	}
	if err := grp.Wait(); err != nil && hookErr == nil {
		hookErr = err
	}

	for _, h := range r.matching(o, After) {
		if err := h.Inject(ctx, o); err != nil && hookErr == nil {
			hookErr = err
		}
	}

	if actionErr != nil {
		return result, actionErr
	}
	if hookErr != nil {
		return result, hookErr
	}
	return result, nil
}
