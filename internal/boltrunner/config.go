package boltrunner

import (
	"time"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"

	"github.com/compose-network/bolt/internal/boltmetrics"
)

// DefaultNumTries is the runner's default retry budget for retryable
// stages: the stage gets this many attempts before the job fails.
const DefaultNumTries = 2

// DefaultPollInterval is how often the runner polls peer clients while
// waiting for a stage to settle, absent an explicit override.
const DefaultPollInterval = 2 * time.Second

// Config configures a Runner. Mirrors the Config-with-defaults shape this
// codebase uses elsewhere (see internal/config, x/period-runner).
type Config struct {
	// NumTries is the attempt budget applied to retryable stages.
	NumTries int

	// PollInterval is the sleep between polls in wait_stage_complete and
	// get_server_ips_after_start.
	PollInterval time.Duration

	// Clock lets tests substitute a fake clock for deterministic timeout
	// and polling behaviour.
	Clock clock.Clock

	// Metrics receives counters for job/stage outcomes. Safe to leave nil.
	Metrics *boltmetrics.Metrics

	Logger zerolog.Logger
}

// DefaultConfig returns a Config with every field at its production
// default except Logger, which callers should set explicitly.
func DefaultConfig() Config {
	return Config{
		NumTries:     DefaultNumTries,
		PollInterval: DefaultPollInterval,
		Clock:        clock.RealClock{},
		Logger:       zerolog.Nop(),
	}
}

func (c Config) apply() Config {
	if c.NumTries <= 0 {
		c.NumTries = DefaultNumTries
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	return c
}
