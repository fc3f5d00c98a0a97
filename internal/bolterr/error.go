// Package bolterr defines the runner's error kinds and the structured,
// key-value context every stage failure carries.
package bolterr

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/compose-network/bolt/internal/boltstatus"
)

// Kind classifies a runner error for retry/cancellation decisions.
type Kind string

const (
	// IncompatibleStage is fatal: the two peers disagree on flow or next
	// stage in a way no resolution rule covers. Never retried.
	IncompatibleStage Kind = "incompatible_stage"

	// StageFailed means at least one peer reached the stage's failed
	// status (the other may still be running). Retried when the stage is
	// retryable.
	StageFailed Kind = "stage_failed"

	// StageTimeout means the per-attempt deadline elapsed before a
	// terminal decision. Retried when the stage is retryable; always
	// triggers a cancel of both peers first.
	StageTimeout Kind = "stage_timeout"

	// PeerUnavailable means an underlying peer-client call itself failed
	// (transport error). Treated like StageFailed for retry purposes.
	PeerUnavailable Kind = "peer_unavailable"
)

// Error is a runner error: a Kind plus the jettison-wrapped, key-value
// context (stage name, role, last observed statuses) describing it.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }

// Unwrap exposes the underlying jettison error for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// New builds a bolterr.Error of the given kind with structured context kv
// (e.g. j.MKV{"stage": name, "role": "PUBLISHER"}).
func New(kind Kind, msg string, kv j.MKV) *Error {
	return &Error{Kind: kind, err: errors.New(msg, kv)}
}

// Wrap attaches kind and structured context to an underlying error (e.g. one
// returned by a peer client).
func Wrap(kind Kind, cause error, msg string, kv j.MKV) *Error {
	return &Error{Kind: kind, err: errors.Wrap(cause, msg, kv)}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

// Retryable reports whether an error of this kind is ever eligible for
// retry, independent of the stage's own IsRetryable flag.
func (k Kind) Retryable() bool {
	switch k {
	case StageFailed, StageTimeout, PeerUnavailable:
		return true
	default:
		return false
	}
}

// WithStatuses annotates a message with both peers' last observed statuses,
// for logging.
func WithStatuses(stageName string, publisherStatus, partnerStatus boltstatus.Status) j.MKV {
	return j.MKV{
		"stage":            stageName,
		"publisher_status": string(publisherStatus),
		"partner_status":   string(partnerStatus),
	}
}
