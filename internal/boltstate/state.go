// Package boltstate holds the snapshot a peer client reports back for an
// instance.
package boltstate

import "github.com/compose-network/bolt/internal/boltstatus"

// State is a point-in-time snapshot of one peer's remote instance, as
// returned by boltclient.Client.UpdateInstance.
type State struct {
	Status boltstatus.Status

	// ServerIPs, CACertificate and ServerHostnames are populated by the
	// Publisher once a joint stage reaches its started status; they are
	// nil/empty for every other observation.
	ServerIPs       []string
	CACertificate   string
	ServerHostnames []string
}

// HasServerContext reports whether this snapshot carries the connection
// material a joint stage's Partner invocation needs.
func (s State) HasServerContext() bool {
	return len(s.ServerIPs) > 0
}
