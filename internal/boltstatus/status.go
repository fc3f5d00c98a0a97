// Package boltstatus defines the shared instance-status vocabulary that
// stage descriptors are built from.
package boltstatus

// Status is a remote instance status reported by a peer client.
//
// Statuses are only meaningful in the context of the stage flow that
// produced them: the same stage flow guarantees each stage's four statuses
// are disjoint, but two different flows may reuse the same status value for
// unrelated stages. Callers must always resolve a Status against the flow
// currently in effect, never in isolation.
type Status string

// Unknown is the zero value; it never matches a stage's status set.
const Unknown Status = ""
