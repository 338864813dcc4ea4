package signal

import "sync/atomic"

var revision atomic.Uint64

// Touch records that some node's configuration changed. Every setter in the
// engine calls it after publishing its new snapshot.
func Touch() { revision.Add(1) }

// Revision identifies the current engine-wide configuration. Nodes that
// memoize results across calls must drop them when it changes.
func Revision() uint64 { return revision.Load() }
