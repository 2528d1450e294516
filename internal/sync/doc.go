// Package sync reconciles conversation exports against a note store.
//
// A run is a sequential pipeline: scan the source files for record keys and
// order them by update time, scan the target folder once to index existing
// notes by their embedded markers, then walk the ordered keys deciding
// create, append, overwrite or unchanged per conversation, and finally
// archive indexed notes whose conversation vanished from the source set.
// Processing oldest-first means note modification times end up mirroring
// conversation recency.
//
// Failures stay confined to the record they occur in: one broken file or
// one refused write is logged and counted, never aborting the batch. Only
// an unreachable store kills a run.
package sync
