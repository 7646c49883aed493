// Package storage is the optional persistence layer.
//
// It currently keeps:
//   - an append-only audit log of forwarded payloads
//   - a snapshot of the observed chat directory, so title resolution
//     works right after a restart without waiting for fresh updates
//
// Core engine state (cursors, dedup) is deliberately not persisted;
// forwarding is at-least-once across restarts.
package storage
