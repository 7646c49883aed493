// Package forward is the forwarding engine: long-running jobs that poll
// source chats through a provider.Client, extract category payloads,
// suppress repeats within a cooldown window and relay admissions to the
// configured destinations.
//
// A Registry owns the running jobs and hands out stable handles for
// cancellation. Each job drives one or more category pipelines; each
// pipeline polls its own source chats with its own cursors. Delivery is
// at-least-once: the dedup gate bounds repeats but nothing survives a
// restart.
package forward
