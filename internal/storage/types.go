package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (build with -tags sqlite)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ForwardEntry records one forwarded payload. Keep it compact and
// schema-stable.
type ForwardEntry struct {
	At           time.Time `json:"at"`
	Job          uint64    `json:"job"`
	Category     string    `json:"category"`
	ChatID       int64     `json:"chat_id"`
	MessageID    int       `json:"message_id"`
	Payload      string    `json:"payload"`
	Destinations int       `json:"destinations"`
	Failed       int       `json:"failed,omitempty"`
}

// ChatEntry is one chat directory row.
type ChatEntry struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Username string    `json:"username,omitempty"`
	SeenAt   time.Time `json:"seen_at"`
}
