package config

import "fmt"

// Config is the forwarder's on-disk configuration. JSON is canonical;
// YAML files are accepted and coerced (see yaml.go). Unknown fields are
// rejected so typos surface at load time.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Forward  ForwardConfig  `json:"forward"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Report   *ReportConfig  `json:"report,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is the long-poll timeout, a Go duration string.
	// Default "10s".
	PollTimeout string `json:"poll_timeout,omitempty"`

	// Backlog caps the per-chat buffer of observed messages that
	// serves cursor reads. Default 2048.
	Backlog int `json:"backlog,omitempty"`
}

type LoggingConfig struct {
	Level    string            `json:"level,omitempty"`
	Console  *bool             `json:"console,omitempty"` // nil means true
	File     LogFileConfig     `json:"file,omitempty"`
	Telegram LogTelegramConfig `json:"telegram,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LogTelegramConfig relays warn/error log lines to a chat.
type LogTelegramConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Destination string `json:"destination,omitempty"`
	MinLevel    string `json:"min_level,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

// ForwardConfig holds engine-wide knobs; per-job settings come from the
// operator menu, not the file.
type ForwardConfig struct {
	// PollInterval between fetch cycles per source chat, a Go duration
	// string. Default "5s".
	PollInterval string `json:"poll_interval,omitempty"`

	// SendRatePerSec caps outbound sends across all jobs. 0 disables
	// the limiter.
	SendRatePerSec int `json:"send_rate_per_sec,omitempty"`
}

// StorageConfig controls the optional persistence layer (chat
// directory snapshots + forward audit log).
//
// Driver values:
//   - "file": dependency-free backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (build with -tags sqlite)
//
// If Driver is empty or "none", storage is disabled.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// ReportConfig controls the periodic activity summary.
type ReportConfig struct {
	Enabled bool `json:"enabled"`

	// Cron is a 5-field cron spec. Default "0 * * * *" (hourly).
	Cron string `json:"cron,omitempty"`
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if c.Telegram.Backlog < 0 {
		return fmt.Errorf("telegram.backlog must be >= 0")
	}
	if _, err := ParseDurationField("forward.poll_interval", c.Forward.PollInterval); err != nil {
		return err
	}
	if c.Forward.SendRatePerSec < 0 {
		return fmt.Errorf("forward.send_rate_per_sec must be >= 0")
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

// ConsoleEnabled resolves the tri-state console flag.
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}
