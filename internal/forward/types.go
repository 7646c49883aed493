package forward

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category is one forwarding category. Each category has its own
// extractor and its own dedup namespace.
type Category string

const (
	CategoryKeywords Category = "keywords"
	CategorySolana   Category = "solana"
	CategoryEthereum Category = "ethereum"
	CategoryCashtags Category = "cashtags"
)

// Categories lists all known categories in menu order.
func Categories() []Category {
	return []Category{CategoryKeywords, CategorySolana, CategoryEthereum, CategoryCashtags}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryKeywords, CategorySolana, CategoryEthereum, CategoryCashtags:
		return true
	}
	return false
}

// ChatRef references a source chat by numeric id or by title. Titles
// are resolved once at job start.
type ChatRef string

// ID returns the numeric chat id when the reference is numeric
// (negative ids included; Telegram groups use them).
func (r ChatRef) ID() (int64, bool) {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (r ChatRef) String() string { return strings.TrimSpace(string(r)) }

// PipelineConfig is one category's forwarding setup. Immutable for the
// lifetime of the job that runs it.
type PipelineConfig struct {
	Category     Category
	Sources      []ChatRef
	Destinations []string

	// Keywords applies to CategoryKeywords only. Empty means "forward
	// every message".
	Keywords []string

	// Cooldown is the minimum gap between repeats of the same payload.
	// Zero means always forward.
	Cooldown time.Duration
}

func (p PipelineConfig) Validate() error {
	if !p.Category.Valid() {
		return fmt.Errorf("unknown category %q", string(p.Category))
	}
	if len(p.Sources) == 0 {
		return fmt.Errorf("%s: at least one source chat is required", p.Category)
	}
	if len(p.Destinations) == 0 {
		return fmt.Errorf("%s: at least one destination is required", p.Category)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("%s: cooldown must be >= 0", p.Category)
	}
	return nil
}

// JobConfig configures one forwarding job. A job may carry up to one
// pipeline per category.
type JobConfig struct {
	Pipelines []PipelineConfig

	// PollInterval is the sleep between polling cycles per source chat.
	// Zero means the 5 second default.
	PollInterval time.Duration
}

const defaultPollInterval = 5 * time.Second

func (c JobConfig) Validate() error {
	if len(c.Pipelines) == 0 {
		return errors.New("job has no pipelines")
	}
	seen := map[Category]bool{}
	for _, p := range c.Pipelines {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Category] {
			return fmt.Errorf("duplicate pipeline for category %s", p.Category)
		}
		seen[p.Category] = true
	}
	if c.PollInterval < 0 {
		return errors.New("poll interval must be >= 0")
	}
	return nil
}

func (c JobConfig) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// ForwardEvent describes one admitted payload after its delivery
// attempts. Emitted to the registry's event sink (audit log, counters).
type ForwardEvent struct {
	At           time.Time
	Job          Handle
	Category     Category
	ChatID       int64
	MessageID    int
	Payload      string
	Destinations int
	Failed       int
}

// EventSink receives forward events. Must not block; it is called from
// job goroutines.
type EventSink func(ev ForwardEvent)
