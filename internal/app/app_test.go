package app

import (
	"testing"

	"tgforward/internal/config"
	"tgforward/internal/forward"
	"tgforward/pkg/logx"
)

func TestMapLoggingConfig(t *testing.T) {
	t.Parallel()

	off := false
	lc := config.LoggingConfig{
		Level:   "debug",
		Console: &off,
		File:    config.LogFileConfig{Enabled: true, Path: "/tmp/fw.log"},
		Telegram: config.LogTelegramConfig{
			Enabled:     true,
			Destination: "-100123",
			MinLevel:    "warn",
			RatePerSec:  2,
		},
	}

	got := mapLoggingConfig(lc)
	want := logx.Config{
		Level:   "debug",
		Console: false,
		File:    logx.FileConfig{Enabled: true, Path: "/tmp/fw.log"},
		Telegram: logx.TelegramConfig{
			Enabled:     true,
			Destination: "-100123",
			MinLevel:    "warn",
			RatePerSec:  2,
		},
	}
	if got != want {
		t.Fatalf("mapLoggingConfig = %+v, want %+v", got, want)
	}

	// Unset console means enabled.
	if c := mapLoggingConfig(config.LoggingConfig{}); !c.Console {
		t.Fatal("nil console flag should map to enabled")
	}
}

func TestOnForwardCounters(t *testing.T) {
	t.Parallel()

	a := &App{log: logx.Nop(), gate: forward.NewGate()}

	a.onForward(forward.ForwardEvent{Destinations: 2})
	a.onForward(forward.ForwardEvent{Destinations: 2, Failed: 1})

	if got := a.forwarded.Load(); got != 2 {
		t.Fatalf("forwarded = %d, want 2", got)
	}
	if got := a.failed.Load(); got != 1 {
		t.Fatalf("failed = %d, want 1", got)
	}
}
