package forward

import (
	"context"
	"errors"
	"testing"
	"time"

	"tgforward/internal/provider"
	"tgforward/pkg/logx"
)

// recordedSleep captures flood waits instead of sleeping.
func recordedSleep(dst *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*dst = append(*dst, d)
		return nil
	}
}

func TestDispatcherFloodRetryOnceThenFail(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	sendErr := errors.New("still throttled")
	client.sendScript = func(call int, dest, text string) error {
		if call == 0 {
			return &provider.FloodError{RetryAfter: 3 * time.Second}
		}
		return sendErr
	}

	d := NewDispatcher(client, 0, logx.Nop())
	var waits []time.Duration
	d.sleep = recordedSleep(&waits)

	err := d.Send(context.Background(), "dest", "payload")
	if err == nil {
		t.Fatal("expected failure after exhausted retry")
	}
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
	if got := len(client.sentCopy()); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
	if len(waits) != 1 || waits[0] != 3*time.Second {
		t.Fatalf("expected one wait of 3s, got %v", waits)
	}
}

func TestDispatcherFloodRetrySucceeds(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	client.sendScript = func(call int, dest, text string) error {
		if call == 0 {
			return &provider.FloodError{RetryAfter: time.Second}
		}
		return nil
	}

	d := NewDispatcher(client, 0, logx.Nop())
	var waits []time.Duration
	d.sleep = recordedSleep(&waits)

	if err := d.Send(context.Background(), "dest", "payload"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := len(client.sentCopy()); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestDispatcherPlainErrorNoRetry(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	client.sendScript = func(call int, dest, text string) error {
		return errors.New("chat write forbidden")
	}

	d := NewDispatcher(client, 0, logx.Nop())
	var waits []time.Duration
	d.sleep = recordedSleep(&waits)

	if err := d.Send(context.Background(), "dest", "payload"); err == nil {
		t.Fatal("expected error")
	}
	if got := len(client.sentCopy()); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
	if len(waits) != 0 {
		t.Fatalf("expected no waits, got %v", waits)
	}
}

func TestDispatcherCancelledDuringFloodWait(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	client.sendScript = func(call int, dest, text string) error {
		return &provider.FloodError{RetryAfter: time.Minute}
	}

	d := NewDispatcher(client, 0, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Send(ctx, "dest", "payload")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := len(client.sentCopy()); got != 1 {
		t.Fatalf("expected no retry after cancellation, got %d attempts", got)
	}
}
