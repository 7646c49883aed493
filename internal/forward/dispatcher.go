package forward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"tgforward/internal/provider"
	"tgforward/pkg/logx"
)

// Dispatcher performs the actual sends. It rate-limits outbound traffic
// and absorbs provider flood waits: on a FloodError it sleeps exactly
// the provider-demanded duration and retries the same send once, then
// surfaces whatever happened. It never retries beyond that and never
// deduplicates; that is the Gate's job.
type Dispatcher struct {
	client  provider.Client
	limiter *rate.Limiter
	log     logx.Logger

	// sleep is swappable so tests can observe the flood wait without
	// actually waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(client provider.Client, ratePerSec int, log logx.Logger) *Dispatcher {
	var lim *rate.Limiter
	if ratePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		client:  client,
		limiter: lim,
		log:     log,
		sleep:   sleepCtx,
	}
}

// Send delivers payload to one destination: one attempt, plus one more
// after a provider-signaled flood wait. The returned error is
// informational for the caller's logging; jobs continue on failure.
func (d *Dispatcher) Send(ctx context.Context, destination, payload string) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	err := d.client.SendMessage(ctx, destination, payload)
	if err == nil {
		return nil
	}

	var flood *provider.FloodError
	if !errors.As(err, &flood) {
		return err
	}

	d.log.Warn("provider flood wait",
		logx.String("dest", destination),
		logx.Duration("wait", flood.RetryAfter))
	if werr := d.sleep(ctx, flood.RetryAfter); werr != nil {
		return werr
	}
	if err := d.client.SendMessage(ctx, destination, payload); err != nil {
		return fmt.Errorf("retry after flood wait: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
