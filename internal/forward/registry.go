package forward

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tgforward/internal/provider"
	"tgforward/pkg/logx"
)

// ErrJobNotFound is returned by Cancel when the handle does not name a
// currently active job.
var ErrJobNotFound = errors.New("job not found")

// Handle identifies a running job. Handles are opaque and stable for
// the job's lifetime; they are never repositioned when other jobs
// finish, unlike a "job number = current list index" scheme.
type Handle uint64

// JobInfo is a snapshot of one active job for listings.
type JobInfo struct {
	Handle     Handle
	Categories []Category
	StartedAt  time.Time
}

// Registry tracks active jobs and owns their cancellation signals.
type Registry struct {
	client provider.Client
	gate   *Gate
	disp   *Dispatcher
	log    logx.Logger
	sink   EventSink

	mu   sync.Mutex
	next Handle
	jobs map[Handle]*Job
	wg   sync.WaitGroup
}

func NewRegistry(client provider.Client, gate *Gate, disp *Dispatcher, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{
		client: client,
		gate:   gate,
		disp:   disp,
		log:    log,
		jobs:   map[Handle]*Job{},
	}
}

// SetEventSink installs the forward-event sink (audit log, counters).
// Call before the first Start.
func (r *Registry) SetEventSink(sink EventSink) { r.sink = sink }

// Start validates cfg, spawns the job and returns its handle. The job
// runs until ctx is cancelled or Cancel(handle) is called.
func (r *Registry) Start(ctx context.Context, cfg JobConfig) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	jctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.next++
	h := r.next
	j := &Job{
		handle:    h,
		cfg:       cfg,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		log:       r.log.With(logx.Uint64("job", uint64(h))),
		deps: deps{
			client: r.client,
			gate:   r.gate,
			disp:   r.disp,
			sink:   r.sink,
		},
	}
	r.jobs[h] = j
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		j.run(jctx)
		// Removal is job-initiated: the job leaves the registry only
		// after its loops have observed cancellation and returned.
		r.remove(h)
		cancel()
		close(j.done)
	}()

	r.log.Info("job started", logx.Uint64("job", uint64(h)), logx.Int("pipelines", len(cfg.Pipelines)))
	return h, nil
}

// Cancel signals the job's cancellation. The job keeps its handle until
// its loops wind down and it removes itself.
func (r *Registry) Cancel(h Handle) error {
	r.mu.Lock()
	j, ok := r.jobs[h]
	r.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	j.cancel()
	r.log.Info("job cancel requested", logx.Uint64("job", uint64(h)))
	return nil
}

// List returns the active jobs ordered by start time.
func (r *Registry) List() []JobInfo {
	r.mu.Lock()
	out := make([]JobInfo, 0, len(r.jobs))
	for _, j := range r.jobs {
		cats := make([]Category, 0, len(j.cfg.Pipelines))
		for _, p := range j.cfg.Pipelines {
			cats = append(cats, p.Category)
		}
		out = append(out, JobInfo{Handle: j.handle, Categories: cats, StartedAt: j.startedAt})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].StartedAt.Equal(out[k].StartedAt) {
			return out[i].Handle < out[k].Handle
		}
		return out[i].StartedAt.Before(out[k].StartedAt)
	})
	return out
}

// Wait blocks until the job identified by h has fully stopped and left
// the registry. Returns immediately for unknown handles.
func (r *Registry) Wait(h Handle) {
	r.mu.Lock()
	j, ok := r.jobs[h]
	r.mu.Unlock()
	if !ok {
		return
	}
	<-j.done
}

// StopAll cancels every active job and waits for them to wind down,
// bounded by ctx.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	for _, j := range r.jobs {
		j.cancel()
	}
	n := len(r.jobs)
	r.mu.Unlock()

	if n == 0 {
		return
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("all jobs stopped", logx.Int("count", n))
	case <-ctx.Done():
		r.log.Warn("job shutdown cut short", logx.Err(ctx.Err()))
	}
}

func (r *Registry) remove(h Handle) {
	r.mu.Lock()
	delete(r.jobs, h)
	r.mu.Unlock()
	r.log.Info("job removed", logx.Uint64("job", uint64(h)))
}
