package forward

import (
	"context"
	"errors"
	"testing"
	"time"
)

func minimalJobConfig(chat ChatRef) JobConfig {
	return JobConfig{
		PollInterval: 5 * time.Millisecond,
		Pipelines: []PipelineConfig{{
			Category:     CategoryKeywords,
			Sources:      []ChatRef{chat},
			Destinations: []string{"dest"},
			Keywords:     []string{"never-matches-anything"},
		}},
	}
}

func TestRegistryStartListCancel(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	r := newTestRegistry(client)

	h1, err := r.Start(context.Background(), minimalJobConfig("1"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	h2, err := r.Start(context.Background(), minimalJobConfig("2"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("handles must be distinct, both %d", h1)
	}

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 active jobs, got %d", len(list))
	}
	if list[0].Handle != h1 || list[1].Handle != h2 {
		t.Fatalf("expected start-time order [%d %d], got %+v", h1, h2, list)
	}

	if err := r.Cancel(h1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	r.Wait(h1)

	list = r.List()
	if len(list) != 1 || list[0].Handle != h2 {
		t.Fatalf("expected only job %d active, got %+v", h2, list)
	}

	_ = r.Cancel(h2)
	r.Wait(h2)
}

func TestRegistryCancelUnknownHandle(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	r := newTestRegistry(client)

	h, err := r.Start(context.Background(), minimalJobConfig("1"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	before := r.List()

	if err := r.Cancel(Handle(9999)); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Cancel(unknown) = %v, want ErrJobNotFound", err)
	}
	after := r.List()
	if len(after) != len(before) {
		t.Fatalf("active list changed on failed cancel: %+v -> %+v", before, after)
	}

	_ = r.Cancel(h)
	r.Wait(h)

	// A finished job's handle is gone for good.
	if err := r.Cancel(h); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Cancel(finished) = %v, want ErrJobNotFound", err)
	}
}

func TestRegistryStartRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	r := newTestRegistry(client)

	cases := []JobConfig{
		{},
		{Pipelines: []PipelineConfig{{Category: "bogus", Sources: []ChatRef{"1"}, Destinations: []string{"d"}}}},
		{Pipelines: []PipelineConfig{{Category: CategorySolana, Destinations: []string{"d"}}}},
		{Pipelines: []PipelineConfig{{Category: CategorySolana, Sources: []ChatRef{"1"}}}},
		{Pipelines: []PipelineConfig{
			{Category: CategorySolana, Sources: []ChatRef{"1"}, Destinations: []string{"d"}},
			{Category: CategorySolana, Sources: []ChatRef{"2"}, Destinations: []string{"d"}},
		}},
	}
	for i, cfg := range cases {
		if _, err := r.Start(context.Background(), cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if got := len(r.List()); got != 0 {
		t.Fatalf("rejected configs must not leave jobs behind, got %d", got)
	}
}

func TestRegistryStopAll(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	r := newTestRegistry(client)

	for i := 0; i < 3; i++ {
		if _, err := r.Start(context.Background(), minimalJobConfig("1")); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.StopAll(ctx)

	if got := len(r.List()); got != 0 {
		t.Fatalf("expected empty registry after StopAll, got %d jobs", got)
	}
}

func TestRegistryParentContextCancelsJobs(t *testing.T) {
	t.Parallel()
	client := newFakeClient()
	r := newTestRegistry(client)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := r.Start(ctx, minimalJobConfig("1"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	r.Wait(h)

	if got := len(r.List()); got != 0 {
		t.Fatalf("expected job to remove itself after parent cancel, got %d", got)
	}
}
