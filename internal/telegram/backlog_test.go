package telegram

import (
	"reflect"
	"testing"

	"tgforward/internal/provider"
)

func TestBacklogAfterAndLatest(t *testing.T) {
	t.Parallel()

	bl := newBacklog(10)
	if got := bl.latestID(); got != 0 {
		t.Fatalf("latestID on empty backlog = %d, want 0", got)
	}
	if got := bl.after(0); got != nil {
		t.Fatalf("after(0) on empty backlog = %v, want nil", got)
	}

	for _, id := range []int{3, 5, 9} {
		bl.add(provider.Message{ID: id, Text: "m"})
	}

	if got := bl.latestID(); got != 9 {
		t.Fatalf("latestID = %d, want 9", got)
	}
	got := bl.after(3)
	want := []provider.Message{{ID: 5, Text: "m"}, {ID: 9, Text: "m"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("after(3) = %v, want %v", got, want)
	}
	if got := bl.after(9); got != nil {
		t.Fatalf("after(latest) = %v, want nil", got)
	}
}

func TestBacklogOutOfOrderAndReplace(t *testing.T) {
	t.Parallel()

	bl := newBacklog(10)
	bl.add(provider.Message{ID: 2, Text: "b"})
	bl.add(provider.Message{ID: 4, Text: "d"})
	bl.add(provider.Message{ID: 3, Text: "c"}) // late arrival
	bl.add(provider.Message{ID: 4, Text: "D"}) // edit replaces

	got := bl.after(0)
	want := []provider.Message{{ID: 2, Text: "b"}, {ID: 3, Text: "c"}, {ID: 4, Text: "D"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("after(0) = %v, want %v", got, want)
	}
}

func TestBacklogEvictsOldest(t *testing.T) {
	t.Parallel()

	bl := newBacklog(3)
	for id := 1; id <= 5; id++ {
		bl.add(provider.Message{ID: id})
	}

	got := bl.after(0)
	want := []provider.Message{{ID: 3}, {ID: 4}, {ID: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("after(0) = %v, want %v", got, want)
	}
	if got := bl.latestID(); got != 5 {
		t.Fatalf("latestID = %d, want 5", got)
	}
}
