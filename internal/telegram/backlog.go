package telegram

import "tgforward/internal/provider"

// backlog is a bounded buffer of observed messages for one chat, kept
// in ascending id order. It serves the cursor reads of forwarding jobs:
// LatestMessageID seeds cursors and after() answers fetches.
//
// Telegram message ids are per-chat monotonically increasing, so
// appends arrive nearly sorted; the insertion path only has to handle
// the occasional out-of-order update.
type backlog struct {
	cap  int
	msgs []provider.Message
}

func newBacklog(capacity int) *backlog {
	if capacity <= 0 {
		capacity = 2048
	}
	return &backlog{cap: capacity}
}

func (b *backlog) add(m provider.Message) {
	n := len(b.msgs)
	switch {
	case n == 0 || m.ID > b.msgs[n-1].ID:
		b.msgs = append(b.msgs, m)
	default:
		// Rare: late or edited update. Replace an existing id, or
		// insert in order.
		i := b.search(m.ID)
		if i < n && b.msgs[i].ID == m.ID {
			b.msgs[i] = m
		} else {
			b.msgs = append(b.msgs, provider.Message{})
			copy(b.msgs[i+1:], b.msgs[i:])
			b.msgs[i] = m
		}
	}
	if len(b.msgs) > b.cap {
		drop := len(b.msgs) - b.cap
		b.msgs = append(b.msgs[:0], b.msgs[drop:]...)
	}
}

// after returns all messages with id > afterID, ascending.
func (b *backlog) after(afterID int) []provider.Message {
	i := b.search(afterID + 1)
	if i >= len(b.msgs) {
		return nil
	}
	out := make([]provider.Message, len(b.msgs)-i)
	copy(out, b.msgs[i:])
	return out
}

func (b *backlog) latestID() int {
	if len(b.msgs) == 0 {
		return 0
	}
	return b.msgs[len(b.msgs)-1].ID
}

// search returns the first index with id >= target.
func (b *backlog) search(target int) int {
	lo, hi := 0, len(b.msgs)
	for lo < hi {
		mid := (lo + hi) / 2
		if b.msgs[mid].ID < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
