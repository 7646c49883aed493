package forward

import (
	"sync"
	"time"
)

// Gate is the per-category duplicate suppressor. It remembers when a
// payload was last forwarded in each category and admits a repeat only
// once the cooldown has elapsed.
//
// Categories are independent namespaces: the same payload text in two
// categories never cross-suppresses. Entries are kept for the process
// lifetime; payload diversity is bounded in practice and restart
// semantics are at-least-once anyway.
//
// One job owns each category during normal operation, but the gate is
// shared across jobs, so all access is mutex-guarded.
type Gate struct {
	mu   sync.Mutex
	now  func() time.Time
	seen map[Category]map[string]time.Time
}

func NewGate() *Gate {
	return &Gate{
		now:  time.Now,
		seen: map[Category]map[string]time.Time{},
	}
}

// CanForward reports whether payload may be forwarded in cat now: true
// when the payload was never forwarded, or when at least cooldown has
// passed since the last forward. Zero cooldown always admits.
func (g *Gate) CanForward(cat Category, payload string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.seen[cat][payload]
	if !ok {
		return true
	}
	return g.now().Sub(last) >= cooldown
}

// Record marks payload as forwarded in cat now. Call it after the
// dispatch attempts for the payload have been issued, never before the
// CanForward check.
func (g *Gate) Record(cat Category, payload string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.seen[cat]
	if m == nil {
		m = map[string]time.Time{}
		g.seen[cat] = m
	}
	m[payload] = g.now()
}

// Sizes returns the number of tracked payloads per category. Used by
// the periodic activity report.
func (g *Gate) Sizes() map[Category]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[Category]int, len(g.seen))
	for cat, m := range g.seen {
		out[cat] = len(m)
	}
	return out
}
