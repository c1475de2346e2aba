package session

import (
	"reflect"
	"sync"
	"time"

	"github.com/relaywf/relay-go/wire"
)

// waitTTL is the age ceiling for ad-hoc waiters. Entries older than this are
// purged lazily on each inbound event rather than by a background timer.
const waitTTL = 30 * time.Minute

// waiter is one ad-hoc event wait: a partial field/value criteria mapping,
// the slot its owner is suspended on, and the registration time.
type waiter struct {
	criteria map[string]any
	slot     *slot
	created  time.Time
}

// waitTable is the event matcher: waiter id to pending criteria match.
// Waiters are registered before their triggering request is transmitted so
// the follow-up notification cannot arrive ahead of its entry.
type waitTable struct {
	mu      sync.Mutex
	waiters map[string]*waiter
	now     func() time.Time
}

func newWaitTable() *waitTable {
	return &waitTable{
		waiters: make(map[string]*waiter),
		now:     time.Now,
	}
}

// add registers a waiter and returns its id and unresolved slot.
func (t *waitTable) add(criteria map[string]any) (string, *slot) {
	id := newID()
	sl := newSlot()
	t.mu.Lock()
	t.waiters[id] = &waiter{
		criteria: criteria,
		slot:     sl,
		created:  t.now(),
	}
	t.mu.Unlock()
	return id, sl
}

// remove drops a waiter without resolving it.
func (t *waitTable) remove(id string) {
	t.mu.Lock()
	delete(t.waiters, id)
	t.mu.Unlock()
}

// tryResolve offers an inbound event to the registered waiters. The first
// structural match is resolved and removed, returning true. Waiters past the
// age ceiling are purged along the way. An event that matches nothing leaves
// every waiter pending and returns false.
func (t *waitTable) tryResolve(e wire.Event) bool {
	now := t.now()

	t.mu.Lock()
	var matched *waiter
	for id, w := range t.waiters {
		if now.Sub(w.created) > waitTTL {
			delete(t.waiters, id)
			continue
		}
		if criteriaMatch(w.criteria, e) {
			matched = w
			delete(t.waiters, id)
			break
		}
	}
	t.mu.Unlock()

	if matched == nil {
		return false
	}
	matched.slot.resolve(e)
	return true
}

// size returns the number of registered waiters.
func (t *waitTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

// criteriaMatch reports whether the event satisfies the criteria: every
// criteria key must be present in the event with an equal value. A key absent
// from the event is a non-match.
func criteriaMatch(criteria map[string]any, e wire.Event) bool {
	for key, want := range criteria {
		got, ok := e[key]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
