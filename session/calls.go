package session

import (
	"sync"

	"github.com/relaywf/relay-go/wire"
)

// callTable is the correlation table: request id to pending-operation slot.
// Entries are created at send time and removed exactly once, by the matching
// response or by the sender's timeout path.
type callTable struct {
	mu      sync.Mutex
	pending map[string]*slot
}

func newCallTable() *callTable {
	return &callTable{pending: make(map[string]*slot)}
}

// issue generates a fresh request id with an unresolved slot and registers
// the pair. Registration happens before the request is transmitted so a fast
// response cannot arrive ahead of its entry.
func (t *callTable) issue() (string, *slot) {
	id := newID()
	sl := newSlot()
	t.mu.Lock()
	t.pending[id] = sl
	t.mu.Unlock()
	return id, sl
}

// issueWithID registers a caller-chosen id. Used by operations that embed the
// request id into follow-up event criteria.
func (t *callTable) issueWithID(id string) *slot {
	sl := newSlot()
	t.mu.Lock()
	t.pending[id] = sl
	t.mu.Unlock()
	return sl
}

// resolveEvent removes the entry for the response's correlation id and
// resolves its slot. Returns false when the id matches nothing, which the
// session logs and discards.
func (t *callTable) resolveEvent(id string, e wire.Event) bool {
	t.mu.Lock()
	sl, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	sl.resolve(e)
	return true
}

// remove drops a pending entry without resolving it, e.g. after a timeout.
func (t *callTable) remove(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// size returns the number of in-flight requests.
func (t *callTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
