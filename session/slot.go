package session

import (
	"encoding/hex"
	"sync"

	"github.com/google/uuid"

	"github.com/relaywf/relay-go/wire"
)

// slot is a single-assignment, single-read synchronisation cell. It is created
// before its request or wait is registered, receives exactly one resolution,
// and is awaited by exactly one routine.
type slot struct {
	ch   chan wire.Event
	once sync.Once
}

func newSlot() *slot {
	return &slot{ch: make(chan wire.Event, 1)}
}

// resolve records the slot's value. Extra resolutions are discarded, so a
// waiter that already timed out can never be resumed a second time by a late
// arrival.
func (s *slot) resolve(e wire.Event) {
	s.once.Do(func() {
		s.ch <- e
	})
}

// newID generates a correlation/waiter id. Collision probability is treated
// as zero; ids are unique across all sessions, not just one.
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
