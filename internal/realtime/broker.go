package realtime

import (
	"sync"

	"map-chat/internal/chat"
)

// Broker fans group snapshots out to in-process subscribers.
// Each subscriber holds at most one pending snapshot, a newer one replaces it.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
	seq  map[string]uint64
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[*subscription]struct{}),
		seq:  make(map[string]uint64),
	}
}

type subscription struct {
	broker  *Broker
	groupID string
	ch      chan chat.Snapshot
	closed  bool
}

func (s *subscription) Updates() <-chan chat.Snapshot {
	return s.ch
}

func (s *subscription) Cancel() {
	s.broker.remove(s)
}

// subscribe registers a subscriber and returns the publish sequence it was registered at
func (b *Broker) subscribe(groupID string) (*subscription, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{broker: b, groupID: groupID, ch: make(chan chat.Snapshot, 1)}
	if b.subs[groupID] == nil {
		b.subs[groupID] = make(map[*subscription]struct{})
	}
	b.subs[groupID][sub] = struct{}{}

	return sub, b.seq[groupID]
}

// offer delivers the initial snapshot unless a publish already happened after seq
func (b *Broker) offer(sub *subscription, snap chat.Snapshot, seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.closed || b.seq[sub.groupID] != seq {
		return
	}
	deliver(sub, snap)
}

// Publish delivers snap to every subscriber of its group
func (b *Broker) Publish(groupID string, snap chat.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq[groupID]++
	for sub := range b.subs[groupID] {
		deliver(sub, snap)
	}
}

// Subscribers returns the number of live subscribers of a group
func (b *Broker) Subscribers(groupID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[groupID])
}

func (b *Broker) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true
	delete(b.subs[sub.groupID], sub)
	if len(b.subs[sub.groupID]) == 0 {
		delete(b.subs, sub.groupID)
	}
	close(sub.ch)
}

// deliver replaces a pending snapshot, callers hold b.mu
func deliver(sub *subscription, snap chat.Snapshot) {
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- snap
}
