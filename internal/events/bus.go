// Package events is the change-notification bus that store writes publish to
// and views subscribe to.
package events

import "sync"

// Topics.
const (
	TopicTask     = "task"
	TopicSchedule = "schedule"
)

// Change actions.
const (
	ActionPut    = "put"
	ActionDelete = "delete"
)

// Change describes a single-document write.
type Change struct {
	Topic  string
	Action string
	ID     string
	TeamID string
}

// Bus is a channel-based pub-sub bus. Publish never blocks: a full
// subscriber misses the change and picks up state on its next read.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Change
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Change)}
}

// Subscribe returns a channel receiving changes on the given topics and a
// func that removes the subscription and closes the channel. The func is
// safe to call more than once. bufSize defaults to 64 if <= 0.
func (b *Bus) Subscribe(bufSize int, topics ...string) (<-chan Change, func()) {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Change, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[int]chan Change)
		}
		b.subs[topic][id] = ch
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(id, ch, topics) })
	}
}

func (b *Bus) unsubscribe(id int, ch chan Change, topics []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, topic := range topics {
		delete(b.subs[topic], id)
	}
	close(ch)
}

// Publish delivers c to every subscriber of c.Topic.
func (b *Bus) Publish(c Change) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs[c.Topic] {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close closes every subscriber channel. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	seen := make(map[int]bool)
	for _, subs := range b.subs {
		for id, ch := range subs {
			if !seen[id] {
				seen[id] = true
				close(ch)
			}
		}
	}
}
