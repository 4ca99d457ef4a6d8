package live

import "sync"

// Broker fans out change signals per topic. Writers never block: each
// subscriber owns a one-slot signal channel, so bursts of changes coalesce
// into a single pending signal for slow consumers.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[int]chan struct{}
	nextID int
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{topics: make(map[string]map[int]chan struct{})}
}

// Subscribe registers a subscriber on the topic and returns its signal
// channel plus a cancel func. The channel is closed on cancel or broker
// shutdown.
func (b *Broker) Subscribe(topic string) (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan struct{}, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	if _, ok := b.topics[topic]; !ok {
		b.topics[topic] = make(map[int]chan struct{})
	}
	id := b.nextID
	b.nextID++
	b.topics[topic][id] = ch

	cancel := func() { b.unsubscribe(topic, id) }
	return ch, cancel
}

func (b *Broker) unsubscribe(topic string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		delete(subs, id)
		close(ch)
	}
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Publish signals every subscriber of the topic without blocking.
func (b *Broker) Publish(topic string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.topics[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close shuts the broker down and closes all subscriber channels so
// observers see end-of-stream instead of silence.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.topics {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.topics, topic)
	}
}
