// Package stream fans freshly computed priority snapshots out to live
// subscribers such as SSE clients.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mr1hm/go-evac-priority/internal/models"
)

const DefaultBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan *models.PrioritySnapshot
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	buffer      int
	gauge       prometheus.Gauge
	closed      bool
	mu          sync.RWMutex
}

// NewBroadcaster creates a broadcaster whose subscribers each buffer up to
// buffer snapshots. gauge, if non-nil, tracks the subscriber count.
func NewBroadcaster(buffer int, gauge prometheus.Gauge) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.PrioritySnapshot),
		buffer:      buffer,
		gauge:       gauge,
	}
}

// Subscribe registers a new listener. After Close the returned channel is
// already closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan *models.PrioritySnapshot) {
	id := b.nextID.Add(1)
	ch := make(chan *models.PrioritySnapshot, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	b.setGauge()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		b.setGauge()
	}
}

// Broadcast delivers s to every subscriber with room in its buffer and
// returns how many received it. Slow subscribers miss the snapshot.
func (b *Broadcaster) Broadcast(s *models.PrioritySnapshot) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, ch := range b.subscribers {
		select {
		case ch <- s:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}
	return delivered
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped reports snapshots skipped because a subscriber's buffer was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels so streams exit gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.setGauge()
}

func (b *Broadcaster) setGauge() {
	if b.gauge != nil {
		b.gauge.Set(float64(len(b.subscribers)))
	}
}
