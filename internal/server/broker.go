package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/mayorkiosk/internal/kiosk"
	"github.com/playperu/mayorkiosk/internal/metrics"
)

// Broker is an in-process pub/sub that fans kiosk updates out to SSE and
// WebSocket subscribers.
type Broker struct {
	mu      sync.RWMutex
	subs    map[chan []byte]struct{}
	metrics *metrics.Metrics
}

func NewBroker(m *metrics.Metrics) *Broker {
	return &Broker{
		subs:    make(map[chan []byte]struct{}),
		metrics: m,
	}
}

// Subscribe returns a channel that receives JSON-encoded kiosk updates.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()
	b.gauge(n)
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	n := len(b.subs)
	b.mu.Unlock()
	b.gauge(n)
}

// Publish sends u to every subscriber. It never blocks.
func (b *Broker) Publish(u kiosk.Update) {
	data, _ := json.Marshal(u)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

func (b *Broker) gauge(n int) {
	if b.metrics != nil {
		b.metrics.Subscribers.Set(float64(n))
	}
}
