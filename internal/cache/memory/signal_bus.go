// Package memory implements the bus and cache interfaces in process. It is
// the default when Redis is not configured.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 1024

type subscriber struct {
	ch chan []byte
}

// SignalBus fans each published payload out to every subscriber of the
// channel. A full subscriber queue drops the payload for that subscriber
// only; Publish never blocks.
type SignalBus struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscriber]struct{}
	buffer  int
	dropped atomic.Int64
}

// NewSignalBus creates a bus whose subscribers queue up to buffer payloads.
func NewSignalBus(buffer int) *SignalBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &SignalBus{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Publish delivers payload to the current subscribers of channel.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs[channel] {
		select {
		case s.ch <- payload:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers a subscriber. The returned channel is closed after ctx
// is cancelled.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	s := &subscriber{ch: make(chan []byte, b.buffer)}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscriber]struct{})
	}
	b.subs[channel][s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], s)
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		close(s.ch)
		b.mu.Unlock()
	}()

	return s.ch, nil
}

// Dropped reports how many payloads were discarded for slow subscribers.
func (b *SignalBus) Dropped() int64 {
	return b.dropped.Load()
}

var _ domain.SignalBus = (*SignalBus)(nil)
