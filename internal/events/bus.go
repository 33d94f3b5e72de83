// Package events is the cart core's notification channel: zero-payload
// signals telling any interested consumer that the cart or the auth state
// changed. The bus deliberately carries no data so consumers always re-read
// the current source of truth instead of trusting a stale payload.
package events

import (
	"sync"

	"github.com/huyndq/phonecart/internal/metrics"
)

type Signal string

const (
	SignalCartChanged Signal = "cart-changed"
	SignalAuthChanged Signal = "auth-changed"
)

type Handler func()

type entry struct {
	id uint64
	fn Handler
}

// Bus is an injectable publish-subscribe instance. Emit invokes the
// currently registered listeners synchronously, in registration order, on
// the calling goroutine. There is no queuing and no replay for late
// subscribers.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	entries map[Signal][]entry
}

func NewBus() *Bus {
	return &Bus{entries: make(map[Signal][]entry)}
}

// Subscription is the handle a subscriber must release when it goes away.
type Subscription struct {
	bus    *Bus
	signal Signal
	id     uint64
}

func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	listeners := s.bus.entries[s.signal]
	for i, e := range listeners {
		if e.id == s.id {
			s.bus.entries[s.signal] = append(listeners[:i], listeners[i+1:]...)
			break
		}
	}

	s.bus = nil
}

func (b *Bus) Subscribe(signal Signal, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.entries[signal] = append(b.entries[signal], entry{id: b.nextID, fn: fn})

	return &Subscription{bus: b, signal: signal, id: b.nextID}
}

// Emit fires the signal to every current listener. Handlers run on the
// caller's goroutine; a handler that subscribes or unsubscribes during
// delivery affects future emissions only.
func (b *Bus) Emit(signal Signal) {
	b.mu.Lock()
	listeners := make([]entry, len(b.entries[signal]))
	copy(listeners, b.entries[signal])
	b.mu.Unlock()

	metrics.ObserveSignal(string(signal))

	for _, e := range listeners {
		e.fn()
	}
}

func (b *Bus) EmitCartChanged() {
	b.Emit(SignalCartChanged)
}

func (b *Bus) EmitAuthChanged() {
	b.Emit(SignalAuthChanged)
}
