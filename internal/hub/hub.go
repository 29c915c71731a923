package hub

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jpalmerr/sitepulse/internal/store"
)

// DefaultBuffer is the per-observer queue depth used when none is configured.
const DefaultBuffer = 16

// ErrClosed is returned by [Hub.Subscribe] after [Hub.Close].
var ErrClosed = errors.New("hub closed")

// Stats is a point-in-time view of hub counters.
type Stats struct {
	// Observers is the number of currently connected observers.
	Observers int `json:"observers"`

	// Published is the number of snapshots published.
	Published uint64 `json:"published"`

	// Dropped is the number of queued snapshots discarded because an
	// observer fell behind.
	Dropped uint64 `json:"dropped"`
}

// Observer is one connected consumer of snapshots.
//
// Snapshots arrive on [Observer.C] in publish order. An observer is
// connected from [Hub.Subscribe] until it is unsubscribed or the hub is
// closed; at that point it is marked disconnected and the channel is closed.
type Observer struct {
	id        uuid.UUID
	ch        chan *store.Snapshot
	hub       *Hub
	connected atomic.Bool
	dropped   atomic.Uint64
}

// ID returns the observer's unique identifier.
func (o *Observer) ID() uuid.UUID {
	return o.id
}

// C returns the delivery channel.
func (o *Observer) C() <-chan *store.Snapshot {
	return o.ch
}

// Connected reports whether the observer still receives snapshots.
func (o *Observer) Connected() bool {
	return o.connected.Load()
}

// Dropped returns how many snapshots were discarded for this observer.
func (o *Observer) Dropped() uint64 {
	return o.dropped.Load()
}

// Close unsubscribes the observer from its hub.
func (o *Observer) Close() {
	o.hub.Unsubscribe(o)
}

// Hub fans snapshots out to every connected observer.
//
// Each observer owns a bounded queue. When a queue is full the oldest queued
// snapshot is discarded to make room, so a slow observer always converges on
// the newest state and never blocks [Hub.Publish] or other observers.
//
// A new observer receives the latest snapshot immediately on subscribe. The
// latest snapshot and the observer set are guarded by the same lock, so an
// observer never misses a publish that races its subscription and never sees
// the same snapshot twice.
type Hub struct {
	mu        sync.Mutex
	latest    *store.Snapshot
	observers map[uuid.UUID]*Observer
	closed    bool

	buffer int
	logger *slog.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a [Hub] seeded with initial as the latest snapshot.
//
// buffer is the per-observer queue depth ([DefaultBuffer] if <= 0). A nil
// logger falls back to slog.Default().
func New(initial *store.Snapshot, buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		latest:    initial,
		observers: make(map[uuid.UUID]*Observer),
		buffer:    buffer,
		logger:    logger,
	}
}

// Subscribe registers a new observer and queues the latest snapshot for it.
//
// Callers must call [Hub.Unsubscribe] when the observer disconnects.
func (h *Hub) Subscribe() (*Observer, error) {
	o := &Observer{
		id:  uuid.New(),
		ch:  make(chan *store.Snapshot, h.buffer),
		hub: h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	h.observers[o.id] = o
	o.connected.Store(true)
	if h.latest != nil {
		o.ch <- h.latest
	}

	h.logger.Debug("observer subscribed", "observer_id", o.id.String(), "observers", len(h.observers))
	return o, nil
}

// Unsubscribe removes o and closes its channel.
//
// Safe to call multiple times, with nil, or after [Hub.Close].
func (h *Hub) Unsubscribe(o *Observer) {
	if o == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.observers[o.id]; !ok {
		return
	}
	delete(h.observers, o.id)
	o.connected.Store(false)
	close(o.ch)

	h.logger.Debug("observer unsubscribed", "observer_id", o.id.String(), "observers", len(h.observers))
}

// Publish makes snap the latest snapshot and delivers it to every observer.
//
// Publish never blocks on observers. A snapshot whose sequence number is not
// newer than the current latest is ignored.
func (h *Hub) Publish(snap *store.Snapshot) {
	if snap == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if h.latest != nil && snap.Seq() <= h.latest.Seq() {
		h.logger.Debug("ignoring stale snapshot", "seq", snap.Seq(), "latest_seq", h.latest.Seq())
		return
	}

	h.latest = snap
	h.published.Add(1)

	for _, o := range h.observers {
		h.deliver(o, snap)
	}
}

// deliver enqueues snap for o, discarding the oldest queued snapshot when
// the queue is full. Must be called with h.mu held; Publish is the only
// sender, so after one receive there is room for the send.
func (h *Hub) deliver(o *Observer, snap *store.Snapshot) {
	select {
	case o.ch <- snap:
		return
	default:
	}

	select {
	case <-o.ch:
		o.dropped.Add(1)
		h.dropped.Add(1)
		h.logger.Debug("observer behind, dropped oldest snapshot", "observer_id", o.id.String())
	default:
		// observer drained the queue in the meantime
	}

	select {
	case o.ch <- snap:
	default:
	}
}

// Latest returns the most recently published snapshot.
func (h *Hub) Latest() *store.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Len returns the number of connected observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// Stats returns the current hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Observers: h.Len(),
		Published: h.published.Load(),
		Dropped:   h.dropped.Load(),
	}
}

// Close unsubscribes every observer and rejects new subscriptions.
// Close is idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, o := range h.observers {
		delete(h.observers, id)
		o.connected.Store(false)
		close(o.ch)
	}
}
