// Package tracker implements playback instrumentation: a base tracker owning
// heartbeat scheduling, custom-data merging and beacon delivery, and a
// VideoTracker that assembles the full attribute bag per lifecycle event and
// composes a content tracker with a child ad tracker.
package tracker

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vireolabs/playpulse/internal/sink"
)

var errNoHostPage = errors.New("tracker: no host page context")

// DefaultHeartbeatInterval is used when no interval is configured.
const DefaultHeartbeatInterval = 30 * time.Second

type listener struct {
	token int
	fn    func(sink.Beacon)
}

// Tracker is the base instrumentation capability: it owns the sink, the
// logger, the merged custom data and the heartbeat timer. VideoTracker embeds
// it and supplies the per-event surface.
//
// The mutex serialises every Send call against the heartbeat goroutine; the
// host player is expected to deliver callbacks one at a time, but the
// heartbeat tick arrives on its own goroutine.
type Tracker struct {
	mu sync.Mutex

	sink   sink.Sink
	log    zerolog.Logger
	custom map[string]any

	interval time.Duration
	beat     func() // invoked on every heartbeat tick
	hbStop   chan struct{}

	listeners []listener
	nextToken int

	disposed bool
}

func newBase(s sink.Sink, log zerolog.Logger) *Tracker {
	return &Tracker{
		sink:     s,
		log:      log,
		interval: DefaultHeartbeatInterval,
	}
}

// SetCustomData merges key/value pairs into every subsequent attribute bag.
// Identity and derived attributes take precedence over custom keys.
func (t *Tracker) SetCustomData(data map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.custom == nil {
		t.custom = make(map[string]any, len(data))
	}
	for k, v := range data {
		t.custom[k] = v
	}
}

// StartHeartbeat begins the recurring heartbeat timer. Calling it while a
// timer is already running is a no-op.
func (t *Tracker) StartHeartbeat() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed || t.hbStop != nil || t.beat == nil || t.interval <= 0 {
		return
	}
	stop := make(chan struct{})
	t.hbStop = stop
	beat := t.beat
	interval := t.interval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				beat()
			}
		}
	}()
}

// StopHeartbeat cancels the heartbeat timer. Idempotent.
func (t *Tracker) StopHeartbeat() {
	t.mu.Lock()
	stop := t.hbStop
	t.hbStop = nil
	t.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// SubscribeAll registers fn to receive every beacon this tracker emits,
// after sink delivery. The returned token unregisters it.
func (t *Tracker) SubscribeAll(fn func(sink.Beacon)) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextToken++
	t.listeners = append(t.listeners, listener{token: t.nextToken, fn: fn})
	return t.nextToken
}

// UnsubscribeAll removes the listener registered under token.
func (t *Tracker) UnsubscribeAll(token int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, l := range t.listeners {
		if l.token == token {
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

// RegisterListeners attaches host player callbacks. A no-op at this layer;
// concrete host bindings override the behaviour by driving Send calls.
func (t *Tracker) RegisterListeners() {}

// UnregisterListeners detaches host player callbacks. No-op counterpart to
// RegisterListeners.
func (t *Tracker) UnregisterListeners() {}

// deliver sends the beacon to the sink and then notifies subscribers.
// Must be called without the mutex held; listeners run outside the lock.
func (t *Tracker) deliver(b sink.Beacon) {
	t.mu.Lock()
	s := t.sink
	ls := make([]listener, len(t.listeners))
	copy(ls, t.listeners)
	t.mu.Unlock()

	if s != nil {
		s.Deliver(b)
	}
	for _, l := range ls {
		l.fn(b)
	}
}

// customSnapshot returns a fresh attribute bag seeded with the custom data.
// Caller must hold the mutex.
func (t *Tracker) customSnapshot() map[string]any {
	attrs := make(map[string]any, len(t.custom)+24)
	for k, v := range t.custom {
		attrs[k] = v
	}
	return attrs
}
