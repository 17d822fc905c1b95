package sink

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// ViewData aggregates the beacons observed for a single view.
type ViewData struct {
	ViewID    string
	SessionID string
	IsAd      bool

	StartedAt    time.Time
	LastBeaconAt time.Time

	Beacons []Beacon
	Counts  map[string]int

	// StartupMS is timeSinceRequested as reported on the start beacon.
	StartupMS int64

	// PlaytimeMS is totalPlaytime as reported on the end beacon.
	PlaytimeMS int64

	// RebufferCount counts buffer-start beacons not classified as initial.
	RebufferCount int

	Ended bool
}

// Listener is a callback invoked after a beacon is stored. Listeners are
// called outside the collector lock and must not call back into the
// collector in a way that acquires a write lock.
type Listener func(b Beacon)

// Memory is a thread-safe in-memory collector indexing beacons by view id.
// It backs tests, the demo TUI and the stats summary.
type Memory struct {
	mu        sync.RWMutex
	views     map[string]*ViewData
	order     []string
	listeners []Listener
}

// NewMemory creates an empty collector.
func NewMemory() *Memory {
	return &Memory{views: make(map[string]*ViewData)}
}

// OnBeacon registers a listener that is called after every Deliver.
// Listeners are invoked synchronously outside the collector lock.
func (m *Memory) OnBeacon(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Deliver stores the beacon and updates the per-view aggregates.
func (m *Memory) Deliver(b Beacon) {
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now()
	}

	m.mu.Lock()

	v, ok := m.views[b.ViewID]
	if !ok {
		v = &ViewData{
			ViewID:    b.ViewID,
			SessionID: b.SessionID,
			IsAd:      b.IsAd,
			StartedAt: b.Timestamp,
			Counts:    make(map[string]int),
		}
		m.views[b.ViewID] = v
		m.order = append(m.order, b.ViewID)
	}

	v.Beacons = append(v.Beacons, b)
	v.Counts[b.Name]++
	v.LastBeaconAt = b.Timestamp

	switch {
	case strings.HasSuffix(b.Name, "_BUFFER_START"):
		if bt, _ := b.Attributes["bufferType"].(string); bt != "initial" {
			v.RebufferCount++
		}
	case b.Name == "CONTENT_START" || b.Name == "AD_START":
		v.StartupMS = attrInt64(b.Attributes, "timeSinceRequested")
	case b.Name == "CONTENT_END" || b.Name == "AD_END":
		v.PlaytimeMS = attrInt64(b.Attributes, "totalPlaytime")
		v.Ended = true
	}

	listeners := m.listeners
	m.mu.Unlock()

	// Notify outside the lock to prevent deadlocks.
	for _, fn := range listeners {
		fn(b)
	}
}

// GetView returns a snapshot of the aggregates for the given view id, or
// nil if no beacon for it has been seen.
func (m *Memory) GetView(viewID string) *ViewData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.views[viewID]
	if !ok {
		return nil
	}
	return copyView(v)
}

// ListViews returns snapshots of all views in first-seen order.
func (m *Memory) ListViews() []ViewData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ViewData, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *copyView(m.views[id]))
	}
	return result
}

// BeaconNames returns every distinct beacon name observed, sorted.
func (m *Memory) BeaconNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, v := range m.views {
		for name := range v.Counts {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalBeacons returns the number of beacons stored across all views.
func (m *Memory) TotalBeacons() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	for _, v := range m.views {
		n += len(v.Beacons)
	}
	return n
}

// copyView returns a deep copy so callers cannot mutate internal state.
func copyView(v *ViewData) *ViewData {
	cp := *v
	if len(v.Beacons) > 0 {
		cp.Beacons = make([]Beacon, len(v.Beacons))
		copy(cp.Beacons, v.Beacons)
	}
	if len(v.Counts) > 0 {
		cp.Counts = make(map[string]int, len(v.Counts))
		for k, n := range v.Counts {
			cp.Counts[k] = n
		}
	}
	return &cp
}

// attrInt64 reads a numeric attribute regardless of how it was boxed.
func attrInt64(attrs map[string]any, key string) int64 {
	switch n := attrs[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
