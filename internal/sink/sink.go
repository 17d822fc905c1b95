// Package sink defines the delivery boundary for playback beacons and the
// sinks that ship with the tracker: an in-memory collector, a JSONL writer,
// a SQLite store and an OTLP log exporter.
//
// Delivery is fire-and-forget from the tracker's perspective: sinks never
// return errors to the caller and degrade by dropping or warn-logging.
package sink

import "time"

// Beacon is one emitted lifecycle event: the tracker identity, the event
// name from the catalogue, and the assembled attribute bag.
type Beacon struct {
	SessionID  string
	ViewID     string
	IsAd       bool
	Name       string
	Attributes map[string]any
	Timestamp  time.Time
}

// Sink receives beacons from a tracker.
type Sink interface {
	Deliver(b Beacon)
}

// Multi fans a beacon out to several sinks in order.
type Multi []Sink

// Deliver sends the beacon to every member sink.
func (m Multi) Deliver(b Beacon) {
	for _, s := range m {
		s.Deliver(b)
	}
}
