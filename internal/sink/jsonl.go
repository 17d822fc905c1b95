package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// jsonlEntry is the JSON structure written by JSONL, one object per line.
type jsonlEntry struct {
	Timestamp  string         `json:"ts"`
	SessionID  string         `json:"session"`
	ViewID     string         `json:"view"`
	Ad         bool           `json:"ad,omitempty"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attrs,omitempty"`
}

// JSONL writes beacons to an io.Writer as JSON lines. Useful as a debug tee
// and as a minimal durable sink.
type JSONL struct {
	w  io.Writer
	mu sync.Mutex
}

// NewJSONL creates a JSONL sink writing to w.
func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{w: w}
}

// Deliver writes one JSON line per beacon. Serialisation errors are silently
// dropped to keep delivery fire-and-forget.
func (s *JSONL) Deliver(b Beacon) {
	ts := b.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	entry := jsonlEntry{
		Timestamp:  ts.UTC().Format(time.RFC3339Nano),
		SessionID:  b.SessionID,
		ViewID:     b.ViewID,
		Ad:         b.IsAd,
		Name:       b.Name,
		Attributes: b.Attributes,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s\n", data)
}
