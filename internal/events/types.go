package events

import "time"

// FormattedEvent holds a display-ready beacon with metadata for filtering.
type FormattedEvent struct {
	ViewID    string
	SessionID string
	Name      string // wire name, e.g. CONTENT_START
	Ad        bool
	Formatted string // display-ready string
	Timestamp time.Time
}
