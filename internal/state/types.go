package state

// Phase is the main machine state for one tracked role (content or ad).
// A tracker holds exactly one Phase at a time and mutates it only through
// the Go* guards.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseReady     Phase = "ready"
	PhaseRequested Phase = "requested"
	PhasePlaying   Phase = "playing"
	PhasePaused    Phase = "paused"
	PhaseBuffering Phase = "buffering"
	PhaseSeeking   Phase = "seeking"
	PhaseEnded     Phase = "ended"
)

// BufferType classifies the cause of a buffering episode.
type BufferType string

const (
	// BufferInitial is startup buffering: the episode begins before playback
	// starts, or within the initial-buffer threshold of the start mark while
	// no buffering has yet completed for the view.
	BufferInitial BufferType = "initial"

	// BufferSeek is buffering caused by an open seek.
	BufferSeek BufferType = "seek"

	// BufferOther is connection-induced buffering.
	BufferOther BufferType = "other"
)

// Shift is the direction of a rendition bitrate change.
type Shift string

const (
	ShiftUp   Shift = "up"
	ShiftDown Shift = "down"

	// ShiftNone means no change, or insufficient data to compare.
	ShiftNone Shift = ""
)

// Quartile is an ad playback progress checkpoint:
// 0/1/2/3/4 = start/25%/50%/75%/complete.
type Quartile int

// Valid reports whether q is one of the five checkpoints.
func (q Quartile) Valid() bool {
	return q >= 0 && q <= 4
}
