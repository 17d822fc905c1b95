package tracker

// Instrument identity attached to every beacon.
const (
	InstrumentName    = "playpulse"
	InstrumentVersion = "0.1.0"
)
