package tracker

// PlayerBinding is the read-only view a tracker has of the host player. A
// concrete binding adapts a real media element; every accessor is best-effort
// and may return its zero value when the player cannot supply it. String
// fields that come back empty are reported as "unknown" in attribute bags,
// numeric fields that come back zero are omitted.
type PlayerBinding interface {
	VideoID() string
	Title() string
	Src() string
	PlayerName() string
	PlayerVersion() string
	Language() string
	Rendition() string
	Preload() string

	DurationMS() int64
	PlayheadMS() int64
	Bitrate() int64
	DecodedBytes() int64
	PlaybackRate() float64

	IsMuted() bool
	IsFullscreen() bool
	IsAutoplayed() bool

	// PageURL returns the host page location. Bindings without a host
	// context return an error and the field is omitted.
	PageURL() (string, error)
}

// NopBinding is a PlayerBinding with no backing player. All accessors return
// zero values. Useful for tests and for trackers driven purely by Send calls.
type NopBinding struct{}

func (NopBinding) VideoID() string          { return "" }
func (NopBinding) Title() string            { return "" }
func (NopBinding) Src() string              { return "" }
func (NopBinding) PlayerName() string       { return "" }
func (NopBinding) PlayerVersion() string    { return "" }
func (NopBinding) Language() string         { return "" }
func (NopBinding) Rendition() string        { return "" }
func (NopBinding) Preload() string          { return "" }
func (NopBinding) DurationMS() int64        { return 0 }
func (NopBinding) PlayheadMS() int64        { return 0 }
func (NopBinding) Bitrate() int64           { return 0 }
func (NopBinding) DecodedBytes() int64      { return 0 }
func (NopBinding) PlaybackRate() float64    { return 0 }
func (NopBinding) IsMuted() bool            { return false }
func (NopBinding) IsFullscreen() bool       { return false }
func (NopBinding) IsAutoplayed() bool       { return false }
func (NopBinding) PageURL() (string, error) { return "", errNoHostPage }
