package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/vireolabs/playpulse/internal/sink"
)

// Options configures a VideoTracker. Zero-valued fields leave the current
// setting untouched, so Options can be applied incrementally via SetOptions.
type Options struct {
	// IsAd marks the tracker as an ad tracker. The flag selects the ad
	// event-name table and the ad* attribute namespace. It cannot be
	// cleared once the tracker has emitted a beacon.
	IsAd bool

	// HeartbeatInterval is the period of the recurring heartbeat.
	HeartbeatInterval time.Duration

	// InitialBufferThreshold is the window after start within which a
	// first buffering episode still classifies as initial.
	InitialBufferThreshold time.Duration

	// CustomData is merged into every outgoing attribute bag.
	CustomData map[string]any

	Sink   sink.Sink
	Logger *zerolog.Logger

	// AdsTracker binds a child ad tracker, as SetAdsTracker does.
	AdsTracker *VideoTracker

	// ParentTracker links this tracker to its content parent. Normally
	// assigned by the parent's SetAdsTracker.
	ParentTracker *VideoTracker
}

// SetOptions applies the non-zero fields of opts.
func (v *VideoTracker) SetOptions(opts Options) {
	v.mu.Lock()
	if opts.IsAd && !v.isAd {
		v.isAd = true
		v.state.SetAd(true)
	}
	if opts.HeartbeatInterval > 0 {
		v.interval = opts.HeartbeatInterval
	}
	if opts.InitialBufferThreshold > 0 {
		v.state.SetInitialBufferThresholdMS(opts.InitialBufferThreshold.Milliseconds())
	}
	if opts.Sink != nil {
		v.sink = opts.Sink
	}
	if opts.Logger != nil {
		v.log = *opts.Logger
	}
	if opts.ParentTracker != nil {
		v.parent = opts.ParentTracker
	}
	v.mu.Unlock()

	if opts.CustomData != nil {
		v.SetCustomData(opts.CustomData)
	}
	if opts.AdsTracker != nil {
		v.SetAdsTracker(opts.AdsTracker)
	}
}
