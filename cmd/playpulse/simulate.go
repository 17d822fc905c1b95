package main

import (
	"context"
	"sync"
	"time"

	"github.com/vireolabs/playpulse/internal/state"
	"github.com/vireolabs/playpulse/internal/tracker"
)

// scriptedBinding is a PlayerBinding whose fields the simulation mutates as
// "playback" progresses.
type scriptedBinding struct {
	mu sync.Mutex

	videoID  string
	title    string
	src      string
	language string

	durationMS int64
	playheadMS int64
	bitrate    int64
	rendition  string

	muted    bool
	autoplay bool
}

func (b *scriptedBinding) set(fn func(*scriptedBinding)) {
	b.mu.Lock()
	fn(b)
	b.mu.Unlock()
}

func (b *scriptedBinding) VideoID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.videoID
}

func (b *scriptedBinding) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title
}

func (b *scriptedBinding) Src() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.src
}

func (b *scriptedBinding) Language() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.language
}

func (b *scriptedBinding) DurationMS() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.durationMS
}

func (b *scriptedBinding) PlayheadMS() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playheadMS
}

func (b *scriptedBinding) Bitrate() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bitrate
}

func (b *scriptedBinding) Rendition() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rendition
}

func (b *scriptedBinding) IsMuted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.muted
}

func (b *scriptedBinding) IsAutoplayed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.autoplay
}

func (b *scriptedBinding) PlayerName() string       { return "sim-player" }
func (b *scriptedBinding) PlayerVersion() string    { return "1.0.0" }
func (b *scriptedBinding) Preload() string          { return "auto" }
func (b *scriptedBinding) DecodedBytes() int64      { return 0 }
func (b *scriptedBinding) PlaybackRate() float64    { return 1.0 }
func (b *scriptedBinding) IsFullscreen() bool       { return false }
func (b *scriptedBinding) PageURL() (string, error) { return "https://demo.playpulse.dev/watch", nil }

// simulation drives a scripted playback session against the trackers so the
// dashboard has live data: pre-roll ad break, content with buffering, seeks,
// rendition switches, a mid-roll break, then end.
type simulation struct {
	content *tracker.VideoTracker
	ads     *tracker.VideoTracker

	contentBinding *scriptedBinding
	adBinding      *scriptedBinding

	// step is the base pause between scripted signals.
	step time.Duration
}

func newSimulation(content, ads *tracker.VideoTracker, cb, ab *scriptedBinding, step time.Duration) *simulation {
	if step <= 0 {
		step = 400 * time.Millisecond
	}
	return &simulation{
		content:        content,
		ads:            ads,
		contentBinding: cb,
		adBinding:      ab,
		step:           step,
	}
}

// run plays scripted views until the context is cancelled. In one-shot mode
// it returns after a single view.
func (s *simulation) run(ctx context.Context, oneShot bool) {
	episode := 0
	for {
		s.playView(ctx, episode)
		episode++
		if oneShot || ctx.Err() != nil {
			return
		}
		if !s.pause(ctx, 2*s.step) {
			return
		}
	}
}

func (s *simulation) playView(ctx context.Context, episode int) {
	titles := []string{"Big Buck Bunny", "Sintel", "Tears of Steel"}
	s.contentBinding.set(func(b *scriptedBinding) {
		b.videoID = "vid-" + titles[episode%len(titles)][:3]
		b.title = titles[episode%len(titles)]
		b.src = "https://cdn.playpulse.dev/stream.m3u8"
		b.language = "en"
		b.durationMS = 596000
		b.playheadMS = 0
		b.bitrate = 1200
		b.rendition = "720p"
		b.autoplay = episode == 0
	})

	s.content.SendPlayerReady()
	s.content.SendRequest()
	if !s.pause(ctx, s.step) {
		return
	}

	// Pre-roll break before the first frame.
	s.playAdBreak(ctx, "spot-pre")
	if ctx.Err() != nil {
		return
	}

	s.content.SendStart()
	s.content.SendBufferStart()
	if !s.pause(ctx, s.step/2) {
		return
	}
	s.content.SendBufferEnd()
	if !s.pause(ctx, 2*s.step) {
		return
	}

	s.contentBinding.set(func(b *scriptedBinding) {
		b.bitrate = 2400
		b.rendition = "1080p"
		b.playheadMS = 15000
	})
	s.content.SendRenditionChanged()
	if !s.pause(ctx, s.step) {
		return
	}

	s.content.SendSeekStart()
	if !s.pause(ctx, s.step/2) {
		return
	}
	s.content.SendSeekEnd()
	s.content.SendBufferStart()
	if !s.pause(ctx, s.step/2) {
		return
	}
	s.content.SendBufferEnd()
	if !s.pause(ctx, s.step) {
		return
	}

	s.content.SendPause()
	if !s.pause(ctx, s.step) {
		return
	}
	s.content.SendResume()
	if !s.pause(ctx, 2*s.step) {
		return
	}

	// Mid-roll break.
	s.playAdBreak(ctx, "spot-mid")
	if ctx.Err() != nil {
		return
	}

	s.contentBinding.set(func(b *scriptedBinding) {
		b.bitrate = 800
		b.rendition = "480p"
		b.playheadMS = 420000
	})
	s.content.SendRenditionChanged()
	if !s.pause(ctx, s.step) {
		return
	}

	s.content.SendEnd()
}

func (s *simulation) playAdBreak(ctx context.Context, adID string) {
	s.adBinding.set(func(b *scriptedBinding) {
		b.videoID = adID
		b.title = adID
		b.src = "https://ads.playpulse.dev/" + adID + ".mp4"
		b.durationMS = 15000
		b.bitrate = 600
		b.rendition = "480p"
	})

	s.ads.SendAdBreakStart()
	s.ads.SendRequest()
	s.ads.SendStart()
	for q := state.Quartile(1); q <= 4; q++ {
		if !s.pause(ctx, s.step/2) {
			return
		}
		s.ads.SendAdQuartile(q)
	}
	s.ads.SendAdClick("https://advertiser.example/landing")
	s.ads.SendEnd()
	s.ads.SendAdBreakEnd()
}

func (s *simulation) pause(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
