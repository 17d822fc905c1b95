package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/vireolabs/playpulse/internal/events"
	"github.com/vireolabs/playpulse/internal/sink"
)

// captureSink records every delivered beacon in order.
type captureSink struct {
	mu      sync.Mutex
	beacons []sink.Beacon
}

func (c *captureSink) Deliver(b sink.Beacon) {
	c.mu.Lock()
	c.beacons = append(c.beacons, b)
	c.mu.Unlock()
}

func (c *captureSink) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.beacons))
	for i, b := range c.beacons {
		out[i] = b.Name
	}
	return out
}

func (c *captureSink) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.beacons {
		if b.Name == name {
			n++
		}
	}
	return n
}

func (c *captureSink) last(name string) (sink.Beacon, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.beacons) - 1; i >= 0; i-- {
		if c.beacons[i].Name == name {
			return c.beacons[i], true
		}
	}
	return sink.Beacon{}, false
}

func (c *captureSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.beacons)
}

// fakeBinding overrides a few accessors over NopBinding defaults.
type fakeBinding struct {
	NopBinding
	videoID string
	title   string
	bitrate int64
}

func (f *fakeBinding) VideoID() string { return f.videoID }
func (f *fakeBinding) Title() string   { return f.title }
func (f *fakeBinding) Bitrate() int64  { return f.bitrate }

func newContentTracker(s sink.Sink) *VideoTracker {
	return NewVideo(nil, Options{Sink: s})
}

func TestDuplicateRequestSuppressed(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendRequest()
	v.SendRequest()

	if got := cs.count(events.ContentRequest); got != 1 {
		t.Errorf("CONTENT_REQUEST count = %d, want 1", got)
	}
}

func TestStartWithoutRequest(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendStart()

	if cs.len() != 0 {
		t.Errorf("beacons = %v, want none before a request", cs.names())
	}
}

func TestContentLifecycleNames(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendPlayerReady()
	v.SendRequest()
	v.SendStart()
	v.SendPause()
	v.SendResume()
	v.SendSeekStart()
	v.SendSeekEnd()
	v.SendEnd()

	want := []string{
		events.PlayerReady,
		events.ContentRequest,
		events.ContentStart,
		events.ContentPause,
		events.ContentResume,
		events.ContentSeekStart,
		events.ContentSeekEnd,
		events.ContentEnd,
	}
	got := cs.names()
	if len(got) != len(want) {
		t.Fatalf("beacon names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("beacon[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRenditionShiftSequence(t *testing.T) {
	cs := &captureSink{}
	fb := &fakeBinding{bitrate: 500}
	v := NewVideo(fb, Options{Sink: cs})
	defer v.Dispose()

	v.SendRequest()
	v.SendRenditionChanged() // baseline 500, no prior -> no shift
	fb.bitrate = 800
	v.SendRenditionChanged()
	fb.bitrate = 800
	v.SendRenditionChanged()
	fb.bitrate = 300
	v.SendRenditionChanged()

	c := cs
	c.mu.Lock()
	defer c.mu.Unlock()
	var shifts []any
	for _, b := range c.beacons {
		if b.Name == events.ContentRenditionChange {
			shifts = append(shifts, b.Attributes["shift"])
		}
	}
	want := []any{nil, "up", nil, "down"}
	if len(shifts) != len(want) {
		t.Fatalf("rendition beacons = %d, want %d", len(shifts), len(want))
	}
	for i := range want {
		if shifts[i] != want[i] {
			t.Errorf("shift[%d] = %v, want %v", i, shifts[i], want[i])
		}
	}
}

func TestBufferClassification(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendRequest()
	v.SendStart()
	v.SendBufferStart() // right after start -> initial
	v.SendBufferEnd()
	v.SendBufferStart() // already buffered once -> other
	v.SendBufferEnd()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	var types []any
	for _, b := range cs.beacons {
		if b.Name == events.ContentBufferStart {
			types = append(types, b.Attributes["bufferType"])
		}
	}
	want := []any{"initial", "other"}
	if len(types) != len(want) {
		t.Fatalf("buffer-start beacons = %d, want %d", len(types), len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("bufferType[%d] = %v, want %v", i, types[i], want[i])
		}
	}
}

func TestBufferDuringSeekClassifiesAsSeek(t *testing.T) {
	cs := &captureSink{}
	v := NewVideo(nil, Options{
		Sink:                   cs,
		InitialBufferThreshold: time.Millisecond,
	})
	defer v.Dispose()

	v.SendRequest()
	v.SendStart()
	time.Sleep(10 * time.Millisecond) // past the initial window
	v.SendSeekStart()
	v.SendBufferStart()

	b, ok := cs.last(events.ContentBufferStart)
	if !ok {
		t.Fatal("no CONTENT_BUFFER_START emitted")
	}
	if got := b.Attributes["bufferType"]; got != "seek" {
		t.Errorf("bufferType = %v, want seek", got)
	}
}

func TestEndIssuesNewViewID(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendRequest()
	before := v.ViewID()
	v.SendStart()
	v.SendEnd()
	after := v.ViewID()

	if before == after {
		t.Errorf("view id unchanged across end: %q", before)
	}

	b, ok := cs.last(events.ContentEnd)
	if !ok {
		t.Fatal("no CONTENT_END emitted")
	}
	if b.ViewID != before {
		t.Errorf("CONTENT_END view id = %q, want ending view %q", b.ViewID, before)
	}
}

func TestHeartbeatRequiresRequest(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendHeartbeat()
	if cs.len() != 0 {
		t.Errorf("beacons = %v, want none before a request", cs.names())
	}
}

func TestHeartbeatTicker(t *testing.T) {
	cs := &captureSink{}
	v := NewVideo(nil, Options{Sink: cs, HeartbeatInterval: 10 * time.Millisecond})

	v.SendRequest()
	time.Sleep(100 * time.Millisecond)
	v.Dispose()

	if got := cs.count(events.ContentHeartbeat); got < 3 {
		t.Errorf("heartbeat count = %d, want at least 3", got)
	}

	after := cs.len()
	time.Sleep(30 * time.Millisecond)
	// One tick may have been in flight at disposal, never more.
	if got := cs.len(); got > after+1 {
		t.Errorf("beacons kept arriving after dispose: %d -> %d", after, got)
	}
}

func TestAdOnlyOperationsGated(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendRequest()
	before := cs.len()
	v.SendAdBreakStart()
	v.SendAdQuartile(2)
	v.SendAdClick("https://example.com")
	v.SendAdBreakEnd()

	if cs.len() != before {
		t.Errorf("ad-scoped beacons emitted on content tracker: %v", cs.names()[before:])
	}
}

func TestMissingFieldsWarnButEmit(t *testing.T) {
	cs := &captureSink{}
	v := NewVideo(nil, Options{Sink: cs, IsAd: true})
	defer v.Dispose()

	v.SendDownload("")
	v.SendAdClick("")
	v.SendAdQuartile(9)

	for _, name := range []string{events.Download, events.AdClick, events.AdQuartile} {
		b, ok := cs.last(name)
		if !ok {
			t.Errorf("%s not emitted", name)
			continue
		}
		for _, field := range []string{"state", "url", "quartile"} {
			if _, present := b.Attributes[field]; present {
				t.Errorf("%s carries %q, want field absent", name, field)
			}
		}
	}
}

func TestCustomDataMerged(t *testing.T) {
	cs := &captureSink{}
	v := NewVideo(nil, Options{
		Sink:       cs,
		CustomData: map[string]any{"experiment": "b", "viewId": "spoofed"},
	})
	defer v.Dispose()

	v.SendRequest()

	b, ok := cs.last(events.ContentRequest)
	if !ok {
		t.Fatal("no CONTENT_REQUEST emitted")
	}
	if got := b.Attributes["experiment"]; got != "b" {
		t.Errorf("experiment = %v, want b", got)
	}
	if got := b.Attributes["viewId"]; got == "spoofed" {
		t.Error("custom data overrode the view id")
	}
}

func TestUnknownDefaultsInAttributeBag(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendRequest()

	b, _ := cs.last(events.ContentRequest)
	for _, key := range []string{"contentId", "contentTitle", "contentSrc", "playerName"} {
		if got := b.Attributes[key]; got != "unknown" {
			t.Errorf("%s = %v, want unknown", key, got)
		}
	}
	if _, present := b.Attributes["contentBitrate"]; present {
		t.Error("contentBitrate present, want omitted for zero value")
	}
}

func TestErrorBeforeRequestUsesGenericName(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	v.SendError("boom", "E1")
	v.SendRequest()
	v.SendError("boom again", "")

	if got := cs.count(events.Error); got != 1 {
		t.Errorf("ERROR count = %d, want 1", got)
	}
	if got := cs.count(events.ContentError); got != 1 {
		t.Errorf("CONTENT_ERROR count = %d, want 1", got)
	}
	b, _ := cs.last(events.ContentError)
	if got := b.Attributes["errorMessage"]; got != "boom again" {
		t.Errorf("errorMessage = %v, want boom again", got)
	}
	if _, present := b.Attributes["errorCode"]; present {
		t.Error("errorCode present, want omitted when empty")
	}
}

func TestDisposeIdempotent(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)

	v.SendRequest()
	v.Dispose()
	v.Dispose()

	before := cs.len()
	v.SendStart()
	v.SendEnd()
	if cs.len() != before {
		t.Errorf("beacons emitted after dispose: %v", cs.names()[before:])
	}
}

func TestAdFunnelEndToEnd(t *testing.T) {
	parentSink := &captureSink{}
	parent := NewVideo(&fakeBinding{videoID: "vid-1", title: "Main Feature"}, Options{Sink: parentSink})
	defer parent.Dispose()

	parent.SendRequest()
	started := time.Now()
	parent.SendStart()
	if !parent.IsPlaying() {
		t.Fatal("parent not playing after SendStart")
	}

	ad := NewVideo(&fakeBinding{videoID: "ad-7", title: "Spot"}, Options{})
	defer ad.Dispose()
	parent.SetAdsTracker(ad)
	if !ad.IsAd() {
		t.Fatal("child not forced into ad role")
	}

	ad.SendAdBreakStart()
	if parent.IsPlaying() {
		t.Error("parent still playing inside ad break")
	}

	ad.SendRequest()
	ad.SendStart()
	ad.SendAdQuartile(2)
	ad.SendEnd()
	ad.SendAdBreakEnd()

	if !parent.IsPlaying() {
		t.Error("parent not playing after ad break end")
	}
	if got := parent.AdsPlayed(); got != 1 {
		t.Errorf("AdsPlayed = %d, want 1", got)
	}

	for _, name := range []string{
		events.AdBreakStart, events.AdRequest, events.AdStart,
		events.AdQuartile, events.AdEnd, events.AdBreakEnd,
	} {
		if got := parentSink.count(name); got != 1 {
			t.Errorf("parent sink %s count = %d, want 1", name, got)
		}
	}

	bs, _ := parentSink.last(events.AdBreakStart)
	if got := bs.Attributes["adPosition"]; got != "mid" {
		t.Errorf("adPosition = %v, want mid", got)
	}

	time.Sleep(20 * time.Millisecond)
	parent.SendEnd()

	end, ok := parentSink.last(events.ContentEnd)
	if !ok {
		t.Fatal("no CONTENT_END emitted")
	}
	ts, _ := end.Attributes["timeSinceStarted"].(int64)
	elapsed := time.Since(started).Milliseconds()
	if ts <= 0 || ts > elapsed+50 {
		t.Errorf("timeSinceStarted = %d, want within (0, %d]", ts, elapsed+50)
	}
}

func TestPreRollAdPosition(t *testing.T) {
	parentSink := &captureSink{}
	parent := NewVideo(nil, Options{Sink: parentSink})
	defer parent.Dispose()
	parent.SendRequest() // requested but not yet started

	ad := NewVideo(nil, Options{})
	defer ad.Dispose()
	parent.SetAdsTracker(ad)

	ad.SendAdBreakStart()

	b, ok := parentSink.last(events.AdBreakStart)
	if !ok {
		t.Fatal("no AD_BREAK_START funneled")
	}
	if got := b.Attributes["adPosition"]; got != "pre" {
		t.Errorf("adPosition = %v, want pre", got)
	}
}

func TestAdStartSuspendsParentPlaytime(t *testing.T) {
	parent := NewVideo(nil, Options{Sink: &captureSink{}})
	defer parent.Dispose()
	parent.SendRequest()
	parent.SendStart()

	ad := NewVideo(nil, Options{})
	defer ad.Dispose()
	parent.SetAdsTracker(ad)

	ad.SendRequest()
	ad.SendStart()
	if parent.IsPlaying() {
		t.Error("parent playing while ad plays")
	}
	ad.SendEnd()
	if !parent.IsPlaying() {
		t.Error("parent not playing after ad ended")
	}
}

func TestFunnelDetachedOnDispose(t *testing.T) {
	parentSink := &captureSink{}
	parent := NewVideo(nil, Options{Sink: parentSink})
	ad := NewVideo(nil, Options{})
	defer ad.Dispose()
	parent.SetAdsTracker(ad)

	parent.Dispose()
	before := parentSink.len()
	ad.SendRequest()

	if parentSink.len() != before {
		t.Error("child beacons still funneled after parent dispose")
	}
}

func TestMutualAdFunnelRefused(t *testing.T) {
	aSink := &captureSink{}
	bSink := &captureSink{}
	a := NewVideo(nil, Options{Sink: aSink})
	defer a.Dispose()
	b := NewVideo(nil, Options{Sink: bSink})
	defer b.Dispose()

	a.SetAdsTracker(b)
	b.SetAdsTracker(a) // would make each tracker the other's ancestor

	// Must emit exactly once, not recurse through a funnel loop.
	a.SendRequest()

	if got := aSink.count(events.ContentRequest); got != 1 {
		t.Errorf("CONTENT_REQUEST count = %d, want 1", got)
	}
	if bSink.len() != 0 {
		t.Errorf("refused binding funneled beacons: %v", bSink.names())
	}
	if a.IsAd() {
		t.Error("refused binding forced tracker into the ad role")
	}
}

func TestAdFunnelChainCycleRefused(t *testing.T) {
	aSink := &captureSink{}
	a := NewVideo(nil, Options{Sink: aSink})
	defer a.Dispose()
	b := NewVideo(nil, Options{})
	defer b.Dispose()
	c := NewVideo(nil, Options{})
	defer c.Dispose()

	a.SetAdsTracker(b)
	b.SetAdsTracker(c)
	c.SetAdsTracker(a) // a is already c's ancestor

	c.SendRequest()

	// The beacon funnels up the chain to a exactly once and never loops.
	if got := aSink.count(events.AdRequest); got != 1 {
		t.Errorf("funneled AD_REQUEST count = %d, want 1", got)
	}
}

func TestSubscribeAllForwardsEveryBeacon(t *testing.T) {
	cs := &captureSink{}
	v := newContentTracker(cs)
	defer v.Dispose()

	var seen []string
	var mu sync.Mutex
	token := v.SubscribeAll(func(b sink.Beacon) {
		mu.Lock()
		seen = append(seen, b.Name)
		mu.Unlock()
	})

	v.SendRequest()
	v.UnsubscribeAll(token)
	v.SendStart()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != events.ContentRequest {
		t.Errorf("listener saw %v, want [CONTENT_REQUEST]", seen)
	}
}
