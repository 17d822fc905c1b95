package tracker

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/vireolabs/playpulse/internal/events"
	"github.com/vireolabs/playpulse/internal/sink"
	"github.com/vireolabs/playpulse/internal/state"
)

// VideoTracker instruments one playback role, content or ad. Every Send
// operation delegates to the state-machine guard, assembles the attribute
// bag and delivers the beacon; a rejected guard suppresses the beacon
// entirely. A content tracker may hold one child ad tracker whose beacons
// are funneled through the parent's sink unchanged.
type VideoTracker struct {
	*Tracker

	binding PlayerBinding
	state   *state.TrackerState

	isAd   bool
	parent *VideoTracker

	ads           *VideoTracker
	adFunnelToken int
	adsPlayed     int64
}

// NewVideo creates a VideoTracker over the given binding. A nil binding
// falls back to NopBinding so the tracker can be driven by Send calls alone.
func NewVideo(binding PlayerBinding, opts Options) *VideoTracker {
	if binding == nil {
		binding = NopBinding{}
	}
	v := &VideoTracker{
		Tracker: newBase(opts.Sink, nopLogger()),
		binding: binding,
		state:   state.New(),
	}
	v.beat = v.SendHeartbeat
	v.SetOptions(opts)
	return v
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// SessionID returns the tracker's session identifier.
func (v *VideoTracker) SessionID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.SessionID()
}

// ViewID returns the identifier of the current view.
func (v *VideoTracker) ViewID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.ViewID()
}

// IsAd reports whether this tracker emits in the ad namespace.
func (v *VideoTracker) IsAd() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isAd
}

// IsPlaying reports whether playtime is accruing right now.
func (v *VideoTracker) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.IsPlaying()
}

// AdsPlayed returns how many child ad views have completed.
func (v *VideoTracker) AdsPlayed() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.adsPlayed
}

// SetAdsTracker binds child as this tracker's ad tracker: the child is
// forced into the ad role, linked back to this parent, and every beacon it
// emits is forwarded verbatim through this tracker's sink. A binding that
// would make any tracker its own ancestor is refused, since a funnel cycle
// re-enters deliver without bound.
func (v *VideoTracker) SetAdsTracker(child *VideoTracker) {
	if child == nil || child == v {
		return
	}
	if v.funnelCycle(child) {
		v.mu.Lock()
		log := v.log
		v.mu.Unlock()
		log.Warn().Msg("ads tracker binding refused: funnel cycle")
		return
	}

	v.mu.Lock()
	if v.disposed || v.ads == child {
		v.mu.Unlock()
		return
	}
	prev := v.ads
	prevToken := v.adFunnelToken
	v.ads = child
	v.mu.Unlock()

	if prev != nil {
		prev.UnsubscribeAll(prevToken)
		prev.setParent(nil)
	}

	child.mu.Lock()
	child.isAd = true
	child.state.SetAd(true)
	child.parent = v
	child.mu.Unlock()

	token := child.SubscribeAll(v.deliver)
	v.mu.Lock()
	v.adFunnelToken = token
	v.mu.Unlock()
}

func (v *VideoTracker) setParent(p *VideoTracker) {
	v.mu.Lock()
	v.parent = p
	v.mu.Unlock()
}

// funnelCycle reports whether binding child under v would close a loop:
// child's existing funnel already reaches v, or child is an ancestor of v.
// Each link is read under its own tracker's lock, never two at once.
func (v *VideoTracker) funnelCycle(child *VideoTracker) bool {
	for t := child.adsChild(); t != nil; t = t.adsChild() {
		if t == v {
			return true
		}
	}
	for t := v.parentTracker(); t != nil; t = t.parentTracker() {
		if t == child {
			return true
		}
	}
	return false
}

func (v *VideoTracker) adsChild() *VideoTracker {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ads
}

func (v *VideoTracker) parentTracker() *VideoTracker {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.parent
}

// SendPlayerReady emits PLAYER_READY once, when the host player comes up.
func (v *VideoTracker) SendPlayerReady() {
	v.mu.Lock()
	if v.disposed || !v.state.GoPlayerReady() {
		v.mu.Unlock()
		return
	}
	b := v.beaconLocked(events.PlayerReady, v.assembleLocked(nil))
	v.mu.Unlock()
	v.deliver(b)
}

// SendRequest opens a new view and starts the heartbeat.
func (v *VideoTracker) SendRequest() {
	v.mu.Lock()
	if v.disposed || !v.state.GoRequest() {
		v.mu.Unlock()
		return
	}
	name := events.Name(events.KindRequest, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(nil))
	v.mu.Unlock()
	v.deliver(b)
	v.StartHeartbeat()
}

// SendStart marks the first frame. On an ad tracker it suspends the
// parent's playtime clock.
func (v *VideoTracker) SendStart() {
	v.mu.Lock()
	if v.disposed || !v.state.GoStart() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{}
	if ms, ok := v.state.TimeSinceRequested(); ok {
		extra["timeSinceRequested"] = ms
	}
	name := events.Name(events.KindStart, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	isAd := v.isAd
	parent := v.parent
	v.mu.Unlock()

	v.deliver(b)
	if isAd && parent != nil {
		parent.suspendPlaytime()
	}
}

// SendPause emits a pause beacon with the playtime accumulated so far.
func (v *VideoTracker) SendPause() {
	v.mu.Lock()
	if v.disposed || !v.state.GoPause() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{"totalPlaytime": v.state.TotalPlaytime()}
	name := events.Name(events.KindPause, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendResume emits a resume beacon reporting the pause duration.
func (v *VideoTracker) SendResume() {
	v.mu.Lock()
	if v.disposed || !v.state.GoResume() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{}
	if ms, ok := v.state.TimeSincePaused(); ok {
		extra["timeSincePaused"] = ms
	}
	name := events.Name(events.KindResume, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendSeekStart opens a seek episode.
func (v *VideoTracker) SendSeekStart() {
	v.mu.Lock()
	if v.disposed || !v.state.GoSeekStart() {
		v.mu.Unlock()
		return
	}
	name := events.Name(events.KindSeekStart, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(nil))
	v.mu.Unlock()
	v.deliver(b)
}

// SendSeekEnd closes the seek episode and reports its duration.
func (v *VideoTracker) SendSeekEnd() {
	v.mu.Lock()
	if v.disposed || !v.state.GoSeekEnd() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{}
	if ms, ok := v.state.TimeSinceSeekBegin(); ok {
		extra["timeSinceSeekBegin"] = ms
	}
	name := events.Name(events.KindSeekEnd, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendBufferStart opens a buffering episode, classified at entry as
// initial, seek or other.
func (v *VideoTracker) SendBufferStart() {
	v.mu.Lock()
	if v.disposed || !v.state.GoBufferStart() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{"bufferType": string(v.state.LastBufferType())}
	name := events.Name(events.KindBufferStart, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendBufferEnd closes the buffering episode and reports its duration.
func (v *VideoTracker) SendBufferEnd() {
	v.mu.Lock()
	delta, hasDelta := v.state.TimeSinceBufferBegin()
	if v.disposed || !v.state.GoBufferEnd() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{"bufferType": string(v.state.LastBufferType())}
	if hasDelta {
		extra["timeSinceBufferBegin"] = delta
	}
	name := events.Name(events.KindBufferEnd, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendHeartbeat emits the periodic keep-alive. Skipped before a request.
// The delta is read before the guard re-marks the reference time.
func (v *VideoTracker) SendHeartbeat() {
	v.mu.Lock()
	delta, hasDelta := v.state.TimeSinceLastHeartbeat()
	if v.disposed || !v.state.GoHeartbeat() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{"totalPlaytime": v.state.TotalPlaytime()}
	if hasDelta {
		extra["timeSinceLastHeartbeat"] = delta
	}
	name := events.Name(events.KindHeartbeat, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendRenditionChanged reports a quality switch. The shift direction is
// computed against the last bitrate recorded for this role, and the current
// bitrate becomes the new baseline.
func (v *VideoTracker) SendRenditionChanged() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	delta, hasDelta := v.state.TimeSinceLastRenditionChange()
	v.state.GoRenditionChange()
	extra := map[string]any{}
	if shift := v.state.GetRenditionShift(v.binding.Bitrate(), true); shift != state.ShiftNone {
		extra["shift"] = string(shift)
	}
	if hasDelta {
		extra["timeSinceLastRenditionChange"] = delta
	}
	name := events.Name(events.KindRenditionChange, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendDownload reports download progress. A missing state label is warned
// about but the beacon is still emitted.
func (v *VideoTracker) SendDownload(stateLabel string) {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.state.GoDownload()
	extra := map[string]any{}
	if stateLabel == "" {
		v.log.Warn().Msg("download event without state label")
	} else {
		extra["state"] = stateLabel
	}
	b := v.beaconLocked(events.Download, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendError reports a playback error. The phase is left untouched so
// terminal events can still fire. Errors before any request go out under
// the role-independent ERROR name.
func (v *VideoTracker) SendError(message, code string) {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.state.GoError()
	extra := map[string]any{}
	if message != "" {
		extra["errorMessage"] = message
	}
	if code != "" {
		extra["errorCode"] = code
	}
	name := events.Error
	if v.state.IsRequested() {
		name = events.Name(events.KindError, v.isAd)
	}
	b := v.beaconLocked(name, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendEnd closes the current view: the beacon carries the ending view's id
// and its total playtime, the heartbeat stops, and on an ad tracker the
// parent's playtime clock resumes.
func (v *VideoTracker) SendEnd() {
	v.mu.Lock()
	endingView := v.state.ViewID()
	tsStarted, hasStarted := v.state.TimeSinceStarted()
	tsRequested, hasRequested := v.state.TimeSinceRequested()
	if v.disposed || !v.state.GoEnd() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{
		"viewId":        endingView,
		"totalPlaytime": v.state.LastViewPlaytime(),
	}
	if hasStarted {
		extra["timeSinceStarted"] = tsStarted
	}
	if hasRequested {
		extra["timeSinceRequested"] = tsRequested
	}
	name := events.Name(events.KindEnd, v.isAd)
	b := v.beaconLocked(name, v.assembleLocked(extra))
	isAd := v.isAd
	parent := v.parent
	inBreak := v.state.InAdBreak()
	v.mu.Unlock()

	v.deliver(b)
	v.StopHeartbeat()
	if isAd && parent != nil {
		parent.resumePlaytime()
		if inBreak {
			parent.noteAdEnded()
		}
	}
}

// SendAdBreakStart opens the ad-break super-state: the ad playtime
// accumulator is zeroed and the parent's playtime clock suspends. Ad
// trackers only.
func (v *VideoTracker) SendAdBreakStart() {
	v.mu.Lock()
	if v.disposed || !v.isAd || !v.state.GoAdBreakStart() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{}
	if parent := v.parent; parent != nil {
		pos := "mid"
		if !parent.hasStarted() {
			pos = "pre"
		}
		extra["adPosition"] = pos
	}
	b := v.beaconLocked(events.AdBreakStart, v.assembleLocked(extra))
	parent := v.parent
	v.mu.Unlock()

	v.deliver(b)
	if parent != nil {
		parent.suspendPlaytime()
	}
}

// SendAdBreakEnd closes the ad break, reporting its wall-clock duration and
// the ad playtime accumulated inside it, and resumes the parent's clock.
func (v *VideoTracker) SendAdBreakEnd() {
	v.mu.Lock()
	if v.disposed || !v.isAd || !v.state.GoAdBreakEnd() {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{"totalAdPlaytime": v.state.TotalAdPlaytime()}
	if ms, ok := v.state.TimeSinceAdBreakBegin(); ok {
		extra["timeSinceAdBreakBegin"] = ms
	}
	b := v.beaconLocked(events.AdBreakEnd, v.assembleLocked(extra))
	parent := v.parent
	v.mu.Unlock()

	v.deliver(b)
	if parent != nil {
		parent.resumePlaytime()
	}
}

// SendAdQuartile records an ad progress checkpoint, 0 through 4. Values
// outside that range are warned about and the field is left out.
func (v *VideoTracker) SendAdQuartile(quartile state.Quartile) {
	v.mu.Lock()
	if v.disposed || !v.isAd {
		v.mu.Unlock()
		return
	}
	delta, hasDelta := v.state.TimeSinceLastAdQuartile()
	v.state.GoAdQuartile()
	extra := map[string]any{}
	if !quartile.Valid() {
		v.log.Warn().Int("quartile", int(quartile)).Msg("ad quartile out of range")
	} else {
		extra["quartile"] = int64(quartile)
	}
	if hasDelta {
		extra["timeSinceLastAdQuartile"] = delta
	}
	b := v.beaconLocked(events.AdQuartile, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// SendAdClick records a click-through on the playing ad. A missing URL is
// warned about but the beacon is still emitted.
func (v *VideoTracker) SendAdClick(url string) {
	v.mu.Lock()
	if v.disposed || !v.isAd {
		v.mu.Unlock()
		return
	}
	extra := map[string]any{}
	if url == "" {
		v.log.Warn().Msg("ad click without url")
	} else {
		extra["url"] = url
	}
	b := v.beaconLocked(events.AdClick, v.assembleLocked(extra))
	v.mu.Unlock()
	v.deliver(b)
}

// Dispose tears the tracker down: the heartbeat stops, host listeners are
// unregistered before the binding is cleared, and the ad funnel detaches.
// Idempotent; Send calls after disposal are no-ops.
func (v *VideoTracker) Dispose() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.disposed = true
	stop := v.hbStop
	v.hbStop = nil
	ads := v.ads
	token := v.adFunnelToken
	v.ads = nil
	v.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	v.UnregisterListeners()
	if ads != nil {
		ads.UnsubscribeAll(token)
		ads.setParent(nil)
	}

	v.mu.Lock()
	v.binding = NopBinding{}
	v.listeners = nil
	v.mu.Unlock()
}

func (v *VideoTracker) suspendPlaytime() {
	v.mu.Lock()
	v.state.SuspendPlaytime()
	v.mu.Unlock()
}

func (v *VideoTracker) resumePlaytime() {
	v.mu.Lock()
	v.state.ResumePlaytime()
	v.mu.Unlock()
}

func (v *VideoTracker) noteAdEnded() {
	v.mu.Lock()
	v.adsPlayed++
	v.mu.Unlock()
}

func (v *VideoTracker) hasStarted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.IsStarted()
}

// beaconLocked wraps an assembled bag into a Beacon. The viewId attribute is
// authoritative so SendEnd can pin the ending view's id.
func (v *VideoTracker) beaconLocked(name string, attrs map[string]any) sink.Beacon {
	vid, _ := attrs["viewId"].(string)
	return sink.Beacon{
		SessionID:  v.state.SessionID(),
		ViewID:     vid,
		IsAd:       v.isAd,
		Name:       name,
		Attributes: attrs,
		Timestamp:  time.Now(),
	}
}

// assembleLocked builds the final attribute bag: custom data first, then
// identity, then the role namespace from the binding, then the event's own
// attributes. Later layers win on key collisions. Caller holds the mutex.
func (v *VideoTracker) assembleLocked(event map[string]any) map[string]any {
	attrs := v.customSnapshot()

	attrs["trackerName"] = InstrumentName
	attrs["trackerVersion"] = InstrumentVersion
	attrs["sessionId"] = v.state.SessionID()
	attrs["viewId"] = v.state.ViewID()
	attrs["playerName"] = strOrUnknown(v.binding.PlayerName())
	attrs["playerVersion"] = strOrUnknown(v.binding.PlayerVersion())
	if url, err := v.binding.PageURL(); err == nil && url != "" {
		attrs["pageUrl"] = url
	}

	p := "content"
	if v.isAd {
		p = "ad"
	}
	attrs[p+"Id"] = strOrUnknown(v.binding.VideoID())
	attrs[p+"Title"] = strOrUnknown(v.binding.Title())
	attrs[p+"Src"] = strOrUnknown(v.binding.Src())
	attrs[p+"Language"] = strOrUnknown(v.binding.Language())
	attrs[p+"Rendition"] = strOrUnknown(v.binding.Rendition())
	attrs[p+"Preload"] = strOrUnknown(v.binding.Preload())
	if d := v.binding.DurationMS(); d > 0 {
		attrs[p+"Duration"] = d
	}
	if ph := v.binding.PlayheadMS(); ph > 0 {
		attrs[p+"Playhead"] = ph
	}
	if br := v.binding.Bitrate(); br > 0 {
		attrs[p+"Bitrate"] = br
	}
	if db := v.binding.DecodedBytes(); db > 0 {
		attrs[p+"DecodedBytes"] = db
	}
	if rate := v.binding.PlaybackRate(); rate > 0 {
		attrs["playbackRate"] = rate
	}
	attrs[p+"IsMuted"] = v.binding.IsMuted()
	attrs[p+"IsFullscreen"] = v.binding.IsFullscreen()
	attrs[p+"IsAutoplayed"] = v.binding.IsAutoplayed()

	for k, val := range event {
		attrs[k] = val
	}
	return attrs
}

func strOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
