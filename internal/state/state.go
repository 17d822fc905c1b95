// Package state implements the tracker finite-state machine. Every playback
// lifecycle operation is a guarded transition: the guard returns true and
// performs its side effects only when the current phase permits it, so
// duplicate or out-of-order player signals are suppressed before any beacon
// is emitted.
//
// A TrackerState is owned by a single tracker and is not safe for concurrent
// use on its own; the owning tracker serialises access.
package state

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vireolabs/playpulse/internal/chrono"
)

// DefaultInitialBufferThresholdMS is the window after the start mark within
// which a first buffering episode still classifies as initial.
const DefaultInitialBufferThresholdMS = 100

// TrackerState holds the playback phase, time marks and accumulators for one
// tracked role (content or ad).
type TrackerState struct {
	phase          Phase
	preBufferPhase Phase
	preSeekPhase   Phase

	isAd bool

	sessionID string
	viewCount int64

	requested    bool
	started      bool
	bufferedOnce bool
	seekOpen     bool
	inAdBreak    bool

	playing          bool
	suspended        bool
	playClock        *chrono.Chrono
	totalPlaytime    int64
	lastViewPlaytime int64
	totalAdPlaytime  int64

	lastBufferType BufferType

	// Independent "last bitrate" slots per role.
	lastBitrate   int64
	lastAdBitrate int64

	initialBufferThresholdMS int64

	readyAt      mark
	requestedAt  mark
	startedAt    mark
	pausedAt     mark
	resumedAt    mark
	bufferBegin  mark
	bufferEnd    mark
	seekBegin    mark
	seekEnd      mark
	heartbeatAt  mark
	adBreakBegin mark
	adQuartileAt mark
	renditionAt  mark
	downloadAt   mark
	errorAt      mark
}

// New creates a TrackerState in the idle phase.
func New() *TrackerState {
	return &TrackerState{
		phase:                    PhaseIdle,
		initialBufferThresholdMS: DefaultInitialBufferThresholdMS,
	}
}

// SetAd marks the state as tracking the ad role. The role selects the
// rendition-shift slot and enables the ad playtime accumulator.
func (s *TrackerState) SetAd(isAd bool) { s.isAd = isAd }

// IsAd reports whether the state tracks the ad role.
func (s *TrackerState) IsAd() bool { return s.isAd }

// SetInitialBufferThresholdMS overrides the initial-buffer classification
// window. Non-positive values restore the default.
func (s *TrackerState) SetInitialBufferThresholdMS(ms int64) {
	if ms <= 0 {
		ms = DefaultInitialBufferThresholdMS
	}
	s.initialBufferThresholdMS = ms
}

// Phase returns the current machine phase.
func (s *TrackerState) Phase() Phase { return s.phase }

// IsRequested reports whether the current view has passed REQUESTED and not
// yet ended. Heartbeats before a request are skipped on this predicate.
func (s *TrackerState) IsRequested() bool { return s.requested }

// IsStarted reports whether playback has started for the current view.
func (s *TrackerState) IsStarted() bool { return s.started }

// IsPlaying reports whether playtime is currently accruing: the phase is
// PLAYING and no ad has suspended the clock.
func (s *TrackerState) IsPlaying() bool { return s.phase == PhasePlaying && !s.suspended }

// InAdBreak reports whether the ad-break super-state is open.
func (s *TrackerState) InAdBreak() bool { return s.inAdBreak }

// SessionID returns the session identifier, generating it on first access.
// Once issued it is stable for the lifetime of the state.
func (s *TrackerState) SessionID() string {
	if s.sessionID == "" {
		s.sessionID = uuid.NewString()
	}
	return s.sessionID
}

// ViewID returns the identifier of the current view. It is derived from the
// session id and the view counter, so it changes only when GoViewCountUp
// advances the counter.
func (s *TrackerState) ViewID() string {
	return fmt.Sprintf("%s-%d", s.SessionID(), s.viewCount)
}

// ViewCount returns the number of completed views.
func (s *TrackerState) ViewCount() int64 { return s.viewCount }

// GoViewCountUp issues the next view id by advancing the view counter.
func (s *TrackerState) GoViewCountUp() { s.viewCount++ }

// GoPlayerReady transitions IDLE -> READY. Valid once.
func (s *TrackerState) GoPlayerReady() bool {
	if s.phase != PhaseIdle {
		return false
	}
	s.phase = PhaseReady
	s.readyAt.set()
	return true
}

// GoRequest opens a new view. Valid from IDLE, READY or ENDED.
func (s *TrackerState) GoRequest() bool {
	switch s.phase {
	case PhaseIdle, PhaseReady, PhaseEnded:
	default:
		return false
	}
	s.phase = PhaseRequested
	s.requested = true
	s.started = false
	s.bufferedOnce = false
	s.seekOpen = false
	s.lastBufferType = ""
	s.requestedAt.set()
	return true
}

// GoStart marks the first frame of playback. Valid once per view, from
// REQUESTED or from a post-buffer/seek/pause sub-state.
func (s *TrackerState) GoStart() bool {
	if s.started {
		return false
	}
	switch s.phase {
	case PhaseRequested, PhaseBuffering, PhaseSeeking, PhasePaused:
	default:
		return false
	}
	s.started = true
	s.seekOpen = false
	s.phase = PhasePlaying
	s.startedAt.set()
	s.startPlaytime()
	return true
}

// GoPause transitions PLAYING -> PAUSED.
func (s *TrackerState) GoPause() bool {
	if s.phase != PhasePlaying {
		return false
	}
	s.phase = PhasePaused
	s.pausedAt.set()
	s.flushPlaytime()
	return true
}

// GoResume transitions PAUSED -> PLAYING. The paused mark is left in place
// so the resume beacon can report the pause duration.
func (s *TrackerState) GoResume() bool {
	if s.phase != PhasePaused {
		return false
	}
	s.phase = PhasePlaying
	s.seekOpen = false
	s.resumedAt.set()
	s.startPlaytime()
	return true
}

// GoBufferStart enters BUFFERING, remembering the phase that was active so
// GoBufferEnd can restore it. The episode is classified at entry.
func (s *TrackerState) GoBufferStart() bool {
	if !s.requested || s.phase == PhaseBuffering {
		return false
	}
	switch s.phase {
	case PhaseRequested, PhasePlaying, PhasePaused, PhaseSeeking:
	default:
		return false
	}
	s.lastBufferType = s.CalculateBufferType(s.IsInitialBuffering())
	s.preBufferPhase = s.phase
	s.phase = PhaseBuffering
	s.bufferBegin.set()
	s.flushPlaytime()
	return true
}

// GoBufferEnd leaves BUFFERING and restores the prior phase.
func (s *TrackerState) GoBufferEnd() bool {
	if s.phase != PhaseBuffering {
		return false
	}
	s.phase = s.preBufferPhase
	s.bufferedOnce = true
	s.bufferEnd.set()
	if s.phase == PhasePlaying {
		s.startPlaytime()
	}
	return true
}

// GoSeekStart enters SEEKING, remembering the phase that was active.
func (s *TrackerState) GoSeekStart() bool {
	if !s.requested {
		return false
	}
	switch s.phase {
	case PhaseRequested, PhasePlaying, PhasePaused:
	default:
		return false
	}
	s.preSeekPhase = s.phase
	s.phase = PhaseSeeking
	s.seekOpen = true
	s.seekBegin.set()
	s.flushPlaytime()
	return true
}

// GoSeekEnd leaves SEEKING and restores the prior phase. Returning to
// PLAYING closes the seek for buffer classification purposes.
func (s *TrackerState) GoSeekEnd() bool {
	if s.phase != PhaseSeeking {
		return false
	}
	s.phase = s.preSeekPhase
	s.seekEnd.set()
	if s.phase == PhasePlaying {
		s.seekOpen = false
		s.startPlaytime()
	}
	return true
}

// GoEnd closes the current view: playtime is flushed and zeroed, the view
// counter advances and the phase returns to ENDED. Valid from any active
// sub-state of an open view.
func (s *TrackerState) GoEnd() bool {
	if !s.requested {
		return false
	}
	s.flushPlaytime()
	s.lastViewPlaytime = s.totalPlaytime
	if s.isAd {
		s.totalAdPlaytime += s.totalPlaytime
	}
	s.totalPlaytime = 0
	s.phase = PhaseEnded
	s.requested = false
	s.started = false
	s.bufferedOnce = false
	s.seekOpen = false
	s.GoViewCountUp()
	return true
}

// GoAdBreakStart opens the ad-break super-state, recording the break mark
// and zeroing the ad playtime accumulator.
func (s *TrackerState) GoAdBreakStart() bool {
	if s.inAdBreak {
		return false
	}
	s.inAdBreak = true
	s.totalAdPlaytime = 0
	s.adBreakBegin.set()
	return true
}

// GoAdBreakEnd closes the ad-break super-state.
func (s *TrackerState) GoAdBreakEnd() bool {
	if !s.inAdBreak {
		return false
	}
	s.inAdBreak = false
	return true
}

// GoAdQuartile records an ad quartile checkpoint. Side-channel: always
// succeeds and does not alter the phase.
func (s *TrackerState) GoAdQuartile() bool {
	s.adQuartileAt.set()
	return true
}

// GoDownload records a download progress signal. Side-channel.
func (s *TrackerState) GoDownload() bool {
	s.downloadAt.set()
	return true
}

// GoError records an error signal. The phase is left untouched so terminal
// events can still fire afterwards.
func (s *TrackerState) GoError() bool {
	s.errorAt.set()
	return true
}

// GoRenditionChange records a rendition change signal. Side-channel.
func (s *TrackerState) GoRenditionChange() bool {
	s.renditionAt.set()
	return true
}

// GoHeartbeat re-marks the heartbeat reference time. Heartbeats before a
// request are skipped.
func (s *TrackerState) GoHeartbeat() bool {
	if !s.requested {
		return false
	}
	s.heartbeatAt.set()
	return true
}

// IsInitialBuffering reports whether a buffering episode beginning now would
// count as startup buffering: nothing has buffered yet for this view, and
// playback either has not started or started within the threshold window.
func (s *TrackerState) IsInitialBuffering() bool {
	if s.bufferedOnce {
		return false
	}
	if !s.started {
		return true
	}
	ms, ok := s.startedAt.since()
	return ok && ms <= s.initialBufferThresholdMS
}

// CalculateBufferType classifies a buffering episode: initial when the
// episode is startup buffering, seek when an open seek precedes it, other
// (connection-induced) in every remaining case.
func (s *TrackerState) CalculateBufferType(isInitialBuffering bool) BufferType {
	if isInitialBuffering {
		return BufferInitial
	}
	if s.seekOpen || s.phase == PhaseSeeking {
		return BufferSeek
	}
	return BufferOther
}

// LastBufferType returns the classification recorded by the most recent
// GoBufferStart, or "" when no episode has occurred this view.
func (s *TrackerState) LastBufferType() BufferType { return s.lastBufferType }

// GetRenditionShift compares the current bitrate against the last recorded
// bitrate for the matching role and returns the shift direction. ShiftNone
// is returned when either value is absent or they are equal. When
// saveSnapshot is true the current bitrate becomes the new baseline.
func (s *TrackerState) GetRenditionShift(current int64, saveSnapshot bool) Shift {
	slot := &s.lastBitrate
	if s.isAd {
		slot = &s.lastAdBitrate
	}

	last := *slot
	if saveSnapshot && current > 0 {
		*slot = current
	}

	if last <= 0 || current <= 0 || last == current {
		return ShiftNone
	}
	if current > last {
		return ShiftUp
	}
	return ShiftDown
}

// TotalPlaytime returns the milliseconds of playback accumulated for the
// current view, including any interval still running.
func (s *TrackerState) TotalPlaytime() int64 {
	if s.playing {
		return s.totalPlaytime + s.playClock.Elapsed()
	}
	return s.totalPlaytime
}

// LastViewPlaytime returns the playtime of the most recently ended view.
func (s *TrackerState) LastViewPlaytime() int64 { return s.lastViewPlaytime }

// TotalAdPlaytime returns the milliseconds of ad playback accumulated since
// the last ad-break start. Only meaningful on the ad role.
func (s *TrackerState) TotalAdPlaytime() int64 {
	if s.isAd && s.playing {
		return s.totalAdPlaytime + s.playClock.Elapsed()
	}
	return s.totalAdPlaytime
}

// SuspendPlaytime pauses playtime accrual without changing the phase. Used
// by a parent tracker while one of its ads is playing.
func (s *TrackerState) SuspendPlaytime() {
	if s.suspended {
		return
	}
	s.flushPlaytime()
	s.suspended = true
}

// ResumePlaytime reverses SuspendPlaytime.
func (s *TrackerState) ResumePlaytime() {
	if !s.suspended {
		return
	}
	s.suspended = false
	if s.phase == PhasePlaying {
		s.startPlaytime()
	}
}

func (s *TrackerState) startPlaytime() {
	if s.playing || s.suspended {
		return
	}
	s.playing = true
	if s.playClock == nil {
		s.playClock = chrono.New()
		return
	}
	s.playClock.Mark()
}

func (s *TrackerState) flushPlaytime() {
	if !s.playing {
		return
	}
	s.playing = false
	s.totalPlaytime += s.playClock.Elapsed()
}

// TimeSinceRequested returns the milliseconds since the current view was
// requested. The boolean is false when the mark has never been set.
func (s *TrackerState) TimeSinceRequested() (int64, bool) { return s.requestedAt.since() }

// TimeSinceStarted returns the milliseconds since playback started.
func (s *TrackerState) TimeSinceStarted() (int64, bool) { return s.startedAt.since() }

// TimeSincePaused returns the milliseconds since the last pause.
func (s *TrackerState) TimeSincePaused() (int64, bool) { return s.pausedAt.since() }

// TimeSinceResumed returns the milliseconds since the last resume.
func (s *TrackerState) TimeSinceResumed() (int64, bool) { return s.resumedAt.since() }

// TimeSinceBufferBegin returns the milliseconds since the current or most
// recent buffering episode began.
func (s *TrackerState) TimeSinceBufferBegin() (int64, bool) { return s.bufferBegin.since() }

// TimeSinceSeekBegin returns the milliseconds since the current or most
// recent seek began.
func (s *TrackerState) TimeSinceSeekBegin() (int64, bool) { return s.seekBegin.since() }

// TimeSinceSeekEnd returns the milliseconds since the last seek completed.
func (s *TrackerState) TimeSinceSeekEnd() (int64, bool) { return s.seekEnd.since() }

// TimeSinceLastHeartbeat returns the milliseconds since the last heartbeat.
func (s *TrackerState) TimeSinceLastHeartbeat() (int64, bool) { return s.heartbeatAt.since() }

// TimeSinceAdBreakBegin returns the milliseconds since the current ad break
// started.
func (s *TrackerState) TimeSinceAdBreakBegin() (int64, bool) { return s.adBreakBegin.since() }

// TimeSinceLastAdQuartile returns the milliseconds since the previous ad
// quartile checkpoint.
func (s *TrackerState) TimeSinceLastAdQuartile() (int64, bool) { return s.adQuartileAt.since() }

// TimeSinceLastRenditionChange returns the milliseconds since the previous
// rendition change.
func (s *TrackerState) TimeSinceLastRenditionChange() (int64, bool) { return s.renditionAt.since() }
