// Package events defines the beacon catalogue consumed by analytics
// backends, plus formatting and buffering for live display.
package events

// Event names delivered to the sink. Backends consume these unchanged.
const (
	PlayerReady = "PLAYER_READY"
	Download    = "DOWNLOAD"
	Error       = "ERROR"

	ContentRequest         = "CONTENT_REQUEST"
	ContentStart           = "CONTENT_START"
	ContentEnd             = "CONTENT_END"
	ContentPause           = "CONTENT_PAUSE"
	ContentResume          = "CONTENT_RESUME"
	ContentSeekStart       = "CONTENT_SEEK_START"
	ContentSeekEnd         = "CONTENT_SEEK_END"
	ContentBufferStart     = "CONTENT_BUFFER_START"
	ContentBufferEnd       = "CONTENT_BUFFER_END"
	ContentHeartbeat       = "CONTENT_HEARTBEAT"
	ContentRenditionChange = "CONTENT_RENDITION_CHANGE"
	ContentError           = "CONTENT_ERROR"

	AdRequest         = "AD_REQUEST"
	AdStart           = "AD_START"
	AdEnd             = "AD_END"
	AdPause           = "AD_PAUSE"
	AdResume          = "AD_RESUME"
	AdSeekStart       = "AD_SEEK_START"
	AdSeekEnd         = "AD_SEEK_END"
	AdBufferStart     = "AD_BUFFER_START"
	AdBufferEnd       = "AD_BUFFER_END"
	AdHeartbeat       = "AD_HEARTBEAT"
	AdRenditionChange = "AD_RENDITION_CHANGE"
	AdError           = "AD_ERROR"

	AdBreakStart = "AD_BREAK_START"
	AdBreakEnd   = "AD_BREAK_END"
	AdQuartile   = "AD_QUARTILE"
	AdClick      = "AD_CLICK"
)

// Kind is a role-independent lifecycle event. The tracker role picks the
// wire name from the content or ad column.
type Kind int

const (
	KindRequest Kind = iota
	KindStart
	KindEnd
	KindPause
	KindResume
	KindSeekStart
	KindSeekEnd
	KindBufferStart
	KindBufferEnd
	KindHeartbeat
	KindRenditionChange
	KindError
)

var contentNames = map[Kind]string{
	KindRequest:         ContentRequest,
	KindStart:           ContentStart,
	KindEnd:             ContentEnd,
	KindPause:           ContentPause,
	KindResume:          ContentResume,
	KindSeekStart:       ContentSeekStart,
	KindSeekEnd:         ContentSeekEnd,
	KindBufferStart:     ContentBufferStart,
	KindBufferEnd:       ContentBufferEnd,
	KindHeartbeat:       ContentHeartbeat,
	KindRenditionChange: ContentRenditionChange,
	KindError:           ContentError,
}

var adNames = map[Kind]string{
	KindRequest:         AdRequest,
	KindStart:           AdStart,
	KindEnd:             AdEnd,
	KindPause:           AdPause,
	KindResume:          AdResume,
	KindSeekStart:       AdSeekStart,
	KindSeekEnd:         AdSeekEnd,
	KindBufferStart:     AdBufferStart,
	KindBufferEnd:       AdBufferEnd,
	KindHeartbeat:       AdHeartbeat,
	KindRenditionChange: AdRenditionChange,
	KindError:           AdError,
}

// Name returns the wire name for a lifecycle event in the given role.
func Name(k Kind, isAd bool) string {
	if isAd {
		return adNames[k]
	}
	return contentNames[k]
}
