package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/vireolabs/playpulse/internal/sink"
)

// FormatBeacon converts an emitted beacon into a display-ready
// FormattedEvent. Each lifecycle kind gets its own one-line rendering:
//   - request:    "[view] Requested title"
//   - start:      "[view] Started title (startup 0.3s)"
//   - buffer end: "[view] Buffered 1.2s (other)"
//   - end:        "[view] Ended (playtime 93.0s)"
func FormatBeacon(b sink.Beacon) FormattedEvent {
	fe := FormattedEvent{
		ViewID:    b.ViewID,
		SessionID: b.SessionID,
		Name:      b.Name,
		Ad:        b.IsAd,
		Timestamp: b.Timestamp,
	}
	if fe.Timestamp.IsZero() {
		fe.Timestamp = time.Now()
	}

	view := shortID(b.ViewID)

	switch {
	case b.Name == PlayerReady:
		fe.Formatted = fmt.Sprintf("[%s] Player ready (%s %s)",
			view, attrStr(b, "playerName"), attrStr(b, "playerVersion"))

	case b.Name == Download:
		fe.Formatted = fmt.Sprintf("[%s] Download %s", view, attrStr(b, "state"))

	case strings.HasSuffix(b.Name, "_REQUEST"):
		fe.Formatted = fmt.Sprintf("[%s] %sRequested %s", view, rolePrefix(b), title(b))

	case strings.HasSuffix(b.Name, "_START") && !strings.HasSuffix(b.Name, "_SEEK_START") &&
		!strings.HasSuffix(b.Name, "_BUFFER_START") && b.Name != AdBreakStart:
		fe.Formatted = fmt.Sprintf("[%s] %sStarted %s (startup %s)",
			view, rolePrefix(b), title(b), formatMS(attrInt(b, "timeSinceRequested")))

	case strings.HasSuffix(b.Name, "_PAUSE"):
		fe.Formatted = fmt.Sprintf("[%s] %sPaused", view, rolePrefix(b))

	case strings.HasSuffix(b.Name, "_RESUME"):
		fe.Formatted = fmt.Sprintf("[%s] %sResumed after %s",
			view, rolePrefix(b), formatMS(attrInt(b, "timeSincePaused")))

	case strings.HasSuffix(b.Name, "_SEEK_START"):
		fe.Formatted = fmt.Sprintf("[%s] %sSeeking", view, rolePrefix(b))

	case strings.HasSuffix(b.Name, "_SEEK_END"):
		fe.Formatted = fmt.Sprintf("[%s] %sSeeked in %s",
			view, rolePrefix(b), formatMS(attrInt(b, "timeSinceSeekBegin")))

	case strings.HasSuffix(b.Name, "_BUFFER_START"):
		fe.Formatted = fmt.Sprintf("[%s] %sBuffering (%s)",
			view, rolePrefix(b), attrStr(b, "bufferType"))

	case strings.HasSuffix(b.Name, "_BUFFER_END"):
		fe.Formatted = fmt.Sprintf("[%s] %sBuffered %s (%s)",
			view, rolePrefix(b), formatMS(attrInt(b, "timeSinceBufferBegin")), attrStr(b, "bufferType"))

	case strings.HasSuffix(b.Name, "_HEARTBEAT"):
		fe.Formatted = fmt.Sprintf("[%s] %sHeartbeat", view, rolePrefix(b))

	case strings.HasSuffix(b.Name, "_RENDITION_CHANGE"):
		shift := attrStr(b, "shift")
		if shift == "" {
			fe.Formatted = fmt.Sprintf("[%s] %sRendition change", view, rolePrefix(b))
		} else {
			fe.Formatted = fmt.Sprintf("[%s] %sRendition shift %s", view, rolePrefix(b), shift)
		}

	case strings.HasSuffix(b.Name, "_ERROR") || b.Name == Error:
		fe.Formatted = fmt.Sprintf("[%s] %sError: %s", view, rolePrefix(b), attrStr(b, "errorMessage"))

	case b.Name == AdBreakStart:
		fe.Formatted = fmt.Sprintf("[%s] Ad break (%s)", view, attrStr(b, "adPosition"))

	case b.Name == AdBreakEnd:
		fe.Formatted = fmt.Sprintf("[%s] Ad break over after %s, ads %s",
			view, formatMS(attrInt(b, "timeSinceAdBreakBegin")), formatMS(attrInt(b, "totalAdPlaytime")))

	case b.Name == AdQuartile:
		fe.Formatted = fmt.Sprintf("[%s] Ad quartile %d", view, attrInt(b, "quartile"))

	case b.Name == AdClick:
		fe.Formatted = fmt.Sprintf("[%s] Ad click %s", view, attrStr(b, "url"))

	case strings.HasSuffix(b.Name, "_END"):
		fe.Formatted = fmt.Sprintf("[%s] %sEnded (playtime %s)",
			view, rolePrefix(b), formatMS(attrInt(b, "totalPlaytime")))

	default:
		fe.Formatted = fmt.Sprintf("[%s] %s", view, b.Name)
	}

	return fe
}

func rolePrefix(b sink.Beacon) string {
	if b.IsAd {
		return "Ad "
	}
	return ""
}

// title returns the role-appropriate title attribute for display.
func title(b sink.Beacon) string {
	key := "contentTitle"
	if b.IsAd {
		key = "adTitle"
	}
	if t := attrStr(b, key); t != "" {
		return t
	}
	return "unknown"
}

// attrStr returns the attribute value for the given key, or "".
func attrStr(b sink.Beacon, key string) string {
	if b.Attributes == nil {
		return ""
	}
	s, _ := b.Attributes[key].(string)
	return s
}

// attrInt returns a numeric attribute regardless of how it was boxed.
func attrInt(b sink.Beacon, key string) int64 {
	if b.Attributes == nil {
		return 0
	}
	switch n := b.Attributes[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// formatMS converts milliseconds to seconds with 1 decimal, e.g. 1200 -> "1.2s".
func formatMS(ms int64) string {
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// shortID returns a shortened view id for display.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
