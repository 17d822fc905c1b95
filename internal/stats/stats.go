// Package stats computes quality-of-experience aggregates from collected
// view data.
package stats

import "github.com/vireolabs/playpulse/internal/sink"

// Summary holds the rolled-up playback metrics across a set of views.
type Summary struct {
	Views   int
	AdViews int

	// WatchTimeMS is the summed playtime of ended content views.
	WatchTimeMS int64

	// AdTimeMS is the summed playtime of ended ad views.
	AdTimeMS int64

	RebufferCount int

	// RebufferRatio is rebuffer episodes per minute of content watch time.
	RebufferRatio float64

	// AvgStartupMS averages startup time over views that reported one.
	AvgStartupMS int64
}

// Summarize rolls up per-view aggregates into a Summary.
func Summarize(views []sink.ViewData) Summary {
	var s Summary
	var startupSum int64
	var startupN int

	for _, v := range views {
		if v.IsAd {
			s.AdViews++
			if v.Ended {
				s.AdTimeMS += v.PlaytimeMS
			}
			continue
		}

		s.Views++
		if v.Ended {
			s.WatchTimeMS += v.PlaytimeMS
		}
		s.RebufferCount += v.RebufferCount
		if v.StartupMS > 0 {
			startupSum += v.StartupMS
			startupN++
		}
	}

	if startupN > 0 {
		s.AvgStartupMS = startupSum / int64(startupN)
	}
	if s.WatchTimeMS > 0 {
		minutes := float64(s.WatchTimeMS) / 60000
		s.RebufferRatio = float64(s.RebufferCount) / minutes
	}
	return s
}
