package stats

import (
	"math"
	"testing"

	"github.com/vireolabs/playpulse/internal/sink"
)

func TestSummarize(t *testing.T) {
	views := []sink.ViewData{
		{ViewID: "v1", StartupMS: 200, PlaytimeMS: 60000, RebufferCount: 2, Ended: true},
		{ViewID: "v2", StartupMS: 400, PlaytimeMS: 60000, RebufferCount: 0, Ended: true},
		{ViewID: "v3", RebufferCount: 1}, // still open, no playtime yet
		{ViewID: "a1", IsAd: true, PlaytimeMS: 15000, Ended: true},
	}

	s := Summarize(views)

	if s.Views != 3 {
		t.Errorf("Views = %d, want 3", s.Views)
	}
	if s.AdViews != 1 {
		t.Errorf("AdViews = %d, want 1", s.AdViews)
	}
	if s.WatchTimeMS != 120000 {
		t.Errorf("WatchTimeMS = %d, want 120000", s.WatchTimeMS)
	}
	if s.AdTimeMS != 15000 {
		t.Errorf("AdTimeMS = %d, want 15000", s.AdTimeMS)
	}
	if s.RebufferCount != 3 {
		t.Errorf("RebufferCount = %d, want 3", s.RebufferCount)
	}
	if s.AvgStartupMS != 300 {
		t.Errorf("AvgStartupMS = %d, want 300", s.AvgStartupMS)
	}
	// 3 rebuffers over 2 minutes of watch time.
	if math.Abs(s.RebufferRatio-1.5) > 1e-9 {
		t.Errorf("RebufferRatio = %f, want 1.5", s.RebufferRatio)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero summary", s)
	}
}

func TestSummarizeNoStartupData(t *testing.T) {
	s := Summarize([]sink.ViewData{{ViewID: "v1"}})
	if s.AvgStartupMS != 0 {
		t.Errorf("AvgStartupMS = %d, want 0 when nothing reported", s.AvgStartupMS)
	}
	if s.RebufferRatio != 0 {
		t.Errorf("RebufferRatio = %f, want 0 with no watch time", s.RebufferRatio)
	}
}
