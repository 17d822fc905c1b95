package sink

import (
	"testing"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	"google.golang.org/protobuf/proto"
)

func attrValue(attrs []*commonpb.KeyValue, key string) *commonpb.AnyValue {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value
		}
	}
	return nil
}

func TestToLogRecord(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := toLogRecord(Beacon{
		SessionID: "sess-1",
		ViewID:    "sess-1-0",
		IsAd:      true,
		Name:      "AD_QUARTILE",
		Attributes: map[string]any{
			"quartile":      int64(2),
			"adTitle":       "spot",
			"adIsMuted":     false,
			"playbackRate":  1.5,
			"viewedPercent": 50,
		},
		Timestamp: ts,
	})

	if rec.TimeUnixNano != uint64(ts.UnixNano()) {
		t.Errorf("TimeUnixNano = %d, want %d", rec.TimeUnixNano, ts.UnixNano())
	}
	if got := rec.Body.GetStringValue(); got != "AD_QUARTILE" {
		t.Errorf("body = %q, want AD_QUARTILE", got)
	}

	wantSession := &commonpb.AnyValue{
		Value: &commonpb.AnyValue_StringValue{StringValue: "sess-1"},
	}
	if v := attrValue(rec.Attributes, "playpulse.session_id"); !proto.Equal(v, wantSession) {
		t.Errorf("session attr = %v, want sess-1", v)
	}
	if v := attrValue(rec.Attributes, "playpulse.is_ad"); !v.GetBoolValue() {
		t.Error("is_ad attr = false, want true")
	}
	if v := attrValue(rec.Attributes, "quartile"); v.GetIntValue() != 2 {
		t.Errorf("quartile attr = %v, want 2", v)
	}
	if v := attrValue(rec.Attributes, "adTitle"); v.GetStringValue() != "spot" {
		t.Errorf("adTitle attr = %v, want spot", v)
	}
	if v := attrValue(rec.Attributes, "adIsMuted"); v.GetBoolValue() {
		t.Error("adIsMuted attr = true, want false")
	}
	if v := attrValue(rec.Attributes, "playbackRate"); v.GetDoubleValue() != 1.5 {
		t.Errorf("playbackRate attr = %v, want 1.5", v)
	}
	if v := attrValue(rec.Attributes, "viewedPercent"); v.GetIntValue() != 50 {
		t.Errorf("viewedPercent attr = %v, want 50", v)
	}
}

func TestToLogRecordZeroTimestamp(t *testing.T) {
	rec := toLogRecord(Beacon{Name: "CONTENT_START"})
	if rec.TimeUnixNano == 0 {
		t.Error("TimeUnixNano = 0, want current time for zero timestamp")
	}
}

func TestMultiFansOut(t *testing.T) {
	a := NewMemory()
	b := NewMemory()
	m := Multi{a, b}

	m.Deliver(Beacon{SessionID: "s", ViewID: "v", Name: "CONTENT_REQUEST"})

	if a.TotalBeacons() != 1 || b.TotalBeacons() != 1 {
		t.Errorf("fan-out counts = %d/%d, want 1/1", a.TotalBeacons(), b.TotalBeacons())
	}
}
