package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	otlpExportTimeout = 5 * time.Second

	// scopeName identifies the instrumentation scope on exported records.
	scopeName = "github.com/vireolabs/playpulse"
)

// OTLP exports beacons as OTLP log records over gRPC. Export is
// fire-and-forget: failures are warn-logged and the beacon is dropped,
// matching the tracker's no-retry delivery contract.
type OTLP struct {
	conn    *grpc.ClientConn
	client  collogspb.LogsServiceClient
	log     zerolog.Logger
	service string
}

// NewOTLP connects to an OTLP/gRPC collector endpoint ("host:port",
// plaintext). The connection is lazy; a bad endpoint surfaces as warn logs
// on delivery.
func NewOTLP(endpoint, serviceName string, log zerolog.Logger) (*OTLP, error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP client: %w", err)
	}

	if serviceName == "" {
		serviceName = "playpulse"
	}

	return &OTLP{
		conn:    conn,
		client:  collogspb.NewLogsServiceClient(conn),
		log:     log,
		service: serviceName,
	}, nil
}

// Deliver exports a single beacon as one log record.
func (s *OTLP) Deliver(b Beacon) {
	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{
				Resource: &resourcepb.Resource{
					Attributes: []*commonpb.KeyValue{
						strAttr("service.name", s.service),
					},
				},
				ScopeLogs: []*logspb.ScopeLogs{
					{
						Scope:      &commonpb.InstrumentationScope{Name: scopeName},
						LogRecords: []*logspb.LogRecord{toLogRecord(b)},
					},
				},
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), otlpExportTimeout)
	defer cancel()

	if _, err := s.client.Export(ctx, req); err != nil {
		s.log.Warn().Err(err).Str("name", b.Name).Msg("OTLP export failed, beacon dropped")
	}
}

// Close tears down the client connection.
func (s *OTLP) Close() error {
	return s.conn.Close()
}

// toLogRecord converts a beacon into an OTLP log record. The event name
// becomes the body; identity and attribute-bag entries become record
// attributes.
func toLogRecord(b Beacon) *logspb.LogRecord {
	ts := b.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	attrs := []*commonpb.KeyValue{
		strAttr("playpulse.session_id", b.SessionID),
		strAttr("playpulse.view_id", b.ViewID),
		boolAttr("playpulse.is_ad", b.IsAd),
	}
	for k, v := range b.Attributes {
		attrs = append(attrs, anyAttr(k, v))
	}

	return &logspb.LogRecord{
		TimeUnixNano: uint64(ts.UnixNano()),
		Body: &commonpb.AnyValue{
			Value: &commonpb.AnyValue_StringValue{StringValue: b.Name},
		},
		Attributes: attrs,
	}
}

func strAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

func boolAttr(key string, value bool) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: value}},
	}
}

// anyAttr boxes an attribute-bag value into the matching AnyValue kind.
// Unrecognised types fall back to their fmt representation.
func anyAttr(key string, value any) *commonpb.KeyValue {
	kv := &commonpb.KeyValue{Key: key}
	switch v := value.(type) {
	case string:
		kv.Value = &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v}}
	case bool:
		kv.Value = &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: v}}
	case int:
		kv.Value = &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: int64(v)}}
	case int64:
		kv.Value = &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v}}
	case float64:
		kv.Value = &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: v}}
	default:
		kv.Value = &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: fmt.Sprintf("%v", v)}}
	}
	return kv
}
