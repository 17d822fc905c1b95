package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vireolabs/playpulse/internal/config"
)

// New builds the sink selected by the configuration. Storage-backed sinks
// that fail to initialise fall back to the in-memory collector with a
// warning, so the tracker always has somewhere to deliver.
func New(cfg config.SinkConfig, log zerolog.Logger) (Sink, error) {
	switch cfg.Kind {
	case "", "memory":
		return NewMemory(), nil

	case "jsonl":
		f, err := os.OpenFile(expandTilde(cfg.Path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Warn().Err(err).Msg("jsonl sink unavailable, falling back to in-memory collector")
			return NewMemory(), nil
		}
		return NewJSONL(f), nil

	case "sqlite":
		s, err := NewSQLite(expandTilde(cfg.DBPath), cfg.RetentionDays, log)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite sink unavailable, falling back to in-memory collector")
			return NewMemory(), nil
		}
		return s, nil

	case "otlp":
		s, err := NewOTLP(cfg.Endpoint, "playpulse", log)
		if err != nil {
			return nil, fmt.Errorf("creating otlp sink: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
