package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	writeChannelSize = 1000
	batchSize        = 50
	flushInterval    = 100 * time.Millisecond

	maintenanceInterval = 1 * time.Hour
)

// SQLite persists beacons to a local database. Writes go through a bounded
// channel drained by a single writer goroutine so Deliver never blocks the
// tracker; when the channel is full the beacon is dropped and counted.
type SQLite struct {
	db            *sql.DB
	log           zerolog.Logger
	writeChan     chan Beacon
	doneChan      chan struct{}
	closed        atomic.Bool
	droppedWrites atomic.Int64

	cancelMaint     context.CancelFunc
	maintenanceDone chan struct{}
}

// NewSQLite opens the database at dbPath and starts the writer and
// maintenance goroutines. Beacons older than retentionDays are pruned
// hourly; a non-positive retention disables pruning.
func NewSQLite(dbPath string, retentionDays int, log zerolog.Logger) (*SQLite, error) {
	return newSQLiteWithChannelSize(dbPath, writeChannelSize, retentionDays, log)
}

func newSQLiteWithChannelSize(dbPath string, chanSize, retentionDays int, log zerolog.Logger) (*SQLite, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &SQLite{
		db:              db,
		log:             log,
		writeChan:       make(chan Beacon, chanSize),
		doneChan:        make(chan struct{}),
		cancelMaint:     cancel,
		maintenanceDone: make(chan struct{}),
	}

	go s.writerLoop()
	go s.maintenanceLoop(ctx, retentionDays)

	return s, nil
}

// Deliver queues the beacon for the writer goroutine.
func (s *SQLite) Deliver(b Beacon) {
	if s.closed.Load() {
		return
	}
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now()
	}

	defer func() { _ = recover() }()
	select {
	case s.writeChan <- b:
	default:
		s.droppedWrites.Add(1)
		s.log.Warn().Str("view", b.ViewID).Str("name", b.Name).Msg("sqlite write channel full, beacon dropped")
	}
}

// DroppedWrites returns the number of beacons dropped because the write
// channel was full.
func (s *SQLite) DroppedWrites() int64 {
	return s.droppedWrites.Load()
}

// CountBeacons returns the number of persisted beacons for a session.
func (s *SQLite) CountBeacons(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM beacons WHERE session_id = ?", sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting beacons: %w", err)
	}
	return n, nil
}

// Close drains pending writes, stops maintenance and closes the database.
func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.cancelMaint()
	select {
	case <-s.maintenanceDone:
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("maintenance goroutine did not stop within 5s")
	}

	close(s.writeChan)

	select {
	case <-s.doneChan:
	case <-time.After(10 * time.Second):
		s.log.Error().Msg("failed to drain writes within 10s, beacons may be lost")
	}

	return s.db.Close()
}

func (s *SQLite) writerLoop() {
	defer close(s.doneChan)

	batch := make([]Beacon, 0, batchSize)
	flushTimer := time.NewTimer(flushInterval)
	defer flushTimer.Stop()

	for {
		select {
		case b, ok := <-s.writeChan:
			if !ok {
				if len(batch) > 0 {
					s.flushBatch(batch)
				}
				return
			}

			batch = append(batch, b)

			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
				flushTimer.Reset(flushInterval)
			}

		case <-flushTimer.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
			flushTimer.Reset(flushInterval)
		}
	}
}

func (s *SQLite) flushBatch(batch []Beacon) {
	tx, err := s.db.Begin()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to begin transaction")
		return
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range batch {
		if err := writeBeacon(tx, b); err != nil {
			s.log.Error().Err(err).Str("view", b.ViewID).Str("name", b.Name).Msg("failed to write beacon")
		}
	}

	if err := tx.Commit(); err != nil {
		s.log.Error().Err(err).Msg("failed to commit transaction")
	}
}

func writeBeacon(tx *sql.Tx, b Beacon) error {
	var attributesJSON string
	if len(b.Attributes) > 0 {
		data, err := json.Marshal(b.Attributes)
		if err != nil {
			return fmt.Errorf("marshaling attributes: %w", err)
		}
		attributesJSON = string(data)
	}

	isAd := 0
	if b.IsAd {
		isAd = 1
	}

	_, err := tx.Exec(
		`INSERT INTO beacons (session_id, view_id, is_ad, name, attributes, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.SessionID, b.ViewID, isAd, b.Name, attributesJSON,
		b.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting beacon: %w", err)
	}
	return nil
}

func (s *SQLite) maintenanceLoop(ctx context.Context, retentionDays int) {
	defer close(s.maintenanceDone)

	if retentionDays <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pruneOldBeacons(retentionDays); err != nil {
				s.log.Error().Err(err).Msg("retention pruning failed")
			}
		}
	}
}

func (s *SQLite) pruneOldBeacons(retentionDays int) error {
	modifier := fmt.Sprintf("-%d days", retentionDays)
	if _, err := s.db.Exec(
		"DELETE FROM beacons WHERE datetime(timestamp) < datetime('now', ?)", modifier,
	); err != nil {
		return fmt.Errorf("deleting expired beacons: %w", err)
	}
	return nil
}
