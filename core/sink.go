package core

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mountainsensing/msfetch/protocol"
	"github.com/mountainsensing/msfetch/state"
	_ "modernc.org/sqlite"
)

// SampleSink stores samples taken off nodes. Save returns where the sample
// ended up, for logging.
type SampleSink interface {
	Save(node state.NodeAddress, sample *protocol.Message) (string, error)
	Close() error
}

// DirSink writes each sample to its own file in Dir, named
// <unix nanos>_<node address>, holding the length delimited sample. This is
// the queue layout the gateway forwarder picks samples up from.
type DirSink struct {
	Dir string
	Now func() time.Time
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sample directory: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

func (s *DirSink) Save(node state.NodeAddress, sample *protocol.Message) (string, error) {
	name := strconv.FormatInt(clock(s.Now).now().UnixNano(), 10) + "_" + node.Addr.String()
	path := filepath.Join(s.Dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}
	if _, err := sample.WriteTo(f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func (s *DirSink) Close() error {
	return nil
}

// SQLiteSink appends samples to a SQLite database.
type SQLiteSink struct {
	db   *sql.DB
	path string
	Now  func() time.Time
}

func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sink := &SQLiteSink{db: db, path: dbPath}
	if err := sink.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return sink, nil
}

func (s *SQLiteSink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node TEXT NOT NULL,
		hostname TEXT,
		sample_id INTEGER,
		received_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_node ON samples(node);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) Save(node state.NodeAddress, sample *protocol.Message) (string, error) {
	payload, err := sample.Encode()
	if err != nil {
		return "", err
	}
	var hostname sql.NullString
	if node.HasHostname() {
		hostname = sql.NullString{String: node.Hostname, Valid: true}
	}
	var sampleID sql.NullInt64
	if sample.Has(protocol.SampleID) {
		sampleID = sql.NullInt64{Int64: int64(sample.Uint32(protocol.SampleID)), Valid: true}
	}
	res, err := s.db.Exec(`
		INSERT INTO samples (node, hostname, sample_id, received_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, node.Addr.String(), hostname, sampleID, clock(s.Now).now().Unix(), payload)
	if err != nil {
		return "", fmt.Errorf("failed to insert sample: %w", err)
	}
	row, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%d", s.path, row), nil
}

// Count returns how many samples are stored for node.
func (s *SQLiteSink) Count(node state.NodeAddress) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM samples WHERE node = ?`, node.Addr.String()).Scan(&n)
	return n, err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
