// Package record stores campaign samples and sweep results in SQLite.
package record

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

const defaultBatchSize = 1000

const schema = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	campaign  TEXT NOT NULL,
	nodes     INTEGER NOT NULL,
	pattern   TEXT NOT NULL,
	vcs       INTEGER NOT NULL,
	conf_file TEXT NOT NULL,
	rate      REAL NOT NULL,
	latency   REAL,
	location  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sweeps (
	campaign   TEXT NOT NULL,
	nodes      INTEGER NOT NULL,
	pattern    TEXT NOT NULL,
	vcs        INTEGER NOT NULL,
	conf_file  TEXT NOT NULL,
	policy     TEXT NOT NULL,
	mode       TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	throughput REAL,
	baseline   REAL NOT NULL,
	runs       INTEGER NOT NULL,
	error      TEXT
);`

type sampleRow struct {
	key    sweep.SweepKey
	sample sweep.Sample
}

// Recorder is a sweep.Observer that writes to a SQLite database. Samples are
// buffered and written in batches; a finished sweep flushes its samples and
// writes its result row. Buffered samples are flushed at process exit.
type Recorder struct {
	mu        sync.Mutex
	db        *sql.DB
	campaign  string
	batchSize int
	pending   []sampleRow
}

// Open creates or reuses the database at path and registers campaign. An
// empty path picks a fresh garnet_sweep_<xid>.sqlite3 file.
func Open(path, campaign string, mode sweep.Mode) (*Recorder, error) {
	if path == "" {
		path = "garnet_sweep_" + xid.New().String() + ".sqlite3"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening record database: %w", err)
	}
	r, err := NewWithDB(db, campaign, mode)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logrus.Infof("Recording campaign %s to %s", campaign, path)
	atexit.Register(func() {
		if err := r.Flush(); err != nil {
			logrus.Warnf("Flushing record database at exit: %v", err)
		}
	})
	return r, nil
}

// NewWithDB creates a Recorder on an open database.
func NewWithDB(db *sql.DB, campaign string, mode sweep.Mode) (*Recorder, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating record schema: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO campaigns (id, mode, started_at) VALUES (?, ?, ?)`,
		campaign, string(mode), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("registering campaign %s: %w", campaign, err)
	}
	return &Recorder{db: db, campaign: campaign, batchSize: defaultBatchSize}, nil
}

func (r *Recorder) OnSample(key sweep.SweepKey, _ sweep.RunConfig, s sweep.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, sampleRow{key: key, sample: s})
	if len(r.pending) >= r.batchSize {
		if err := r.flushLocked(); err != nil {
			logrus.Warnf("Recording samples: %v", err)
		}
	}
}

func (r *Recorder) OnResult(res *sweep.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.flushLocked(); err != nil {
		logrus.Warnf("Recording samples: %v", err)
	}
	var throughput sql.NullFloat64
	if res.Found {
		throughput = sql.NullFloat64{Float64: res.Throughput, Valid: true}
	}
	var errText sql.NullString
	if res.Err != nil {
		errText = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO sweeps VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.campaign, res.Key.Nodes, res.Key.Pattern, res.Key.VCs, res.Key.ConfFile,
		res.Policy, string(res.Mode), string(res.Outcome), throughput, res.Baseline,
		res.Iterations(), errText)
	if err != nil {
		logrus.Warnf("Recording sweep %s: %v", res.Key, err)
	}
}

// Flush writes all buffered samples in one transaction.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO samples VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range r.pending {
		var latency sql.NullFloat64
		if !row.sample.NoData() {
			latency = sql.NullFloat64{Float64: row.sample.Latency, Valid: true}
		}
		if _, err := stmt.Exec(r.campaign, row.key.Nodes, row.key.Pattern, row.key.VCs,
			row.key.ConfFile, row.sample.Rate, latency, row.sample.Location); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.pending = r.pending[:0]
	return nil
}

// Close flushes and closes the database.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.db.Close()
}

// SweepRow is a stored sweep result.
type SweepRow struct {
	Campaign   string
	Key        sweep.SweepKey
	Outcome    string
	Throughput sql.NullFloat64
	Runs       int
}

// Sweeps reads back the sweep rows of the recorder's campaign.
func (r *Recorder) Sweeps() ([]SweepRow, error) {
	rows, err := r.db.Query(`SELECT campaign, nodes, pattern, vcs, conf_file, outcome, throughput, runs
		FROM sweeps WHERE campaign = ? ORDER BY nodes, pattern, vcs, conf_file`, r.campaign)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []SweepRow
	for rows.Next() {
		var s SweepRow
		if err := rows.Scan(&s.Campaign, &s.Key.Nodes, &s.Key.Pattern, &s.Key.VCs, &s.Key.ConfFile,
			&s.Outcome, &s.Throughput, &s.Runs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SampleCount returns the number of stored samples of the campaign.
func (r *Recorder) SampleCount() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM samples WHERE campaign = ?`, r.campaign).Scan(&n)
	return n, err
}
