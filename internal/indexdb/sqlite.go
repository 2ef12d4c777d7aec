// Package indexdb keeps a queryable SQLite index of generated map archives.
// Archives remain the source of truth; index writes are best effort.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"mapgen/internal/archive"
	"mapgen/internal/pipeline"
	"mapgen/internal/tiles"
)

// ErrNotFound reports a digest with no indexed map.
var ErrNotFound = errors.New("indexdb: map not found")

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and the close of ch against concurrent senders.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

type reqKind int

const (
	reqMap reqKind = iota + 1
	reqFlush
)

type req struct {
	kind reqKind
	row  MapRow
	done chan error
}

// MapRow is one indexed archive.
type MapRow struct {
	Digest     string
	Path       string
	Seed       int64
	Width      int
	Height     int
	Stages     []string
	Summary    pipeline.Summary
	RecordedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, 4096)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rule_sets (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS maps (
			digest TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			stages TEXT NOT NULL,
			regions INTEGER NOT NULL,
			water_cells INTEGER NOT NULL,
			features INTEGER NOT NULL,
			tiles_failed INTEGER NOT NULL,
			summary_json TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_maps_seed ON maps(seed);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordMap queues an archive for indexing. It never blocks; rows are
// dropped when the writer falls behind.
func (s *SQLiteIndex) RecordMap(path string, h archive.Header, sum pipeline.Summary) {
	if s == nil || h.Digest == "" {
		return
	}
	r := MapRow{
		Digest:     h.Digest,
		Path:       path,
		Seed:       h.Seed,
		Width:      h.Width,
		Height:     h.Height,
		Stages:     append([]string(nil), h.Stages...),
		Summary:    sum,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{kind: reqMap, row: r}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many recorded rows were lost, either because the queue
// was full or because their batch failed to commit.
func (s *SQLiteIndex) Dropped() int64 { return s.dropped.Load() }

// Flush blocks until every queued row has been committed. It returns the
// first write error seen since the previous Flush.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan error, 1)
	if err := s.send(ctx, req{kind: reqFlush, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send delivers r to the writer unless the index is closed.
func (s *SQLiteIndex) send(ctx context.Context, r req) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertRuleSet stores the canonical JSON of a tile rule set.
func (s *SQLiteIndex) UpsertRuleSet(ctx context.Context, rs tiles.RuleSet) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(rs)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	name := rs.Name
	if name == "" {
		name = "unnamed"
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rule_sets(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		name, hex.EncodeToString(sum[:]), string(b), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

const mapColumns = `digest,path,seed,width,height,stages,summary_json,recorded_at`

// Lookup returns the map indexed under digest.
func (s *SQLiteIndex) Lookup(ctx context.Context, digest string) (MapRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mapColumns+` FROM maps WHERE digest=?`, digest)
	r, err := scanMap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrNotFound, digest)
	}
	return r, err
}

// MapsBySeed lists the maps generated from seed, newest first.
func (s *SQLiteIndex) MapsBySeed(ctx context.Context, seed int64) ([]MapRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+mapColumns+` FROM maps WHERE seed=? ORDER BY recorded_at DESC`, seed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MapRow
	for rows.Next() {
		r, err := scanMap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of indexed maps.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maps`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMap(sc scanner) (MapRow, error) {
	var (
		r       MapRow
		stages  string
		summary string
	)
	if err := sc.Scan(&r.Digest, &r.Path, &r.Seed, &r.Width, &r.Height, &stages, &summary, &r.RecordedAt); err != nil {
		return r, err
	}
	if stages != "" {
		r.Stages = strings.Split(stages, ",")
	}
	if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
		return r, fmt.Errorf("summary of %s: %w", r.Digest, err)
	}
	return r, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertMap, prepErr := s.db.Prepare(`INSERT OR REPLACE INTO maps(digest,path,seed,width,height,stages,regions,water_cells,features,tiles_failed,summary_json,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertMap != nil {
			_ = insertMap.Close()
		}
	}()

	var (
		failed        error
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	// fail records err and counts lost rows.
	fail := func(err error, lost int) {
		if failed == nil {
			failed = err
		}
		s.dropped.Add(int64(lost))
	}
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			fail(err, 0)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			fail(fmt.Errorf("indexdb commit: %w", err), opCount)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	// rollback discards the open batch; its rows count as lost.
	rollback := func() {
		if tx == nil {
			return
		}
		s.dropped.Add(int64(opCount))
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		switch r.kind {
		case reqFlush:
			commit()
			r.done <- failed
			failed = nil
			continue
		case reqMap:
			if insertMap == nil {
				fail(fmt.Errorf("indexdb prepare: %w", prepErr), 1)
				continue
			}
			begin()
			if tx == nil {
				s.dropped.Add(1)
				continue
			}
			b, _ := json.Marshal(r.row.Summary)
			if _, err := tx.Stmt(insertMap).Exec(
				r.row.Digest,
				r.row.Path,
				r.row.Seed,
				r.row.Width,
				r.row.Height,
				strings.Join(r.row.Stages, ","),
				r.row.Summary.Regions,
				r.row.Summary.WaterCells,
				r.row.Summary.Features,
				r.row.Summary.TilesFailed,
				string(b),
				r.row.RecordedAt,
			); err != nil {
				fail(fmt.Errorf("indexdb insert %s: %w", r.row.Digest, err), 1)
				rollback()
				continue
			}
			opCount++
		}
		// Commit once idle so readers sharing the single connection are not
		// held behind an open transaction.
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
