package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	tlog "timewarp.dev/internal/persistence/log"
	"timewarp.dev/internal/sim/catalogs"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world"
)

// SQLiteIndex is a queryable secondary copy of what the JSONL logs hold.
// Writes are queued and applied by one goroutine in batched transactions.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSearch
	reqSubmission
)

type req struct {
	kind reqKind

	runID      string
	tick       world.TickLogEntry
	search     tlog.SearchEntry
	submission Submission
}

// Submission is one batch of committed ticks delivered to the game server.
type Submission struct {
	BatchID   string
	FirstTick uint64
	LastTick  uint64
	Frames    int
	At        time.Time
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func open(path string) (*sql.DB, error) {
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
	return db, nil
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
	if err := dropUnscopedTicks(db); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			map TEXT NOT NULL,
			keys TEXT NOT NULL,
			switching INTEGER NOT NULL,
			won INTEGER NOT NULL,
			lost INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_map ON ticks(map, tick);`,
		`CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			map TEXT NOT NULL,
			target_x REAL NOT NULL,
			target_y REAL NOT NULL,
			outcome TEXT NOT NULL,
			path_ticks INTEGER NOT NULL,
			expanded INTEGER NOT NULL,
			visited INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			seq INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_searches_seq ON searches(seq);`,
		`CREATE INDEX IF NOT EXISTS idx_searches_run ON searches(run_id);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			batch_id TEXT PRIMARY KEY,
			first_tick INTEGER NOT NULL,
			last_tick INTEGER NOT NULL,
			frames INTEGER NOT NULL,
			submitted_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// dropUnscopedTicks removes a ticks table from before rows were keyed by
// run. The JSONL tick logs still hold everything it had.
func dropUnscopedTicks(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info('ticks')`)
	if err != nil {
		return err
	}
	defer rows.Close()
	found, scoped := false, false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		found = true
		if name == "run_id" {
			scoped = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !found || scoped {
		return nil
	}
	if _, err := db.Exec(`DROP TABLE ticks`); err != nil {
		return err
	}
	_, err = db.Exec(`DROP INDEX IF EXISTS idx_ticks_map`)
	return err
}

// Close drains the queue and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RunTicks writes the committed ticks of one run.
type RunTicks struct {
	s     *SQLiteIndex
	runID string
}

// Ticks returns the tick writer for runID. Runs keep separate rows even
// when their tick numbers overlap.
func (s *SQLiteIndex) Ticks(runID string) RunTicks {
	return RunTicks{s: s, runID: runID}
}

func (t RunTicks) WriteTick(entry world.TickLogEntry) error {
	s := t.s
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, runID: t.runID, tick: entry}:
	default:
		// The JSONL tick log stays the source of truth when the index lags.
	}
	return nil
}

func (s *SQLiteIndex) WriteSearch(entry tlog.SearchEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqSearch, search: entry}:
	default:
	}
	return nil
}

func (s *SQLiteIndex) RecordSubmission(sub Submission) {
	if s == nil || s.closed.Load() || sub.BatchID == "" {
		return
	}
	if sub.At.IsZero() {
		sub.At = time.Now()
	}
	select {
	case s.ch <- req{kind: reqSubmission, submission: sub}:
	default:
	}
}

// UpsertConfigs stores the map catalog and tuning in effect, keyed by their
// digests, so a run can be matched to the configuration that produced it.
func (s *SQLiteIndex) UpsertConfigs(maps *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if maps != nil {
		defs := make([]catalogs.MapDef, 0, len(maps.IDs))
		for _, id := range maps.IDs {
			defs = append(defs, maps.ByID[id])
		}
		if b, err := json.Marshal(defs); err == nil {
			rows = append(rows, kv{name: "maps", digest: maps.Digest, json: b})
		}
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','2')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,map,keys,switching,won,lost,digest) VALUES(?,?,?,?,?,?,?,?)`)
	insertSearch, _ := s.db.Prepare(`INSERT OR REPLACE INTO searches(id,run_id,tick,map,target_x,target_y,outcome,path_ticks,expanded,visited,elapsed_ms,seq) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSubmission, _ := s.db.Prepare(`INSERT OR REPLACE INTO submissions(batch_id,first_tick,last_tick,frames,submitted_at) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertSearch, insertSubmission} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
		searchSeq     = time.Now().UnixNano()
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			keys, _ := json.Marshal(t.Keys)
			exec(insertTick, r.runID, int64(t.Tick), t.Map, string(keys), boolInt(t.Switching), boolInt(t.Won), boolInt(t.Lost), t.Digest)

		case reqSearch:
			e := r.search
			searchSeq++
			exec(insertSearch, e.ID, e.RunID, int64(e.Tick), e.Map, e.TargetX, e.TargetY, e.Outcome,
				e.PathTicks, e.Expanded, e.Visited, e.ElapsedMs, searchSeq)

		case reqSubmission:
			sub := r.submission
			exec(insertSubmission, sub.BatchID, int64(sub.FirstTick), int64(sub.LastTick), sub.Frames,
				sub.At.UTC().Format(time.RFC3339Nano))
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
