package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Store keeps session and player records. Writes are queued to a single writer goroutine
// so the tick loop never waits on disk.
type Store struct {
	db     *sql.DB
	logger *log.Logger

	ch     chan record
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type recordKind int

const (
	recJoin recordKind = iota + 1
	recExit
)

type record struct {
	kind      recordKind
	sessionID string
	room      string
	actorID   int32
	name      string
	reason    string
	peakTiles int
	at        time.Time
}

// PlayerStats aggregates finished sessions per player name.
type PlayerStats struct {
	Name      string
	Games     int
	BestTiles int
	LastSeen  time.Time
}

// Open opens (or creates) the database at path. driver is "sqlite" (pure Go, default) or
// "sqlite3" (cgo).
func Open(driver, path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage: empty db path")
	}
	if driver == "" {
		driver = "sqlite"
	}
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger, ch: make(chan record, 4096)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	logger.Printf("SQLite persistence initialized (%s, %s)", driver, path)
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("storage: %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			room TEXT NOT NULL,
			actor_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			joined_at TIMESTAMP NOT NULL,
			left_at TIMESTAMP,
			reason TEXT,
			peak_tiles INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			name TEXT PRIMARY KEY,
			games INTEGER DEFAULT 0,
			best_tiles INTEGER DEFAULT 0,
			last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("storage: schema: %w", err)
		}
	}
	return nil
}

func (s *Store) enqueue(r record) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.logger.Printf("storage: queue full, dropping %s record", r.sessionID)
	}
}

// RecordJoin notes that a connection joined room as actorID.
func (s *Store) RecordJoin(sessionID, room string, actorID int32, name string) {
	s.enqueue(record{kind: recJoin, sessionID: sessionID, room: room, actorID: actorID, name: name, at: time.Now().UTC()})
}

// RecordExit closes the session and folds it into the player's totals.
func (s *Store) RecordExit(sessionID, name, reason string, peakTiles int) {
	s.enqueue(record{kind: recExit, sessionID: sessionID, name: name, reason: reason, peakTiles: peakTiles, at: time.Now().UTC()})
}

func (s *Store) loop() {
	for r := range s.ch {
		var err error
		switch r.kind {
		case recJoin:
			_, err = s.db.Exec(`
			INSERT INTO sessions (session_id, room, actor_id, name, joined_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				room = excluded.room,
				actor_id = excluded.actor_id,
				name = excluded.name,
				joined_at = excluded.joined_at,
				left_at = NULL,
				reason = NULL;`,
				r.sessionID, r.room, r.actorID, r.name, r.at)
		case recExit:
			err = s.recordExit(r)
		}
		if err != nil {
			s.logger.Printf("Error saving session %s: %v", r.sessionID, err)
		}
	}
}

func (s *Store) recordExit(r record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE sessions SET left_at = ?, reason = ?, peak_tiles = ? WHERE session_id = ?`,
		r.at, r.reason, r.peakTiles, r.sessionID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`
	INSERT INTO players (name, games, best_tiles, last_seen)
	VALUES (?, 1, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		games = players.games + 1,
		best_tiles = MAX(players.best_tiles, excluded.best_tiles),
		last_seen = excluded.last_seen;`,
		r.name, r.peakTiles, r.at); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Player loads aggregated stats. ok is false for unknown names.
func (s *Store) Player(name string) (PlayerStats, bool, error) {
	var st PlayerStats
	row := s.db.QueryRow(`SELECT name, games, best_tiles, last_seen FROM players WHERE name = ?`, name)
	if err := row.Scan(&st.Name, &st.Games, &st.BestTiles, &st.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PlayerStats{}, false, nil
		}
		return PlayerStats{}, false, fmt.Errorf("storage: load player %s: %w", name, err)
	}
	return st, true, nil
}

// Close drains pending writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.wg.Wait()
	return s.db.Close()
}
