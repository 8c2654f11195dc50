package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS generated_content (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	prompt     TEXT NOT NULL,
	response   TEXT NOT NULL,
	language   TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// Entry is one recorded prompt/response pair.
type Entry struct {
	ID        int64
	Prompt    string
	Response  string
	Language  string
	CreatedAt time.Time
}

// Store is an append-only log of generated answers backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at dsn.
// Pass ":memory:" for a throwaway in-memory log.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", dsn, err)
	}
	// each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Record appends an entry. An empty language is stored as "unknown".
func (s *Store) Record(ctx context.Context, prompt, response, language string) (Entry, error) {
	if language == "" {
		language = "unknown"
	}
	e := Entry{Prompt: prompt, Response: response, Language: language, CreatedAt: s.now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_content (prompt, response, language, created_at) VALUES (?, ?, ?, ?)`,
		e.Prompt, e.Response, e.Language, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("history: record: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("history: record: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, response, language, created_at FROM generated_content ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Prompt, &e.Response, &e.Language, &created); err != nil {
			return nil, fmt.Errorf("history: list: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("history: list: entry %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Recorder adapts a Store to the pipeline's history interface.
type Recorder struct{ *Store }

// Record appends an entry, discarding the stored row.
func (r Recorder) Record(ctx context.Context, prompt, response, language string) error {
	_, err := r.Store.Record(ctx, prompt, response, language)
	return err
}
