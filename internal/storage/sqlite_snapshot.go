package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"channel-chatter/internal/llm"
)

// SQLiteSnapshotter stores one row per turn; position keeps the order.
type SQLiteSnapshotter struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteSnapshotter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSnapshotter{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			chat_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (chat_id, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshotter) Load() (map[int64][]llm.Message, error) {
	rows, err := s.db.Query(`SELECT chat_id, role, text FROM history ORDER BY chat_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	snap := map[int64][]llm.Message{}
	for rows.Next() {
		var (
			id   int64
			role string
			text string
		)
		if err := rows.Scan(&id, &role, &text); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r, err := llm.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %v", ErrMalformedSnapshot, id, err)
		}
		snap[id] = append(snap[id], llm.Message{Role: r, Content: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save rewrites the table in one transaction.
func (s *SQLiteSnapshotter) Save(snap map[int64][]llm.Message) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO history (chat_id, position, role, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for id, turns := range snap {
		for i, m := range turns {
			if _, err = stmt.Exec(id, i, m.Role.String(), m.Content); err != nil {
				return fmt.Errorf("insert turn %d/%d: %w", id, i, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshotter) Close() error { return s.db.Close() }
