package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/vector"
)

// SQLiteStore keeps one or more corpora in a SQLite database. Each instance is bound
// to a single corpus name.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	corpus string
}

// NewSQLiteStore opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath, corpus string) (*SQLiteStore, error) {
	if corpus == "" {
		return nil, fmt.Errorf("corpus name is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath, corpus: corpus}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpora (
		name TEXT PRIMARY KEY,
		count INTEGER NOT NULL,
		dimension INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		corpus TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (corpus, position),
		FOREIGN KEY (corpus) REFERENCES corpora(name) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Save replaces the corpus contents in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, vectors [][]float32, texts []string) error {
	dims, err := validatePair(vectors, texts)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE corpus = ?`, s.corpus); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpora (name, count, dimension, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET count = excluded.count, dimension = excluded.dimension,
		 updated_at = excluded.updated_at`,
		s.corpus, len(vectors), dims,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings (corpus, position, text, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range vectors {
		if _, err := stmt.ExecContext(ctx, s.corpus, i, texts[i], vector.EncodeFloat32s(v)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load reads the corpus and verifies the header row against the stored rows.
func (s *SQLiteStore) Load(ctx context.Context) ([][]float32, []string, error) {
	var count, dims int
	err := s.db.QueryRowContext(ctx,
		`SELECT count, dimension FROM corpora WHERE name = ?`, s.corpus,
	).Scan(&count, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("corpus not found: %s", s.corpus)
	}
	if err != nil {
		return nil, nil, err
	}
	if count < 0 || dims < 0 || (count > 0 && dims == 0) {
		return nil, nil, s.corrupt("invalid header: count %d, dimension %d", count, dims)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, text, vector FROM embeddings WHERE corpus = ? ORDER BY position`, s.corpus)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	// count is not trusted as an allocation size until the rows confirm it
	var (
		vectors [][]float32
		texts   []string
	)
	for rows.Next() {
		var (
			pos  int
			text string
			blob []byte
		)
		if err := rows.Scan(&pos, &text, &blob); err != nil {
			return nil, nil, err
		}
		if pos != len(vectors) {
			return nil, nil, s.corrupt("missing row at position %d", len(vectors))
		}
		if len(blob) != dims*4 {
			return nil, nil, s.corrupt("vector %d is %d bytes, expected %d", pos, len(blob), dims*4)
		}
		vectors = append(vectors, vector.DecodeFloat32s(blob))
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(vectors) != count {
		return nil, nil, s.corrupt("header declares %d rows, found %d", count, len(vectors))
	}
	return vectors, texts, nil
}

func (s *SQLiteStore) corrupt(format string, args ...any) error {
	return &CorruptStoreError{
		Path:   s.path + "#" + s.corpus,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Corpora lists the corpus names stored in the database.
func (s *SQLiteStore) Corpora(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM corpora ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
