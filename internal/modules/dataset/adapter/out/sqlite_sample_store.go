package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drawclass/internal/modules/dataset/domain"
	datasetout "drawclass/internal/modules/dataset/port/out"

	_ "modernc.org/sqlite"
)

type SQLiteSampleStore struct {
	db *sql.DB
}

func NewSQLiteSampleStore(dbPath string) (datasetout.SampleStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteSampleStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteSampleStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS categories (
  label TEXT PRIMARY KEY,
  position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  label TEXT NOT NULL REFERENCES categories(label),
  payload TEXT NOT NULL,
  captured_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS samples_label ON samples(label);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create dataset tables: %w", err)
	}
	return nil
}

func (s *SQLiteSampleStore) Load(ctx context.Context) (domain.Dataset, error) {
	dataset := domain.New()
	rows, err := s.db.QueryContext(ctx, `SELECT label FROM categories ORDER BY position`)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("query categories: %w", err)
	}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			_ = rows.Close()
			return domain.Dataset{}, fmt.Errorf("scan category: %w", err)
		}
		if err := dataset.Declare(label); err != nil {
			_ = rows.Close()
			return domain.Dataset{}, err
		}
	}
	if err := rows.Close(); err != nil {
		return domain.Dataset{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT label, payload FROM samples ORDER BY id`)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label, payload string
		if err := rows.Scan(&label, &payload); err != nil {
			return domain.Dataset{}, fmt.Errorf("scan sample: %w", err)
		}
		if err := dataset.Add(label, payload); err != nil {
			return domain.Dataset{}, err
		}
	}
	return dataset, rows.Err()
}

func (s *SQLiteSampleStore) Append(ctx context.Context, label, payload string, capturedAt time.Time) error {
	return s.within(ctx, func(tx *sql.Tx) error {
		if err := declare(ctx, tx, label); err != nil {
			return err
		}
		return insertSample(ctx, tx, label, payload, capturedAt)
	})
}

func (s *SQLiteSampleStore) Declare(ctx context.Context, label string) error {
	return s.within(ctx, func(tx *sql.Tx) error {
		return declare(ctx, tx, label)
	})
}

func (s *SQLiteSampleStore) Replace(ctx context.Context, dataset domain.Dataset) error {
	now := time.Now().UTC()
	return s.within(ctx, func(tx *sql.Tx) error {
		if err := reset(ctx, tx); err != nil {
			return err
		}
		for _, label := range dataset.Labels() {
			if err := declare(ctx, tx, label); err != nil {
				return err
			}
			for _, payload := range dataset.Samples(label) {
				if err := insertSample(ctx, tx, label, payload, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *SQLiteSampleStore) Clear(ctx context.Context) error {
	return s.within(ctx, func(tx *sql.Tx) error {
		return reset(ctx, tx)
	})
}

func (s *SQLiteSampleStore) within(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func declare(ctx context.Context, tx *sql.Tx, label string) error {
	const stmt = `
INSERT INTO categories (label, position)
SELECT ?, COALESCE(MAX(position) + 1, 0) FROM categories WHERE true
ON CONFLICT(label) DO NOTHING;
`
	if _, err := tx.ExecContext(ctx, stmt, label); err != nil {
		return fmt.Errorf("declare category: %w", err)
	}
	return nil
}

func insertSample(ctx context.Context, tx *sql.Tx, label, payload string, capturedAt time.Time) error {
	const stmt = `INSERT INTO samples (label, payload, captured_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, stmt, label, payload, capturedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM samples`); err != nil {
		return fmt.Errorf("reset samples: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("reset categories: %w", err)
	}
	return nil
}
