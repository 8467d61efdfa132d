package storage

import (
	"context"
	"database/sql"
	"fmt"

	"hookweave/internal/action"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS captures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT,
			work_dir TEXT,
			exit_code INTEGER,
			created_at TEXT DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS actions (
			capture_id INTEGER,
			seq INTEGER,
			kind TEXT,
			package TEXT,
			output TEXT,
			PRIMARY KEY (capture_id, seq),
			FOREIGN KEY (capture_id) REFERENCES captures(id)
		)`,
		`CREATE TABLE IF NOT EXISTS forests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rendered TEXT,
			created_at TEXT DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_package ON actions(package)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveCapture(ctx context.Context, rec CaptureRecord, actions []action.BuildAction) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO captures (kind, work_dir, exit_code) VALUES (?, ?, ?)`,
		rec.Kind, rec.WorkDir, rec.ExitCode)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO actions (capture_id, seq, kind, package, output) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, a := range actions {
		if _, err := stmt.ExecContext(ctx, id, a.ID, string(a.Kind), a.Package, a.Output); err != nil {
			return 0, fmt.Errorf("failed to insert action %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) LoadActions(ctx context.Context, sessionID int64) ([]action.BuildAction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, kind, package, output FROM actions WHERE capture_id = ? ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []action.BuildAction
	for rows.Next() {
		var a action.BuildAction
		var kind string
		if err := rows.Scan(&a.ID, &kind, &a.Package, &a.Output); err != nil {
			return nil, err
		}
		a.Kind = action.Kind(kind)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *SQLiteStore) LatestCapture(ctx context.Context) (*CaptureRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, work_dir, exit_code, created_at FROM captures ORDER BY id DESC LIMIT 1`)

	var rec CaptureRecord
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.WorkDir, &rec.ExitCode, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no captures stored yet")
		}
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) ListPackages(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT package FROM actions WHERE package != '' ORDER BY package`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pkgs []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}

func (s *SQLiteStore) SaveForest(ctx context.Context, rendered string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO forests (rendered) VALUES (?)`, rendered)
	return err
}

func (s *SQLiteStore) LatestForest(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT rendered FROM forests ORDER BY id DESC LIMIT 1`)
	var rendered string
	if err := row.Scan(&rendered); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no call graph stored yet")
		}
		return "", err
	}
	return rendered, nil
}
