package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tettuan/breakdown-sub016/internal/config"
)

const DBFile = "breakdown.db"

// Resolution kinds.
const (
	KindInput  = "input"
	KindOutput = "output"
)

type DB struct {
	*sql.DB
	projectRoot string
}

type Workspace struct {
	ID         string
	WorkingDir string
	Platform   string
	CreatedAt  time.Time
}

type Resolution struct {
	ID        string
	Kind      string
	Layer     string
	Path      string
	CreatedAt time.Time
}

func NewUUID() string {
	return uuid.New().String()
}

// Path returns the database file of projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(config.DirPath(projectRoot), DBFile)
}

func Open(projectRoot string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", Path(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{DB: sqlDB, projectRoot: projectRoot}
	return db, nil
}

// Initialize creates the configuration directory and the schema. It is
// safe to call on an existing database.
func Initialize(projectRoot string) (*DB, error) {
	if err := os.MkdirAll(config.DirPath(projectRoot), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := Open(projectRoot)
	if err != nil {
		return nil, err
	}

	if err := db.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		working_dir TEXT NOT NULL,
		platform TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS resolutions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		layer TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_resolutions_path ON resolutions(path);
	CREATE INDEX IF NOT EXISTS idx_resolutions_layer ON resolutions(layer);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (db *DB) ProjectRoot() string {
	return db.projectRoot
}

func (db *DB) CreateWorkspace(workingDir, platform string) (*Workspace, error) {
	ws := &Workspace{
		ID:         NewUUID(),
		WorkingDir: workingDir,
		Platform:   platform,
		CreatedAt:  time.Now(),
	}

	_, err := db.Exec(
		"INSERT INTO workspaces (id, working_dir, platform, created_at) VALUES (?, ?, ?, ?)",
		ws.ID, ws.WorkingDir, ws.Platform, ws.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record workspace: %w", err)
	}

	return ws, nil
}

// GetWorkspace returns the most recently initialized workspace, or nil.
func (db *DB) GetWorkspace() (*Workspace, error) {
	var ws Workspace
	err := db.QueryRow(
		"SELECT id, working_dir, platform, created_at FROM workspaces ORDER BY created_at DESC, rowid DESC LIMIT 1",
	).Scan(&ws.ID, &ws.WorkingDir, &ws.Platform, &ws.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (db *DB) RecordResolution(kind, layer, path string) (*Resolution, error) {
	r := &Resolution{
		ID:        NewUUID(),
		Kind:      kind,
		Layer:     layer,
		Path:      path,
		CreatedAt: time.Now(),
	}

	_, err := db.Exec(
		"INSERT INTO resolutions (id, kind, layer, path, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Kind, r.Layer, r.Path, r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record resolution: %w", err)
	}

	return r, nil
}

// ListResolutions returns the newest resolutions first. A limit of zero or
// less means no limit; an empty layer matches every layer.
func (db *DB) ListResolutions(limit int, layer string) ([]*Resolution, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.Query(
		`SELECT id, kind, layer, path, created_at FROM resolutions
		WHERE ? = '' OR layer = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		layer, layer, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Resolution
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.ID, &r.Kind, &r.Layer, &r.Path, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Taken reports whether path was already handed out as an output path.
func (db *DB) Taken(path string) (bool, error) {
	var n int
	err := db.QueryRow(
		"SELECT COUNT(1) FROM resolutions WHERE kind = ? AND path = ?",
		KindOutput, path,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query resolutions: %w", err)
	}
	return n > 0, nil
}
