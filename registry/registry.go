// registry.go - SQLite-Registry fuer kompilierte Architekturen
// Enthaelt: Store struct, Open, Close, Save, Get, List, Delete
//
// SQLite verwaltet sein eigenes Locking fuer konkurrierende Zugriffe;
// WAL-Modus erlaubt Lesern, Schreiber nicht zu blockieren. Daher braucht
// der Store keine Application-Level-Locks.
package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite-Treiber registrieren

	"github.com/moliushang/gqcnn/arch"
)

// ErrNotFound - keine Architektur unter diesem Namen oder dieser ID
var ErrNotFound = errors.New("registry: architecture not found")

// Record ist eine registrierte, kompilierte Architektur. Source ist die
// YAML-Quelle, Graph das Kompilat; beides zusammen macht einen Eintrag
// reproduzierbar.
type Record struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	CreatedAt   time.Time              `json:"created_at"`
	GripperMode string                 `json:"gripper_mode"`
	OutputSize  int                    `json:"output_size"`
	Source      []byte                 `json:"-"`
	Graph       *arch.GraphDescription `json:"graph,omitempty"`
}

// Store umhuellt die SQLite-Verbindung.
type Store struct {
	conn *sql.DB
}

// Open oeffnet (und initialisiert) die Registry-Datenbank.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping registry: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}
	return s, nil
}

// Close schliesst die Datenbankverbindung.
func (s *Store) Close() error {
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return s.conn.Close()
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS architectures (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		gripper_mode TEXT NOT NULL DEFAULT '',
		output_size INTEGER NOT NULL,
		source BLOB NOT NULL,
		graph BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_architectures_name ON architectures(name);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save speichert einen Eintrag; ein bestehender Name wird ueberschrieben.
// ID und CreatedAt werden vergeben, wenn sie leer sind.
func (s *Store) Save(rec *Record) error {
	if rec.Graph == nil {
		return errors.New("registry: record has no graph")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	graph, err := json.Marshal(rec.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	_, err = s.conn.Exec(`
		INSERT INTO architectures (id, name, created_at, gripper_mode, output_size, source, graph)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			id = excluded.id,
			created_at = excluded.created_at,
			gripper_mode = excluded.gripper_mode,
			output_size = excluded.output_size,
			source = excluded.source,
			graph = excluded.graph`,
		rec.ID, rec.Name, rec.CreatedAt, rec.GripperMode, rec.OutputSize, rec.Source, graph)
	if err != nil {
		return fmt.Errorf("save architecture %q: %w", rec.Name, err)
	}
	return nil
}

// Get laedt einen Eintrag per Name oder ID.
func (s *Store) Get(nameOrID string) (*Record, error) {
	row := s.conn.QueryRow(`
		SELECT id, name, created_at, gripper_mode, output_size, source, graph
		FROM architectures WHERE name = ? OR id = ?`, nameOrID, nameOrID)

	var rec Record
	var graph []byte
	err := row.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.GripperMode, &rec.OutputSize, &rec.Source, &graph)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, nameOrID)
	}
	if err != nil {
		return nil, fmt.Errorf("load architecture %q: %w", nameOrID, err)
	}
	if err := json.Unmarshal(graph, &rec.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph of %q: %w", nameOrID, err)
	}
	return &rec, nil
}

// List liefert alle Eintraege ohne Quelle und Graph, neueste zuerst.
func (s *Store) List() ([]Record, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, created_at, gripper_mode, output_size
		FROM architectures ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list architectures: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &rec.GripperMode, &rec.OutputSize); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete entfernt einen Eintrag per Name oder ID.
func (s *Store) Delete(nameOrID string) error {
	res, err := s.conn.Exec(`DELETE FROM architectures WHERE name = ? OR id = ?`, nameOrID, nameOrID)
	if err != nil {
		return fmt.Errorf("delete architecture %q: %w", nameOrID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, nameOrID)
	}
	return nil
}
