package scene

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scenes (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS scene_items (
	scene   TEXT NOT NULL REFERENCES scenes(name) ON DELETE CASCADE,
	name    TEXT NOT NULL,
	visible INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (scene, name)
);
CREATE TABLE IF NOT EXISTS program (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	scene TEXT NOT NULL
);
`

// Def describes a scene and its items as persisted.
type Def struct {
	Name  string    `json:"name" yaml:"name"`
	Items []ItemDef `json:"items" yaml:"items"`
}

// ItemDef describes one scene item.
type ItemDef struct {
	Name    string `json:"name" yaml:"name"`
	Visible bool   `json:"visible" yaml:"visible"`
}

// Store persists the scene collection in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the scene database at path. ":memory:" keeps
// it in memory.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating scene store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening scene store %q: %w", path, err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		_, _ = db.Exec("PRAGMA journal_mode=WAL")
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating scene schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutScene inserts or replaces a scene and all of its items.
func (s *Store) PutScene(def Def) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO scenes(name) VALUES (?)`, def.Name); err != nil {
		return fmt.Errorf("inserting scene %q: %w", def.Name, err)
	}
	if _, err := tx.Exec(`DELETE FROM scene_items WHERE scene = ?`, def.Name); err != nil {
		return fmt.Errorf("clearing items of %q: %w", def.Name, err)
	}
	for _, it := range def.Items {
		if _, err := tx.Exec(`INSERT INTO scene_items(scene, name, visible) VALUES (?, ?, ?)`,
			def.Name, it.Name, boolToInt(it.Visible)); err != nil {
			return fmt.Errorf("inserting item %q of %q: %w", it.Name, def.Name, err)
		}
	}
	return tx.Commit()
}

// SetVisible persists an item's visibility.
func (s *Store) SetVisible(scene, item string, visible bool) error {
	res, err := s.db.Exec(`UPDATE scene_items SET visible = ? WHERE scene = ? AND name = ?`,
		boolToInt(visible), scene, item)
	if err != nil {
		return fmt.Errorf("updating %s/%s: %w", scene, item, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", scene, item, ErrNotFound)
	}
	return nil
}

// SetProgram persists the selected program scene.
func (s *Store) SetProgram(scene string) error {
	_, err := s.db.Exec(`INSERT INTO program(id, scene) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET scene = excluded.scene`, scene)
	if err != nil {
		return fmt.Errorf("saving program scene: %w", err)
	}
	return nil
}

// Load returns every persisted scene and the selected program scene.
func (s *Store) Load() ([]Def, string, error) {
	rows, err := s.db.Query(`SELECT s.name, i.name, i.visible
		FROM scenes s LEFT JOIN scene_items i ON i.scene = s.name
		ORDER BY s.name, i.name`)
	if err != nil {
		return nil, "", fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	var defs []Def
	for rows.Next() {
		var sceneName string
		var itemName sql.NullString
		var visible sql.NullInt64
		if err := rows.Scan(&sceneName, &itemName, &visible); err != nil {
			return nil, "", fmt.Errorf("scanning scene row: %w", err)
		}
		if len(defs) == 0 || defs[len(defs)-1].Name != sceneName {
			defs = append(defs, Def{Name: sceneName})
		}
		if itemName.Valid {
			d := &defs[len(defs)-1]
			d.Items = append(d.Items, ItemDef{Name: itemName.String, Visible: visible.Int64 != 0})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterating scenes: %w", err)
	}

	var program string
	err = s.db.QueryRow(`SELECT scene FROM program WHERE id = 1`).Scan(&program)
	if err != nil && err != sql.ErrNoRows {
		return nil, "", fmt.Errorf("querying program scene: %w", err)
	}
	return defs, program, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
