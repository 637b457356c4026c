// Package store persists a project hierarchy in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrEmpty is returned by Load when nothing has been saved yet.
var ErrEmpty = errors.New("no hierarchy stored")

const schema = `
CREATE TABLE IF NOT EXISTS folders (
	id        INTEGER PRIMARY KEY,
	parent_id INTEGER REFERENCES folders(id),
	name      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY,
	folder_id     INTEGER NOT NULL REFERENCES folders(id),
	relative_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS types (
	id        INTEGER PRIMARY KEY,
	file_id   INTEGER NOT NULL REFERENCES files(id),
	name      TEXT NOT NULL,
	base_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS interfaces (
	type_id  INTEGER NOT NULL REFERENCES types(id),
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	PRIMARY KEY (type_id, position)
);

CREATE TABLE IF NOT EXISTS members (
	type_id    INTEGER NOT NULL REFERENCES types(id),
	kind       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	descriptor TEXT NOT NULL,
	PRIMARY KEY (type_id, kind, position)
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_types_name ON types(name);
`

const (
	fieldKind  = "field"
	methodKind = "method"
)

// Meta describes the snapshot a stored hierarchy came from.
type Meta struct {
	SnapshotID  string
	CreatedAt   time.Time
	Fingerprint uint64
	FileCount   int
	TypeCount   int
}

// Store is a SQLite database holding at most one hierarchy.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open hierarchy db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database. Safe on a nil receiver.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored hierarchy with the snapshot's tree in one transaction.
func (s *Store) Save(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot == nil || snapshot.Root == nil {
		return errors.New("save hierarchy: snapshot has no tree")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"members", "interfaces", "types", "files", "folders", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	w, err := newTreeWriter(ctx, tx)
	if err != nil {
		return err
	}
	defer w.close()

	if err := w.folder(snapshot.Root, nil); err != nil {
		return err
	}

	meta := map[string]string{
		"snapshot_id": snapshot.ID,
		"created_at":  snapshot.CreatedAt.UTC().Format(time.RFC3339Nano),
		"fingerprint": strconv.FormatUint(snapshot.Fingerprint, 16),
		"file_count":  strconv.Itoa(snapshot.FileCount),
		"type_count":  strconv.Itoa(snapshot.TypeCount),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("write meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// treeWriter assigns ids depth first, so a parent always has a lower id than
// its children and siblings keep their order by id.
type treeWriter struct {
	ctx        context.Context
	nextFolder int64
	nextFile   int64
	nextType   int64

	insertFolder    *sql.Stmt
	insertFile      *sql.Stmt
	insertType      *sql.Stmt
	insertInterface *sql.Stmt
	insertMember    *sql.Stmt
}

func newTreeWriter(ctx context.Context, tx *sql.Tx) (*treeWriter, error) {
	w := &treeWriter{ctx: ctx}
	statements := []struct {
		target **sql.Stmt
		query  string
	}{
		{&w.insertFolder, "INSERT INTO folders (id, parent_id, name) VALUES (?, ?, ?)"},
		{&w.insertFile, "INSERT INTO files (id, folder_id, relative_path) VALUES (?, ?, ?)"},
		{&w.insertType, "INSERT INTO types (id, file_id, name, base_type) VALUES (?, ?, ?, ?)"},
		{&w.insertInterface, "INSERT INTO interfaces (type_id, position, name) VALUES (?, ?, ?)"},
		{&w.insertMember, "INSERT INTO members (type_id, kind, position, descriptor) VALUES (?, ?, ?, ?)"},
	}
	for _, st := range statements {
		stmt, err := tx.PrepareContext(ctx, st.query)
		if err != nil {
			w.close()
			return nil, fmt.Errorf("prepare %q: %w", st.query, err)
		}
		*st.target = stmt
	}
	return w, nil
}

func (w *treeWriter) close() {
	for _, stmt := range []*sql.Stmt{w.insertFolder, w.insertFile, w.insertType, w.insertInterface, w.insertMember} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (w *treeWriter) folder(folder *models.FolderNode, parentID *int64) error {
	w.nextFolder++
	id := w.nextFolder
	if _, err := w.insertFolder.ExecContext(w.ctx, id, parentID, folder.Name); err != nil {
		return fmt.Errorf("write folder %s: %w", folder.Name, err)
	}

	for _, file := range folder.Files {
		if err := w.file(file, id); err != nil {
			return err
		}
	}
	for _, sub := range folder.Subfolders {
		if err := w.folder(sub, &id); err != nil {
			return err
		}
	}
	return nil
}

func (w *treeWriter) file(file *models.FileNode, folderID int64) error {
	w.nextFile++
	id := w.nextFile
	if _, err := w.insertFile.ExecContext(w.ctx, id, folderID, file.RelativePath); err != nil {
		return fmt.Errorf("write file %s: %w", file.RelativePath, err)
	}

	for _, cls := range file.Classes {
		w.nextType++
		typeID := w.nextType
		if _, err := w.insertType.ExecContext(w.ctx, typeID, id, cls.Name, cls.BaseType); err != nil {
			return fmt.Errorf("write type %s: %w", cls.Name, err)
		}
		for i, iface := range cls.Interfaces {
			if _, err := w.insertInterface.ExecContext(w.ctx, typeID, i, iface); err != nil {
				return fmt.Errorf("write interface of %s: %w", cls.Name, err)
			}
		}
		if err := w.members(typeID, fieldKind, cls.Fields); err != nil {
			return err
		}
		if err := w.members(typeID, methodKind, cls.Methods); err != nil {
			return err
		}
	}
	return nil
}

func (w *treeWriter) members(typeID int64, kind string, descriptors []string) error {
	for i, descriptor := range descriptors {
		if _, err := w.insertMember.ExecContext(w.ctx, typeID, kind, i, descriptor); err != nil {
			return fmt.Errorf("write %s %s: %w", kind, descriptor, err)
		}
	}
	return nil
}

// Load rebuilds the stored hierarchy. It returns ErrEmpty when nothing was saved.
func (s *Store) Load(ctx context.Context) (*models.FolderNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders := make(map[int64]*models.FolderNode)
	var root *models.FolderNode

	rows, err := s.db.QueryContext(ctx, "SELECT id, parent_id, name FROM folders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load folders: %w", err)
	}
	for rows.Next() {
		var id int64
		var parentID sql.NullInt64
		var name string
		if err := rows.Scan(&id, &parentID, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folder := models.NewFolderNode(name)
		folders[id] = folder
		if !parentID.Valid {
			root = folder
			continue
		}
		parent, ok := folders[parentID.Int64]
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("folder %d has unknown parent %d", id, parentID.Int64)
		}
		parent.Subfolders = append(parent.Subfolders, folder)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load folders: %w", err)
	}
	if root == nil {
		return nil, ErrEmpty
	}

	files := make(map[int64]*models.FileNode)
	rows, err = s.db.QueryContext(ctx, "SELECT id, folder_id, relative_path FROM files ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	for rows.Next() {
		var id, folderID int64
		file := &models.FileNode{Classes: []*models.TypeNode{}}
		if err := rows.Scan(&id, &folderID, &file.RelativePath); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan file: %w", err)
		}
		folder, ok := folders[folderID]
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("file %s has unknown folder %d", file.RelativePath, folderID)
		}
		files[id] = file
		folder.Files = append(folder.Files, file)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}

	types := make(map[int64]*models.TypeNode)
	rows, err = s.db.QueryContext(ctx, "SELECT id, file_id, name, base_type FROM types ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load types: %w", err)
	}
	for rows.Next() {
		var id, fileID int64
		cls := &models.TypeNode{Interfaces: []string{}, Fields: []string{}, Methods: []string{}}
		if err := rows.Scan(&id, &fileID, &cls.Name, &cls.BaseType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan type: %w", err)
		}
		file, ok := files[fileID]
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("type %s has unknown file %d", cls.Name, fileID)
		}
		types[id] = cls
		file.Classes = append(file.Classes, cls)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load types: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT type_id, name FROM interfaces ORDER BY type_id, position")
	if err != nil {
		return nil, fmt.Errorf("load interfaces: %w", err)
	}
	for rows.Next() {
		var typeID int64
		var name string
		if err := rows.Scan(&typeID, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan interface: %w", err)
		}
		if cls, ok := types[typeID]; ok {
			cls.Interfaces = append(cls.Interfaces, name)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load interfaces: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT type_id, kind, descriptor FROM members ORDER BY type_id, kind, position")
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	for rows.Next() {
		var typeID int64
		var kind, descriptor string
		if err := rows.Scan(&typeID, &kind, &descriptor); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan member: %w", err)
		}
		cls, ok := types[typeID]
		if !ok {
			continue
		}
		switch kind {
		case fieldKind:
			cls.Fields = append(cls.Fields, descriptor)
		case methodKind:
			cls.Methods = append(cls.Methods, descriptor)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	return root, nil
}

// LoadMeta returns the metadata of the stored snapshot.
func (s *Store) LoadMeta(ctx context.Context) (Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return Meta{}, fmt.Errorf("load meta: %w", err)
	}
	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return Meta{}, fmt.Errorf("scan meta: %w", err)
		}
		values[key] = value
	}
	if err := closeRows(rows); err != nil {
		return Meta{}, fmt.Errorf("load meta: %w", err)
	}
	if len(values) == 0 {
		return Meta{}, ErrEmpty
	}

	meta := Meta{SnapshotID: values["snapshot_id"]}
	meta.CreatedAt, _ = time.Parse(time.RFC3339Nano, values["created_at"])
	meta.Fingerprint, _ = strconv.ParseUint(values["fingerprint"], 16, 64)
	meta.FileCount, _ = strconv.Atoi(values["file_count"])
	meta.TypeCount, _ = strconv.Atoi(values["type_count"])
	return meta, nil
}

// FindType returns the logical paths of the files declaring a type name.
func (s *Store) FindType(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT f.relative_path FROM types t JOIN files f ON f.id = t.file_id WHERE t.name = ? ORDER BY f.id",
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("find type %s: %w", name, err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan type path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("find type %s: %w", name, err)
	}
	return paths, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
