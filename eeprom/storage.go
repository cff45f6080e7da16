package eeprom

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage persists the EEPROM contents between runs.
type Storage interface {
	// Load returns the stored contents. A store that has never been
	// saved returns nil and no error.
	Load() ([]byte, error)

	// Save replaces the stored contents.
	Save(data []byte) error

	// Close releases the store.
	Close() error
}

// Backend names a Storage implementation in configuration.
type Backend string

const (
	// BackendFile stores a raw binary image.
	BackendFile Backend = "file"
	// BackendSQLite stores the image as a blob row in a SQLite database.
	BackendSQLite Backend = "sqlite"
	// BackendMemory keeps the image for the life of the process only.
	BackendMemory Backend = "memory"
)

// Open returns the Storage for backend at path.
func Open(backend Backend, path string) (Storage, error) {
	switch backend {
	case BackendFile, "":
		if path == "" {
			return nil, errors.New("file backend requires a path")
		}
		return NewFileStorage(path), nil
	case BackendSQLite:
		if path == "" {
			return nil, errors.New("sqlite backend requires a path")
		}
		return NewSQLiteStorage(path, DefaultImageName)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown eeprom backend '%s'", backend)
	}
}

// FileStorage keeps the image in a single file.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file store. The file is created on first Save.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the image file path.
func (s *FileStorage) Path() string {
	return s.path
}

// Load reads the image file. A missing file is an empty store.
func (s *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save writes the image through a temporary file and renames it into
// place, so a failed save never leaves a partial image.
func (s *FileStorage) Save(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Close is a no-op.
func (s *FileStorage) Close() error {
	return nil
}

// DefaultImageName is the row key used by the sqlite backend.
const DefaultImageName = "default"

// SQLiteStorage keeps the image as a row in a SQLite database, which lets
// several named boards share one file.
type SQLiteStorage struct {
	db   *sql.DB
	name string
	mu   sync.Mutex
}

// NewSQLiteStorage opens (creating if needed) the database at path and
// uses the row called name.
func NewSQLiteStorage(path, name string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS eeprom (
			name       TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStorage{db: db, name: name}, nil
}

// Load reads the named row. A missing row is an empty store.
func (s *SQLiteStorage) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM eeprom WHERE name = ?`, s.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save upserts the named row.
func (s *SQLiteStorage) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO eeprom (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.name, data, time.Now().UTC())
	return err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// MemoryStorage keeps the image in memory. It is useful in tests.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte

	// LoadErr and SaveErr, when set, are returned by Load and Save.
	LoadErr error
	SaveErr error
}

// NewMemoryStorage creates an empty memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns a copy of the stored image.
func (s *MemoryStorage) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.data == nil {
		return nil, nil
	}
	return append([]byte(nil), s.data...), nil
}

// Save stores a copy of data.
func (s *MemoryStorage) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.data = append([]byte(nil), data...)
	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}
