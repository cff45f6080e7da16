// Package eeprom emulates the board's byte-addressable non-volatile
// memory.
//
// Contents live in memory while the process runs and are persisted
// through a Storage: a raw image file, a SQLite row or nothing at all.
// Erased cells read 0xFF.
//
// A failed load or save never leaves the Eeprom half-updated. The
// failure is logged and returned to the caller as a *StorageError; the
// emulator keeps running.
package eeprom

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sangpham88/ncore/dispatch"
	"github.com/sangpham88/ncore/logger"
)

const (
	// DefaultSize is the EEPROM size of the default board, in bytes.
	DefaultSize = 1024

	// Erased is the value of a cell that has never been written.
	Erased = 0xFF

	category = "EEPROM"
)

// ErrStorage matches every *StorageError.
var ErrStorage = errors.New("eeprom storage error")

// StorageError reports a failed load or save.
type StorageError struct {
	Op  string // "load" or "save"
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("eeprom %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Eeprom is the emulated memory. It is safe for concurrent use.
type Eeprom struct {
	mu       sync.Mutex
	data     []byte
	dirty    bool
	store    Storage
	autoSave bool
	log      *logger.Logger
}

// Options configures an Eeprom.
type Options struct {
	// Size in bytes. Zero means DefaultSize.
	Size int

	// AutoSave persists every mutation immediately.
	AutoSave bool
}

// New creates an erased EEPROM backed by store. Call Load to read the
// persisted contents. A nil store means a MemoryStorage.
func New(log *logger.Logger, store Storage, opts Options) *Eeprom {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	if store == nil {
		store = NewMemoryStorage()
	}
	e := &Eeprom{
		data:     make([]byte, size),
		store:    store,
		autoSave: opts.AutoSave,
		log:      log,
	}
	fill(e.data, Erased)
	return e
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// Length returns the size in bytes.
func (e *Eeprom) Length() int {
	return len(e.data)
}

// Dirty reports whether there are unsaved changes.
func (e *Eeprom) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

func (e *Eeprom) check(addr int) error {
	if addr < 0 || addr >= len(e.data) {
		return dispatch.NewArgumentError("address", fmt.Sprint(addr), fmt.Sprintf("out of range 0..%d", len(e.data)-1))
	}
	return nil
}

// Read returns the byte at addr.
func (e *Eeprom) Read(addr int) (byte, error) {
	if err := e.check(addr); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data[addr], nil
}

// ReadRange returns a copy of count bytes starting at addr.
func (e *Eeprom) ReadRange(addr, count int) ([]byte, error) {
	if err := e.check(addr); err != nil {
		return nil, err
	}
	if count < 0 || addr+count > len(e.data) {
		return nil, dispatch.NewArgumentError("count", fmt.Sprint(count), fmt.Sprintf("range ends past %d", len(e.data)-1))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.data[addr:addr+count]...), nil
}

// Write stores b at addr.
func (e *Eeprom) Write(addr int, b byte) error {
	return e.WriteRange(addr, []byte{b})
}

// Update stores b at addr only if the cell holds a different value,
// sparing a write cycle on real hardware.
func (e *Eeprom) Update(addr int, b byte) error {
	if err := e.check(addr); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data[addr] == b {
		return nil
	}
	return e.writeLocked(addr, []byte{b})
}

// WriteRange stores data starting at addr. The whole range is checked
// before any byte is written. With AutoSave a failed save keeps the new
// bytes in memory, marked unsaved, and returns a *StorageError.
func (e *Eeprom) WriteRange(addr int, data []byte) error {
	if err := e.check(addr); err != nil {
		return err
	}
	if addr+len(data) > len(e.data) {
		return dispatch.NewArgumentError("data", fmt.Sprintf("%d bytes", len(data)), fmt.Sprintf("range ends past %d", len(e.data)-1))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeLocked(addr, data)
}

func (e *Eeprom) writeLocked(addr int, data []byte) error {
	copy(e.data[addr:], data)
	e.dirty = true
	if e.autoSave {
		return e.saveLocked()
	}
	return nil
}

// Clear erases every cell.
func (e *Eeprom) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	fill(e.data, Erased)
	e.dirty = true
	if e.autoSave {
		return e.saveLocked()
	}
	return nil
}

// Load replaces the contents with the stored image. An empty store
// leaves the memory erased. An image of the wrong size is padded with
// erased cells or truncated.
func (e *Eeprom) Load() error {
	data, err := e.store.Load()
	if err != nil {
		e.log.Error(category, "load failed", "error", err)
		return &StorageError{Op: "load", Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if data == nil {
		fill(e.data, Erased)
		e.dirty = false
		e.log.Info(category, "no stored image, starting erased", "size", len(e.data))
		return nil
	}
	if len(data) != len(e.data) {
		e.log.Warn(category, "stored image size mismatch", "stored", len(data), "size", len(e.data))
	}
	fill(e.data, Erased)
	copy(e.data, data)
	e.dirty = false
	e.log.Info(category, "image loaded", "size", len(e.data))
	return nil
}

// Save persists the contents.
func (e *Eeprom) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked()
}

// saveLocked must be called with e.mu held. The lock covers the store
// call so saves are never reordered.
func (e *Eeprom) saveLocked() error {
	if err := e.store.Save(append([]byte(nil), e.data...)); err != nil {
		e.log.Error(category, "save failed", "error", err)
		return &StorageError{Op: "save", Err: err}
	}
	e.dirty = false
	return nil
}

// Close saves unsaved changes and closes the store.
func (e *Eeprom) Close() error {
	var saveErr error
	if e.Dirty() {
		saveErr = e.Save()
	}
	return errors.Join(saveErr, e.store.Close())
}
