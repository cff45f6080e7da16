package eeprom

import (
	"fmt"
	"strings"

	"github.com/sangpham88/ncore/dispatch"
)

// bytesPerRow is the width of an eeprom-read dump.
const bytesPerRow = 16

// Name implements dispatch.Dispatchable.
func (e *Eeprom) Name() string {
	return "eeprom"
}

// Commands implements dispatch.Dispatchable.
func (e *Eeprom) Commands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:        "eeprom-read",
			Usage:       "<addr> [count]",
			Description: "Dump EEPROM bytes (address in decimal, $hex or 0xhex)",
			Handler:     e.cmdRead,
		},
		{
			Name:        "eeprom-write",
			Usage:       "<addr> <byte>...",
			Description: "Write bytes starting at an address (a failed autosave still keeps them)",
			Handler:     e.cmdWrite,
		},
		{
			Name:        "eeprom-clear",
			Description: "Erase every cell to $FF (a failed autosave still erases)",
			Handler:     e.cmdClear,
		},
		{
			Name:        "eeprom-save",
			Description: "Persist EEPROM contents now",
			Handler:     e.cmdSave,
		},
		{
			Name:        "eeprom-load",
			Description: "Reload EEPROM contents from storage",
			Handler:     e.cmdLoad,
		},
		{
			Name:        "eeprom-info",
			Description: "Show size, storage and unsaved state",
			Handler:     e.cmdInfo,
		},
	}
}

func (e *Eeprom) cmdRead(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 1, 2, "eeprom-read <addr> [count]"); err != nil {
		return dispatch.Result{}, err
	}
	addr, err := dispatch.ParseNumber("address", args[0], 0, len(e.data)-1)
	if err != nil {
		return dispatch.Result{}, err
	}
	count := 1
	if len(args) == 2 {
		count, err = dispatch.ParseNumber("count", args[1], 1, len(e.data)-addr)
		if err != nil {
			return dispatch.Result{}, err
		}
	}
	data, err := e.ReadRange(addr, count)
	if err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK(dump(addr, data)...), nil
}

// dump formats data as rows of "$ADDR: XX XX ...".
func dump(addr int, data []byte) []string {
	var lines []string
	for off := 0; off < len(data); off += bytesPerRow {
		end := off + bytesPerRow
		if end > len(data) {
			end = len(data)
		}
		cells := make([]string, 0, end-off)
		for _, b := range data[off:end] {
			cells = append(cells, fmt.Sprintf("%02X", b))
		}
		lines = append(lines, fmt.Sprintf("$%04X: %s", addr+off, strings.Join(cells, " ")))
	}
	return lines
}

func (e *Eeprom) cmdWrite(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 2, -1, "eeprom-write <addr> <byte>..."); err != nil {
		return dispatch.Result{}, err
	}
	addr, err := dispatch.ParseNumber("address", args[0], 0, len(e.data)-1)
	if err != nil {
		return dispatch.Result{}, err
	}
	data := make([]byte, 0, len(args)-1)
	for _, a := range args[1:] {
		b, err := dispatch.ParseByte(a)
		if err != nil {
			return dispatch.Result{}, err
		}
		data = append(data, b)
	}
	if err := e.WriteRange(addr, data); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK(), nil
}

func (e *Eeprom) cmdClear(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "eeprom-clear"); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK(), e.Clear()
}

func (e *Eeprom) cmdSave(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "eeprom-save"); err != nil {
		return dispatch.Result{}, err
	}
	if err := e.Save(); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK("saved"), nil
}

func (e *Eeprom) cmdLoad(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "eeprom-load"); err != nil {
		return dispatch.Result{}, err
	}
	if err := e.Load(); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK("loaded"), nil
}

func (e *Eeprom) cmdInfo(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "eeprom-info"); err != nil {
		return dispatch.Result{}, err
	}
	var backend string
	switch s := e.store.(type) {
	case *FileStorage:
		backend = "file " + s.Path()
	case *SQLiteStorage:
		backend = "sqlite"
	case *MemoryStorage:
		backend = "memory"
	default:
		backend = fmt.Sprintf("%T", s)
	}
	return dispatch.OK(
		fmt.Sprintf("size %d bytes", e.Length()),
		"storage "+backend,
		fmt.Sprintf("unsaved %t, autosave %t", e.Dirty(), e.autoSave),
	), nil
}
