// Package sketch runs user program logic against the emulated board.
//
// A Sketch has the familiar two entry points: Setup runs once, then Loop
// runs repeatedly. The Runner owns the goroutine that calls them. Sketch
// code reaches the peripherals only through the Board it is handed, and
// every peripheral locks its own state, so the shell may inspect and
// drive the same pins, serial port and EEPROM while the sketch runs.
package sketch

import (
	"time"

	"github.com/sangpham88/ncore/clock"
	"github.com/sangpham88/ncore/eeprom"
	"github.com/sangpham88/ncore/logger"
	"github.com/sangpham88/ncore/pins"
	"github.com/sangpham88/ncore/serial"
)

// Board is the hardware a sketch programs against.
type Board struct {
	Clock  clock.Clock
	Pins   *pins.Pins
	Serial *serial.Buffer
	EEPROM *eeprom.Eeprom
	Log    *logger.Logger
}

// Millis returns milliseconds since start, wrapping after about 49 days.
func (b *Board) Millis() uint32 {
	return clock.Millis(b.Clock)
}

// Micros returns microseconds since start, wrapping after about 71 minutes.
func (b *Board) Micros() uint32 {
	return clock.Micros(b.Clock)
}

// Delay pauses the sketch for ms milliseconds.
func (b *Board) Delay(ms uint32) {
	b.Clock.Sleep(time.Duration(ms) * time.Millisecond)
}

// DelayMicroseconds pauses the sketch for us microseconds.
func (b *Board) DelayMicroseconds(us uint32) {
	b.Clock.Sleep(time.Duration(us) * time.Microsecond)
}

// Sketch is user program logic.
type Sketch interface {
	// Setup runs once before the first Loop. An error stops the sketch
	// before it starts.
	Setup(b *Board) error

	// Loop runs repeatedly until shutdown. An error halts the sketch.
	Loop(b *Board) error
}

// Funcs adapts a pair of functions to the Sketch interface. A nil
// function does nothing.
type Funcs struct {
	SetupFunc func(b *Board) error
	LoopFunc  func(b *Board) error
}

// Setup calls SetupFunc.
func (f Funcs) Setup(b *Board) error {
	if f.SetupFunc == nil {
		return nil
	}
	return f.SetupFunc(b)
}

// Loop calls LoopFunc.
func (f Funcs) Loop(b *Board) error {
	if f.LoopFunc == nil {
		return nil
	}
	return f.LoopFunc(b)
}
