package sketch

import (
	"errors"
	"fmt"

	"github.com/sangpham88/ncore/eeprom"
	"github.com/sangpham88/ncore/pins"
)

// ErrUnknownSketch is returned by Builtin for a name it does not know.
var ErrUnknownSketch = errors.New("unknown sketch")

// DefaultName is the built-in sketch run when none is configured.
const DefaultName = "idle"

// LEDPin is the pin wired to the on-board LED.
const LEDPin = 13

type builtin struct {
	name        string
	description string
	make        func() Sketch
}

var builtins = []builtin{
	{"blink", "Toggle the LED on pin 13 once a second", newBlink},
	{"echo", "Echo serial input back to serial output", newEcho},
	{"counter", "Count boots in EEPROM cell 0 and report on serial", newCounter},
	{"idle", "Do nothing", newIdle},
}

// Builtin returns a fresh instance of the named built-in sketch.
func Builtin(name string) (Sketch, error) {
	for _, b := range builtins {
		if b.name == name {
			return b.make(), nil
		}
	}
	return nil, fmt.Errorf("%w '%s'", ErrUnknownSketch, name)
}

// Names lists the built-in sketches.
func Names() []string {
	names := make([]string, len(builtins))
	for i, b := range builtins {
		names[i] = b.name
	}
	return names
}

// Description returns the one-line description of a built-in sketch.
func Description(name string) string {
	for _, b := range builtins {
		if b.name == name {
			return b.description
		}
	}
	return ""
}

type blink struct{}

func newBlink() Sketch { return blink{} }

func (blink) Setup(b *Board) error {
	return b.Pins.PinMode(LEDPin, pins.Output)
}

func (blink) Loop(b *Board) error {
	if err := b.Pins.DigitalWrite(LEDPin, pins.High); err != nil {
		return err
	}
	b.Delay(1000)
	if err := b.Pins.DigitalWrite(LEDPin, pins.Low); err != nil {
		return err
	}
	b.Delay(1000)
	return nil
}

type echo struct{}

func newEcho() Sketch { return echo{} }

func (echo) Setup(b *Board) error {
	b.Serial.Begin(b.Serial.Baud())
	return nil
}

func (echo) Loop(b *Board) error {
	for b.Serial.Available() > 0 {
		c := b.Serial.Read()
		if c < 0 {
			break
		}
		b.Serial.Write([]byte{byte(c)})
	}
	b.Delay(10)
	return nil
}

// counter keeps a boot count in EEPROM cell 0. An erased cell counts as
// zero boots.
type counter struct{}

func newCounter() Sketch { return counter{} }

func (counter) Setup(b *Board) error {
	n, err := b.EEPROM.Read(0)
	if err != nil {
		return err
	}
	if n == eeprom.Erased {
		n = 0
	}
	n++
	if n == eeprom.Erased {
		n = 1
	}
	if err := b.EEPROM.Update(0, n); err != nil {
		return err
	}
	b.Serial.Begin(b.Serial.Baud())
	b.Serial.Println("boot count ", n)
	return nil
}

func (counter) Loop(b *Board) error {
	b.Delay(1000)
	return nil
}

type idle struct{}

func newIdle() Sketch { return idle{} }

func (idle) Setup(*Board) error { return nil }

func (idle) Loop(b *Board) error {
	b.Delay(100)
	return nil
}
