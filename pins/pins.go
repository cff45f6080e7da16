// Package pins emulates the digital and analog I/O pins of the board.
//
// Pins are numbered from 0. With the default count of 20, pins 0-13 are
// digital and 14-19 double as analog inputs A0-A5. Sketch code drives the
// pins through PinMode, DigitalWrite and AnalogWrite; the shell plays the
// part of the outside world through pin-write and analog-write.
//
// # Thread Safety
//
// All pin state sits behind one mutex owned by Pins. Each exported method
// is one critical section, so a reader always sees a pin as it was before
// or after any given write.
package pins

import (
	"fmt"
	"sync"

	"github.com/sangpham88/ncore/dispatch"
	"github.com/sangpham88/ncore/logger"
)

const (
	// DefaultCount is the number of pins on the default board.
	DefaultCount = 20

	// DefaultAnalogBase is the first pin that is also analog input A0.
	DefaultAnalogBase = 14

	// MaxAnalogInput is the full-scale ADC reading.
	MaxAnalogInput = 1023

	// MaxAnalogOutput is the full-scale PWM duty.
	MaxAnalogOutput = 255

	category = "PINS"
)

// Mode is a pin's configured direction.
type Mode int

const (
	// Input is a high-impedance input.
	Input Mode = iota
	// Output is a driven output.
	Output
	// InputPullup is an input with the internal pull-up enabled.
	InputPullup
)

// String returns the mode as the microcontroller API spells it.
func (m Mode) String() string {
	switch m {
	case Input:
		return "INPUT"
	case Output:
		return "OUTPUT"
	case InputPullup:
		return "INPUT_PULLUP"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Level is a digital signal level.
type Level bool

const (
	// Low is logic 0.
	Low Level = false
	// High is logic 1.
	High Level = true
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Int returns 1 for High and 0 for Low.
func (l Level) Int() int {
	if l {
		return 1
	}
	return 0
}

// PinState is a consistent copy of one pin.
type PinState struct {
	Pin    int
	Mode   Mode
	Level  Level
	Analog int // ADC input for analog pins, PWM duty after AnalogWrite
	PWM    bool
}

// Pins holds the state of every pin.
type Pins struct {
	mu         sync.Mutex
	pins       []PinState
	analogBase int
	log        *logger.Logger
}

// New creates count pins, all INPUT and LOW. A count of zero or less
// means DefaultCount.
func New(log *logger.Logger, count int) *Pins {
	if count <= 0 {
		count = DefaultCount
	}
	p := &Pins{
		pins:       make([]PinState, count),
		analogBase: DefaultAnalogBase,
		log:        log,
	}
	if p.analogBase >= count {
		p.analogBase = count
	}
	for i := range p.pins {
		p.pins[i].Pin = i
	}
	return p
}

// Count returns the number of pins.
func (p *Pins) Count() int {
	return len(p.pins)
}

// AnalogPin returns the pin number of analog input n (A0 is n=0).
func (p *Pins) AnalogPin(n int) (int, error) {
	pin := p.analogBase + n
	if n < 0 || pin >= len(p.pins) {
		return 0, dispatch.NewArgumentError("analog pin", fmt.Sprintf("A%d", n), "no such analog input")
	}
	return pin, nil
}

// IsAnalog reports whether pin can be read with AnalogRead.
func (p *Pins) IsAnalog(pin int) bool {
	return pin >= p.analogBase && pin < len(p.pins)
}

func (p *Pins) check(pin int) error {
	if pin < 0 || pin >= len(p.pins) {
		return dispatch.NewArgumentError("pin", fmt.Sprint(pin), fmt.Sprintf("out of range 0..%d", len(p.pins)-1))
	}
	return nil
}

// PinMode configures the direction of pin. Switching to INPUT_PULLUP
// pulls the pin HIGH.
func (p *Pins) PinMode(pin int, mode Mode) error {
	if err := p.check(pin); err != nil {
		return err
	}
	if mode < Input || mode > InputPullup {
		return dispatch.NewArgumentError("mode", mode.String(), "expected INPUT, OUTPUT or INPUT_PULLUP")
	}

	p.mu.Lock()
	st := &p.pins[pin]
	st.Mode = mode
	if mode == InputPullup {
		st.Level = High
	}
	p.mu.Unlock()

	p.log.Debug(category, "pin mode", "pin", pin, "mode", mode.String())
	return nil
}

// DigitalWrite drives pin to level. Like the hardware, writing HIGH to
// an INPUT pin enables its pull-up.
func (p *Pins) DigitalWrite(pin int, level Level) error {
	if err := p.check(pin); err != nil {
		return err
	}

	p.mu.Lock()
	st := &p.pins[pin]
	if st.Mode == Input && level == High {
		st.Mode = InputPullup
	}
	changed := st.Level != level
	st.Level = level
	st.PWM = false
	p.mu.Unlock()

	if changed {
		p.log.Debug(category, "pin level", "pin", pin, "level", level.String())
	}
	return nil
}

// DigitalRead returns the level of pin.
func (p *Pins) DigitalRead(pin int) (Level, error) {
	if err := p.check(pin); err != nil {
		return Low, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[pin].Level, nil
}

// AnalogWrite sets a PWM duty of 0-255 on pin. The digital level becomes
// HIGH from half duty upwards; both change in one step.
func (p *Pins) AnalogWrite(pin, value int) error {
	if err := p.check(pin); err != nil {
		return err
	}
	if value < 0 || value > MaxAnalogOutput {
		return dispatch.NewArgumentError("value", fmt.Sprint(value), fmt.Sprintf("out of range 0..%d", MaxAnalogOutput))
	}

	p.mu.Lock()
	st := &p.pins[pin]
	st.Mode = Output
	st.Analog = value
	st.Level = Level(value >= (MaxAnalogOutput+1)/2)
	st.PWM = true
	p.mu.Unlock()
	return nil
}

// AnalogRead returns the ADC reading of an analog pin.
func (p *Pins) AnalogRead(pin int) (int, error) {
	if err := p.check(pin); err != nil {
		return 0, err
	}
	if !p.IsAnalog(pin) {
		return 0, dispatch.NewArgumentError("pin", fmt.Sprint(pin), "not an analog input")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[pin].Analog, nil
}

// Drive sets the level of pin from outside the board, as a switch or a
// signal generator would. The pin mode is left alone.
func (p *Pins) Drive(pin int, level Level) error {
	if err := p.check(pin); err != nil {
		return err
	}
	p.mu.Lock()
	st := &p.pins[pin]
	st.Level = level
	st.PWM = false
	p.mu.Unlock()

	p.log.Debug(category, "pin driven", "pin", pin, "level", level.String())
	return nil
}

// Apply sets the ADC input of an analog pin from outside the board.
// The digital level follows the voltage: HIGH from half scale upwards.
func (p *Pins) Apply(pin, value int) error {
	if err := p.check(pin); err != nil {
		return err
	}
	if !p.IsAnalog(pin) {
		return dispatch.NewArgumentError("pin", fmt.Sprint(pin), "not an analog input")
	}
	if value < 0 || value > MaxAnalogInput {
		return dispatch.NewArgumentError("value", fmt.Sprint(value), fmt.Sprintf("out of range 0..%d", MaxAnalogInput))
	}

	p.mu.Lock()
	st := &p.pins[pin]
	st.Analog = value
	st.Level = Level(value >= (MaxAnalogInput+1)/2)
	st.PWM = false
	p.mu.Unlock()

	p.log.Debug(category, "analog input", "pin", pin, "value", value)
	return nil
}

// State returns a copy of one pin.
func (p *Pins) State(pin int) (PinState, error) {
	if err := p.check(pin); err != nil {
		return PinState{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pins[pin], nil
}

// Snapshot returns a copy of every pin taken in one critical section.
func (p *Pins) Snapshot() []PinState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PinState, len(p.pins))
	copy(out, p.pins)
	return out
}
