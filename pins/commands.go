package pins

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sangpham88/ncore/dispatch"
)

// Name implements dispatch.Dispatchable.
func (p *Pins) Name() string {
	return "pins"
}

// Commands implements dispatch.Dispatchable.
func (p *Pins) Commands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:        "pin-read",
			Usage:       "<pin>",
			Description: "Read the digital level of a pin (0 or 1)",
			Handler:     p.cmdRead,
		},
		{
			Name:        "pin-write",
			Usage:       "<pin> <0|1|low|high>",
			Description: "Drive a pin from outside the board",
			Handler:     p.cmdWrite,
		},
		{
			Name:        "pin-mode",
			Usage:       "<pin> [input|output|pullup]",
			Description: "Show or set the mode of a pin",
			Handler:     p.cmdMode,
		},
		{
			Name:        "analog-read",
			Usage:       "<pin>",
			Description: "Read the analog value of a pin",
			Handler:     p.cmdAnalogRead,
		},
		{
			Name:        "analog-write",
			Usage:       "<pin> <0-1023>",
			Description: "Apply a voltage to an analog input",
			Handler:     p.cmdAnalogWrite,
		},
		{
			Name:        "pins",
			Description: "Show the state of every pin",
			Handler:     p.cmdPins,
		},
	}
}

// ParsePin accepts a pin number (decimal, $hex or 0xhex) or an analog
// name A0..An.
func (p *Pins) ParsePin(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[0] == 'A' || s[0] == 'a') {
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return 0, dispatch.NewArgumentError("pin", s, "expected a number or A0..A5")
		}
		return p.AnalogPin(n)
	}
	return dispatch.ParseNumber("pin", s, 0, len(p.pins)-1)
}

// ParseMode accepts input, output or pullup (and the INPUT_PULLUP spelling).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	case "pullup", "input_pullup", "input-pullup":
		return InputPullup, nil
	default:
		return 0, dispatch.NewArgumentError("mode", s, "expected input, output or pullup")
	}
}

func (p *Pins) cmdRead(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 1, 1, "pin-read <pin>"); err != nil {
		return dispatch.Result{}, err
	}
	pin, err := p.ParsePin(args[0])
	if err != nil {
		return dispatch.Result{}, err
	}
	level, err := p.DigitalRead(pin)
	if err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK(strconv.Itoa(level.Int())), nil
}

func (p *Pins) cmdWrite(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 2, 2, "pin-write <pin> <0|1|low|high>"); err != nil {
		return dispatch.Result{}, err
	}
	pin, err := p.ParsePin(args[0])
	if err != nil {
		return dispatch.Result{}, err
	}
	high, err := dispatch.ParseLevel(args[1])
	if err != nil {
		return dispatch.Result{}, err
	}
	if err := p.Drive(pin, Level(high)); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK(), nil
}

func (p *Pins) cmdMode(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 1, 2, "pin-mode <pin> [input|output|pullup]"); err != nil {
		return dispatch.Result{}, err
	}
	pin, err := p.ParsePin(args[0])
	if err != nil {
		return dispatch.Result{}, err
	}
	if len(args) == 2 {
		mode, err := ParseMode(args[1])
		if err != nil {
			return dispatch.Result{}, err
		}
		if err := p.PinMode(pin, mode); err != nil {
			return dispatch.Result{}, err
		}
	}
	st, err := p.State(pin)
	if err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK(st.Mode.String()), nil
}

func (p *Pins) cmdAnalogRead(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 1, 1, "analog-read <pin>"); err != nil {
		return dispatch.Result{}, err
	}
	pin, err := p.ParsePin(args[0])
	if err != nil {
		return dispatch.Result{}, err
	}
	st, err := p.State(pin)
	if err != nil {
		return dispatch.Result{}, err
	}
	if !st.PWM && !p.IsAnalog(pin) {
		return dispatch.Result{}, dispatch.NewArgumentError("pin", args[0], "not an analog input")
	}
	return dispatch.OK(strconv.Itoa(st.Analog)), nil
}

func (p *Pins) cmdAnalogWrite(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 2, 2, "analog-write <pin> <0-1023>"); err != nil {
		return dispatch.Result{}, err
	}
	pin, err := p.ParsePin(args[0])
	if err != nil {
		return dispatch.Result{}, err
	}
	value, err := dispatch.ParseNumber("value", args[1], 0, MaxAnalogInput)
	if err != nil {
		return dispatch.Result{}, err
	}
	if err := p.Apply(pin, value); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.OK(), nil
}

func (p *Pins) cmdPins(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "pins"); err != nil {
		return dispatch.Result{}, err
	}

	lines := []string{fmt.Sprintf("%-4s %-5s %-12s %-5s %s", "PIN", "NAME", "MODE", "LEVEL", "ANALOG")}
	for _, st := range p.Snapshot() {
		name := "D" + strconv.Itoa(st.Pin)
		if p.IsAnalog(st.Pin) {
			name = "A" + strconv.Itoa(st.Pin-p.analogBase)
		}
		analog := "-"
		switch {
		case st.PWM:
			analog = "pwm " + strconv.Itoa(st.Analog)
		case p.IsAnalog(st.Pin):
			analog = strconv.Itoa(st.Analog)
		}
		lines = append(lines, fmt.Sprintf("%-4d %-5s %-12s %-5s %s", st.Pin, name, st.Mode, st.Level, analog))
	}
	return dispatch.OK(lines...), nil
}
