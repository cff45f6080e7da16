package dispatch

import (
	"strconv"
	"strings"
)

// ArgCount checks that len(args) is within [min, max]. A negative max
// means no upper bound. usage is reported on failure.
func ArgCount(args []string, min, max int, usage string) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return Usagef("usage: %s", usage)
	}
	return nil
}

// ParseNumber parses a decimal, $hex or 0xhex value and checks that it
// lies within [min, max].
func ParseNumber(arg, s string, min, max int) (int, error) {
	s = strings.TrimSpace(s)

	var (
		val uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "$"):
		val, err = strconv.ParseUint(s[1:], 16, 32)
	case strings.HasPrefix(strings.ToLower(s), "0x"):
		val, err = strconv.ParseUint(s[2:], 16, 32)
	default:
		val, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, NewArgumentError(arg, s, "not a number")
	}
	if int(val) < min || int(val) > max {
		return 0, NewArgumentError(arg, s, "out of range "+strconv.Itoa(min)+".."+strconv.Itoa(max))
	}
	return int(val), nil
}

// ParseByte parses a byte value in decimal, $hex or 0xhex form.
func ParseByte(s string) (byte, error) {
	v, err := ParseNumber("byte", s, 0, 0xFF)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// ParseLevel parses a digital level: 1/high/on or 0/low/off.
func ParseLevel(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "high", "on":
		return true, nil
	case "0", "low", "off":
		return false, nil
	default:
		return false, NewArgumentError("level", s, "expected 0, 1, low or high")
	}
}
