// Package serial emulates the board's UART as a pair of byte queues.
//
// The receive queue holds bytes sent from the host (the shell's
// serial-send) until the sketch reads them. The transmit queue holds
// what the sketch prints until the host drains it with serial-read.
// Both queues are bounded: a full receive queue drops new bytes, as the
// hardware ring buffer does, and a full transmit queue drops its oldest
// bytes so the latest output is kept.
package serial

import (
	"fmt"
	"sync"

	"github.com/sangpham88/ncore/logger"
)

const (
	// DefaultRxCapacity matches the microcontroller's receive ring buffer.
	DefaultRxCapacity = 64

	// DefaultTxCapacity bounds undrained sketch output.
	DefaultTxCapacity = 1024

	// DefaultBaud is the rate reported before Begin is called.
	DefaultBaud = 9600

	category = "SERIAL"
)

// Buffer is the emulated serial port. It is safe for concurrent use.
type Buffer struct {
	mu        sync.Mutex
	rx        []byte
	tx        []byte
	rxCap     int
	txCap     int
	baud      int
	open      bool
	rxDropped int
	txDropped int
	log       *logger.Logger
}

// Status is a consistent copy of the port counters.
type Status struct {
	Baud      int
	Open      bool
	RxPending int
	TxPending int
	RxDropped int
	TxDropped int
}

// New creates a serial buffer. Capacities of zero or less take the
// defaults.
func New(log *logger.Logger, rxCapacity, txCapacity int) *Buffer {
	if rxCapacity <= 0 {
		rxCapacity = DefaultRxCapacity
	}
	if txCapacity <= 0 {
		txCapacity = DefaultTxCapacity
	}
	return &Buffer{
		rxCap: rxCapacity,
		txCap: txCapacity,
		baud:  DefaultBaud,
		log:   log,
	}
}

// SetBaud changes the rate without opening the port.
func (b *Buffer) SetBaud(baud int) {
	b.mu.Lock()
	b.baud = baud
	b.mu.Unlock()
}

// Begin opens the port at baud.
func (b *Buffer) Begin(baud int) {
	b.mu.Lock()
	b.baud = baud
	b.open = true
	b.mu.Unlock()
	b.log.Debug(category, "port opened", "baud", baud)
}

// End closes the port. Queued bytes are kept.
func (b *Buffer) End() {
	b.mu.Lock()
	b.open = false
	b.mu.Unlock()
}

// Baud returns the configured rate.
func (b *Buffer) Baud() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.baud
}

// Available returns the number of received bytes waiting to be read.
func (b *Buffer) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rx)
}

// Read removes and returns the next received byte, or -1 if none.
func (b *Buffer) Read() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rx) == 0 {
		return -1
	}
	c := b.rx[0]
	b.rx = b.rx[1:]
	return int(c)
}

// Peek returns the next received byte without removing it, or -1.
func (b *Buffer) Peek() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rx) == 0 {
		return -1
	}
	return int(b.rx[0])
}

// Write queues sketch output. It implements io.Writer and never fails;
// when the queue is full the oldest bytes are discarded.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.tx = append(b.tx, p...)
	dropped := 0
	if over := len(b.tx) - b.txCap; over > 0 {
		b.tx = append([]byte(nil), b.tx[over:]...)
		b.txDropped += over
		dropped = over
	}
	b.mu.Unlock()

	if dropped > 0 {
		b.log.Debug(category, "transmit overflow", "dropped", dropped)
	}
	return len(p), nil
}

// Print writes the default formatting of args.
func (b *Buffer) Print(args ...any) {
	fmt.Fprint(b, args...)
}

// Println writes args followed by CR LF, as the board library does.
// The line is queued in one write, so a drain never splits it.
func (b *Buffer) Println(args ...any) {
	b.Write([]byte(fmt.Sprint(args...) + "\r\n"))
}

// Printf writes formatted output.
func (b *Buffer) Printf(format string, args ...any) {
	fmt.Fprintf(b, format, args...)
}

// Send queues bytes from the host for the sketch to read and returns
// how many were accepted. Bytes beyond the receive capacity are dropped.
func (b *Buffer) Send(p []byte) int {
	b.mu.Lock()
	room := b.rxCap - len(b.rx)
	if room < 0 {
		room = 0
	}
	n := len(p)
	if n > room {
		n = room
	}
	b.rx = append(b.rx, p[:n]...)
	dropped := len(p) - n
	b.rxDropped += dropped
	b.mu.Unlock()

	if dropped > 0 {
		b.log.Warn(category, "receive buffer full", "dropped", dropped)
	}
	return n
}

// Drain removes and returns everything the sketch has written.
func (b *Buffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.tx
	b.tx = nil
	return out
}

// Clear empties both queues and resets the drop counters.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.rx = nil
	b.tx = nil
	b.rxDropped = 0
	b.txDropped = 0
	b.mu.Unlock()
}

// Status returns the port counters.
func (b *Buffer) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Baud:      b.baud,
		Open:      b.open,
		RxPending: len(b.rx),
		TxPending: len(b.tx),
		RxDropped: b.rxDropped,
		TxDropped: b.txDropped,
	}
}
