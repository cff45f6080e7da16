package sketch

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/sangpham88/ncore/clock"
	"github.com/sangpham88/ncore/dispatch"
	"github.com/sangpham88/ncore/eeprom"
	"github.com/sangpham88/ncore/pins"
	"github.com/sangpham88/ncore/serial"
)

func newTestBoard(t *testing.T, clk clock.Clock) *Board {
	t.Helper()
	return &Board{
		Clock:  clk,
		Pins:   pins.New(nil, 0),
		Serial: serial.New(nil, 0, 0),
		EEPROM: eeprom.New(nil, nil, eeprom.Options{Size: 16}),
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		runtime.Gosched()
	}
}

func TestSetupHappensBeforeStartReturns(t *testing.T) {
	board := newTestBoard(t, clock.NewVirtual())
	configured := false
	sk := Funcs{
		SetupFunc: func(b *Board) error {
			time.Sleep(10 * time.Millisecond)
			configured = true
			return nil
		},
		LoopFunc: func(b *Board) error {
			b.Delay(1)
			return nil
		},
	}
	r := NewRunner("test", sk, board, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	// Read without synchronization: Start must have ordered Setup first.
	if !configured {
		t.Error("Start returned before Setup finished")
	}
	if st := r.Status(); st.State != StateRunning && st.State != StateStopped {
		t.Errorf("state after Start = %v", st.State)
	}

	cancel()
	if err := r.Wait(); err != nil {
		t.Errorf("Wait error: %v", err)
	}
	if r.Status().State != StateStopped {
		t.Errorf("state after cancel = %v, want stopped", r.Status().State)
	}
}

func TestStartTwice(t *testing.T) {
	r := NewRunner("idle", Funcs{LoopFunc: func(b *Board) error { b.Delay(1); return nil }}, newTestBoard(t, clock.NewWall()), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		r.Wait()
	}()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := r.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v, want ErrAlreadyStarted", err)
	}
}

func TestWaitWithoutStart(t *testing.T) {
	r := NewRunner("idle", Funcs{}, newTestBoard(t, clock.NewVirtual()), nil)
	if err := r.Wait(); err != nil {
		t.Errorf("Wait error: %v", err)
	}
	if st := r.Status(); st.State != StateIdle || st.Uptime != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestSetupFailure(t *testing.T) {
	cause := errors.New("no LED")
	r := NewRunner("broken", Funcs{SetupFunc: func(*Board) error { return cause }}, newTestBoard(t, clock.NewVirtual()), nil)

	err := r.Start(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("Start error = %v, want cause", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Phase != "setup" || se.Sketch != "broken" {
		t.Errorf("Start error = %#v", err)
	}
	if err := r.Wait(); !errors.Is(err, cause) {
		t.Errorf("Wait error = %v", err)
	}
	if r.Status().State != StateHalted {
		t.Errorf("state = %v, want halted", r.Status().State)
	}
}

func TestLoopFailureHaltsOnlySketch(t *testing.T) {
	tests := []struct {
		name string
		loop func(*Board) error
		want string
	}{
		{"error", func(*Board) error { return errors.New("boom") }, "boom"},
		{"panic", func(*Board) error { panic("wild pointer") }, "panic: wild pointer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner("faulty", Funcs{LoopFunc: tt.loop}, newTestBoard(t, clock.NewVirtual()), nil)
			if err := r.Start(context.Background()); err != nil {
				t.Fatalf("Start error: %v", err)
			}
			err := r.Wait()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Wait error = %v, want %q", err, tt.want)
			}
			st := r.Status()
			if st.State != StateHalted || st.Loops != 0 {
				t.Errorf("status = %+v", st)
			}
		})
	}
}

func TestLoopCountAndCommand(t *testing.T) {
	sk := Funcs{LoopFunc: func(b *Board) error {
		if b.Millis() >= 5 {
			return errors.New("done")
		}
		b.Delay(1)
		return nil
	}}
	r := NewRunner("ticker", sk, newTestBoard(t, clock.NewVirtual()), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	r.Wait()

	if r.Loops() != 5 {
		t.Errorf("Loops() = %d, want 5", r.Loops())
	}

	d := dispatch.New()
	if err := d.Add(r); err != nil {
		t.Fatalf("Add(sketch) error: %v", err)
	}
	d.Seal()
	res, err := d.Dispatch("sketch", nil)
	if err != nil {
		t.Fatalf("sketch error: %v", err)
	}
	want := []string{"sketch ticker", "state halted", "loops 5", "uptime 5 ms", "error sketch ticker loop: done"}
	if !slices.Equal(res.Lines, want) {
		t.Errorf("sketch = %q, want %q", res.Lines, want)
	}
}

// Virtual delays return at once; the runner still limits the loop to one
// iteration per VirtualPace of real time.
func TestVirtualClockLoopsArePaced(t *testing.T) {
	clk := clock.NewVirtual()
	sk, _ := Builtin("idle")
	r := NewRunner("idle", sk, newTestBoard(t, clk), nil)

	ctx, cancel := context.WithCancel(context.Background())
	begin := time.Now()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	cancel()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	elapsed := time.Since(begin)

	loops := r.Loops()
	if loops == 0 {
		t.Fatal("sketch never looped")
	}
	if limit := uint64(elapsed/VirtualPace) + 1; loops > limit {
		t.Errorf("%d loops in %v, want at most %d", loops, elapsed, limit)
	}
	if got, want := clk.Now(), time.Duration(loops)*100*time.Millisecond; got != want {
		t.Errorf("virtual time = %v, want %v for %d idle loops", got, want, loops)
	}
}

func TestWallClockLoopsAreNotPaced(t *testing.T) {
	r := NewRunner("spin", Funcs{}, newTestBoard(t, clock.NewWall()), nil)
	if r.pace != 0 {
		t.Errorf("pace on a wall clock = %v, want 0", r.pace)
	}
}

func TestBuiltins(t *testing.T) {
	if !slices.Equal(Names(), []string{"blink", "echo", "counter", "idle"}) {
		t.Errorf("Names() = %v", Names())
	}
	for _, name := range Names() {
		if _, err := Builtin(name); err != nil {
			t.Errorf("Builtin(%q) error: %v", name, err)
		}
		if Description(name) == "" {
			t.Errorf("Description(%q) is empty", name)
		}
	}
	if _, err := Builtin("tetris"); !errors.Is(err, ErrUnknownSketch) {
		t.Errorf("Builtin(tetris) error = %v", err)
	}
}

func TestBlink(t *testing.T) {
	board := newTestBoard(t, clock.NewVirtual())
	sk, _ := Builtin("blink")
	if err := sk.Setup(board); err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if st, _ := board.Pins.State(LEDPin); st.Mode != pins.Output {
		t.Errorf("LED mode = %v, want OUTPUT", st.Mode)
	}
	if err := sk.Loop(board); err != nil {
		t.Fatalf("Loop error: %v", err)
	}
	if board.Millis() != 2000 {
		t.Errorf("one blink took %d ms, want 2000", board.Millis())
	}
	if lv, _ := board.Pins.DigitalRead(LEDPin); lv != pins.Low {
		t.Errorf("LED after loop = %v, want LOW", lv)
	}
}

func TestEcho(t *testing.T) {
	board := newTestBoard(t, clock.NewVirtual())
	sk, _ := Builtin("echo")
	sk.Setup(board)
	board.Serial.Send([]byte("ping\n"))
	sk.Loop(board)
	if got := string(board.Serial.Drain()); got != "ping\n" {
		t.Errorf("echoed %q", got)
	}
}

func TestCounter(t *testing.T) {
	board := newTestBoard(t, clock.NewVirtual())
	for boot := 1; boot <= 3; boot++ {
		sk, _ := Builtin("counter")
		if err := sk.Setup(board); err != nil {
			t.Fatalf("Setup error: %v", err)
		}
		if b, _ := board.EEPROM.Read(0); int(b) != boot {
			t.Errorf("boot %d: cell 0 = %d", boot, b)
		}
	}
	out := string(board.Serial.Drain())
	if !strings.HasSuffix(out, "boot count 3\r\n") {
		t.Errorf("serial output = %q", out)
	}
}

// The sketch writes a pin while the shell reads it through the
// dispatcher. No read may see a half-applied write and the last read
// must match the last write.
func TestConcurrentSketchAndShell(t *testing.T) {
	const (
		pin        = 3
		iterations = 1000
	)
	board := newTestBoard(t, clock.NewWall())
	written := 0
	sk := Funcs{LoopFunc: func(b *Board) error {
		if written < iterations {
			written++
			return b.Pins.AnalogWrite(pin, written%256)
		}
		b.Delay(1)
		return nil
	}}
	r := NewRunner("writer", sk, board, nil)

	d := dispatch.New()
	d.Add(board.Pins)
	d.Add(r)
	d.Seal()

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	for i := 0; i < iterations; i++ {
		res, err := d.Dispatch("pin-read", []string{"3"})
		if err != nil {
			t.Fatalf("pin-read error: %v", err)
		}
		if v := res.String(); v != "0" && v != "1" {
			t.Fatalf("pin-read = %q", v)
		}
		st, _ := board.Pins.State(pin)
		if st.Level != (st.Analog >= 128) {
			t.Fatalf("torn read: level %v with duty %d", st.Level, st.Analog)
		}
	}

	waitFor(t, "sketch writes", func() bool { return r.Loops() >= iterations })
	cancel()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	st, _ := board.Pins.State(pin)
	if st.Analog != iterations%256 {
		t.Errorf("final duty = %d, want %d", st.Analog, iterations%256)
	}
	res, _ := d.Dispatch("pin-read", []string{"3"})
	if want := map[bool]string{true: "1", false: "0"}[iterations%256 >= 128]; res.String() != want {
		t.Errorf("final pin-read = %q, want %q", res.String(), want)
	}
}
