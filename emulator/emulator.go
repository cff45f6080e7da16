// Package emulator wires the core together.
//
// New builds everything in a fixed order: clock, logger, pins, serial
// port, EEPROM (loaded from storage), dispatcher and sketch runner. Every
// component is added to the dispatcher and the dispatcher is sealed
// before New returns, so the command table is complete and read-only
// before the sketch goroutine starts or the shell reads a line.
//
// Run starts the sketch, runs the shell on the calling goroutine and
// then shuts down in reverse: stop the sketch and wait for it, save the
// EEPROM, close the log.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sangpham88/ncore/clock"
	"github.com/sangpham88/ncore/config"
	"github.com/sangpham88/ncore/dispatch"
	"github.com/sangpham88/ncore/eeprom"
	"github.com/sangpham88/ncore/logger"
	"github.com/sangpham88/ncore/pins"
	"github.com/sangpham88/ncore/serial"
	"github.com/sangpham88/ncore/shell"
	"github.com/sangpham88/ncore/sketch"
)

const category = "CORE"

// CustomSketchName is reported by the sketch command when Options.Sketch
// replaces the configured built-in.
const CustomSketchName = "custom"

// Options configures an Emulator.
type Options struct {
	// Config is required.
	Config *config.Config

	// Sketch, when set, runs instead of the configured built-in.
	Sketch sketch.Sketch

	// Store, when set, replaces the configured EEPROM storage.
	Store eeprom.Storage

	// Console receives log records. Nil means os.Stderr.
	Console io.Writer

	// Out and Err receive shell output. Nil means stdout and stderr.
	Out io.Writer
	Err io.Writer

	// Extra components are added to the dispatcher after the built-in
	// ones.
	Extra []dispatch.Dispatchable
}

// Emulator is a fully wired core.
type Emulator struct {
	Clock      clock.Clock
	Log        *logger.Logger
	Pins       *pins.Pins
	Serial     *serial.Buffer
	EEPROM     *eeprom.Eeprom
	Dispatcher *dispatch.Dispatcher
	Runner     *sketch.Runner

	cfg  *config.Config
	out  io.Writer
	err  io.Writer
	ctx  context.Context // Scopes the sketch; cancelled by Close
	stop context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// New constructs and registers every component. Any failure, including
// a duplicate command name, is returned before anything has started.
func New(opts Options) (*Emulator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("emulator: no configuration")
	}

	clk, ok := clock.New(clock.Mode(cfg.Clock.Mode))
	if !ok {
		return nil, fmt.Errorf("unknown clock mode '%s'", cfg.Clock.Mode)
	}

	log, err := logger.New(clk, logger.Options{
		Console: opts.Console,
		File:    cfg.Logging.File,
		Journal: cfg.Logging.Journal,
		Level:   cfg.Logging.Level,
		History: cfg.Logging.History,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	name, sk := cfg.Sketch, opts.Sketch
	if sk != nil {
		name = CustomSketchName
	} else if sk, err = sketch.Builtin(cfg.Sketch); err != nil {
		log.Close()
		return nil, err
	}

	store := opts.Store
	if store == nil {
		store, err = eeprom.Open(eeprom.Backend(cfg.EEPROM.Backend), cfg.EEPROM.Path)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("open eeprom storage: %w", err)
		}
	}

	e := &Emulator{
		Clock:      clk,
		Log:        log,
		Pins:       pins.New(log, cfg.Pins.Count),
		Serial:     serial.New(log, cfg.Serial.RxCapacity, cfg.Serial.TxCapacity),
		EEPROM:     eeprom.New(log, store, eeprom.Options{Size: cfg.EEPROM.Size, AutoSave: cfg.EEPROM.AutoSave}),
		Dispatcher: dispatch.New(),
		cfg:        cfg,
		out:        opts.Out,
		err:        opts.Err,
	}
	e.ctx, e.stop = context.WithCancel(context.Background())
	e.Serial.SetBaud(cfg.Serial.Baud)

	// A storage failure is logged by Load and the EEPROM starts erased.
	_ = e.EEPROM.Load()

	e.Runner = sketch.NewRunner(name, sk, &sketch.Board{
		Clock:  clk,
		Pins:   e.Pins,
		Serial: e.Serial,
		EEPROM: e.EEPROM,
		Log:    log,
	}, log)

	components := []dispatch.Dispatchable{e.Log, e.Pins, e.Serial, e.EEPROM, e.Runner}
	components = append(components, opts.Extra...)
	for _, c := range components {
		if err := e.Dispatcher.Add(c); err != nil {
			log.Error(category, "registration failed", "error", err)
			e.stop()
			// Nothing has run yet, so the EEPROM is not saved.
			_ = errors.Join(store.Close(), log.Close())
			return nil, fmt.Errorf("register commands: %w", err)
		}
	}
	e.Dispatcher.Seal()
	log.Debug(category, "commands registered", "count", e.Dispatcher.Len())

	return e, nil
}

// Run starts the sketch and runs the shell until end of input, .quit or
// cancellation of ctx, then shuts down. Cancelling ctx stops the sketch
// and closes reader if it has a Close method, which ends a blocked read.
//
// A sketch that fails in Setup is logged and halted; the shell still
// runs so the board can be inspected.
func (e *Emulator) Run(ctx context.Context, reader shell.LineReader) error {
	e.Log.Internal(category, "Started")

	stopSketch := context.AfterFunc(ctx, e.stop)
	defer stopSketch()

	if err := e.Runner.Start(e.ctx); err != nil {
		e.Log.Warn(category, "sketch did not start, shell only", "error", err)
	}

	if c, ok := reader.(interface{ Close() }); ok {
		unwatch := context.AfterFunc(ctx, c.Close)
		defer unwatch()
	}

	sh := shell.New(shell.Options{
		Reader:     reader,
		Dispatcher: e.Dispatcher,
		Clock:      e.Clock,
		Out:        e.out,
		Err:        e.err,
		Prompt:     e.cfg.Shell.Prompt,
		Log:        e.Log,
		Color:      e.cfg.Shell.Color,
	})
	runErr := sh.Run()

	return errors.Join(runErr, e.Close())
}

// Close stops the sketch, waits for it, saves the EEPROM and closes the
// log. It is idempotent and may be called from a signal handler while
// Run is still reading input.
func (e *Emulator) Close() error {
	e.closeOnce.Do(func() {
		e.stop()
		if err := e.Runner.Wait(); err != nil {
			e.Log.Debug(category, "sketch ended with error", "error", err)
		}
		eepromErr := e.EEPROM.Close()
		e.Log.Internal(category, "Stopped")
		e.closeErr = errors.Join(eepromErr, e.Log.Close())
	})
	return e.closeErr
}
