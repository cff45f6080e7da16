// Package logger is the process-wide diagnostic sink.
//
// A Logger wraps log/slog. Records are fanned out to a console text
// handler, an optional log file, an optional systemd journal and an
// in-memory history that the log-history command reads. Every record is
// stamped with the shared Clock rather than the host wall clock, so log
// timestamps line up with what sketch code sees from millis().
//
// The Logger is safe for concurrent use. Each sink serializes only its
// own append; callers are not ordered beyond that.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"

	"github.com/sangpham88/ncore/clock"
)

const (
	// CategoryKey is the attribute that carries a record's category.
	CategoryKey = "category"

	// RunKey is the attribute that carries the per-process run id.
	RunKey = "run"

	// DefaultHistory is the number of lines kept for log-history.
	DefaultHistory = 200
)

// Options configures a Logger.
type Options struct {
	// Console receives text records. Nil means os.Stderr.
	Console io.Writer

	// File, when set, is opened for appending and receives text records.
	File string

	// Journal adds a systemd journal handler when one is reachable.
	Journal bool

	// Level is the initial minimum level ("debug", "info", "warn", "error").
	Level string

	// History is the number of formatted lines kept in memory.
	// Zero means DefaultHistory; negative disables history.
	History int

	// RunID tags file and journal records. Empty means a new UUID.
	RunID string
}

// Logger is the diagnostic sink shared by every component.
type Logger struct {
	clock   clock.Clock
	epoch   time.Time
	level   *slog.LevelVar
	handler slog.Handler
	history *history
	file    *os.File
	runID   string
}

// New creates a logger. It fails only when the log file cannot be opened
// or the level is not recognised.
func New(clk clock.Clock, opts Options) (*Logger, error) {
	level := new(slog.LevelVar)
	if opts.Level != "" {
		lv, err := ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		level.Set(lv)
	}

	l := &Logger{
		clock: clk,
		epoch: time.Now(),
		level: level,
		runID: opts.RunID,
	}
	if l.runID == "" {
		l.runID = uuid.NewString()
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	textOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: l.replaceTime,
	}
	run := []slog.Attr{slog.String(RunKey, l.runID)}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, textOpts),
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		handlers = append(handlers, slog.NewTextHandler(f, textOpts).WithAttrs(run))
	}

	historySize := opts.History
	if historySize == 0 {
		historySize = DefaultHistory
	}
	if historySize > 0 {
		l.history = newHistory(historySize)
		handlers = append(handlers, &historyHandler{history: l.history, level: level, epoch: l.epoch})
	}

	var journalErr error
	if opts.Journal {
		jh, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			journalErr = err
		} else {
			handlers = append(handlers, jh.WithAttrs(run))
		}
	}

	l.handler = slogmulti.Fanout(handlers...)

	if journalErr != nil {
		l.Warn("CORE", "systemd journal unavailable", "error", journalErr)
	}
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// RunID returns the id attached to this process's records.
func (l *Logger) RunID() string {
	return l.runID
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// SetLevel changes the minimum level for every sink.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Internal records a core lifecycle message.
func (l *Logger) Internal(category, message string) {
	l.log(slog.LevelInfo, category, message)
}

// Debug records a debug message. args are slog key/value pairs.
func (l *Logger) Debug(category, message string, args ...any) {
	l.log(slog.LevelDebug, category, message, args...)
}

// Info records an informational message.
func (l *Logger) Info(category, message string, args ...any) {
	l.log(slog.LevelInfo, category, message, args...)
}

// Warn records a warning.
func (l *Logger) Warn(category, message string, args ...any) {
	l.log(slog.LevelWarn, category, message, args...)
}

// Error records an error.
func (l *Logger) Error(category, message string, args ...any) {
	l.log(slog.LevelError, category, message, args...)
}

// History returns up to n of the most recent formatted lines, oldest
// first. n <= 0 returns everything kept.
func (l *Logger) History(n int) []string {
	if l.history == nil {
		return nil
	}
	return l.history.last(n)
}

func (l *Logger) log(level slog.Level, category, message string, args ...any) {
	if l == nil {
		return
	}
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(l.now(), level, message, 0)
	r.AddAttrs(slog.String(CategoryKey, category))
	r.Add(args...)
	_ = l.handler.Handle(ctx, r)
}

// now maps the shared clock onto a time.Time for slog.
func (l *Logger) now() time.Time {
	return l.epoch.Add(l.clock.Now())
}

// replaceTime renders the record time as seconds since start.
func (l *Logger) replaceTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, elapsed(a.Value.Time().Sub(l.epoch)))
	}
	return a
}

func elapsed(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level '%s'", s)
	}
	return lv, nil
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}
