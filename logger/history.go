package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// history is a fixed-size ring of formatted log lines.
type history struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newHistory(size int) *history {
	return &history{lines: make([]string, size)}
}

func (h *history) add(line string) {
	h.mu.Lock()
	h.lines[h.next] = line
	h.next = (h.next + 1) % len(h.lines)
	if h.next == 0 {
		h.full = true
	}
	h.mu.Unlock()
}

func (h *history) last(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var ordered []string
	if h.full {
		ordered = append(ordered, h.lines[h.next:]...)
	}
	ordered = append(ordered, h.lines[:h.next]...)

	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// historyHandler formats records as single lines into a history ring:
//
//	12.345 INFO  PINS pin 13 HIGH
//
// Attributes other than the category follow as key=value pairs.
// Attributes bound with WithAttrs are not kept.
type historyHandler struct {
	history *history
	level   slog.Leveler
	epoch   time.Time
}

func (h *historyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *historyHandler) Handle(_ context.Context, r slog.Record) error {
	category := "-"
	var extra []string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == CategoryKey {
			category = a.Value.String()
			return true
		}
		extra = append(extra, a.Key+"="+a.Value.String())
		return true
	})

	line := fmt.Sprintf("%s %-5s %s %s", elapsed(r.Time.Sub(h.epoch)), r.Level.String(), category, r.Message)
	if len(extra) > 0 {
		line += " " + strings.Join(extra, " ")
	}
	h.history.add(line)
	return nil
}

func (h *historyHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

func (h *historyHandler) WithGroup(string) slog.Handler {
	return h
}
