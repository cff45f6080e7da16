package logger

import (
	"strconv"
	"strings"

	"github.com/sangpham88/ncore/dispatch"
)

// Name implements dispatch.Dispatchable.
func (l *Logger) Name() string {
	return "logger"
}

// Commands implements dispatch.Dispatchable.
func (l *Logger) Commands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:        "log",
			Usage:       "<text...>",
			Description: "Write a line to the log",
			Handler:     l.cmdLog,
		},
		{
			Name:        "log-level",
			Usage:       "[debug|info|warn|error]",
			Description: "Show or set the minimum log level",
			Handler:     l.cmdLevel,
		},
		{
			Name:        "log-history",
			Usage:       "[n]",
			Description: "Show the most recent log lines",
			Handler:     l.cmdHistory,
		},
	}
}

func (l *Logger) cmdLog(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 1, -1, "log <text...>"); err != nil {
		return dispatch.Result{}, err
	}
	l.Info("USER", strings.Join(args, " "))
	return dispatch.OK(), nil
}

func (l *Logger) cmdLevel(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 1, "log-level [debug|info|warn|error]"); err != nil {
		return dispatch.Result{}, err
	}
	if len(args) == 1 {
		lv, err := ParseLevel(args[0])
		if err != nil {
			return dispatch.Result{}, dispatch.NewArgumentError("level", args[0], "expected debug, info, warn or error")
		}
		l.SetLevel(lv)
	}
	return dispatch.OK("level " + strings.ToLower(l.Level().String())), nil
}

func (l *Logger) cmdHistory(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 1, "log-history [n]"); err != nil {
		return dispatch.Result{}, err
	}
	n := 20
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return dispatch.Result{}, dispatch.NewArgumentError("count", args[0], "expected a positive number")
		}
		n = v
	}
	return dispatch.OK(l.History(n)...), nil
}
