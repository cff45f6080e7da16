package serial

import (
	"fmt"
	"strings"

	"github.com/sangpham88/ncore/dispatch"
	"github.com/sangpham88/ncore/parser"
)

// Name implements dispatch.Dispatchable.
func (b *Buffer) Name() string {
	return "serial"
}

// Commands implements dispatch.Dispatchable.
func (b *Buffer) Commands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:        "serial-send",
			Usage:       "<text...>",
			Description: "Send a line to the sketch (escapes: \\n \\t \\r \\\\)",
			Handler:     b.cmdSend,
		},
		{
			Name:        "serial-read",
			Description: "Show and clear what the sketch has printed",
			Handler:     b.cmdRead,
		},
		{
			Name:        "serial-status",
			Description: "Show baud rate and queue counters",
			Handler:     b.cmdStatus,
		},
		{
			Name:        "serial-clear",
			Description: "Empty both serial queues",
			Handler:     b.cmdClear,
		},
	}
}

func (b *Buffer) cmdSend(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 1, -1, "serial-send <text...>"); err != nil {
		return dispatch.Result{}, err
	}
	text := parser.ExpandEscapes(strings.Join(args, " ")) + "\n"
	n := b.Send([]byte(text))
	if n < len(text) {
		return dispatch.OK(fmt.Sprintf("sent %d of %d bytes (receive buffer full)", n, len(text))), nil
	}
	return dispatch.OK(), nil
}

func (b *Buffer) cmdRead(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "serial-read"); err != nil {
		return dispatch.Result{}, err
	}
	out := b.Drain()
	if len(out) == 0 {
		return dispatch.OK(), nil
	}
	text := strings.ReplaceAll(string(out), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return dispatch.OK(strings.Split(text, "\n")...), nil
}

func (b *Buffer) cmdStatus(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "serial-status"); err != nil {
		return dispatch.Result{}, err
	}
	st := b.Status()
	state := "closed"
	if st.Open {
		state = "open"
	}
	return dispatch.OK(
		fmt.Sprintf("port %s at %d baud", state, st.Baud),
		fmt.Sprintf("rx %d pending, %d dropped", st.RxPending, st.RxDropped),
		fmt.Sprintf("tx %d pending, %d dropped", st.TxPending, st.TxDropped),
	), nil
}

func (b *Buffer) cmdClear(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "serial-clear"); err != nil {
		return dispatch.Result{}, err
	}
	b.Clear()
	return dispatch.OK(), nil
}
