package sketch

import (
	"fmt"

	"github.com/sangpham88/ncore/dispatch"
)

// Name implements dispatch.Dispatchable.
func (r *Runner) Name() string {
	return "sketch"
}

// Commands implements dispatch.Dispatchable.
func (r *Runner) Commands() []dispatch.Command {
	return []dispatch.Command{
		{
			Name:        "sketch",
			Description: "Show the running sketch, its state and loop count",
			Handler:     r.cmdStatus,
		},
	}
}

func (r *Runner) cmdStatus(args []string) (dispatch.Result, error) {
	if err := dispatch.ArgCount(args, 0, 0, "sketch"); err != nil {
		return dispatch.Result{}, err
	}
	st := r.Status()
	lines := []string{
		"sketch " + st.Name,
		"state " + st.State.String(),
		fmt.Sprintf("loops %d", st.Loops),
		fmt.Sprintf("uptime %d ms", st.Uptime.Milliseconds()),
	}
	if st.Err != nil {
		lines = append(lines, "error "+st.Err.Error())
	}
	return dispatch.OK(lines...), nil
}
