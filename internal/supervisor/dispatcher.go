package supervisor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/taskexec/taskexec/internal/command"
)

// Dispatcher is the command dispatcher of §4.F: it turns one parsed input
// line into a call against the Supervisor, wrapped in the
// beginCommand/endCommand pre-amble and post-amble that keep task
// completions from interleaving with a command's own output.
type Dispatcher struct {
	sup *Supervisor
}

// NewDispatcher wires a Dispatcher to sup.
func NewDispatcher(sup *Supervisor) *Dispatcher {
	return &Dispatcher{sup: sup}
}

// Dispatch executes one line and reports whether the session should end:
// either because the line was `quit`, or because eof is true (end of
// input is itself the null command, handled identically to an explicit
// quit, per §4.F/§4.G).
func (d *Dispatcher) Dispatch(line string, eof bool) (shouldQuit bool) {
	d.sup.History.record(line)
	d.sup.beginCommand()
	defer d.sup.endCommand()

	if eof {
		d.sup.Quit()
		return true
	}

	cmd := command.Parse(line)
	switch cmd.Verb {
	case command.Empty:
		// no-op

	case command.Run:
		if len(cmd.Args) == 0 {
			fmt.Fprintln(d.sup.stdout, "run requires a program to execute.")
			break
		}
		if err := d.sup.Run(cmd.Args); err != nil {
			d.sup.fatal(err)
		}

	case command.Out:
		n, err := parseTaskNumber(cmd.Args)
		if err != nil {
			fmt.Fprintln(d.sup.stdout, err)
			break
		}
		d.sup.Out(n)

	case command.Err:
		n, err := parseTaskNumber(cmd.Args)
		if err != nil {
			fmt.Fprintln(d.sup.stdout, err)
			break
		}
		d.sup.Err(n)

	case command.Kill:
		n, err := parseTaskNumber(cmd.Args)
		if err != nil {
			fmt.Fprintln(d.sup.stdout, err)
			break
		}
		d.sup.Kill(n)

	case command.Sleep:
		ms, err := parseNonNegativeInt(cmd.Args)
		if err != nil {
			fmt.Fprintln(d.sup.stdout, err)
			break
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)

	case command.Quit:
		shouldQuit = true
		d.sup.Quit()

	default:
		fmt.Fprintf(d.sup.stdout, "Unknown command: %s.\n", cmd.Verb)
	}

	return shouldQuit
}

func parseTaskNumber(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one task number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a valid task number", args[0])
	}
	return n, nil
}

func parseNonNegativeInt(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a valid non-negative integer", args[0])
	}
	return n, nil
}
