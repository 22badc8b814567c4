// Package supervisor implements the concurrent task executor: one
// manager goroutine per running child, a 4-party start barrier, and a
// command-boundary completion protocol that keeps "Task k ended" lines
// from ever interleaving with a command's own output.
package supervisor

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/taskexec/taskexec/internal/diag"
)

// Supervisor owns every task slot for one session plus the synchronization
// that coordinates their managers with the command dispatcher.
//
// Locking order, mirroring the two-mutex dance of the original executor
// but collapsed into a single primitive (see DESIGN.md, "command gate"):
// the dispatcher takes commandGate for writing only around the brief
// pre-amble/post-amble of each command; every manager takes it for
// reading for the duration of its own death-recording decision. Readers
// may run concurrently with each other; a writer excludes all readers.
// printMu is always acquired after commandGate, never before.
type Supervisor struct {
	log *zap.Logger

	ids taskIDAllocator

	tasksMu sync.RWMutex
	tasks   []*Task

	commandGate     sync.RWMutex
	commandInFlight bool // guarded by commandGate

	queue completionQueue

	printMu         sync.Mutex
	trailingManager *Task // guarded by printMu

	History commandHistory

	stdout *os.File
}

// New builds a Supervisor that prints the task-lifecycle protocol lines
// to stdout and logs ambient diagnostics through log (which must itself
// be configured to write to stderr, keeping the two streams disjoint).
func New(log *zap.Logger) *Supervisor {
	return &Supervisor{log: log, stdout: os.Stdout}
}

// Run starts task argv and returns once its "started" line has been
// printed and both of its output readers have reached the 4-party
// barrier — i.e. once the dispatcher's side of that barrier has tripped
// (§4.D).
func (sup *Supervisor) Run(argv []string) error {
	n, err := sup.ids.alloc()
	if err != nil {
		return err
	}

	task := newTask(n, argv)
	sup.tasksMu.Lock()
	sup.tasks = append(sup.tasks, task)
	sup.tasksMu.Unlock()

	barrier := newRendezvous(4)
	go sup.runManager(task, barrier)
	barrier.wait()
	return nil
}

// task looks up a task slot by number.
func (sup *Supervisor) task(n int) (*Task, bool) {
	sup.tasksMu.RLock()
	defer sup.tasksMu.RUnlock()
	if n < 0 || n >= len(sup.tasks) {
		return nil, false
	}
	return sup.tasks[n], true
}

// Snapshot returns the full task table, in task-number order, for the
// HTTP introspection surface (§4.H/4.I) and for tests.
func (sup *Supervisor) Snapshot() []snapshot {
	sup.tasksMu.RLock()
	defer sup.tasksMu.RUnlock()
	out := make([]snapshot, len(sup.tasks))
	for i, t := range sup.tasks {
		out[i] = t.snapshot()
	}
	return out
}

// Out prints task n's last captured stdout line (§4.E `out` command).
func (sup *Supervisor) Out(n int) {
	sup.printLast(n, Stdout)
}

// Err prints task n's last captured stderr line (§4.E `err` command).
func (sup *Supervisor) Err(n int) {
	sup.printLast(n, Stderr)
}

func (sup *Supervisor) printLast(n int, stream Stream) {
	task, ok := sup.task(n)
	if !ok {
		fmt.Fprintf(sup.stdout, "Task %d does not exist.\n", n)
		return
	}
	label := "stdout"
	if stream == Stderr {
		label = "stderr"
	}
	fmt.Fprintf(sup.stdout, "Task %d %s: '%s'.\n", n, label, task.readLast(stream))
}

// Kill sends SIGINT to task n's child, if it still has one (§4.F `kill`
// command); errors are ignored, since the child may already have exited.
// The task's own manager observes the eventual exit and records it
// exactly as it would any other death; Kill itself never touches task
// state beyond delivering the signal.
func (sup *Supervisor) Kill(n int) {
	task, ok := sup.task(n)
	if !ok {
		fmt.Fprintf(sup.stdout, "Task %d does not exist.\n", n)
		return
	}
	sendSignal(task, syscall.SIGINT)
}

// beginCommand is the dispatcher's pre-amble (§4.F): it takes the command
// gate for writing just long enough to mark a command in flight and join
// whatever task was left as the trailing manager by the previous
// quiescent window, then releases it. The gate is held only for this
// brief critical section, never across the command body that follows —
// the `commandInFlight` flag itself (read under RLock by every manager's
// recordDeath) is what stays true for the body's duration, so a manager
// racing a long-running command (e.g. `sleep`) still observes
// commandInFlight == true and defers its completion to the queue instead
// of blocking on the gate.
func (sup *Supervisor) beginCommand() {
	sup.commandGate.Lock()
	sup.commandInFlight = true

	sup.printMu.Lock()
	if sup.trailingManager != nil {
		sup.trailingManager.join()
		sup.trailingManager = nil
	}
	sup.printMu.Unlock()

	sup.commandGate.Unlock()
}

// endCommand is the dispatcher's post-amble (§4.F): re-take the command
// gate for writing, drain and print every completion that queued up
// during the command that just ran and join its manager, then open the
// quiescent window by clearing command-in-flight, and release the gate.
func (sup *Supervisor) endCommand() {
	sup.commandGate.Lock()
	defer sup.commandGate.Unlock()

	for _, c := range sup.queue.drain() {
		sup.printEnded(c)
		c.task.join()
	}
	sup.commandInFlight = false
}

// recordDeath is the death-recording protocol of §4.D, run by every
// manager once its child has exited (or failed to ever exist). While
// holding the command gate for reading it either defers the completion
// to the queue (a command is in flight) or announces it immediately and
// becomes the new trailing manager for the quiescent window.
func (sup *Supervisor) recordDeath(c completion) {
	sup.commandGate.RLock()
	defer sup.commandGate.RUnlock()

	if sup.commandInFlight {
		sup.queue.push(c)
		return
	}

	sup.printMu.Lock()
	defer sup.printMu.Unlock()

	if sup.trailingManager != nil {
		sup.trailingManager.join()
	}
	sup.printEndedLocked(c)
	sup.trailingManager = c.task
}

func (sup *Supervisor) printEnded(c completion) {
	sup.printMu.Lock()
	defer sup.printMu.Unlock()
	sup.printEndedLocked(c)
}

func (sup *Supervisor) printEndedLocked(c completion) {
	if c.signalled {
		fmt.Fprintf(sup.stdout, "Task %d ended: signalled.\n", c.task.Number)
		return
	}
	fmt.Fprintf(sup.stdout, "Task %d ended: status %d.\n", c.task.Number, c.exitCode)
}

func (sup *Supervisor) printTaskStarted(task *Task) {
	fmt.Fprintf(sup.stdout, "Task %d started: pid %d.\n", task.Number, task.Pid())
}

// Quit is the body of the `quit` command (§4.F): force-kill every task
// whose child has not yet been reaped, then join every manager handle
// not already consumed, guaranteeing no process outlives the session.
func (sup *Supervisor) Quit() {
	sup.tasksMu.RLock()
	tasks := append([]*Task(nil), sup.tasks...)
	sup.tasksMu.RUnlock()

	for _, t := range tasks {
		if !t.completed.Load() {
			sendSignal(t, syscall.SIGKILL)
		}
	}
	for _, t := range tasks {
		t.join()
	}
}

// fatal reports err as an unrecoverable diagnostic (always to stderr,
// never interleaving with the protocol lines on stdout) and terminates
// the process. It is invoked only for conditions the spec calls fatal:
// exhausting the task table, a failure to set up a task's pipes or to wait
// for its child, an over-long output line, or an output-stream read error
// other than EOF. Errors reading the command stream are handled by
// cmd/taskexec's own fatal path.
func (sup *Supervisor) fatal(err error) {
	diag.PrintErrChain(err)
	if sup.log != nil {
		sup.log.Error("fatal", zap.Error(err))
	}
	os.Exit(1)
}
