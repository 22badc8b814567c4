package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
)

// completion is the immutable record of one task's exit, produced by its
// manager and either announced immediately or buffered on the completion
// queue (§4.E) until the dispatcher is free to flush it.
type completion struct {
	task      *Task
	exitCode  int32
	signalled bool
}

// runManager is the task manager of §4.D. It owns the full lifecycle of
// one child: spawning it, starting its two output readers, announcing
// "started", waiting for exit, and handing the result to the
// death-recording protocol. It runs on its own goroutine, started by
// Supervisor.Run, and signals its own completion by closing task.managerDone
// when every obligation below — including joining both output readers —
// has been discharged.
func (sup *Supervisor) runManager(task *Task, barrier *rendezvous) {
	defer close(task.managerDone)

	cmd := exec.Command(task.Argv[0], task.Argv[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sup.fatal(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		sup.fatal(err)
	}

	readers := [2]*outputReader{
		{task: task, stream: Stdout, pipe: stdout},
		{task: task, stream: Stderr, pipe: stderr},
	}
	readerErrs := make(chan error, len(readers))
	for _, r := range readers {
		r := r
		go func() { readerErrs <- r.run(barrier) }()
	}

	startErr := cmd.Start()

	var pid int64
	if startErr == nil {
		pid = int64(cmd.Process.Pid)
	}
	task.pid.Store(pid)
	task.started.Store(true)

	sup.printTaskStarted(task)

	// Fourth party: the dispatcher itself, already waiting.
	barrier.wait()

	var result completion
	result.task = task

	// Both readers run to end-of-stream before Wait: Wait closes the read
	// ends of the pipes, which would cut off output not yet consumed.
	for range readers {
		if err := <-readerErrs; err != nil {
			sup.fatal(err)
		}
	}

	if startErr != nil {
		// The child never ran (e.g. the program does not exist). Go's
		// exec.Cmd folds fork+exec into a single call, so there is no
		// observable pid for a fork that "succeeded but failed to exec"
		// the way the original executor models it; we preserve that
		// contract's surface behavior instead — every run still produces
		// exactly one started/ended pair, the failure surfaces as a
		// normal completion with exit status 1, and pid 0 marks a task
		// whose child never actually came into existence.
		result.exitCode = 1
	} else {
		waitErr := cmd.Wait()
		state := cmd.ProcessState
		if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			result.signalled = true
		} else if waitErr != nil {
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				result.exitCode = int32(exitErr.ExitCode())
			} else {
				sup.fatal(waitErr)
			}
		} else {
			result.exitCode = int32(state.ExitCode())
		}
	}

	task.completed.Store(true)
	task.exitCode.Store(result.exitCode)
	task.signalled.Store(result.signalled)

	sup.recordDeath(result)
}

// sendSignal delivers sig to task's child process, if it still has one.
// ESRCH (already gone) is not an error worth reporting: the spec's kill
// and quit paths both treat "nothing to signal" as success.
func sendSignal(task *Task, sig syscall.Signal) {
	pid := task.Pid()
	if pid <= 0 {
		return
	}
	if err := syscall.Kill(int(pid), sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		_ = err // best-effort; the task's own manager will still observe and record the exit
	}
}
