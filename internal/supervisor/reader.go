package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// outputReader drains one of a task's two pipes, publishing each complete
// line into the task's last-line slot for that stream (§4.C).
//
// Each reader participates in the task's 4-party start barrier before
// touching its pipe, so that by the time the dispatcher's own wait()
// returns, both readers have been started; anything the child writes
// before a reader begins scanning stays buffered in the pipe and is not
// missed.
type outputReader struct {
	task   *Task
	stream Stream
	pipe   io.ReadCloser
}

// run is the body of the output reader's goroutine. It never returns an
// error for ordinary end-of-stream (pipe closed because the child exited,
// or — in the exec-failure case — because exec.Cmd.Start closed the unused
// pipe, which reads as os.ErrClosed); any other read error is a fatal
// resource/I/O error for the whole process (§7).
func (r *outputReader) run(barrier *rendezvous) error {
	defer r.pipe.Close()

	barrier.wait()

	sc := bufio.NewScanner(r.pipe)
	sc.Buffer(make([]byte, 0, maxOutputLine+1), maxOutputLine+1)

	for sc.Scan() {
		r.task.writeLast(r.stream, sc.Text())
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("task %d: %s: %w", r.task.Number, r.stream, err)
	}
	return nil
}
