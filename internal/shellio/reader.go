// Package shellio reads the command stream off an input source, out of
// scope for the supervisor's core but specified where it touches it
// (§4.G, §6).
package shellio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// maxCommandLine is the maximum number of usable characters on one input
// line (§6: "maximum line length 511 usable characters").
const maxCommandLine = 511

// LineReader reads newline-terminated commands from an underlying
// reader, enforcing the maximum line length.
type LineReader struct {
	sc *bufio.Scanner
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, maxCommandLine+1), maxCommandLine+1)
	return &LineReader{sc: sc}
}

// ReadLine returns the next line. ok is false at end-of-input (not an
// error: per §4.G, end-of-input is itself the null command, mapped to
// quit by the caller). A line longer than maxCommandLine is a resource
// limit violation and is returned as a fatal error (§7).
func (lr *LineReader) ReadLine() (line string, ok bool, err error) {
	if lr.sc.Scan() {
		return lr.sc.Text(), true, nil
	}
	if err := lr.sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", false, fmt.Errorf("shellio: command line exceeds %d characters", maxCommandLine)
		}
		return "", false, fmt.Errorf("shellio: read failed: %w", err)
	}
	return "", false, nil
}
