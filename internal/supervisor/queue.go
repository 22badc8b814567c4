package supervisor

import "sync"

// completionQueue buffers completions that arrive while a command is in
// flight, so that "Task k ended" lines never interleave with that
// command's own output (§4.E, Invariant 4). Entries are appended in the
// order their managers reach the death-recording protocol and drained in
// that same order at the next command boundary.
type completionQueue struct {
	mu      sync.Mutex
	entries []completion
}

func (q *completionQueue) push(c completion) {
	q.mu.Lock()
	q.entries = append(q.entries, c)
	q.mu.Unlock()
}

// drain returns and clears every buffered completion, oldest first. The
// caller must already hold whatever exclusion keeps new completions from
// racing the flush (the dispatcher's commandGate write lock).
func (q *completionQueue) drain() []completion {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	out := q.entries
	q.entries = nil
	return out
}
