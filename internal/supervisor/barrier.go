package supervisor

import "sync"

// rendezvous is a cyclic barrier for a fixed party count. It implements
// the 4-party "started" rendezvous of §4.D/§4.F: the dispatcher, the task
// manager, and the task's two output readers each call wait() once; none
// return until all four have arrived. This guarantees the "Task <n>
// started" line is fully emitted, and both output readers have reached
// the barrier, before the dispatcher returns control to the shell's main
// loop.
//
// The type supports repeated rounds, but the supervisor constructs a
// rendezvous fresh for each `run` command and discards it afterward — it
// is not reused across commands, matching the lifetime
// pthread_barrier_init/pthread_barrier_destroy had around one command in
// the original executor.
type rendezvous struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	arrived int
	round   int // bumps once the barrier trips, so late arrivals of the next round don't race
}

// newRendezvous constructs a barrier for exactly n parties.
func newRendezvous(n int) *rendezvous {
	r := &rendezvous{parties: n}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// wait blocks until all parties have called wait, then releases all of
// them together.
func (r *rendezvous) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	round := r.round
	r.arrived++
	if r.arrived == r.parties {
		r.round++
		r.arrived = 0
		r.cond.Broadcast()
		return
	}
	for round == r.round {
		r.cond.Wait()
	}
}
