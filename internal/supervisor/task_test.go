package supervisor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskReadWriteLastIsPerStream(t *testing.T) {
	task := newTask(0, []string{"/bin/echo", "hi"})

	assert.Equal(t, "", task.readLast(Stdout))
	assert.Equal(t, "", task.readLast(Stderr))

	task.writeLast(Stdout, "first")
	task.writeLast(Stdout, "second")
	task.writeLast(Stderr, "oops")

	assert.Equal(t, "second", task.readLast(Stdout))
	assert.Equal(t, "oops", task.readLast(Stderr))
}

func TestTaskJoinIsIdempotentAndConcurrencySafe(t *testing.T) {
	task := newTask(0, nil)
	close(task.managerDone)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.join()
		}()
	}
	wg.Wait() // must not deadlock or panic on a closed channel
}

func TestTaskSnapshotReflectsState(t *testing.T) {
	task := newTask(3, []string{"/bin/sleep", "1"})
	task.pid.Store(4242)
	task.started.Store(true)
	task.writeLast(Stdout, "line")

	snap := task.snapshot()
	assert.Equal(t, 3, snap.Number)
	assert.Equal(t, int64(4242), snap.Pid)
	assert.True(t, snap.Started)
	assert.False(t, snap.Completed)
	assert.Equal(t, "line", snap.Stdout)
}
