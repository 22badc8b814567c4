package supervisor

import "testing"

func TestTaskIDAllocatorDenseAndMonotone(t *testing.T) {
	var a taskIDAllocator
	for want := 0; want < 10; want++ {
		got, err := a.alloc()
		if err != nil {
			t.Fatalf("alloc() returned error: %v", err)
		}
		if got != want {
			t.Fatalf("alloc() = %d, want %d", got, want)
		}
	}
}

func TestTaskIDAllocatorExhaustion(t *testing.T) {
	a := taskIDAllocator{next: maxTasks}
	if _, err := a.alloc(); err == nil {
		t.Fatal("expected error once the session cap is reached")
	}
}
