package norm

import "testing"

func TestQueueBoundedFIFO(t *testing.T) {
	q := newQueue[int](2)

	if !q.empty() {
		t.Error("new queue should be empty")
	}
	if _, ok := q.tryPop(); ok {
		t.Error("pop from empty queue should fail")
	}

	if !q.tryPush(1) || !q.tryPush(2) {
		t.Fatal("pushes within capacity should succeed")
	}
	if !q.full() {
		t.Error("queue at capacity should report full")
	}
	if q.tryPush(3) {
		t.Error("push to full queue should fail without enqueueing")
	}

	for want := 1; want <= 2; want++ {
		v, ok := q.tryPop()
		if !ok {
			t.Fatalf("pop %d failed", want)
		}
		if v != want {
			t.Errorf("pop = %d, want %d (FIFO order)", v, want)
		}
	}
	if !q.empty() {
		t.Error("drained queue should be empty")
	}
}

func TestQueueRejectedPushIsNotLost(t *testing.T) {
	q := newQueue[string](1)
	q.tryPush("a")
	if q.tryPush("b") {
		t.Fatal("second push should have been rejected")
	}
	v, _ := q.tryPop()
	if v != "a" {
		t.Errorf("pop = %q, want %q", v, "a")
	}
	if !q.tryPush("b") {
		t.Error("push after drain should succeed")
	}
}
