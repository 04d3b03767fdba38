package recognition

import (
	"testing"
	"time"
)

func TestQueueDropsOldest(t *testing.T) {
	q := newFrameQueue(2)
	for i, want := range []bool{false, false, true} {
		dropped, ok := q.Push([]byte{byte(i)})
		if !ok || dropped != want {
			t.Errorf("push %v: expected dropped=%v, got %v %v", i, want, dropped, ok)
		}
	}
	done := make(chan struct{})
	for _, want := range []byte{1, 2} {
		f, ok := q.Pop(done)
		if !ok || f[0] != want {
			t.Errorf("expected %v, got %v", want, f)
		}
	}
}

func TestQueuePopWaits(t *testing.T) {
	q := newFrameQueue(4)
	got := make(chan []byte)
	go func() {
		f, _ := q.Pop(make(chan struct{}))
		got <- f
	}()
	time.Sleep(10 * time.Millisecond)
	q.Push([]byte("x"))
	select {
	case f := <-got:
		if string(f) != "x" {
			t.Errorf("expected x, got %s", f)
		}
	case <-time.After(time.Second):
		t.Fatalf("pop did not wake up")
	}
}

func TestQueueClose(t *testing.T) {
	q := newFrameQueue(4)
	q.Push([]byte("x"))
	q.Close()
	if _, ok := q.Pop(make(chan struct{})); ok {
		t.Errorf("expected no frames after close")
	}
	if _, ok := q.Push([]byte("y")); ok {
		t.Errorf("expected push to fail after close")
	}

	q2 := newFrameQueue(1)
	done := make(chan struct{})
	close(done)
	if _, ok := q2.Pop(done); ok {
		t.Errorf("expected pop to quit on done")
	}
}
