package relay

import (
	"sync"
	"testing"
)

func TestClient_EnqueueDropsWhenFull(t *testing.T) {
	c := NewClient("c1", nil, 1)
	if !c.Enqueue([]byte("a")) {
		t.Fatalf("first enqueue should succeed")
	}
	if c.Enqueue([]byte("b")) {
		t.Fatalf("enqueue on a full queue should drop")
	}
	if got := <-c.Send; string(got) != "a" {
		t.Fatalf("queued frame = %q, want %q", got, "a")
	}
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	c := NewClient("c1", nil, 4)
	c.Close()
	if c.Enqueue([]byte("x")) {
		t.Fatalf("enqueue after close should drop")
	}
}

// The announce handler rebinds the identity on the connection's own read
// loop while fanout workers hit Enqueue's queue-full path, which logs the
// identity. Both sides must go through the guarded accessors; run with the
// race detector.
func TestClient_IdentityRebindDuringEnqueue(t *testing.T) {
	c := NewClient("c1", nil, 1)
	c.Enqueue([]byte("fill")) // every further enqueue takes the drop path

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.SetUser("alice")
			c.SetUser("bob")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Enqueue([]byte("x"))
			_ = c.User()
		}
	}()
	wg.Wait()

	if u := c.User(); u != "bob" {
		t.Fatalf("identity = %q, want %q", u, "bob")
	}
}
