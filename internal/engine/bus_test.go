package engine

import (
	"sync"
	"testing"
)

func TestChannelVisibleNextTickOnly(t *testing.T) {
	var ch Channel[int]
	r := ch.Reader()

	ch.Send(1)
	ch.Send(2)
	if got := r.Read(); len(got) != 0 {
		t.Fatalf("records visible in the tick they were sent: %v", got)
	}
	if ch.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", ch.Pending())
	}

	ch.advance()
	got := r.Read()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Read after advance = %v, want [1 2]", got)
	}
	if again := r.Read(); len(again) != 0 {
		t.Errorf("second Read in same tick = %v, want nothing", again)
	}

	ch.advance()
	if got := ch.Readable(); len(got) != 0 {
		t.Errorf("records survived a second advance: %v", got)
	}
}

func TestChannelBroadcast(t *testing.T) {
	var ch Channel[string]
	a := ch.Reader()
	b := ch.Reader()

	ch.Send("hello")
	ch.advance()

	if got := a.Read(); len(got) != 1 {
		t.Errorf("reader a got %v", got)
	}
	if got := b.Read(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("reader b got %v", got)
	}
}

func TestChannelSkipsExpired(t *testing.T) {
	var ch Channel[int]
	r := ch.Reader()

	ch.Send(1)
	ch.advance()
	ch.Send(2)
	ch.advance()

	got := r.Read()
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("Read = %v, want [2]", got)
	}
}

func TestChannelConcurrentSend(t *testing.T) {
	var ch Channel[int]
	r := ch.Reader()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ch.Send(n)
			}
		}(i)
	}
	wg.Wait()
	ch.advance()

	if got := len(r.Read()); got != 800 {
		t.Errorf("read %d records, want 800", got)
	}
}

func TestBusAdvance(t *testing.T) {
	bus := NewBus()
	r := bus.PathRequests.Reader()

	bus.PathRequests.Send(PathfindingRequest{Entity: 7})
	bus.Advance()

	got := r.Read()
	if len(got) != 1 || got[0].Entity != 7 {
		t.Fatalf("Read = %+v", got)
	}
}
