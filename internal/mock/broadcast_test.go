package mock

import (
	"strconv"
	"testing"

	"github.com/meetz/fansession/internal/event"
)

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	c1 := b.AddClient()
	c2 := b.AddClient()
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("ClientCount = %d, want 2", n)
	}

	b.Publish(event.Switching())
	b.Publish(event.Setting())

	for _, c := range []*Subscriber{c1, c2} {
		first, second := <-c.Messages(), <-c.Messages()
		if first.ID != "1" || string(first.Data) != `{"type":4}` {
			t.Errorf("first = %s %s", first.ID, first.Data)
		}
		if second.ID != "2" || string(second.Data) != `{"type":0}` {
			t.Errorf("second = %s %s", second.ID, second.Data)
		}
	}
}

func TestBroadcasterLateJoinerGetsLastEvent(t *testing.T) {
	b := NewBroadcaster()
	if _, ok := b.Last(); ok {
		t.Fatal("Last on empty broadcaster reported ok")
	}
	b.Publish(event.Setting())
	b.Publish(event.PhotoRequested())

	c := b.AddClient()
	defer b.RemoveClient(c)
	select {
	case msg := <-c.Messages():
		if msg.ID != "2" || string(msg.Data) != `{"type":3}` {
			t.Errorf("replayed %s %s", msg.ID, msg.Data)
		}
	default:
		t.Fatal("late joiner received nothing")
	}
}

func TestBroadcasterRemoveClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	c := b.AddClient()
	b.RemoveClient(c)
	b.RemoveClient(c)

	if _, ok := <-c.Messages(); ok {
		t.Error("send channel still open after RemoveClient")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount = %d, want 0", n)
	}
	b.Publish(event.Setting())
}

func TestBroadcasterJoinDuringPublishSeesEachEventOnce(t *testing.T) {
	b := NewBroadcaster()
	const events = 50

	joined := make(chan *Subscriber)
	go func() {
		for i := 0; i < events; i++ {
			b.Publish(event.Countdown(event.KindCountdown, i, "A", "", "tok", 0))
		}
	}()
	go func() {
		joined <- b.AddClient()
	}()
	c := <-joined
	defer b.RemoveClient(c)

	seen := map[string]bool{}
	for len(seen) == 0 || !seen[strconv.Itoa(events)] {
		msg := <-c.Messages()
		if seen[msg.ID] {
			t.Fatalf("message %s delivered twice", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestBroadcasterDropsSlowClient(t *testing.T) {
	b := NewBroadcaster()
	c := b.AddClient()
	for i := 0; i < cap(c.send)+1; i++ {
		b.Publish(event.Setting())
	}
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("ClientCount = %d, want 0", n)
	}
	n := 0
	for range c.Messages() {
		n++
	}
	if n != cap(c.send) {
		t.Errorf("drained %d messages, want %d", n, cap(c.send))
	}
}
