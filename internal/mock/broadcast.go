package mock

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/event"
	pkglog "github.com/meetz/fansession/internal/log"
)

// Message is one encoded event with its stream id.
type Message struct {
	ID   string
	Data []byte
}

// Subscriber is one fan connection's queue.
type Subscriber struct {
	send chan Message
}

// Messages yields queued messages; it is closed when the subscriber is removed.
func (s *Subscriber) Messages() <-chan Message {
	return s.send
}

// Broadcaster fans encoded session events out to every connected fan.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*Subscriber]bool
	seq     uint64
	last    *Message
	logger  zerolog.Logger
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*Subscriber]bool),
		logger:  pkglog.L(),
	}
}

// AddClient registers a subscriber. A late joiner immediately receives the
// most recent event so it can render the current state.
func (b *Broadcaster) AddClient() *Subscriber {
	c := &Subscriber{send: make(chan Message, 64)}

	b.mu.Lock()
	b.clients[c] = true
	if b.last != nil {
		c.send <- *b.last
	}
	b.mu.Unlock()
	return c
}

func (b *Broadcaster) RemoveClient(c *Subscriber) {
	b.mu.Lock()
	b.remove(c)
	b.mu.Unlock()
}

// remove requires b.mu held for writing.
func (b *Broadcaster) remove(c *Subscriber) {
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// Last returns the most recently published message.
func (b *Broadcaster) Last() (Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return Message{}, false
	}
	return *b.last, true
}

// Publish encodes ev and queues it for every client. Clients that cannot
// keep up are disconnected.
func (b *Broadcaster) Publish(ev event.SessionEvent) {
	data, err := event.Encode(ev)
	if err != nil {
		b.logger.Error().Err(err).Msg("broadcast encode error")
		return
	}
	b.publish(data)
}

// publish queues under the write lock so a client added concurrently sees
// msg either as its replay or as a delivery, never both.
func (b *Broadcaster) publish(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	msg := Message{ID: strconv.FormatUint(b.seq, 10), Data: data}
	b.last = &msg
	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			b.logger.Warn().Msg("fan client too slow, disconnecting")
			b.remove(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
