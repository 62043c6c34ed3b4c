package bus

import (
	"strings"
	"sync"

	"github.com/golang-collections/collections/queue"
)

// Bus is an in-process publish/subscribe event bus with namespace filtering.
// Publish never blocks: every subscriber owns an unbounded mailbox drained by
// its own goroutine, so a slow subscriber delays only itself and loses nothing.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespace string

	mu      sync.Mutex
	mailbox *queue.Queue
	wake    chan struct{}
	out     chan Event
	done    chan struct{}
	once    sync.Once
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish queues an event for all subscribers whose namespace is a prefix of evt.Kind.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.namespace) {
			sub.enqueue(evt)
		}
	}
}

// Subscribe returns a channel that receives events matching the given namespace prefix,
// in publish order. bufSize sizes the delivery channel. The returned function
// unsubscribes; events still in the mailbox at that point are discarded.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	sub := &subscription{
		namespace: namespace,
		mailbox:   queue.New(),
		wake:      make(chan struct{}, 1),
		out:       make(chan Event, bufSize),
		done:      make(chan struct{}),
	}
	go sub.pump()

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	return sub.out, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.once.Do(func() { close(sub.done) })
	}
}

// Subscribers reports how many subscriptions are currently registered.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (s *subscription) enqueue(evt Event) {
	s.mu.Lock()
	s.mailbox.Enqueue(evt)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) pump() {
	for {
		s.mu.Lock()
		if s.mailbox.Len() == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		evt := s.mailbox.Dequeue().(Event)
		s.mu.Unlock()

		select {
		case s.out <- evt:
		case <-s.done:
			return
		}
	}
}
