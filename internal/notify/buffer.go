package notify

import "sync"

type message struct {
	Event Event
	prev  *message
}

// buffer is a FIFO of pending events. It never blocks the producer.
type buffer struct {
	lock sync.Mutex
	head *message
	tail *message
	size int
}

func newBuffer() *buffer {
	return &buffer{}
}

func (b *buffer) PushBack(msg *message) int {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.head == nil {
		b.head = msg
		b.tail = msg
	} else {
		b.tail.prev = msg
		b.tail = msg
	}
	b.size++

	return b.size
}

func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.head == nil {
		return nil
	}
	tmp := b.head
	if b.head.prev != nil {
		b.head = b.head.prev
	} else {
		// removing the last one
		b.head = nil
		b.tail = nil
	}
	tmp.prev = nil
	b.size--
	return tmp
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.size
}
