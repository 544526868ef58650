// ABOUTME: Fixed-capacity circular buffer of opaque fixed-size elements
// ABOUTME: Drops newest input on overflow so unread data is never overwritten
package ring

import (
	"fmt"

	"github.com/harper/frame-extractor/internal/domain"
)

// Buffer stores up to Cap() elements of ElementSize() bytes each.
//
// State is a read cursor plus an occupancy count, so empty (n == 0) and
// full (n == capacity) never share a representation. The cursor returns
// to slot 0 whenever the buffer drains. Buffer does no locking; one
// goroutine owns it at a time.
type Buffer struct {
	buf      []byte
	capacity int
	elemSize int
	front    int // slot of the oldest unread element
	n        int // unread elements
}

func New(capacity, elementSize int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: ring capacity must be positive, got %d", domain.ErrConfiguration, capacity)
	}
	if elementSize <= 0 {
		return nil, fmt.Errorf("%w: ring element size must be positive, got %d", domain.ErrConfiguration, elementSize)
	}
	return &Buffer{
		buf:      make([]byte, capacity*elementSize),
		capacity: capacity,
		elemSize: elementSize,
	}, nil
}

func (b *Buffer) Cap() int         { return b.capacity }
func (b *Buffer) ElementSize() int { return b.elemSize }

// Len returns the number of unread elements.
func (b *Buffer) Len() int { return b.n }

// Free returns how many more elements fit before the buffer is full.
func (b *Buffer) Free() int { return b.capacity - b.n }

func (b *Buffer) IsEmpty() bool { return b.n == 0 }
func (b *Buffer) IsFull() bool  { return b.n == b.capacity }

// rear is the slot the next element is written to.
func (b *Buffer) rear() int {
	return (b.front + b.n) % b.capacity
}

// Enqueue appends up to count elements from data and returns how many were
// retained. Input beyond the free space is dropped and leaves the buffer
// full; a full buffer retains nothing.
func (b *Buffer) Enqueue(data []byte, count int) int {
	count = b.clamp(count, len(data))
	if count > b.Free() {
		count = b.Free()
	}
	if count == 0 {
		return 0
	}

	start := b.rear()
	right := b.capacity - start
	if right > count {
		right = count
	}

	es := b.elemSize
	copy(b.buf[start*es:(start+right)*es], data[:right*es])
	if right < count {
		copy(b.buf[:(count-right)*es], data[right*es:count*es])
	}

	b.n += count
	return count
}

// Dequeue moves up to count elements into out and returns how many were
// transferred. Reading more than Len() is a short read, not an error.
func (b *Buffer) Dequeue(out []byte, count int) int {
	count = b.read(out, count)
	if count == 0 {
		return 0
	}

	es := b.elemSize
	right := b.capacity - b.front
	if right > count {
		right = count
	}
	clear(b.buf[b.front*es : (b.front+right)*es])
	if right < count {
		clear(b.buf[:(count-right)*es])
	}

	b.front = (b.front + count) % b.capacity
	b.n -= count
	if b.n == 0 {
		b.front = 0
	}
	return count
}

// Peek copies up to count unread elements into out without consuming them.
func (b *Buffer) Peek(out []byte, count int) int {
	return b.read(out, count)
}

func (b *Buffer) read(out []byte, count int) int {
	count = b.clamp(count, len(out))
	if count > b.n {
		count = b.n
	}
	if count == 0 {
		return 0
	}

	es := b.elemSize
	right := b.capacity - b.front
	if right > count {
		right = count
	}

	copy(out[:right*es], b.buf[b.front*es:(b.front+right)*es])
	if right < count {
		copy(out[right*es:count*es], b.buf[:(count-right)*es])
	}
	return count
}

// clamp bounds count to the whole elements available in a slice of size bytes.
func (b *Buffer) clamp(count, size int) int {
	if count < 0 {
		return 0
	}
	if limit := size / b.elemSize; count > limit {
		return limit
	}
	return count
}

// Flush empties the buffer. Storage is left as is but unreachable.
func (b *Buffer) Flush() {
	b.front = 0
	b.n = 0
}

// Snapshot returns a copy of the unread bytes, oldest first.
func (b *Buffer) Snapshot() []byte {
	out := make([]byte, b.n*b.elemSize)
	b.read(out, b.n)
	return out
}

// Storage returns a copy of the physical storage, slot 0 first.
func (b *Buffer) Storage() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
