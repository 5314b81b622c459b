// SPDX-License-Identifier: MIT
/*
Package ringbuf implements a fixed-size byte ring between a real-time
producer and a blocking consumer.

Write never blocks: when the ring is full the oldest data is dropped in
whole frames, so a reader stays aligned to the frame grid. Read blocks until
data arrives or the buffer is closed.
*/
package ringbuf

import (
	"io"
	"sync"
)

// Buffer is a circular byte queue. It is safe for one writer and any number
// of readers.
type Buffer struct {
	mu        sync.Mutex
	cond      *sync.Cond
	data      []byte
	frameSize int
	readPos   int
	size      int
	closed    bool
	dropped   int64
}

// New creates a ring holding capacity bytes, rounded down to a multiple of
// frameSize.
func New(capacity, frameSize int) *Buffer {
	frameSize = max(frameSize, 1)
	capacity = max(capacity/frameSize, 1) * frameSize
	b := &Buffer{
		data:      make([]byte, capacity),
		frameSize: frameSize,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Write appends p, dropping the oldest frames if there is not enough room.
// It returns io.ErrClosedPipe once the buffer is closed.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n := len(p)
	if n == 0 {
		return 0, nil
	}

	capacity := len(b.data)
	if n > capacity {
		skip := n - capacity
		b.dropped += int64(skip)
		p = p[skip:]
	}
	if free := capacity - b.size; len(p) > free {
		over := len(p) - free
		drop := min((over+b.frameSize-1)/b.frameSize*b.frameSize, b.size)
		b.readPos = (b.readPos + drop) % capacity
		b.size -= drop
		b.dropped += int64(drop)
	}

	writePos := (b.readPos + b.size) % capacity
	c := copy(b.data[writePos:], p)
	copy(b.data, p[c:])
	b.size += len(p)

	b.cond.Broadcast()
	return n, nil
}

// Read blocks until data is available, then copies up to len(p) bytes. After
// Close it drains what is left and then returns io.EOF.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.size == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.size == 0 {
		return 0, io.EOF
	}

	n := min(len(p), b.size)
	c := copy(p[:n], b.data[b.readPos:])
	copy(p[c:n], b.data)
	b.readPos = (b.readPos + n) % len(b.data)
	b.size -= n
	return n, nil
}

// Close wakes all blocked readers. It is safe to call more than once.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
	return nil
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the capacity in bytes.
func (b *Buffer) Cap() int { return len(b.data) }

// Dropped returns the total number of bytes lost to overruns.
func (b *Buffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Reset discards buffered data and the overrun count.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readPos, b.size, b.dropped = 0, 0, 0
}
