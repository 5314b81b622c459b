// SPDX-License-Identifier: MIT
package sink

import (
	"sync"
	"sync/atomic"
)

// Async forwards records to another sink from its own goroutine. Send never
// blocks; when the queue is full the record is dropped and counted.
type Async struct {
	next    Sink
	queue   chan any
	dropped atomic.Int64

	mu       sync.RWMutex // Guards closed against concurrent Send.
	closed   bool
	stopOnce sync.Once
	wg       sync.WaitGroup
	closeErr error
}

// NewAsync starts forwarding to next with a queue of the given depth.
func NewAsync(next Sink, depth int) *Async {
	a := &Async{
		next:  next,
		queue: make(chan any, max(depth, 1)),
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer a.wg.Done()
	for data := range a.queue {
		if err := a.next.Send(data); err != nil {
			logger.Warnf("forwarding %T: %v", data, err)
		}
	}
}

func (a *Async) Send(data any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- data:
	default:
		a.dropped.Add(1)
	}
	return nil
}

// Dropped returns the number of records lost to a full queue.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Close delivers queued records, then closes the wrapped sink.
func (a *Async) Close() error {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()

		a.wg.Wait()
		if n := a.dropped.Load(); n > 0 {
			logger.Warnf("dropped %d records", n)
		}
		a.closeErr = a.next.Close()
	})
	return a.closeErr
}

var _ Sink = (*Async)(nil)
