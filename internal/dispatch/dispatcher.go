// SPDX-License-Identifier: MIT
/*
Package dispatch turns a PCM byte stream into a sequence of overlapping
float32 analysis windows and feeds each one through a chain of processors.

A Dispatcher moves through three states: created, running and stopped. Run
blocks on the calling goroutine until the source is exhausted, an error
occurs or Stop is called. Stop is the only method that may be called from
another goroutine while Run is active.

Thread Safety:
  - State transitions and the stop flag are atomic
  - The window, byte buffer and Event are owned by the Run goroutine
  - The processor list is copy-on-write so it can be changed during Run
*/
package dispatch

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"pitchtrack/internal/log"
	"pitchtrack/internal/pcm"
)

var logger = log.Named("Dispatch")

const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

// Dispatcher reads windows of windowSize samples from a Source, consecutive
// windows sharing overlap samples.
type Dispatcher struct {
	src    Source
	format pcm.Format
	codec  pcm.Codec

	windowSize int
	overlap    int
	step       int

	buffer []float32 // Backing array of the analysis window.
	window []float32 // buffer, or a shorter view of it at the end of stream.
	bytes  []byte    // Raw bytes for one window.
	frames []float32 // Interleaved samples for multi-channel sources.

	zeroPadFirst bool
	zeroPadLast  bool

	bytesToSkip    int64
	bytesProcessed atomic.Int64

	event *Event

	mu         sync.Mutex
	processors []Processor

	state         atomic.Int32
	stopRequested atomic.Bool
	finishOnce    sync.Once
	closeErr      error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithZeroPadFirst controls the first window. When enabled it is read in
// full from the source. Otherwise (the default) only one step is read and
// the overlap in front of it stays zero, so every window advances the
// stream by the same step.
func WithZeroPadFirst(enabled bool) Option {
	return func(d *Dispatcher) {
		d.zeroPadFirst = enabled
	}
}

// WithZeroPadLast controls the final, incomplete window. When enabled (the
// default) it is zero-filled to the full window size, otherwise it is
// shortened to the samples actually available.
func WithZeroPadLast(enabled bool) Option {
	return func(d *Dispatcher) {
		d.zeroPadLast = enabled
	}
}

// New creates a dispatcher over src. The source is closed when processing
// ends.
func New(src Source, windowSize, overlap int, opts ...Option) (*Dispatcher, error) {
	format := src.Format()
	codec, err := pcm.NewCodec(format)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	d := &Dispatcher{
		src:         src,
		format:      format,
		codec:       codec,
		zeroPadLast: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.resize(windowSize, overlap); err != nil {
		return nil, err
	}

	d.event = &Event{
		format:      format,
		codec:       codec,
		buffer:      d.window,
		frameLength: src.FrameLength(),
	}
	return d, nil
}

// SetStepSizeAndOverlap changes the window geometry. It is rejected once Run
// has started.
func (d *Dispatcher) SetStepSizeAndOverlap(windowSize, overlap int) error {
	if d.state.Load() != stateCreated {
		return ErrRunning
	}
	if err := d.resize(windowSize, overlap); err != nil {
		return err
	}
	d.event.buffer = d.window
	return nil
}

func (d *Dispatcher) resize(windowSize, overlap int) error {
	if windowSize < 1 || overlap < 0 || overlap >= windowSize {
		return fmt.Errorf("%w: window %d, overlap %d", ErrInvalidWindow, windowSize, overlap)
	}
	d.windowSize = windowSize
	d.overlap = overlap
	d.step = windowSize - overlap

	d.buffer = make([]float32, windowSize)
	d.window = d.buffer
	d.bytes = make([]byte, windowSize*d.format.FrameSize)
	if d.format.Channels > 1 {
		d.frames = make([]float32, windowSize*d.format.Channels)
	} else {
		d.frames = nil
	}
	return nil
}

// Skip discards the given number of seconds at the start of the stream. It
// takes effect when Run starts.
func (d *Dispatcher) Skip(seconds float64) error {
	if d.state.Load() != stateCreated {
		return ErrRunning
	}
	d.bytesToSkip = int64(math.Round(seconds*float64(d.format.SampleRate))) * int64(d.format.FrameSize)
	return nil
}

// AddProcessor appends p to the chain.
func (d *Dispatcher) AddProcessor(p Processor) {
	d.mu.Lock()
	procs := make([]Processor, len(d.processors), len(d.processors)+1)
	copy(procs, d.processors)
	d.processors = append(procs, p)
	d.mu.Unlock()
	logger.Debugf("added processor %T", p)
}

// RemoveProcessor removes p from the chain and calls its
// ProcessingFinished. Unknown processors are ignored.
func (d *Dispatcher) RemoveProcessor(p Processor) {
	d.mu.Lock()
	i := slices.Index(d.processors, p)
	if i < 0 {
		d.mu.Unlock()
		return
	}
	d.processors = slices.Delete(slices.Clone(d.processors), i, i+1)
	d.mu.Unlock()

	logger.Debugf("removed processor %T", p)
	finishProcessor(p)
}

func (d *Dispatcher) chain() []Processor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processors
}

// Format returns the format of the source.
func (d *Dispatcher) Format() pcm.Format { return d.format }

// SecondsProcessed returns the stream time consumed so far, including any
// skipped audio.
func (d *Dispatcher) SecondsProcessed() float64 {
	bytesPerSample := float64((d.format.SampleSizeInBits + 7) / 8)
	return float64(d.bytesProcessed.Load()) / bytesPerSample / float64(d.format.SampleRate) / float64(d.format.Channels)
}

// Stopped reports whether the dispatcher has reached its terminal state.
func (d *Dispatcher) Stopped() bool {
	return d.state.Load() == stateStopped
}

// Stop ends processing. It is idempotent and may be called from any
// goroutine. Called before Run, it finishes the processors and closes the
// source immediately; during Run, the loop exits before the next window.
func (d *Dispatcher) Stop() {
	d.stopRequested.Store(true)
	if d.state.CompareAndSwap(stateCreated, stateStopped) {
		d.finish()
		return
	}
	if i, ok := d.src.(Interrupter); ok && d.state.Load() == stateRunning {
		i.Interrupt()
	}
}

// finish notifies every processor and closes the source, once.
func (d *Dispatcher) finish() {
	d.finishOnce.Do(func() {
		for _, p := range d.chain() {
			finishProcessor(p)
		}
		if err := d.src.Close(); err != nil {
			logger.Warnf("closing source: %v", err)
			d.closeErr = err
		}
	})
}

func finishProcessor(p Processor) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("processor %T panicked in ProcessingFinished: %v", p, r)
		}
	}()
	p.ProcessingFinished()
}

// Run processes the stream until it ends, fails or is stopped. Cancelling
// ctx has the same effect as Stop. A stop is not an error: Run returns nil
// after an orderly stop and the wrapped source error otherwise. Run on a
// stopped dispatcher returns nil immediately.
func (d *Dispatcher) Run(ctx context.Context) (err error) {
	if !d.state.CompareAndSwap(stateCreated, stateRunning) {
		if d.state.Load() == stateStopped {
			return nil
		}
		return ErrRunning
	}
	defer func() {
		d.state.Store(stateStopped)
		d.finish()
		if err == nil {
			err = d.closeErr
		}
	}()

	if ctx.Done() != nil {
		unregister := context.AfterFunc(ctx, d.Stop)
		defer unregister()
	}

	logger.Debugf("start %s, window %d, overlap %d", d.format, d.windowSize, d.overlap)

	if d.bytesToSkip > 0 {
		if err := d.skipToStart(); err != nil {
			return err
		}
	}

	d.event.bytesProcessed = d.bytesProcessed.Load()
	n, eof, err := d.readFirst()
	for err == nil && n > 0 && !d.stopRequested.Load() {
		d.runChain()
		if eof || d.stopRequested.Load() {
			break
		}

		d.event.bytesProcessed = d.bytesProcessed.Add(int64(n))
		n, eof, err = d.readNext()
	}
	if err != nil {
		logger.Errorf("reading source: %v", err)
		return fmt.Errorf("dispatch: reading source: %w", err)
	}

	if !d.stopRequested.Load() {
		d.bytesProcessed.Add(int64(n))
	}
	logger.Debugf("finished after %.3fs", d.SecondsProcessed())
	return nil
}

func (d *Dispatcher) skipToStart() error {
	skipped, err := d.src.Skip(d.bytesToSkip)
	if err != nil {
		return fmt.Errorf("dispatch: skipping %d bytes: %w", d.bytesToSkip, err)
	}
	if skipped != d.bytesToSkip {
		return fmt.Errorf("%w: skipped %d bytes, expected %d", ErrShortRead, skipped, d.bytesToSkip)
	}
	d.bytesProcessed.Add(skipped)
	return nil
}

// runChain calls the processors in order until one returns false.
func (d *Dispatcher) runChain() {
	for _, p := range d.chain() {
		if !d.process(p) {
			break
		}
	}
}

func (d *Dispatcher) process(p Processor) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("processor %T panicked: %v", p, r)
			ok = false
		}
	}()
	return p.Process(d.event)
}

// readFirst fills the first window: a full window with zeroPadFirst,
// otherwise overlap zeros followed by one step.
func (d *Dispatcher) readFirst() (int, bool, error) {
	if d.zeroPadFirst {
		return d.readInto(0)
	}
	clear(d.buffer[:d.overlap])
	return d.readInto(d.overlap)
}

// readNext slides the window by one step and reads the new samples.
func (d *Dispatcher) readNext() (int, bool, error) {
	copy(d.buffer, d.buffer[d.step:d.windowSize])
	return d.readInto(d.overlap)
}

// readInto reads samples for window[offset:] and updates the event. It
// returns the number of bytes consumed and whether the stream ended.
func (d *Dispatcher) readInto(offset int) (int, bool, error) {
	frameSize := d.format.FrameSize
	want := d.windowSize - offset
	raw := d.bytes[:want*frameSize]

	n, eof, err := readFull(d.src, raw)
	if err != nil {
		return n, false, err
	}
	if d.stopRequested.Load() && n < len(raw) {
		return 0, false, nil
	}

	// A trailing partial frame cannot be decoded and is dropped.
	frames := n / frameSize
	d.decode(raw[:frames*frameSize], d.buffer[offset:offset+frames])

	d.window = d.buffer
	if eof {
		if d.zeroPadLast {
			clear(d.buffer[offset+frames:])
		} else {
			d.window = d.buffer[:offset+frames]
		}
	}

	d.event.buffer = d.window
	d.event.overlap = offset
	d.event.bytesProcessing = frames * frameSize
	return frames * frameSize, eof, nil
}

// decode converts raw bytes to mono samples, averaging the channels of
// multi-channel frames.
func (d *Dispatcher) decode(raw []byte, dst []float32) {
	ch := d.format.Channels
	if ch <= 1 {
		d.codec.ToFloat(raw, dst, len(dst))
		return
	}

	inter := d.frames[:len(dst)*ch]
	d.codec.ToFloat(raw, inter, len(inter))
	scale := 1 / float32(ch)
	for i := range dst {
		var sum float32
		for _, v := range inter[i*ch : (i+1)*ch] {
			sum += v
		}
		dst[i] = sum * scale
	}
}
