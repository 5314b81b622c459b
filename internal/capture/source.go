// SPDX-License-Identifier: MIT
/*
Package capture records from a PortAudio input device and serves the audio
as a dispatch.Source.

The stream callback runs on a PortAudio thread. It encodes each buffer as
32 bit signed little-endian PCM into a ring buffer and never blocks; if the
dispatcher falls behind, the oldest frames are dropped and counted.

Thread Safety:
  - Read is called by the dispatcher goroutine only
  - Interrupt and Close may be called from any goroutine
*/
package capture

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"pitchtrack/internal/dispatch"
	"pitchtrack/internal/log"
	"pitchtrack/internal/pcm"
	"pitchtrack/internal/ringbuf"
)

var logger = log.Named("Capture")

const (
	sampleBits  = 32
	sampleBytes = sampleBits / 8

	DefaultBufferDuration = 2 * time.Second
)

// Config selects the device and stream parameters.
type Config struct {
	DeviceID        int
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
	// BufferDuration sizes the ring between the callback and the reader.
	BufferDuration time.Duration
}

// Source is a live input stream. Its length is unknown.
type Source struct {
	stream  *portaudio.Stream
	ring    *ringbuf.Buffer
	format  pcm.Format
	scratch []byte

	closeOnce sync.Once
	closeErr  error
}

var (
	_ dispatch.Source      = (*Source)(nil)
	_ dispatch.Interrupter = (*Source)(nil)
)

func newSource(format pcm.Format, duration time.Duration, framesPerBuffer int) *Source {
	frames := max(int(duration.Seconds()*float64(format.SampleRate)), framesPerBuffer)
	return &Source{
		ring:    ringbuf.New(frames*format.FrameSize, format.FrameSize),
		format:  format,
		scratch: make([]byte, framesPerBuffer*format.FrameSize),
	}
}

// Open starts capturing from the configured device. PortAudio must be
// initialized.
func Open(cfg Config) (*Source, error) {
	if cfg.Channels < 1 || cfg.SampleRate <= 0 || cfg.FramesPerBuffer < 1 {
		return nil, fmt.Errorf("capture: invalid stream parameters: %d channels, %.0f Hz, %d frames",
			cfg.Channels, cfg.SampleRate, cfg.FramesPerBuffer)
	}
	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}
	if cfg.BufferDuration <= 0 {
		cfg.BufferDuration = DefaultBufferDuration
	}

	format := pcm.NewFormat(float32(cfg.SampleRate), sampleBits, cfg.Channels, true, false)
	s := newSource(format, cfg.BufferDuration, cfg.FramesPerBuffer)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: cfg.Channels,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}
	stream, err := portaudio.OpenStream(params, s.callback)
	if err != nil {
		return nil, fmt.Errorf("capture: open stream: %w", err)
	}
	s.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("capture: start stream: %w", err)
	}

	logger.Infof("%s on %q, latency %v", format, device.Name, latency)
	return s, nil
}

// callback must not allocate or block.
func (s *Source) callback(in []int32) {
	n := len(in) * sampleBytes
	if n > len(s.scratch) {
		s.scratch = make([]byte, n)
	}
	out := s.scratch[:n]
	for i, v := range in {
		binary.LittleEndian.PutUint32(out[i*sampleBytes:], uint32(v))
	}
	_, _ = s.ring.Write(out)
}

func (s *Source) Read(p []byte) (int, error) { return s.ring.Read(p) }

// Skip discards n bytes of live input.
func (s *Source) Skip(n int64) (int64, error) {
	skipped, err := io.CopyN(io.Discard, s.ring, n)
	if err == io.EOF {
		err = nil
	}
	return skipped, err
}

// Interrupt makes a blocked Read return. Buffered audio is still delivered
// before io.EOF.
func (s *Source) Interrupt() {
	_ = s.ring.Close()
}

// Close stops the stream and releases it.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		_ = s.ring.Close()
		if s.stream != nil {
			if err := s.stream.Stop(); err != nil {
				s.closeErr = fmt.Errorf("capture: stop stream: %w", err)
			}
			if err := s.stream.Close(); err != nil && s.closeErr == nil {
				s.closeErr = fmt.Errorf("capture: close stream: %w", err)
			}
		}
		if dropped := s.ring.Dropped(); dropped > 0 {
			logger.Warnf("dropped %d frames to overruns", dropped/int64(s.format.FrameSize))
		}
	})
	return s.closeErr
}

func (s *Source) Format() pcm.Format { return s.format }

func (s *Source) FrameLength() int64 { return -1 }

// Dropped returns the number of frames lost because the reader fell behind.
func (s *Source) Dropped() int64 {
	return s.ring.Dropped() / int64(s.format.FrameSize)
}
