// SPDX-License-Identifier: MIT
// Package audiotest provides signal generators and scripted sources for
// tests.
package audiotest

import (
	"io"
	"math"
	"sync"

	"pitchtrack/internal/pcm"
)

// GenerateSineWave returns size samples of a sine at frequency Hz.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// GenerateComplexWave returns a fundamental plus its second and third
// harmonics.
func GenerateComplexWave(size int, sampleRate, fundamental float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*fundamental*tm)*0.5 +
			math.Sin(2*math.Pi*2*fundamental*tm)*0.3 +
			math.Sin(2*math.Pi*3*fundamental*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// Ramp returns size samples counting up from start in steps of step.
func Ramp(size int, start, step float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		buffer[i] = start + float32(i)*step
	}
	return buffer
}

// Encode converts samples to bytes in the given format. It panics on an
// unsupported format.
func Encode(f pcm.Format, samples []float32) []byte {
	codec, err := pcm.NewCodec(f)
	if err != nil {
		panic(err)
	}
	out := make([]byte, len(samples)*f.BytesPerSample())
	codec.ToBytes(samples, out, len(samples))
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin].
func FindPeakBin(magnitudes []float32, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}

// MockSource is a scripted byte source.
type MockSource struct {
	Data []byte
	Fmt  pcm.Format

	// ChunkSize caps the bytes returned per Read. Zero means no cap.
	ChunkSize int
	// Loop restarts Data forever instead of returning io.EOF.
	Loop bool
	// Err is returned once Data is exhausted, in place of io.EOF.
	Err error
	// Stall makes every Read return (0, nil).
	Stall bool

	mu     sync.Mutex
	pos    int
	reads  int
	closes int
}

// NewMockSource returns a source that plays data once.
func NewMockSource(f pcm.Format, data []byte) *MockSource {
	return &MockSource{Data: data, Fmt: f}
}

func (m *MockSource) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	if m.closes > 0 {
		return 0, io.ErrClosedPipe
	}
	if m.Stall || len(p) == 0 {
		return 0, nil
	}
	if m.Loop && len(m.Data) > 0 && m.pos >= len(m.Data) {
		m.pos = 0
	}
	if m.pos >= len(m.Data) {
		if m.Err != nil {
			return 0, m.Err
		}
		return 0, io.EOF
	}

	if m.ChunkSize > 0 && len(p) > m.ChunkSize {
		p = p[:m.ChunkSize]
	}
	n := copy(p, m.Data[m.pos:])
	m.pos += n
	return n, nil
}

func (m *MockSource) Skip(n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	avail := int64(len(m.Data) - m.pos)
	if n > avail {
		n = avail
	}
	m.pos += int(n)
	return n, nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

func (m *MockSource) Format() pcm.Format { return m.Fmt }

func (m *MockSource) FrameLength() int64 {
	if m.Loop || m.Fmt.FrameSize == 0 {
		return -1
	}
	return int64(len(m.Data) / m.Fmt.FrameSize)
}

// Closes returns the number of Close calls.
func (m *MockSource) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Reads returns the number of Read calls.
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// MockSink records everything sent to it.
type MockSink struct {
	mu     sync.Mutex
	items  []any
	closed bool
}

func (m *MockSink) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, data)
	return nil
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Items returns a copy of the values sent so far.
func (m *MockSink) Items() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.items...)
}

func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
