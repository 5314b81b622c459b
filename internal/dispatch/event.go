// SPDX-License-Identifier: MIT
package dispatch

import (
	"math"

	"github.com/tphakala/simd/f32"

	"pitchtrack/internal/pcm"
)

// Event carries one analysis window through the processor chain. The
// dispatcher reuses a single Event and its buffer for every window, so
// processors that keep samples beyond Process must use CopyBuffer.
type Event struct {
	format pcm.Format
	codec  pcm.Codec

	buffer  []float32
	overlap int

	frameLength     int64
	bytesProcessed  int64
	bytesProcessing int

	byteBuffer []byte
}

// NewEvent creates an event for the given format. The dispatcher builds its
// own; this is useful for driving processors directly.
func NewEvent(format pcm.Format, buffer []float32) (*Event, error) {
	codec, err := pcm.NewCodec(format)
	if err != nil {
		return nil, err
	}
	return &Event{
		format:      format,
		codec:       codec,
		buffer:      buffer,
		frameLength: -1,
	}, nil
}

func (e *Event) Format() pcm.Format    { return e.format }
func (e *Event) SampleRate() float32   { return e.format.SampleRate }
func (e *Event) Buffer() []float32     { return e.buffer }
func (e *Event) BufferSize() int       { return len(e.buffer) }
func (e *Event) Overlap() int          { return e.overlap }
func (e *Event) BytesProcessed() int64 { return e.bytesProcessed }
func (e *Event) BytesProcessing() int  { return e.bytesProcessing }
func (e *Event) FrameLength() int64    { return e.frameLength }

// SetBuffer replaces the window seen by the remaining processors of the
// chain for this window.
func (e *Event) SetBuffer(buf []float32) { e.buffer = buf }

// SetOverlap changes the number of leading samples shared with the previous
// window.
func (e *Event) SetOverlap(n int) { e.overlap = n }

func (e *Event) SetBytesProcessed(n int64) { e.bytesProcessed = n }
func (e *Event) SetBytesProcessing(n int)  { e.bytesProcessing = n }

// TimeStamp returns the stream time, in seconds, of the bytes processed
// before this window was read.
func (e *Event) TimeStamp() float64 {
	return float64(e.bytesProcessed) / float64(e.format.FrameSize) / float64(e.format.SampleRate)
}

// EndTimeStamp returns TimeStamp plus the duration of the bytes read for
// this window.
func (e *Event) EndTimeStamp() float64 {
	return float64(e.bytesProcessed+int64(e.bytesProcessing)) / float64(e.format.FrameSize) / float64(e.format.SampleRate)
}

// SamplesProcessed returns the number of frames processed before this
// window.
func (e *Event) SamplesProcessed() int64 {
	return e.bytesProcessed / int64(e.format.FrameSize)
}

// Progress returns the fraction of the stream processed, or a negative value
// when the stream length is unknown.
func (e *Event) Progress() float64 {
	if e.frameLength <= 0 {
		return -1
	}
	return float64(e.SamplesProcessed()) / float64(e.frameLength)
}

// RMS returns the root mean square of the window.
func (e *Event) RMS() float64 {
	return RMS(e.buffer)
}

// DBSPL returns the sound pressure level of the window in dB.
func (e *Event) DBSPL() float64 {
	return linearToDecibel(e.RMS())
}

// IsSilence reports whether the window's level is below threshold dB.
func (e *Event) IsSilence(threshold float64) bool {
	return e.DBSPL() < threshold
}

// Clear zeroes the window.
func (e *Event) Clear() {
	clear(e.buffer)
}

// CopyBuffer returns a copy of the window that outlives the event.
func (e *Event) CopyBuffer() []float32 {
	return append([]float32(nil), e.buffer...)
}

// ByteBuffer encodes the window back to bytes, one sample per value in the
// event's sample encoding. The returned slice is reused by the next call.
func (e *Event) ByteBuffer() []byte {
	size := len(e.buffer) * e.format.BytesPerSample()
	if cap(e.byteBuffer) < size {
		e.byteBuffer = make([]byte, size)
	}
	e.byteBuffer = e.byteBuffer[:size]
	e.codec.ToBytes(e.buffer, e.byteBuffer, len(e.buffer))
	return e.byteBuffer
}

// RMS returns the root mean square of buf, or 0 for an empty slice.
func RMS(buf []float32) float64 {
	if len(buf) == 0 {
		return 0
	}
	energy := f32.DotProductUnsafe(buf, buf)
	return math.Sqrt(float64(energy) / float64(len(buf)))
}

func linearToDecibel(v float64) float64 {
	return 20 * math.Log10(v)
}
