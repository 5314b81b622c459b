// SPDX-License-Identifier: MIT
package dispatch

import (
	"errors"
	"io"

	"pitchtrack/internal/pcm"
)

var (
	// ErrShortRead is returned when a source delivers fewer bytes than
	// requested without reporting the end of the stream.
	ErrShortRead = errors.New("dispatch: short read before end of stream")

	// ErrRunning is returned by operations that are only valid before Run.
	ErrRunning = errors.New("dispatch: dispatcher already started")

	ErrInvalidWindow = errors.New("dispatch: invalid window size or overlap")
)

// Source delivers interleaved PCM bytes in the layout described by Format.
// Read follows io.Reader semantics and returns io.EOF at the end of the
// stream.
type Source interface {
	io.ReadCloser

	// Skip discards up to n bytes and returns the number actually skipped.
	Skip(n int64) (int64, error)

	// Format describes the byte layout.
	Format() pcm.Format

	// FrameLength returns the stream length in frames, or -1 when unknown.
	FrameLength() int64
}

// Interrupter is implemented by sources whose Read can block indefinitely,
// such as live capture. Stop calls Interrupt so a pending Read returns.
type Interrupter interface {
	Interrupt()
}

// maxEmptyReads bounds the number of consecutive (0, nil) reads tolerated
// before the source is reported as stuck.
const maxEmptyReads = 100

// readFull reads until buf is full or the stream ends. eof is set when the
// source reported io.EOF, in which case n may be short.
func readFull(r io.Reader, buf []byte) (n int, eof bool, err error) {
	empty := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		switch {
		case errors.Is(err, io.EOF):
			return n, true, nil
		case err != nil:
			return n, false, err
		case m == 0:
			empty++
			if empty >= maxEmptyReads {
				return n, false, io.ErrNoProgress
			}
		default:
			empty = 0
		}
	}
	return n, false, nil
}
