// SPDX-License-Identifier: MIT
/*
Package source opens audio files and streams as PCM byte sources for the
dispatcher.

Decoders are looked up by file extension. WAV data is served as stored; the
other containers are decoded and re-encoded into a PCM layout described by
the source's Format:

	.wav .wave   as stored (integer or IEEE float)
	.aif .aiff   signed big-endian, file bit depth
	.mp3         16 bit signed little-endian stereo
	.ogg .oga    32 bit float little-endian

Raw PCM without a header is read with OpenRaw or NewReader.
*/
package source

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"pitchtrack/internal/dispatch"
	"pitchtrack/internal/log"
	"pitchtrack/internal/pcm"
)

var logger = log.Named("Source")

var (
	ErrUnknownFormat = errors.New("source: unknown file format")
	ErrInvalidFile   = errors.New("source: invalid file")
)

// Opener decodes a seekable stream into a Source. The caller owns rs.
type Opener func(rs io.ReadSeeker) (*Source, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{
		".wav":  openWAV,
		".wave": openWAV,
		".aif":  openAIFF,
		".aiff": openAIFF,
		".mp3":  openMP3,
		".ogg":  openVorbis,
		".oga":  openVorbis,
	}
)

// Register adds or replaces the opener for a file extension such as ".flac".
func Register(ext string, open Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[strings.ToLower(ext)] = open
}

// Extensions returns the registered extensions, sorted.
func Extensions() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	return slices.Sorted(maps.Keys(openers))
}

func lookup(ext string) (Opener, bool) {
	openersMu.RLock()
	defer openersMu.RUnlock()
	open, ok := openers[strings.ToLower(ext)]
	return open, ok
}

// Source is a decoded stream of PCM bytes. It implements dispatch.Source.
type Source struct {
	r      io.Reader
	closer io.Closer
	format pcm.Format
	frames int64
}

var _ dispatch.Source = (*Source)(nil)

// NewReader wraps a headerless PCM stream. frames is the stream length in
// frames, or -1 if unknown. If r is an io.Closer, Close closes it.
func NewReader(r io.Reader, format pcm.Format, frames int64) (*Source, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	s := &Source{r: r, format: format, frames: frames}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// Open opens the file at path with the decoder registered for its extension.
func Open(path string) (*Source, error) {
	ext := filepath.Ext(path)
	open, ok := lookup(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, ext, strings.Join(Extensions(), " "))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	s, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	s.closer = f
	logger.Debugf("opened %s, %s, %d frames", path, s.format, s.frames)
	return s, nil
}

// OpenRaw opens a headerless PCM file.
func OpenRaw(path string, format pcm.Format) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	frames := int64(-1)
	if fi, err := f.Stat(); err == nil && format.FrameSize > 0 {
		frames = fi.Size() / int64(format.FrameSize)
	}
	s, err := NewReader(f, format, frames)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) Read(p []byte) (int, error) { return s.r.Read(p) }

// Skip discards up to n bytes. Running out of data is not an error; the
// short count is returned.
func (s *Source) Skip(n int64) (int64, error) {
	skipped, err := io.CopyN(io.Discard, s.r, n)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return skipped, err
}

func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Source) Format() pcm.Format { return s.format }

// FrameLength is the stream length in frames, -1 if unknown.
func (s *Source) FrameLength() int64 { return s.frames }

// blockReader serves PCM bytes produced one block at a time by a decoder.
type blockReader struct {
	next    func() ([]byte, error)
	pending []byte
	err     error
}

func (b *blockReader) Read(p []byte) (int, error) {
	if len(b.pending) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		b.pending, b.err = b.next()
		if len(b.pending) == 0 {
			return 0, b.err
		}
	}
	n := copy(p, b.pending)
	b.pending = b.pending[n:]
	return n, nil
}
