// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"pitchtrack/internal/pcm"
)

// go-mp3 always produces 16 bit little-endian stereo.
const (
	mp3Bits     = 16
	mp3Channels = 2
)

func openMP3(rs io.ReadSeeker) (*Source, error) {
	dec, err := gomp3.NewDecoder(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	format := pcm.NewFormat(float32(dec.SampleRate()), mp3Bits, mp3Channels, true, false)
	frames := int64(-1)
	if n := dec.Length(); n > 0 {
		frames = n / int64(format.FrameSize)
	}
	return &Source{r: dec, format: format, frames: frames}, nil
}
