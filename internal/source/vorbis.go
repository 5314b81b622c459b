// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"pitchtrack/internal/pcm"
)

const vorbisBlockFrames = 4096

func openVorbis(rs io.ReadSeeker) (*Source, error) {
	dec, err := oggvorbis.NewReader(rs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	format := pcm.NewFloatFormat(float32(dec.SampleRate()), 32, dec.Channels(), false)
	codec, err := pcm.NewCodec(format)
	if err != nil {
		return nil, err
	}

	samples := make([]float32, vorbisBlockFrames*format.Channels)
	block := make([]byte, len(samples)*format.BytesPerSample())

	frames := dec.Length()
	if frames <= 0 {
		frames = -1
	}
	return &Source{
		r: &blockReader{next: func() ([]byte, error) {
			// n counts interleaved values, not frames.
			n, err := dec.Read(samples)
			if n == 0 {
				return nil, err
			}
			codec.ToBytes(samples, block, n)
			return block[:n*format.BytesPerSample()], err
		}},
		format: format,
		frames: frames,
	}, nil
}
