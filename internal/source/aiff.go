// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"pitchtrack/internal/pcm"
)

const aiffBlockFrames = 4096

func openAIFF(rs io.ReadSeeker) (*Source, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrInvalidFile)
	}
	dec.ReadInfo()

	bits, channels := int(dec.BitDepth), int(dec.NumChans)
	if bits < 8 || bits > 32 {
		return nil, fmt.Errorf("%w: %d bit AIFF", pcm.ErrUnsupportedFormat, bits)
	}
	format := pcm.NewFormat(float32(dec.SampleRate), bits, channels, true, true)
	if err := format.Validate(); err != nil {
		return nil, err
	}

	buf := &audio.IntBuffer{
		Format: dec.Format(),
		Data:   make([]int, aiffBlockFrames*channels),
	}
	block := make([]byte, len(buf.Data)*format.BytesPerSample())

	return &Source{
		r: &blockReader{next: func() ([]byte, error) {
			n, err := dec.PCMBuffer(buf)
			if n == 0 {
				if err == nil {
					err = io.EOF
				}
				return nil, err
			}
			return packBigEndian(buf.Data[:n], block, format.BytesPerSample()), err
		}},
		format: format,
		frames: int64(dec.NumSampleFrames),
	}, nil
}

// packBigEndian writes each sample in width bytes, most significant first.
func packBigEndian(samples []int, dst []byte, width int) []byte {
	dst = dst[:len(samples)*width]
	for i, v := range samples {
		out := dst[i*width : (i+1)*width]
		for j := width - 1; j >= 0; j-- {
			out[j] = byte(v)
			v >>= 8
		}
	}
	return dst
}
