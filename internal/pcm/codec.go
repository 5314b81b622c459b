// SPDX-License-Identifier: MIT
package pcm

import "fmt"

// Codec converts between raw sample bytes and normalized float32 samples.
//
// Both directions work on n samples, where a sample is one channel of one
// frame, so the byte side must hold at least n*BytesPerSample bytes. Callers
// express offsets by re-slicing. Codecs hold no per-stream state other than
// scratch space and are not safe for concurrent use.
type Codec interface {
	// ToFloat decodes n samples from in into out[:n].
	ToFloat(in []byte, out []float32, n int)
	// ToBytes encodes in[:n] into out. Values outside [-1, 1] are clamped.
	ToBytes(in []float32, out []byte, n int)
}

// NewCodec selects the converter for the given format. Signed and unsigned
// PCM is supported from 1 to 64 bits in both byte orders, IEEE float at 32
// and 64 bits. Sample sizes that are not a multiple of 8 bits get a mask that
// clears the unused low-order bits.
func NewCodec(f Format) (Codec, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	bits := f.SampleSizeInBits
	var c Codec

	switch f.Encoding {
	case Float:
		switch bits {
		case 32:
			c = float32Codec{bigEndian: f.BigEndian}
		case 64:
			c = float64Codec{bigEndian: f.BigEndian}
		default:
			return nil, fmt.Errorf("%w: %d bit float samples", ErrUnsupportedFormat, bits)
		}
		return c, nil

	case SignedPCM, UnsignedPCM:
		signed := f.Encoding == SignedPCM
		switch {
		case bits <= 8:
			c = pcm8{signed: signed}
		case bits <= 16:
			c = pcm16{signed: signed, bigEndian: f.BigEndian}
		case bits <= 24:
			c = pcm24{signed: signed, bigEndian: f.BigEndian}
		case bits <= 32:
			c = pcm32{signed: signed, bigEndian: f.BigEndian}
		case bits <= 64:
			c = pcm32{signed: signed, bigEndian: f.BigEndian, extra: (bits+7)/8 - 4}
		default:
			return nil, fmt.Errorf("%w: %d bit integer samples", ErrUnsupportedFormat, bits)
		}

	default:
		return nil, fmt.Errorf("%w: %s encoding", ErrUnsupportedFormat, f.Encoding)
	}

	if bits%8 != 0 {
		c = newMaskCodec(c, f)
	}
	return c, nil
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
