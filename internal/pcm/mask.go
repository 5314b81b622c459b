// SPDX-License-Identifier: MIT
package pcm

// lsbMasks[k] keeps the top k bits of the least significant byte.
var lsbMasks = [8]byte{0xFF, 0x80, 0xC0, 0xE0, 0xF0, 0xF8, 0xFC, 0xFE}

// maskCodec wraps a converter for sample sizes that are not a multiple of
// eight bits and clears the padding bits of every sample.
type maskCodec struct {
	inner   Codec
	mask    byte
	offset  int // Position of the least significant byte within a sample.
	step    int // Bytes per sample.
	scratch []byte
}

func newMaskCodec(inner Codec, f Format) *maskCodec {
	step := f.BytesPerSample()
	offset := 0
	if f.BigEndian {
		offset = step - 1
	}
	return &maskCodec{
		inner:  inner,
		mask:   lsbMasks[f.SampleSizeInBits%8],
		offset: offset,
		step:   step,
	}
}

// ToFloat masks a private copy of the input so the caller's bytes are left
// untouched.
func (c *maskCodec) ToFloat(in []byte, out []float32, n int) {
	size := n * c.step
	if cap(c.scratch) < size {
		c.scratch = make([]byte, size)
	}
	buf := c.scratch[:size]
	copy(buf, in[:size])
	for i := c.offset; i < size; i += c.step {
		buf[i] &= c.mask
	}
	c.inner.ToFloat(buf, out, n)
}

func (c *maskCodec) ToBytes(in []float32, out []byte, n int) {
	c.inner.ToBytes(in, out, n)
	size := n * c.step
	for i := c.offset; i < size; i += c.step {
		out[i] &= c.mask
	}
}
