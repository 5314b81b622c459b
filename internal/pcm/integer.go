// SPDX-License-Identifier: MIT
package pcm

import "encoding/binary"

// Full-scale values. 16-bit audio is normalized by 32767 in both directions,
// so -32768 decodes slightly below -1.
const (
	scale8  = 127.0
	scale16 = 32767.0
	scale24 = 0x7FFFFF
	scale32 = 0x7FFFFFFF
)

type pcm8 struct {
	signed bool
}

func (c pcm8) ToFloat(in []byte, out []float32, n int) {
	if c.signed {
		for i := range n {
			out[i] = float32(int8(in[i])) * (1.0 / scale8)
		}
		return
	}
	for i := range n {
		out[i] = (float32(in[i]) - scale8) * (1.0 / scale8)
	}
}

func (c pcm8) ToBytes(in []float32, out []byte, n int) {
	if c.signed {
		for i := range n {
			out[i] = byte(int8(clamp(in[i]) * scale8))
		}
		return
	}
	for i := range n {
		out[i] = byte(scale8 + int(clamp(in[i])*scale8))
	}
}

type pcm16 struct {
	signed    bool
	bigEndian bool
}

func (c pcm16) order() binary.ByteOrder {
	if c.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (c pcm16) ToFloat(in []byte, out []float32, n int) {
	order := c.order()
	for i := range n {
		u := order.Uint16(in[2*i:])
		if c.signed {
			out[i] = float32(int16(u)) * (1.0 / scale16)
		} else {
			out[i] = float32(int(u)-scale16) * (1.0 / scale16)
		}
	}
}

func (c pcm16) ToBytes(in []float32, out []byte, n int) {
	order := c.order()
	for i := range n {
		x := int(clamp(in[i]) * scale16)
		if !c.signed {
			x += scale16
		}
		order.PutUint16(out[2*i:], uint16(x))
	}
}

type pcm24 struct {
	signed    bool
	bigEndian bool
}

func (c pcm24) ToFloat(in []byte, out []float32, n int) {
	for i := range n {
		b := in[3*i : 3*i+3]
		var u uint32
		if c.bigEndian {
			u = uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
		} else {
			u = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		}
		var v int32
		if c.signed {
			v = int32(u<<8) >> 8
		} else {
			v = int32(u) - scale24
		}
		out[i] = float32(v) * (1.0 / scale24)
	}
}

func (c pcm24) ToBytes(in []float32, out []byte, n int) {
	for i := range n {
		x := int32(float64(clamp(in[i])) * scale24)
		if !c.signed {
			x += scale24
		}
		b := out[3*i : 3*i+3]
		if c.bigEndian {
			b[0], b[1], b[2] = byte(x>>16), byte(x>>8), byte(x)
		} else {
			b[0], b[1], b[2] = byte(x), byte(x>>8), byte(x>>16)
		}
	}
}

// pcm32 handles 32-bit samples and wider ones, where the extra low-order
// bytes are dropped on decode and written as zero on encode.
type pcm32 struct {
	signed    bool
	bigEndian bool
	extra     int
}

func (c pcm32) ToFloat(in []byte, out []float32, n int) {
	step := 4 + c.extra
	for i := range n {
		var u uint32
		if c.bigEndian {
			u = binary.BigEndian.Uint32(in[i*step:])
		} else {
			u = binary.LittleEndian.Uint32(in[i*step+c.extra:])
		}
		var v int64
		if c.signed {
			v = int64(int32(u))
		} else {
			v = int64(u) - scale32
		}
		out[i] = float32(float64(v) * (1.0 / scale32))
	}
}

func (c pcm32) ToBytes(in []float32, out []byte, n int) {
	step := 4 + c.extra
	for i := range n {
		x := int64(float64(clamp(in[i])) * scale32)
		if !c.signed {
			x += scale32
		}
		b := out[i*step : (i+1)*step]
		if c.bigEndian {
			binary.BigEndian.PutUint32(b, uint32(x))
			clear(b[4:])
		} else {
			clear(b[:c.extra])
			binary.LittleEndian.PutUint32(b[c.extra:], uint32(x))
		}
	}
}
