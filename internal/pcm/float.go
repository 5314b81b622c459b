// SPDX-License-Identifier: MIT
package pcm

import (
	"encoding/binary"
	"math"
)

type float32Codec struct {
	bigEndian bool
}

func (c float32Codec) order() binary.ByteOrder {
	if c.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (c float32Codec) ToFloat(in []byte, out []float32, n int) {
	order := c.order()
	for i := range n {
		out[i] = math.Float32frombits(order.Uint32(in[4*i:]))
	}
}

func (c float32Codec) ToBytes(in []float32, out []byte, n int) {
	order := c.order()
	for i := range n {
		order.PutUint32(out[4*i:], math.Float32bits(clamp(in[i])))
	}
}

// float64Codec narrows to float32 on decode and widens on encode.
type float64Codec struct {
	bigEndian bool
}

func (c float64Codec) order() binary.ByteOrder {
	if c.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (c float64Codec) ToFloat(in []byte, out []float32, n int) {
	order := c.order()
	for i := range n {
		out[i] = float32(math.Float64frombits(order.Uint64(in[8*i:])))
	}
}

func (c float64Codec) ToBytes(in []float32, out []byte, n int) {
	order := c.order()
	for i := range n {
		order.PutUint64(out[8*i:], math.Float64bits(float64(clamp(in[i]))))
	}
}
