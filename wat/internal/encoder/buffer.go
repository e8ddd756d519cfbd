// Package encoder serializes an ast.Module into the binary module format.
package encoder

import (
	"encoding/binary"
	"math"
)

// Buffer accumulates the output module.
type Buffer struct {
	Bytes []byte
}

func (b *Buffer) AppendByte(v byte) {
	b.Bytes = append(b.Bytes, v)
}

func (b *Buffer) WriteBytes(v []byte) {
	b.Bytes = append(b.Bytes, v...)
}

// WriteU32 appends v in unsigned LEB128.
func (b *Buffer) WriteU32(v uint32) {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			byt |= 0x80
		}
		b.AppendByte(byt)
		if v == 0 {
			return
		}
	}
}

// sleb appends v in signed LEB128. The encoding depends only on the value,
// so every signed immediate width shares it.
func (b *Buffer) sleb(v int64) {
	for {
		byt := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && byt&0x40 == 0) || (v == -1 && byt&0x40 != 0) {
			b.AppendByte(byt)
			return
		}
		b.AppendByte(byt | 0x80)
	}
}

func (b *Buffer) WriteI32(v int32) { b.sleb(int64(v)) }

func (b *Buffer) WriteI64(v int64) { b.sleb(v) }

// WriteI33 covers block-type indices, which the format gives a 33-bit
// signed range.
func (b *Buffer) WriteI33(v int64) { b.sleb(v) }

func (b *Buffer) WriteF32(v float32) {
	b.Bytes = binary.LittleEndian.AppendUint32(b.Bytes, math.Float32bits(v))
}

func (b *Buffer) WriteF64(v float64) {
	b.Bytes = binary.LittleEndian.AppendUint64(b.Bytes, math.Float64bits(v))
}

// WriteString appends a length-prefixed name.
func (b *Buffer) WriteString(s string) {
	b.WriteU32(uint32(len(s)))
	b.WriteBytes([]byte(s))
}

// WriteLimits appends a limits record, with the flag byte saying whether a
// maximum follows.
func (b *Buffer) WriteLimits(min uint32, max *uint32) {
	if max == nil {
		b.AppendByte(0x00)
		b.WriteU32(min)
		return
	}
	b.AppendByte(0x01)
	b.WriteU32(min)
	b.WriteU32(*max)
}
