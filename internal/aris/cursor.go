package aris

import (
	"encoding/binary"
	"math"
	"strings"
)

// cursor walks a fixed-layout little-endian record. Reads past the end are a
// programming error and panic; callers always hand it a full-size block.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) skip(n int) {
	c.off += n
}

func (c *cursor) u8() uint8 {
	v := c.buf[c.off]
	c.off++
	return v
}

func (c *cursor) u32() uint32 {
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v
}

func (c *cursor) i32() int32 {
	return int32(c.u32())
}

func (c *cursor) u64() uint64 {
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v
}

func (c *cursor) f32() float32 {
	return math.Float32frombits(c.u32())
}

func (c *cursor) f64() float64 {
	return math.Float64frombits(c.u64())
}

// str reads n bytes and trims trailing NULs and spaces.
func (c *cursor) str(n int) string {
	raw := c.buf[c.off : c.off+n]
	c.off += n
	return strings.TrimRight(string(raw), "\x00 ")
}
