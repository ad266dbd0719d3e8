package binio

import (
	"encoding/binary"
	"io"
	"math"
)

type Writer struct {
	w   io.Writer
	n   int64
	err error
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (p *Writer) Err() error {
	return p.err
}

// Offset returns the number of bytes written so far.
func (p *Writer) Offset() int64 {
	return p.n
}

func (p *Writer) put(b []byte) {
	if p.err != nil {
		return
	}
	n, err := p.w.Write(b)
	p.n += int64(n)
	p.err = err
}

func (p *Writer) Write(v interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.err = binary.Write(p.w, binary.LittleEndian, v)
	if p.err == nil {
		p.n += int64(binary.Size(v))
	}
	return p.err
}

func (p *Writer) Uint8(v uint8) {
	p.buf[0] = v
	p.put(p.buf[:1])
}

func (p *Writer) Uint16(v uint16) {
	binary.LittleEndian.PutUint16(p.buf[:2], v)
	p.put(p.buf[:2])
}

func (p *Writer) Int16(v int16) {
	p.Uint16(uint16(v))
}

func (p *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[:4], v)
	p.put(p.buf[:4])
}

func (p *Writer) Int32(v int32) {
	p.Uint32(uint32(v))
}

func (p *Writer) Float32(v float32) {
	p.Uint32(math.Float32bits(v))
}

func (p *Writer) Bytes(b []byte) {
	p.put(b)
}

// Count writes a computed u32 element count.
func (p *Writer) Count(n int) {
	p.Uint32(uint32(n))
}
