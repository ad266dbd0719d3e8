// Package binio reads and writes the little-endian primitives used by the
// model formats. Errors are sticky: after the first failure every read
// returns zero and Err reports the failure.
package binio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

type Reader struct {
	r   io.Reader
	n   int64
	err error
	buf [8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Err returns the first error. Short reads are reported as
// lolerr.ErrTruncatedInput with the offset where the input ended.
func (p *Reader) Err() error {
	return p.err
}

// Offset returns the number of bytes consumed so far.
func (p *Reader) Offset() int64 {
	return p.n
}

func (p *Reader) fill(b []byte) bool {
	if p.err != nil {
		return false
	}
	n, err := io.ReadFull(p.r, b)
	p.n += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		p.err = errors.Wrapf(lolerr.ErrTruncatedInput, "at offset %d", p.n)
	} else if err != nil {
		p.err = err
	}
	return p.err == nil
}

func (p *Reader) Read(v interface{}) error {
	if p.err != nil {
		return p.err
	}
	if err := binary.Read(p.r, binary.LittleEndian, v); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = errors.Wrapf(lolerr.ErrTruncatedInput, "after offset %d", p.n)
		}
		p.err = err
		return err
	}
	p.n += int64(binary.Size(v))
	return nil
}

func (p *Reader) Uint8() uint8 {
	if !p.fill(p.buf[:1]) {
		return 0
	}
	return p.buf[0]
}

func (p *Reader) Uint16() uint16 {
	if !p.fill(p.buf[:2]) {
		return 0
	}
	return binary.LittleEndian.Uint16(p.buf[:2])
}

func (p *Reader) Int16() int16 {
	return int16(p.Uint16())
}

func (p *Reader) Uint32() uint32 {
	if !p.fill(p.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(p.buf[:4])
}

func (p *Reader) Int32() int32 {
	return int32(p.Uint32())
}

func (p *Reader) Float32() float32 {
	return math.Float32frombits(p.Uint32())
}

// Bytes fills b completely.
func (p *Reader) Bytes(b []byte) {
	p.fill(b)
}

// Count reads a u32 element count.
func (p *Reader) Count() int {
	return int(p.Uint32())
}

// Prealloc bounds the initial capacity of a slice sized from an untrusted
// count field.
func Prealloc(count int) int {
	const limit = 1 << 16
	if count > limit {
		return limit
	}
	if count < 0 {
		return 0
	}
	return count
}
