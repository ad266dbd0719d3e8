package binio

import (
	"bytes"
	"testing"

	"github.com/binzume/lolmodelconv/lolerr"
)

func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uint8(0xab)
	w.Uint16(0x1234)
	w.Int16(-2)
	w.Uint32(0xdeadbeef)
	w.Int32(-1)
	w.Float32(1.5)
	w.Bytes([]byte("abc"))
	w.Write([2]uint16{7, 8})
	if w.Err() != nil {
		t.Fatal(w.Err())
	}
	if w.Offset() != int64(buf.Len()) || buf.Len() != 1+2+2+4+4+4+3+4 {
		t.Fatal("unexpected size: ", buf.Len(), w.Offset())
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if v := r.Uint8(); v != 0xab {
		t.Error("Uint8: ", v)
	}
	if v := r.Uint16(); v != 0x1234 {
		t.Error("Uint16: ", v)
	}
	if v := r.Int16(); v != -2 {
		t.Error("Int16: ", v)
	}
	if v := r.Uint32(); v != 0xdeadbeef {
		t.Error("Uint32: ", v)
	}
	if v := r.Int32(); v != -1 {
		t.Error("Int32: ", v)
	}
	if v := r.Float32(); v != 1.5 {
		t.Error("Float32: ", v)
	}
	var s [3]byte
	r.Bytes(s[:])
	if string(s[:]) != "abc" {
		t.Error("Bytes: ", s)
	}
	var a [2]uint16
	r.Read(&a)
	if a != [2]uint16{7, 8} {
		t.Error("Read: ", a)
	}
	if r.Err() != nil {
		t.Error(r.Err())
	}
	if r.Offset() != int64(buf.Len()) {
		t.Error("Offset: ", r.Offset())
	}
}

func TestTruncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3}))
	if v := r.Uint16(); v != 0x0201 {
		t.Error("Uint16: ", v)
	}
	if v := r.Uint32(); v != 0 {
		t.Error("value after truncation should be zero: ", v)
	}
	if !lolerr.Is(r.Err(), lolerr.ErrTruncatedInput) {
		t.Error("expected truncated input: ", r.Err())
	}
	// sticky
	r.Uint8()
	if !lolerr.Is(r.Err(), lolerr.ErrTruncatedInput) {
		t.Error("error should be sticky: ", r.Err())
	}

	var a [4]uint32
	r2 := NewReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	if err := r2.Read(&a); !lolerr.Is(err, lolerr.ErrTruncatedInput) {
		t.Error("Read: expected truncated input: ", err)
	}
}

func TestPrealloc(t *testing.T) {
	if Prealloc(10) != 10 || Prealloc(-1) != 0 || Prealloc(1<<30) != 1<<16 {
		t.Error("Prealloc")
	}
}
