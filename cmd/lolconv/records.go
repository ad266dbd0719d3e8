package main

import (
	"bytes"
	"crypto/md5"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/md2"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

var spewConfig = &spew.ConfigState{Indent: " ", DisableCapacities: true, DisablePointerAddresses: true, MaxDepth: 4}

// record is a decoded file and the function writing it back.
type record struct {
	value  interface{}
	encode func(w io.Writer) error
}

func decodeRecord(path string, data []byte) (*record, error) {
	r := bytes.NewReader(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".skl":
		f, err := lol.ParseSkl(r)
		if err != nil {
			return nil, err
		}
		return &record{f, func(w io.Writer) error { return lol.WriteSkl(f, w) }}, nil
	case ".skn":
		f, err := lol.ParseSkn(r)
		if err != nil {
			return nil, err
		}
		return &record{f, func(w io.Writer) error { return lol.WriteSkn(f, w) }}, nil
	case ".anm":
		f, err := lol.ParseAnm(r)
		if err != nil {
			return nil, err
		}
		return &record{f, func(w io.Writer) error { return lol.WriteAnm(f, w) }}, nil
	case ".md2":
		f, err := md2.Parse(r)
		if err != nil {
			return nil, err
		}
		return &record{f, func(w io.Writer) error { return md2.Write(f, w) }}, nil
	}
	return nil, errors.Errorf("unsupported file type: %s", filepath.Ext(path))
}

func dumpFile(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := decodeRecord(path, data)
	if err != nil {
		return errors.Wrap(err, path)
	}
	spewConfig.Fdump(w, rec.value)
	return nil
}

// verifyFile decodes and re-encodes path and compares the MD5 digests.
func verifyFile(path string) ([md5.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [md5.Size]byte{}, err
	}
	sum := md5.Sum(data)
	rec, err := decodeRecord(path, data)
	if err != nil {
		return sum, errors.Wrap(err, path)
	}
	var buf bytes.Buffer
	if err := rec.encode(&buf); err != nil {
		return sum, errors.Wrap(err, path)
	}
	if md5.Sum(buf.Bytes()) != sum {
		return sum, errors.Errorf("%s: re-encoded %d bytes (md5 %x), input has %d bytes (md5 %x)", path, buf.Len(), md5.Sum(buf.Bytes()), len(data), sum)
	}
	return sum, nil
}
