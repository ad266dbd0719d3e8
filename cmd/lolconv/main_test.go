package main

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/lolmodelconv/lol"
)

func TestParseArgs(t *testing.T) {
	a, err := parseArgs([]string{"a.skl", "a.skn", "idle.anm", "run.ANM", "out.dae"})
	if err != nil {
		t.Fatal(err)
	}
	if a.skl != "a.skl" || a.skn != "a.skn" || len(a.anms) != 2 || a.output != "out.dae" {
		t.Error("args: ", a)
	}

	a, err = parseArgs([]string{"dir/a.skn", "dir/a.skl"})
	if err != nil {
		t.Fatal(err)
	}
	if a.output != "dir/a.md2" {
		t.Error("default output: ", a.output)
	}

	for _, args := range [][]string{
		{"a.skl"},
		{"a.skl", "a.skn", "out.obj"},
		{"a.skl", "out.md2", "a.skn"},
	} {
		if _, err := parseArgs(args); err == nil {
			t.Error("expected error: ", args)
		}
	}
}

func TestVerifyFile(t *testing.T) {
	anm := &lol.AnmFile{Version: 3, FPS: 30}
	copy(anm.ID[:], "r3d2anmd")
	b := &lol.AnmBone{Frames: []lol.AnmFrame{{Orientation: [4]float32{0, 0, 0, 1}}}}
	b.SetName("root")
	anm.Bones = append(anm.Bones, b)

	var buf bytes.Buffer
	if err := lol.WriteAnm(anm, &buf); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "idle.anm")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := verifyFile(path); err != nil {
		t.Error(err)
	}

	// trailing bytes are not reproduced
	if err := os.WriteFile(path, append(buf.Bytes(), 0), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := verifyFile(path); err == nil {
		t.Error("expected digest mismatch")
	}

	var out bytes.Buffer
	if err := dumpFile(path, &out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out.Bytes(), []byte("FPS")) {
		t.Error("dump: ", out.String())
	}

	if _, err := verifyFile(filepath.Join(dir, "model.obj")); err == nil {
		t.Error("expected error")
	}
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md2")
	if err := create(path, func(w *bufio.Writer) error {
		_, err := w.WriteString("IDP2")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != "IDP2" {
		t.Error("written: ", string(data), err)
	}

	failure := errors.New("encode failed")
	if err := create(path, func(w *bufio.Writer) error { return failure }); err != failure {
		t.Error("expected write error: ", err)
	}
	if err := create(filepath.Join(path, "sub.md2"), func(w *bufio.Writer) error { return nil }); err == nil {
		t.Error("expected create error")
	}
}
