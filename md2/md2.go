// Package md2 reads and writes Quake 2 keyframe models (.md2).
//
// Every count, size and offset in the header is derived from the slices of
// File when writing, so a File can be edited freely before Write.
package md2

import (
	"bytes"
	"io"

	"github.com/binzume/lolmodelconv/binio"
	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

const (
	Ident      int32 = 844121161 // "IDP2"
	Version    int32 = 8
	HeaderSize       = 68

	SkinNameSize  = 64
	FrameNameSize = 16
	NumNormals    = 162

	texCoordSize    = 4
	triangleSize    = 12
	vertexSize      = 4
	frameHeaderSize = 40
	glCmdSize       = 4
)

type TexCoord struct {
	S int16
	T int16
}

// Triangle holds position and texture coordinate indices.
type Triangle struct {
	Vertex   [3]uint16
	TexCoord [3]uint16
}

// Vertex is a compressed position. The real position is
// V * Frame.Scale + Frame.Translate.
type Vertex struct {
	V           [3]uint8
	NormalIndex uint8
}

type Frame struct {
	Scale     geom.Vector3
	Translate geom.Vector3
	Name      [FrameNameSize]byte
	Vertices  []Vertex
}

func (fr *Frame) FrameName() string {
	return lol.DecodeName(fr.Name[:])
}

func (fr *Frame) SetName(name string) {
	lol.EncodeName(fr.Name[:], name)
}

// Decompress returns the position of vertex i.
func (fr *Frame) Decompress(i int) *geom.Vector3 {
	v := &fr.Vertices[i]
	return &geom.Vector3{
		X: float32(v.V[0])*fr.Scale.X + fr.Translate.X,
		Y: float32(v.V[1])*fr.Scale.Y + fr.Translate.Y,
		Z: float32(v.V[2])*fr.Scale.Z + fr.Translate.Z,
	}
}

// Normal returns the table normal of vertex i.
func (fr *Frame) Normal(i int) *geom.Vector3 {
	n := Normals[int(fr.Vertices[i].NormalIndex)%NumNormals]
	return &n
}

type File struct {
	SkinWidth  int32
	SkinHeight int32
	Skins      [][SkinNameSize]byte
	TexCoords  []TexCoord
	Triangles  []Triangle
	Frames     []*Frame
	GLCmds     []int32
}

// Header is the on-disk header. It is never stored in File.
type Header struct {
	Ident        int32
	Version      int32
	SkinWidth    int32
	SkinHeight   int32
	FrameSize    int32
	NumSkins     int32
	NumVertices  int32
	NumST        int32
	NumTris      int32
	NumGLCmds    int32
	NumFrames    int32
	OffsetSkins  int32
	OffsetST     int32
	OffsetTris   int32
	OffsetFrames int32
	OffsetGLCmds int32
	OffsetEnd    int32
}

func (f *File) NumVertices() int {
	if len(f.Frames) == 0 {
		return 0
	}
	return len(f.Frames[0].Vertices)
}

// Header computes the header for the current content. Each offset is the
// running size of the sections before it.
func (f *File) Header() *Header {
	h := &Header{
		Ident:       Ident,
		Version:     Version,
		SkinWidth:   f.SkinWidth,
		SkinHeight:  f.SkinHeight,
		NumSkins:    int32(len(f.Skins)),
		NumVertices: int32(f.NumVertices()),
		NumST:       int32(len(f.TexCoords)),
		NumTris:     int32(len(f.Triangles)),
		NumGLCmds:   int32(len(f.GLCmds)),
		NumFrames:   int32(len(f.Frames)),
	}
	if h.NumFrames > 0 {
		h.FrameSize = frameHeaderSize + vertexSize*h.NumVertices
	}
	h.OffsetSkins = HeaderSize
	h.OffsetST = h.OffsetSkins + SkinNameSize*h.NumSkins
	h.OffsetTris = h.OffsetST + texCoordSize*h.NumST
	h.OffsetFrames = h.OffsetTris + triangleSize*h.NumTris
	h.OffsetGLCmds = h.OffsetFrames + h.FrameSize*h.NumFrames
	h.OffsetEnd = h.OffsetGLCmds + glCmdSize*h.NumGLCmds
	return h
}

// Validate checks that every frame has the same number of vertices.
func (f *File) Validate() error {
	n := f.NumVertices()
	for i, fr := range f.Frames {
		if len(fr.Vertices) != n {
			return errors.Wrapf(lolerr.ErrInvalidFormat, "md2: frame %d has %d vertices, frame 0 has %d", i, len(fr.Vertices), n)
		}
	}
	return nil
}

// section returns a reader over data[off:off+size].
func section(data []byte, name string, off, count, elem int32) (*binio.Reader, error) {
	if off < 0 || count < 0 || elem < 0 {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "md2: %s: offset %d count %d size %d", name, off, count, elem)
	}
	end := int64(off) + int64(count)*int64(elem)
	if end > int64(len(data)) {
		return nil, errors.Wrapf(lolerr.ErrTruncatedInput, "md2: %s: needs %d bytes, have %d", name, end, len(data))
	}
	return binio.NewReader(bytes.NewReader(data[off:end])), nil
}

func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < HeaderSize {
		return nil, errors.Wrapf(lolerr.ErrTruncatedInput, "md2: header: %d bytes", len(data))
	}
	h := &Header{}
	if err := binio.NewReader(bytes.NewReader(data)).Read(h); err != nil {
		return nil, errors.Wrap(err, "md2: header")
	}
	if h.Ident != Ident {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "md2: bad ident %#x", h.Ident)
	}
	if h.Version != Version {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "md2: unsupported version %d", h.Version)
	}
	for _, n := range []int32{h.NumSkins, h.NumVertices, h.NumST, h.NumTris, h.NumGLCmds, h.NumFrames, h.FrameSize} {
		if n < 0 {
			return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "md2: negative count %d in header", n)
		}
	}
	// without frames the vertex count and frame size cannot be written back
	if h.NumFrames == 0 && (h.NumVertices != 0 || h.FrameSize != 0) {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "md2: %d vertices and frame size %d without frames", h.NumVertices, h.FrameSize)
	}
	if h.NumFrames > 0 && int64(h.FrameSize) != frameHeaderSize+vertexSize*int64(h.NumVertices) {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "md2: frame size %d for %d vertices", h.FrameSize, h.NumVertices)
	}

	f := &File{SkinWidth: h.SkinWidth, SkinHeight: h.SkinHeight}

	p, err := section(data, "skins", h.OffsetSkins, h.NumSkins, SkinNameSize)
	if err != nil {
		return nil, err
	}
	f.Skins = make([][SkinNameSize]byte, h.NumSkins)
	for i := range f.Skins {
		p.Bytes(f.Skins[i][:])
	}

	if p, err = section(data, "st", h.OffsetST, h.NumST, texCoordSize); err != nil {
		return nil, err
	}
	f.TexCoords = make([]TexCoord, h.NumST)
	for i := range f.TexCoords {
		f.TexCoords[i] = TexCoord{S: p.Int16(), T: p.Int16()}
	}

	if p, err = section(data, "tris", h.OffsetTris, h.NumTris, triangleSize); err != nil {
		return nil, err
	}
	f.Triangles = make([]Triangle, h.NumTris)
	for i := range f.Triangles {
		t := &f.Triangles[i]
		for j := range t.Vertex {
			t.Vertex[j] = p.Uint16()
		}
		for j := range t.TexCoord {
			t.TexCoord[j] = p.Uint16()
		}
	}

	if p, err = section(data, "frames", h.OffsetFrames, h.NumFrames, h.FrameSize); err != nil {
		return nil, err
	}
	f.Frames = make([]*Frame, h.NumFrames)
	for i := range f.Frames {
		fr := &Frame{Vertices: make([]Vertex, h.NumVertices)}
		fr.Scale = geom.Vector3{X: p.Float32(), Y: p.Float32(), Z: p.Float32()}
		fr.Translate = geom.Vector3{X: p.Float32(), Y: p.Float32(), Z: p.Float32()}
		p.Bytes(fr.Name[:])
		for j := range fr.Vertices {
			v := &fr.Vertices[j]
			p.Bytes(v.V[:])
			v.NormalIndex = p.Uint8()
		}
		f.Frames[i] = fr
	}

	if p, err = section(data, "glcmds", h.OffsetGLCmds, h.NumGLCmds, glCmdSize); err != nil {
		return nil, err
	}
	f.GLCmds = make([]int32, h.NumGLCmds)
	for i := range f.GLCmds {
		f.GLCmds[i] = p.Int32()
	}
	return f, nil
}

// Write writes f with the sections in header order. Frames must agree on
// the vertex count; nothing is written otherwise.
func Write(f *File, w io.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}
	p := binio.NewWriter(w)
	p.Write(f.Header())
	for i := range f.Skins {
		p.Bytes(f.Skins[i][:])
	}
	for _, st := range f.TexCoords {
		p.Int16(st.S)
		p.Int16(st.T)
	}
	for _, t := range f.Triangles {
		for _, v := range t.Vertex {
			p.Uint16(v)
		}
		for _, v := range t.TexCoord {
			p.Uint16(v)
		}
	}
	for _, fr := range f.Frames {
		p.Float32(fr.Scale.X)
		p.Float32(fr.Scale.Y)
		p.Float32(fr.Scale.Z)
		p.Float32(fr.Translate.X)
		p.Float32(fr.Translate.Y)
		p.Float32(fr.Translate.Z)
		p.Bytes(fr.Name[:])
		for _, v := range fr.Vertices {
			p.Bytes(v.V[:])
			p.Uint8(v.NormalIndex)
		}
	}
	for _, c := range f.GLCmds {
		p.Int32(c)
	}
	return p.Err()
}
