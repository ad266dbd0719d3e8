package lol

import (
	"io"

	"github.com/binzume/lolmodelconv/binio"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

const (
	SknMagic         uint32 = 0x00112233
	MaterialNameSize        = 64
)

var sknVersions = map[uint16]bool{0: true, 1: true, 2: true}

// SknFile is a skinned mesh (.skn).
type SknFile struct {
	Magic      uint32
	Version    uint16
	NumObjects uint16
	Materials  []*SknMaterial
	Indices    []uint16
	Vertices   []*SknVertex
	// EndTab is written by version 2 only.
	EndTab [3]uint32
}

// SknMaterial is a named vertex and index range.
type SknMaterial struct {
	Name        [MaterialNameSize]byte
	StartVertex uint32
	NumVertices uint32
	StartIndex  uint32
	NumIndices  uint32
}

func (m *SknMaterial) MaterialName() string {
	return DecodeName(m.Name[:])
}

// SknVertex is 52 bytes on disk. BoneIndex values are influence indices,
// see skeleton.Remap.
type SknVertex struct {
	Position  [3]float32
	BoneIndex [4]uint8
	Weights   [4]float32
	Normal    [3]float32
	TexCoords [2]float32
}

func (f *SknFile) HasEndTab() bool {
	return f.Version == 2
}

func ParseSkn(r io.Reader) (*SknFile, error) {
	p := binio.NewReader(r)
	f := &SknFile{}
	f.Magic = p.Uint32()
	f.Version = p.Uint16()
	f.NumObjects = p.Uint16()
	if p.Err() != nil {
		return nil, errors.Wrap(p.Err(), "skn: header")
	}
	if f.Magic != SknMagic {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "skn: magic 0x%08x != 0x%08x", f.Magic, SknMagic)
	}
	if !sknVersions[f.Version] {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "skn: unsupported version %d", f.Version)
	}

	numMaterials := p.Count()
	f.Materials = make([]*SknMaterial, 0, binio.Prealloc(numMaterials))
	for i := 0; i < numMaterials && p.Err() == nil; i++ {
		m := &SknMaterial{}
		p.Bytes(m.Name[:])
		m.StartVertex = p.Uint32()
		m.NumVertices = p.Uint32()
		m.StartIndex = p.Uint32()
		m.NumIndices = p.Uint32()
		f.Materials = append(f.Materials, m)
	}
	if p.Err() != nil {
		return nil, errors.Wrapf(p.Err(), "skn: materials (%d)", numMaterials)
	}

	numIndices := p.Count()
	numVertices := p.Count()
	f.Indices = make([]uint16, 0, binio.Prealloc(numIndices))
	for i := 0; i < numIndices && p.Err() == nil; i++ {
		f.Indices = append(f.Indices, p.Uint16())
	}
	if p.Err() != nil {
		return nil, errors.Wrapf(p.Err(), "skn: indices (%d)", numIndices)
	}

	f.Vertices = make([]*SknVertex, 0, binio.Prealloc(numVertices))
	for i := 0; i < numVertices && p.Err() == nil; i++ {
		v := &SknVertex{}
		p.Read(v)
		f.Vertices = append(f.Vertices, v)
	}
	if p.Err() != nil {
		return nil, errors.Wrapf(p.Err(), "skn: vertices (%d)", numVertices)
	}

	if f.HasEndTab() {
		for i := range f.EndTab {
			f.EndTab[i] = p.Uint32()
		}
		if p.Err() != nil {
			return nil, errors.Wrap(p.Err(), "skn: end tab")
		}
	}
	return f, nil
}

func WriteSkn(f *SknFile, w io.Writer) error {
	p := binio.NewWriter(w)
	p.Uint32(f.Magic)
	p.Uint16(f.Version)
	p.Uint16(f.NumObjects)
	p.Count(len(f.Materials))
	for _, m := range f.Materials {
		p.Bytes(m.Name[:])
		p.Uint32(m.StartVertex)
		p.Uint32(m.NumVertices)
		p.Uint32(m.StartIndex)
		p.Uint32(m.NumIndices)
	}
	p.Count(len(f.Indices))
	p.Count(len(f.Vertices))
	for _, i := range f.Indices {
		p.Uint16(i)
	}
	for _, v := range f.Vertices {
		p.Write(v)
	}
	if f.HasEndTab() {
		for _, v := range f.EndTab {
			p.Uint32(v)
		}
	}
	return p.Err()
}
