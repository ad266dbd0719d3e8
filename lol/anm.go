package lol

import (
	"io"

	"github.com/binzume/lolmodelconv/binio"
	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

var anmVersions = map[uint32]bool{0: true, 1: true, 2: true, 3: true}

// AnmFile is a bone animation (.anm). Every bone has the same number of
// frames; the count is stored once in the header.
type AnmFile struct {
	ID      [8]byte
	Version uint32
	Magic3  uint32
	FPS     uint32
	Bones   []*AnmBone
}

type AnmBone struct {
	Name   [BoneNameSize]byte
	Flag   uint32
	Frames []AnmFrame
}

// AnmFrame is the local pose of a bone.
type AnmFrame struct {
	Orientation [4]float32 // x, y, z, w
	Position    [3]float32
}

func (b *AnmBone) BoneName() string {
	return DecodeName(b.Name[:])
}

func (b *AnmBone) SetName(name string) {
	EncodeName(b.Name[:], name)
}

func (fr *AnmFrame) Quaternion() *geom.Quaternion {
	return geom.NewQuaternionFromArray(fr.Orientation).Normalize()
}

func (fr *AnmFrame) Vector() *geom.Vector3 {
	return geom.NewVector3FromArray(fr.Position)
}

// NumFrames is the frame count of the first bone.
func (f *AnmFile) NumFrames() int {
	if len(f.Bones) == 0 {
		return 0
	}
	return len(f.Bones[0].Frames)
}

// Validate checks that all bones have the same frame count.
func (f *AnmFile) Validate() error {
	n := f.NumFrames()
	for i, b := range f.Bones {
		if len(b.Frames) != n {
			return errors.Wrapf(lolerr.ErrInconsistentFrames, "anm: bone %d (%q) has %d frames, bone 0 has %d", i, b.BoneName(), len(b.Frames), n)
		}
	}
	return nil
}

func ParseAnm(r io.Reader) (*AnmFile, error) {
	p := binio.NewReader(r)
	f := &AnmFile{}
	p.Bytes(f.ID[:])
	f.Version = p.Uint32()
	if p.Err() != nil {
		return nil, errors.Wrap(p.Err(), "anm: header")
	}
	if !anmVersions[f.Version] {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "anm: unsupported version %d", f.Version)
	}
	f.Magic3 = p.Uint32()
	numBones := p.Count()
	numFrames := p.Count()
	f.FPS = p.Uint32()
	if p.Err() != nil {
		return nil, errors.Wrap(p.Err(), "anm: header")
	}
	// the frame count is written from the first bone
	if numBones == 0 && numFrames != 0 {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "anm: %d frames without bones", numFrames)
	}

	f.Bones = make([]*AnmBone, 0, binio.Prealloc(numBones))
	for i := 0; i < numBones && p.Err() == nil; i++ {
		b := &AnmBone{}
		p.Bytes(b.Name[:])
		b.Flag = p.Uint32()
		b.Frames = make([]AnmFrame, 0, binio.Prealloc(numFrames))
		for j := 0; j < numFrames && p.Err() == nil; j++ {
			var fr AnmFrame
			for k := range fr.Orientation {
				fr.Orientation[k] = p.Float32()
			}
			for k := range fr.Position {
				fr.Position[k] = p.Float32()
			}
			b.Frames = append(b.Frames, fr)
		}
		f.Bones = append(f.Bones, b)
	}
	if p.Err() != nil {
		return nil, errors.Wrapf(p.Err(), "anm: bones (%d x %d frames)", numBones, numFrames)
	}
	return f, nil
}

// WriteAnm writes f. It fails with lolerr.ErrInconsistentFrames before
// writing anything if the bones disagree on frame count.
func WriteAnm(f *AnmFile, w io.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}
	p := binio.NewWriter(w)
	p.Bytes(f.ID[:])
	p.Uint32(f.Version)
	p.Uint32(f.Magic3)
	p.Count(len(f.Bones))
	p.Count(f.NumFrames())
	p.Uint32(f.FPS)
	for _, b := range f.Bones {
		p.Bytes(b.Name[:])
		p.Uint32(b.Flag)
		for _, fr := range b.Frames {
			for _, v := range fr.Orientation {
				p.Float32(v)
			}
			for _, v := range fr.Position {
				p.Float32(v)
			}
		}
	}
	return p.Err()
}
