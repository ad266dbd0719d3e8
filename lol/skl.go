package lol

import (
	"io"

	"github.com/binzume/lolmodelconv/binio"
	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

// RootParent is the parent id of a root bone (-1 as u32).
const RootParent uint32 = 0xFFFFFFFF

const (
	BoneNameSize  = 32
	TransformSize = 12
)

var sklVersions = map[uint32]bool{0: true, 1: true, 2: true}

// SklFile is a skeleton (.skl).
type SklFile struct {
	ID         [8]byte
	Version    uint32
	DesignerID uint32
	Bones      []*SklBone
	// BoneIDs maps mesh influence indices to bone indices. Present in
	// versions 0 and 2 only.
	BoneIDs []uint32
}

type SklBone struct {
	Name     [BoneNameSize]byte
	ParentID uint32
	Scale    float32
	// Transform holds either a quaternion and position (version 0) or a
	// row-major 3x4 matrix (versions 1 and 2). See BoneTransform.
	Transform [TransformSize]float32
}

func (b *SklBone) BoneName() string {
	return DecodeName(b.Name[:])
}

func (b *SklBone) SetName(name string) {
	EncodeName(b.Name[:], name)
}

func (b *SklBone) IsRoot() bool {
	return b.ParentID == RootParent
}

// HasBoneIDs reports whether the version carries the bone_ids section.
func (f *SklFile) HasBoneIDs() bool {
	return hasBoneIDs(f.Version)
}

func hasBoneIDs(version uint32) bool {
	return version == 0 || version == 2
}

// BoneTransform returns the local orientation and position of bone i,
// whatever the version encodes.
func (f *SklFile) BoneTransform(i int) (*geom.Quaternion, *geom.Vector3) {
	t := f.Bones[i].Transform
	if f.Version == 0 {
		q := geom.NewQuaternion(t[0], t[1], t[2], t[3])
		return q.Normalize(), geom.NewVector3(t[4], t[5], t[6])
	}
	_, q, _ := geom.NewMatrix4FromRows3x4(t).Decompose()
	return q, geom.NewVector3(t[3], t[7], t[11])
}

// EncodeTransform is the inverse of BoneTransform for the given version.
func EncodeTransform(version uint32, q *geom.Quaternion, pos *geom.Vector3) [TransformSize]float32 {
	if version == 0 {
		return [TransformSize]float32{q.X, q.Y, q.Z, q.W, pos.X, pos.Y, pos.Z}
	}
	m := geom.NewTranslateMatrix4(pos.X, pos.Y, pos.Z).Mul(geom.NewRotationMatrix4FromQuaternion(q))
	return m.Rows3x4()
}

func ParseSkl(r io.Reader) (*SklFile, error) {
	p := binio.NewReader(r)
	f := &SklFile{}
	p.Bytes(f.ID[:])
	f.Version = p.Uint32()
	if p.Err() != nil {
		return nil, errors.Wrap(p.Err(), "skl: header")
	}
	if !sklVersions[f.Version] {
		return nil, errors.Wrapf(lolerr.ErrInvalidFormat, "skl: unsupported version %d", f.Version)
	}
	f.DesignerID = p.Uint32()

	numBones := p.Count()
	f.Bones = make([]*SklBone, 0, binio.Prealloc(numBones))
	for i := 0; i < numBones && p.Err() == nil; i++ {
		b := &SklBone{}
		p.Bytes(b.Name[:])
		b.ParentID = p.Uint32()
		b.Scale = p.Float32()
		for j := range b.Transform {
			b.Transform[j] = p.Float32()
		}
		f.Bones = append(f.Bones, b)
	}
	if p.Err() != nil {
		return nil, errors.Wrapf(p.Err(), "skl: bones (%d)", numBones)
	}

	if f.HasBoneIDs() {
		numIDs := p.Count()
		f.BoneIDs = make([]uint32, 0, binio.Prealloc(numIDs))
		for i := 0; i < numIDs && p.Err() == nil; i++ {
			f.BoneIDs = append(f.BoneIDs, p.Uint32())
		}
		if p.Err() != nil {
			return nil, errors.Wrapf(p.Err(), "skl: bone ids (%d)", numIDs)
		}
	}
	return f, nil
}

// WriteSkl writes f. Counts are taken from the slices. BoneIDs are ignored
// by versions without the section.
func WriteSkl(f *SklFile, w io.Writer) error {
	p := binio.NewWriter(w)
	p.Bytes(f.ID[:])
	p.Uint32(f.Version)
	p.Uint32(f.DesignerID)
	p.Count(len(f.Bones))
	for _, b := range f.Bones {
		p.Bytes(b.Name[:])
		p.Uint32(b.ParentID)
		p.Float32(b.Scale)
		for _, v := range b.Transform {
			p.Float32(v)
		}
	}
	if f.HasBoneIDs() {
		p.Count(len(f.BoneIDs))
		for _, id := range f.BoneIDs {
			p.Uint32(id)
		}
	}
	return p.Err()
}
