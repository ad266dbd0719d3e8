// Package skeleton resolves bone hierarchies into world transforms.
//
// Bones live in an arena indexed by their position in the source file.
// Parents are referenced by index and resolved in dependency order, so a
// bone's world transform is computed exactly once, after its parent's.
package skeleton

import (
	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

type State int

const (
	Unresolved State = iota
	Resolved
)

func (s State) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

type Bone struct {
	Index       int
	Name        string
	ParentID    uint32
	Scale       float32
	Orientation *geom.Quaternion
	Position    *geom.Vector3

	state   State
	world   *geom.Matrix4
	inverse *geom.Matrix4
}

func (b *Bone) IsRoot() bool {
	return b.ParentID == lol.RootParent
}

// Parent returns the parent index or -1 for roots.
func (b *Bone) Parent() int {
	if b.IsRoot() {
		return -1
	}
	return int(b.ParentID)
}

func (b *Bone) State() State {
	return b.state
}

// Local returns T(position) * R(orientation).
func (b *Bone) Local() *geom.Matrix4 {
	return geom.NewTranslateMatrix4(b.Position.X, b.Position.Y, b.Position.Z).
		Mul(geom.NewRotationMatrix4FromQuaternion(b.Orientation))
}

// World returns the bone to model space transform. nil until resolved.
func (b *Bone) World() *geom.Matrix4 {
	return b.world
}

// WorldInverse returns the inverse of World. nil until resolved.
func (b *Bone) WorldInverse() *geom.Matrix4 {
	return b.inverse
}

type Skeleton struct {
	Bones []*Bone
	// BoneIDs maps influence indices to bone indices when HasBoneIDs is set.
	BoneIDs    []uint32
	HasBoneIDs bool

	order    []int
	children [][]int
}

// New validates the hierarchy and resolves world transforms.
func New(bones []*Bone) (*Skeleton, error) {
	for i, b := range bones {
		b.Index = i
	}
	s := &Skeleton{Bones: bones}
	if err := s.Resolve(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromSkl builds the bind pose skeleton of f.
func FromSkl(f *lol.SklFile) (*Skeleton, error) {
	bones := make([]*Bone, len(f.Bones))
	for i, sb := range f.Bones {
		q, pos := f.BoneTransform(i)
		bones[i] = &Bone{
			Index:       i,
			Name:        sb.BoneName(),
			ParentID:    sb.ParentID,
			Scale:       sb.Scale,
			Orientation: q,
			Position:    pos,
		}
	}
	s := &Skeleton{Bones: bones, HasBoneIDs: f.HasBoneIDs()}
	if s.HasBoneIDs {
		s.BoneIDs = append([]uint32{}, f.BoneIDs...)
	}
	if err := s.Resolve(); err != nil {
		return nil, errors.Wrap(err, "skl")
	}
	return s, nil
}

// Order returns bone indices with every parent before its children.
// Out of range parents and cycles are lolerr.ErrInconsistentTopology.
func (s *Skeleton) Order() ([]int, error) {
	if s.order != nil {
		return s.order, nil
	}
	children := make([][]int, len(s.Bones))
	var queue []int
	for i, b := range s.Bones {
		if b.IsRoot() {
			queue = append(queue, i)
			continue
		}
		p := b.Parent()
		if p >= len(s.Bones) {
			return nil, errors.Wrapf(lolerr.ErrInconsistentTopology, "bone %d (%q): parent %d out of range", i, b.Name, p)
		}
		children[p] = append(children[p], i)
	}

	order := make([]int, 0, len(s.Bones))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		queue = append(queue, children[i]...)
	}
	if len(order) != len(s.Bones) {
		reached := make([]bool, len(s.Bones))
		for _, i := range order {
			reached[i] = true
		}
		for i, ok := range reached {
			if !ok {
				return nil, errors.Wrapf(lolerr.ErrInconsistentTopology, "bone %d (%q): parent chain has a cycle", i, s.Bones[i].Name)
			}
		}
	}
	s.order = order
	s.children = children
	return order, nil
}

// Resolve computes world transforms and their inverses. Bones already
// resolved are left untouched.
func (s *Skeleton) Resolve() error {
	order, err := s.Order()
	if err != nil {
		return err
	}
	for _, i := range order {
		b := s.Bones[i]
		if b.state == Resolved {
			continue
		}
		local := b.Local()
		if b.IsRoot() {
			b.world = local
		} else {
			b.world = s.Bones[b.ParentID].world.Mul(local)
		}
		b.inverse = b.world.Inverse()
		b.state = Resolved
	}
	return nil
}

// Pose builds the skeleton of one animation frame. Orientation and
// position come from the animation; topology, scale and names from s.
func (s *Skeleton) Pose(anm *lol.AnmFile, frame int) (*Skeleton, error) {
	if err := anm.Validate(); err != nil {
		return nil, err
	}
	if len(anm.Bones) != len(s.Bones) {
		return nil, errors.Wrapf(lolerr.ErrInconsistentTopology, "animation has %d bones, skeleton has %d", len(anm.Bones), len(s.Bones))
	}
	if frame < 0 || frame >= anm.NumFrames() {
		return nil, errors.Errorf("frame %d out of range [0,%d)", frame, anm.NumFrames())
	}
	order, err := s.Order()
	if err != nil {
		return nil, err
	}

	posed := &Skeleton{
		Bones:      make([]*Bone, len(s.Bones)),
		BoneIDs:    s.BoneIDs,
		HasBoneIDs: s.HasBoneIDs,
		order:      order,
		children:   s.children,
	}
	for i, b := range s.Bones {
		fr := &anm.Bones[i].Frames[frame]
		posed.Bones[i] = &Bone{
			Index:       i,
			Name:        b.Name,
			ParentID:    b.ParentID,
			Scale:       b.Scale,
			Orientation: fr.Quaternion(),
			Position:    fr.Vector(),
		}
	}
	if err := posed.Resolve(); err != nil {
		return nil, err
	}
	return posed, nil
}
