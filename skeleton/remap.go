package skeleton

import (
	"github.com/binzume/lolmodelconv/lolerr"
)

// Remap maps a vertex influence index to a bone index. With bone ids the
// raw index selects an entry of BoneIDs; otherwise it is the bone index.
// Out of range indices map to bone 0 and return an *lolerr.AnomalyError
// along with the fallback.
func (s *Skeleton) Remap(raw uint8) (int, error) {
	i := int(raw)
	if s.HasBoneIDs {
		if i >= len(s.BoneIDs) {
			return 0, anomalousIndex(raw)
		}
		i = int(s.BoneIDs[i])
	}
	if i >= len(s.Bones) {
		return 0, anomalousIndex(raw)
	}
	return i, nil
}

func anomalousIndex(raw uint8) error {
	return &lolerr.AnomalyError{Kind: lolerr.ErrAnomalousIndex, Vertex: -1, Influence: -1, Raw: int(raw), Fallback: "bone 0"}
}

// InfluenceIndex is the inverse of Remap. ok is false when no raw index
// maps to bone.
func (s *Skeleton) InfluenceIndex(bone int) (raw uint8, ok bool) {
	if !s.HasBoneIDs {
		return uint8(bone), bone >= 0 && bone < len(s.Bones) && bone < 256
	}
	for i, id := range s.BoneIDs {
		if int(id) == bone && i < 256 {
			return uint8(i), true
		}
	}
	return 0, false
}

// ListedBones returns the bones referenced by BoneIDs in bone order, or
// every bone when the skeleton has no bone ids.
func (s *Skeleton) ListedBones() []int {
	var bones []int
	for i := range s.Bones {
		if _, ok := s.InfluenceIndex(i); ok || !s.HasBoneIDs {
			bones = append(bones, i)
		}
	}
	return bones
}

// RemapTable is Remap evaluated once for every possible raw index.
type RemapTable struct {
	bones [256]int
	errs  [256]error
}

func (s *Skeleton) NewRemapTable() *RemapTable {
	t := &RemapTable{}
	for raw := 0; raw < 256; raw++ {
		t.bones[raw], t.errs[raw] = s.Remap(uint8(raw))
	}
	return t
}

func (t *RemapTable) Bone(raw uint8) (int, error) {
	return t.bones[raw], t.errs[raw]
}

// WithoutBoneIDs returns a view of s whose influence indices are bone
// indices. Bones and cached order are shared with s.
func (s *Skeleton) WithoutBoneIDs() *Skeleton {
	direct := *s
	direct.BoneIDs = nil
	direct.HasBoneIDs = false
	return &direct
}
