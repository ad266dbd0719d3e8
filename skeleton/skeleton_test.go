package skeleton

import (
	"math"
	"testing"

	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/lolerr"
)

const eps = 0.00001

func identity() *geom.Quaternion {
	return geom.NewQuaternion(0, 0, 0, 1)
}

func newSkl(version uint32, bones ...*lol.SklBone) *lol.SklFile {
	return &lol.SklFile{Version: version, Bones: bones}
}

func newSklBone(name string, parent uint32, q *geom.Quaternion, pos *geom.Vector3) *lol.SklBone {
	b := &lol.SklBone{ParentID: parent, Scale: 1}
	b.SetName(name)
	b.Transform = lol.EncodeTransform(1, q, pos)
	return b
}

func TestRootChild(t *testing.T) {
	s, err := FromSkl(newSkl(1,
		newSklBone("root", lol.RootParent, identity(), geom.NewVector3(0, 0, 0)),
		newSklBone("child", 0, identity(), geom.NewVector3(0, 1, 0)),
	))
	if err != nil {
		t.Fatal(err)
	}
	if s.Bones[0].World().Translation().Len() > eps {
		t.Error("world(root): ", s.Bones[0].World().Translation())
	}
	if s.Bones[1].World().Translation().Sub(geom.NewVector3(0, 1, 0)).Len() > eps {
		t.Error("world(child): ", s.Bones[1].World().Translation())
	}
	if s.Bones[1].Name != "child" || s.Bones[1].Parent() != 0 || s.Bones[0].Parent() != -1 {
		t.Error("bone attributes: ", s.Bones[1])
	}
}

func TestTransformComposition(t *testing.T) {
	rq := geom.NewAxisAngleQuaternion(geom.NewVector3(0, 0, 1), math.Pi/2)
	cq := geom.NewAxisAngleQuaternion(geom.NewVector3(1, 0, 0), 0.3)
	s, err := New([]*Bone{
		{Name: "root", ParentID: lol.RootParent, Scale: 1, Orientation: rq, Position: geom.NewVector3(1, 2, 3)},
		{Name: "child", ParentID: 0, Scale: 1, Orientation: cq, Position: geom.NewVector3(0, 1, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	root, child := s.Bones[0], s.Bones[1]

	if !child.World().NearlyEquals(root.World().Mul(child.Local()), eps) {
		t.Error("world(child) != world(root) * local(child)")
	}
	if !child.World().Mul(child.WorldInverse()).IsIdentity(eps) {
		t.Error("world * inverse != identity")
	}
	// child origin: root position + root rotation applied to (0,1,0)
	if child.World().Translation().Sub(geom.NewVector3(0, 2, 3)).Len() > eps {
		t.Error("child origin: ", child.World().Translation())
	}
}

func TestResolveOnce(t *testing.T) {
	bones := []*Bone{
		{Name: "child", ParentID: 1, Orientation: identity(), Position: geom.NewVector3(0, 1, 0)},
		{Name: "root", ParentID: lol.RootParent, Orientation: identity(), Position: geom.NewVector3(5, 0, 0)},
	}
	for _, b := range bones {
		if b.State() != Unresolved {
			t.Error("initial state: ", b.State())
		}
	}
	s, err := New(bones)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range s.Bones {
		if b.State() != Resolved {
			t.Error("state after resolve: ", b.Name, b.State())
		}
	}
	// parent declared after child
	if s.Bones[0].World().Translation().Sub(geom.NewVector3(5, 1, 0)).Len() > eps {
		t.Error("world(child): ", s.Bones[0].World().Translation())
	}

	before := *s.Bones[0].World()
	s.Bones[0].Position = geom.NewVector3(9, 9, 9)
	if err := s.Resolve(); err != nil {
		t.Fatal(err)
	}
	if *s.Bones[0].World() != before {
		t.Error("resolved bone was recomputed")
	}
}

func TestTopologyErrors(t *testing.T) {
	for name, parents := range map[string][]uint32{
		"cycle":        {lol.RootParent, 2, 1},
		"self":         {lol.RootParent, 1},
		"out of range": {lol.RootParent, 5},
		"no root":      {1, 0},
	} {
		var bones []*Bone
		for _, p := range parents {
			bones = append(bones, &Bone{ParentID: p, Orientation: identity(), Position: &geom.Vector3{}})
		}
		if _, err := New(bones); !lolerr.Is(err, lolerr.ErrInconsistentTopology) {
			t.Error(name, ": expected inconsistent topology: ", err)
		}
	}
}

func TestTopologyTermination(t *testing.T) {
	parents := []uint32{lol.RootParent, 0, 1, 1, 0, lol.RootParent, 5, 6}
	var bones []*Bone
	for _, p := range parents {
		bones = append(bones, &Bone{ParentID: p, Orientation: identity(), Position: geom.NewVector3(0, 1, 0)})
	}
	s, err := New(bones)
	if err != nil {
		t.Fatal(err)
	}
	for i := range s.Bones {
		b, steps := s.Bones[i], 0
		for !b.IsRoot() {
			b = s.Bones[b.Parent()]
			steps++
			if steps > len(s.Bones) {
				t.Fatal("parent chain does not terminate: ", i)
			}
		}
	}
}

func TestRemap(t *testing.T) {
	bones := []*lol.SklBone{
		newSklBone("root", lol.RootParent, identity(), &geom.Vector3{}),
		newSklBone("a", 0, identity(), &geom.Vector3{}),
		newSklBone("b", 0, identity(), &geom.Vector3{}),
	}

	direct, err := FromSkl(newSkl(1, bones...))
	if err != nil {
		t.Fatal(err)
	}
	if i, err := direct.Remap(2); i != 2 || err != nil {
		t.Error("direct remap: ", i, err)
	}
	i, err := direct.Remap(3)
	if i != 0 || !lolerr.Is(err, lolerr.ErrAnomalousIndex) {
		t.Error("out of range remap: ", i, err)
	}
	if ae, ok := err.(*lolerr.AnomalyError); !ok || ae.Fallback != "bone 0" || ae.Raw != 3 {
		t.Error("anomaly detail: ", err)
	}

	f := newSkl(2, bones...)
	f.BoneIDs = []uint32{2, 0}
	indirect, err := FromSkl(f)
	if err != nil {
		t.Fatal(err)
	}
	if i, err := indirect.Remap(0); i != 2 || err != nil {
		t.Error("indirect remap: ", i, err)
	}
	if i, err := indirect.Remap(2); i != 0 || !lolerr.Is(err, lolerr.ErrAnomalousIndex) {
		t.Error("indirect out of range: ", i, err)
	}
	if raw, ok := indirect.InfluenceIndex(2); !ok || raw != 0 {
		t.Error("InfluenceIndex: ", raw, ok)
	}
	if _, ok := indirect.InfluenceIndex(1); ok {
		t.Error("bone 1 is not listed")
	}
	if listed := indirect.ListedBones(); len(listed) != 2 || listed[0] != 0 || listed[1] != 2 {
		t.Error("ListedBones: ", listed)
	}
	if len(direct.ListedBones()) != 3 {
		t.Error("ListedBones without bone ids: ", direct.ListedBones())
	}

	table := indirect.NewRemapTable()
	for raw := 0; raw < 256; raw++ {
		b1, e1 := table.Bone(uint8(raw))
		b2, e2 := indirect.Remap(uint8(raw))
		if b1 != b2 || (e1 == nil) != (e2 == nil) {
			t.Error("table mismatch at ", raw)
		}
	}
}

func newTestAnm(s *Skeleton, frames int, move func(bone, frame int) lol.AnmFrame) *lol.AnmFile {
	anm := &lol.AnmFile{FPS: 30}
	for i, b := range s.Bones {
		ab := &lol.AnmBone{}
		ab.SetName(b.Name)
		for j := 0; j < frames; j++ {
			ab.Frames = append(ab.Frames, move(i, j))
		}
		anm.Bones = append(anm.Bones, ab)
	}
	return anm
}

func TestPose(t *testing.T) {
	bind, err := New([]*Bone{
		{Name: "root", ParentID: lol.RootParent, Scale: 1, Orientation: identity(), Position: &geom.Vector3{}},
		{Name: "child", ParentID: 0, Scale: 2, Orientation: identity(), Position: geom.NewVector3(0, 1, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	anm := newTestAnm(bind, 3, func(bone, frame int) lol.AnmFrame {
		return lol.AnmFrame{Orientation: [4]float32{0, 0, 0, 1}, Position: [3]float32{float32(frame), float32(bone), 0}}
	})

	posed, err := bind.Pose(anm, 2)
	if err != nil {
		t.Fatal(err)
	}
	if posed.Bones[1].World().Translation().Sub(geom.NewVector3(4, 1, 0)).Len() > eps {
		t.Error("posed child: ", posed.Bones[1].World().Translation())
	}
	if posed.Bones[1].Scale != 2 || posed.Bones[1].ParentID != 0 || posed.Bones[1].Name != "child" {
		t.Error("topology and scale come from the bind skeleton")
	}
	if bind.Bones[1].World().Translation().Sub(geom.NewVector3(0, 1, 0)).Len() > eps {
		t.Error("bind skeleton modified")
	}

	if _, err := bind.Pose(anm, 3); err == nil {
		t.Error("frame out of range should fail")
	}

	anm.Bones = anm.Bones[:1]
	if _, err := bind.Pose(anm, 0); !lolerr.Is(err, lolerr.ErrInconsistentTopology) {
		t.Error("bone count mismatch: ", err)
	}

	anm = newTestAnm(bind, 3, func(bone, frame int) lol.AnmFrame { return lol.AnmFrame{Orientation: [4]float32{0, 0, 0, 1}} })
	anm.Bones[1].Frames = anm.Bones[1].Frames[:2]
	if _, err := bind.Pose(anm, 0); !lolerr.Is(err, lolerr.ErrInconsistentFrames) {
		t.Error("divergent frames: ", err)
	}
}

func TestTrees(t *testing.T) {
	var bones []*Bone
	for i, p := range []uint32{lol.RootParent, 0, 1, 0, lol.RootParent, 4} {
		bones = append(bones, &Bone{Name: string(rune('a' + i)), ParentID: p, Orientation: identity(), Position: &geom.Vector3{}})
	}
	s, err := New(bones)
	if err != nil {
		t.Fatal(err)
	}

	trees, err := s.Trees()
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 2 || len(trees[0].Children) != 2 || trees[0].Children[0].Children[0].Bone.Name != "c" {
		t.Error("trees: ", trees)
	}

	order, _ := s.JointOrder()
	if len(order) != 6 || order[0] != 0 || order[1] != 1 || order[2] != 2 || order[3] != 3 || order[4] != 4 || order[5] != 5 {
		t.Error("JointOrder: ", order)
	}

	names, _ := s.NameArrays()
	if len(names["a"]) != 4 || names["a"][3] != "d" || len(names["e"]) != 2 {
		t.Error("NameArrays: ", names)
	}

	if i, ok := s.BoneIndex("d"); !ok || i != 3 {
		t.Error("BoneIndex: ", i, ok)
	}
	if _, ok := s.BoneIndex("zz"); ok {
		t.Error("BoneIndex should fail for unknown names")
	}

	empty, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := empty.Trees(); !lolerr.Is(err, lolerr.ErrInconsistentTopology) {
		t.Error("skeleton without root: ", err)
	}
}
