package skin

import (
	"bytes"
	"strings"
	"testing"

	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/binzume/lolmodelconv/skeleton"
	"github.com/charmbracelet/log"
)

const eps = 0.0001

func newBind(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	s, err := skeleton.New([]*skeleton.Bone{
		{Name: "root", ParentID: lol.RootParent, Scale: 1, Orientation: geom.NewAxisAngleQuaternion(geom.NewVector3(0, 1, 0), 0.4), Position: geom.NewVector3(0, 0.5, 0)},
		{Name: "arm", ParentID: 0, Scale: 1, Orientation: geom.NewAxisAngleQuaternion(geom.NewVector3(0, 0, 1), 1.1), Position: geom.NewVector3(1, 1, 0)},
		{Name: "hand", ParentID: 1, Scale: 1, Orientation: geom.NewQuaternion(0, 0, 0, 1), Position: geom.NewVector3(0, 1, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// pose builds a posed skeleton from per-bone local transforms.
func pose(t *testing.T, bind *skeleton.Skeleton, move func(b *skeleton.Bone) (*geom.Quaternion, *geom.Vector3)) *skeleton.Skeleton {
	t.Helper()
	anm := &lol.AnmFile{}
	for _, b := range bind.Bones {
		q, p := move(b)
		anm.Bones = append(anm.Bones, &lol.AnmBone{Frames: []lol.AnmFrame{{
			Orientation: [4]float32{q.X, q.Y, q.Z, q.W},
			Position:    [3]float32{p.X, p.Y, p.Z},
		}}})
	}
	posed, err := bind.Pose(anm, 0)
	if err != nil {
		t.Fatal(err)
	}
	return posed
}

func testVertices() []Vertex {
	return []Vertex{
		{Position: geom.Vector3{X: 1, Y: 2, Z: 3}, Normal: geom.Vector3{Y: 1}, Bones: [4]uint8{0, 1, 2, 0}, Weights: [4]float32{0.2, 0.3, 0.5, 0}},
		{Position: geom.Vector3{X: -1, Y: 0, Z: 0.5}, Normal: geom.Vector3{X: 1}, Bones: [4]uint8{2, 0, 0, 0}, Weights: [4]float32{1, 0, 0, 0}},
		{Position: geom.Vector3{X: 0, Y: 4, Z: -2}, Normal: geom.Vector3{Z: 1}, TexCoords: geom.Vector2{X: 0.5, Y: 0.25}, Bones: [4]uint8{1, 2, 0, 0}, Weights: [4]float32{0.5, 0.5, 0, 0}},
	}
}

func TestBindPoseIdentity(t *testing.T) {
	bind := newBind(t)
	e := NewEngine(bind, Strict, nil)
	for i := range bind.Bones {
		if !e.SkinMatrix(i, bind).IsIdentity(eps) {
			t.Error("skin matrix is not identity: ", i)
		}
	}

	vs := testVertices()
	posed, err := e.PoseVertices(vs, bind)
	if err != nil {
		t.Fatal(err)
	}
	for i := range vs {
		if posed[i].Position.Sub(&vs[i].Position).Len() > eps || posed[i].Normal.Sub(&vs[i].Normal).Len() > eps {
			t.Error("vertex moved in bind pose: ", i, posed[i].Position, vs[i].Position)
		}
		if posed[i].TexCoords != vs[i].TexCoords || posed[i].Bones != vs[i].Bones || posed[i].Weights != vs[i].Weights {
			t.Error("pass through attributes changed: ", i)
		}
	}

	// same result with a posed skeleton equal to the bind pose
	same := pose(t, bind, func(b *skeleton.Bone) (*geom.Quaternion, *geom.Vector3) { return b.Orientation, b.Position })
	posed2, err := e.PoseVertices(vs, same)
	if err != nil {
		t.Fatal(err)
	}
	for i := range vs {
		if posed2[i].Position.Sub(&vs[i].Position).Len() > eps {
			t.Error("vertex moved: ", i)
		}
	}
}

func TestTranslateRoot(t *testing.T) {
	bind := newBind(t)
	e := NewEngine(bind, Strict, nil)
	posed := pose(t, bind, func(b *skeleton.Bone) (*geom.Quaternion, *geom.Vector3) {
		if b.IsRoot() {
			return b.Orientation, b.Position.Add(geom.NewVector3(3, 0, 0))
		}
		return b.Orientation, b.Position
	})

	vs := testVertices()
	for i := range vs {
		v, err := e.PoseVertex(i, &vs[i], posed)
		if err != nil {
			t.Fatal(err)
		}
		if v.Position.Sub(vs[i].Position.Add(geom.NewVector3(3, 0, 0))).Len() > eps {
			t.Error("position: ", i, v.Position)
		}
		if v.Normal.Sub(&vs[i].Normal).Len() > eps {
			t.Error("normals ignore translation: ", i, v.Normal)
		}
	}
}

func TestWeightNormalization(t *testing.T) {
	bind, err := skeleton.New([]*skeleton.Bone{
		{Name: "a", ParentID: lol.RootParent, Orientation: geom.NewQuaternion(0, 0, 0, 1), Position: &geom.Vector3{}},
		{Name: "b", ParentID: lol.RootParent, Orientation: geom.NewQuaternion(0, 0, 0, 1), Position: &geom.Vector3{}},
	})
	if err != nil {
		t.Fatal(err)
	}
	posed := pose(t, bind, func(b *skeleton.Bone) (*geom.Quaternion, *geom.Vector3) {
		if b.Name == "b" {
			return b.Orientation, geom.NewVector3(0, 2, 0)
		}
		return b.Orientation, b.Position
	})
	e := NewEngine(bind, Strict, nil)

	for _, w := range [][4]float32{{0.5, 0.5, 0, 0}, {1, 1, 0, 0}, {3, 3, 0, 0}} {
		v := Vertex{Normal: geom.Vector3{Z: 1}, Bones: [4]uint8{0, 1, 0, 0}, Weights: w}
		out, err := e.PoseVertex(0, &v, posed)
		if err != nil {
			t.Fatal(err)
		}
		if out.Position.Sub(geom.NewVector3(0, 1, 0)).Len() > eps {
			t.Error("weights are divided by their sum: ", w, out.Position)
		}
		if out.Normal.Sub(geom.NewVector3(0, 0, 1)).Len() > eps {
			t.Error("normal: ", w, out.Normal)
		}
	}
}

func TestDegenerateInfluence(t *testing.T) {
	bind := newBind(t)
	v := Vertex{Position: geom.Vector3{X: 1}, Normal: geom.Vector3{Y: 1}}

	_, err := NewEngine(bind, Strict, nil).PoseVertex(4, &v, bind)
	if !lolerr.Is(err, lolerr.ErrDegenerateInfluence) {
		t.Fatal("expected degenerate influence: ", err)
	}
	if ae, ok := err.(*lolerr.AnomalyError); !ok || ae.Vertex != 4 || ae.Fallback != "bind pose" {
		t.Error("anomaly detail: ", err)
	}

	var logs bytes.Buffer
	out, err := NewEngine(bind, Lenient, log.New(&logs)).PoseVertex(4, &v, bind)
	if err != nil {
		t.Fatal(err)
	}
	if out.Position != v.Position || out.Normal != v.Normal {
		t.Error("lenient mode keeps the bind pose: ", out)
	}
	if !strings.Contains(logs.String(), "zero total weight") {
		t.Error("warning not logged: ", logs.String())
	}
}

func TestAnomalousIndex(t *testing.T) {
	bind := newBind(t)
	posed := pose(t, bind, func(b *skeleton.Bone) (*geom.Quaternion, *geom.Vector3) {
		return b.Orientation, b.Position.Add(geom.NewVector3(0, 0, 1))
	})
	v := Vertex{Position: geom.Vector3{X: 1}, Bones: [4]uint8{200, 0, 0, 0}, Weights: [4]float32{1, 0, 0, 0}}

	if _, err := NewEngine(bind, Strict, nil).PoseVertex(0, &v, posed); !lolerr.Is(err, lolerr.ErrAnomalousIndex) {
		t.Fatal("expected anomalous index: ", err)
	}

	var logs bytes.Buffer
	e := NewEngine(bind, Lenient, log.New(&logs))
	out, err := e.PoseVertex(0, &v, posed)
	if err != nil {
		t.Fatal(err)
	}
	v0 := v
	v0.Bones[0] = 0
	expected, _ := e.PoseVertex(0, &v0, posed)
	if out.Position.Sub(&expected.Position).Len() > eps {
		t.Error("fallback should use bone 0: ", out.Position, expected.Position)
	}

	e.PoseVertex(1, &v, posed)
	if n := strings.Count(logs.String(), "anomalous bone index"); n != 1 {
		t.Error("anomaly should be logged once per raw index: ", n)
	}
}

func TestFromSkn(t *testing.T) {
	v := FromSkn(&lol.SknVertex{
		Position:  [3]float32{1, 2, 3},
		BoneIndex: [4]uint8{1, 2, 3, 4},
		Weights:   [4]float32{0.1, 0.2, 0.3, 0.4},
		Normal:    [3]float32{0, 0, 1},
		TexCoords: [2]float32{0.5, 0.75},
	})
	if v.Position != (geom.Vector3{X: 1, Y: 2, Z: 3}) || v.Bones != [4]uint8{1, 2, 3, 4} || v.TexCoords.Y != 0.75 || v.Normal.Z != 1 {
		t.Error("FromSkn: ", v)
	}
	if vs := FromSknFile(&lol.SknFile{Vertices: []*lol.SknVertex{{}, {}}}); len(vs) != 2 {
		t.Error("FromSknFile: ", len(vs))
	}
}
