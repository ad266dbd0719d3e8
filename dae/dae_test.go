package dae

import (
	"bytes"
	"strings"
	"testing"

	"github.com/binzume/lolmodelconv/lolerr"
)

func newTestModel() *Model {
	m := &Model{
		Name:      "test model",
		Texture:   "test.png",
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		TexCoords: []float32{0, 0, 1, -0.5, 0, -1},
		Triangles: []int{0, 1, 2},
		Joints:    []string{"root", "arm L"},
		JointRefs: []int{0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0},
		Weights:   []float32{1, 0, 0, 0, 0.5, 0.5, 0, 0, 1, 0, 0, 0},
		BindShape: Identity,
	}
	m.InverseBinds = append(append(m.InverseBinds, Identity[:]...), Identity[:]...)
	m.Skeleton = []*Joint{{Name: "root", Matrix: Identity, Children: []*Joint{{Name: "arm L", Matrix: Identity}}}}
	m.Motions = []*Motion{{Name: "idle1", Tracks: []*Track{
		{Joint: "arm L", Times: []float32{0, 0.5}, Matrices: append(append([]float32{}, Identity[:]...), Identity[:]...)},
	}}}
	return m
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(newTestModel(), &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "<?xml") || !strings.Contains(buf.String(), Namespace) {
		t.Error("header: ", buf.String()[:80])
	}

	doc, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != Version || len(doc.Geometries) != 1 || len(doc.Controllers) != 1 {
		t.Fatal("document: ", doc.Version, len(doc.Geometries), len(doc.Controllers))
	}
	mesh := doc.Geometries[0].Mesh
	if len(mesh.Sources) != 3 || len(mesh.Sources[0].Floats.Data) != 9 || mesh.Sources[0].Accessor.Count != 3 {
		t.Error("positions: ", mesh.Sources[0].Floats)
	}
	if mesh.Sources[2].Floats.Data[3] != -0.5 {
		t.Error("texcoords: ", mesh.Sources[2].Floats.Data)
	}
	if mesh.Triangles.Count != 1 || len(mesh.Triangles.P) != 9 || mesh.Triangles.P[3] != 1 {
		t.Error("triangles: ", mesh.Triangles.Count, mesh.Triangles.P)
	}

	skin := doc.Controllers[0].Skin
	if skin.Sources[0].Names == nil || strings.Join(skin.Sources[0].Names.Data, ",") != "root,arm_L" {
		t.Error("joint names: ", skin.Sources[0].Names)
	}
	if len(skin.Sources[1].Floats.Data) != 32 || skin.Sources[1].Accessor.Count != 2 {
		t.Error("inverse binds: ", skin.Sources[1].Floats)
	}
	if len(skin.BindShapeMatrix) != 16 || skin.BindShapeMatrix[15] != 1 {
		t.Error("bind shape: ", skin.BindShapeMatrix)
	}
	vw := skin.VertexWeights
	if vw.Count != 3 || len(vw.VCount) != 3 || len(vw.V) != 24 {
		t.Error("vertex weights: ", vw.Count, vw.VCount, vw.V)
	}
	// vertex 1, influence 1: joint 1, weight 5
	if vw.V[10] != 1 || vw.V[11] != 5 {
		t.Error("vertex weight pairs: ", vw.V)
	}

	if len(doc.Scenes) != 1 || len(doc.Scenes[0].Nodes) != 2 {
		t.Fatal("scene: ", doc.Scenes)
	}
	root := doc.Scenes[0].Nodes[0]
	if root.Type != "JOINT" || len(root.Children) != 1 || root.Children[0].ID != "arm_L" || root.Children[0].Name != "arm L" {
		t.Error("joint nodes: ", root)
	}
	if c := doc.Scenes[0].Nodes[1].Controller; c == nil || c.URL != "#test_model-skin" || c.Skeletons[0] != "#root" {
		t.Error("instance controller: ", c)
	}

	if len(doc.Animations) != 1 || len(doc.Animations[0].Animations) != 1 || len(doc.Clips) != 1 {
		t.Fatal("animations: ", doc.Animations)
	}
	ch := doc.Animations[0].Animations[0]
	if ch.Channels[0].Target != "arm_L/transform" || len(ch.Sources[1].Floats.Data) != 32 {
		t.Error("channel: ", ch.Channels)
	}
	if doc.Clips[0].End != 0.5 || doc.Clips[0].ID != "idle1" {
		t.Error("clip: ", doc.Clips[0])
	}
	if len(doc.Images) != 1 || doc.Images[0].InitFrom != "test.png" {
		t.Error("images: ", doc.Images)
	}
}

func TestValidate(t *testing.T) {
	cases := []func(m *Model){
		func(m *Model) { m.Normals = m.Normals[:3] },
		func(m *Model) { m.TexCoords = nil },
		func(m *Model) { m.Triangles = []int{0, 1} },
		func(m *Model) { m.Triangles = []int{0, 1, 3} },
		func(m *Model) { m.InverseBinds = m.InverseBinds[:16] },
		func(m *Model) { m.Weights = m.Weights[:4] },
		func(m *Model) { m.JointRefs[0] = 2 },
		func(m *Model) { m.Motions[0].Tracks[0].Times = []float32{0} },
	}
	for i, mutate := range cases {
		m := newTestModel()
		mutate(m)
		if err := Write(m, &bytes.Buffer{}); !lolerr.Is(err, lolerr.ErrInvalidFormat) {
			t.Error("case ", i, err)
		}
	}
}

func TestID(t *testing.T) {
	if ID("L_Hand 01/x") != "L_Hand_01_x" {
		t.Error(ID("L_Hand 01/x"))
	}
}
