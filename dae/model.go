// Package dae builds COLLADA documents for skinned, animated meshes.
//
// A Model holds flat arrays in the layout COLLADA expects. Matrices are
// row-major, 16 floats each.
package dae

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

const InfluencesPerVertex = 4

type Model struct {
	Name    string
	Texture string // image path, may be empty

	Positions []float32 // 3 per vertex
	Normals   []float32 // 3 per vertex
	TexCoords []float32 // 2 per vertex
	Triangles []int     // 3 vertex indices per triangle

	// Joints are in depth-first order. JointRefs index Joints and Weights
	// holds the matching weight, InfluencesPerVertex of each per vertex.
	Joints       []string
	InverseBinds []float32
	JointRefs    []int
	Weights      []float32
	BindShape    [16]float32

	Skeleton []*Joint
	Motions  []*Motion
}

// Joint is a node of the joint hierarchy with its local bind matrix.
type Joint struct {
	Name     string
	Matrix   [16]float32
	Children []*Joint
}

// Motion is one named animation.
type Motion struct {
	Name   string
	Tracks []*Track
}

// Track animates the local matrix of one joint.
type Track struct {
	Joint    string
	Times    []float32
	Matrices []float32 // 16 per key
}

// Identity is the row-major identity matrix.
var Identity = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func (m *Model) NumVertices() int {
	return len(m.Positions) / 3
}

// Validate checks that the arrays agree with each other.
func (m *Model) Validate() error {
	n := m.NumVertices()
	switch {
	case len(m.Positions) != 3*n:
		return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: %d position floats", len(m.Positions))
	case len(m.Normals) != 3*n:
		return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: %d normal floats for %d vertices", len(m.Normals), n)
	case len(m.TexCoords) != 2*n:
		return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: %d texcoord floats for %d vertices", len(m.TexCoords), n)
	case len(m.Triangles)%3 != 0:
		return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: %d triangle indices", len(m.Triangles))
	case len(m.InverseBinds) != 16*len(m.Joints):
		return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: %d inverse bind floats for %d joints", len(m.InverseBinds), len(m.Joints))
	case len(m.Weights) != InfluencesPerVertex*n || len(m.JointRefs) != InfluencesPerVertex*n:
		return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: %d weights, %d joint refs for %d vertices", len(m.Weights), len(m.JointRefs), n)
	}
	for _, i := range m.Triangles {
		if i < 0 || i >= n {
			return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: triangle index %d out of range", i)
		}
	}
	for _, j := range m.JointRefs {
		if j < 0 || j >= len(m.Joints) {
			return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: joint ref %d out of range", j)
		}
	}
	for _, a := range m.Motions {
		for _, c := range a.Tracks {
			if len(c.Matrices) != 16*len(c.Times) {
				return errors.Wrapf(lolerr.ErrInvalidFormat, "dae: %s/%s: %d matrix floats for %d keys", a.Name, c.Joint, len(c.Matrices), len(c.Times))
			}
		}
	}
	return nil
}

// ID turns a bone or animation name into an XML id.
func ID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, name)
}

func intp(v int) *int {
	return &v
}

func floatSource(id string, data []float32, stride int, params ...Param) Source {
	count := 0
	if stride > 0 {
		count = len(data) / stride
	}
	return Source{
		ID:       id,
		Floats:   &FloatArray{ID: id + "-array", Count: len(data), Data: data},
		Accessor: Accessor{Source: "#" + id + "-array", Count: count, Stride: stride, Params: params},
	}
}

func nameSource(id string, names []string, param string) Source {
	return Source{
		ID:       id,
		Names:    &NameArray{ID: id + "-array", Count: len(names), Data: names},
		Accessor: Accessor{Source: "#" + id + "-array", Count: len(names), Stride: 1, Params: []Param{{Name: param, Type: "name"}}},
	}
}

func xyz(prefix string) []Param {
	return []Param{{prefix + "X", "float"}, {prefix + "Y", "float"}, {prefix + "Z", "float"}}
}

// Document builds the COLLADA document of m.
func (m *Model) Document() (*Collada, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	name := ID(m.Name)
	if name == "" {
		name = "model"
	}
	meshID := name + "-mesh"
	skinID := name + "-skin"

	doc := &Collada{Xmlns: Namespace, Version: Version}
	doc.Asset.Contributor = "lolmodelconv"
	doc.Asset.Unit = Unit{Name: "meter", Meter: 1}
	doc.Asset.UpAxis = "Y_UP"

	material := ""
	if m.Texture != "" {
		material = name + "-material"
		doc.Images = []Image{{ID: name + "-image", InitFrom: m.Texture}}
		e := Effect{ID: name + "-effect"}
		e.Profile.Params = []NewParam{
			{SID: "surface", Surface: &Surface{Type: "2D", InitFrom: name + "-image"}},
			{SID: "sampler", Sampler: &Sampler2D{Source: "surface"}},
		}
		e.Profile.Technique.SID = "common"
		e.Profile.Technique.Lambert.Diffuse.Texture.Texture = "sampler"
		e.Profile.Technique.Lambert.Diffuse.Texture.TexCoord = "UVMap"
		doc.Effects = []Effect{e}
		mat := Material{ID: material, Name: m.Name}
		mat.Effect.URL = "#" + e.ID
		doc.Materials = []Material{mat}
	}

	// each triangle corner repeats the vertex index for position, normal and uv
	p := make(Ints, 0, 3*len(m.Triangles))
	for _, i := range m.Triangles {
		p = append(p, i, i, i)
	}
	g := Geometry{ID: meshID, Name: m.Name}
	g.Mesh.Sources = []Source{
		floatSource(meshID+"-positions", m.Positions, 3, xyz("")...),
		floatSource(meshID+"-normals", m.Normals, 3, xyz("")...),
		floatSource(meshID+"-map", m.TexCoords, 2, Param{"S", "float"}, Param{"T", "float"}),
	}
	g.Mesh.Vertices = Vertices{ID: meshID + "-vertices", Inputs: []Input{{Semantic: "POSITION", Source: "#" + meshID + "-positions"}}}
	g.Mesh.Triangles = Triangles{
		Count:    len(m.Triangles) / 3,
		Material: material,
		Inputs: []Input{
			{Semantic: "VERTEX", Source: "#" + meshID + "-vertices", Offset: intp(0)},
			{Semantic: "NORMAL", Source: "#" + meshID + "-normals", Offset: intp(1)},
			{Semantic: "TEXCOORD", Source: "#" + meshID + "-map", Offset: intp(2), Set: intp(0)},
		},
		P: p,
	}
	doc.Geometries = []Geometry{g}

	joints := make([]string, len(m.Joints))
	for i, j := range m.Joints {
		joints[i] = ID(j)
	}
	weightIdx := make(Ints, 0, 2*len(m.Weights))
	vcount := make(Ints, m.NumVertices())
	for i := range vcount {
		vcount[i] = InfluencesPerVertex
		for k := 0; k < InfluencesPerVertex; k++ {
			n := InfluencesPerVertex*i + k
			weightIdx = append(weightIdx, m.JointRefs[n], n)
		}
	}
	ctrl := Controller{ID: skinID, Name: m.Name}
	ctrl.Skin = Skin{
		Source:          "#" + meshID,
		BindShapeMatrix: m.BindShape[:],
		Sources: []Source{
			nameSource(skinID+"-joints", joints, "JOINT"),
			floatSource(skinID+"-bind_poses", m.InverseBinds, 16, Param{"TRANSFORM", "float4x4"}),
			floatSource(skinID+"-weights", m.Weights, 1, Param{"WEIGHT", "float"}),
		},
		Joints: []Input{
			{Semantic: "JOINT", Source: "#" + skinID + "-joints"},
			{Semantic: "INV_BIND_MATRIX", Source: "#" + skinID + "-bind_poses"},
		},
		VertexWeights: VertexWeights{
			Count: m.NumVertices(),
			Inputs: []Input{
				{Semantic: "JOINT", Source: "#" + skinID + "-joints", Offset: intp(0)},
				{Semantic: "WEIGHT", Source: "#" + skinID + "-weights", Offset: intp(1)},
			},
			VCount: vcount,
			V:      weightIdx,
		},
	}
	doc.Controllers = []Controller{ctrl}

	for _, a := range m.Motions {
		anim, clip := animation(a)
		doc.Animations = append(doc.Animations, anim)
		doc.Clips = append(doc.Clips, clip)
	}

	scene := VisualScene{ID: name + "-scene", Name: m.Name}
	var skeletons []string
	for _, j := range m.Skeleton {
		scene.Nodes = append(scene.Nodes, jointNode(j))
		skeletons = append(skeletons, "#"+ID(j.Name))
	}
	ic := &InstanceController{URL: "#" + skinID, Skeletons: skeletons}
	if material != "" {
		ic.Materials = []InstanceMaterial{{Symbol: material, Target: "#" + material}}
	}
	scene.Nodes = append(scene.Nodes, &Node{ID: name, Name: m.Name, Type: "NODE", Controller: ic})
	doc.Scenes = []VisualScene{scene}
	doc.Scene.VisualScene.URL = "#" + scene.ID
	return doc, nil
}

func jointNode(j *Joint) *Node {
	id := ID(j.Name)
	n := &Node{ID: id, SID: id, Name: j.Name, Type: "JOINT", Matrix: &MatrixElement{SID: "transform", Data: j.Matrix[:]}}
	for _, c := range j.Children {
		n.Children = append(n.Children, jointNode(c))
	}
	return n
}

func animation(a *Motion) (Animation, Clip) {
	clipID := ID(a.Name)
	anim := Animation{ID: clipID + "-anim", Name: a.Name}
	clip := Clip{ID: clipID, Name: a.Name}
	for _, c := range a.Tracks {
		id := fmt.Sprintf("%s-%s", clipID, ID(c.Joint))
		interp := make([]string, len(c.Times))
		for i := range interp {
			interp[i] = "LINEAR"
		}
		if n := len(c.Times); n > 0 && c.Times[n-1] > clip.End {
			clip.End = c.Times[n-1]
		}
		anim.Animations = append(anim.Animations, Animation{
			ID: id,
			Sources: []Source{
				floatSource(id+"-input", c.Times, 1, Param{"TIME", "float"}),
				floatSource(id+"-output", c.Matrices, 16, Param{"TRANSFORM", "float4x4"}),
				nameSource(id+"-interpolation", interp, "INTERPOLATION"),
			},
			Samplers: []Sampler{{ID: id + "-sampler", Inputs: []Input{
				{Semantic: "INPUT", Source: "#" + id + "-input"},
				{Semantic: "OUTPUT", Source: "#" + id + "-output"},
				{Semantic: "INTERPOLATION", Source: "#" + id + "-interpolation"},
			}}},
			Channels: []Channel{{Source: "#" + id + "-sampler", Target: ID(c.Joint) + "/transform"}},
		})
	}
	clip.Instances = append(clip.Instances, struct {
		URL string `xml:"url,attr"`
	}{URL: "#" + anim.ID})
	return anim, clip
}

// Write writes m as an indented COLLADA document.
func Write(m *Model, w io.Writer) error {
	doc, err := m.Document()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "dae")
	}
	return enc.Flush()
}

// Read decodes a document written by Write.
func Read(r io.Reader) (*Collada, error) {
	doc := &Collada{}
	if err := xml.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "dae")
	}
	return doc, nil
}
