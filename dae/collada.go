package dae

import (
	"encoding/xml"
	"strconv"
	"strings"
)

const (
	Namespace = "http://www.collada.org/2005/11/COLLADASchema"
	Version   = "1.4.1"
)

// Collada is the subset of a COLLADA 1.4.1 document written by this package.
type Collada struct {
	XMLName     xml.Name      `xml:"COLLADA"`
	Xmlns       string        `xml:"xmlns,attr"`
	Version     string        `xml:"version,attr"`
	Asset       Asset         `xml:"asset"`
	Images      []Image       `xml:"library_images>image,omitempty"`
	Effects     []Effect      `xml:"library_effects>effect,omitempty"`
	Materials   []Material    `xml:"library_materials>material,omitempty"`
	Geometries  []Geometry    `xml:"library_geometries>geometry"`
	Controllers []Controller  `xml:"library_controllers>controller,omitempty"`
	Animations  []Animation   `xml:"library_animations>animation,omitempty"`
	Clips       []Clip        `xml:"library_animation_clips>animation_clip,omitempty"`
	Scenes      []VisualScene `xml:"library_visual_scenes>visual_scene"`
	Scene       Scene         `xml:"scene"`
}

type Asset struct {
	Contributor string `xml:"contributor>authoring_tool"`
	Unit        Unit   `xml:"unit"`
	UpAxis      string `xml:"up_axis"`
}

type Unit struct {
	Name  string  `xml:"name,attr"`
	Meter float32 `xml:"meter,attr"`
}

type Image struct {
	ID       string `xml:"id,attr"`
	InitFrom string `xml:"init_from"`
}

type Effect struct {
	ID      string  `xml:"id,attr"`
	Profile Profile `xml:"profile_COMMON"`
}

type Profile struct {
	Params    []NewParam `xml:"newparam"`
	Technique struct {
		SID     string `xml:"sid,attr"`
		Lambert struct {
			Diffuse struct {
				Texture struct {
					Texture  string `xml:"texture,attr"`
					TexCoord string `xml:"texcoord,attr"`
				} `xml:"texture"`
			} `xml:"diffuse"`
		} `xml:"lambert"`
	} `xml:"technique"`
}

type NewParam struct {
	SID     string     `xml:"sid,attr"`
	Surface *Surface   `xml:"surface,omitempty"`
	Sampler *Sampler2D `xml:"sampler2D,omitempty"`
}

type Surface struct {
	Type     string `xml:"type,attr"`
	InitFrom string `xml:"init_from"`
}

type Sampler2D struct {
	Source string `xml:"source"`
}

type Material struct {
	ID     string `xml:"id,attr"`
	Name   string `xml:"name,attr,omitempty"`
	Effect struct {
		URL string `xml:"url,attr"`
	} `xml:"instance_effect"`
}

type Geometry struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr,omitempty"`
	Mesh Mesh   `xml:"mesh"`
}

type Mesh struct {
	Sources   []Source  `xml:"source"`
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

type Triangles struct {
	Count    int     `xml:"count,attr"`
	Material string  `xml:"material,attr,omitempty"`
	Inputs   []Input `xml:"input"`
	P        Ints    `xml:"p"`
}

type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   *int   `xml:"offset,attr"`
	Set      *int   `xml:"set,attr"`
}

// Source is a float or name array with its accessor.
type Source struct {
	ID       string      `xml:"id,attr"`
	Floats   *FloatArray `xml:"float_array,omitempty"`
	Names    *NameArray  `xml:"Name_array,omitempty"`
	Accessor Accessor    `xml:"technique_common>accessor"`
}

type FloatArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Data  Floats `xml:",chardata"`
}

type NameArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Data  Names  `xml:",chardata"`
}

type Accessor struct {
	Source string  `xml:"source,attr"`
	Count  int     `xml:"count,attr"`
	Stride int     `xml:"stride,attr"`
	Params []Param `xml:"param"`
}

type Param struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type Controller struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr,omitempty"`
	Skin Skin   `xml:"skin"`
}

type Skin struct {
	Source          string        `xml:"source,attr"`
	BindShapeMatrix Floats        `xml:"bind_shape_matrix"`
	Sources         []Source      `xml:"source"`
	Joints          []Input       `xml:"joints>input"`
	VertexWeights   VertexWeights `xml:"vertex_weights"`
}

type VertexWeights struct {
	Count  int     `xml:"count,attr"`
	Inputs []Input `xml:"input"`
	VCount Ints    `xml:"vcount"`
	V      Ints    `xml:"v"`
}

type Animation struct {
	ID         string      `xml:"id,attr"`
	Name       string      `xml:"name,attr,omitempty"`
	Animations []Animation `xml:"animation,omitempty"`
	Sources    []Source    `xml:"source,omitempty"`
	Samplers   []Sampler   `xml:"sampler,omitempty"`
	Channels   []Channel   `xml:"channel,omitempty"`
}

type Sampler struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

type Channel struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

type Clip struct {
	ID        string  `xml:"id,attr"`
	Name      string  `xml:"name,attr,omitempty"`
	Start     float32 `xml:"start,attr"`
	End       float32 `xml:"end,attr"`
	Instances []struct {
		URL string `xml:"url,attr"`
	} `xml:"instance_animation"`
}

type VisualScene struct {
	ID    string  `xml:"id,attr"`
	Name  string  `xml:"name,attr,omitempty"`
	Nodes []*Node `xml:"node"`
}

type Node struct {
	ID         string              `xml:"id,attr"`
	SID        string              `xml:"sid,attr,omitempty"`
	Name       string              `xml:"name,attr,omitempty"`
	Type       string              `xml:"type,attr,omitempty"`
	Matrix     *MatrixElement      `xml:"matrix,omitempty"`
	Controller *InstanceController `xml:"instance_controller,omitempty"`
	Children   []*Node             `xml:"node,omitempty"`
}

type MatrixElement struct {
	SID  string `xml:"sid,attr"`
	Data Floats `xml:",chardata"`
}

type InstanceController struct {
	URL       string             `xml:"url,attr"`
	Skeletons []string           `xml:"skeleton"`
	Materials []InstanceMaterial `xml:"bind_material>technique_common>instance_material,omitempty"`
}

type InstanceMaterial struct {
	Symbol string `xml:"symbol,attr"`
	Target string `xml:"target,attr"`
}

type Scene struct {
	VisualScene struct {
		URL string `xml:"url,attr"`
	} `xml:"instance_visual_scene"`
}

// Floats is a whitespace separated float list.
type Floats []float32

func (a Floats) MarshalText() ([]byte, error) {
	var b []byte
	for i, v := range a {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendFloat(b, float64(v), 'g', -1, 32)
	}
	return b, nil
}

func (a *Floats) UnmarshalText(text []byte) error {
	*a = (*a)[:0]
	for _, s := range strings.Fields(string(text)) {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		*a = append(*a, float32(v))
	}
	return nil
}

// Ints is a whitespace separated integer list.
type Ints []int

func (a Ints) MarshalText() ([]byte, error) {
	var b []byte
	for i, v := range a {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendInt(b, int64(v), 10)
	}
	return b, nil
}

func (a *Ints) UnmarshalText(text []byte) error {
	*a = (*a)[:0]
	for _, s := range strings.Fields(string(text)) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*a = append(*a, v)
	}
	return nil
}

// Names is a whitespace separated list of identifiers.
type Names []string

func (a Names) MarshalText() ([]byte, error) {
	return []byte(strings.Join(a, " ")), nil
}

func (a *Names) UnmarshalText(text []byte) error {
	*a = strings.Fields(string(text))
	return nil
}
