package converter

import (
	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/binzume/lolmodelconv/md2"
	"github.com/binzume/lolmodelconv/skeleton"
	"github.com/binzume/lolmodelconv/skin"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// MarkerNormal is the normal of every joint marker vertex, entry 0 of the
// MD2 normal table.
var MarkerNormal = geom.Vector3{X: -0.525731, Y: 0, Z: 0.850651}

type LOLToMD2 struct {
	*Config
	logger   *log.Logger
	textures *textureCache
}

// NewLOLToMD2Converter returns a converter. textureDir is the directory
// relative texture paths are resolved against.
func NewLOLToMD2Converter(conf *Config, textureDir string, logger *log.Logger) *LOLToMD2 {
	if conf == nil {
		conf = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LOLToMD2{Config: conf, logger: logger, textures: newTextureCache(textureDir)}
}

func samples(vs []skin.Vertex) []md2.Sample {
	s := make([]md2.Sample, len(vs))
	for i := range vs {
		s[i] = md2.Sample{Position: vs[i].Position, Normal: vs[i].Normal}
	}
	return s
}

func (c *LOLToMD2) newFile() *md2.File {
	w, h := c.textures.skinSize(c.Config)
	return &md2.File{SkinWidth: int32(w), SkinHeight: int32(h)}
}

// addFrames appends the bind pose frame and every animation frame.
func (c *LOLToMD2) addFrames(f *md2.File, m *Model, p *pipeline, engine *skin.Engine, vertices []skin.Vertex, prefix string) error {
	f.Frames = append(f.Frames, md2.QuantizeFrame(md2.FrameName(prefix+"static", 1), samples(vertices)))
	for _, a := range m.Animations {
		n := numFrames(a.File, c.MaxFrames)
		c.logger.Debug("posing animation", "name", a.Name, "frames", n)
		frames, err := p.poseFrames(engine, a.File, vertices, n, c.Workers)
		if err != nil {
			return errors.Wrap(err, a.Name)
		}
		for i, vs := range frames {
			f.Frames = append(f.Frames, md2.QuantizeFrame(md2.FrameName(prefix+a.Name, i+1), samples(vs)))
		}
	}
	return nil
}

// Convert exports the skinned mesh. Frame "static001" is the bind pose,
// followed by the frames of each animation. Skins are left to the player.
func (c *LOLToMD2) Convert(m *Model) (*md2.File, error) {
	p, err := newPipeline(m, c.Config, c.logger)
	if err != nil {
		return nil, err
	}
	f := c.newFile()
	f.TexCoords = make([]md2.TexCoord, len(p.vertices))
	for i, v := range p.vertices {
		f.TexCoords[i] = md2.TexCoord{
			S: int16(float32(f.SkinWidth) * v.TexCoords.X),
			T: int16(float32(f.SkinHeight) * v.TexCoords.Y),
		}
	}
	f.Triangles = md2.QuantizeTriangles(m.Mesh.Indices)
	if err := c.addFrames(f, m, p, p.engine, p.vertices, ""); err != nil {
		return nil, err
	}
	return f, nil
}

// ConvertSkeleton exports one tetrahedron per listed bone, posed like the
// mesh. Frames are named "skl_static001" and "skl_<animation><NNN>".
func (c *LOLToMD2) ConvertSkeleton(m *Model) (*md2.File, error) {
	p, err := newPipeline(m, c.Config, c.logger)
	if err != nil {
		return nil, err
	}
	markers, err := JointMarkers(p.bind, c.JointOffset)
	if err != nil {
		return nil, err
	}
	// marker vertices reference bones directly
	mode := skin.Lenient
	if c.Strict {
		mode = skin.Strict
	}
	engine := skin.NewEngine(p.bind.WithoutBoneIDs(), mode, c.logger)

	f := c.newFile()
	f.TexCoords = make([]md2.TexCoord, len(markers))
	f.Triangles = MarkerTriangles(len(markers) / 4)
	if err := c.addFrames(f, m, p, engine, markers, "skl_"); err != nil {
		return nil, err
	}
	return f, nil
}

func markerVertex(pos *geom.Vector3, bone int) skin.Vertex {
	return skin.Vertex{
		Position: *pos,
		Normal:   MarkerNormal,
		Bones:    [4]uint8{uint8(bone)},
		Weights:  [4]float32{1},
	}
}

// JointMarkers returns 4 vertices per listed bone: the bone's bind
// position, its parent's, and two points offset from the parent by
// (o,-o,o) and (-o,o,-o). A root repeats its own position 4 times.
func JointMarkers(bind *skeleton.Skeleton, offset float32) ([]skin.Vertex, error) {
	var vs []skin.Vertex
	for _, i := range bind.ListedBones() {
		b := bind.Bones[i]
		if i > 255 || b.Parent() > 255 {
			return nil, errors.Wrapf(lolerr.ErrInconsistentTopology, "bone %d (%q): marker bone index exceeds 255", i, b.Name)
		}
		pos := b.World().Translation()
		if b.IsRoot() {
			v := markerVertex(pos, i)
			vs = append(vs, v, v, v, v)
			continue
		}
		parent := b.Parent()
		pp := bind.Bones[parent].World().Translation()
		vs = append(vs,
			markerVertex(pos, i),
			markerVertex(pp, parent),
			markerVertex(pp.Add(geom.NewVector3(offset, -offset, offset)), parent),
			markerVertex(pp.Add(geom.NewVector3(-offset, offset, -offset)), parent),
		)
	}
	return vs, nil
}

// MarkerTriangles returns the 4 faces of each of n tetrahedra.
func MarkerTriangles(n int) []md2.Triangle {
	faces := [4][3]uint16{{0, 1, 2}, {0, 1, 3}, {0, 3, 2}, {3, 1, 2}}
	tris := make([]md2.Triangle, 0, 4*n)
	for i := 0; i < n; i++ {
		base := uint16(4 * i)
		for _, face := range faces {
			v := [3]uint16{base + face[0], base + face[1], base + face[2]}
			tris = append(tris, md2.Triangle{Vertex: v, TexCoord: v})
		}
	}
	return tris
}
