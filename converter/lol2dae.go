package converter

import (
	"path/filepath"

	"github.com/binzume/lolmodelconv/dae"
	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/skeleton"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

const defaultFPS = 30

type LOLToDAE struct {
	*Config
	logger *log.Logger
}

func NewLOLToDAEConverter(conf *Config, logger *log.Logger) *LOLToDAE {
	if conf == nil {
		conf = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LOLToDAE{Config: conf, logger: logger}
}

func rowMajor(m *geom.Matrix4) [16]float32 {
	var a [16]float32
	m.Transposed().ToArray(a[:])
	return a
}

func daeJoint(n *skeleton.Node) *dae.Joint {
	j := &dae.Joint{Name: n.Bone.Name, Matrix: rowMajor(n.Bone.Local())}
	for _, c := range n.Children {
		j.Children = append(j.Children, daeJoint(c))
	}
	return j
}

// Convert builds the COLLADA arrays of the bind pose mesh, the joint
// hierarchy and one matrix track per joint and animation.
func (c *LOLToDAE) Convert(m *Model) (*dae.Model, error) {
	p, err := newPipeline(m, c.Config, c.logger)
	if err != nil {
		return nil, err
	}
	out := &dae.Model{Name: m.Name, BindShape: dae.Identity}
	if c.Texture != "" {
		out.Texture = filepath.Base(c.Texture)
	}

	order, err := p.bind.JointOrder()
	if err != nil {
		return nil, err
	}
	jointOf := make([]int, len(p.bind.Bones))
	for j, bone := range order {
		b := p.bind.Bones[bone]
		jointOf[bone] = j
		out.Joints = append(out.Joints, b.Name)
		inv := rowMajor(b.WorldInverse())
		out.InverseBinds = append(out.InverseBinds, inv[:]...)
	}

	for vi := range p.vertices {
		v := &p.vertices[vi]
		out.Positions = append(out.Positions, v.Position.X, v.Position.Y, v.Position.Z)
		out.Normals = append(out.Normals, v.Normal.X, v.Normal.Y, v.Normal.Z)
		out.TexCoords = append(out.TexCoords, v.TexCoords.X, -v.TexCoords.Y)
		for k, raw := range v.Bones {
			bone, err := p.engine.Bone(vi, k, raw)
			if err != nil {
				return nil, err
			}
			out.JointRefs = append(out.JointRefs, jointOf[bone])
			out.Weights = append(out.Weights, v.Weights[k])
		}
	}
	for _, i := range m.Mesh.Indices {
		out.Triangles = append(out.Triangles, int(i))
	}

	trees, err := p.bind.Trees()
	if err != nil {
		return nil, err
	}
	names, err := p.bind.NameArrays()
	if err != nil {
		return nil, err
	}
	for root, joints := range names {
		c.logger.Debug("joint tree", "root", root, "joints", joints)
	}
	for _, t := range trees {
		out.Skeleton = append(out.Skeleton, daeJoint(t))
	}

	for _, a := range m.Animations {
		motion, err := c.motion(p, a, order)
		if err != nil {
			return nil, errors.Wrap(err, a.Name)
		}
		out.Motions = append(out.Motions, motion)
	}
	return out, nil
}

// motion samples the local matrix of every joint at 1/fps intervals.
func (c *LOLToDAE) motion(p *pipeline, a *Animation, order []int) (*dae.Motion, error) {
	fps := a.File.FPS
	if fps == 0 {
		fps = defaultFPS
	}
	n := numFrames(a.File, c.MaxFrames)
	tracks := make([]*dae.Track, len(order))
	for j, bone := range order {
		tracks[j] = &dae.Track{Joint: p.bind.Bones[bone].Name}
	}
	for frame := 0; frame < n; frame++ {
		posed, err := p.bind.Pose(a.File, frame)
		if err != nil {
			return nil, err
		}
		t := float32(frame) / float32(fps)
		for j, bone := range order {
			local := rowMajor(posed.Bones[bone].Local())
			tracks[j].Times = append(tracks[j].Times, t)
			tracks[j].Matrices = append(tracks[j].Matrices, local[:]...)
		}
	}
	return &dae.Motion{Name: a.Name, Tracks: tracks}, nil
}
