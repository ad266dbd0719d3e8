package converter

import (
	"path/filepath"

	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

type LOLToGLTF struct {
	*Config
	*gltf.Document
	logger   *log.Logger
	textures *textureCache
}

// NewLOLToGLTFConverter returns a converter writing into a new document.
// Bone i becomes node i; the mesh node follows the bones.
func NewLOLToGLTFConverter(conf *Config, textureDir string, logger *log.Logger) *LOLToGLTF {
	if conf == nil {
		conf = DefaultConfig()
	}
	if conf.Scale == 0 {
		conf.Scale = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LOLToGLTF{
		Config:   conf,
		Document: gltf.NewDocument(),
		logger:   logger,
		textures: newTextureCache(textureDir),
	}
}

func (c *LOLToGLTF) addMatrices(mat [][4][4]float32) uint32 {
	a := make([][4]float32, len(mat)*4)
	for i, m := range mat {
		a[i*4+0] = m[0]
		a[i*4+1] = m[1]
		a[i*4+2] = m[2]
		a[i*4+3] = m[3]
	}
	acc := modeler.WriteTangent(c.Document, a)
	c.Accessors[acc].Type = gltf.AccessorMat4
	c.Accessors[acc].Count /= 4
	c.BufferViews[*c.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

// columns splits a column-major matrix into the four glTF columns.
func columns(m *geom.Matrix4) [4][4]float32 {
	var c [4][4]float32
	for i := range c {
		copy(c[i][:], m[i*4:i*4+4])
	}
	return c
}

func (c *LOLToGLTF) scaled(v *geom.Vector3) [3]float32 {
	return [3]float32{v.X * c.Scale, v.Y * c.Scale, v.Z * c.Scale}
}

func (c *LOLToGLTF) addBoneNodes(p *pipeline) []uint32 {
	joints := make([]uint32, len(p.bind.Bones))
	for i, b := range p.bind.Bones {
		joints[i] = uint32(len(c.Nodes))
		c.Nodes = append(c.Nodes, &gltf.Node{
			Name:        b.Name,
			Translation: c.scaled(b.Position),
			Rotation:    [4]float32{b.Orientation.X, b.Orientation.Y, b.Orientation.Z, b.Orientation.W},
		})
	}
	for i, b := range p.bind.Bones {
		if b.IsRoot() {
			c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, joints[i])
			continue
		}
		parent := c.Nodes[joints[b.Parent()]]
		parent.Children = append(parent.Children, joints[i])
	}
	return joints
}

// addSkin writes inverse bind matrices for the scaled bind pose.
func (c *LOLToGLTF) addSkin(p *pipeline, joints []uint32) uint32 {
	invmats := make([][4][4]float32, len(joints))
	for i, b := range p.bind.Bones {
		w := b.World().Clone()
		w[12] *= c.Scale
		w[13] *= c.Scale
		w[14] *= c.Scale
		invmats[i] = columns(w.Inverse())
	}
	c.Skins = append(c.Skins, &gltf.Skin{
		Name:                "skeleton",
		Joints:              joints,
		InverseBindMatrices: gltf.Index(c.addMatrices(invmats)),
	})
	return uint32(len(c.Skins) - 1)
}

func (c *LOLToGLTF) addMesh(m *Model, p *pipeline) (*gltf.Mesh, error) {
	n := len(p.vertices)
	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	texcoords := make([][2]float32, n)
	joints := make([][4]uint16, n)
	weights := make([][4]float32, n)
	for vi := range p.vertices {
		v := &p.vertices[vi]
		positions[vi] = c.scaled(&v.Position)
		normal := v.Normal
		normal.Normalize().ToArray(normals[vi][:])
		texcoords[vi] = [2]float32{v.TexCoords.X, v.TexCoords.Y}

		var total float32
		for k, raw := range v.Bones {
			bone, err := p.engine.Bone(vi, k, raw)
			if err != nil {
				return nil, err
			}
			joints[vi][k] = uint16(bone)
			weights[vi][k] = v.Weights[k]
			total += v.Weights[k]
		}
		if total > 0 {
			for k := range weights[vi] {
				weights[vi][k] /= total
			}
		} else {
			weights[vi] = [4]float32{1, 0, 0, 0}
		}
	}

	indices := make([]uint32, len(m.Mesh.Indices))
	for i, idx := range m.Mesh.Indices {
		if int(idx) >= n {
			return nil, errors.Errorf("index %d out of range (%d vertices)", idx, n)
		}
		indices[i] = uint32(idx)
	}

	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(c.Document, positions),
		"NORMAL":     modeler.WriteNormal(c.Document, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(c.Document, texcoords),
		"JOINTS_0":   modeler.WriteJoints(c.Document, joints),
		"WEIGHTS_0":  modeler.WriteWeights(c.Document, weights),
	}
	indicesAcc := modeler.WriteIndices(c.Document, indices)

	prim := &gltf.Primitive{
		Indices:    gltf.Index(indicesAcc),
		Attributes: attributes,
	}
	mat, err := c.addMaterial(m.Name)
	if err != nil {
		c.logger.Warn("texture read error", "texture", c.Texture, "err", err)
	}
	prim.Material = gltf.Index(mat)
	return &gltf.Mesh{Name: m.Name, Primitives: []*gltf.Primitive{prim}}, nil
}

func (c *LOLToGLTF) addTexture(texture string) (uint32, error) {
	r, mimeType, err := c.textures.encodeTexture(texture, c.SkinWidth, c.SkinHeight)
	if err != nil {
		return 0, err
	}
	img, err := modeler.WriteImage(c.Document, filepath.Base(texture), mimeType, r)
	if err != nil {
		return 0, err
	}
	c.Buffers[0].ByteLength = uint32(len(c.Buffers[0].Data)) // avoid AddImage bug
	if len(c.Samplers) == 0 {
		c.Samplers = []*gltf.Sampler{{}}
	}
	c.Textures = append(c.Textures, &gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(img)})
	return uint32(len(c.Textures) - 1), nil
}

// addMaterial adds the single material of the model, textured when a
// texture is configured.
func (c *LOLToGLTF) addMaterial(name string) (uint32, error) {
	var rf float32 = 0.8
	var mf float32 = 0
	mm := &gltf.Material{
		Name: name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 1, 1, 1},
			RoughnessFactor: &rf,
			MetallicFactor:  &mf,
		},
	}
	c.Materials = append(c.Materials, mm)
	mat := uint32(len(c.Materials) - 1)
	if c.Texture == "" {
		return mat, nil
	}
	tex, err := c.addTexture(c.Texture)
	if err != nil {
		return mat, err
	}
	mm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: tex}
	return mat, nil
}

// addAnimation writes one rotation and one translation sampler per bone.
// All samplers share the key times.
func (c *LOLToGLTF) addAnimation(a *Animation, joints []uint32) {
	anm := a.File
	fps := anm.FPS
	if fps == 0 {
		fps = defaultFPS
	}
	n := numFrames(anm, c.MaxFrames)
	if n == 0 {
		return
	}
	keys := make([]float32, n)
	for i := range keys {
		keys[i] = float32(i) / float32(fps)
	}
	keysAcc := modeler.WriteAccessor(c.Document, gltf.TargetArrayBuffer, keys)

	ga := &gltf.Animation{Name: a.Name}
	for bi, bone := range anm.Bones {
		rotations := make([][4]float32, n)
		translations := make([][3]float32, n)
		for i := 0; i < n; i++ {
			fr := &bone.Frames[i]
			q := fr.Quaternion()
			rotations[i] = [4]float32{q.X, q.Y, q.Z, q.W}
			translations[i] = c.scaled(fr.Vector())
		}
		c.addChannel(ga, keysAcc, modeler.WriteTangent(c.Document, rotations), joints[bi], gltf.TRSRotation)
		c.addChannel(ga, keysAcc, modeler.WritePosition(c.Document, translations), joints[bi], gltf.TRSTranslation)
	}
	c.Document.Animations = append(c.Document.Animations, ga)
}

func (c *LOLToGLTF) addChannel(a *gltf.Animation, keysAcc, samplesAcc, node uint32, path gltf.TRSProperty) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(keysAcc),
		Output:        gltf.Index(samplesAcc),
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

// Convert builds a skinned glTF document with one animation per ANM file.
func (c *LOLToGLTF) Convert(m *Model) (*gltf.Document, error) {
	p, err := newPipeline(m, c.Config, c.logger)
	if err != nil {
		return nil, err
	}
	for _, a := range m.Animations {
		if len(a.File.Bones) != len(p.bind.Bones) {
			return nil, errors.Wrapf(lolerr.ErrInconsistentTopology, "%s: animation has %d bones, skeleton has %d", a.Name, len(a.File.Bones), len(p.bind.Bones))
		}
	}

	joints := c.addBoneNodes(p)
	mesh, err := c.addMesh(m, p)
	if err != nil {
		return nil, err
	}
	c.Meshes = append(c.Meshes, mesh)
	node := &gltf.Node{
		Name: m.Name,
		Mesh: gltf.Index(uint32(len(c.Meshes) - 1)),
		Skin: gltf.Index(c.addSkin(p, joints)),
	}
	c.Nodes = append(c.Nodes, node)
	c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, uint32(len(c.Nodes)-1))

	for _, a := range m.Animations {
		c.addAnimation(a, joints)
	}
	return c.Document, nil
}
