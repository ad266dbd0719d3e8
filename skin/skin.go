// Package skin poses mesh vertices with up to four weighted bone influences.
package skin

import (
	"sync"

	"github.com/binzume/lolmodelconv/geom"
	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/binzume/lolmodelconv/skeleton"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Vertex is a mesh vertex in model space. Bones holds raw influence
// indices as stored in the mesh.
type Vertex struct {
	Position  geom.Vector3
	Normal    geom.Vector3
	TexCoords geom.Vector2
	Bones     [4]uint8
	Weights   [4]float32
}

func FromSkn(v *lol.SknVertex) Vertex {
	return Vertex{
		Position:  *geom.NewVector3FromArray(v.Position),
		Normal:    *geom.NewVector3FromArray(v.Normal),
		TexCoords: geom.Vector2{X: v.TexCoords[0], Y: v.TexCoords[1]},
		Bones:     v.BoneIndex,
		Weights:   v.Weights,
	}
}

func FromSknFile(f *lol.SknFile) []Vertex {
	vs := make([]Vertex, len(f.Vertices))
	for i, v := range f.Vertices {
		vs[i] = FromSkn(v)
	}
	return vs
}

type Mode int

const (
	// Lenient substitutes the documented fallback and logs a warning.
	Lenient Mode = iota
	// Strict fails on the first anomaly.
	Strict
)

// Engine skins vertices of one mesh against one bind skeleton. The
// influence remapping is computed once when the engine is created. An
// Engine may be shared by goroutines posing different frames.
type Engine struct {
	Mode   Mode
	Logger *log.Logger

	bind   *skeleton.Skeleton
	remap  *skeleton.RemapTable
	mu     sync.Mutex
	warned [256]bool
}

func NewEngine(bind *skeleton.Skeleton, mode Mode, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		Mode:   mode,
		Logger: logger,
		bind:   bind,
		remap:  bind.NewRemapTable(),
	}
}

// SkinMatrix returns posed.World * inverse(bind.World) for bone.
func (e *Engine) SkinMatrix(bone int, posed *skeleton.Skeleton) *geom.Matrix4 {
	return posed.Bones[bone].World().Mul(e.bind.Bones[bone].WorldInverse())
}

// Bone resolves a raw influence index of vertex vi. Anomalies are reported
// once per raw index in lenient mode.
func (e *Engine) Bone(vi, slot int, raw uint8) (int, error) {
	bone, err := e.remap.Bone(raw)
	if err == nil {
		return bone, nil
	}
	ae := &lolerr.AnomalyError{Kind: lolerr.ErrAnomalousIndex, Vertex: vi, Influence: slot, Raw: int(raw), Fallback: "bone 0"}
	if e.Mode == Strict {
		return 0, ae
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.warned[raw] {
		e.warned[raw] = true
		e.Logger.Warn("anomalous bone index", "vertex", vi, "influence", slot, "raw", raw, "fallback", ae.Fallback)
	}
	return bone, nil
}

// PoseVertex moves v from the bind pose to posed. vi is the vertex index
// used in errors.
func (e *Engine) PoseVertex(vi int, v *Vertex, posed *skeleton.Skeleton) (Vertex, error) {
	if len(posed.Bones) != len(e.bind.Bones) {
		return Vertex{}, errors.Wrapf(lolerr.ErrInconsistentTopology, "posed skeleton has %d bones, bind has %d", len(posed.Bones), len(e.bind.Bones))
	}
	var pos, normal geom.Vector3
	var total float32
	for i, w := range v.Weights {
		bone, err := e.Bone(vi, i, v.Bones[i])
		if err != nil {
			return Vertex{}, err
		}
		if w == 0 {
			continue
		}
		m := e.SkinMatrix(bone, posed)
		pos = *pos.Add(m.ApplyTo(&v.Position).Scale(w))
		normal = *normal.Add(m.ApplyToDirection(&v.Normal).Scale(w))
		total += w
	}

	if total == 0 {
		ae := &lolerr.AnomalyError{Kind: lolerr.ErrDegenerateInfluence, Vertex: vi, Influence: -1, Fallback: "bind pose"}
		if e.Mode == Strict {
			return Vertex{}, ae
		}
		e.Logger.Warn("zero total weight", "vertex", vi, "fallback", ae.Fallback)
		return *v, nil
	}
	out := *v
	out.Position = *pos.Scale(1 / total)
	out.Normal = *normal.Scale(1 / total)
	if !out.Position.IsFinite() || !out.Normal.IsFinite() {
		ae := &lolerr.AnomalyError{Kind: lolerr.ErrDegenerateInfluence, Vertex: vi, Influence: -1, Fallback: "bind pose"}
		if e.Mode == Strict {
			return Vertex{}, ae
		}
		e.Logger.Warn("non-finite skinned vertex", "vertex", vi, "fallback", ae.Fallback)
		return *v, nil
	}
	return out, nil
}

// PoseVertices poses every vertex. In lenient mode anomalies never fail.
func (e *Engine) PoseVertices(vs []Vertex, posed *skeleton.Skeleton) ([]Vertex, error) {
	out := make([]Vertex, len(vs))
	for i := range vs {
		v, err := e.PoseVertex(i, &vs[i], posed)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
