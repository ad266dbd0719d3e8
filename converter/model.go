// Package converter turns League of Legends models into MD2, COLLADA and
// glTF files.
package converter

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/lolmodelconv/lol"
	"github.com/binzume/lolmodelconv/skeleton"
	"github.com/binzume/lolmodelconv/skin"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Model is a skeleton, its skinned mesh and the animations to export.
type Model struct {
	Name       string
	Skeleton   *lol.SklFile
	Mesh       *lol.SknFile
	Animations []*Animation
}

type Animation struct {
	Name string
	File *lol.AnmFile
}

func LoadSkl(path string) (*lol.SklFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	skl, err := lol.ParseSkl(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	return skl, nil
}

func LoadSkn(path string) (*lol.SknFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	skn, err := lol.ParseSkn(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	return skn, nil
}

func LoadAnm(path string) (*lol.AnmFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	anm, err := lol.ParseAnm(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	return anm, nil
}

// LoadModel reads a skeleton and a mesh. The model is named after the mesh.
func LoadModel(sklPath, sknPath string) (*Model, error) {
	skl, err := LoadSkl(sklPath)
	if err != nil {
		return nil, err
	}
	skn, err := LoadSkn(sknPath)
	if err != nil {
		return nil, err
	}
	return &Model{Name: BaseName(sknPath), Skeleton: skl, Mesh: skn}, nil
}

// LoadAnimations reads and appends animations in order.
func (m *Model) LoadAnimations(srcs []AnimationSource) error {
	for _, src := range srcs {
		anm, err := LoadAnm(src.Path)
		if err != nil {
			return err
		}
		if err := anm.Validate(); err != nil {
			return errors.Wrap(err, src.Name)
		}
		m.Animations = append(m.Animations, &Animation{Name: src.Name, File: anm})
	}
	return nil
}

// BaseName returns the file name without directory and extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pipeline holds what every exporter derives from a Model: the bind
// skeleton, the canonical vertices and one skinning engine.
type pipeline struct {
	bind     *skeleton.Skeleton
	vertices []skin.Vertex
	engine   *skin.Engine
	logger   *log.Logger
}

func newPipeline(m *Model, conf *Config, logger *log.Logger) (*pipeline, error) {
	if logger == nil {
		logger = log.Default()
	}
	bind, err := skeleton.FromSkl(m.Skeleton)
	if err != nil {
		return nil, err
	}
	mode := skin.Lenient
	if conf.Strict {
		mode = skin.Strict
	}
	for _, a := range m.Animations {
		if n := unmatchedBones(bind, a.File); n > 0 {
			logger.Warn("animation bones do not match skeleton names", "animation", a.Name, "bones", n)
		}
	}
	return &pipeline{
		bind:     bind,
		vertices: skin.FromSknFile(m.Mesh),
		engine:   skin.NewEngine(bind, mode, logger),
		logger:   logger,
	}, nil
}

// unmatchedBones counts animation bones whose name maps to a different
// skeleton bone, or none. Bones are matched by index when posing.
func unmatchedBones(bind *skeleton.Skeleton, anm *lol.AnmFile) int {
	n := 0
	for i, b := range anm.Bones {
		if j, ok := bind.BoneIndex(b.BoneName()); !ok || j != i {
			n++
		}
	}
	return n
}

// numFrames applies the max_frames limit.
func numFrames(anm *lol.AnmFile, limit int) int {
	n := anm.NumFrames()
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
