package md2

import (
	"fmt"
	"math"
	"strings"

	"github.com/binzume/lolmodelconv/geom"
)

// Sample is an uncompressed vertex of one frame.
type Sample struct {
	Position geom.Vector3
	Normal   geom.Vector3
}

// QuantizeFrame compresses samples into a frame. The range of each axis is
// symmetric around zero and sized by the largest magnitude on that axis,
// so scale = 2*max|v|/256 and translate = -max|v|. An axis where every
// sample is zero gets scale 0 and quantizes to 0.
func QuantizeFrame(name string, samples []Sample) *Frame {
	var m [3]float32
	for i := range samples {
		p := &samples[i].Position
		m[0] = maxAbs(m[0], p.X)
		m[1] = maxAbs(m[1], p.Y)
		m[2] = maxAbs(m[2], p.Z)
	}

	fr := &Frame{
		Scale:     geom.Vector3{X: 2 * m[0] / 256, Y: 2 * m[1] / 256, Z: 2 * m[2] / 256},
		Translate: geom.Vector3{X: -m[0], Y: -m[1], Z: -m[2]},
		Vertices:  make([]Vertex, len(samples)),
	}
	fr.SetName(name)
	for i := range samples {
		p := &samples[i].Position
		fr.Vertices[i] = Vertex{
			V: [3]uint8{
				quantize(p.X, fr.Translate.X, fr.Scale.X),
				quantize(p.Y, fr.Translate.Y, fr.Scale.Y),
				quantize(p.Z, fr.Translate.Z, fr.Scale.Z),
			},
			NormalIndex: NearestNormal(&samples[i].Normal),
		}
	}
	return fr
}

func maxAbs(m, v float32) float32 {
	if a := geom.Abs(v); a > m {
		return a
	}
	return m
}

// quantize clamps to [0,255]; v == max|v| lands on 256 otherwise.
func quantize(v, translate, scale float32) uint8 {
	if scale == 0 {
		return 0
	}
	q := math.Floor(float64((v - translate) / scale))
	if !(q > 0) {
		return 0
	}
	if q > 255 {
		return 255
	}
	return uint8(q)
}

// NearestNormal returns the index of the table normal with the largest dot
// product with n. Ties go to the lowest index.
func NearestNormal(n *geom.Vector3) uint8 {
	best := 0
	bestDot := float32(math.Inf(-1))
	for i := range Normals {
		if d := Normals[i].Dot(n); d > bestDot {
			best, bestDot = i, d
		}
	}
	return uint8(best)
}

// QuantizeTriangles turns a triangle list into MD2 triangles. Texture
// coordinates share the position indices. A trailing partial triangle is
// dropped.
func QuantizeTriangles(indices []uint16) []Triangle {
	tris := make([]Triangle, len(indices)/3)
	for i := range tris {
		a, b, c := indices[3*i], indices[3*i+1], indices[3*i+2]
		tris[i] = Triangle{Vertex: [3]uint16{a, b, c}, TexCoord: [3]uint16{a, b, c}}
	}
	return tris
}

var digitEscaper = strings.NewReplacer(
	"0", "Z", "1", "A", "2", "B", "3", "C", "4", "D",
	"5", "E", "6", "F", "7", "G", "8", "H", "9", "I",
)

// EscapeFrameName replaces digits so that players can split the trailing
// frame number from the animation name.
func EscapeFrameName(name string) string {
	return digitEscaper.Replace(name)
}

// FrameName returns "<escaped prefix><NNN>" for the 1-based frame number n.
// The prefix is shortened to keep the name and its NUL within 16 bytes.
func FrameName(prefix string, n int) string {
	num := fmt.Sprintf("%03d", n)
	prefix = EscapeFrameName(prefix)
	limit := FrameNameSize - 1 - len(num)
	if limit < 0 {
		limit = 0
	}
	if len(prefix) > limit {
		prefix = prefix[:limit]
	}
	return prefix + num
}
