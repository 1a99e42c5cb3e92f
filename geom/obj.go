package geom

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gorustyt/gonavvoxel/common"
	"github.com/gorustyt/gonavvoxel/recast"
)

// maxFaceVerts caps the vertices read from a single face line.
const maxFaceVerts = 32

// InputGeom is a triangle soup loaded from a Wavefront OBJ file.
type InputGeom struct {
	FileName string
	Scale    float32
	Verts    []float32 // (x, y, z) per vertex
	Tris     []int32   // three vertex indices per triangle
	Normals  []float32 // unit face normal per triangle
	Bmin     [3]float32
	Bmax     [3]float32
}

func (g *InputGeom) VertCount() int { return len(g.Verts) / 3 }
func (g *InputGeom) TriCount() int  { return len(g.Tris) / 3 }

// LoadObj reads the OBJ file at p.
func LoadObj(p string) (*InputGeom, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("load obj: %w", err)
	}
	defer f.Close()
	g, err := ParseObj(f, 1)
	if err != nil {
		return nil, fmt.Errorf("load obj %s: %w", p, err)
	}
	g.FileName = path.Base(p)
	return g, nil
}

// ParseObj reads vertices and faces, fan-triangulating polygons. Texture,
// normal and group records are ignored. Faces referencing missing vertices
// are dropped.
func ParseObj(r io.Reader, scale float32) (*InputGeom, error) {
	g := &InputGeom{Scale: scale}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		row := strings.TrimSpace(sc.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		fields := strings.Fields(row)
		var err error
		switch fields[0] {
		case "v":
			err = g.parseVertex(fields[1:])
		case "f":
			err = g.parseFace(fields[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if g.VertCount() == 0 {
		return nil, fmt.Errorf("%w: no vertices", recast.ErrInvalidParam)
	}
	g.calcNormals()
	g.Bmin, g.Bmax = recast.RcCalcBounds(g.Verts)
	return g, nil
}

func (g *InputGeom) parseVertex(ss []string) error {
	if len(ss) < 3 {
		return fmt.Errorf("vertex needs 3 coordinates, got %d", len(ss))
	}
	var v [3]float32
	for i := range v {
		f, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return fmt.Errorf("vertex coordinate %q: %w", ss[i], err)
		}
		v[i] = float32(f) * g.Scale
	}
	if !common.Visfinite(common.Vec3(v)) {
		return fmt.Errorf("vertex %v is not finite", v)
	}
	g.Verts = append(g.Verts, v[0], v[1], v[2])
	return nil
}

func (g *InputGeom) parseFace(ss []string) error {
	nv := g.VertCount()
	data := make([]int, 0, min(len(ss), maxFaceVerts))
	for _, s := range ss {
		if len(data) == maxFaceVerts {
			break
		}
		idx := s
		if slash := strings.IndexByte(s, '/'); slash >= 0 {
			idx = s[:slash]
		}
		vi, err := strconv.Atoi(idx)
		if err != nil {
			return fmt.Errorf("face index %q: %w", s, err)
		}
		if vi < 0 {
			vi += nv
		} else {
			vi--
		}
		data = append(data, vi)
	}
	for i := 2; i < len(data); i++ {
		a, b, c := data[0], data[i-1], data[i]
		if a < 0 || a >= nv || b < 0 || b >= nv || c < 0 || c >= nv {
			continue
		}
		g.Tris = append(g.Tris, int32(a), int32(b), int32(c))
	}
	return nil
}

func (g *InputGeom) calcNormals() {
	g.Normals = make([]float32, len(g.Tris))
	for i := 0; i < len(g.Tris); i += 3 {
		v0 := common.GetVec3(g.Verts, g.Tris[i])
		v1 := common.GetVec3(g.Verts, g.Tris[i+1])
		v2 := common.GetVec3(g.Verts, g.Tris[i+2])
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		copy(g.Normals[i:i+3], n[:])
	}
}
