package geom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorustyt/gonavvoxel/recast"
)

const planeObj = `# a walkable plane
o plane
v 0 0 0
v 10 0 0
v 10 0 10
v 0 0 10
vn 0 1 0
f 1 3 2
f 1/1/1 4/2/1 3/3/1
`

func TestParseObj(t *testing.T) {
	g, err := ParseObj(strings.NewReader(planeObj), 1)
	require.NoError(t, err)

	assert.Equal(t, 4, g.VertCount())
	assert.Equal(t, 2, g.TriCount())
	assert.Equal(t, []int32{0, 2, 1, 0, 3, 2}, g.Tris)
	assert.Equal(t, [3]float32{0, 0, 0}, g.Bmin)
	assert.Equal(t, [3]float32{10, 0, 10}, g.Bmax)

	require.Len(t, g.Normals, 6)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 0, g.Normals[i*3], 1e-6)
		assert.InDelta(t, 1, g.Normals[i*3+1], 1e-6)
		assert.InDelta(t, 0, g.Normals[i*3+2], 1e-6)
	}
}

func TestParseObjFanAndNegativeIndices(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 1 0 1
v 0 0 1
f -4 -1 -2 -3
f 1 2 9
`
	g, err := ParseObj(strings.NewReader(src), 1)
	require.NoError(t, err)
	// The quad fans into two triangles; the face with a missing vertex is dropped.
	assert.Equal(t, []int32{0, 3, 2, 0, 2, 1}, g.Tris)
}

func TestParseObjScale(t *testing.T) {
	g, err := ParseObj(strings.NewReader(planeObj), 0.5)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), g.Scale)
	assert.Equal(t, [3]float32{5, 0, 5}, g.Bmax)
}

func TestParseObjErrors(t *testing.T) {
	_, err := ParseObj(strings.NewReader("v 1 2\n"), 1)
	assert.ErrorContains(t, err, "line 1")

	_, err = ParseObj(strings.NewReader("v 0 0 0\nv 1 x 0\n"), 1)
	assert.ErrorContains(t, err, "line 2")

	_, err = ParseObj(strings.NewReader("v 0 NaN 0\n"), 1)
	assert.ErrorContains(t, err, "not finite")

	_, err = ParseObj(strings.NewReader("v 0 0 0\nf 1 a 1\n"), 1)
	assert.ErrorContains(t, err, "face index")

	_, err = ParseObj(strings.NewReader("# nothing here\n"), 1)
	assert.ErrorIs(t, err, recast.ErrInvalidParam)
}

func TestLoadObj(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plane.obj")
	require.NoError(t, os.WriteFile(p, []byte(planeObj), 0o644))

	g, err := LoadObj(p)
	require.NoError(t, err)
	assert.Equal(t, "plane.obj", g.FileName)
	assert.Equal(t, 2, g.TriCount())

	_, err = LoadObj(filepath.Join(t.TempDir(), "missing.obj"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseObjFeedsBuild(t *testing.T) {
	g, err := ParseObj(strings.NewReader(planeObj), 1)
	require.NoError(t, err)

	cfg := recast.DefaultRcConfig()
	cfg.Cs = 0.5
	cfg.WalkableRadius = 0
	cfg.MinRegionArea = 0
	cfg.MergeRegionArea = 10000
	res, err := recast.RcBuildNavMesh(nil, cfg, g.Verts, g.Tris, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PolyMesh.NPolys)
}
