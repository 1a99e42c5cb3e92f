package recast

import (
	"errors"
	"testing"
)

func assertTrue(t *testing.T, value bool, msg string) {
	t.Helper()
	if !value {
		t.Error(msg)
	}
}

// assertColumn checks that column (x, z) holds exactly one span.
func assertColumn(t *testing.T, hf *RcHeightfield, x, z int, smin, smax uint16, area uint8, msg string) {
	t.Helper()
	s := hf.Column(x, z)
	if s == RC_NULL_SPAN {
		t.Errorf("%s: column (%d,%d) is empty", msg, x, z)
		return
	}
	assertTrue(t, hf.Spans[s].Smin == smin, msg)
	assertTrue(t, hf.Spans[s].Smax == smax, msg)
	assertTrue(t, hf.Spans[s].Area == area, msg)
	assertTrue(t, hf.Next[s] == RC_NULL_SPAN, msg)
}

func TestCalcBounds(t *testing.T) {
	verts := []float32{1, 2, 3}
	bmin, bmax := RcCalcBounds(verts)
	msg := "bounds of one vector"
	for i := 0; i < 3; i++ {
		assertTrue(t, bmin[i] == verts[i], msg)
		assertTrue(t, bmax[i] == verts[i], msg)
	}

	verts = []float32{
		1, 2, 3,
		0, 2, 5,
	}
	bmin, bmax = RcCalcBounds(verts)
	msg = "bounds of more than one vector"
	assertTrue(t, bmin == [3]float32{0, 2, 3}, msg)
	assertTrue(t, bmax == [3]float32{1, 2, 5}, msg)

	bmin, bmax = RcCalcBounds(nil)
	assertTrue(t, bmin == [3]float32{} && bmax == [3]float32{}, "bounds of no vectors")
}

func TestCalcGridSize(t *testing.T) {
	verts := []float32{
		1, 2, 3,
		0, 2, 6,
	}
	bmin, bmax := RcCalcBounds(verts)
	width, height := RcCalcGridSize(bmin, bmax, 1.5)
	assertTrue(t, width == 1, "computes the size of an x & z axis grid")
	assertTrue(t, height == 2, "computes the size of an x & z axis grid")

	// The y axis never contributes.
	bmax[1] = 1000
	w2, h2 := RcCalcGridSize(bmin, bmax, 1.5)
	assertTrue(t, w2 == width && h2 == height, "ignores the y axis")
}

func TestCalcGridSizeMonotonic(t *testing.T) {
	bmin := [3]float32{0, 0, 0}
	bmax := [3]float32{10, 0, 7}
	prevW, prevH := RcCalcGridSize(bmin, bmax, 0.1)
	for _, cs := range []float32{0.2, 0.3, 0.5, 1, 2, 5} {
		w, h := RcCalcGridSize(bmin, bmax, cs)
		assertTrue(t, w <= prevW && h <= prevH, "grid shrinks as cells grow")
		prevW, prevH = w, h
	}
}

func TestCreateHeightfield(t *testing.T) {
	verts := []float32{
		1, 2, 3,
		0, 2, 6,
	}
	bmin, bmax := RcCalcBounds(verts)
	var cellSize float32 = 1.5
	var cellHeight float32 = 2.0
	width, height := RcCalcGridSize(bmin, bmax, cellSize)

	heightfield, err := RcCreateHeightfield(width, height, bmin, bmax, cellSize, cellHeight)
	msg := "create a heightfield"
	assertTrue(t, err == nil, msg)

	assertTrue(t, heightfield.Width == width, msg)
	assertTrue(t, heightfield.Height == height, msg)
	assertTrue(t, heightfield.Bmin == bmin, msg)
	assertTrue(t, heightfield.Bmax == bmax, msg)
	assertTrue(t, heightfield.Cs == cellSize, msg)
	assertTrue(t, heightfield.Ch == cellHeight, msg)

	assertTrue(t, len(heightfield.Heads) == width*height, msg)
	for _, head := range heightfield.Heads {
		assertTrue(t, head == RC_NULL_SPAN, msg)
	}
	assertTrue(t, heightfield.Spans == nil, msg)
	assertTrue(t, heightfield.freelist == RC_NULL_SPAN, msg)
}

func TestCreateHeightfieldInvalid(t *testing.T) {
	_, err := RcCreateHeightfield(-1, 2, [3]float32{}, [3]float32{1, 1, 1}, 1, 1)
	assertTrue(t, errors.Is(err, ErrOutOfMemory), "negative width")

	_, err = RcCreateHeightfield(2, 2, [3]float32{}, [3]float32{1, 1, 1}, 0, 1)
	assertTrue(t, errors.Is(err, ErrInvalidParam), "zero cell size")
}

func TestMarkWalkableTriangles(t *testing.T) {
	var walkableSlopeAngle float32 = 45
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
	}
	walkableTri := []int32{0, 1, 2}
	unwalkableTri := []int32{0, 2, 1}

	areas := []uint8{RC_NULL_AREA}
	RcMarkWalkableTriangles(walkableSlopeAngle, verts, walkableTri, areas)
	assertTrue(t, areas[0] == RC_WALKABLE_AREA, "One walkable triangle")

	areas = []uint8{RC_NULL_AREA}
	RcMarkWalkableTriangles(walkableSlopeAngle, verts, unwalkableTri, areas)
	assertTrue(t, areas[0] == RC_NULL_AREA, "One non-walkable triangle")

	areas = []uint8{42}
	RcMarkWalkableTriangles(walkableSlopeAngle, verts, unwalkableTri, areas)
	assertTrue(t, areas[0] == 42, "Non-walkable triangle area id's are not modified")

	areas = []uint8{RC_NULL_AREA}
	RcMarkWalkableTriangles(0, verts, walkableTri, areas)
	assertTrue(t, areas[0] == RC_NULL_AREA, "Slopes equal to the max slope are considered unwalkable.")
}

func TestClearUnwalkableTriangles(t *testing.T) {
	var walkableSlopeAngle float32 = 45
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
	}
	walkableTri := []int32{0, 1, 2}
	unwalkableTri := []int32{0, 2, 1}

	areas := []uint8{42}
	RcClearUnwalkableTriangles(walkableSlopeAngle, verts, unwalkableTri, areas)
	assertTrue(t, areas[0] == RC_NULL_AREA, "Sets area ID of unwalkable triangle to RC_NULL_AREA")

	areas = []uint8{42}
	RcClearUnwalkableTriangles(walkableSlopeAngle, verts, walkableTri, areas)
	assertTrue(t, areas[0] == 42, "Does not modify walkable triangle area ID's")

	areas = []uint8{42}
	RcClearUnwalkableTriangles(0, verts, walkableTri, areas)
	assertTrue(t, areas[0] == RC_NULL_AREA, "Slopes equal to the max slope are considered unwalkable.")
}

func newAddSpanHeightfield(t *testing.T) *RcHeightfield {
	t.Helper()
	verts := []float32{
		1, 2, 3,
		0, 2, 6,
	}
	bmin, bmax := RcCalcBounds(verts)
	width, height := RcCalcGridSize(bmin, bmax, 1.5)
	hf, err := RcCreateHeightfield(width, height, bmin, bmax, 1.5, 2.0)
	if err != nil {
		t.Fatalf("create heightfield: %v", err)
	}
	return hf
}

func TestAddSpan(t *testing.T) {
	const area = 42
	const flagMergeThr = 1

	msg := "Add a span to an empty heightfield."
	hf := newAddSpanHeightfield(t)
	assertTrue(t, hf.AddSpan(0, 0, 0, 1, area, flagMergeThr) == nil, msg)
	assertColumn(t, hf, 0, 0, 0, 1, area, msg)

	msg = "Add a span that gets merged with an existing span."
	hf = newAddSpanHeightfield(t)
	assertTrue(t, hf.AddSpan(0, 0, 0, 1, area, flagMergeThr) == nil, msg)
	assertTrue(t, hf.AddSpan(0, 0, 1, 2, area, flagMergeThr) == nil, msg)
	assertColumn(t, hf, 0, 0, 0, 2, area, msg)

	msg = "Add a span that merges with two spans above and below."
	hf = newAddSpanHeightfield(t)
	assertTrue(t, hf.AddSpan(0, 0, 0, 1, area, flagMergeThr) == nil, msg)
	assertTrue(t, hf.AddSpan(0, 0, 2, 3, area, flagMergeThr) == nil, msg)
	first := hf.Column(0, 0)
	second := hf.Next[first]
	assertTrue(t, second != RC_NULL_SPAN, msg)
	assertTrue(t, hf.Spans[second].Smin == 2 && hf.Spans[second].Smax == 3, msg)
	assertTrue(t, hf.AddSpan(0, 0, 1, 2, area, flagMergeThr) == nil, msg)
	assertColumn(t, hf, 0, 0, 0, 3, area, msg)
}

func TestAddSpanAreaMerge(t *testing.T) {
	hf := newAddSpanHeightfield(t)
	// Tops within the threshold keep the higher area id.
	assertTrue(t, hf.AddSpan(0, 0, 0, 4, 10, 1) == nil, "add")
	assertTrue(t, hf.AddSpan(0, 0, 2, 5, 3, 1) == nil, "add")
	assertColumn(t, hf, 0, 0, 0, 5, 10, "area merge within threshold")

	hf = newAddSpanHeightfield(t)
	// Tops further apart keep the new span's area.
	assertTrue(t, hf.AddSpan(0, 0, 0, 4, 10, 1) == nil, "add")
	assertTrue(t, hf.AddSpan(0, 0, 2, 8, 3, 1) == nil, "add")
	assertColumn(t, hf, 0, 0, 0, 8, 3, "area merge beyond threshold")
}

func TestAddSpanInvalid(t *testing.T) {
	hf := newAddSpanHeightfield(t)
	assertTrue(t, errors.Is(hf.AddSpan(hf.Width, 0, 0, 1, 1, 1), ErrInvalidParam), "column outside the grid")
	assertTrue(t, errors.Is(hf.AddSpan(0, -1, 0, 1, 1, 1), ErrInvalidParam), "negative column")
	assertTrue(t, errors.Is(hf.AddSpan(0, 0, 3, 1, 1, 1), ErrInvalidParam), "inverted span")
}

func TestRasterizeTriangle(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
	}
	bmin, bmax := RcCalcBounds(verts)
	var cellSize float32 = .5
	var cellHeight float32 = .5
	width, height := RcCalcGridSize(bmin, bmax, cellSize)

	solid, err := RcCreateHeightfield(width, height, bmin, bmax, cellSize, cellHeight)
	assertTrue(t, err == nil, "Rasterize a triangle")

	const area = 42
	msg := "Rasterize a triangle"
	assertTrue(t, RcRasterizeTriangles(nil, verts, []int32{0, 1, 2}, []uint8{area}, solid, 1) == nil, msg)

	assertTrue(t, solid.Column(1, 0) == RC_NULL_SPAN, msg)
	assertColumn(t, solid, 0, 0, 0, 1, area, msg)
	assertColumn(t, solid, 0, 1, 0, 1, area, msg)
	assertColumn(t, solid, 1, 1, 0, 1, area, msg)
}

func TestRasterizeTriangleOutside(t *testing.T) {
	// A triangle whose bounding box overlaps the field but whose surface does not.
	width, height := 10, 10
	hf, err := RcCreateHeightfield(width, height, [3]float32{0, 0, 0}, [3]float32{10, 10, 10}, 1, 1)
	msg := "rasterize overlapping bb but non-overlapping triangle"
	assertTrue(t, err == nil, msg)

	verts := []float32{
		-10.0, 5.5, -10.0,
		-10.0, 5.5, 3,
		3.0, 5.5, -10.0,
	}
	assertTrue(t, RcRasterizeTriangles(nil, verts, []int32{0, 1, 2}, []uint8{42}, hf, 1) == nil, msg)

	for x := 0; x < width; x++ {
		for z := 0; z < height; z++ {
			assertTrue(t, hf.Column(x, z) == RC_NULL_SPAN, msg)
		}
	}
}

func TestRasterizeSkinnyTriangles(t *testing.T) {
	cases := []struct {
		name  string
		verts []float32
	}{
		{"Skinny triangle along x axis", []float32{
			5, 0, 0.005,
			5, 0, -0.005,
			-5, 0, 0.005,

			-5, 0, 0.005,
			5, 0, -0.005,
			-5, 0, -0.005,
		}},
		{"Skinny triangle along z axis", []float32{
			0.005, 0, 5,
			-0.005, 0, 5,
			0.005, 0, -5,

			0.005, 0, -5,
			-0.005, 0, 5,
			-0.005, 0, -5,
		}},
	}
	for _, c := range cases {
		bmin, bmax := RcCalcBounds(c.verts)
		width, height := RcCalcGridSize(bmin, bmax, 1)
		solid, err := RcCreateHeightfield(width, height, bmin, bmax, 1, 1)
		assertTrue(t, err == nil, c.name)
		err = RcRasterizeTriangles(nil, c.verts, []int32{0, 1, 2, 3, 4, 5}, []uint8{42, 42}, solid, 1)
		assertTrue(t, err == nil, c.name)
	}
}

func assertTwoTriangleLayout(t *testing.T, solid *RcHeightfield, msg string) {
	t.Helper()
	assertTrue(t, solid.Column(1, 0) == RC_NULL_SPAN, msg)
	assertTrue(t, solid.Column(1, 3) == RC_NULL_SPAN, msg)

	assertColumn(t, solid, 0, 0, 0, 1, 1, msg)
	assertColumn(t, solid, 0, 1, 0, 1, 1, msg)
	assertColumn(t, solid, 0, 2, 0, 1, 2, msg)
	assertColumn(t, solid, 0, 3, 0, 1, 2, msg)
	assertColumn(t, solid, 1, 1, 0, 1, 1, msg)
	assertColumn(t, solid, 1, 2, 0, 1, 2, msg)
}

func newTwoTriangleField(t *testing.T, verts []float32) *RcHeightfield {
	t.Helper()
	bmin, bmax := RcCalcBounds(verts)
	width, height := RcCalcGridSize(bmin, bmax, .5)
	solid, err := RcCreateHeightfield(width, height, bmin, bmax, .5, .5)
	if err != nil {
		t.Fatalf("create heightfield: %v", err)
	}
	return solid
}

func TestRasterizeTriangles(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
		0, 0, 1,
	}
	tris := []int32{
		0, 1, 2,
		0, 3, 1,
	}
	areas := []uint8{1, 2}
	solid := newTwoTriangleField(t, verts)
	msg := "Rasterize some triangles"
	assertTrue(t, RcRasterizeTriangles(nil, verts, tris, areas, solid, 1) == nil, msg)
	assertTwoTriangleLayout(t, solid, msg)
}

func TestRasterizeTriangleSoup(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
		0, 0, 0,
		0, 0, 1,
		1, 0, 0,
	}
	solid := newTwoTriangleField(t, verts)
	msg := "Triangle list without shared vertices"
	assertTrue(t, RcRasterizeTriangles(nil, verts, []int32{0, 1, 2, 3, 4, 5}, []uint8{1, 2}, solid, 1) == nil, msg)
	assertTwoTriangleLayout(t, solid, msg)
}

func TestRasterizeTrianglesInvalid(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 0, -1,
	}
	solid := newTwoTriangleField(t, verts)

	err := RcRasterizeTriangles(nil, verts, []int32{0, 1, 3}, []uint8{1}, solid, 1)
	assertTrue(t, errors.Is(err, ErrInvalidParam), "vertex index out of range")

	err = RcRasterizeTriangles(nil, verts, []int32{0, 1, 2}, nil, solid, 1)
	assertTrue(t, errors.Is(err, ErrInvalidParam), "missing area ids")

	err = RcRasterizeTriangles(nil, verts, []int32{0, 1, 2}, []uint8{1}, nil, 1)
	assertTrue(t, errors.Is(err, ErrInvalidParam), "nil heightfield")
}
