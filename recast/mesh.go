package recast

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gorustyt/gonavvoxel/common"
)

const (
	VERTEX_BUCKET_COUNT = 1 << 12
	/// Represents no polygon or vertex index in RcPolyMesh.
	RC_MESH_NULL_IDX = 0xffff
	// Marks a contour index whose following vertex may be clipped as an ear.
	rcEarFlag  = 0x80000000
	rcEarIndex = 0x0fffffff
)

// / Represents a polygon mesh suitable for use in building a navigation mesh.
type RcPolyMesh struct {
	Verts        []uint16   ///< The mesh vertices. [Form: (x, y, z) * #NVerts]
	Polys        []uint16   ///< Polygon and neighbor data. [Length: #NPolys * 2 * #Nvp]
	Regs         []uint16   ///< The region id assigned to each polygon. [Length: #NPolys]
	Flags        []uint16   ///< The user defined flags for each polygon. [Length: #NPolys]
	Areas        []uint8    ///< The area id assigned to each polygon. [Length: #NPolys]
	NVerts       int        ///< The number of vertices.
	NPolys       int        ///< The number of polygons.
	Nvp          int        ///< The maximum number of vertices per polygon.
	Bmin         [3]float32 ///< The minimum bounds in world space. [(x, y, z)]
	Bmax         [3]float32 ///< The maximum bounds in world space. [(x, y, z)]
	Cs           float32    ///< The size of each cell. (On the xz-plane.)
	Ch           float32    ///< The height of each cell. (The minimum increment along the y-axis.)
	BorderSize   int        ///< The AABB border size used to generate the source data from which the mesh was derived.
	MaxEdgeError float32    ///< The max error of the polygon edges in the mesh.
}

// Poly returns the vertex indices of polygon i, padded with RC_MESH_NULL_IDX.
func (m *RcPolyMesh) Poly(i int) []uint16 {
	return m.Polys[i*2*m.Nvp : i*2*m.Nvp+m.Nvp]
}

// Neighbors returns the per-edge neighbour polygons of polygon i.
func (m *RcPolyMesh) Neighbors(i int) []uint16 {
	return m.Polys[i*2*m.Nvp+m.Nvp : (i+1)*2*m.Nvp]
}

type rcEdge struct {
	vert     [2]int
	polyEdge [2]int
	poly     [2]int
}

func buildMeshAdjacency(polys []int, npolys, nverts, vertsPerPoly int) error {
	// Based on code by Eric Lengyel from:
	// https://web.archive.org/web/20080704083314/http://www.terathon.com/code/edges.php

	maxEdgeCount := npolys * vertsPerPoly
	firstEdge, err := rcAlloc[int]("adjacency", nverts+maxEdgeCount)
	if err != nil {
		return err
	}
	nextEdge := firstEdge[nverts:]
	edges, err := rcAlloc[rcEdge]("edges", maxEdgeCount)
	if err != nil {
		return err
	}
	edgeCount := 0
	for i := 0; i < nverts; i++ {
		firstEdge[i] = RC_MESH_NULL_IDX
	}

	polyEdge := func(t []int, j int) (v0, v1 int) {
		v0 = t[j]
		if j+1 >= vertsPerPoly || t[j+1] == RC_MESH_NULL_IDX {
			return v0, t[0]
		}
		return v0, t[j+1]
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0, v1 := polyEdge(t, j)
			if v0 < v1 {
				edges[edgeCount] = rcEdge{
					vert:     [2]int{v0, v1},
					poly:     [2]int{i, i},
					polyEdge: [2]int{j, 0},
				}
				// Insert edge
				nextEdge[edgeCount] = firstEdge[v0]
				firstEdge[v0] = edgeCount
				edgeCount++
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0, v1 := polyEdge(t, j)
			if v0 > v1 {
				for e := firstEdge[v1]; e != RC_MESH_NULL_IDX; e = nextEdge[e] {
					edge := &edges[e]
					if edge.vert[1] == v0 && edge.poly[0] == edge.poly[1] {
						edge.poly[1] = i
						edge.polyEdge[1] = j
						break
					}
				}
			}
		}
	}

	// Store adjacency
	for i := 0; i < edgeCount; i++ {
		e := &edges[i]
		if e.poly[0] != e.poly[1] {
			p0 := polys[e.poly[0]*vertsPerPoly*2:]
			p1 := polys[e.poly[1]*vertsPerPoly*2:]
			p0[vertsPerPoly+e.polyEdge[0]] = e.poly[1]
			p1[vertsPerPoly+e.polyEdge[1]] = e.poly[0]
		}
	}
	return nil
}

func computeVertexHash(x, y, z int) int {
	h1 := 0x8da6b343 // Large multiplicative constants;
	h2 := 0xd8163841 // here arbitrarily chosen primes
	h3 := 0xcb1ab31f
	n := h1*x + h2*y + h3*z
	return n & (VERTEX_BUCKET_COUNT - 1)
}

// rcVertexWelder deduplicates mesh vertices through a spatial hash. Vertices
// at the same (x, z) within two height units of each other are welded.
type rcVertexWelder struct {
	verts     []int
	nv        int
	firstVert []int
	nextVert  []int
}

func newRcVertexWelder(maxVertices int) (*rcVertexWelder, error) {
	verts, err := rcAlloc[int]("verts", maxVertices*3)
	if err != nil {
		return nil, err
	}
	firstVert, err := rcAlloc[int]("firstVert", VERTEX_BUCKET_COUNT)
	if err != nil {
		return nil, err
	}
	nextVert, err := rcAlloc[int]("nextVert", maxVertices)
	if err != nil {
		return nil, err
	}
	for i := range firstVert {
		firstVert[i] = -1
	}
	return &rcVertexWelder{verts: verts, firstVert: firstVert, nextVert: nextVert}, nil
}

func (w *rcVertexWelder) addVertex(x, y, z int) int {
	bucket := computeVertexHash(x, 0, z)
	for i := w.firstVert[bucket]; i != -1; i = w.nextVert[i] {
		v := common.GetVert3(w.verts, i)
		if v[0] == x && common.Abs(v[1]-y) <= 2 && v[2] == z {
			return i
		}
	}

	// Could not find, create new.
	i := w.nv
	w.nv++
	v := common.GetVert3(w.verts, i)
	v[0] = x
	v[1] = y
	v[2] = z
	w.nextVert[i] = w.firstVert[bucket]
	w.firstVert[bucket] = i
	return i
}

func prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

func next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}

func area2(a, b, c []int) int {
	return (b[0]-a[0])*(c[2]-a[2]) - (c[0]-a[0])*(b[2]-a[2])
}

// Returns true iff c is strictly to the left of the directed
// line through a to b.
func left(a, b, c []int) bool {
	return area2(a, b, c) < 0
}

func leftOn(a, b, c []int) bool {
	return area2(a, b, c) <= 0
}

func collinear(a, b, c []int) bool {
	return area2(a, b, c) == 0
}

// Returns true iff ab properly intersects cd: they share
// a point interior to both segments.  The properness of the
// intersection is ensured by using strict leftness.
func intersectProp(a, b, c, d []int) bool {
	// Eliminate improper cases.
	if collinear(a, b, c) || collinear(a, b, d) ||
		collinear(c, d, a) || collinear(c, d, b) {
		return false
	}
	return left(a, b, c) != left(a, b, d) && left(c, d, a) != left(c, d, b)
}

// Returns T iff (a,b,c) are collinear and point c lies
// on the closed segement ab.
func between(a, b, c []int) bool {
	if !collinear(a, b, c) {
		return false
	}
	// If ab not vertical, check betweenness on x; else on y.
	if a[0] != b[0] {
		return (a[0] <= c[0] && c[0] <= b[0]) || (a[0] >= c[0] && c[0] >= b[0])
	}
	return (a[2] <= c[2] && c[2] <= b[2]) || (a[2] >= c[2] && c[2] >= b[2])
}

// Returns true iff segments ab and cd intersect, properly or improperly.
func intersect(a, b, c, d []int) bool {
	if intersectProp(a, b, c, d) {
		return true
	}
	return between(a, b, c) || between(a, b, d) ||
		between(c, d, a) || between(c, d, b)
}

func vequal(a, b []int) bool {
	return a[0] == b[0] && a[2] == b[2]
}

func contourVert(verts, indices []int, i int) []int {
	return common.GetVert4(verts, indices[i]&rcEarIndex)
}

// Returns T iff (v_i, v_j) is a proper internal *or* external
// diagonal of P, *ignoring edges incident to v_i and v_j*.
func diagonalie(i, j, n int, verts, indices []int, loose bool) bool {
	d0 := contourVert(verts, indices, i)
	d1 := contourVert(verts, indices, j)

	// For each edge (k,k+1) of P
	for k := 0; k < n; k++ {
		k1 := next(k, n)
		// Skip edges incident to i or j
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := contourVert(verts, indices, k)
		p1 := contourVert(verts, indices, k1)
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if loose {
			if intersectProp(d0, d1, p0, p1) {
				return false
			}
		} else if intersect(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

// Returns true iff the diagonal (i,j) is strictly internal to the
// polygon P in the neighborhood of the i endpoint.
func inCone(i, j, n int, verts, indices []int, loose bool) bool {
	pi := contourVert(verts, indices, i)
	pj := contourVert(verts, indices, j)
	pi1 := contourVert(verts, indices, next(i, n))
	pin1 := contourVert(verts, indices, prev(i, n))

	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if leftOn(pin1, pi, pi1) {
		if loose {
			return leftOn(pi, pj, pin1) && leftOn(pj, pi, pi1)
		}
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	// Assume (i-1,i,i+1) not collinear.
	// else P[i] is reflex.
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

// Returns T iff (v_i, v_j) is a proper internal
// diagonal of P.
func diagonal(i, j, n int, verts, indices []int) bool {
	return inCone(i, j, n, verts, indices, false) && diagonalie(i, j, n, verts, indices, false)
}

func diagonalLoose(i, j, n int, verts, indices []int) bool {
	return inCone(i, j, n, verts, indices, true) && diagonalie(i, j, n, verts, indices, true)
}

// triangulate ear-clips the contour polygon given by indices into verts
// (stride 4). It returns the triangle count, negated when the contour could
// not be fully triangulated.
func triangulate(n int, verts, indices, tris []int) int {
	ntris := 0
	dst := 0

	// The last bit of the index is used to indicate if the vertex can be removed.
	for i := 0; i < n; i++ {
		i1 := next(i, n)
		i2 := next(i1, n)
		if diagonal(i, i2, n, verts, indices) {
			indices[i1] |= rcEarFlag
		}
	}

	earLength := func(i, i2 int) int {
		p0 := contourVert(verts, indices, i)
		p2 := contourVert(verts, indices, i2)
		dx := p2[0] - p0[0]
		dz := p2[2] - p0[2]
		return dx*dx + dz*dz
	}

	for n > 3 {
		minLen := -1
		mini := -1
		for i := 0; i < n; i++ {
			i1 := next(i, n)
			if indices[i1]&rcEarFlag != 0 {
				length := earLength(i, next(i1, n))
				if minLen < 0 || length < minLen {
					minLen = length
					mini = i
				}
			}
		}

		if mini == -1 {
			// We might get here because the contour has overlapping segments.
			// Try to recover by loosening the inCone test a bit so that a
			// diagonal can be found and we can continue.
			for i := 0; i < n; i++ {
				i1 := next(i, n)
				i2 := next(i1, n)
				if diagonalLoose(i, i2, n, verts, indices) {
					length := earLength(i, next(i2, n))
					if minLen < 0 || length < minLen {
						minLen = length
						mini = i
					}
				}
			}
			if mini == -1 {
				// The contour is messed up. This sometimes happens
				// if the contour simplification is too aggressive.
				return -ntris
			}
		}

		i := mini
		i1 := next(i, n)
		i2 := next(i1, n)

		tris[dst+0] = indices[i] & rcEarIndex
		tris[dst+1] = indices[i1] & rcEarIndex
		tris[dst+2] = indices[i2] & rcEarIndex
		dst += 3
		ntris++

		// Removes P[i1] by copying P[i+1]...P[n-1] left one index.
		n--
		copy(indices[i1:n], indices[i1+1:n+1])

		if i1 >= n {
			i1 = 0
		}
		i = prev(i1, n)

		// Update diagonal flags.
		if diagonal(prev(i, n), i1, n, verts, indices) {
			indices[i] |= rcEarFlag
		} else {
			indices[i] &= rcEarIndex
		}
		if diagonal(i, next(i1, n), n, verts, indices) {
			indices[i1] |= rcEarFlag
		} else {
			indices[i1] &= rcEarIndex
		}
	}

	// Append the remaining triangle.
	tris[dst+0] = indices[0] & rcEarIndex
	tris[dst+1] = indices[1] & rcEarIndex
	tris[dst+2] = indices[2] & rcEarIndex
	ntris++

	return ntris
}

func countPolyVerts(p []int, nvp int) int {
	for i := 0; i < nvp; i++ {
		if p[i] == RC_MESH_NULL_IDX {
			return i
		}
	}
	return nvp
}

func uleft(a, b, c []int) bool {
	return (b[0]-a[0])*(c[2]-a[2])-(c[0]-a[0])*(b[2]-a[2]) < 0
}

// getPolyMergeValue returns the squared length of the edge shared by pa and
// pb, or -1 when merging them would not give a convex polygon of at most
// nvp vertices. ea and eb are the shared edge in each polygon.
func getPolyMergeValue(pa, pb, verts []int, nvp int) (value, ea, eb int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	// If the merged polygon would be too big, do not merge.
	if na+nb-2 > nvp {
		return -1, -1, -1
	}

	// Check if the polygons share an edge.
	ea, eb = -1, -1
	for i := 0; i < na && ea == -1; i++ {
		va0 := pa[i]
		va1 := pa[(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0 := pb[j]
			vb1 := pb[(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea = i
				eb = j
				break
			}
		}
	}

	// No common edge, cannot merge.
	if ea == -1 || eb == -1 {
		return -1, -1, -1
	}

	// Check to see if the merged polygon would be convex.
	va := pa[(ea+na-1)%na]
	vb := pa[ea]
	vc := pb[(eb+2)%nb]
	if !uleft(common.GetVert3(verts, va), common.GetVert3(verts, vb), common.GetVert3(verts, vc)) {
		return -1, -1, -1
	}

	va = pb[(eb+nb-1)%nb]
	vb = pb[eb]
	vc = pa[(ea+2)%na]
	if !uleft(common.GetVert3(verts, va), common.GetVert3(verts, vb), common.GetVert3(verts, vc)) {
		return -1, -1, -1
	}

	va = pa[ea]
	vb = pa[(ea+1)%na]

	dx := verts[va*3+0] - verts[vb*3+0]
	dz := verts[va*3+2] - verts[vb*3+2]

	return dx*dx + dz*dz, ea, eb
}

func mergePolyVerts(pa, pb []int, ea, eb int, tmp []int, nvp int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	for i := 0; i < nvp; i++ {
		tmp[i] = RC_MESH_NULL_IDX
	}
	// Merge polygons.
	n := 0
	// Add pa
	for i := 0; i < na-1; i++ {
		tmp[n] = pa[(ea+1+i)%na]
		n++
	}
	// Add pb
	for i := 0; i < nb-1; i++ {
		tmp[n] = pb[(eb+1+i)%nb]
		n++
	}
	copy(pa[:nvp], tmp[:nvp])
}

// / Builds a polygon mesh from the provided contours.
// / Contours that wind backwards (holes) are skipped.
func RcBuildPolyMesh(ctx *RcContext, cset *RcContourSet, nvp int) (*RcPolyMesh, error) {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_POLYMESH)()

	if cset == nil {
		return nil, fmt.Errorf("%w: nil contour set", ErrInvalidParam)
	}
	if nvp < 3 {
		return nil, fmt.Errorf("%w: max verts per poly %d", ErrInvalidParam, nvp)
	}

	mesh := &RcPolyMesh{
		Nvp:          nvp,
		Bmin:         cset.Bmin,
		Bmax:         cset.Bmax,
		Cs:           cset.Cs,
		Ch:           cset.Ch,
		BorderSize:   cset.BorderSize,
		MaxEdgeError: cset.MaxError,
	}

	maxVertices := 0
	maxTris := 0
	maxVertsPerCont := 0
	for i := range cset.Conts {
		// Skip null contours.
		if cset.Conts[i].NVerts < 3 {
			continue
		}
		maxVertices += cset.Conts[i].NVerts
		maxTris += cset.Conts[i].NVerts - 2
		maxVertsPerCont = max(maxVertsPerCont, cset.Conts[i].NVerts)
	}
	if maxVertices >= 0xfffe {
		ctx.Error("build poly mesh: too many vertices", zap.Int("vertices", maxVertices))
		return nil, fmt.Errorf("%w: too many vertices %d", ErrInvalidParam, maxVertices)
	}

	welder, err := newRcVertexWelder(maxVertices)
	if err != nil {
		ctx.Error("build poly mesh: out of memory", zap.Error(err))
		return nil, err
	}
	meshPolys, err := rcAlloc[int]("polys", maxTris*nvp*2)
	if err != nil {
		ctx.Error("build poly mesh: out of memory", zap.Error(err))
		return nil, err
	}
	for i := range meshPolys {
		meshPolys[i] = RC_MESH_NULL_IDX
	}
	mesh.Regs = make([]uint16, 0, maxTris)
	mesh.Areas = make([]uint8, 0, maxTris)

	indices, err := rcAlloc[int]("indices", maxVertsPerCont)
	if err != nil {
		return nil, err
	}
	tris, err := rcAlloc[int]("tris", maxVertsPerCont*3)
	if err != nil {
		return nil, err
	}
	polys, err := rcAlloc[int]("polys", (maxVertsPerCont+1)*nvp)
	if err != nil {
		return nil, err
	}
	tmpPoly := polys[maxVertsPerCont*nvp:]

	for i := range cset.Conts {
		cont := &cset.Conts[i]

		// Skip null contours.
		if cont.NVerts < 3 {
			continue
		}
		if cont.IsHole() {
			ctx.Warning("build poly mesh: skipping hole contour", zap.Int("contour", i), zap.Uint16("region", cont.Reg))
			continue
		}

		// Triangulate contour
		for j := 0; j < cont.NVerts; j++ {
			indices[j] = j
		}
		ntris := triangulate(cont.NVerts, cont.Verts, indices[:cont.NVerts], tris)
		if ntris <= 0 {
			// Bad triangulation, should not happen.
			ctx.Warning("build poly mesh: bad triangulation", zap.Int("contour", i))
			ntris = -ntris
		}

		// Add and merge vertices.
		for j := 0; j < cont.NVerts; j++ {
			v := common.GetVert4(cont.Verts, j)
			indices[j] = welder.addVertex(v[0], v[1], v[2])
		}

		// Build initial polygons.
		npolys := 0
		for j := range polys[:maxVertsPerCont*nvp] {
			polys[j] = RC_MESH_NULL_IDX
		}
		for j := 0; j < ntris; j++ {
			t := tris[j*3 : j*3+3]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				polys[npolys*nvp+0] = indices[t[0]]
				polys[npolys*nvp+1] = indices[t[1]]
				polys[npolys*nvp+2] = indices[t[2]]
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		// Merge polygons.
		if nvp > 3 {
			for {
				// Find best polygons to merge.
				bestMergeVal := 0
				bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0

				for j := 0; j < npolys-1; j++ {
					pj := polys[j*nvp : (j+1)*nvp]
					for k := j + 1; k < npolys; k++ {
						pk := polys[k*nvp : (k+1)*nvp]
						v, ea, eb := getPolyMergeValue(pj, pk, welder.verts, nvp)
						if v > bestMergeVal {
							bestMergeVal = v
							bestPa, bestPb, bestEa, bestEb = j, k, ea, eb
						}
					}
				}

				if bestMergeVal <= 0 {
					// Could not merge any polygons, stop.
					break
				}
				// Found best, merge.
				pa := polys[bestPa*nvp : (bestPa+1)*nvp]
				pb := polys[bestPb*nvp : (bestPb+1)*nvp]
				mergePolyVerts(pa, pb, bestEa, bestEb, tmpPoly, nvp)
				last := polys[(npolys-1)*nvp : npolys*nvp]
				if bestPb != npolys-1 {
					copy(pb, last)
				}
				npolys--
			}
		}

		// Store polygons.
		for j := 0; j < npolys; j++ {
			if mesh.NPolys >= maxTris {
				ctx.Error("build poly mesh: too many polygons", zap.Int("polys", mesh.NPolys+1), zap.Int("max", maxTris))
				return nil, fmt.Errorf("build poly mesh: too many polygons %d (max: %d)", mesh.NPolys+1, maxTris)
			}
			p := meshPolys[mesh.NPolys*nvp*2:]
			copy(p[:nvp], polys[j*nvp:(j+1)*nvp])
			mesh.Regs = append(mesh.Regs, cont.Reg)
			mesh.Areas = append(mesh.Areas, cont.Area)
			mesh.NPolys++
		}
	}

	// Calculate adjacency.
	if err := buildMeshAdjacency(meshPolys, mesh.NPolys, welder.nv, nvp); err != nil {
		ctx.Error("build poly mesh: adjacency failed", zap.Error(err))
		return nil, err
	}

	mesh.NVerts = welder.nv
	mesh.Verts = make([]uint16, welder.nv*3)
	for i := range mesh.Verts {
		mesh.Verts[i] = uint16(welder.verts[i])
	}
	mesh.Polys = make([]uint16, mesh.NPolys*nvp*2)
	for i := range mesh.Polys {
		mesh.Polys[i] = uint16(meshPolys[i])
	}
	mesh.Flags = make([]uint16, mesh.NPolys)

	ctx.Logger().Debug("poly mesh built",
		zap.Int("verts", mesh.NVerts), zap.Int("polys", mesh.NPolys), zap.Int("nvp", nvp))
	return mesh, nil
}
