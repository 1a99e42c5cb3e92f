package recast

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gorustyt/gonavvoxel/common"
)

const (
	/// Applied to the region id field of contour vertices in order to extract the region id.
	/// The region id field of a vertex may have several flags applied to it.  So the
	/// fields value can't be used directly.
	RC_CONTOUR_REG_MASK = 0xffff
	/// Area border flag.
	/// If a region ID has this bit set, then the associated element lies on
	/// the border of an area.
	RC_AREA_BORDER = 0x20000
	/// Border vertex flag.
	/// If a contour vertex's region ID has this bit set, the vertex lies on
	/// a border region.
	RC_BORDER_VERTEX = 0x10000

	RC_CONTOUR_TESS_WALL_EDGES = 0x01 ///< Tessellate solid (impassable) edges during contour simplification.
	RC_CONTOUR_TESS_AREA_EDGES = 0x02 ///< Tessellate edges between areas during contour simplification.
)

// rcMaxContourWalk bounds a single contour walk.
const rcMaxContourWalk = 40000

// / Represents a simple, non-overlapping contour in field space.
type RcContour struct {
	Verts   []int  ///< Simplified contour vertex and connection data. [Size: 4 * #NVerts]
	NVerts  int    ///< The number of vertices in the simplified contour.
	RVerts  []int  ///< Raw contour vertex and connection data. [Size: 4 * #NRVerts]
	NRVerts int    ///< The number of vertices in the raw contour.
	Reg     uint16 ///< The region id of the contour.
	Area    uint8  ///< The area id of the contour.
}

// IsHole reports whether the contour winds backwards.
func (c *RcContour) IsHole() bool {
	return calcAreaOfPolygon2D(c.Verts, c.NVerts) < 0
}

// / Represents a group of related contours.
type RcContourSet struct {
	Conts      []RcContour ///< An array of the contours in the set.
	Bmin       [3]float32  ///< The minimum bounds in world space. [(x, y, z)]
	Bmax       [3]float32  ///< The maximum bounds in world space. [(x, y, z)]
	Cs         float32     ///< The size of each cell. (On the xz-plane.)
	Ch         float32     ///< The height of each cell. (The minimum increment along the y-axis.)
	Width      int         ///< The width of the set. (Along the x-axis in cell units.)
	Height     int         ///< The height of the set. (Along the z-axis in cell units.)
	BorderSize int         ///< The AABB border size used to generate the source data from which the contours were derived.
	MaxError   float32     ///< The max edge error that this contour set was simplified with.
}

func getCornerHeight(x, z, i, dir int, chf *RcCompactHeightfield) (height int, isBorderVertex bool) {
	s := &chf.Spans[i]
	height = int(s.Y)
	dirp := (dir + 1) & 0x3

	var regs [4]int

	// Combine region and area codes in order to prevent
	// border vertices which are in between two areas to be removed.
	regs[0] = int(s.Reg) | int(chf.Areas[i])<<16

	if ai, ok := chf.NeighborIndex(x, z, i, dir); ok {
		ax := x + common.GetDirOffsetX(dir)
		az := z + common.GetDirOffsetY(dir)
		height = max(height, int(chf.Spans[ai].Y))
		regs[1] = int(chf.Spans[ai].Reg) | int(chf.Areas[ai])<<16
		if ai2, ok := chf.NeighborIndex(ax, az, ai, dirp); ok {
			height = max(height, int(chf.Spans[ai2].Y))
			regs[2] = int(chf.Spans[ai2].Reg) | int(chf.Areas[ai2])<<16
		}
	}
	if ai, ok := chf.NeighborIndex(x, z, i, dirp); ok {
		ax := x + common.GetDirOffsetX(dirp)
		az := z + common.GetDirOffsetY(dirp)
		height = max(height, int(chf.Spans[ai].Y))
		regs[3] = int(chf.Spans[ai].Reg) | int(chf.Areas[ai])<<16
		if ai2, ok := chf.NeighborIndex(ax, az, ai, dir); ok {
			height = max(height, int(chf.Spans[ai2].Y))
			regs[2] = int(chf.Spans[ai2].Reg) | int(chf.Areas[ai2])<<16
		}
	}

	// Check if the vertex is special edge vertex, these vertices will be removed later.
	for j := 0; j < 4; j++ {
		a := j
		b := (j + 1) & 0x3
		c := (j + 2) & 0x3
		d := (j + 3) & 0x3

		// The vertex is a border vertex there are two same exterior cells in a row,
		// followed by two interior cells and none of the regions are out of bounds.
		twoSameExts := regs[a]&regs[b]&RC_BORDER_REG != 0 && regs[a] == regs[b]
		twoInts := (regs[c]|regs[d])&RC_BORDER_REG == 0
		intsSameArea := regs[c]>>16 == regs[d]>>16
		noZeros := regs[a] != 0 && regs[b] != 0 && regs[c] != 0 && regs[d] != 0
		if twoSameExts && twoInts && intsSameArea && noZeros {
			isBorderVertex = true
			break
		}
	}
	return height, isBorderVertex
}

// walkContour follows the boundary edges of span i clockwise and appends
// (x, y, z, r) corner points.
func walkContour(x, z, i int, chf *RcCompactHeightfield, flags []uint8, points *RcIntArray) error {
	// Choose the first non-connected edge
	dir := 0
	for flags[i]&(1<<dir) == 0 {
		dir++
	}

	startDir := dir
	starti := i

	area := chf.Areas[i]

	for iter := 1; iter < rcMaxContourWalk; iter++ {
		if flags[i]&(1<<dir) != 0 {
			// Choose the edge corner
			py, isBorderVertex := getCornerHeight(x, z, i, dir, chf)
			isAreaBorder := false
			px := x
			pz := z
			switch dir {
			case 0:
				pz++
			case 1:
				px++
				pz++
			case 2:
				px++
			}
			r := 0
			if ai, ok := chf.NeighborIndex(x, z, i, dir); ok {
				r = int(chf.Spans[ai].Reg)
				if area != chf.Areas[ai] {
					isAreaBorder = true
				}
			}
			if isBorderVertex {
				r |= RC_BORDER_VERTEX
			}
			if isAreaBorder {
				r |= RC_AREA_BORDER
			}
			for _, v := range [4]int{px, py, pz, r} {
				if err := points.Push(v); err != nil {
					return err
				}
			}

			flags[i] &^= 1 << dir // Remove visited edges
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			ni, ok := chf.NeighborIndex(x, z, i, dir)
			if !ok {
				// Should not happen.
				return nil
			}
			x += common.GetDirOffsetX(dir)
			z += common.GetDirOffsetY(dir)
			i = ni
			dir = (dir + 3) & 0x3 // Rotate CCW
		}

		if starti == i && startDir == dir {
			break
		}
	}
	return nil
}

func contourDistancePtSeg(x, z, px, pz, qx, qz int) float32 {
	pqx := float32(qx - px)
	pqz := float32(qz - pz)
	dx := float32(x - px)
	dz := float32(z - pz)
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = common.Clamp(t, 0, 1)

	dx = float32(px) + t*pqx - float32(x)
	dz = float32(pz) + t*pqz - float32(z)

	return dx*dx + dz*dz
}

// insertSimplifiedPoint inserts raw point rawIndex after simplified vertex i.
func insertSimplifiedPoint(simplified, points *RcIntArray, i, rawIndex int) error {
	if err := simplified.Resize(simplified.Len() + 4); err != nil {
		return err
	}
	data := simplified.Data()
	copy(data[(i+2)*4:], data[(i+1)*4:len(data)-4])
	data[(i+1)*4+0] = points.Index(rawIndex*4 + 0)
	data[(i+1)*4+1] = points.Index(rawIndex*4 + 1)
	data[(i+1)*4+2] = points.Index(rawIndex*4 + 2)
	data[(i+1)*4+3] = rawIndex
	return nil
}

func pushContourPoint(simplified *RcIntArray, x, y, z, i int) error {
	for _, v := range [4]int{x, y, z, i} {
		if err := simplified.Push(v); err != nil {
			return err
		}
	}
	return nil
}

func simplifyContour(points, simplified *RcIntArray, maxError float32, maxEdgeLen, buildFlags int) error {
	// Add initial points.
	hasConnections := false
	for i := 0; i < points.Len(); i += 4 {
		if points.Index(i+3)&RC_CONTOUR_REG_MASK != 0 {
			hasConnections = true
			break
		}
	}

	pn := points.Len() / 4
	if hasConnections {
		// The contour has some portals to other regions.
		// Add a new point to every location where the region changes.
		for i := 0; i < pn; i++ {
			ii := (i + 1) % pn
			differentRegs := points.Index(i*4+3)&RC_CONTOUR_REG_MASK != points.Index(ii*4+3)&RC_CONTOUR_REG_MASK
			areaBorders := points.Index(i*4+3)&RC_AREA_BORDER != points.Index(ii*4+3)&RC_AREA_BORDER
			if differentRegs || areaBorders {
				if err := pushContourPoint(simplified, points.Index(i*4), points.Index(i*4+1), points.Index(i*4+2), i); err != nil {
					return err
				}
			}
		}
	}

	if simplified.Len() == 0 {
		// If there is no connections at all,
		// create some initial points for the simplification process.
		// Find lower-left and upper-right vertices of the contour.
		llx, lly, llz, lli := points.Index(0), points.Index(1), points.Index(2), 0
		urx, ury, urz, uri := llx, lly, llz, 0
		for i := 0; i < points.Len(); i += 4 {
			x := points.Index(i + 0)
			y := points.Index(i + 1)
			z := points.Index(i + 2)
			if x < llx || (x == llx && z < llz) {
				llx, lly, llz, lli = x, y, z, i/4
			}
			if x > urx || (x == urx && z > urz) {
				urx, ury, urz, uri = x, y, z, i/4
			}
		}
		if err := pushContourPoint(simplified, llx, lly, llz, lli); err != nil {
			return err
		}
		if err := pushContourPoint(simplified, urx, ury, urz, uri); err != nil {
			return err
		}
	}

	// Add points until all raw points are within
	// error tolerance to the simplified shape.
	for i := 0; i < simplified.Len()/4; {
		ii := (i + 1) % (simplified.Len() / 4)

		ax := simplified.Index(i*4 + 0)
		az := simplified.Index(i*4 + 2)
		ai := simplified.Index(i*4 + 3)

		bx := simplified.Index(ii*4 + 0)
		bz := simplified.Index(ii*4 + 2)
		bi := simplified.Index(ii*4 + 3)

		// Find maximum deviation from the segment.
		var maxd float32
		maxi := -1
		var ci, cinc, endi int

		// Traverse the segment in lexilogical order so that the
		// max deviation is calculated similarly when traversing
		// opposite segments.
		if bx > ax || (bx == ax && bz > az) {
			cinc = 1
			ci = (ai + cinc) % pn
			endi = bi
		} else {
			cinc = pn - 1
			ci = (bi + cinc) % pn
			endi = ai
			ax, bx = bx, ax
			az, bz = bz, az
		}

		// Tessellate only outer edges or edges between areas.
		if points.Index(ci*4+3)&RC_CONTOUR_REG_MASK == 0 || points.Index(ci*4+3)&RC_AREA_BORDER != 0 {
			for ci != endi {
				d := contourDistancePtSeg(points.Index(ci*4+0), points.Index(ci*4+2), ax, az, bx, bz)
				if d > maxd {
					maxd = d
					maxi = ci
				}
				ci = (ci + cinc) % pn
			}
		}

		// If the max deviation is larger than accepted error,
		// add new point, else continue to next segment.
		if maxi != -1 && maxd > maxError*maxError {
			if err := insertSimplifiedPoint(simplified, points, i, maxi); err != nil {
				return err
			}
		} else {
			i++
		}
	}

	// Split too long edges.
	if maxEdgeLen > 0 && buildFlags&(RC_CONTOUR_TESS_WALL_EDGES|RC_CONTOUR_TESS_AREA_EDGES) != 0 {
		for i := 0; i < simplified.Len()/4; {
			ii := (i + 1) % (simplified.Len() / 4)

			ax := simplified.Index(i*4 + 0)
			az := simplified.Index(i*4 + 2)
			ai := simplified.Index(i*4 + 3)

			bx := simplified.Index(ii*4 + 0)
			bz := simplified.Index(ii*4 + 2)
			bi := simplified.Index(ii*4 + 3)

			maxi := -1
			ci := (ai + 1) % pn

			// Tessellate only outer edges or edges between areas.
			tess := false
			// Wall edges.
			if buildFlags&RC_CONTOUR_TESS_WALL_EDGES != 0 && points.Index(ci*4+3)&RC_CONTOUR_REG_MASK == 0 {
				tess = true
			}
			// Edges between areas.
			if buildFlags&RC_CONTOUR_TESS_AREA_EDGES != 0 && points.Index(ci*4+3)&RC_AREA_BORDER != 0 {
				tess = true
			}

			if tess {
				dx := bx - ax
				dz := bz - az
				if dx*dx+dz*dz > common.Sqr(maxEdgeLen) {
					// Round based on the segments in lexilogical order so that the
					// max tesselation is consistent regardless in which direction
					// segments are traversed.
					n := bi - ai
					if bi < ai {
						n = bi + pn - ai
					}
					if n > 1 {
						if bx > ax || (bx == ax && bz > az) {
							maxi = (ai + n/2) % pn
						} else {
							maxi = (ai + (n+1)/2) % pn
						}
					}
				}
			}

			if maxi != -1 {
				if err := insertSimplifiedPoint(simplified, points, i, maxi); err != nil {
					return err
				}
			} else {
				i++
			}
		}
	}

	for i := 0; i < simplified.Len()/4; i++ {
		// The edge vertex flag is take from the current raw point,
		// and the neighbour region is take from the next raw point.
		ai := (simplified.Index(i*4+3) + 1) % pn
		bi := simplified.Index(i*4 + 3)
		v := points.Index(ai*4+3)&(RC_CONTOUR_REG_MASK|RC_AREA_BORDER) | points.Index(bi*4+3)&RC_BORDER_VERTEX
		simplified.Set(i*4+3, v)
	}
	return nil
}

func calcAreaOfPolygon2D(verts []int, nverts int) int {
	area := 0
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := common.GetVert4(verts, i)
		vj := common.GetVert4(verts, j)
		area += vi[0]*vj[2] - vj[0]*vi[2]
	}
	return (area + 1) / 2
}

// removeDegenerateSegments drops adjacent vertices that are equal on the
// xz-plane, or else the triangulator will get confused.
func removeDegenerateSegments(simplified *RcIntArray) error {
	npts := simplified.Len() / 4
	for i := 0; i < npts; i++ {
		ni := next(i, npts)
		data := simplified.Data()
		if data[i*4] == data[ni*4] && data[i*4+2] == data[ni*4+2] {
			// Degenerate segment, remove.
			copy(data[i*4:], data[(i+1)*4:])
			if err := simplified.Resize(simplified.Len() - 4); err != nil {
				return err
			}
			npts--
		}
	}
	return nil
}

// / Builds a contour set from the region outlines in the provided compact heightfield.
// /
// / Simplified contours are generated such that the vertices for portals between areas match up.
// / (They are considered mandatory vertices.)
// /
// / Setting maxEdgeLen to zero will disable the edge length feature.
func RcBuildContours(ctx *RcContext, chf *RcCompactHeightfield, maxError float32, maxEdgeLen, buildFlags int) (*RcContourSet, error) {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_CONTOURS)()

	if chf == nil {
		return nil, fmt.Errorf("%w: nil compact heightfield", ErrInvalidParam)
	}
	w := chf.Width
	h := chf.Height
	borderSize := chf.BorderSize

	cset := &RcContourSet{
		Bmin:       chf.Bmin,
		Bmax:       chf.Bmax,
		Cs:         chf.Cs,
		Ch:         chf.Ch,
		Width:      chf.Width - borderSize*2,
		Height:     chf.Height - borderSize*2,
		BorderSize: borderSize,
		MaxError:   maxError,
	}
	if borderSize > 0 {
		// If the heightfield was build with bordersize, remove the offset.
		pad := float32(borderSize) * chf.Cs
		cset.Bmin[0] += pad
		cset.Bmin[2] += pad
		cset.Bmax[0] -= pad
		cset.Bmax[2] -= pad
	}
	cset.Conts = make([]RcContour, 0, max(int(chf.MaxRegions), 8))

	flags, err := rcAlloc[uint8]("flags", chf.SpanCount)
	if err != nil {
		ctx.Error("build contours: out of memory", zap.String("buffer", "flags"), zap.Int("count", chf.SpanCount))
		return nil, err
	}

	ctx.StartTimer(RC_TIMER_BUILD_CONTOURS_TRACE)

	// Mark boundaries.
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				reg := chf.Spans[i].Reg
				if reg == 0 || reg&RC_BORDER_REG != 0 {
					flags[i] = 0
					continue
				}
				var res uint8
				for dir := 0; dir < 4; dir++ {
					var r uint16
					if ai, ok := chf.NeighborIndex(x, z, i, dir); ok {
						r = chf.Spans[ai].Reg
					}
					if r == reg {
						res |= 1 << dir
					}
				}
				flags[i] = res ^ 0xf // Inverse, mark non connected edges.
			}
		}
	}

	ctx.StopTimer(RC_TIMER_BUILD_CONTOURS_TRACE)

	verts, err := NewRcIntArray(256)
	if err != nil {
		return nil, err
	}
	simplified, err := NewRcIntArray(64)
	if err != nil {
		return nil, err
	}

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				if flags[i] == 0 || flags[i] == 0xf {
					flags[i] = 0
					continue
				}
				reg := chf.Spans[i].Reg
				if reg == 0 || reg&RC_BORDER_REG != 0 {
					continue
				}
				area := chf.Areas[i]

				verts.Clear()
				simplified.Clear()

				ctx.StartTimer(RC_TIMER_BUILD_CONTOURS_TRACE)
				err := walkContour(x, z, i, chf, flags, verts)
				ctx.StopTimer(RC_TIMER_BUILD_CONTOURS_TRACE)
				if err != nil {
					return nil, err
				}

				ctx.StartTimer(RC_TIMER_BUILD_CONTOURS_SIMPLIFY)
				err = simplifyContour(verts, simplified, maxError, maxEdgeLen, buildFlags)
				if err == nil {
					err = removeDegenerateSegments(simplified)
				}
				ctx.StopTimer(RC_TIMER_BUILD_CONTOURS_SIMPLIFY)
				if err != nil {
					return nil, err
				}

				// Create contour.
				if simplified.Len()/4 < 3 {
					continue
				}
				cont := RcContour{
					NVerts:  simplified.Len() / 4,
					NRVerts: verts.Len() / 4,
					Reg:     reg,
					Area:    area,
				}
				cont.Verts = append([]int(nil), simplified.Data()...)
				cont.RVerts = append([]int(nil), verts.Data()...)
				if borderSize > 0 {
					// If the heightfield was build with bordersize, remove the offset.
					for j := 0; j < cont.NVerts; j++ {
						v := common.GetVert4(cont.Verts, j)
						v[0] -= borderSize
						v[2] -= borderSize
					}
					for j := 0; j < cont.NRVerts; j++ {
						v := common.GetVert4(cont.RVerts, j)
						v[0] -= borderSize
						v[2] -= borderSize
					}
				}
				cset.Conts = append(cset.Conts, cont)
			}
		}
	}

	// Holes are kept as separate contours; the mesh builder skips them.
	nholes := 0
	for i := range cset.Conts {
		if cset.Conts[i].IsHole() {
			nholes++
		}
	}
	if nholes > 0 {
		ctx.Warning("build contours: region holes are not merged", zap.Int("holes", nholes))
	}
	return cset, nil
}
