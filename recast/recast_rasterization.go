package recast

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/gorustyt/gonavvoxel/common"
)

type rcAxis int

const (
	RC_AXIS_X rcAxis = 0
	RC_AXIS_Y rcAxis = 1
	RC_AXIS_Z rcAxis = 2
)

// A triangle clipped by four grid lines has at most 7 vertices.
const rcMaxClipVerts = 7

// / Check whether two bounding boxes overlap
func overlapBounds(aMin, aMax, bMin, bMax common.Vec3) bool {
	return aMin[0] <= bMax[0] && aMax[0] >= bMin[0] &&
		aMin[1] <= bMax[1] && aMax[1] >= bMin[1] &&
		aMin[2] <= bMax[2] && aMax[2] >= bMin[2]
}

// / Divides a convex polygon into two convex polygons across a separating axis.
// /
// / @param[in]	inVerts			The input polygon vertices
// / @param[in]	inVertsCount	The number of input polygon vertices
// / @param[out]	outVerts1		Vertices on the negative side of the axis
// / @param[out]	outVerts2		Vertices on the positive side of the axis
// / @param[in]	axisOffset		The offset along the specified axis
// / @param[in]	axis			The separating axis
// / @returns the vertex counts of the two resulting polygons.
func dividePoly(inVerts []float32, inVertsCount int,
	outVerts1, outVerts2 []float32,
	axisOffset float32, axis rcAxis) (outVerts1Count, outVerts2Count int) {
	// How far positive or negative away from the separating axis is each vertex.
	var inVertAxisDelta [rcMaxClipVerts + 5]float32
	for inVert := 0; inVert < inVertsCount; inVert++ {
		inVertAxisDelta[inVert] = axisOffset - inVerts[inVert*3+int(axis)]
	}

	poly1Vert := 0
	poly2Vert := 0
	for inVertA, inVertB := 0, inVertsCount-1; inVertA < inVertsCount; inVertB, inVertA = inVertA, inVertA+1 {
		// If the two vertices are on the same side of the separating axis
		sameSide := (inVertAxisDelta[inVertA] >= 0) == (inVertAxisDelta[inVertB] >= 0)

		if !sameSide {
			s := inVertAxisDelta[inVertB] / (inVertAxisDelta[inVertB] - inVertAxisDelta[inVertA])
			for k := 0; k < 3; k++ {
				outVerts1[poly1Vert*3+k] = inVerts[inVertB*3+k] + (inVerts[inVertA*3+k]-inVerts[inVertB*3+k])*s
			}
			copy(common.GetVert3(outVerts2, poly2Vert), common.GetVert3(outVerts1, poly1Vert))
			poly1Vert++
			poly2Vert++

			// add the inVertA point to the right polygon. Do NOT add points that are on the dividing line
			// since these were already added above
			if inVertAxisDelta[inVertA] > 0 {
				copy(common.GetVert3(outVerts1, poly1Vert), common.GetVert3(inVerts, inVertA))
				poly1Vert++
			} else if inVertAxisDelta[inVertA] < 0 {
				copy(common.GetVert3(outVerts2, poly2Vert), common.GetVert3(inVerts, inVertA))
				poly2Vert++
			}
			continue
		}

		// add the inVertA point to the right polygon. Addition is done even for points on the dividing line
		if inVertAxisDelta[inVertA] >= 0 {
			copy(common.GetVert3(outVerts1, poly1Vert), common.GetVert3(inVerts, inVertA))
			poly1Vert++
			if inVertAxisDelta[inVertA] != 0 {
				continue
			}
		}
		copy(common.GetVert3(outVerts2, poly2Vert), common.GetVert3(inVerts, inVertA))
		poly2Vert++
	}
	return poly1Vert, poly2Vert
}

// rasterizeTri clips one triangle against every grid cell it touches and
// adds the resulting spans.
func rasterizeTri(v0, v1, v2 common.Vec3, areaID uint8, hf *RcHeightfield,
	inverseCellSize, inverseCellHeight float32, flagMergeThreshold int) error {
	hfBBMin := common.Vec3(hf.Bmin)
	hfBBMax := common.Vec3(hf.Bmax)

	// Calculate the bounding box of the triangle.
	triBBMin, triBBMax := v0, v0
	common.Vmin(&triBBMin, v1)
	common.Vmin(&triBBMin, v2)
	common.Vmax(&triBBMax, v1)
	common.Vmax(&triBBMax, v2)

	// If the triangle does not touch the bounding box of the heightfield, skip the triangle.
	if !overlapBounds(triBBMin, triBBMax, hfBBMin, hfBBMax) {
		return nil
	}

	w := hf.Width
	h := hf.Height
	by := hfBBMax[1] - hfBBMin[1]

	// Calculate the footprint of the triangle on the grid's z-axis
	z0 := int((triBBMin[2] - hfBBMin[2]) * inverseCellSize)
	z1 := int((triBBMax[2] - hfBBMin[2]) * inverseCellSize)

	// use -1 rather than 0 to cut the polygon properly at the start of the tile
	z0 = common.Clamp(z0, -1, h-1)
	z1 = common.Clamp(z1, 0, h-1)

	// Clip the triangle into all grid cells it touches.
	var buf [rcMaxClipVerts * 3 * 4]float32
	in := buf[0 : rcMaxClipVerts*3]
	inRow := buf[rcMaxClipVerts*3 : rcMaxClipVerts*6]
	p1 := buf[rcMaxClipVerts*6 : rcMaxClipVerts*9]
	p2 := buf[rcMaxClipVerts*9:]

	copy(in[0:], v0[:])
	copy(in[3:], v1[:])
	copy(in[6:], v2[:])
	nvIn := 3
	var nvRow int

	for z := z0; z <= z1; z++ {
		// Clip polygon to row. Store the remaining polygon as well
		cellZ := hfBBMin[2] + float32(z)*hf.Cs
		nvRow, nvIn = dividePoly(in, nvIn, inRow, p1, cellZ+hf.Cs, RC_AXIS_Z)
		in, p1 = p1, in

		if nvRow < 3 || z < 0 {
			continue
		}

		// find X-axis bounds of the row
		minX := inRow[0]
		maxX := inRow[0]
		for vert := 1; vert < nvRow; vert++ {
			minX = min(minX, inRow[vert*3])
			maxX = max(maxX, inRow[vert*3])
		}
		x0 := int((minX - hfBBMin[0]) * inverseCellSize)
		x1 := int((maxX - hfBBMin[0]) * inverseCellSize)
		if x1 < 0 || x0 >= w {
			continue
		}
		x0 = common.Clamp(x0, -1, w-1)
		x1 = common.Clamp(x1, 0, w-1)

		var nv int
		nv2 := nvRow

		for x := x0; x <= x1; x++ {
			// Clip polygon to column. store the remaining polygon as well
			cx := hfBBMin[0] + float32(x)*hf.Cs
			nv, nv2 = dividePoly(inRow, nv2, p1, p2, cx+hf.Cs, RC_AXIS_X)
			inRow, p2 = p2, inRow

			if nv < 3 || x < 0 {
				continue
			}

			// Calculate min and max of the span.
			spanMin := p1[1]
			spanMax := p1[1]
			for vert := 1; vert < nv; vert++ {
				spanMin = min(spanMin, p1[vert*3+1])
				spanMax = max(spanMax, p1[vert*3+1])
			}
			spanMin -= hfBBMin[1]
			spanMax -= hfBBMin[1]

			// Skip the span if it's completely outside the heightfield bounding box
			if spanMax < 0 || spanMin > by {
				continue
			}

			// Clamp the span to the heightfield bounding box.
			spanMin = max(spanMin, 0)
			spanMax = min(spanMax, by)

			// Snap the span to the heightfield height grid.
			spanMinCellIndex := common.Clamp(int(math.Floor(float64(spanMin*inverseCellHeight))), 0, RC_SPAN_MAX_HEIGHT)
			spanMaxCellIndex := common.Clamp(int(math.Ceil(float64(spanMax*inverseCellHeight))), spanMinCellIndex+1, RC_SPAN_MAX_HEIGHT)

			if err := hf.AddSpan(x, z, uint16(spanMinCellIndex), uint16(spanMaxCellIndex), areaID, flagMergeThreshold); err != nil {
				return err
			}
		}
	}
	return nil
}

// RcRasterizeTriangles rasterizes an indexed triangle list into hf. areas
// holds one area id per triangle.
func RcRasterizeTriangles(ctx *RcContext, verts []float32, tris []int32, areas []uint8,
	hf *RcHeightfield, flagMergeThreshold int) error {
	defer rcScopedTimer(ctx, RC_TIMER_RASTERIZE_TRIANGLES)()

	if hf == nil {
		return fmt.Errorf("%w: nil heightfield", ErrInvalidParam)
	}
	numTris := len(tris) / 3
	if len(areas) < numTris {
		return fmt.Errorf("%w: %d area ids for %d triangles", ErrInvalidParam, len(areas), numTris)
	}
	numVerts := int32(len(verts) / 3)
	inverseCellSize := 1.0 / hf.Cs
	inverseCellHeight := 1.0 / hf.Ch
	for i := 0; i < numTris; i++ {
		t := tris[i*3 : i*3+3]
		if t[0] < 0 || t[1] < 0 || t[2] < 0 || t[0] >= numVerts || t[1] >= numVerts || t[2] >= numVerts {
			return fmt.Errorf("%w: triangle %d references vertex outside [0,%d)", ErrInvalidParam, i, numVerts)
		}
		v0 := common.GetVec3(verts, t[0])
		v1 := common.GetVec3(verts, t[1])
		v2 := common.GetVec3(verts, t[2])
		if err := rasterizeTri(v0, v1, v2, areas[i], hf, inverseCellSize, inverseCellHeight, flagMergeThreshold); err != nil {
			ctx.Error("rasterize triangles failed", zap.Int("triangle", i), zap.Error(err))
			return err
		}
	}
	return nil
}
