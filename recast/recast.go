package recast

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/gorustyt/gonavvoxel/common"
)

// / Calculates the bounding box of an array of vertices.
// / An empty vertex array yields zero bounds.
// / @param[in]		verts		An array of vertices. [(x, y, z) * nv]
// / @return the minimum and maximum bounds of the AABB.
func RcCalcBounds(verts []float32) (bmin, bmax [3]float32) {
	n := len(verts) / 3
	if n == 0 {
		return
	}
	mn := common.GetVec3(verts, 0)
	mx := mn
	for i := 1; i < n; i++ {
		v := common.GetVec3(verts, i)
		common.Vmin(&mn, v)
		common.Vmax(&mx, v)
	}
	return mn, mx
}

// / Calculates the grid size based on the bounding box and grid cell size.
// / The y axis does not contribute.
func RcCalcGridSize(bmin, bmax [3]float32, cs float32) (w, h int) {
	w = int((bmax[0]-bmin[0])/cs + 0.5)
	h = int((bmax[2]-bmin[2])/cs + 0.5)
	return w, h
}

func calcTriNormal(verts []float32, tri []int32) common.Vec3 {
	return common.TriNormal(common.GetVec3(verts, tri[0]), common.GetVec3(verts, tri[1]), common.GetVec3(verts, tri[2]))
}

// / Sets the area id of all triangles with a slope below the specified value
// / to RC_WALKABLE_AREA. Other area ids are left untouched, so degenerate
// / triangles keep their id.
func RcMarkWalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int32, areas []uint8) {
	walkableThr := float32(math.Cos(float64(common.DegToRad(walkableSlopeAngle))))
	numTris := min(len(tris)/3, len(areas))
	for i := 0; i < numTris; i++ {
		norm := calcTriNormal(verts, tris[i*3:i*3+3])
		// Check if the face is walkable.
		if norm[1] > walkableThr {
			areas[i] = RC_WALKABLE_AREA
		}
	}
}

// / Sets the area id of all triangles with a slope greater than or equal to
// / the specified value to RC_NULL_AREA.
func RcClearUnwalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int32, areas []uint8) {
	walkableLimitY := float32(math.Cos(float64(common.DegToRad(walkableSlopeAngle))))
	numTris := min(len(tris)/3, len(areas))
	for i := 0; i < numTris; i++ {
		norm := calcTriNormal(verts, tris[i*3:i*3+3])
		if norm[1] <= walkableLimitY {
			areas[i] = RC_NULL_AREA
		}
	}
}

// / Builds a compact heightfield representing open space, from a heightfield
// / representing solid space. Only spans tagged with area are kept.
// /
// / Bounds, cell size and cell height are taken from hf.
func RcBuildCompactHeightfield(ctx *RcContext, walkableHeight, walkableClimb int, area uint8, hf *RcHeightfield) (*RcCompactHeightfield, error) {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_COMPACTHEIGHTFIELD)()

	if hf == nil {
		return nil, fmt.Errorf("%w: nil heightfield", ErrInvalidParam)
	}
	xSize := hf.Width
	zSize := hf.Height
	spanCount := hf.SpanCount(area)

	// Fill in header.
	chf := &RcCompactHeightfield{
		Width:          xSize,
		Height:         zSize,
		SpanCount:      spanCount,
		WalkableHeight: walkableHeight,
		WalkableClimb:  walkableClimb,
		Bmin:           hf.Bmin,
		Bmax:           hf.Bmax,
		Cs:             hf.Cs,
		Ch:             hf.Ch,
	}
	chf.Bmax[1] += float32(walkableHeight) * hf.Ch

	var err error
	if chf.Cells, err = rcAlloc[RcCompactCell]("cells", xSize*zSize); err != nil {
		ctx.Error("build compact heightfield: out of memory", zap.String("buffer", "cells"), zap.Int("count", xSize*zSize))
		return nil, err
	}
	if chf.Spans, err = rcAlloc[RcCompactSpan]("spans", spanCount); err != nil {
		ctx.Error("build compact heightfield: out of memory", zap.String("buffer", "spans"), zap.Int("count", spanCount))
		return nil, err
	}
	if chf.Areas, err = rcAlloc[uint8]("areas", spanCount); err != nil {
		ctx.Error("build compact heightfield: out of memory", zap.String("buffer", "areas"), zap.Int("count", spanCount))
		return nil, err
	}

	// Fill in cells and spans.
	currentCellIndex := 0
	for columnIndex, head := range hf.Heads {
		cell := &chf.Cells[columnIndex]
		cell.Index = uint32(currentCellIndex)

		for s := head; s != RC_NULL_SPAN; s = hf.Next[s] {
			span := hf.Spans[s]
			if span.Area != area {
				continue
			}
			bot := int(span.Smax)
			top := hf.spanTop(s)
			chf.Spans[currentCellIndex].Y = uint16(common.Clamp(bot, 0, 0xffff))
			chf.Spans[currentCellIndex].H = uint8(common.Clamp(top-bot, 0, 0xff))
			chf.Areas[currentCellIndex] = span.Area
			currentCellIndex++
			cell.Count++
		}
	}

	// Find neighbour connections.
	maxLayerIndex := 0
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				span := &chf.Spans[i]

				for dir := 0; dir < 4; dir++ {
					RcSetCon(span, dir, RC_NOT_CONNECTED)
					neighborX := x + common.GetDirOffsetX(dir)
					neighborZ := z + common.GetDirOffsetY(dir)
					// First check that the neighbour cell is in bounds.
					if neighborX < 0 || neighborZ < 0 || neighborX >= xSize || neighborZ >= zSize {
						continue
					}

					// Iterate over all neighbour spans and check if any of the is
					// accessible from current cell.
					nBegin, nEnd := chf.Cell(neighborX, neighborZ).Range()
					for k := nBegin; k < nEnd; k++ {
						neighborSpan := &chf.Spans[k]
						bot := max(int(span.Y), int(neighborSpan.Y))
						top := min(int(span.Y)+int(span.H), int(neighborSpan.Y)+int(neighborSpan.H))

						// Check that the gap between the spans is walkable,
						// and that the climb height between the gaps is not too high.
						if top-bot >= walkableHeight && common.Abs(int(neighborSpan.Y)-int(span.Y)) <= walkableClimb {
							// Mark direction as walkable.
							layerIndex := k - nBegin
							if layerIndex > RC_MAX_LAYERS {
								maxLayerIndex = max(maxLayerIndex, layerIndex)
								continue
							}
							RcSetCon(span, dir, layerIndex)
							break
						}
					}
				}
			}
		}
	}

	if maxLayerIndex > RC_MAX_LAYERS {
		ctx.Warning("build compact heightfield: too many layers",
			zap.Int("layers", maxLayerIndex), zap.Int("max", RC_MAX_LAYERS))
	}
	return chf, nil
}
