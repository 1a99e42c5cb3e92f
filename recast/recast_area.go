package recast

import (
	"fmt"

	"github.com/gorustyt/gonavvoxel/common"
)

// RcErodeWalkableArea clears the area of every span closer than
// erosionRadius cells to a boundary of the walkable surface.
func RcErodeWalkableArea(ctx *RcContext, erosionRadius int, chf *RcCompactHeightfield) error {
	if chf == nil {
		return fmt.Errorf("%w: nil compact heightfield", ErrInvalidParam)
	}
	defer rcScopedTimer(ctx, RC_TIMER_ERODE_AREA)()

	xSize := chf.Width
	zSize := chf.Height

	distanceToBoundary, err := rcAlloc[uint8]("distanceToBoundary", chf.SpanCount)
	if err != nil {
		ctx.Error("erode walkable area: out of memory")
		return err
	}
	for i := range distanceToBoundary {
		distanceToBoundary[i] = 0xff
	}

	// Mark boundary cells.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			begin, end := chf.Cell(x, z).Range()
			for spanIndex := begin; spanIndex < end; spanIndex++ {
				if chf.Areas[spanIndex] == RC_NULL_AREA {
					distanceToBoundary[spanIndex] = 0
					continue
				}
				// Check that there is a non-null adjacent span in each of the 4 cardinal directions.
				neighborCount := 0
				for direction := 0; direction < 4; direction++ {
					ni, ok := chf.NeighborIndex(x, z, spanIndex, direction)
					if !ok || chf.Areas[ni] == RC_NULL_AREA {
						break
					}
					neighborCount++
				}
				// At least one missing neighbour, so this is a boundary cell.
				if neighborCount != 4 {
					distanceToBoundary[spanIndex] = 0
				}
			}
		}
	}

	rcChamferPasses(chf, distanceToBoundary, 0xff)

	minBoundaryDistance := erosionRadius * 2
	for spanIndex := 0; spanIndex < chf.SpanCount; spanIndex++ {
		if int(distanceToBoundary[spanIndex]) < minBoundaryDistance {
			chf.Areas[spanIndex] = RC_NULL_AREA
		}
	}
	return nil
}

// rcChamferPasses relaxes dist with the 2/3 chamfer metric: a forward pass
// over the (-1,0), (-1,-1), (0,-1), (1,-1) neighbours and a backward pass
// over the mirrored set. Values saturate at limit.
func rcChamferPasses[T uint8 | uint16](chf *RcCompactHeightfield, dist []T, limit int) {
	relax := func(i, j, cost int) {
		nd := common.Clamp(int(dist[j])+cost, 0, limit)
		if nd < int(dist[i]) {
			dist[i] = T(nd)
		}
	}
	visit := func(x, z, i, straight, diag int) {
		ai, ok := chf.NeighborIndex(x, z, i, straight)
		if !ok {
			return
		}
		relax(i, ai, 2)
		ax := x + common.GetDirOffsetX(straight)
		az := z + common.GetDirOffsetY(straight)
		if bi, ok := chf.NeighborIndex(ax, az, ai, diag); ok {
			relax(i, bi, 3)
		}
	}

	// Pass 1
	for z := 0; z < chf.Height; z++ {
		for x := 0; x < chf.Width; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				visit(x, z, i, 0, 3) // (-1,0) then (-1,-1)
				visit(x, z, i, 3, 2) // (0,-1) then (1,-1)
			}
		}
	}

	// Pass 2
	for z := chf.Height - 1; z >= 0; z-- {
		for x := chf.Width - 1; x >= 0; x-- {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				visit(x, z, i, 2, 1) // (1,0) then (1,1)
				visit(x, z, i, 1, 0) // (0,1) then (-1,1)
			}
		}
	}
}
