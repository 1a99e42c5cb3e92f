package recast

import (
	"go.uber.org/zap"

	"github.com/gorustyt/gonavvoxel/common"
)

// spanTop returns the floor of the open space above span s.
func (hf *RcHeightfield) spanTop(s int32) int {
	if n := hf.Next[s]; n != RC_NULL_SPAN {
		return int(hf.Spans[n].Smin)
	}
	return RC_MAX_HEIGHT
}

// / Marks non-walkable spans as walkable if their maximum is within walkableClimb
// / of the span below them.
func RcFilterLowHangingWalkableObstacles(ctx *RcContext, walkableClimb int, hf *RcHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_FILTER_BORDER)()

	for z := 0; z < hf.Height; z++ {
		for x := 0; x < hf.Width; x++ {
			previousSpan := RC_NULL_SPAN
			previousWasWalkable := false
			var previousArea uint8 = RC_NULL_AREA

			for s := hf.Column(x, z); s != RC_NULL_SPAN; s = hf.Next[s] {
				span := &hf.Spans[s]
				walkable := span.Area != RC_NULL_AREA
				// If current span is not walkable, but there is walkable
				// span just below it, mark the span above it walkable too.
				if !walkable && previousWasWalkable {
					if common.Abs(int(span.Smax)-int(hf.Spans[previousSpan].Smax)) <= walkableClimb {
						span.Area = previousArea
					}
				}
				// Copy walkable flag so that it cannot propagate
				// past multiple non-walkable objects.
				previousWasWalkable = walkable
				previousArea = span.Area
				previousSpan = s
			}
		}
	}
}

// / Marks spans that are ledges as not-walkable.
// / A ledge is a span with a neighbour whose maximum is further away than
// / walkableClimb, or a span on a slope steeper than walkableClimb.
func RcFilterLedgeSpans(ctx *RcContext, walkableHeight, walkableClimb int, hf *RcHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_FILTER_BORDER)()

	xSize := hf.Width
	zSize := hf.Height
	ledges := 0

	// Mark border spans.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			for s := hf.Column(x, z); s != RC_NULL_SPAN; s = hf.Next[s] {
				span := &hf.Spans[s]
				// Skip non walkable spans.
				if span.Area == RC_NULL_AREA {
					continue
				}

				bot := int(span.Smax)
				top := hf.spanTop(s)

				// Find neighbours minimum height.
				minNeighborHeight := RC_MAX_HEIGHT

				// Min and max height of accessible neighbours.
				accessibleNeighborMinHeight := bot
				accessibleNeighborMaxHeight := bot

				for direction := 0; direction < 4; direction++ {
					dx := x + common.GetDirOffsetX(direction)
					dz := z + common.GetDirOffsetY(direction)
					// Skip neighbours which are out of bounds.
					if dx < 0 || dz < 0 || dx >= xSize || dz >= zSize {
						minNeighborHeight = min(minNeighborHeight, -walkableClimb-bot)
						continue
					}

					// From minus infinity to the first span.
					neighborSpan := hf.Column(dx, dz)
					neighborBot := -walkableClimb
					neighborTop := RC_MAX_HEIGHT
					if neighborSpan != RC_NULL_SPAN {
						neighborTop = int(hf.Spans[neighborSpan].Smin)
					}
					// Skip neighbour if the gap between the spans is too small.
					if min(top, neighborTop)-max(bot, neighborBot) > walkableHeight {
						minNeighborHeight = min(minNeighborHeight, neighborBot-bot)
					}

					// Rest of the spans.
					for ; neighborSpan != RC_NULL_SPAN; neighborSpan = hf.Next[neighborSpan] {
						neighborBot = int(hf.Spans[neighborSpan].Smax)
						neighborTop = hf.spanTop(neighborSpan)

						// Skip neighbour if the gap between the spans is too small.
						if min(top, neighborTop)-max(bot, neighborBot) > walkableHeight {
							minNeighborHeight = min(minNeighborHeight, neighborBot-bot)

							// Find min/max accessible neighbour height.
							if common.Abs(neighborBot-bot) <= walkableClimb {
								accessibleNeighborMinHeight = min(accessibleNeighborMinHeight, neighborBot)
								accessibleNeighborMaxHeight = max(accessibleNeighborMaxHeight, neighborBot)
							}
						}
					}
				}

				// The current span is close to a ledge if the drop to any
				// neighbour span is less than the walkableClimb.
				if minNeighborHeight < -walkableClimb {
					span.Area = RC_NULL_AREA
					ledges++
				} else if accessibleNeighborMaxHeight-accessibleNeighborMinHeight > walkableClimb {
					// If the difference between all neighbours is too large,
					// we are at steep slope, mark the span as ledge.
					span.Area = RC_NULL_AREA
					ledges++
				}
			}
		}
	}
	ctx.Logger().Debug("ledge spans filtered", zap.Int("count", ledges))
}

// / Marks walkable spans as not walkable if the clearance above the span is
// / less than the specified height.
func RcFilterWalkableLowHeightSpans(ctx *RcContext, walkableHeight int, hf *RcHeightfield) {
	defer rcScopedTimer(ctx, RC_TIMER_FILTER_WALKABLE)()

	// Remove walkable flag from spans which do not have enough
	// space above them for the agent to stand there.
	for z := 0; z < hf.Height; z++ {
		for x := 0; x < hf.Width; x++ {
			for s := hf.Column(x, z); s != RC_NULL_SPAN; s = hf.Next[s] {
				bot := int(hf.Spans[s].Smax)
				if hf.spanTop(s)-bot < walkableHeight {
					hf.Spans[s].Area = RC_NULL_AREA
				}
			}
		}
	}
}
