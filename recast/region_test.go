package recast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCompact(t *testing.T, w, h int) *RcCompactHeightfield {
	t.Helper()
	chf, err := RcBuildCompactHeightfield(nil, 2, 1, RC_WALKABLE_AREA, flatField(t, w, h))
	require.NoError(t, err)
	return chf
}

func spanAt(chf *RcCompactHeightfield, x, z int) int {
	return int(chf.Cell(x, z).Index)
}

func TestDistanceFieldFlat(t *testing.T) {
	chf := flatCompact(t, 5, 5)
	require.NoError(t, RcBuildDistanceField(nil, chf))
	require.Len(t, chf.Dist, chf.SpanCount)

	assert.Equal(t, uint16(4), chf.MaxDistance)
	for i := 0; i < 5; i++ {
		assert.Zero(t, chf.Dist[spanAt(chf, i, 0)])
		assert.Zero(t, chf.Dist[spanAt(chf, 0, i)])
		assert.Zero(t, chf.Dist[spanAt(chf, i, 4)])
		assert.Zero(t, chf.Dist[spanAt(chf, 4, i)])
	}
	assert.Equal(t, uint16(2), chf.Dist[spanAt(chf, 1, 1)])
	assert.Equal(t, uint16(2), chf.Dist[spanAt(chf, 2, 1)])
	// The centre is blurred down from 4 by its ring of 2s.
	assert.Equal(t, uint16(2), chf.Dist[spanAt(chf, 2, 2)])
}

func TestDistanceFieldTimers(t *testing.T) {
	chf := flatCompact(t, 3, 3)
	times := &RcBuildTimes{}
	ctx := NewRcContext(nil, times)
	require.NoError(t, RcBuildDistanceField(ctx, chf))

	// Every timer started by the stage has been stopped.
	for _, label := range []RcTimerLabel{RC_TIMER_BUILD_DISTANCEFIELD, RC_TIMER_BUILD_DISTANCEFIELD_DIST, RC_TIMER_BUILD_DISTANCEFIELD_BLUR} {
		assert.True(t, ctx.starts[label].IsZero(), label.String())
	}
}

func TestBuildRegionsSingleRegion(t *testing.T) {
	chf := flatCompact(t, 8, 8)
	require.NoError(t, RcBuildDistanceField(nil, chf))
	require.NoError(t, RcBuildRegions(nil, chf, 0, 0, 1000))

	assert.Equal(t, uint16(1), chf.MaxRegions)
	for i := range chf.Spans {
		assert.Equal(t, uint16(1), chf.Spans[i].Reg)
	}
}

func TestBuildRegionsCoversWalkableSpans(t *testing.T) {
	chf := flatCompact(t, 12, 12)
	require.NoError(t, RcBuildDistanceField(nil, chf))
	require.NoError(t, RcBuildRegions(nil, chf, 0, 0, 0))

	require.Positive(t, chf.MaxRegions)
	for i := range chf.Spans {
		reg := chf.Spans[i].Reg
		assert.NotZero(t, reg)
		assert.LessOrEqual(t, reg, chf.MaxRegions)
	}
}

func TestBuildRegionsRemovesSmallIslands(t *testing.T) {
	chf := flatCompact(t, 8, 8)
	require.NoError(t, RcBuildDistanceField(nil, chf))
	require.NoError(t, RcBuildRegions(nil, chf, 0, 1000, 1000))

	assert.Zero(t, chf.MaxRegions)
	for i := range chf.Spans {
		assert.Zero(t, chf.Spans[i].Reg)
	}
}

func TestBuildRegionsBorder(t *testing.T) {
	chf := flatCompact(t, 8, 8)
	require.NoError(t, RcBuildDistanceField(nil, chf))
	// The interior touches the border frame, so it survives the island filter.
	require.NoError(t, RcBuildRegions(nil, chf, 2, 1000, 1000))

	assert.Equal(t, 2, chf.BorderSize)
	assert.Equal(t, uint16(1), chf.MaxRegions)
	for z := 0; z < 8; z++ {
		for x := 0; x < 8; x++ {
			reg := chf.Spans[spanAt(chf, x, z)].Reg
			if x < 2 || z < 2 || x >= 6 || z >= 6 {
				assert.NotZero(t, reg&RC_BORDER_REG, "(%d,%d)", x, z)
			} else {
				assert.Equal(t, uint16(1), reg, "(%d,%d)", x, z)
			}
		}
	}
}

func TestBuildRegionsSkipsNullArea(t *testing.T) {
	chf := flatCompact(t, 6, 6)
	chf.Areas[spanAt(chf, 3, 3)] = RC_NULL_AREA
	require.NoError(t, RcBuildDistanceField(nil, chf))
	require.NoError(t, RcBuildRegions(nil, chf, 0, 0, 1000))

	assert.Zero(t, chf.Spans[spanAt(chf, 3, 3)].Reg)
	assert.Equal(t, uint16(1), chf.Spans[spanAt(chf, 0, 0)].Reg)
}

func TestBuildRegionsNeedsDistanceField(t *testing.T) {
	chf := flatCompact(t, 4, 4)
	assert.ErrorIs(t, RcBuildRegions(nil, chf, 0, 0, 0), ErrInvalidParam)
	assert.ErrorIs(t, RcBuildRegions(nil, nil, 0, 0, 0), ErrInvalidParam)
	assert.ErrorIs(t, RcBuildDistanceField(nil, nil), ErrInvalidParam)
}

func TestErodeWalkableArea(t *testing.T) {
	chf := flatCompact(t, 5, 5)
	require.NoError(t, RcErodeWalkableArea(nil, 1, chf))

	for z := 0; z < 5; z++ {
		for x := 0; x < 5; x++ {
			area := chf.Areas[spanAt(chf, x, z)]
			if x == 0 || z == 0 || x == 4 || z == 4 {
				assert.Equal(t, uint8(RC_NULL_AREA), area, "(%d,%d)", x, z)
			} else {
				assert.Equal(t, uint8(RC_WALKABLE_AREA), area, "(%d,%d)", x, z)
			}
		}
	}
}

func TestErodeWalkableAreaLargeRadius(t *testing.T) {
	chf := flatCompact(t, 5, 5)
	require.NoError(t, RcErodeWalkableArea(nil, 3, chf))
	for _, area := range chf.Areas {
		assert.Equal(t, uint8(RC_NULL_AREA), area)
	}
	assert.ErrorIs(t, RcErodeWalkableArea(nil, 1, nil), ErrInvalidParam)
}
