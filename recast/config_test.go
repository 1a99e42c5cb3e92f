package recast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultRcConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float32(0.3), cfg.Cs)
	assert.Equal(t, float32(0.2), cfg.Ch)
	assert.Equal(t, 10, cfg.WalkableHeight)
	assert.Equal(t, 4, cfg.WalkableClimb)
	assert.Equal(t, 2, cfg.WalkableRadius)
	assert.Equal(t, uint8(RC_WALKABLE_AREA), cfg.WalkableAreaID)
	assert.Equal(t, 40, cfg.MaxEdgeLen)
	assert.Equal(t, 64, cfg.MinRegionArea)
	assert.Equal(t, 400, cfg.MergeRegionArea)
	assert.Equal(t, 6, cfg.MaxVertsPerPoly)
	assert.Equal(t, cfg.WalkableClimb, cfg.FlagMergeThreshold)
	assert.Equal(t, RC_CONTOUR_TESS_WALL_EDGES, cfg.ContourFlags)
	assert.False(t, cfg.HasBounds())
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := RcParseConfig([]byte(`
cs: 0.5
walkable_height: 12
bmin: [0, -1, 0]
bmax: [10, 2, 10]
filter_ledge_spans: false
`))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), cfg.Cs)
	assert.Equal(t, 12, cfg.WalkableHeight)
	assert.Equal(t, [3]float32{0, -1, 0}, cfg.Bmin)
	assert.Equal(t, [3]float32{10, 2, 10}, cfg.Bmax)
	assert.True(t, cfg.HasBounds())
	assert.False(t, cfg.FilterLedgeSpans)

	// Untouched fields keep their defaults.
	assert.Equal(t, float32(0.2), cfg.Ch)
	assert.Equal(t, 4, cfg.WalkableClimb)
	assert.True(t, cfg.FilterLowHangingObstacles)
}

func TestParseConfigReportsEveryProblem(t *testing.T) {
	_, err := RcParseConfig([]byte(`
cs: 0
walkable_height: 0
max_verts_per_poly: 2
walkable_area_id: 0
contour_flags: 8
`))
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 5)
	for _, e := range errs {
		assert.ErrorIs(t, e, ErrInvalidParam)
	}
	assert.ErrorContains(t, err, "cs 0 <= 0")
	assert.ErrorContains(t, err, "max_verts_per_poly 2 < 3")
	assert.ErrorContains(t, err, "walkable_height 0 < 1")
}

func TestValidateWalkableHeightAndGrid(t *testing.T) {
	cfg := DefaultRcConfig()
	cfg.WalkableHeight = 2
	assert.NoError(t, cfg.Validate())

	cfg.WalkableHeight = 1
	assert.NoError(t, cfg.Validate())

	cfg = DefaultRcConfig()
	cfg.Width = 33
	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, validationErrors(err), 1)
	assert.ErrorContains(t, err, "grid 33x0")

	cfg.Height = 12
	assert.NoError(t, cfg.Validate())
}

func TestValidateBounds(t *testing.T) {
	cfg := DefaultRcConfig()
	cfg.Bmin = [3]float32{0, 5, 0}
	cfg.Bmax = [3]float32{1, 1, 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, validationErrors(err), 1)
	assert.ErrorContains(t, err, "bmin[1]")

	cfg = DefaultRcConfig()
	cfg.WalkableSlopeAngle = 90
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidParam)
	assert.Nil(t, validationErrors(nil))
}

func TestParseConfigBadYAML(t *testing.T) {
	_, err := RcParseConfig([]byte("cs: [1, 2"))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "build.yaml")
	require.NoError(t, os.WriteFile(p, []byte("min_region_area: 3\n"), 0o644))

	cfg, err := RcLoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MinRegionArea)

	_, err = RcLoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
