package recast

import (
	"fmt"
	"math"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// / Specifies a configuration to use when performing Recast builds.
type RcConfig struct {
	/// The width of the field along the x-axis. [Limit: >= 0] [Units: vx]
	/// Derived from the bounds when zero.
	Width int `yaml:"width"`

	/// The height of the field along the z-axis. [Limit: >= 0] [Units: vx]
	Height int `yaml:"height"`

	/// The size of the non-navigable border around the heightfield. [Limit: >=0] [Units: vx]
	BorderSize int `yaml:"border_size"`

	/// The xz-plane cell size to use for fields. [Limit: > 0] [Units: wu]
	Cs float32 `yaml:"cs"`

	/// The y-axis cell size to use for fields. [Limit: > 0] [Units: wu]
	Ch float32 `yaml:"ch"`

	/// The minimum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	/// Computed from the input vertices when both bounds are zero.
	Bmin [3]float32 `yaml:"bmin,flow"`

	/// The maximum bounds of the field's AABB. [(x, y, z)] [Units: wu]
	Bmax [3]float32 `yaml:"bmax,flow"`

	/// The maximum slope that is considered walkable. [Limits: 0 <= value < 90] [Units: Degrees]
	WalkableSlopeAngle float32 `yaml:"walkable_slope_angle"`

	/// Minimum floor to 'ceiling' height that will still allow the floor area to
	/// be considered walkable. [Limit: >= 1] [Units: vx]
	WalkableHeight int `yaml:"walkable_height"`

	/// Maximum ledge height that is considered to still be traversable. [Limit: >=0] [Units: vx]
	WalkableClimb int `yaml:"walkable_climb"`

	/// The distance to erode/shrink the walkable area of the heightfield away from
	/// obstructions.  [Limit: >=0] [Units: vx]
	WalkableRadius int `yaml:"walkable_radius"`

	/// The area id of the spans kept by compaction. [Limit: 1..RC_WALKABLE_AREA]
	WalkableAreaID uint8 `yaml:"walkable_area_id"`

	/// The maximum allowed length for contour edges along the border of the mesh. [Limit: >=0] [Units: vx]
	MaxEdgeLen int `yaml:"max_edge_len"`

	/// The maximum distance a simplified contour's border edges should deviate
	/// the original raw contour. [Limit: >=0] [Units: vx]
	MaxSimplificationError float32 `yaml:"max_simplification_error"`

	/// The minimum number of cells allowed to form isolated island areas. [Limit: >=0] [Units: vx]
	MinRegionArea int `yaml:"min_region_area"`

	/// Any regions with a span count smaller than this value will, if possible,
	/// be merged with larger regions. [Limit: >=0] [Units: vx]
	MergeRegionArea int `yaml:"merge_region_area"`

	/// The maximum number of vertices allowed for polygons generated during the
	/// contour to polygon conversion process. [Limit: >= 3]
	MaxVertsPerPoly int `yaml:"max_verts_per_poly"`

	/// Spans whose tops are within this distance are merged during rasterization. [Limit: >=0] [Units: vx]
	FlagMergeThreshold int `yaml:"flag_merge_threshold"`

	/// Tessellation flags passed to contour building (RC_CONTOUR_TESS_*).
	ContourFlags int `yaml:"contour_flags"`

	FilterLowHangingObstacles    bool `yaml:"filter_low_hanging_obstacles"`
	FilterLedgeSpans             bool `yaml:"filter_ledge_spans"`
	FilterWalkableLowHeightSpans bool `yaml:"filter_walkable_low_height_spans"`
}

// DefaultRcConfig returns the settings of a 2 unit tall, 0.6 unit wide agent
// on a 0.3 x 0.2 voxel grid.
func DefaultRcConfig() RcConfig {
	const (
		cellSize        = 0.3
		cellHeight      = 0.2
		agentHeight     = 2.0
		agentMaxClimb   = 0.9
		agentRadius     = 0.6
		edgeMaxLen      = 12.0
		regionMinSize   = 8
		regionMergeSize = 20
	)
	climb := int(math.Floor(agentMaxClimb / cellHeight))
	return RcConfig{
		Cs:                           cellSize,
		Ch:                           cellHeight,
		WalkableSlopeAngle:           45,
		WalkableHeight:               int(math.Ceil(agentHeight / cellHeight)),
		WalkableClimb:                climb,
		WalkableRadius:               int(math.Ceil(agentRadius / cellSize)),
		WalkableAreaID:               RC_WALKABLE_AREA,
		MaxEdgeLen:                   int(edgeMaxLen / cellSize),
		MaxSimplificationError:       1.3,
		MinRegionArea:                regionMinSize * regionMinSize,
		MergeRegionArea:              regionMergeSize * regionMergeSize,
		MaxVertsPerPoly:              6,
		FlagMergeThreshold:           climb,
		ContourFlags:                 RC_CONTOUR_TESS_WALL_EDGES,
		FilterLowHangingObstacles:    true,
		FilterLedgeSpans:             true,
		FilterWalkableLowHeightSpans: true,
	}
}

// RcParseConfig decodes YAML over the defaults and validates the result.
func RcParseConfig(data []byte) (RcConfig, error) {
	cfg := DefaultRcConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func RcLoadConfig(path string) (RcConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultRcConfig(), fmt.Errorf("load config: %w", err)
	}
	return RcParseConfig(data)
}

// Validate reports every out of range parameter at once.
func (cfg *RcConfig) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalidParam}, args...)...))
		}
	}
	check(cfg.Width >= 0, "width %d < 0", cfg.Width)
	check(cfg.Height >= 0, "height %d < 0", cfg.Height)
	check((cfg.Width == 0) == (cfg.Height == 0), "grid %dx%d: width and height must both be set or both be 0", cfg.Width, cfg.Height)
	check(cfg.BorderSize >= 0, "border_size %d < 0", cfg.BorderSize)
	check(cfg.Cs > 0, "cs %v <= 0", cfg.Cs)
	check(cfg.Ch > 0, "ch %v <= 0", cfg.Ch)
	for i := 0; i < 3; i++ {
		check(cfg.Bmin[i] <= cfg.Bmax[i], "bmin[%d] %v > bmax[%d] %v", i, cfg.Bmin[i], i, cfg.Bmax[i])
	}
	check(cfg.WalkableSlopeAngle >= 0 && cfg.WalkableSlopeAngle < 90, "walkable_slope_angle %v outside [0, 90)", cfg.WalkableSlopeAngle)
	check(cfg.WalkableHeight >= 1, "walkable_height %d < 1", cfg.WalkableHeight)
	check(cfg.WalkableClimb >= 0, "walkable_climb %d < 0", cfg.WalkableClimb)
	check(cfg.WalkableRadius >= 0, "walkable_radius %d < 0", cfg.WalkableRadius)
	check(cfg.WalkableAreaID != RC_NULL_AREA && cfg.WalkableAreaID <= RC_WALKABLE_AREA,
		"walkable_area_id %d outside [1, %d]", cfg.WalkableAreaID, RC_WALKABLE_AREA)
	check(cfg.MaxEdgeLen >= 0, "max_edge_len %d < 0", cfg.MaxEdgeLen)
	check(cfg.MaxSimplificationError >= 0, "max_simplification_error %v < 0", cfg.MaxSimplificationError)
	check(cfg.MinRegionArea >= 0, "min_region_area %d < 0", cfg.MinRegionArea)
	check(cfg.MergeRegionArea >= 0, "merge_region_area %d < 0", cfg.MergeRegionArea)
	check(cfg.MaxVertsPerPoly >= 3, "max_verts_per_poly %d < 3", cfg.MaxVertsPerPoly)
	check(cfg.FlagMergeThreshold >= 0, "flag_merge_threshold %d < 0", cfg.FlagMergeThreshold)
	check(cfg.ContourFlags&^(RC_CONTOUR_TESS_WALL_EDGES|RC_CONTOUR_TESS_AREA_EDGES) == 0,
		"contour_flags %#x has unknown bits", cfg.ContourFlags)
	return err
}

// HasBounds reports whether the bounds were set explicitly.
func (cfg *RcConfig) HasBounds() bool {
	return cfg.Bmin != [3]float32{} || cfg.Bmax != [3]float32{}
}

// validationErrors splits an aggregated Validate error.
func validationErrors(err error) []error {
	if err == nil {
		return nil
	}
	return multierr.Errors(err)
}
