package recast

import (
	"fmt"

	"go.uber.org/zap"
)

// RcBuildStage is a step of the navmesh build state machine.
type RcBuildStage int

const (
	RC_STAGE_CREATE_HEIGHTFIELD RcBuildStage = iota
	RC_STAGE_RASTERIZE
	RC_STAGE_FILTER_BORDERS
	RC_STAGE_FILTER_LOW_HEIGHT
	RC_STAGE_BUILD_COMPACT
	RC_STAGE_BUILD_DISTANCE_FIELD
	RC_STAGE_BUILD_REGIONS
	RC_STAGE_BUILD_CONTOURS
	RC_STAGE_BUILD_POLYMESH
	RC_STAGE_DONE
	RC_STAGE_FAILED
)

var rcStageNames = [...]string{
	RC_STAGE_CREATE_HEIGHTFIELD:   "CreateHeightfield",
	RC_STAGE_RASTERIZE:            "Rasterize",
	RC_STAGE_FILTER_BORDERS:       "FilterBorders",
	RC_STAGE_FILTER_LOW_HEIGHT:    "FilterLowHeight",
	RC_STAGE_BUILD_COMPACT:        "BuildCompact",
	RC_STAGE_BUILD_DISTANCE_FIELD: "BuildDistanceField",
	RC_STAGE_BUILD_REGIONS:        "BuildRegions",
	RC_STAGE_BUILD_CONTOURS:       "BuildContours",
	RC_STAGE_BUILD_POLYMESH:       "BuildPolyMesh",
	RC_STAGE_DONE:                 "Done",
	RC_STAGE_FAILED:               "Failed",
}

func (s RcBuildStage) String() string {
	if s < 0 || int(s) >= len(rcStageNames) {
		return fmt.Sprintf("RcBuildStage(%d)", int(s))
	}
	return rcStageNames[s]
}

type (
	RcRasterizeFunc     func(ctx *RcContext, verts []float32, tris []int32, areas []uint8, hf *RcHeightfield, flagMergeThreshold int) error
	RcSpanFilterFunc    func(ctx *RcContext, walkableHeight, walkableClimb int, hf *RcHeightfield) error
	RcBuildCompactFunc  func(ctx *RcContext, walkableHeight, walkableClimb int, area uint8, hf *RcHeightfield) (*RcCompactHeightfield, error)
	RcErodeFunc         func(ctx *RcContext, radius int, chf *RcCompactHeightfield) error
	RcDistanceFieldFunc func(ctx *RcContext, chf *RcCompactHeightfield) error
	RcRegionsFunc       func(ctx *RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) error
	RcContoursFunc      func(ctx *RcContext, chf *RcCompactHeightfield, maxError float32, maxEdgeLen, buildFlags int) (*RcContourSet, error)
	RcPolyMeshFunc      func(ctx *RcContext, cset *RcContourSet, nvp int) (*RcPolyMesh, error)
)

// RcBuildStages holds the collaborators run by RcNavMeshBuilder. A nil field
// falls back to the default implementation.
type RcBuildStages struct {
	Rasterize          RcRasterizeFunc
	FilterBorders      RcSpanFilterFunc
	FilterLowHeight    RcSpanFilterFunc
	BuildCompact       RcBuildCompactFunc
	Erode              RcErodeFunc
	BuildDistanceField RcDistanceFieldFunc
	BuildRegions       RcRegionsFunc
	BuildContours      RcContoursFunc
	BuildPolyMesh      RcPolyMeshFunc
}

// RcBorderFilter returns a span filter running the selected border filters.
func RcBorderFilter(lowHangingObstacles, ledgeSpans bool) RcSpanFilterFunc {
	return func(ctx *RcContext, walkableHeight, walkableClimb int, hf *RcHeightfield) error {
		if hf == nil {
			return fmt.Errorf("%w: nil heightfield", ErrInvalidParam)
		}
		if lowHangingObstacles {
			RcFilterLowHangingWalkableObstacles(ctx, walkableClimb, hf)
		}
		if ledgeSpans {
			RcFilterLedgeSpans(ctx, walkableHeight, walkableClimb, hf)
		}
		return nil
	}
}

// RcLowHeightFilter returns a span filter removing spans without walkableHeight clearance.
func RcLowHeightFilter(enabled bool) RcSpanFilterFunc {
	return func(ctx *RcContext, walkableHeight, _ int, hf *RcHeightfield) error {
		if hf == nil {
			return fmt.Errorf("%w: nil heightfield", ErrInvalidParam)
		}
		if enabled {
			RcFilterWalkableLowHeightSpans(ctx, walkableHeight, hf)
		}
		return nil
	}
}

func DefaultRcBuildStages() RcBuildStages {
	return RcBuildStages{
		Rasterize:          RcRasterizeTriangles,
		FilterBorders:      RcBorderFilter(true, true),
		FilterLowHeight:    RcLowHeightFilter(true),
		BuildCompact:       RcBuildCompactHeightfield,
		Erode:              RcErodeWalkableArea,
		BuildDistanceField: RcBuildDistanceField,
		BuildRegions:       RcBuildRegions,
		BuildContours:      RcBuildContours,
		BuildPolyMesh:      RcBuildPolyMesh,
	}
}

// rcStagesForConfig fills the unset stages, honouring the filter switches of cfg.
func rcStagesForConfig(cfg *RcConfig, stages *RcBuildStages) RcBuildStages {
	out := DefaultRcBuildStages()
	out.FilterBorders = RcBorderFilter(cfg.FilterLowHangingObstacles, cfg.FilterLedgeSpans)
	out.FilterLowHeight = RcLowHeightFilter(cfg.FilterWalkableLowHeightSpans)
	if stages == nil {
		return out
	}
	if stages.Rasterize != nil {
		out.Rasterize = stages.Rasterize
	}
	if stages.FilterBorders != nil {
		out.FilterBorders = stages.FilterBorders
	}
	if stages.FilterLowHeight != nil {
		out.FilterLowHeight = stages.FilterLowHeight
	}
	if stages.BuildCompact != nil {
		out.BuildCompact = stages.BuildCompact
	}
	if stages.Erode != nil {
		out.Erode = stages.Erode
	}
	if stages.BuildDistanceField != nil {
		out.BuildDistanceField = stages.BuildDistanceField
	}
	if stages.BuildRegions != nil {
		out.BuildRegions = stages.BuildRegions
	}
	if stages.BuildContours != nil {
		out.BuildContours = stages.BuildContours
	}
	if stages.BuildPolyMesh != nil {
		out.BuildPolyMesh = stages.BuildPolyMesh
	}
	return out
}

// RcNavMeshResult holds every structure produced by a build. After a failure
// it holds the structures built before the failing stage.
type RcNavMeshResult struct {
	Config       RcConfig
	TriAreas     []uint8
	Heightfield  *RcHeightfield
	Compact      *RcCompactHeightfield
	Contours     *RcContourSet
	PolyMesh     *RcPolyMesh
	Stage        RcBuildStage
	FailedStage  RcBuildStage
	Failed       bool
	FailureCause error
}

// RcNavMeshBuilder runs the build stages once, in order, stopping at the
// first failure.
type RcNavMeshBuilder struct {
	ctx    *RcContext
	cfg    RcConfig
	stages RcBuildStages
	state  RcBuildStage
	failed RcBuildStage
	used   bool
}

// NewRcNavMeshBuilder creates a builder. stages may be nil or partially set.
func NewRcNavMeshBuilder(ctx *RcContext, cfg RcConfig, stages *RcBuildStages) *RcNavMeshBuilder {
	return &RcNavMeshBuilder{
		ctx:    ctx,
		cfg:    cfg,
		stages: rcStagesForConfig(&cfg, stages),
		state:  RC_STAGE_CREATE_HEIGHTFIELD,
		failed: RC_STAGE_DONE,
	}
}

func (b *RcNavMeshBuilder) State() RcBuildStage {
	return b.state
}

// FailedStage returns the stage that failed, if the build failed.
func (b *RcNavMeshBuilder) FailedStage() (RcBuildStage, bool) {
	return b.failed, b.state == RC_STAGE_FAILED
}

func (b *RcNavMeshBuilder) enter(res *RcNavMeshResult, stage RcBuildStage) {
	b.state = stage
	res.Stage = stage
	b.ctx.Logger().Debug("navmesh build stage", zap.Stringer("stage", stage))
}

func (b *RcNavMeshBuilder) fail(res *RcNavMeshResult, err error) (*RcNavMeshResult, error) {
	b.failed = b.state
	b.state = RC_STAGE_FAILED
	res.Stage = RC_STAGE_FAILED
	res.FailedStage = b.failed
	res.Failed = true
	res.FailureCause = err
	b.ctx.Error("navmesh build failed", zap.Stringer("stage", b.failed), zap.Error(err))
	return res, &RcStageError{Stage: b.failed, Err: err}
}

// prepare validates the input and fills the derived config values.
func (b *RcNavMeshBuilder) prepare(res *RcNavMeshResult, verts []float32, tris []int32, areas []uint8) error {
	cfg := &res.Config
	if err := cfg.Validate(); err != nil {
		for _, e := range validationErrors(err) {
			b.ctx.Warning("invalid build config", zap.Error(e))
		}
		return err
	}
	if len(verts) == 0 || len(verts)%3 != 0 {
		return fmt.Errorf("%w: vertex buffer length %d", ErrInvalidParam, len(verts))
	}
	if len(tris)%3 != 0 {
		return fmt.Errorf("%w: triangle index buffer length %d", ErrInvalidParam, len(tris))
	}
	ntris := len(tris) / 3

	if !cfg.HasBounds() {
		cfg.Bmin, cfg.Bmax = RcCalcBounds(verts)
	}
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = RcCalcGridSize(cfg.Bmin, cfg.Bmax, cfg.Cs)
		if cfg.BorderSize > 0 {
			pad := float32(cfg.BorderSize) * cfg.Cs
			cfg.Bmin[0] -= pad
			cfg.Bmin[2] -= pad
			cfg.Bmax[0] += pad
			cfg.Bmax[2] += pad
			cfg.Width += cfg.BorderSize * 2
			cfg.Height += cfg.BorderSize * 2
		}
	}

	if areas == nil {
		marked, err := rcAlloc[uint8]("triareas", ntris)
		if err != nil {
			return err
		}
		RcMarkWalkableTriangles(cfg.WalkableSlopeAngle, verts, tris, marked)
		if cfg.WalkableAreaID != RC_WALKABLE_AREA {
			for i, a := range marked {
				if a == RC_WALKABLE_AREA {
					marked[i] = cfg.WalkableAreaID
				}
			}
		}
		areas = marked
	}
	if len(areas) != ntris {
		return fmt.Errorf("%w: %d area ids for %d triangles", ErrInvalidParam, len(areas), ntris)
	}
	res.TriAreas = areas
	return nil
}

// Build runs the pipeline over the triangle soup. areas may be nil, in which
// case triangles are classified by slope.
func (b *RcNavMeshBuilder) Build(verts []float32, tris []int32, areas []uint8) (*RcNavMeshResult, error) {
	if b.used {
		return nil, ErrBuilderUsed
	}
	b.used = true
	defer rcScopedTimer(b.ctx, RC_TIMER_TOTAL)()

	res := &RcNavMeshResult{Config: b.cfg, FailedStage: RC_STAGE_DONE}
	cfg := &res.Config
	ctx := b.ctx
	st := &b.stages

	//
	// Step 1. Create the heightfield.
	//
	b.enter(res, RC_STAGE_CREATE_HEIGHTFIELD)
	if err := b.prepare(res, verts, tris, areas); err != nil {
		return b.fail(res, err)
	}
	ctx.Progress("building navigation",
		zap.Int("width", cfg.Width), zap.Int("height", cfg.Height),
		zap.Int("verts", len(verts)/3), zap.Int("tris", len(tris)/3))
	hf, err := RcCreateHeightfield(cfg.Width, cfg.Height, cfg.Bmin, cfg.Bmax, cfg.Cs, cfg.Ch)
	if err != nil {
		return b.fail(res, err)
	}
	res.Heightfield = hf

	//
	// Step 2. Rasterize input polygon soup.
	//
	b.enter(res, RC_STAGE_RASTERIZE)
	if err := st.Rasterize(ctx, verts, tris, res.TriAreas, hf, cfg.FlagMergeThreshold); err != nil {
		return b.fail(res, err)
	}

	//
	// Step 3. Filter walkable surfaces.
	//
	b.enter(res, RC_STAGE_FILTER_BORDERS)
	if err := st.FilterBorders(ctx, cfg.WalkableHeight, cfg.WalkableClimb, hf); err != nil {
		return b.fail(res, err)
	}
	b.enter(res, RC_STAGE_FILTER_LOW_HEIGHT)
	if err := st.FilterLowHeight(ctx, cfg.WalkableHeight, cfg.WalkableClimb, hf); err != nil {
		return b.fail(res, err)
	}

	//
	// Step 4. Compact the heightfield and erode it by the agent radius.
	//
	b.enter(res, RC_STAGE_BUILD_COMPACT)
	chf, err := st.BuildCompact(ctx, cfg.WalkableHeight, cfg.WalkableClimb, cfg.WalkableAreaID, hf)
	if err == nil && chf == nil {
		err = fmt.Errorf("%w: compaction returned no heightfield", ErrInvalidParam)
	}
	if err != nil {
		return b.fail(res, err)
	}
	res.Compact = chf
	if cfg.WalkableRadius > 0 {
		if err := st.Erode(ctx, cfg.WalkableRadius, chf); err != nil {
			return b.fail(res, err)
		}
	}

	//
	// Step 5. Partition the walkable surface into simple regions.
	//
	b.enter(res, RC_STAGE_BUILD_DISTANCE_FIELD)
	if err := st.BuildDistanceField(ctx, chf); err != nil {
		return b.fail(res, err)
	}
	b.enter(res, RC_STAGE_BUILD_REGIONS)
	if err := st.BuildRegions(ctx, chf, cfg.BorderSize, cfg.MinRegionArea, cfg.MergeRegionArea); err != nil {
		return b.fail(res, err)
	}

	//
	// Step 6. Trace and simplify region contours.
	//
	b.enter(res, RC_STAGE_BUILD_CONTOURS)
	cset, err := st.BuildContours(ctx, chf, cfg.MaxSimplificationError, cfg.MaxEdgeLen, cfg.ContourFlags)
	if err == nil && cset == nil {
		err = fmt.Errorf("%w: contour stage returned no contours", ErrInvalidParam)
	}
	if err != nil {
		return b.fail(res, err)
	}
	res.Contours = cset

	//
	// Step 7. Build polygons mesh from contours.
	//
	b.enter(res, RC_STAGE_BUILD_POLYMESH)
	pmesh, err := st.BuildPolyMesh(ctx, cset, cfg.MaxVertsPerPoly)
	if err == nil && pmesh == nil {
		err = fmt.Errorf("%w: poly mesh stage returned no mesh", ErrInvalidParam)
	}
	if err != nil {
		return b.fail(res, err)
	}
	res.PolyMesh = pmesh

	b.enter(res, RC_STAGE_DONE)
	ctx.Progress("navigation built",
		zap.Int("regions", int(chf.MaxRegions)),
		zap.Int("contours", len(cset.Conts)),
		zap.Int("polys", pmesh.NPolys), zap.Int("verts", pmesh.NVerts))
	return res, nil
}

// RcBuildNavMesh runs a single build with the default stages.
func RcBuildNavMesh(ctx *RcContext, cfg RcConfig, verts []float32, tris []int32, areas []uint8) (*RcNavMeshResult, error) {
	return NewRcNavMeshBuilder(ctx, cfg, nil).Build(verts, tris, areas)
}
