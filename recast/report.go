package recast

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gorustyt/gonavvoxel/common/message"
)

// RcBuildReport summarises a build for logging and export.
type RcBuildReport struct {
	Width, Height   int
	SolidSpans      int
	CompactSpans    int
	MaxDistance     int
	Regions         int
	Contours        int
	PolyVerts       int
	Polys           int
	HeightfieldSize int
	CompactSize     int
	Stage           RcBuildStage
	FailedStage     string
	Error           string
	Timings         map[string]float64 // milliseconds per timer label
}

// NewRcBuildReport collects the counts of res and the non-zero timers of times.
// Either argument may be nil.
func NewRcBuildReport(res *RcNavMeshResult, times *RcBuildTimes) *RcBuildReport {
	r := &RcBuildReport{Timings: map[string]float64{}}
	if res != nil {
		r.Width = res.Config.Width
		r.Height = res.Config.Height
		r.Stage = res.Stage
		if res.Failed {
			r.FailedStage = res.FailedStage.String()
			if res.FailureCause != nil {
				r.Error = res.FailureCause.Error()
			}
		}
		if hf := res.Heightfield; hf != nil {
			r.SolidSpans = hf.SpanCount(res.Config.WalkableAreaID)
			r.HeightfieldSize = hf.MemoryUsage()
		}
		if chf := res.Compact; chf != nil {
			r.CompactSpans = chf.SpanCount
			r.MaxDistance = int(chf.MaxDistance)
			r.Regions = int(chf.MaxRegions)
			r.CompactSize = chf.MemoryUsage()
		}
		if res.Contours != nil {
			r.Contours = len(res.Contours.Conts)
		}
		if pm := res.PolyMesh; pm != nil {
			r.PolyVerts = pm.NVerts
			r.Polys = pm.NPolys
		}
	}
	if times != nil {
		for l := RcTimerLabel(0); l < RC_MAX_TIMERS; l++ {
			if d := times.Get(l); d > 0 {
				r.Timings[l.String()] = float64(d.Microseconds()) / 1000
			}
		}
	}
	return r
}

func (r *RcBuildReport) ToProto() (*structpb.Struct, error) {
	timings := make(map[string]any, len(r.Timings))
	for k, v := range r.Timings {
		timings[k] = v
	}
	fields := map[string]any{
		"width":            r.Width,
		"height":           r.Height,
		"solid_spans":      r.SolidSpans,
		"compact_spans":    r.CompactSpans,
		"max_distance":     r.MaxDistance,
		"regions":          r.Regions,
		"contours":         r.Contours,
		"poly_verts":       r.PolyVerts,
		"polys":            r.Polys,
		"heightfield_size": r.HeightfieldSize,
		"compact_size":     r.CompactSize,
		"stage":            r.Stage.String(),
		"timings_ms":       timings,
	}
	if r.FailedStage != "" {
		fields["failed_stage"] = r.FailedStage
		fields["error"] = r.Error
	}
	return structpb.NewStruct(fields)
}

// Marshal encodes the report as a deterministic protobuf Struct.
func (r *RcBuildReport) Marshal() ([]byte, error) {
	s, err := r.ToProto()
	if err != nil {
		return nil, err
	}
	return message.Encode(s)
}
