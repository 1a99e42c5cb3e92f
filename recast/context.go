package recast

import (
	"time"

	"go.uber.org/zap"
)

type RcTimerLabel int

const (
	RC_TIMER_TOTAL RcTimerLabel = iota
	RC_TIMER_TEMP
	RC_TIMER_RASTERIZE_TRIANGLES
	RC_TIMER_BUILD_COMPACTHEIGHTFIELD
	RC_TIMER_BUILD_CONTOURS
	RC_TIMER_BUILD_CONTOURS_TRACE
	RC_TIMER_BUILD_CONTOURS_SIMPLIFY
	RC_TIMER_FILTER_BORDER
	RC_TIMER_FILTER_WALKABLE
	RC_TIMER_BUILD_POLYMESH
	RC_TIMER_BUILD_DISTANCEFIELD
	RC_TIMER_BUILD_DISTANCEFIELD_DIST
	RC_TIMER_BUILD_DISTANCEFIELD_BLUR
	RC_TIMER_BUILD_REGIONS
	RC_TIMER_BUILD_REGIONS_WATERSHED
	RC_TIMER_BUILD_REGIONS_EXPAND
	RC_TIMER_BUILD_REGIONS_FLOOD
	RC_TIMER_BUILD_REGIONS_FILTER
	RC_TIMER_ERODE_AREA
	RC_MAX_TIMERS
)

var rcTimerNames = [RC_MAX_TIMERS]string{
	"total",
	"temp",
	"rasterizeTriangles",
	"buildCompactHeightfield",
	"buildContours",
	"buildContoursTrace",
	"buildContoursSimplify",
	"filterBorder",
	"filterWalkable",
	"buildPolymesh",
	"buildDistanceField",
	"buildDistanceFieldDist",
	"buildDistanceFieldBlur",
	"buildRegions",
	"buildRegionsWatershed",
	"buildRegionsExpand",
	"buildRegionsFlood",
	"buildRegionsFilter",
	"erodeArea",
}

func (l RcTimerLabel) String() string {
	if l < 0 || l >= RC_MAX_TIMERS {
		return "unknown"
	}
	return rcTimerNames[l]
}

// RcTimerSink receives the elapsed time of every stopped timer.
type RcTimerSink interface {
	AddTime(label RcTimerLabel, d time.Duration)
}

// RcBuildTimes accumulates timer durations per label.
type RcBuildTimes struct {
	Times [RC_MAX_TIMERS]time.Duration
}

func (t *RcBuildTimes) AddTime(label RcTimerLabel, d time.Duration) {
	if label < 0 || label >= RC_MAX_TIMERS {
		return
	}
	t.Times[label] += d
}

func (t *RcBuildTimes) Get(label RcTimerLabel) time.Duration {
	if label < 0 || label >= RC_MAX_TIMERS {
		return 0
	}
	return t.Times[label]
}

// RcContext carries logging and timing through a build. A nil *RcContext is
// valid and discards everything.
type RcContext struct {
	logger *zap.Logger
	timers RcTimerSink
	starts [RC_MAX_TIMERS]time.Time
	now    func() time.Time
}

func NewRcContext(logger *zap.Logger, timers RcTimerSink) *RcContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RcContext{logger: logger, timers: timers, now: time.Now}
}

func (ctx *RcContext) Logger() *zap.Logger {
	if ctx == nil || ctx.logger == nil {
		return zap.NewNop()
	}
	return ctx.logger
}

func (ctx *RcContext) Progress(msg string, fields ...zap.Field) {
	ctx.Logger().Info(msg, fields...)
}

func (ctx *RcContext) Warning(msg string, fields ...zap.Field) {
	ctx.Logger().Warn(msg, fields...)
}

func (ctx *RcContext) Error(msg string, fields ...zap.Field) {
	ctx.Logger().Error(msg, fields...)
}

func (ctx *RcContext) StartTimer(label RcTimerLabel) {
	if ctx == nil || ctx.timers == nil || label < 0 || label >= RC_MAX_TIMERS {
		return
	}
	ctx.starts[label] = ctx.now()
}

func (ctx *RcContext) StopTimer(label RcTimerLabel) {
	if ctx == nil || ctx.timers == nil || label < 0 || label >= RC_MAX_TIMERS {
		return
	}
	start := ctx.starts[label]
	if start.IsZero() {
		return
	}
	ctx.timers.AddTime(label, ctx.now().Sub(start))
	ctx.starts[label] = time.Time{}
}

// rcScopedTimer starts label and returns the matching stop, for use with defer.
func rcScopedTimer(ctx *RcContext, label RcTimerLabel) func() {
	ctx.StartTimer(label)
	return func() { ctx.StopTimer(label) }
}
