package recast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

// tickingClock advances by step on every read.
func tickingClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestNilContextIsSafe(t *testing.T) {
	var ctx *RcContext
	assert.NotPanics(t, func() {
		ctx.Progress("progress")
		ctx.Warning("warning")
		ctx.Error("error")
		ctx.StartTimer(RC_TIMER_TOTAL)
		ctx.StopTimer(RC_TIMER_TOTAL)
		rcScopedTimer(ctx, RC_TIMER_TEMP)()
	})
	assert.NotNil(t, ctx.Logger())
}

func TestContextTimers(t *testing.T) {
	times := &RcBuildTimes{}
	ctx := NewRcContext(nil, times)
	ctx.now = tickingClock(time.Millisecond)

	ctx.StartTimer(RC_TIMER_BUILD_REGIONS)
	ctx.StopTimer(RC_TIMER_BUILD_REGIONS)
	ctx.StartTimer(RC_TIMER_BUILD_REGIONS)
	ctx.StopTimer(RC_TIMER_BUILD_REGIONS)
	assert.Equal(t, 2*time.Millisecond, times.Get(RC_TIMER_BUILD_REGIONS))

	// Stopping a timer that never started adds nothing.
	ctx.StopTimer(RC_TIMER_BUILD_CONTOURS)
	assert.Zero(t, times.Get(RC_TIMER_BUILD_CONTOURS))

	stop := rcScopedTimer(ctx, RC_TIMER_TEMP)
	stop()
	assert.Equal(t, time.Millisecond, times.Get(RC_TIMER_TEMP))

	// Out of range labels are ignored.
	ctx.StartTimer(RC_MAX_TIMERS)
	ctx.StopTimer(-1)
	times.AddTime(RC_MAX_TIMERS, time.Second)
	assert.Zero(t, times.Get(RC_MAX_TIMERS))
}

func TestContextWithoutSinkSkipsTiming(t *testing.T) {
	ctx := NewRcContext(nil, nil)
	ctx.StartTimer(RC_TIMER_TOTAL)
	assert.True(t, ctx.starts[RC_TIMER_TOTAL].IsZero())
}

func TestContextLogLevels(t *testing.T) {
	ctx, logs := observedContext()
	ctx.Progress("p")
	ctx.Warning("w")
	ctx.Error("e")

	entries := logs.All()
	assert.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestTimerLabelNames(t *testing.T) {
	assert.Equal(t, "total", RC_TIMER_TOTAL.String())
	assert.Equal(t, "erodeArea", RC_TIMER_ERODE_AREA.String())
	assert.Equal(t, "unknown", RC_MAX_TIMERS.String())
	for l := RcTimerLabel(0); l < RC_MAX_TIMERS; l++ {
		assert.NotEmpty(t, l.String())
	}
}
