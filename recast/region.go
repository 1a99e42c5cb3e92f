package recast

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gorustyt/gonavvoxel/common"
)

// Region ids at or above this value would collide with RC_BORDER_REG.
const rcMaxRegionID = RC_BORDER_REG - 1

func calculateDistanceField(chf *RcCompactHeightfield, src []uint16) (maxDist uint16) {
	w := chf.Width
	h := chf.Height

	// Init distance and points.
	for i := range src {
		src[i] = 0xffff
	}

	// Mark boundary cells.
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				area := chf.Areas[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if ai, ok := chf.NeighborIndex(x, z, i, dir); ok && chf.Areas[ai] == area {
						nc++
					}
				}
				if nc != 4 {
					src[i] = 0
				}
			}
		}
	}

	rcChamferPasses(chf, src, 0xffff)

	for _, d := range src {
		maxDist = max(maxDist, d)
	}
	return maxDist
}

func boxBlur(chf *RcCompactHeightfield, thr int, src, dst []uint16) {
	w := chf.Width
	h := chf.Height

	thr *= 2

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				cd := int(src[i])
				if cd <= thr {
					dst[i] = src[i]
					continue
				}

				d := cd
				for dir := 0; dir < 4; dir++ {
					ai, ok := chf.NeighborIndex(x, z, i, dir)
					if !ok {
						d += cd * 2
						continue
					}
					d += int(src[ai])

					ax := x + common.GetDirOffsetX(dir)
					az := z + common.GetDirOffsetY(dir)
					dir2 := (dir + 1) & 0x3
					if ai2, ok := chf.NeighborIndex(ax, az, ai, dir2); ok {
						d += int(src[ai2])
					} else {
						d += cd
					}
				}
				dst[i] = uint16((d + 5) / 9)
			}
		}
	}
}

// RcBuildDistanceField computes the distance of every span to the nearest
// area boundary and stores it, smoothed, in chf.Dist.
func RcBuildDistanceField(ctx *RcContext, chf *RcCompactHeightfield) error {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_DISTANCEFIELD)()

	if chf == nil {
		return fmt.Errorf("%w: nil compact heightfield", ErrInvalidParam)
	}
	src, err := rcAlloc[uint16]("src", chf.SpanCount)
	if err != nil {
		ctx.Error("build distance field: out of memory", zap.String("buffer", "src"), zap.Int("count", chf.SpanCount))
		return err
	}
	dst, err := rcAlloc[uint16]("dst", chf.SpanCount)
	if err != nil {
		ctx.Error("build distance field: out of memory", zap.String("buffer", "dst"), zap.Int("count", chf.SpanCount))
		return err
	}

	ctx.StartTimer(RC_TIMER_BUILD_DISTANCEFIELD_DIST)
	chf.MaxDistance = calculateDistanceField(chf, src)
	ctx.StopTimer(RC_TIMER_BUILD_DISTANCEFIELD_DIST)

	ctx.StartTimer(RC_TIMER_BUILD_DISTANCEFIELD_BLUR)
	boxBlur(chf, 1, src, dst)
	ctx.StopTimer(RC_TIMER_BUILD_DISTANCEFIELD_BLUR)

	chf.Dist = dst
	return nil
}

func paintRectRegion(minx, maxx, minz, maxz int, regID uint16, chf *RcCompactHeightfield, srcReg []uint16) {
	for z := minz; z < maxz; z++ {
		for x := minx; x < maxx; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				if chf.Areas[i] != RC_NULL_AREA {
					srcReg[i] = regID
				}
			}
		}
	}
}

// floodRegion grows region r from span i over spans whose distance is at
// least level-2. Spans touching another region are left unclaimed.
func floodRegion(x, z, i int, level uint16, r uint16,
	chf *RcCompactHeightfield, srcReg, srcDist []uint16, stack *RcIntArray) (bool, error) {
	area := chf.Areas[i]

	// Flood fill mark region.
	stack.Clear()
	if err := pushLevelEntry(stack, x, z, i); err != nil {
		return false, err
	}
	srcReg[i] = r
	srcDist[i] = 0

	var lev uint16
	if level >= 2 {
		lev = level - 2
	}
	count := 0

	for stack.Len() > 0 {
		ci := stack.Pop()
		cz := stack.Pop()
		cx := stack.Pop()

		// Check if any of the neighbours already have a valid region set.
		var ar uint16
		for dir := 0; dir < 4 && ar == 0; dir++ {
			ai, ok := chf.NeighborIndex(cx, cz, ci, dir)
			if !ok || chf.Areas[ai] != area {
				continue
			}
			nr := srcReg[ai]
			if nr&RC_BORDER_REG != 0 {
				// Do not take borders into account.
				continue
			}
			if nr != 0 && nr != r {
				ar = nr
				break
			}

			// 8 connected
			ax := cx + common.GetDirOffsetX(dir)
			az := cz + common.GetDirOffsetY(dir)
			dir2 := (dir + 1) & 0x3
			if ai2, ok := chf.NeighborIndex(ax, az, ai, dir2); ok && chf.Areas[ai2] == area {
				nr2 := srcReg[ai2]
				if nr2 != 0 && nr2 != r && nr2&RC_BORDER_REG == 0 {
					ar = nr2
				}
			}
		}
		if ar != 0 {
			srcReg[ci] = 0
			continue
		}

		count++

		// Expand neighbours.
		for dir := 0; dir < 4; dir++ {
			ai, ok := chf.NeighborIndex(cx, cz, ci, dir)
			if !ok || chf.Areas[ai] != area {
				continue
			}
			if chf.Dist[ai] >= lev && srcReg[ai] == 0 {
				srcReg[ai] = r
				srcDist[ai] = 0
				if err := pushLevelEntry(stack, cx+common.GetDirOffsetX(dir), cz+common.GetDirOffsetY(dir), ai); err != nil {
					return false, err
				}
			}
		}
	}

	return count > 0, nil
}

func pushLevelEntry(stack *RcIntArray, x, z, i int) error {
	if err := stack.Push(x); err != nil {
		return err
	}
	if err := stack.Push(z); err != nil {
		return err
	}
	return stack.Push(i)
}

// Entries in the region table changed by one expansion sweep.
type dirtyEntry struct {
	index     int
	region    uint16
	distance2 uint16
}

// expandRegions grows existing regions into unclaimed spans whose distance
// is at least level. Above level 0 it gives up after maxIter sweeps.
func expandRegions(maxIter int, level uint16, chf *RcCompactHeightfield,
	srcReg, srcDist []uint16, stack *RcIntArray) error {
	w := chf.Width
	h := chf.Height

	// Find cells revealed by the raised level.
	stack.Clear()
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				if chf.Dist[i] >= level && srcReg[i] == 0 && chf.Areas[i] != RC_NULL_AREA {
					if err := pushLevelEntry(stack, x, z, i); err != nil {
						return err
					}
				}
			}
		}
	}

	var dirtyEntries []dirtyEntry
	iter := 0
	for stack.Len() > 0 {
		failed := 0
		dirtyEntries = dirtyEntries[:0]

		for j := 0; j < stack.Len(); j += 3 {
			x := stack.Index(j)
			z := stack.Index(j + 1)
			i := stack.Index(j + 2)
			if i < 0 {
				failed++
				continue
			}

			r := srcReg[i]
			var d2 uint16 = 0xffff
			area := chf.Areas[i]
			for dir := 0; dir < 4; dir++ {
				ai, ok := chf.NeighborIndex(x, z, i, dir)
				if !ok || chf.Areas[ai] != area {
					continue
				}
				if srcReg[ai] > 0 && srcReg[ai]&RC_BORDER_REG == 0 {
					if int(srcDist[ai])+2 < int(d2) {
						r = srcReg[ai]
						d2 = srcDist[ai] + 2
					}
				}
			}
			if r > 0 {
				stack.Set(j+2, -1) // mark as used
				dirtyEntries = append(dirtyEntries, dirtyEntry{index: i, region: r, distance2: d2})
			} else {
				failed++
			}
		}

		// Copy entries that differ between src and dst to keep them in sync.
		for _, e := range dirtyEntries {
			srcReg[e.index] = e.region
			srcDist[e.index] = e.distance2
		}

		if failed*3 == stack.Len() {
			break
		}

		if level > 0 {
			iter++
			if iter >= maxIter {
				break
			}
		}
	}
	return nil
}

type rcRegion struct {
	spanCount   int
	id          uint16
	areaType    uint8
	neighbours  map[uint16]struct{}
	touchBorder bool
}

// mergeAndFilterRegions removes isolated regions smaller than minRegionArea
// and folds regions smaller than mergeRegionArea into their smallest
// neighbour. It returns the number of surviving regions after compaction.
func mergeAndFilterRegions(ctx *RcContext, minRegionArea, mergeRegionArea int,
	maxRegionID uint16, chf *RcCompactHeightfield, srcReg []uint16) uint16 {
	nreg := int(maxRegionID) + 1
	regions := make([]rcRegion, nreg)
	for i := range regions {
		regions[i] = rcRegion{id: uint16(i), neighbours: map[uint16]struct{}{}}
	}

	// Gather span counts and adjacency.
	for z := 0; z < chf.Height; z++ {
		for x := 0; x < chf.Width; x++ {
			begin, end := chf.Cell(x, z).Range()
			for i := begin; i < end; i++ {
				r := srcReg[i]
				if r == 0 || r&RC_BORDER_REG != 0 {
					continue
				}
				reg := &regions[r]
				reg.spanCount++
				reg.areaType = chf.Areas[i]
				for dir := 0; dir < 4; dir++ {
					ai, ok := chf.NeighborIndex(x, z, i, dir)
					if !ok {
						continue
					}
					nr := srcReg[ai]
					switch {
					case nr&RC_BORDER_REG != 0:
						reg.touchBorder = true
					case nr != 0 && nr != r:
						reg.neighbours[nr] = struct{}{}
					}
				}
			}
		}
	}

	// Remove too small regions that are not connected to anything larger.
	visited := make([]bool, nreg)
	var trace []uint16
	for i := 1; i < nreg; i++ {
		reg := &regions[i]
		if reg.spanCount == 0 || visited[i] {
			continue
		}
		trace = trace[:0]
		stack := []uint16{uint16(i)}
		visited[i] = true
		spanCount := 0
		connectsToBorder := false
		for len(stack) > 0 {
			ri := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			creg := &regions[ri]
			spanCount += creg.spanCount
			connectsToBorder = connectsToBorder || creg.touchBorder
			trace = append(trace, ri)
			for n := range creg.neighbours {
				if visited[n] || regions[n].areaType != creg.areaType {
					continue
				}
				visited[n] = true
				stack = append(stack, n)
			}
		}
		if spanCount < minRegionArea && !connectsToBorder {
			for _, ri := range trace {
				regions[ri].spanCount = 0
				regions[ri].id = 0
			}
		}
	}

	// Merge too small regions to neighbour regions.
	for {
		mergeCount := 0
		for i := 1; i < nreg; i++ {
			reg := &regions[i]
			if reg.id == 0 || reg.id != uint16(i) || reg.spanCount == 0 {
				continue
			}
			if reg.spanCount >= mergeRegionArea {
				continue
			}

			// Find smallest neighbour region of the same area type.
			var mergeID uint16
			smallest := int(^uint(0) >> 1)
			for n := range reg.neighbours {
				nr := &regions[n]
				if nr.id == 0 || nr.id != n || nr.areaType != reg.areaType {
					continue
				}
				if nr.spanCount < smallest || (nr.spanCount == smallest && n < mergeID) {
					smallest = nr.spanCount
					mergeID = n
				}
			}
			if mergeID == 0 {
				continue
			}

			target := &regions[mergeID]
			target.spanCount += reg.spanCount
			target.touchBorder = target.touchBorder || reg.touchBorder
			for n := range reg.neighbours {
				if n != mergeID {
					target.neighbours[n] = struct{}{}
				}
			}
			delete(target.neighbours, uint16(i))
			reg.spanCount = 0
			reg.neighbours = map[uint16]struct{}{}

			// Fixup regions pointing to current region.
			oldID := uint16(i)
			for j := 1; j < nreg; j++ {
				other := &regions[j]
				if other.id == oldID {
					other.id = mergeID
				}
				if _, ok := other.neighbours[oldID]; ok && uint16(j) != mergeID {
					delete(other.neighbours, oldID)
					other.neighbours[mergeID] = struct{}{}
				}
			}
			mergeCount++
		}
		if mergeCount == 0 {
			break
		}
	}

	// Compress region ids.
	live := make([]uint16, 0, nreg)
	for i := 1; i < nreg; i++ {
		if regions[i].id == uint16(i) && regions[i].spanCount > 0 {
			live = append(live, uint16(i))
		}
	}
	sort.Slice(live, func(a, b int) bool { return live[a] < live[b] })
	newIDs := make([]uint16, nreg)
	for k, id := range live {
		newIDs[id] = uint16(k + 1)
	}

	// Remap regions.
	for i := range srcReg {
		r := srcReg[i]
		if r == 0 || r&RC_BORDER_REG != 0 {
			continue
		}
		srcReg[i] = newIDs[regions[r].id]
	}

	ctx.Logger().Debug("regions merged and filtered",
		zap.Int("before", int(maxRegionID)), zap.Int("after", len(live)))
	return uint16(len(live))
}

// RcBuildRegions partitions the walkable surface into regions using a
// watershed over the distance field. A borderSize > 0 reserves a frame of
// RC_BORDER_REG regions along the grid edge.
func RcBuildRegions(ctx *RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) error {
	defer rcScopedTimer(ctx, RC_TIMER_BUILD_REGIONS)()

	if chf == nil {
		return fmt.Errorf("%w: nil compact heightfield", ErrInvalidParam)
	}
	if len(chf.Dist) != chf.SpanCount {
		return fmt.Errorf("%w: distance field missing", ErrInvalidParam)
	}
	w := chf.Width
	h := chf.Height

	srcReg, err := rcAlloc[uint16]("srcReg", chf.SpanCount)
	if err != nil {
		ctx.Error("build regions: out of memory", zap.String("buffer", "srcReg"), zap.Int("count", chf.SpanCount))
		return err
	}
	srcDist, err := rcAlloc[uint16]("srcDist", chf.SpanCount)
	if err != nil {
		ctx.Error("build regions: out of memory", zap.String("buffer", "srcDist"), zap.Int("count", chf.SpanCount))
		return err
	}
	stack, err := NewRcIntArray(0)
	if err != nil {
		return err
	}
	if err := stack.Resize(1024 * 3); err != nil {
		return err
	}
	stack.Clear()

	var regionID uint16 = 1

	// Mark border regions.
	if borderSize > 0 {
		// Make sure border will not overflow.
		bw := min(w, borderSize)
		bh := min(h, borderSize)
		// Paint regions
		paintRectRegion(0, bw, 0, h, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
		paintRectRegion(w-bw, w, 0, h, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
		paintRectRegion(0, w, 0, bh, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
		paintRectRegion(0, w, h-bh, h, regionID|RC_BORDER_REG, chf, srcReg)
		regionID++
	}
	chf.BorderSize = borderSize
	firstRegion := regionID

	const expandIters = 8
	level := (chf.MaxDistance + 1) &^ 1

	ctx.StartTimer(RC_TIMER_BUILD_REGIONS_WATERSHED)
	for level > 0 {
		if level >= 2 {
			level -= 2
		} else {
			level = 0
		}

		ctx.StartTimer(RC_TIMER_BUILD_REGIONS_EXPAND)
		// Expand current regions until no empty connected cells found.
		err := expandRegions(expandIters, level, chf, srcReg, srcDist, stack)
		ctx.StopTimer(RC_TIMER_BUILD_REGIONS_EXPAND)
		if err != nil {
			return err
		}

		ctx.StartTimer(RC_TIMER_BUILD_REGIONS_FLOOD)
		// Mark new regions with IDs.
		for z := 0; z < h; z++ {
			for x := 0; x < w; x++ {
				begin, end := chf.Cell(x, z).Range()
				for i := begin; i < end; i++ {
					if chf.Dist[i] < level || srcReg[i] != 0 || chf.Areas[i] == RC_NULL_AREA {
						continue
					}
					flooded, err := floodRegion(x, z, i, level, regionID, chf, srcReg, srcDist, stack)
					if err != nil {
						ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FLOOD)
						return err
					}
					if !flooded {
						continue
					}
					if regionID == rcMaxRegionID {
						ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FLOOD)
						ctx.Error("build regions: region id overflow")
						return fmt.Errorf("build regions: region id overflow (%d)", regionID)
					}
					regionID++
				}
			}
		}
		ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FLOOD)
	}

	// Expand current regions until no empty connected cells found.
	if err := expandRegions(expandIters*8, 0, chf, srcReg, srcDist, stack); err != nil {
		return err
	}
	ctx.StopTimer(RC_TIMER_BUILD_REGIONS_WATERSHED)

	ctx.StartTimer(RC_TIMER_BUILD_REGIONS_FILTER)
	maxRegions := mergeAndFilterRegions(ctx, minRegionArea, mergeRegionArea, regionID-1, chf, srcReg)
	ctx.StopTimer(RC_TIMER_BUILD_REGIONS_FILTER)

	// Write the result out.
	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	chf.MaxRegions = maxRegions
	ctx.Logger().Debug("regions built",
		zap.Int("watershed", int(regionID-firstRegion)), zap.Int("regions", int(maxRegions)))
	return nil
}
