package debug_utils

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gorustyt/gonavvoxel/common/rw"
	"github.com/gorustyt/gonavvoxel/recast"
)

var (
	ErrBadMagic   = errors.New("debug_utils: bad magic")
	ErrBadVersion = errors.New("debug_utils: bad version")
)

func DuDumpPolyMeshToObj(pmesh *recast.RcPolyMesh, w *rw.ReaderWriter) error {
	if w == nil || pmesh == nil {
		return fmt.Errorf("%w: dump poly mesh: nil input", recast.ErrInvalidParam)
	}

	nvp := pmesh.Nvp
	cs := pmesh.Cs
	ch := pmesh.Ch
	orig := pmesh.Bmin

	w.WriteString("# Recast Navmesh\n")
	w.WriteString("o NavMesh\n")

	w.WriteString("\n")

	for i := 0; i < pmesh.NVerts; i++ {
		v := pmesh.Verts[i*3:]
		x := orig[0] + float32(v[0])*cs
		y := orig[1] + float32(v[1]+1)*ch + 0.1
		z := orig[2] + float32(v[2])*cs
		w.WriteString(fmt.Sprintf("v %f %f %f\n", x, y, z))
	}

	w.WriteString("\n")

	for i := 0; i < pmesh.NPolys; i++ {
		p := pmesh.Poly(i)
		for j := 2; j < nvp; j++ {
			if p[j] == recast.RC_MESH_NULL_IDX {
				break
			}
			w.WriteString(fmt.Sprintf("f %d %d %d\n", int(p[0])+1, int(p[j-1])+1, int(p[j])+1))
		}
	}

	return w.Err()
}

const CSET_MAGIC = ('c' << 24) | ('s' << 16) | ('e' << 8) | 't'

const CSET_VERSION = 2

func DuDumpContourSet(cset *recast.RcContourSet, w *rw.ReaderWriter) error {
	if w == nil || cset == nil {
		return fmt.Errorf("%w: dump contour set: nil input", recast.ErrInvalidParam)
	}

	w.WriteInt32(CSET_MAGIC)
	w.WriteInt32(CSET_VERSION)
	w.WriteInt32(int32(len(cset.Conts)))
	w.WriteFloat32s(cset.Bmin[:])
	w.WriteFloat32s(cset.Bmax[:])

	w.WriteFloat32(cset.Cs)
	w.WriteFloat32(cset.Ch)

	w.WriteInt32(int32(cset.Width))
	w.WriteInt32(int32(cset.Height))
	w.WriteInt32(int32(cset.BorderSize))
	w.WriteFloat32(cset.MaxError)
	for i := range cset.Conts {
		cont := &cset.Conts[i]
		w.WriteInt32(int32(cont.NVerts))
		w.WriteInt32(int32(cont.NRVerts))

		w.WriteUInt16(cont.Reg)
		w.WriteUInt8(cont.Area)
		writeInts(w, cont.Verts[:cont.NVerts*4])
		writeInts(w, cont.RVerts[:cont.NRVerts*4])
	}

	return w.Err()
}

func DuReadContourSet(r *rw.ReaderWriter) (*recast.RcContourSet, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: read contour set: nil input", recast.ErrInvalidParam)
	}
	if err := readHeader(r, CSET_MAGIC, CSET_VERSION); err != nil {
		return nil, fmt.Errorf("read contour set: %w", err)
	}

	nconts := int(r.ReadInt32())
	// Every contour takes at least 11 bytes.
	if nconts < 0 || nconts*11 > r.Size() {
		return nil, fmt.Errorf("read contour set: %w: %d contours", rw.ErrShortRead, nconts)
	}
	cset := &recast.RcContourSet{Conts: make([]recast.RcContour, nconts)}
	r.ReadFloat32s(cset.Bmin[:])
	r.ReadFloat32s(cset.Bmax[:])

	cset.Cs = r.ReadFloat32()
	cset.Ch = r.ReadFloat32()
	cset.Width = int(r.ReadInt32())
	cset.Height = int(r.ReadInt32())
	cset.BorderSize = int(r.ReadInt32())
	cset.MaxError = r.ReadFloat32()
	for i := range cset.Conts {
		cont := &cset.Conts[i]
		cont.NVerts = int(r.ReadInt32())
		cont.NRVerts = int(r.ReadInt32())
		cont.Reg = r.ReadUInt16()
		cont.Area = r.ReadUInt8()
		if cont.NVerts < 0 || cont.NRVerts < 0 || (cont.NVerts+cont.NRVerts)*16 > r.Size() {
			return nil, fmt.Errorf("read contour set: %w: contour %d", rw.ErrShortRead, i)
		}
		cont.Verts = readInts(r, cont.NVerts*4)
		cont.RVerts = readInts(r, cont.NRVerts*4)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read contour set: %w", err)
	}
	return cset, nil
}

const CHF_MAGIC = ('r' << 24) | ('c' << 16) | ('h' << 8) | 'f'

const CHF_VERSION = 3

const (
	chfHasCells = 1 << iota
	chfHasSpans
	chfHasDist
	chfHasAreas
)

// DuDumpCompactHeightfield writes a binary snapshot of chf.
func DuDumpCompactHeightfield(chf *recast.RcCompactHeightfield, w *rw.ReaderWriter) error {
	if w == nil || chf == nil {
		return fmt.Errorf("%w: dump compact heightfield: nil input", recast.ErrInvalidParam)
	}
	w.WriteInt32(CHF_MAGIC)
	w.WriteInt32(CHF_VERSION)
	w.WriteInt32(int32(chf.Width))
	w.WriteInt32(int32(chf.Height))
	w.WriteInt32(int32(chf.SpanCount))
	w.WriteInt32(int32(chf.WalkableHeight))
	w.WriteInt32(int32(chf.WalkableClimb))
	w.WriteInt32(int32(chf.BorderSize))
	w.WriteUInt16(chf.MaxDistance)
	w.WriteUInt16(chf.MaxRegions)
	w.WriteFloat32s(chf.Bmin[:])
	w.WriteFloat32s(chf.Bmax[:])
	w.WriteFloat32(chf.Cs)
	w.WriteFloat32(chf.Ch)
	flags := 0
	if len(chf.Cells) != 0 {
		flags |= chfHasCells
	}
	if len(chf.Spans) != 0 {
		flags |= chfHasSpans
	}
	if len(chf.Dist) != 0 {
		flags |= chfHasDist
	}
	if len(chf.Areas) != 0 {
		flags |= chfHasAreas
	}
	w.WriteInt32(int32(flags))

	for _, c := range chf.Cells {
		w.WriteUInt32(c.Index)
		w.WriteUInt32(c.Count)
	}
	for _, s := range chf.Spans {
		w.WriteUInt16(s.Y)
		w.WriteUInt16(s.Reg)
		w.WriteUInt16(s.Con)
		w.WriteUInt8(s.H)
	}
	w.WriteUInt16s(chf.Dist)
	w.WriteUInt8s(chf.Areas)
	return w.Err()
}

// DuReadCompactHeightfield reads a snapshot written by DuDumpCompactHeightfield.
func DuReadCompactHeightfield(r *rw.ReaderWriter) (*recast.RcCompactHeightfield, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: read compact heightfield: nil input", recast.ErrInvalidParam)
	}
	if err := readHeader(r, CHF_MAGIC, CHF_VERSION); err != nil {
		return nil, fmt.Errorf("read compact heightfield: %w", err)
	}
	chf := &recast.RcCompactHeightfield{}
	chf.Width = int(r.ReadInt32())
	chf.Height = int(r.ReadInt32())
	chf.SpanCount = int(r.ReadInt32())
	chf.WalkableHeight = int(r.ReadInt32())
	chf.WalkableClimb = int(r.ReadInt32())
	chf.BorderSize = int(r.ReadInt32())

	chf.MaxDistance = r.ReadUInt16()
	chf.MaxRegions = r.ReadUInt16()
	r.ReadFloat32s(chf.Bmin[:])
	r.ReadFloat32s(chf.Bmax[:])
	chf.Cs = r.ReadFloat32()
	chf.Ch = r.ReadFloat32()
	flags := int(r.ReadInt32())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read compact heightfield: %w", err)
	}

	// Reject sizes the remaining bytes cannot hold before allocating.
	have := r.Size()
	if chf.Width < 0 || chf.Height < 0 || chf.SpanCount < 0 {
		return nil, fmt.Errorf("%w: read compact heightfield: negative size %dx%d, %d spans",
			recast.ErrInvalidParam, chf.Width, chf.Height, chf.SpanCount)
	}
	tooBig := chf.SpanCount > have
	if flags&chfHasCells != 0 && chf.Height > 0 && chf.Width > have/8/chf.Height {
		tooBig = true
	}
	need := 0
	if !tooBig {
		if flags&chfHasCells != 0 {
			need += chf.Width * chf.Height * 8
		}
		if flags&chfHasSpans != 0 {
			need += chf.SpanCount * 7
		}
		if flags&chfHasDist != 0 {
			need += chf.SpanCount * 2
		}
		if flags&chfHasAreas != 0 {
			need += chf.SpanCount
		}
	}
	if tooBig || need > have {
		return nil, fmt.Errorf("read compact heightfield: %w: %dx%d cells, %d spans, have %d bytes",
			rw.ErrShortRead, chf.Width, chf.Height, chf.SpanCount, have)
	}

	if flags&chfHasCells != 0 {
		chf.Cells = make([]recast.RcCompactCell, chf.Width*chf.Height)
		for i := range chf.Cells {
			c := &chf.Cells[i]
			c.Index = r.ReadUInt32()
			c.Count = r.ReadUInt32()
			if uint64(c.Index)+uint64(c.Count) > uint64(chf.SpanCount) {
				return nil, fmt.Errorf("%w: read compact heightfield: cell %d spans [%d, %d) outside %d spans",
					recast.ErrInvalidParam, i, c.Index, uint64(c.Index)+uint64(c.Count), chf.SpanCount)
			}
		}
	}
	if flags&chfHasSpans != 0 {
		chf.Spans = make([]recast.RcCompactSpan, chf.SpanCount)
		for i := range chf.Spans {
			s := &chf.Spans[i]
			s.Y = r.ReadUInt16()
			s.Reg = r.ReadUInt16()
			s.Con = r.ReadUInt16()
			s.H = r.ReadUInt8()
		}
	}
	if flags&chfHasDist != 0 {
		chf.Dist = make([]uint16, chf.SpanCount)
		r.ReadUInt16s(chf.Dist)
	}
	if flags&chfHasAreas != 0 {
		chf.Areas = make([]uint8, chf.SpanCount)
		r.ReadUInt8s(chf.Areas)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read compact heightfield: %w", err)
	}
	return chf, nil
}

func readHeader(r *rw.ReaderWriter, magic, version int32) error {
	gotMagic := r.ReadInt32()
	gotVersion := r.ReadInt32()
	if err := r.Err(); err != nil {
		return err
	}
	if gotMagic != magic {
		return fmt.Errorf("%w: %#x", ErrBadMagic, gotMagic)
	}
	if gotVersion != version {
		return fmt.Errorf("%w: %d, want %d", ErrBadVersion, gotVersion, version)
	}
	return nil
}

func writeInts(w *rw.ReaderWriter, v []int) {
	for _, x := range v {
		w.WriteInt32(int32(x))
	}
}

func readInts(r *rw.ReaderWriter, n int) []int {
	v := make([]int, n)
	for i := range v {
		v[i] = int(r.ReadInt32())
	}
	return v
}

var duBuildTimeLines = []struct {
	name  string
	label recast.RcTimerLabel
}{
	{"- Rasterize", recast.RC_TIMER_RASTERIZE_TRIANGLES},
	{"- Build Compact", recast.RC_TIMER_BUILD_COMPACTHEIGHTFIELD},
	{"- Filter Border", recast.RC_TIMER_FILTER_BORDER},
	{"- Filter Walkable", recast.RC_TIMER_FILTER_WALKABLE},
	{"- Erode Area", recast.RC_TIMER_ERODE_AREA},
	{"- Build Distance Field", recast.RC_TIMER_BUILD_DISTANCEFIELD},
	{"    - Distance", recast.RC_TIMER_BUILD_DISTANCEFIELD_DIST},
	{"    - Blur", recast.RC_TIMER_BUILD_DISTANCEFIELD_BLUR},
	{"- Build Regions", recast.RC_TIMER_BUILD_REGIONS},
	{"    - Watershed", recast.RC_TIMER_BUILD_REGIONS_WATERSHED},
	{"      - Expand", recast.RC_TIMER_BUILD_REGIONS_EXPAND},
	{"      - Find Basins", recast.RC_TIMER_BUILD_REGIONS_FLOOD},
	{"    - Filter", recast.RC_TIMER_BUILD_REGIONS_FILTER},
	{"- Build Contours", recast.RC_TIMER_BUILD_CONTOURS},
	{"    - Trace", recast.RC_TIMER_BUILD_CONTOURS_TRACE},
	{"    - Simplify", recast.RC_TIMER_BUILD_CONTOURS_SIMPLIFY},
	{"- Build Polymesh", recast.RC_TIMER_BUILD_POLYMESH},
}

// DuLogBuildTimes logs every stage timing with its share of the total.
func DuLogBuildTimes(logger *zap.Logger, times *recast.RcBuildTimes) {
	if logger == nil || times == nil {
		return
	}
	total := times.Get(recast.RC_TIMER_TOTAL)
	pc := 0.0
	if total > 0 {
		pc = 100.0 / float64(total)
	}
	logger.Info("Build Times")
	for _, l := range duBuildTimeLines {
		t := times.Get(l.label)
		logger.Info(l.name,
			zap.Float64("ms", float64(t)/float64(time.Millisecond)),
			zap.Float64("percent", float64(t)*pc))
	}
	logger.Info("=== TOTAL", zap.Float64("ms", float64(total)/float64(time.Millisecond)))
}
