package recast

import (
	"fmt"
	"unsafe"

	"github.com/gorustyt/gonavvoxel/common"
)

const (
	/// The number of spans allocated per arena page.
	RC_SPANS_PER_POOL = 2048
	/// Defines the number of bits allocated to RcSpan::smin and RcSpan::smax.
	RC_SPAN_HEIGHT_BITS = 13
	/// Defines the maximum value for RcSpan::smin and RcSpan::smax.
	RC_SPAN_MAX_HEIGHT = (1 << RC_SPAN_HEIGHT_BITS) - 1
	/// Represents the null area.
	/// When a data element is given this value it is considered to no longer be
	/// assigned to a usable area.  (E.g. It is un-walkable.)
	RC_NULL_AREA = 0
	/// The default area id used to indicate a walkable polygon.
	RC_WALKABLE_AREA = 63
	/// Marks an empty column or the end of a span chain.
	RC_NULL_SPAN int32 = -1
	/// Top of the open space above the highest span in a column.
	RC_MAX_HEIGHT = 0xffff
)

// / Represents a span in a heightfield.
// / The span covers the half-open solid interval [Smin, Smax).
type RcSpan struct {
	Smin uint16 ///< The lower limit of the span. [Limit: < #smax]
	Smax uint16 ///< The upper limit of the span. [Limit: <= #RC_SPAN_MAX_HEIGHT]
	Area uint8  ///< The area id assigned to the span.
}

// / A dynamic heightfield representing obstructed space.
// / Spans live in an arena; Heads holds the first span handle of every column
// / and Next links each span to the one above it.
type RcHeightfield struct {
	Width  int        ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height int        ///< The height of the heightfield. (Along the z-axis in cell units.)
	Bmin   [3]float32 ///< The minimum bounds in world space. [(x, y, z)]
	Bmax   [3]float32 ///< The maximum bounds in world space. [(x, y, z)]
	Cs     float32    ///< The size of each cell. (On the xz-plane.)
	Ch     float32    ///< The height of each cell. (The minimum increment along the y-axis.)
	Heads  []int32    ///< First span of each column (width*height).
	Spans  []RcSpan   ///< Span arena.
	Next   []int32    ///< Next span handle, parallel to Spans.

	freelist int32
}

// RcCreateHeightfield allocates an empty width x height heightfield.
func RcCreateHeightfield(width, height int, bmin, bmax [3]float32, cs, ch float32) (*RcHeightfield, error) {
	if width < 0 || height < 0 || (height > 0 && width > rcMaxAlloc/height) {
		return nil, &RcAllocError{Name: "spans", Count: width * height, Cause: ErrOutOfMemory}
	}
	if cs <= 0 || ch <= 0 {
		return nil, fmt.Errorf("%w: cell size %v, cell height %v", ErrInvalidParam, cs, ch)
	}
	heads, err := rcAlloc[int32]("spans", width*height)
	if err != nil {
		return nil, err
	}
	for i := range heads {
		heads[i] = RC_NULL_SPAN
	}
	return &RcHeightfield{
		Width:    width,
		Height:   height,
		Bmin:     bmin,
		Bmax:     bmax,
		Cs:       cs,
		Ch:       ch,
		Heads:    heads,
		freelist: RC_NULL_SPAN,
	}, nil
}

// Column returns the first span handle of column (x, z).
func (hf *RcHeightfield) Column(x, z int) int32 {
	return hf.Heads[x+z*hf.Width]
}

// SpanCount counts the spans tagged with area across the whole grid.
func (hf *RcHeightfield) SpanCount(area uint8) int {
	count := 0
	for _, head := range hf.Heads {
		for s := head; s != RC_NULL_SPAN; s = hf.Next[s] {
			if hf.Spans[s].Area == area {
				count++
			}
		}
	}
	return count
}

// MemoryUsage returns the bytes held by the heightfield arena.
func (hf *RcHeightfield) MemoryUsage() int {
	if hf == nil {
		return 0
	}
	return int(unsafe.Sizeof(*hf)) +
		len(hf.Heads)*int(unsafe.Sizeof(int32(0))) +
		cap(hf.Spans)*int(unsafe.Sizeof(RcSpan{})) +
		cap(hf.Next)*int(unsafe.Sizeof(int32(0)))
}

// / Adds a span to the heightfield.  If the new span overlaps existing spans,
// / it will merge the new span with the existing ones.
// /
// / @param[in]	x					The new span's column cell x index
// / @param[in]	z					The new span's column cell z index
// / @param[in]	smin				The new span's minimum cell index
// / @param[in]	smax				The new span's maximum cell index
// / @param[in]	area				The new span's area type ID
// / @param[in]	flagMergeThreshold	How close two spans maximum extents need to be to merge area type IDs
func (hf *RcHeightfield) AddSpan(x, z int, smin, smax uint16, area uint8, flagMergeThreshold int) error {
	if x < 0 || z < 0 || x >= hf.Width || z >= hf.Height {
		return fmt.Errorf("%w: column (%d,%d) outside %dx%d", ErrInvalidParam, x, z, hf.Width, hf.Height)
	}
	if smin > smax {
		return fmt.Errorf("%w: span [%d,%d)", ErrInvalidParam, smin, smax)
	}
	newSpan, err := hf.allocSpan()
	if err != nil {
		return err
	}
	hf.Spans[newSpan] = RcSpan{Smin: smin, Smax: smax, Area: area}
	hf.Next[newSpan] = RC_NULL_SPAN

	columnIndex := x + z*hf.Width
	previousSpan := RC_NULL_SPAN
	currentSpan := hf.Heads[columnIndex]

	// Insert the new span, possibly merging it with existing spans.
	for currentSpan != RC_NULL_SPAN {
		cur := hf.Spans[currentSpan]
		ns := &hf.Spans[newSpan]
		if cur.Smin > ns.Smax {
			// Current span is completely after the new span, break.
			break
		}

		if cur.Smax < ns.Smin {
			// Current span is completely before the new span.  Keep going.
			previousSpan = currentSpan
			currentSpan = hf.Next[currentSpan]
			continue
		}

		// The new span overlaps with an existing span.  Merge them.
		ns.Smin = min(ns.Smin, cur.Smin)
		ns.Smax = max(ns.Smax, cur.Smax)

		// Merge flags.
		if common.Abs(int(ns.Smax)-int(cur.Smax)) <= flagMergeThreshold {
			// Higher area ID numbers indicate higher resolution priority.
			ns.Area = max(ns.Area, cur.Area)
		}

		// Remove the current span since it's now merged with newSpan.
		next := hf.Next[currentSpan]
		hf.freeSpan(currentSpan)
		if previousSpan != RC_NULL_SPAN {
			hf.Next[previousSpan] = next
		} else {
			hf.Heads[columnIndex] = next
		}
		currentSpan = next
	}

	// Insert new span after prev
	if previousSpan != RC_NULL_SPAN {
		hf.Next[newSpan] = hf.Next[previousSpan]
		hf.Next[previousSpan] = newSpan
	} else {
		hf.Next[newSpan] = hf.Heads[columnIndex]
		hf.Heads[columnIndex] = newSpan
	}
	return nil
}

func (hf *RcHeightfield) freeSpan(s int32) {
	hf.Next[s] = hf.freelist
	hf.freelist = s
}

// allocSpan pops a handle from the free list, adding a new arena page first
// when the list is empty.
func (hf *RcHeightfield) allocSpan() (int32, error) {
	if hf.freelist == RC_NULL_SPAN {
		base := len(hf.Spans)
		if base > rcMaxAlloc-RC_SPANS_PER_POOL {
			return RC_NULL_SPAN, &RcAllocError{Name: "span pool", Count: base + RC_SPANS_PER_POOL, Cause: ErrOutOfMemory}
		}
		spans, err := rcAlloc[RcSpan]("span pool", RC_SPANS_PER_POOL)
		if err != nil {
			return RC_NULL_SPAN, err
		}
		next, err := rcAlloc[int32]("span pool", RC_SPANS_PER_POOL)
		if err != nil {
			return RC_NULL_SPAN, err
		}
		// Thread the page so handles are handed out in ascending order.
		for i := range next {
			if i == len(next)-1 {
				next[i] = RC_NULL_SPAN
			} else {
				next[i] = int32(base + i + 1)
			}
		}
		hf.Spans = append(hf.Spans, spans...)
		hf.Next = append(hf.Next, next...)
		hf.freelist = int32(base)
	}
	s := hf.freelist
	hf.freelist = hf.Next[s]
	return s, nil
}
