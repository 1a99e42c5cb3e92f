package recast

import (
	"unsafe"

	"github.com/gorustyt/gonavvoxel/common"
)

const (
	/// The value returned by RcGetCon if the specified direction is not connected
	/// to another span. (Has no neighbor.)
	RC_NOT_CONNECTED = 0xf
	/// The largest neighbour offset a connection slot can hold.
	RC_MAX_LAYERS = RC_NOT_CONNECTED - 1
	/// Heightfield border flag.
	/// If a heightfield region ID has this bit set, then the region is a border
	/// region and its spans are considered un-walkable.
	RC_BORDER_REG = 0x8000
)

// / Provides information on the content of a cell column in a compact heightfield.
type RcCompactCell struct {
	Index uint32 ///< Index to the first span in the column.
	Count uint32 ///< Number of spans in the column.
}

// Range returns the half-open span index range of the column. Empty cells
// yield an empty range whatever their Index holds.
func (c RcCompactCell) Range() (begin, end int) {
	if c.Count == 0 {
		return 0, 0
	}
	return int(c.Index), int(c.Index + c.Count)
}

// / Represents a span of unobstructed space within a compact heightfield.
type RcCompactSpan struct {
	Y   uint16 ///< The lower extent of the span. (Measured from the heightfield's base.)
	Reg uint16 ///< The id of the region the span belongs to. (Or zero if not in a region.)
	Con uint16 ///< Packed neighbor connection data, 4 bits per direction.
	H   uint8  ///< The height of the span.  (Measured from #Y.)
}

// / Gets neighbor connection data for the specified direction.
// / @return The neighbor offset within the neighbour column, or RC_NOT_CONNECTED.
func RcGetCon(span *RcCompactSpan, direction int) int {
	shift := uint(direction) * 4
	return int(span.Con>>shift) & 0xf
}

// / Sets the neighbor connection data for the specified direction.
// / @param[in]		span			The span to update.
// / @param[in]		direction		The direction to set. [Limits: 0 <= value < 4]
// / @param[in]		neighborIndex	The index of the neighbor span.
func RcSetCon(span *RcCompactSpan, direction, neighborIndex int) {
	shift := uint(direction) * 4
	span.Con = (span.Con &^ (0xf << shift)) | (uint16(neighborIndex&0xf) << shift)
}

// / A compact, static heightfield representing unobstructed space.
type RcCompactHeightfield struct {
	Width          int             ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height         int             ///< The height of the heightfield. (Along the z-axis in cell units.)
	SpanCount      int             ///< The number of spans in the heightfield.
	WalkableHeight int             ///< The walkable height used during the build of the field.
	WalkableClimb  int             ///< The walkable climb used during the build of the field.
	BorderSize     int             ///< The AABB border size used during the build of the field.
	MaxDistance    uint16          ///< The maximum distance value of any span within the field.
	MaxRegions     uint16          ///< The maximum region id of any span within the field.
	Bmin           [3]float32      ///< The minimum bounds in world space. [(x, y, z)]
	Bmax           [3]float32      ///< The maximum bounds in world space. [(x, y, z)]
	Cs             float32         ///< The size of each cell. (On the xz-plane.)
	Ch             float32         ///< The height of each cell. (The minimum increment along the y-axis.)
	Cells          []RcCompactCell ///< Array of cells. [Size: #Width*#Height]
	Spans          []RcCompactSpan ///< Array of spans. [Size: #SpanCount]
	Dist           []uint16        ///< Array containing border distance data. [Size: #SpanCount]
	Areas          []uint8         ///< Array containing area id data. [Size: #SpanCount]
}

// Cell returns the cell of column (x, z).
func (chf *RcCompactHeightfield) Cell(x, z int) RcCompactCell {
	return chf.Cells[x+z*chf.Width]
}

// NeighborIndex resolves the connection of span i (in column x, z) in
// direction dir to a global span index.
func (chf *RcCompactHeightfield) NeighborIndex(x, z, i, dir int) (int, bool) {
	con := RcGetCon(&chf.Spans[i], dir)
	if con == RC_NOT_CONNECTED {
		return 0, false
	}
	ax := x + common.GetDirOffsetX(dir)
	az := z + common.GetDirOffsetY(dir)
	if ax < 0 || az < 0 || ax >= chf.Width || az >= chf.Height {
		return 0, false
	}
	begin, end := chf.Cell(ax, az).Range()
	ni := begin + con
	if ni >= end {
		return 0, false
	}
	return ni, true
}

// MemoryUsage returns the bytes held by the compact heightfield.
func (chf *RcCompactHeightfield) MemoryUsage() int {
	if chf == nil {
		return 0
	}
	return int(unsafe.Sizeof(*chf)) +
		len(chf.Cells)*int(unsafe.Sizeof(RcCompactCell{})) +
		len(chf.Spans)*int(unsafe.Sizeof(RcCompactSpan{})) +
		len(chf.Dist)*int(unsafe.Sizeof(uint16(0))) +
		len(chf.Areas)
}
