package debug_utils

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"

	"github.com/gorustyt/gonavvoxel/recast"
)

// DuImageMode selects what a rendered compact heightfield cell shows.
type DuImageMode int

const (
	DU_IMAGE_HEIGHT DuImageMode = iota
	DU_IMAGE_AREAS
	DU_IMAGE_REGIONS
	DU_IMAGE_DISTANCE
)

var ErrNoDistanceField = errors.New("debug_utils: compact heightfield has no distance field")

func (m DuImageMode) String() string {
	switch m {
	case DU_IMAGE_HEIGHT:
		return "height"
	case DU_IMAGE_AREAS:
		return "areas"
	case DU_IMAGE_REGIONS:
		return "regions"
	case DU_IMAGE_DISTANCE:
		return "distance"
	}
	return fmt.Sprintf("DuImageMode(%d)", int(m))
}

// DuParseImageMode is the inverse of DuImageMode.String.
func DuParseImageMode(s string) (DuImageMode, error) {
	for m := DU_IMAGE_HEIGHT; m <= DU_IMAGE_DISTANCE; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("debug_utils: unknown image mode %q", s)
}

type DuImageOptions struct {
	Mode  DuImageMode
	Scale int    // pixels per cell, at least 1
	Label string // drawn in the top left corner when set
}

// DuRenderCompactHeightfield draws the topmost span of every column, one
// pixel per cell with x to the right and z downwards, then scales the result.
func DuRenderCompactHeightfield(chf *recast.RcCompactHeightfield, opts DuImageOptions) (*image.RGBA, error) {
	if chf == nil || chf.Width <= 0 || chf.Height <= 0 {
		return nil, fmt.Errorf("%w: empty compact heightfield", recast.ErrInvalidParam)
	}
	if opts.Mode == DU_IMAGE_DISTANCE && len(chf.Dist) != chf.SpanCount {
		return nil, ErrNoDistanceField
	}
	scale := max(opts.Scale, 1)

	maxY := 1
	for i := range chf.Spans {
		maxY = max(maxY, int(chf.Spans[i].Y))
	}

	src := image.NewRGBA(image.Rect(0, 0, chf.Width, chf.Height))
	draw.Draw(src, src.Bounds(), image.NewUniform(colornames.Dimgray), image.Point{}, draw.Src)
	for z := 0; z < chf.Height; z++ {
		for x := 0; x < chf.Width; x++ {
			begin, end := chf.Cell(x, z).Range()
			if begin == end {
				continue
			}
			i := end - 1
			src.Set(x, z, spanColor(chf, i, maxY, opts.Mode))
		}
	}

	if scale == 1 && opts.Label == "" {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, chf.Width*scale, chf.Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	if opts.Label != "" {
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(colornames.White),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(2, basicfont.Face7x13.Ascent+2),
		}
		d.DrawString(opts.Label)
	}
	return dst, nil
}

func spanColor(chf *recast.RcCompactHeightfield, i, maxY int, mode DuImageMode) Colorb {
	s := &chf.Spans[i]
	switch mode {
	case DU_IMAGE_AREAS:
		if chf.Areas[i] == recast.RC_NULL_AREA {
			return DuFromColor(colornames.Darkred)
		}
		return DuAreaToCol(chf.Areas[i])
	case DU_IMAGE_REGIONS:
		if s.Reg == 0 {
			return DuFromColor(colornames.Black)
		}
		if s.Reg&recast.RC_BORDER_REG != 0 {
			return DuDarkenCol(DuIntToCol(int(s.Reg&^recast.RC_BORDER_REG), 255))
		}
		return DuIntToCol(int(s.Reg), 255)
	case DU_IMAGE_DISTANCE:
		u := 0
		if chf.MaxDistance > 0 {
			u = int(chf.Dist[i]) * 255 / int(chf.MaxDistance)
		}
		return DuLerpCol(DuRGBA(0, 0, 0, 255), DuRGBA(255, 255, 255, 255), uint8(u))
	}
	u := int(s.Y) * 255 / maxY
	return DuLerpCol(DuRGBA(32, 32, 64, 255), DuRGBA(220, 220, 255, 255), uint8(u))
}

// DuEncodeImage writes img as BMP or TIFF when format names one of them and
// as PNG otherwise.
func DuEncodeImage(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "bmp":
		return bmp.Encode(w, img)
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(w, img)
	}
}
