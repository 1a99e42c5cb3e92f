package debug_utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/colornames"
	"golang.org/x/image/tiff"

	"github.com/gorustyt/gonavvoxel/recast"
)

// twoCellField has one walkable span in cell (0, 0) and an empty cell (1, 0).
func twoCellField() *recast.RcCompactHeightfield {
	return &recast.RcCompactHeightfield{
		Width:     2,
		Height:    1,
		SpanCount: 1,
		Cells:     []recast.RcCompactCell{{Index: 0, Count: 1}, {Index: 1, Count: 0}},
		Spans:     []recast.RcCompactSpan{{Y: 4, Reg: 1}},
		Areas:     []uint8{recast.RC_WALKABLE_AREA},
	}
}

func rgba(c Colorb) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func TestRenderCompactHeightfieldModes(t *testing.T) {
	chf := twoCellField()

	img, err := DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_AREAS})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())
	assert.Equal(t, rgba(DuAreaToCol(recast.RC_WALKABLE_AREA)), img.RGBAAt(0, 0))
	assert.Equal(t, colornames.Dimgray, img.RGBAAt(1, 0))

	img, err = DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_REGIONS})
	require.NoError(t, err)
	assert.Equal(t, rgba(DuIntToCol(1, 255)), img.RGBAAt(0, 0))

	img, err = DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_HEIGHT})
	require.NoError(t, err)
	// The only span is the highest one.
	assert.Equal(t, color.RGBA{R: 220, G: 220, B: 255, A: 255}, img.RGBAAt(0, 0))

	_, err = DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_DISTANCE})
	assert.ErrorIs(t, err, ErrNoDistanceField)

	chf.Dist = []uint16{3}
	chf.MaxDistance = 3
	img, err = DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_DISTANCE})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0))
}

func TestRenderCompactHeightfieldBorderAndNull(t *testing.T) {
	chf := twoCellField()
	chf.Spans[0].Reg = 2 | recast.RC_BORDER_REG
	chf.Areas[0] = recast.RC_NULL_AREA

	img, err := DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_REGIONS})
	require.NoError(t, err)
	assert.Equal(t, rgba(DuDarkenCol(DuIntToCol(2, 255))), img.RGBAAt(0, 0))

	img, err = DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_AREAS})
	require.NoError(t, err)
	assert.Equal(t, colornames.Darkred, img.RGBAAt(0, 0))
}

func TestRenderCompactHeightfieldScaleAndLabel(t *testing.T) {
	chf := buildPlane(t).Compact
	img, err := DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_REGIONS, Scale: 3})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 60, 60), img.Bounds())
	assert.Equal(t, img.RGBAAt(0, 0), img.RGBAAt(2, 2))

	img, err = DuRenderCompactHeightfield(chf, DuImageOptions{Mode: DU_IMAGE_REGIONS, Scale: 3, Label: "A"})
	require.NoError(t, err)
	white := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if img.RGBAAt(x, y) == colornames.White {
				white++
			}
		}
	}
	assert.Positive(t, white)

	_, err = DuRenderCompactHeightfield(nil, DuImageOptions{})
	assert.ErrorIs(t, err, recast.ErrInvalidParam)
}

func TestEncodeImage(t *testing.T) {
	img, err := DuRenderCompactHeightfield(twoCellField(), DuImageOptions{Scale: 4})
	require.NoError(t, err)

	decoders := map[string]func(*bytes.Buffer) (image.Image, error){
		"png":  func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) },
		".bmp": func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) },
		"TIFF": func(b *bytes.Buffer) (image.Image, error) { return tiff.Decode(b) },
		"":     func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) },
	}
	for format, decode := range decoders {
		var buf bytes.Buffer
		require.NoError(t, DuEncodeImage(&buf, img, format), format)
		out, err := decode(&buf)
		require.NoError(t, err, format)
		assert.Equal(t, image.Rect(0, 0, 8, 4), out.Bounds(), format)
	}
}

func TestParseImageMode(t *testing.T) {
	for m := DU_IMAGE_HEIGHT; m <= DU_IMAGE_DISTANCE; m++ {
		got, err := DuParseImageMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := DuParseImageMode("Regions")
	require.NoError(t, err)
	assert.Equal(t, DU_IMAGE_REGIONS, got)

	_, err = DuParseImageMode("heat")
	assert.Error(t, err)
	assert.Equal(t, "DuImageMode(9)", DuImageMode(9).String())
}

func TestColors(t *testing.T) {
	assert.Equal(t, Colorb{63, 63, 126, 255}, DuIntToCol(1, 255))
	assert.Equal(t, Colorb{252, 252, 252, 255}, DuAreaToCol(recast.RC_WALKABLE_AREA))
	assert.Equal(t, Colorb{0, 192, 255, 255}, DuAreaToCol(0))
	assert.Equal(t, Colorb{100, 50, 25, 255}, DuDarkenCol(Colorb{200, 100, 50, 255}))
	assert.Equal(t, Colorb{1, 2, 3, 7}, DuTransCol(Colorb{1, 2, 3, 4}, 7))

	black := DuRGBA(0, 0, 0, 255)
	white := DuRGBA(255, 255, 255, 255)
	assert.Equal(t, black, DuLerpCol(black, white, 0))
	assert.Equal(t, white, DuLerpCol(black, white, 255))

	var c Colorb
	c.FromInt(Colorb{9, 8, 7, 6}.Int())
	assert.Equal(t, Colorb{9, 8, 7, 6}, c)
	assert.Equal(t, Colorb{255, 0, 0, 255}, DuFromColor(colornames.Red))
}
