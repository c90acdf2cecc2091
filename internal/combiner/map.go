package combiner

import (
	"image"

	"github.com/kiesman99/squarestitch/pkg/geo"
)

// Map is the in-memory result of a combine run: the stitched raster together
// with enough information to convert between canvas pixels and world blocks.
// The caller is responsible for persisting it.
type Map struct {
	// Image is the stitched RGBA raster.
	Image *image.NRGBA

	// WorldZero is the canvas pixel at which the world's (0, 0) block sits.
	// It may lie outside the image bounds after cropping.
	WorldZero geo.Coord2i

	// BlocksPerPixel records how many world blocks one pixel covers at the
	// zoom level the map was rendered with.
	BlocksPerPixel int
}

// ToWorldSpace converts a canvas pixel coordinate to the world block
// coordinate it represents.
func (m *Map) ToWorldSpace(p geo.Coord2i) geo.Coord2i {
	return p.Sub(m.WorldZero).MulN(m.BlocksPerPixel)
}

// ToCanvasSpace converts a world block coordinate to its canvas pixel.
func (m *Map) ToCanvasSpace(w geo.Coord2i) geo.Coord2i {
	return m.WorldZero.Add(w.DivN(m.BlocksPerPixel))
}

// Size returns the raster dimensions.
func (m *Map) Size() geo.Coord2i {
	b := m.Image.Bounds()
	return geo.Coord2i{X: b.Dx(), Y: b.Dy()}
}

// opaqueBounds returns the bounding box of all pixels with nonzero alpha,
// the equivalent of PIL's getbbox. ok is false when the image is fully
// transparent.
func opaqueBounds(img *image.NRGBA) (box image.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
