package combiner

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/kiesman99/squarestitch/pkg/geo"
)

// maxOverlayLabels is the intersection count above which the confirmation
// callback is consulted before drawing coordinate labels.
const maxOverlayLabels = 50000

// drawOverlay renders coordinate labels and grid lines onto the canvas at
// each world-grid intersection, projected into canvas pixels. Labels go
// down first so lines stay unbroken where the two cross. Lines are skipped
// when the configured line color is fully transparent; labels are skipped
// when the coordinate format is empty.
func (c *Combiner) drawOverlay(ctx context.Context, m *Map, worldGrid, canvasGrid geo.Grid) error {
	drawLines := c.style.GridLineColor.A > 0 && c.style.GridLineWidth > 0
	drawLabels := c.style.CoordsFormat != ""
	if !drawLines && !drawLabels {
		return nil
	}

	if drawLabels && worldGrid.StepsCount() > maxOverlayLabels {
		c.logger.Warn("large overlay requested", "intersections", worldGrid.StepsCount())
		msg := fmt.Sprintf("More than %d grid intersections will be labelled, which can take a very long time. Continue?", maxOverlayLabels)
		if !c.confirm(msg) {
			c.logger.Info("skipping coordinate labels")
			drawLabels = false
		}
	}

	if drawLabels {
		face, err := c.loadFontFace()
		if err != nil {
			return err
		}
		defer face.Close()

		c.logger.Info("drawing coordinate labels")
		report := c.newReporter()
		total := worldGrid.StepsCount()
		done := 0
		for w := range worldGrid.IterSteps() {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrCancelled, err)
			}
			done++
			report(fmt.Sprintf("drawing labels: %d%%", done*100/total))

			p := worldGrid.Project(w, canvasGrid)
			label := strings.NewReplacer(
				"{x}", fmt.Sprint(w.X),
				"{y}", fmt.Sprint(w.Y),
			).Replace(c.style.CoordsFormat)
			c.drawLabel(m.Image, label, p, face)
		}
	}

	if drawLines {
		c.logger.Info("drawing grid lines")
		bounds := m.Image.Bounds()
		lineSrc := image.NewUniform(c.style.GridLineColor.NRGBA())
		half := c.style.GridLineWidth / 2
		for _, wx := range worldGrid.StepsX() {
			px := worldGrid.Project(geo.Coord2i{X: wx, Y: worldGrid.Rect.Y1}, canvasGrid).X
			rect := image.Rect(px-half, bounds.Min.Y, px-half+c.style.GridLineWidth, bounds.Max.Y)
			draw.Draw(m.Image, rect, lineSrc, image.Point{}, draw.Over)
		}
		for _, wy := range worldGrid.StepsY() {
			py := worldGrid.Project(geo.Coord2i{X: worldGrid.Rect.X1, Y: wy}, canvasGrid).Y
			rect := image.Rect(bounds.Min.X, py-half, bounds.Max.X, py-half+c.style.GridLineWidth)
			draw.Draw(m.Image, rect, lineSrc, image.Point{}, draw.Over)
		}
	}

	return nil
}

// drawLabel renders text with its top-left near p, stroked by redrawing the
// text offset in each direction before the fill pass.
func (c *Combiner) drawLabel(dst *image.NRGBA, text string, p geo.Coord2i, face font.Face) {
	baseline := p.Y + face.Metrics().Ascent.Ceil()
	if sw := c.style.GridTextStrokeWidth; sw > 0 && c.style.GridTextStroke.A > 0 {
		strokeSrc := image.NewUniform(c.style.GridTextStroke.NRGBA())
		for dx := -sw; dx <= sw; dx++ {
			for dy := -sw; dy <= sw; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				d := &font.Drawer{
					Dst:  dst,
					Src:  strokeSrc,
					Face: face,
					Dot:  fixed.P(p.X+dx, baseline+dy),
				}
				d.DrawString(text)
			}
		}
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c.style.GridTextColor.NRGBA()),
		Face: face,
		Dot:  fixed.P(p.X, baseline),
	}
	d.DrawString(text)
}

// loadFontFace opens the style's font file, falling back to the embedded Go
// Regular face when none is configured.
func (c *Combiner) loadFontFace() (font.Face, error) {
	data := goregular.TTF
	if c.style.GridTextFont != "" {
		var err error
		data, err = os.ReadFile(c.style.GridTextFont)
		if err != nil {
			return nil, configErrorf("reading font file %s: %v", c.style.GridTextFont, err)
		}
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, configErrorf("parsing font: %v", err)
	}
	size := c.style.GridTextSize
	if size <= 0 {
		size = 12
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
