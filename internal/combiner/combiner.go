// Package combiner stitches squaremap tile images into one large map image.
//
// Tiles live under {tilesDir}/{world}/{zoom}/{col}_{row}.png, where col and
// row are signed region indices. A Combiner holds only immutable
// configuration; tiles are discovered fresh on every Combine call, so one
// instance may serve many calls, concurrently if desired.
package combiner

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/kiesman99/squarestitch/pkg/geo"
)

const (
	// TileSize is the edge length of a squaremap tile image in pixels.
	TileSize = 512

	// maxCanvasDim is the canvas edge length above which the confirmation
	// callback is consulted before allocating.
	maxCanvasDim = 10000
)

// zoomBlocksPerPixel maps each zoom level to how many world blocks a single
// pixel covers. Zoom 0 is the coarsest view, zoom 3 renders one block per
// pixel.
var zoomBlocksPerPixel = [4]int{8, 4, 2, 1}

// BlocksPerPixel returns the block-per-pixel factor for a zoom level.
func BlocksPerPixel(zoom int) (int, error) {
	if zoom < 0 || zoom >= len(zoomBlocksPerPixel) {
		return 0, configErrorf("zoom level must be between 0 and 3, got %d", zoom)
	}
	return zoomBlocksPerPixel[zoom], nil
}

// ConfirmFunc gates potentially expensive operations. It receives a human
// readable message and returns whether to proceed.
type ConfirmFunc func(message string) bool

// ProgressFunc receives free-text status updates during long operations.
type ProgressFunc func(message string)

// Config carries the optional knobs for a Combiner. The zero value is valid:
// no overlay, default style, everything confirmed, progress discarded.
type Config struct {
	// GridStep is the overlay interval in world blocks. Zero disables the
	// grid overlay entirely.
	GridStep int

	Style Style

	// Confirm is consulted before expensive operations. Nil accepts
	// everything.
	Confirm ConfirmFunc

	// Progress receives status updates, throttled to ProgressEvery. Nil
	// discards them.
	Progress ProgressFunc

	// ProgressEvery is the minimum interval between progress reports.
	// Zero means one second.
	ProgressEvery time.Duration

	Logger *log.Logger
}

// Combiner stitches tile images from a tiles directory into map images.
type Combiner struct {
	tilesDir      string
	gridStep      int
	style         Style
	confirm       ConfirmFunc
	progress      ProgressFunc
	progressEvery time.Duration
	logger        *log.Logger
}

// New returns a Combiner reading tiles from tilesDir. It fails with a
// ConfigError when tilesDir is not an existing directory.
func New(tilesDir string, cfg Config) (*Combiner, error) {
	fi, err := os.Stat(tilesDir)
	if err != nil || !fi.IsDir() {
		return nil, configErrorf("not a directory: %s", tilesDir)
	}

	c := &Combiner{
		tilesDir:      tilesDir,
		gridStep:      cfg.GridStep,
		style:         cfg.Style,
		confirm:       cfg.Confirm,
		progress:      cfg.Progress,
		progressEvery: cfg.ProgressEvery,
		logger:        cfg.Logger,
	}
	if (c.style == Style{}) {
		c.style = DefaultStyle()
	}
	if c.confirm == nil {
		c.confirm = func(string) bool { return true }
	}
	if c.progress == nil {
		c.progress = func(string) {}
	}
	if c.progressEvery <= 0 {
		c.progressEvery = time.Second
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c, nil
}

// Worlds lists the world subdirectories available under the tiles directory.
func (c *Combiner) Worlds() ([]string, error) {
	entries, err := os.ReadDir(c.tilesDir)
	if err != nil {
		return nil, fmt.Errorf("reading tiles directory: %w", err)
	}
	var worlds []string
	for _, e := range entries {
		if e.IsDir() {
			worlds = append(worlds, e.Name())
		}
	}
	sort.Strings(worlds)
	return worlds, nil
}

// CropSpec describes the final crop applied to a combined image: either a
// trim to the opaque bounding box (Auto) or a fixed size centered on the
// image.
type CropSpec struct {
	Auto          bool
	Width, Height int
}

// ParseCrop parses "auto" or a "WIDTHxHEIGHT" pair.
func ParseCrop(s string) (CropSpec, error) {
	if strings.EqualFold(s, "auto") {
		return CropSpec{Auto: true}, nil
	}
	w, h, ok := strings.Cut(s, "x")
	if ok {
		width, errW := strconv.Atoi(w)
		height, errH := strconv.Atoi(h)
		if errW == nil && errH == nil && width > 0 && height > 0 {
			return CropSpec{Width: width, Height: height}, nil
		}
	}
	return CropSpec{}, configErrorf("crop must be %q or WIDTHxHEIGHT, got %q", "auto", s)
}

// Request holds the per-call parameters of a combine run.
type Request struct {
	// World is a subdirectory name under the tiles directory, or an
	// absolute path used as-is.
	World string

	// Zoom selects the detail level, 0 (coarsest) through 3 (finest).
	Zoom int

	// Area restricts the render to a block-coordinate rectangle. Nil uses
	// every discovered tile.
	Area *geo.Rect

	// Crop is the final crop, applied after stitching and overlay. Nil
	// leaves the image uncropped.
	Crop *CropSpec

	// TileExt filters tile files by extension. Empty or "*" accepts any.
	TileExt string
}

// Combine stitches the requested world at the requested zoom into a single
// map image. Missing tiles inside the bounds leave background showing
// through; a present-but-unreadable tile aborts the run.
func (c *Combiner) Combine(ctx context.Context, req Request) (*Map, error) {
	worldDir := req.World
	if !filepath.IsAbs(worldDir) {
		worldDir = filepath.Join(c.tilesDir, req.World)
	}
	if fi, err := os.Stat(worldDir); err != nil || !fi.IsDir() {
		return nil, configErrorf("not a directory or does not exist: %s", worldDir)
	}
	bpp, err := BlocksPerPixel(req.Zoom)
	if err != nil {
		return nil, err
	}
	blocksPerTile := TileSize * bpp

	c.logger.Info("finding tiles", "world", req.World, "zoom", req.Zoom)
	tiles, err := discoverTiles(filepath.Join(worldDir, strconv.Itoa(req.Zoom)), req.TileExt)
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w in %s at zoom %d", ErrNoTiles, worldDir, req.Zoom)
	}
	c.logger.Info("found tiles", "count", len(tiles))

	// The tile grid spans the wanted region indices inclusively. Resizing
	// by one unit before scaling turns the inclusive index range into an
	// exclusive pixel range, which also handles single-tile selections.
	var tileGrid geo.Grid
	if req.Area != nil {
		tileGrid = geo.NewGrid(req.Area.Map(func(n int) int {
			return geo.FloorDiv(n, blocksPerTile)
		}), 1)
	} else {
		tileGrid, err = geo.GridFromSteps(tileIndexes(tiles), 1)
		if err != nil {
			return nil, &InternalError{Msg: "tile map unexpectedly empty"}
		}
	}

	worldGrid := tileGrid.Resize(geo.Coord2i{X: 1, Y: 1}).
		Map(func(n int) int { return n * blocksPerTile }).
		WithStep(c.gridStep)

	canvasGrid := tileGrid.Resize(geo.Coord2i{X: 1, Y: 1}).
		TranslateTo(geo.Coord2i{}).
		Map(func(n int) int { return n * TileSize }).
		WithStep(TileSize)

	size := canvasGrid.Rect.Size()
	if size.X > maxCanvasDim || size.Y > maxCanvasDim {
		c.logger.Warn("large canvas requested", "width", size.X, "height", size.Y)
		msg := fmt.Sprintf("The combined image will be %dx%d pixels, which may be slow and memory-heavy. Continue?", size.X, size.Y)
		if !c.confirm(msg) {
			return nil, ErrCancelled
		}
	}

	// The canvas stays transparent until the very end; the background is
	// composited after cropping so auto trim still sees the tile coverage
	// when an opaque background is configured.
	c.logger.Info("constructing image", "width", size.X, "height", size.Y)
	canvas := imaging.New(size.X, size.Y, color.NRGBA{})

	if err := c.pasteTiles(ctx, canvas, tiles, tileGrid, canvasGrid); err != nil {
		return nil, err
	}

	m := &Map{Image: canvas, WorldZero: canvasGrid.Origin, BlocksPerPixel: bpp}

	// The opaque bounding box is captured before the overlay so grid lines
	// spanning the full canvas do not defeat auto trimming.
	var trimBox image.Rectangle
	trimOK := false
	if req.Crop != nil && req.Crop.Auto {
		trimBox, trimOK = opaqueBounds(canvas)
	}

	if worldGrid.Step > 0 {
		if err := c.drawOverlay(ctx, m, worldGrid, canvasGrid); err != nil {
			return nil, err
		}
	}

	if req.Area != nil {
		tl := req.Area.TopLeft().Sub(worldGrid.Rect.TopLeft()).DivN(bpp)
		br := req.Area.BottomRight().Sub(worldGrid.Rect.TopLeft()).DivN(bpp)
		m = m.cropTo(image.Rect(tl.X, tl.Y, br.X, br.Y))
	}

	if req.Crop != nil {
		switch {
		case req.Crop.Auto && req.Area != nil:
			c.logger.Debug("area crop given, skipping auto trim")
		case req.Crop.Auto && !trimOK:
			c.logger.Warn("image is fully transparent, nothing to trim")
		case req.Crop.Auto:
			c.logger.Info("trimming blank space",
				"from", fmt.Sprintf("%dx%d", size.X, size.Y),
				"to", fmt.Sprintf("%dx%d", trimBox.Dx(), trimBox.Dy()))
			m = m.cropTo(trimBox)
		default:
			m = c.cropCentered(m, req.Crop.Width, req.Crop.Height)
		}
	}

	if c.style.Background.A > 0 {
		b := m.Image.Bounds()
		bg := imaging.New(b.Dx(), b.Dy(), c.style.Background.NRGBA())
		draw.Draw(bg, b, m.Image, b.Min, draw.Over)
		m.Image = bg
	}

	return m, nil
}

// pasteTiles composites every available tile onto the canvas. Tile indices
// are paired positionally with paste pixels: the canvas grid shrunk by one
// tile so successive steps advance by exactly one tile width.
func (c *Combiner) pasteTiles(ctx context.Context, canvas *image.NRGBA, tiles map[geo.Coord2i]string, tileGrid, canvasGrid geo.Grid) error {
	pasteGrid := geo.NewGrid(canvasGrid.Rect.Resize(geo.Coord2i{X: -TileSize, Y: -TileSize}), TileSize)

	cols, rows := tileGrid.StepsX(), tileGrid.StepsY()
	xs, ys := pasteGrid.StepsX(), pasteGrid.StepsY()
	if len(cols) != len(xs) || len(rows) != len(ys) {
		return &InternalError{Msg: fmt.Sprintf(
			"tile grid %dx%d does not match paste grid %dx%d", len(cols), len(rows), len(xs), len(ys))}
	}

	report := c.newReporter()
	total := len(cols) * len(rows)
	done := 0
	for i, col := range cols {
		for j, row := range rows {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrCancelled, err)
			}
			done++
			report(fmt.Sprintf("pasting tiles: %d%%", done*100/total))

			path, ok := tiles[geo.Coord2i{X: col, Y: row}]
			if !ok {
				continue
			}
			tile, err := imaging.Open(path)
			if err != nil {
				return fmt.Errorf("opening tile %s: %w", path, err)
			}
			at := image.Pt(xs[i], ys[j])
			draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(tile.Bounds().Size())},
				tile, tile.Bounds().Min, draw.Over)
		}
	}
	return nil
}

// cropTo crops the map image to box, keeping the world zero marker in sync.
func (m *Map) cropTo(box image.Rectangle) *Map {
	return &Map{
		Image:          imaging.Crop(m.Image, box),
		WorldZero:      m.WorldZero.Sub(geo.Coord2i{X: box.Min.X, Y: box.Min.Y}),
		BlocksPerPixel: m.BlocksPerPixel,
	}
}

// cropCentered crops or pads the map to width x height about its center.
// When the target is larger than the image, the image is centered on a fresh
// transparent canvas instead; the background fill happens at the end of the
// pipeline.
func (c *Combiner) cropCentered(m *Map, width, height int) *Map {
	b := m.Image.Bounds()
	if width <= b.Dx() && height <= b.Dy() {
		x := (b.Dx() - width) / 2
		y := (b.Dy() - height) / 2
		return m.cropTo(image.Rect(x, y, x+width, y+height))
	}

	canvas := imaging.New(width, height, color.NRGBA{})
	at := image.Pt((width-b.Dx())/2, (height-b.Dy())/2)
	draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(b.Size())}, m.Image, b.Min, draw.Over)
	return &Map{
		Image:          canvas,
		WorldZero:      m.WorldZero.Add(geo.Coord2i{X: at.X, Y: at.Y}),
		BlocksPerPixel: m.BlocksPerPixel,
	}
}

// newReporter wraps the progress sink with time-based throttling so tight
// loops can report on every iteration without flooding the caller.
func (c *Combiner) newReporter() func(message string) {
	var last time.Time
	return func(message string) {
		now := time.Now()
		if now.Sub(last) < c.progressEvery {
			return
		}
		last = now
		c.progress(message)
	}
}
