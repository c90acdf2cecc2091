package combiner

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/kiesman99/squarestitch/pkg/geo"
)

var (
	colRed    = color.NRGBA{R: 255, A: 255}
	colGreen  = color.NRGBA{G: 255, A: 255}
	colBlue   = color.NRGBA{B: 255, A: 255}
	colYellow = color.NRGBA{R: 255, G: 255, A: 255}
)

// writeTile saves a solid-colored tile image under dir/world/zoom/name.png.
func writeTile(t *testing.T, dir, world string, zoom int, name string, c color.NRGBA) {
	t.Helper()
	tileDir := filepath.Join(dir, world, itoa(zoom))
	if err := os.MkdirAll(tileDir, 0o755); err != nil {
		t.Fatal(err)
	}
	img := imaging.New(TileSize, TileSize, c)
	if err := imaging.Save(img, filepath.Join(tileDir, name+".png")); err != nil {
		t.Fatal(err)
	}
}

func itoa(n int) string {
	return string(rune('0' + n))
}

// quadrantTiles writes four solid tiles around the world origin at zoom 3.
func quadrantTiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "-1_-1", colRed)
	writeTile(t, dir, "minecraft_overworld", 3, "0_-1", colGreen)
	writeTile(t, dir, "minecraft_overworld", 3, "-1_0", colBlue)
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colYellow)
	return dir
}

func newTestCombiner(t *testing.T, dir string, cfg Config) *Combiner {
	t.Helper()
	c, err := New(dir, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCombineFullMap(t *testing.T) {
	c := newTestCombiner(t, quadrantTiles(t), Config{})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if got := m.Size(); got != (geo.Coord2i{X: 1024, Y: 1024}) {
		t.Fatalf("size = %v, want (1024, 1024)", got)
	}
	if m.WorldZero != (geo.Coord2i{X: 512, Y: 512}) {
		t.Errorf("world zero = %v, want (512, 512)", m.WorldZero)
	}
	if m.BlocksPerPixel != 1 {
		t.Errorf("blocks per pixel = %d, want 1", m.BlocksPerPixel)
	}

	quadrants := []struct {
		at   image.Point
		want color.NRGBA
	}{
		{image.Pt(100, 100), colRed},
		{image.Pt(700, 100), colGreen},
		{image.Pt(100, 700), colBlue},
		{image.Pt(700, 700), colYellow},
	}
	for _, q := range quadrants {
		if got := m.Image.NRGBAAt(q.at.X, q.at.Y); got != q.want {
			t.Errorf("pixel at %v = %v, want %v", q.at, got, q.want)
		}
	}
}

func TestCombineSingleTile(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colRed)
	c := newTestCombiner(t, dir, Config{})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got := m.Size(); got != (geo.Coord2i{X: 512, Y: 512}) {
		t.Fatalf("size = %v, want (512, 512)", got)
	}
	if m.WorldZero != (geo.Coord2i{}) {
		t.Errorf("world zero = %v, want (0, 0)", m.WorldZero)
	}
}

func TestCombineTilesAwayFromOrigin(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "2_3", colRed)
	writeTile(t, dir, "minecraft_overworld", 3, "3_3", colGreen)
	c := newTestCombiner(t, dir, Config{})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if got := m.Size(); got != (geo.Coord2i{X: 1024, Y: 512}) {
		t.Fatalf("size = %v, want (1024, 512)", got)
	}
	if m.WorldZero != (geo.Coord2i{X: -1024, Y: -1536}) {
		t.Errorf("world zero = %v, want (-1024, -1536)", m.WorldZero)
	}
	if got := m.Image.NRGBAAt(100, 100); got != colRed {
		t.Errorf("left tile pixel = %v, want %v", got, colRed)
	}
	if got := m.Image.NRGBAAt(700, 100); got != colGreen {
		t.Errorf("right tile pixel = %v, want %v", got, colGreen)
	}
}

func TestCombineArea(t *testing.T) {
	c := newTestCombiner(t, quadrantTiles(t), Config{})

	area := geo.Rect{X1: -256, Y1: -256, X2: 256, Y2: 256}
	m, err := c.Combine(context.Background(), Request{
		World: "minecraft_overworld",
		Zoom:  3,
		Area:  &area,
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if got := m.Size(); got != (geo.Coord2i{X: 512, Y: 512}) {
		t.Fatalf("size = %v, want (512, 512)", got)
	}
	if m.WorldZero != (geo.Coord2i{X: 256, Y: 256}) {
		t.Errorf("world zero = %v, want (256, 256)", m.WorldZero)
	}

	// The output is the center intersection of all four quadrant tiles.
	corners := []struct {
		at   image.Point
		want color.NRGBA
	}{
		{image.Pt(10, 10), colRed},
		{image.Pt(500, 10), colGreen},
		{image.Pt(10, 500), colBlue},
		{image.Pt(500, 500), colYellow},
	}
	for _, q := range corners {
		if got := m.Image.NRGBAAt(q.at.X, q.at.Y); got != q.want {
			t.Errorf("pixel at %v = %v, want %v", q.at, got, q.want)
		}
	}
}

func TestCombineMissingTileLeavesBackground(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "-1_-1", colRed)
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colYellow)
	c := newTestCombiner(t, dir, Config{})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if got := m.Size(); got != (geo.Coord2i{X: 1024, Y: 1024}) {
		t.Fatalf("size = %v, want (1024, 1024)", got)
	}
	if got := m.Image.NRGBAAt(100, 100); got != colRed {
		t.Errorf("present tile pixel = %v, want %v", got, colRed)
	}
	if got := m.Image.NRGBAAt(700, 100); got.A != 0 {
		t.Errorf("missing tile pixel = %v, want transparent", got)
	}
}

func TestCombineGridLines(t *testing.T) {
	c := newTestCombiner(t, quadrantTiles(t), Config{
		GridStep: 512,
		Style: Style{
			GridLineColor: MustColor("black"),
			GridLineWidth: 1,
		},
	})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	lineCol := color.NRGBA{A: 255}
	for _, x := range []int{0, 512} {
		if got := m.Image.NRGBAAt(x, 100); got != lineCol {
			t.Errorf("expected vertical grid line at x=%d, got %v", x, got)
		}
	}
	for _, y := range []int{0, 512} {
		if got := m.Image.NRGBAAt(100, y); got != lineCol {
			t.Errorf("expected horizontal grid line at y=%d, got %v", y, got)
		}
	}
	if got := m.Image.NRGBAAt(100, 100); got != colRed {
		t.Errorf("off-line pixel = %v, want tile color", got)
	}
}

func TestCombineCoordinateLabels(t *testing.T) {
	c := newTestCombiner(t, quadrantTiles(t), Config{
		GridStep: 512,
		Style: Style{
			GridTextColor:       MustColor("red"),
			GridTextSize:        16,
			GridTextStroke:      MustColor("white"),
			GridTextStrokeWidth: 1,
			CoordsFormat:        "({x}, {y})",
		},
	})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	// The world origin projects to pixel (512, 512), so the "(0, 0)" label
	// lands on the yellow quadrant. Lines are disabled, so any pixel there
	// that is not plain yellow came from the label.
	changed, reddish := 0, 0
	for y := 512; y < 560; y++ {
		for x := 512; x < 640; x++ {
			got := m.Image.NRGBAAt(x, y)
			if got == colYellow {
				continue
			}
			changed++
			if got.R == 255 && got.G < 255 {
				reddish++
			}
		}
	}
	if changed == 0 {
		t.Fatal("no label pixels drawn near the origin intersection")
	}
	if reddish == 0 {
		t.Error("no text-colored pixels found near the origin intersection")
	}
}

func TestCombineLabelFontMissing(t *testing.T) {
	c := newTestCombiner(t, quadrantTiles(t), Config{
		GridStep: 512,
		Style: Style{
			GridTextFont:  filepath.Join(t.TempDir(), "missing.ttf"),
			GridTextColor: MustColor("red"),
			CoordsFormat:  "({x}, {y})",
		},
	})

	_, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a ConfigError for a missing font file, got %v", err)
	}
}

func TestCombineGridLinesDrawnOverLabels(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colRed)
	c := newTestCombiner(t, dir, Config{
		GridStep: 256,
		Style: Style{
			GridLineColor:       MustColor("black"),
			GridLineWidth:       1,
			GridTextColor:       MustColor("blue"),
			GridTextSize:        24,
			GridTextStroke:      MustColor("white"),
			GridTextStrokeWidth: 2,
			CoordsFormat:        "{x}",
		},
	})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	// Labels render at every intersection, but the lines go down afterwards
	// so every grid column stays unbroken.
	lineCol := color.NRGBA{A: 255}
	for _, x := range []int{0, 256} {
		for y := 0; y < 512; y++ {
			if got := m.Image.NRGBAAt(x, y); got != lineCol {
				t.Fatalf("pixel (%d, %d) = %v, want unbroken grid line %v", x, y, got, lineCol)
			}
		}
	}
}

func TestCombineBackgroundFill(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "-1_-1", colRed)
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colYellow)
	c := newTestCombiner(t, dir, Config{
		Style: Style{Background: MustColor("white")},
	})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 3})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if got := m.Image.NRGBAAt(700, 100); got != white {
		t.Errorf("missing tile pixel = %v, want background %v", got, white)
	}
	if got := m.Image.NRGBAAt(100, 100); got != colRed {
		t.Errorf("present tile pixel = %v, want %v", got, colRed)
	}
}

func TestCombineAutoTrim(t *testing.T) {
	dir := t.TempDir()
	tileDir := filepath.Join(dir, "minecraft_overworld", "3")
	if err := os.MkdirAll(tileDir, 0o755); err != nil {
		t.Fatal(err)
	}
	img := imaging.New(TileSize, TileSize, color.NRGBA{})
	draw.Draw(img, image.Rect(100, 200, 300, 350), image.NewUniform(colRed), image.Point{}, draw.Src)
	if err := imaging.Save(img, filepath.Join(tileDir, "0_0.png")); err != nil {
		t.Fatal(err)
	}

	c := newTestCombiner(t, dir, Config{})
	m, err := c.Combine(context.Background(), Request{
		World: "minecraft_overworld",
		Zoom:  3,
		Crop:  &CropSpec{Auto: true},
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if got := m.Size(); got != (geo.Coord2i{X: 200, Y: 150}) {
		t.Fatalf("trimmed size = %v, want (200, 150)", got)
	}
	b := m.Image.Bounds()
	for _, p := range []image.Point{
		{b.Min.X, b.Min.Y},
		{b.Max.X - 1, b.Min.Y},
		{b.Min.X, b.Max.Y - 1},
		{b.Max.X - 1, b.Max.Y - 1},
	} {
		if got := m.Image.NRGBAAt(p.X, p.Y); got.A == 0 {
			t.Errorf("trimmed border pixel %v is transparent", p)
		}
	}
	// World zero follows the crop.
	if m.WorldZero != (geo.Coord2i{X: -100, Y: -200}) {
		t.Errorf("world zero = %v, want (-100, -200)", m.WorldZero)
	}
}

func TestCombineAutoTrimWithOpaqueBackground(t *testing.T) {
	dir := t.TempDir()
	tileDir := filepath.Join(dir, "minecraft_overworld", "3")
	if err := os.MkdirAll(tileDir, 0o755); err != nil {
		t.Fatal(err)
	}
	img := imaging.New(TileSize, TileSize, color.NRGBA{})
	draw.Draw(img, image.Rect(100, 200, 300, 350), image.NewUniform(colRed), image.Point{}, draw.Src)
	if err := imaging.Save(img, filepath.Join(tileDir, "0_0.png")); err != nil {
		t.Fatal(err)
	}

	c := newTestCombiner(t, dir, Config{
		Style: Style{Background: MustColor("white")},
	})
	m, err := c.Combine(context.Background(), Request{
		World: "minecraft_overworld",
		Zoom:  3,
		Crop:  &CropSpec{Auto: true},
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	// The background fill must not defeat trimming to the tile coverage.
	if got := m.Size(); got != (geo.Coord2i{X: 200, Y: 150}) {
		t.Fatalf("trimmed size = %v, want (200, 150)", got)
	}
	if got := m.Image.NRGBAAt(0, 0); got != colRed {
		t.Errorf("trimmed pixel = %v, want %v", got, colRed)
	}
}

func TestCombineAutoTrimFullyTransparent(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", color.NRGBA{})
	c := newTestCombiner(t, dir, Config{})

	m, err := c.Combine(context.Background(), Request{
		World: "minecraft_overworld",
		Zoom:  3,
		Crop:  &CropSpec{Auto: true},
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got := m.Size(); got != (geo.Coord2i{X: 512, Y: 512}) {
		t.Errorf("size = %v, want unchanged (512, 512)", got)
	}
}

func TestCombineFixedCrop(t *testing.T) {
	c := newTestCombiner(t, quadrantTiles(t), Config{})

	m, err := c.Combine(context.Background(), Request{
		World: "minecraft_overworld",
		Zoom:  3,
		Crop:  &CropSpec{Width: 512, Height: 512},
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got := m.Size(); got != (geo.Coord2i{X: 512, Y: 512}) {
		t.Fatalf("size = %v, want (512, 512)", got)
	}
	if m.WorldZero != (geo.Coord2i{X: 256, Y: 256}) {
		t.Errorf("world zero = %v, want (256, 256)", m.WorldZero)
	}
}

func TestCombineFixedCropLargerThanImage(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colRed)
	c := newTestCombiner(t, dir, Config{})

	m, err := c.Combine(context.Background(), Request{
		World: "minecraft_overworld",
		Zoom:  3,
		Crop:  &CropSpec{Width: 1024, Height: 1024},
	})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got := m.Size(); got != (geo.Coord2i{X: 1024, Y: 1024}) {
		t.Fatalf("size = %v, want (1024, 1024)", got)
	}
	if got := m.Image.NRGBAAt(512, 512); got != colRed {
		t.Errorf("center pixel = %v, want %v", got, colRed)
	}
	if got := m.Image.NRGBAAt(10, 10); got.A != 0 {
		t.Errorf("padded pixel = %v, want transparent", got)
	}
	if m.WorldZero != (geo.Coord2i{X: 256, Y: 256}) {
		t.Errorf("world zero = %v, want (256, 256)", m.WorldZero)
	}
}

func TestCombineZoomScalesWorldSpace(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 0, "0_0", colRed)
	c := newTestCombiner(t, dir, Config{})

	m, err := c.Combine(context.Background(), Request{World: "minecraft_overworld", Zoom: 0})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if m.BlocksPerPixel != 8 {
		t.Fatalf("blocks per pixel = %d, want 8", m.BlocksPerPixel)
	}
	if got := m.ToWorldSpace(geo.Coord2i{X: 10, Y: 2}); got != (geo.Coord2i{X: 80, Y: 16}) {
		t.Errorf("ToWorldSpace = %v, want (80, 16)", got)
	}
	if got := m.ToCanvasSpace(geo.Coord2i{X: 80, Y: 16}); got != (geo.Coord2i{X: 10, Y: 2}) {
		t.Errorf("ToCanvasSpace = %v, want (10, 2)", got)
	}
}

func TestCombineErrors(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colRed)
	c := newTestCombiner(t, dir, Config{})
	ctx := context.Background()

	t.Run("unknown world", func(t *testing.T) {
		_, err := c.Combine(ctx, Request{World: "minecraft_the_moon", Zoom: 3})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected a ConfigError, got %v", err)
		}
	})

	t.Run("invalid zoom", func(t *testing.T) {
		_, err := c.Combine(ctx, Request{World: "minecraft_overworld", Zoom: 4})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected a ConfigError, got %v", err)
		}
	})

	t.Run("no tiles", func(t *testing.T) {
		_, err := c.Combine(ctx, Request{World: "minecraft_overworld", Zoom: 2})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			// zoom 2 directory does not exist at all
			t.Fatalf("expected a ConfigError, got %v", err)
		}

		empty := filepath.Join(dir, "minecraft_overworld", "1")
		if err := os.MkdirAll(empty, 0o755); err != nil {
			t.Fatal(err)
		}
		_, err = c.Combine(ctx, Request{World: "minecraft_overworld", Zoom: 1})
		if !errors.Is(err, ErrNoTiles) {
			t.Fatalf("expected ErrNoTiles, got %v", err)
		}
	})

	t.Run("corrupt tile", func(t *testing.T) {
		bad := t.TempDir()
		tileDir := filepath.Join(bad, "minecraft_overworld", "3")
		if err := os.MkdirAll(tileDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(tileDir, "0_0.png"), []byte("not a png"), 0o644); err != nil {
			t.Fatal(err)
		}
		bc := newTestCombiner(t, bad, Config{})
		if _, err := bc.Combine(ctx, Request{World: "minecraft_overworld", Zoom: 3}); err == nil {
			t.Fatal("expected an error for an unreadable tile")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Combine(cancelled, Request{World: "minecraft_overworld", Zoom: 3})
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
	})
}

func TestCombineConfirmDecline(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colRed)
	c := newTestCombiner(t, dir, Config{
		Confirm: func(string) bool { return false },
	})

	// A 12800x12800 block area at zoom 3 needs a canvas above the size
	// threshold, which the declining callback rejects.
	area := geo.Rect{X1: 0, Y1: 0, X2: 12800, Y2: 12800}
	_, err := c.Combine(context.Background(), Request{
		World: "minecraft_overworld",
		Zoom:  3,
		Area:  &area,
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestWorlds(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "minecraft_overworld", 3, "0_0", colRed)
	writeTile(t, dir, "minecraft_the_nether", 3, "0_0", colRed)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestCombiner(t, dir, Config{})
	worlds, err := c.Worlds()
	if err != nil {
		t.Fatalf("Worlds: %v", err)
	}
	want := []string{"minecraft_overworld", "minecraft_the_nether"}
	if len(worlds) != len(want) || worlds[0] != want[0] || worlds[1] != want[1] {
		t.Errorf("Worlds = %v, want %v", worlds, want)
	}
}

func TestParseCrop(t *testing.T) {
	tests := []struct {
		input   string
		want    CropSpec
		wantErr bool
	}{
		{input: "auto", want: CropSpec{Auto: true}},
		{input: "AUTO", want: CropSpec{Auto: true}},
		{input: "1920x1080", want: CropSpec{Width: 1920, Height: 1080}},
		{input: "0x100", wantErr: true},
		{input: "1920", wantErr: true},
		{input: "axb", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCrop(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCrop(%q): expected an error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCrop(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCrop(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDiscoverTiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0_0.png", "-3_12.png", "1_1.jpg", "thumbnail.png", "x_y.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tiles, err := discoverTiles(dir, "png")
	if err != nil {
		t.Fatalf("discoverTiles: %v", err)
	}
	if len(tiles) != 2 {
		t.Fatalf("found %d tiles, want 2: %v", len(tiles), tiles)
	}
	if _, ok := tiles[geo.Coord2i{X: -3, Y: 12}]; !ok {
		t.Errorf("tile -3_12 not discovered: %v", tiles)
	}

	all, err := discoverTiles(dir, "*")
	if err != nil {
		t.Fatalf("discoverTiles: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("found %d tiles with any extension, want 3: %v", len(all), all)
	}
}
