package combiner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiesman99/squarestitch/pkg/geo"
)

// Tile images are named after their region index, e.g. "-1_0.png".
var tileNameRegexp = regexp.MustCompile(`^(-?\d+)_(-?\d+)$`)

// discoverTiles scans dir for tile images and returns a map from tile index
// to file path. ext filters by file extension; "" or "*" accepts any.
// Files whose names do not match the "{col}_{row}" pattern are ignored.
func discoverTiles(dir, ext string) (map[geo.Coord2i]string, error) {
	ext = strings.TrimPrefix(ext, ".")

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, configErrorf("no tile directory at %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading tile directory: %w", err)
	}

	tiles := make(map[geo.Coord2i]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		fileExt := strings.TrimPrefix(filepath.Ext(name), ".")
		if ext != "" && ext != "*" && fileExt != ext {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		m := tileNameRegexp.FindStringSubmatch(stem)
		if m == nil {
			continue
		}
		col, _ := strconv.Atoi(m[1])
		row, _ := strconv.Atoi(m[2])
		tiles[geo.Coord2i{X: col, Y: row}] = filepath.Join(dir, name)
	}
	return tiles, nil
}

// tileIndexes returns the keys of a tile map as a slice.
func tileIndexes(tiles map[geo.Coord2i]string) []geo.Coord2i {
	out := make([]geo.Coord2i, 0, len(tiles))
	for c := range tiles {
		out = append(out, c)
	}
	return out
}
