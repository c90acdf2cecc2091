package combiner

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultCoordsFormat is the label format used when a style does not set one.
const DefaultCoordsFormat = "({x}, {y})"

// Style bundles the rendering options for combined map images.
type Style struct {
	// Background fills any canvas area not covered by a tile. The default is
	// fully transparent.
	Background Color `json:"background"`

	// GridLineColor with zero alpha disables line drawing entirely.
	GridLineColor Color `json:"grid_line_color"`
	GridLineWidth int   `json:"grid_line_width"`

	// GridTextFont is a path to a TTF or OTF file. When empty the embedded
	// Go Regular face is used.
	GridTextFont        string `json:"grid_text_font"`
	GridTextSize        int    `json:"grid_text_size"`
	GridTextColor       Color  `json:"grid_text_color"`
	GridTextStroke      Color  `json:"grid_text_stroke"`
	GridTextStrokeWidth int    `json:"grid_text_stroke_width"`

	// CoordsFormat is the label template, with {x} and {y} substituted by
	// the world-space coordinate of each grid intersection. An empty string
	// disables labels.
	CoordsFormat string `json:"coords_format"`
}

// DefaultStyle returns the style used when none is supplied.
func DefaultStyle() Style {
	return Style{
		Background:     MustColor("transparent"),
		GridLineColor:  MustColor("black"),
		GridLineWidth:  1,
		GridTextSize:   12,
		GridTextColor:  MustColor("black"),
		GridTextStroke: MustColor("white"),
		CoordsFormat:   DefaultCoordsFormat,
	}
}

// LoadStyle reads a style from a JSON file path or, if no such file exists,
// parses the argument itself as a JSON document. Omitted fields keep their
// default values.
func LoadStyle(pathOrJSON string) (Style, error) {
	data := []byte(pathOrJSON)
	if fi, err := os.Stat(pathOrJSON); err == nil && !fi.IsDir() {
		data, err = os.ReadFile(pathOrJSON)
		if err != nil {
			return Style{}, fmt.Errorf("reading style file: %w", err)
		}
	}

	style := DefaultStyle()
	if err := json.Unmarshal(data, &style); err != nil {
		return Style{}, fmt.Errorf("parsing style: %w", err)
	}
	return style, nil
}

// JSON dumps the style as a JSON document.
func (s Style) JSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
