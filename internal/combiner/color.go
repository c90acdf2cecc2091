package combiner

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is an 8-bit-per-channel RGBA value. The zero value is fully
// transparent black.
type Color struct {
	R, G, B, A uint8
}

// Symbolic color names accepted by ParseColor.
var colorNames = map[string]Color{
	"transparent": {0, 0, 0, 0},
	"clear":       {0, 0, 0, 0},
	"white":       {255, 255, 255, 255},
	"black":       {0, 0, 0, 255},
	"red":         {255, 0, 0, 255},
	"green":       {0, 255, 0, 255},
	"blue":        {0, 0, 255, 255},
	"yellow":      {255, 255, 0, 255},
	"magenta":     {255, 0, 255, 255},
	"cyan":        {0, 255, 255, 255},
}

// ParseColor parses s as a #RGB, #RRGGBB or #RRGGBBAA hex code (the leading
// '#' is optional) or as a symbolic name such as "black" or "transparent".
func ParseColor(s string) (Color, error) {
	if s == "" {
		return Color{}, fmt.Errorf("empty color string")
	}
	if c, ok := colorNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	return parseHexColor(s)
}

func parseHexColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.ToLower(s), "#")
	switch len(hex) {
	case 3:
		var sb strings.Builder
		for _, ch := range hex {
			sb.WriteRune(ch)
			sb.WriteRune(ch)
		}
		hex = sb.String() + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return Color{}, fmt.Errorf("invalid color %q: hex codes must be 3, 6 or 8 digits", s)
	}

	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		R: uint8(val >> 24),
		G: uint8(val >> 16),
		B: uint8(val >> 8),
		A: uint8(val),
	}, nil
}

// MustColor is ParseColor for known-good literals; it panics on error.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the color as an 8-digit lowercase hex string with a leading
// '#'.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// RGBA implements color.Color with alpha-premultiplied 16-bit channels.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

// NRGBA returns the non-premultiplied stdlib representation.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// MarshalJSON encodes the color as its hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON accepts either a hex/name string or a [r, g, b, a] array.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseColor(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var arr []uint8
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("color must be a hex string, name or channel array")
	}
	if len(arr) != 3 && len(arr) != 4 {
		return fmt.Errorf("color array must have 3 or 4 channels, got %d", len(arr))
	}
	*c = Color{R: arr[0], G: arr[1], B: arr[2], A: 255}
	if len(arr) == 4 {
		c.A = arr[3]
	}
	return nil
}
