package graph

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// defaultStyles is cycled through for graphs without an explicit point style.
var defaultStyles = []PointStyle{
	{Color: "#0000ff", Size: 20, Marker: "o", LineStyle: "-"},
	{Color: "#ff0000", Size: 20, Marker: "x", LineStyle: "-"},
	{Color: "#00a000", Size: 20, Marker: "^", LineStyle: "--"},
	{Color: "#ff8000", Size: 20, Marker: "s", LineStyle: "--"},
	{Color: "#a000a0", Size: 20, Marker: "d", LineStyle: ":"},
	{Color: "#00c0c0", Size: 20, Marker: "+", LineStyle: ":"},
	{Color: "#606060", Size: 20, Marker: "*", LineStyle: "-."},
	{Color: "#000000", Size: 20, Marker: "o", LineStyle: "-."},
}

// resolve fills the unset fields of style from the default for slot s.
func resolve(style PointStyle, s int) PointStyle {
	d := defaultStyles[s%len(defaultStyles)]
	if style.Color == "" {
		style.Color = d.Color
	}
	if style.Size <= 0 {
		style.Size = d.Size
	}
	if style.Marker == "" {
		style.Marker = d.Marker
	}
	if style.LineStyle == "" {
		style.LineStyle = d.LineStyle
	}
	return style
}

var shortColors = map[string]color.Color{
	"b": color.RGBA{B: 255, A: 255},
	"g": color.RGBA{G: 128, A: 255},
	"r": color.RGBA{R: 255, A: 255},
	"c": color.RGBA{G: 191, B: 191, A: 255},
	"m": color.RGBA{R: 191, B: 191, A: 255},
	"y": color.RGBA{R: 191, G: 191, A: 255},
	"k": color.RGBA{A: 255},
	"w": color.RGBA{R: 255, G: 255, B: 255, A: 255},
}

// parseColor accepts single letter codes, #rrggbb and SVG colour names.
func parseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := shortColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid color %s: %w", s, err)
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown color %s", s)
}

func glyph(marker string) draw.GlyphDrawer {
	switch marker {
	case "s":
		return draw.BoxGlyph{}
	case "^":
		return draw.TriangleGlyph{}
	case "v", "d", "D":
		return draw.PyramidGlyph{}
	case "x":
		return draw.CrossGlyph{}
	case "+":
		return draw.PlusGlyph{}
	case "*":
		return draw.RingGlyph{}
	default:
		return draw.CircleGlyph{}
	}
}

// radius converts a marker area in points² to a glyph radius.
func radius(size float64) vg.Length {
	return vg.Points(math.Sqrt(size) / 2)
}

func dashes(style string) []vg.Length {
	switch style {
	case "--", "dashed":
		return []vg.Length{vg.Points(6), vg.Points(3)}
	case ":", "dotted":
		return []vg.Length{vg.Points(1), vg.Points(3)}
	case "-.", "dashdot":
		return []vg.Length{vg.Points(6), vg.Points(3), vg.Points(1), vg.Points(3)}
	default:
		return nil
	}
}
