// Package palette holds the named three-colour presets and colour parsing.
package palette

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
)

// Palette is an ordered triple: background, body, highlight.
type Palette struct {
	Name   string
	Colors [3]mgl32.Vec3
}

var presets = []Palette{
	{"Candy Shop", [3]mgl32.Vec3{{0.31, 0.14, 0.33}, {0.87, 0.85, 0.65}, {0.54, 0.99, 0.77}}},
	{"Biolab", [3]mgl32.Vec3{{0.12, 0.07, 0.15}, {0.1, 0.31, 0.2}, {0.87, 0.93, 0.53}}},
	{"Forest", [3]mgl32.Vec3{{0.13, 0.11, 0}, {0.4, 0.7, 0.2}, {0.9, 1, 0.6}}},
	{"Tropical Reef", [3]mgl32.Vec3{{0.05, 0.1, 0.2}, {0.15, 0.7, 0.6}, {0.95, 0.9, 0.55}}},
	{"Deep Ocean", [3]mgl32.Vec3{{0, 0.1, 0.3}, {0.2, 0.6, 0.8}, {0.95, 0.95, 0.8}}},
	{"Cold Snap", [3]mgl32.Vec3{{0, 0.07, 0.12}, {0.3, 0.55, 0.7}, {0.95, 0.98, 1}}},
	{"Amethyst Dawn", [3]mgl32.Vec3{{0.18, 0.08, 0.25}, {0.65, 0.4, 0.55}, {0.95, 0.88, 0.8}}},
	{"Rosewood Sky", [3]mgl32.Vec3{{0.15, 0.05, 0.07}, {0.4, 0.3, 0.55}, {0.92, 0.88, 0.98}}},
	{"Neon Rust", [3]mgl32.Vec3{{0.2, 0.07, 0.037}, {0.72, 0.41, 0.17}, {0.6, 0.95, 0.94}}},
	{"Heat Wave", [3]mgl32.Vec3{{0.15, 0, 0.15}, {0.8, 0.5, 0.3}, {1, 0.9, 0.66}}},
	{"Core Meltdown", [3]mgl32.Vec3{{0.22, 0.05, 0.27}, {0.8, 0.66, 0.2}, {0.985, 0.985, 0.7}}},
}

// All returns the presets in display order.
func All() []Palette {
	out := make([]Palette, len(presets))
	copy(out, presets)
	return out
}

// Names returns the preset names in display order.
func Names() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a preset by case-insensitive name. Unknown names fall back
// to the first preset and report false.
func Lookup(name string) (Palette, bool) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return presets[0], false
}

// ParseColor accepts "#rrggbb", "#rgb", "rgb(r,g,b)" with 0..255 components,
// or an SVG colour name. Components are returned in [0,1].
func ParseColor(s string) (mgl32.Vec3, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return mgl32.Vec3{}, fmt.Errorf("colour %q: want three components", s)
		}
		var c mgl32.Vec3
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return mgl32.Vec3{}, fmt.Errorf("colour %q: %w", s, err)
			}
			c[i] = float32(max(0, min(255, v)) / 255)
		}
		return c, nil
	}
	if named, ok := colornames.Map[s]; ok {
		return mgl32.Vec3{float32(named.R) / 255, float32(named.G) / 255, float32(named.B) / 255}, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("colour %q: unrecognized format", s)
}

// MustParseColor is ParseColor for literals known to be valid.
func MustParseColor(s string) mgl32.Vec3 {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(h string) (mgl32.Vec3, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return mgl32.Vec3{}, fmt.Errorf("colour #%s: want 3 or 6 hex digits", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("colour #%s: %w", h, err)
	}
	return mgl32.Vec3{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}
