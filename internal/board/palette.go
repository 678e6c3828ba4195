package board

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette holds the hex colors used for board primitives.
type Palette struct {
	LightPoint string `yaml:"light_point"`
	DarkPoint  string `yaml:"dark_point"`
	Bar        string `yaml:"bar"`
	PlayerOne  string `yaml:"player_one"`
	PlayerTwo  string `yaml:"player_two"`
	Stroke     string `yaml:"stroke"`
}

func DefaultPalette() Palette {
	return Palette{
		LightPoint: "#f5d6b5",
		DarkPoint:  "#8b5a2b",
		Bar:        "#333333",
		PlayerOne:  "#ffffff",
		PlayerTwo:  "#ff0000",
		Stroke:     "#000000",
	}
}

// ParsePalette fills empty fields from the default palette and normalises every entry to #rrggbb.
func ParsePalette(p Palette) (Palette, error) {
	def := DefaultPalette()
	fields := []struct {
		name string
		val  *string
		def  string
	}{
		{"light_point", &p.LightPoint, def.LightPoint},
		{"dark_point", &p.DarkPoint, def.DarkPoint},
		{"bar", &p.Bar, def.Bar},
		{"player_one", &p.PlayerOne, def.PlayerOne},
		{"player_two", &p.PlayerTwo, def.PlayerTwo},
		{"stroke", &p.Stroke, def.Stroke},
	}
	for _, f := range fields {
		if *f.val == "" {
			*f.val = f.def
			continue
		}
		c, err := colorful.Hex(*f.val)
		if err != nil {
			return Palette{}, fmt.Errorf("palette %s: %w", f.name, err)
		}
		*f.val = c.Hex()
	}
	return p, nil
}

// PlayerColor returns the fill for a checker; ok is false for unknown tags.
func (p Palette) PlayerColor(pl Player) (string, bool) {
	switch pl {
	case PlayerOne:
		return p.PlayerOne, true
	case PlayerTwo:
		return p.PlayerTwo, true
	default:
		return "", false
	}
}

// HexToRGBA converts a hex color to an opaque color.RGBA.
func HexToRGBA(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
