// Package theme resolves the two color tokens the background animation
// consumes from the active presentation theme.
package theme

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit color triple in canvas space.
type RGB struct {
	R, G, B uint8
}

// Palette holds the two tokens the flow field draws with.
type Palette struct {
	Accent     RGB
	Background RGB
}

// Named presentation themes. Light matches the site's default tokens.
var (
	Light = Palette{
		Accent:     mustHex("#2563eb"),
		Background: mustHex("#fafaf9"),
	}
	Dark = Palette{
		Accent:     mustHex("#3b82f6"),
		Background: mustHex("#0c0a09"),
	}
)

// ParseHex parses a hex color token ("#rrggbb" or "rrggbb") to an RGB triple.
func ParseHex(token string) (RGB, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return RGB{}, fmt.Errorf("parse hex color: empty token")
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("parse hex color %q: %w", token, err)
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

// ByName returns the palette for a theme name.
func ByName(name string) (Palette, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light", "":
		return Light, nil
	case "dark":
		return Dark, nil
	default:
		return Palette{}, fmt.Errorf("unknown theme %q", name)
	}
}

func mustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic("theme: bad builtin color " + s + ": " + err.Error())
	}
	return c
}
