package present

import (
	"fmt"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette colors ranked rows: rank 1 gets Highlight, the rest fade from
// AlphaHigh to AlphaLow over the Base hue.
type Palette struct {
	Highlight string
	Base      string
	AlphaHigh float64
	AlphaLow  float64
}

// DefaultPalette is red for first place over a fading blue.
func DefaultPalette() Palette {
	return Palette{
		Highlight: "rgba(255,0,0,1.0)",
		Base:      "#1f77b4",
		AlphaHigh: 0.95,
		AlphaLow:  0.25,
	}
}

// Validate checks that Base parses and the alpha bounds are in [0,1].
func (p Palette) Validate() error {
	if _, err := colorful.Hex(p.Base); err != nil {
		return fmt.Errorf("gradient base %q: %w", p.Base, err)
	}
	for _, a := range []float64{p.AlphaHigh, p.AlphaLow} {
		if a < 0 || a > 1 {
			return fmt.Errorf("gradient alpha %v out of range [0,1]", a)
		}
	}
	return nil
}

// Assign returns n colors in rank order. A single gradient row gets the
// high bound.
func (p Palette) Assign(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	out = append(out, p.Highlight)
	for _, a := range p.alphas(n - 1) {
		out = append(out, p.gradient(a))
	}
	return out
}

func (p Palette) alphas(m int) []float64 {
	out := make([]float64, m)
	for i := range out {
		if m == 1 {
			out[i] = p.AlphaHigh
			continue
		}
		out[i] = p.AlphaHigh - (p.AlphaHigh-p.AlphaLow)*float64(i)/float64(m-1)
	}
	return out
}

func (p Palette) gradient(alpha float64) string {
	c, err := colorful.Hex(p.Base)
	if err != nil {
		c = colorful.Color{R: 0x1f / 255.0, G: 0x77 / 255.0, B: 0xb4 / 255.0}
	}
	r, g, b := c.RGB255()
	a := strconv.FormatFloat(math.Round(alpha*1000)/1000, 'f', -1, 64)
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, a)
}

// Alpha extracts the alpha channel from an rgba() color, or 1 for the
// highlight and anything unparseable.
func Alpha(color string) float64 {
	var r, g, b int
	var a float64
	if _, err := fmt.Sscanf(color, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); err != nil {
		return 1
	}
	return a
}

// TerminalHex flattens an rgba() or hex color onto a white background and
// returns it as #rrggbb. It reports false for unparseable colors.
func TerminalHex(color string) (string, bool) {
	if c, err := colorful.Hex(color); err == nil {
		return c.Hex(), true
	}
	var r, g, b int
	var a float64
	if _, err := fmt.Sscanf(color, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); err != nil {
		return "", false
	}
	a = math.Max(0, math.Min(1, a))
	base := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	white := colorful.Color{R: 1, G: 1, B: 1}
	return white.BlendRgb(base, a).Clamped().Hex(), true
}
