package feedback

// Color is a linear RGBA colour.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// ColorProperty assigns a colour to one material property.
type ColorProperty struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// StormColor is one palette entry, applied as a whole.
type StormColor struct {
	Properties []ColorProperty `json:"properties"`
}

// DefaultPalette returns the stock storm colours.
func DefaultPalette() []StormColor {
	return []StormColor{
		{Properties: []ColorProperty{
			{Name: "storm_tint", Color: Color{R: 0.45, G: 0.5, B: 0.62, A: 1}},
			{Name: "storm_glow", Color: Color{R: 0.8, G: 0.85, B: 1, A: 1}},
		}},
		{Properties: []ColorProperty{
			{Name: "storm_tint", Color: Color{R: 0.42, G: 0.33, B: 0.6, A: 1}},
			{Name: "storm_glow", Color: Color{R: 0.9, G: 0.7, B: 1, A: 1}},
		}},
		{Properties: []ColorProperty{
			{Name: "storm_tint", Color: Color{R: 0.6, G: 0.5, B: 0.35, A: 1}},
			{Name: "storm_glow", Color: Color{R: 1, G: 0.85, B: 0.55, A: 1}},
		}},
	}
}

func (c *Choreographer) applyPalette() {
	if len(c.cfg.Palette) == 0 {
		return
	}
	entry := c.cfg.Palette[c.paletteIdx]
	c.paletteIdx = (c.paletteIdx + 1) % len(c.cfg.Palette)

	for _, p := range entry.Properties {
		c.setFloat(p.Name+".r", p.Color.R)
		c.setFloat(p.Name+".g", p.Color.G)
		c.setFloat(p.Name+".b", p.Color.B)
		c.setFloat(p.Name+".a", p.Color.A)
	}
}
