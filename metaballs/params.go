package metaballs

import (
	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/palette"
	"github.com/pthm-cable/slimefield/sim"
)

// GridSizes are the selectable base field resolutions.
var GridSizes = []int{128, 192, 256, 384, 512, 768, 1024}

func (s *Simulation) registerParams() *sim.Registry {
	c := &s.cfg
	r := sim.NewRegistry()
	dirty := func() { s.fieldDirty = true }

	r.Group("Field")
	r.Enum("grid_size", "Grid Size", GridSizes, &c.GridSize, func() { s.needsRealloc = true })
	r.Int("ball_count", "Balls", 1, 24, &c.BallCount, func() { s.needsReset = true })
	r.Bool("animate", "Animate", &c.Animate, dirty)
	r.Float("speed", "Speed", 0, 4, 0.01, &c.Speed, nil)

	r.Group("Contour")
	r.Float("threshold", "Threshold", 0.1, 4, 0.01, &c.Threshold, nil)
	r.Float("softness", "Softness", 0.001, 0.5, 0.001, &c.Softness, nil)
	r.Float("line_width_px", "Line Width", 0.25, 6, 0.05, &c.LineWidthPx, nil)
	r.Bool("show_contours", "Contours", &c.ShowContours, nil)

	r.Group("Colour")
	r.Choice("color_mode", "Mode", []string{config.ColorModeSingle, config.ColorModePalette}, &c.ColorMode, s.refreshColors)
	r.Choice("palette", "Palette", palette.Names(), &c.Palette, s.refreshColors)
	r.Bool("use_palette_background", "Palette Background", &c.UsePaletteBackground, nil)
	r.Text("blob_color", "Blob", &c.BlobColor, validColor, s.refreshColors)
	r.Text("background", "Background", &c.Background, validColor, s.refreshColors)

	r.Group("Click")
	r.Bool("click_add", "Add On Click", &c.Click.AddOnClick, nil)
	r.Float("click_min_radius", "Min Radius", 4, 140, 1, &c.Click.MinRadius, nil)
	r.Float("click_max_radius", "Max Radius", 4, 140, 1, &c.Click.MaxRadius, nil)
	r.Bool("click_replace_oldest", "Replace Oldest", &c.Click.ReplaceOldest, nil)
	r.Float("click_motion", "Motion", 0, 3, 0.01, &c.Click.Motion, nil)

	r.Group("Bloom")
	r.Bool("bloom_enabled", "Enabled", &c.Bloom.Enabled, nil)
	r.Float("bloom_strength", "Strength", 0, 3, 0.01, &c.Bloom.Strength, nil)
	r.Float("bloom_radius", "Radius", 0, 1, 0.01, &c.Bloom.Radius, nil)
	r.Float("bloom_threshold", "Threshold", 0, 1, 0.01, &c.Bloom.Threshold, nil)
	return r
}

func validColor(v string) error {
	_, err := palette.ParseColor(v)
	return err
}
