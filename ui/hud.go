package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slimefield/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Simulation string
	FPS        int32
	Frame      int
	Paused     bool

	// Cell count, shown when ShowCells is set.
	ShowCells bool
	Cells     int
	MaxCells  int

	Perf *telemetry.PerfStats
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Simulation, 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("FPS: %d | Frame: %d", data.FPS, data.Frame), 10, 35, 16, rl.LightGray)

	y := int32(55)
	if data.ShowCells {
		rl.DrawText(fmt.Sprintf("Cells: %d / %d", data.Cells, data.MaxCells), 10, y, 16, rl.LightGray)
		if data.MaxCells > 0 {
			h.renderer.DrawBar(10, y+18, 160, float32(data.Cells)/float32(data.MaxCells))
		}
		y += 36
	}
	if data.Paused {
		rl.DrawText("PAUSED", 10, y, 16, rl.Yellow)
		y += 20
	}
	if data.Perf != nil {
		h.drawPerf(10, y, *data.Perf)
	}
}

// drawPerf lists per-pass timings of the last perf window.
func (h *HUD) drawPerf(x, y int32, st telemetry.PerfStats) {
	r := h.renderer
	y = r.DrawLabelValue(x, y, "frame", fmt.Sprintf("%.0f us (p95 %.0f)", st.Frame.Mean, st.Frame.P95))
	for _, name := range st.PhaseNames() {
		pct := st.PhasePct[name]
		color := r.Theme.ValueColor
		if pct > 40 {
			color = rl.Orange
		}
		rl.DrawText(name+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
		rl.DrawText(fmt.Sprintf("%6.0f us %5.1f%%", st.Phases[name].Mean, pct), x+r.Theme.LabelWidth, y, r.Theme.FontSize, color)
		y += r.Theme.LineHeight
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
