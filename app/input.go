package app

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes keyboard input.
func (a *App) handleInput() {
	// Window resize propagation
	a.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		a.paused = !a.paused
	}

	if rl.IsKeyPressed(rl.KeyTab) {
		a.switchSim()
	}

	if rl.IsKeyPressed(rl.KeyR) {
		a.reset()
	}

	if rl.IsKeyPressed(rl.KeyH) {
		a.panel.Toggle()
	}

	if rl.IsKeyPressed(rl.KeyX) {
		a.randomize()
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	if err := a.sims.Resize(rl.GetScreenWidth(), rl.GetScreenHeight()); err != nil {
		a.log.Error("resize failed", "sim", a.sims.Active().Name(), "error", err)
	}
}

// handlePointer forwards the mouse to the active simulation unless the
// cursor is over the panel.
func (a *App) handlePointer() {
	w, h := a.sims.Size()
	pos := rl.GetMousePosition()
	down := rl.IsMouseButtonDown(rl.MouseButtonLeft)

	if a.panel.Contains(pos, int32(w), int32(h)) {
		if a.pointerDown {
			a.pointerDown = false
			a.sims.Pointer(normalizePointer(pos, w, h), false)
		}
		return
	}
	a.pointerDown = down
	a.sims.Pointer(normalizePointer(pos, w, h), down)
}
