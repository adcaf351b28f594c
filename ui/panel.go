package ui

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slimefield/sim"
)

// Tunable is the part of a simulation the panel edits.
type Tunable interface {
	Name() string
	Params() []sim.Param
	SetParameter(name string, value any) error
}

// row is one line of the panel: a group header or a parameter.
type row struct {
	header string
	param  sim.Param
}

// layoutRows inserts a header row wherever the parameter group changes.
func layoutRows(params []sim.Param) []row {
	rows := make([]row, 0, len(params)+8)
	group := ""
	for _, p := range params {
		if p.Group != group {
			group = p.Group
			if group != "" {
				rows = append(rows, row{header: group})
			}
		}
		rows = append(rows, row{param: p})
	}
	return rows
}

func (t Theme) rowHeight(r row) int32 {
	if r.header != "" {
		return t.LineHeight + 6
	}
	return t.RowHeight
}

func (t Theme) contentHeight(rows []row) int32 {
	var h int32
	for _, r := range rows {
		h += t.rowHeight(r)
	}
	return h
}

// optionIndex is the position of the parameter's current value among
// its options, or 0 when it is not listed.
func optionIndex(p sim.Param) int32 {
	cur := fmt.Sprint(p.Value())
	for i, o := range p.Options {
		if o == cur {
			return int32(i)
		}
	}
	return 0
}

// numericValue reads a float or int parameter as float32.
func numericValue(p sim.Param) float32 {
	switch v := p.Value().(type) {
	case float32:
		return v
	case int:
		return float32(v)
	}
	return 0
}

// sliderResult converts a slider position into the parameter's value,
// snapping to the parameter's step.
func sliderResult(p sim.Param, v float32) any {
	if p.Kind == sim.KindInt {
		return int(math.Round(float64(v)))
	}
	if p.Step > 0 {
		n := math.Round((float64(v) - p.Min) / p.Step)
		return float32(p.Min + n*p.Step)
	}
	return v
}

func formatValue(p sim.Param) string {
	switch v := p.Value().(type) {
	case float32:
		if p.Step >= 1 {
			return fmt.Sprintf("%.0f", v)
		}
		if p.Step >= 0.01 {
			return fmt.Sprintf("%.2f", v)
		}
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprint(v)
	}
}

// Panel is the raygui parameter panel, anchored to the right edge.
type Panel struct {
	renderer *Renderer
	width    int32
	visible  bool
	scroll   int32
	editing  string // key of the text field in edit mode
	text     string // edit buffer
	lastErr  string
	log      *slog.Logger
}

// NewPanel creates a hidden panel of the given width.
func NewPanel(width int32) *Panel {
	return &Panel{
		renderer: NewRenderer(),
		width:    width,
		log:      slog.Default().With("component", "ui"),
	}
}

// IsVisible returns whether the panel is shown.
func (p *Panel) IsVisible() bool {
	return p.visible
}

// Toggle switches panel visibility.
func (p *Panel) Toggle() bool {
	p.visible = !p.visible
	if !p.visible {
		p.editing = ""
	}
	return p.visible
}

// Bounds is the panel rectangle on a screenW×screenH window.
func (p *Panel) Bounds(screenW, screenH int32) rl.Rectangle {
	w := min(p.width, screenW)
	return rl.Rectangle{X: float32(screenW - w), Y: 0, Width: float32(w), Height: float32(screenH)}
}

// Contains reports whether pos is over the visible panel.
func (p *Panel) Contains(pos rl.Vector2, screenW, screenH int32) bool {
	return p.visible && rl.CheckCollisionPointRec(pos, p.Bounds(screenW, screenH))
}

// Draw renders the panel for t and applies edits through SetParameter.
// It reports whether the reset button was pressed.
func (p *Panel) Draw(t Tunable, screenW, screenH int32) (reset bool) {
	if !p.visible {
		return false
	}
	r := p.renderer
	th := r.Theme
	b := p.Bounds(screenW, screenH)
	x, w := int32(b.X), int32(b.Width)
	r.DrawPanel(x, 0, w, screenH)

	y := th.Padding
	rl.DrawText(t.Name(), x+th.Padding, y+2, 18, rl.White)
	if gui.Button(rl.Rectangle{X: float32(x + w - th.Padding - 70), Y: float32(y), Width: 70, Height: 22}, "Reset") {
		reset = true
	}
	y += 32

	footer := th.LineHeight*2 + th.Padding
	viewH := screenH - y - footer
	rows := layoutRows(t.Params())
	p.scrollBy(rows, b, viewH)

	rl.BeginScissorMode(x, y, w, viewH)
	ry := y - p.scroll
	for _, rw := range rows {
		h := th.rowHeight(rw)
		if ry+h > y && ry < y+viewH {
			if rw.header != "" {
				r.DrawSectionHeader(x+th.Padding, ry+4, rw.header)
			} else {
				p.drawParam(t, rw.param, x+th.Padding, ry, w-2*th.Padding)
			}
		}
		ry += h
	}
	rl.EndScissorMode()

	fy := screenH - footer
	if p.lastErr != "" {
		rl.DrawText(p.lastErr, x+th.Padding, fy, th.FontSize, th.ErrorColor)
	}
	rl.DrawText("[H] panel  [R] reset  [Tab] switch", x+th.Padding, fy+th.LineHeight, th.FontSize, rl.Gray)
	return reset
}

func (p *Panel) scrollBy(rows []row, b rl.Rectangle, viewH int32) {
	maxScroll := max(0, p.renderer.Theme.contentHeight(rows)-viewH)
	if rl.CheckCollisionPointRec(rl.GetMousePosition(), b) {
		p.scroll -= int32(rl.GetMouseWheelMove() * float32(p.renderer.Theme.RowHeight*2))
	}
	p.scroll = max(0, min(maxScroll, p.scroll))
}

func (p *Panel) drawParam(t Tunable, prm sim.Param, x, y, width int32) {
	th := p.renderer.Theme
	p.renderer.DrawLabel(x, y+5, prm.Label)

	cx := float32(x + th.LabelWidth)
	valueW := int32(44)
	ctrl := rl.Rectangle{X: cx, Y: float32(y + 2), Width: float32(width-th.LabelWidth-valueW-6), Height: float32(th.RowHeight - 6)}

	switch prm.Kind {
	case sim.KindFloat, sim.KindInt:
		cur := numericValue(prm)
		v := gui.SliderBar(ctrl, "", "", cur, float32(prm.Min), float32(prm.Max))
		rl.DrawText(formatValue(prm), int32(ctrl.X+ctrl.Width)+6, y+5, th.FontSize, th.ValueColor)
		if v != cur {
			p.apply(t, prm.Key, sliderResult(prm, v))
		}

	case sim.KindBool:
		cur, _ := prm.Value().(bool)
		box := rl.Rectangle{X: cx, Y: float32(y + 3), Width: 14, Height: 14}
		if v := gui.CheckBox(box, "", cur); v != cur {
			p.apply(t, prm.Key, v)
		}

	case sim.KindChoice:
		cur := optionIndex(prm)
		ctrl.Width += float32(valueW)
		if v := gui.ComboBox(ctrl, strings.Join(prm.Options, ";"), cur); v != cur && int(v) < len(prm.Options) {
			p.apply(t, prm.Key, prm.Options[v])
		}

	case sim.KindText:
		editing := p.editing == prm.Key
		if !editing {
			p.drawTextSwatch(prm, ctrl)
		}
		text := fmt.Sprint(prm.Value())
		if editing {
			text = p.text
		}
		if gui.TextBox(ctrl, &text, 32, editing) {
			if editing {
				p.editing = ""
				p.apply(t, prm.Key, strings.TrimSpace(text))
			} else {
				p.editing = prm.Key
				text = fmt.Sprint(prm.Value())
			}
		}
		if p.editing == prm.Key {
			p.text = text
		}
	}
}

// drawTextSwatch previews colour-valued text fields.
func (p *Panel) drawTextSwatch(prm sim.Param, ctrl rl.Rectangle) {
	c, ok := swatchColor(fmt.Sprint(prm.Value()))
	if !ok {
		return
	}
	p.renderer.DrawColorSwatch(int32(ctrl.X+ctrl.Width)+6, int32(ctrl.Y)+2, c)
}

func (p *Panel) apply(t Tunable, key string, v any) {
	if err := t.SetParameter(key, v); err != nil {
		p.lastErr = err.Error()
		p.log.Warn("parameter rejected", "sim", t.Name(), "key", key, "value", v, "error", err)
		return
	}
	p.lastErr = ""
}
