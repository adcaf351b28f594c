package gpu

import "fmt"

// PingPong is a pair of equally sized surfaces. One is current (safe to
// sample) and the other is next (the target of the upcoming write). Swap
// flips an index; no texel data moves.
type PingPong struct {
	dev      Device
	surfaces [2]Surface
	cur      int
	w, h     int
	format   Format
	released bool
}

// NewPingPong allocates both surfaces from the same seed. A nil seed
// zero-fills them.
func NewPingPong(dev Device, w, h int, format Format, seed []float32) (*PingPong, error) {
	a, err := dev.NewSurface(w, h, format, seed)
	if err != nil {
		return nil, err
	}
	b, err := dev.NewSurface(w, h, format, seed)
	if err != nil {
		a.Release()
		return nil, err
	}
	return &PingPong{dev: dev, surfaces: [2]Surface{a, b}, w: w, h: h, format: format}, nil
}

func (p *PingPong) mustLive() {
	if p.released {
		panic(ErrReleased)
	}
}

// Current returns the surface holding the latest state.
func (p *PingPong) Current() Surface {
	p.mustLive()
	return p.surfaces[p.cur]
}

// Next returns the surface the next write pass renders into.
func (p *PingPong) Next() Surface {
	p.mustLive()
	return p.surfaces[1-p.cur]
}

// Swap exchanges current and next. Call once per step, after the write.
func (p *PingPong) Swap() {
	p.mustLive()
	p.cur = 1 - p.cur
}

// Size returns the surface dimensions.
func (p *PingPong) Size() (w, h int) {
	return p.w, p.h
}

// Reseed uploads data into both surfaces.
func (p *PingPong) Reseed(data []float32) error {
	p.mustLive()
	for i, s := range p.surfaces {
		if err := p.dev.Upload(s, data); err != nil {
			return fmt.Errorf("reseeding surface %d: %w", i, err)
		}
	}
	return nil
}

// Step executes stage with input bound to the current surface, renders
// into next and swaps.
func (p *PingPong) Step(stage *Stage, input string, overrides Uniforms) error {
	p.mustLive()
	u := Uniforms{input: p.Current()}
	for k, v := range overrides {
		u[k] = v
	}
	if err := stage.Execute(p.Next(), u); err != nil {
		return err
	}
	p.Swap()
	return nil
}

// Release frees both surfaces. Any later use panics with ErrReleased.
func (p *PingPong) Release() {
	if p == nil || p.released {
		return
	}
	for _, s := range p.surfaces {
		s.Release()
	}
	p.released = true
}
