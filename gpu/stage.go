package gpu

import (
	"fmt"
	"log/slog"
)

// Stage is a program bound to a persistent uniform set. Full-screen stages
// cover the target; point stages draw one point per vertex of their mesh.
type Stage struct {
	dev    Device
	prog   Program
	mesh   Mesh
	params Uniforms
}

// NewStage builds a full-screen stage.
func NewStage(dev Device, spec ProgramSpec, params Uniforms) (*Stage, error) {
	if spec.Points() {
		return nil, fmt.Errorf("stage %s: point program needs NewPointStage", spec.Name)
	}
	prog, err := dev.NewProgram(spec)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", spec.Name, err)
	}
	return &Stage{dev: dev, prog: prog, params: params.Merge(nil)}, nil
}

// NewPointStage builds a point stage. The vertex data is checked here so a
// missing buffer fails at construction instead of at the first draw.
func NewPointStage(dev Device, spec ProgramSpec, params Uniforms, attrs []Attribute) (*Stage, error) {
	if !spec.Points() {
		return nil, fmt.Errorf("stage %s: not a point program", spec.Name)
	}
	if len(attrs) == 0 || attrs[0].Vertices() == 0 {
		return nil, fmt.Errorf("stage %s: %w", spec.Name, ErrMissingVertexData)
	}
	n := attrs[0].Vertices()
	for _, a := range attrs[1:] {
		if a.Vertices() != n {
			return nil, fmt.Errorf("stage %s: attribute %s has %d vertices, want %d: %w",
				spec.Name, a.Name, a.Vertices(), n, ErrMissingVertexData)
		}
	}
	prog, err := dev.NewProgram(spec)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", spec.Name, err)
	}
	mesh, err := dev.NewMesh(attrs)
	if err != nil {
		prog.Release()
		return nil, fmt.Errorf("stage %s: %w", spec.Name, err)
	}
	return &Stage{dev: dev, prog: prog, mesh: mesh, params: params.Merge(nil)}, nil
}

// Name returns the program name.
func (s *Stage) Name() string {
	return s.prog.Name()
}

// SetParameter updates a binding. Unknown names are created.
func (s *Stage) SetParameter(name string, v any) {
	s.params[name] = v
}

// Parameter returns the current value of a binding.
func (s *Stage) Parameter(name string) (any, bool) {
	v, ok := s.params[name]
	return v, ok
}

// Execute renders into target with the stage's bindings plus one-shot
// overrides. It never swaps buffers.
func (s *Stage) Execute(target Surface, overrides Uniforms) error {
	u := s.params
	if len(overrides) > 0 {
		u = s.params.Merge(overrides)
	}
	for name, v := range u {
		if err := CheckValue(name, v); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
		if surf, ok := v.(Surface); ok && surf == target {
			return fmt.Errorf("stage %s: uniform %q: %w", s.Name(), name, ErrFeedbackLoop)
		}
	}
	if s.mesh != nil {
		return s.dev.DrawPoints(s.prog, target, s.mesh, u)
	}
	return s.dev.DrawFullscreen(s.prog, target, u)
}

// Release frees the program and vertex data.
func (s *Stage) Release() {
	if s == nil {
		return
	}
	if s.mesh != nil {
		s.mesh.Release()
		s.mesh = nil
	}
	if s.prog != nil {
		s.prog.Release()
		s.prog = nil
	}
}

// LogValue implements slog.LogValuer.
func (s *Stage) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("program", s.Name()),
		slog.Int("uniforms", len(s.params)),
	}
	if s.mesh != nil {
		attrs = append(attrs, slog.Int("vertices", s.mesh.Count()))
	}
	return slog.GroupValue(attrs...)
}
