package main

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
	"github.com/pthm-cable/slimefield/physarum"
	"github.com/pthm-cable/slimefield/sim"
)

func TestEvenness(t *testing.T) {
	tests := []struct {
		name    string
		species [3]int
		want    float64
	}{
		{"equal", [3]int{10, 10, 10}, 1},
		{"monoculture", [3]int{30, 0, 0}, 0},
		{"empty", [3]int{0, 0, 0}, 0},
		{"two species", [3]int{10, 0, 10}, math.Log(2) / math.Log(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evenness(tt.species); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Evenness(%v) = %v, want %v", tt.species, got, tt.want)
			}
		})
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	if pv.Dim() != 15 {
		t.Fatalf("Dim = %d, want 15", pv.Dim())
	}
	raw := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + 0.3*(spec.Max-spec.Min)
	}
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("%s: round trip %v -> %v", pv.Specs[i].Key, raw[i], back[i])
		}
	}
}

func TestClamp(t *testing.T) {
	pv := NewParamVector()
	v := make([]float64, pv.Dim())
	for i := range v {
		v[i] = 100
	}
	v[0] = -100
	got := pv.Clamp(v)
	if got[0] != pv.Specs[0].Min {
		t.Errorf("Clamp low = %v, want %v", got[0], pv.Specs[0].Min)
	}
	for i := 1; i < len(got); i++ {
		if got[i] != pv.Specs[i].Max {
			t.Errorf("Clamp %s = %v, want %v", pv.Specs[i].Key, got[i], pv.Specs[i].Max)
		}
	}
}

func TestApplyThenCurrent(t *testing.T) {
	pv := NewParamVector()
	s, err := physarum.New(softgpu.New(), config.Defaults().Physarum, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	want := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		want[i] = spec.Min + 0.75*(spec.Max-spec.Min)
	}
	if err := pv.Apply(s, want); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, err := pv.Current(s)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-5 {
			t.Errorf("%s = %v, want %v", pv.Specs[i].Key, got[i], want[i])
		}
	}
}

func TestApplyUnknownKey(t *testing.T) {
	pv := &ParamVector{Specs: []ParamSpec{{Key: "no_such_param", Min: 0, Max: 1}}}
	s, err := physarum.New(softgpu.New(), config.Defaults().Physarum, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if err := pv.Apply(s, []float64{0.5}); !errors.Is(err, sim.ErrUnknownParameter) {
		t.Errorf("Apply = %v, want ErrUnknownParameter", err)
	}
}

func TestTuningConfig(t *testing.T) {
	base := config.Defaults().Physarum
	base.SpeciesCount = 1
	base.InitialActiveParticles = 100000
	cfg := tuningConfig(base, 16)
	if cfg.SpeciesCount != 3 || cfg.Infectious != [3]bool{true, true, true} {
		t.Errorf("tuning config species = %d infectious = %v", cfg.SpeciesCount, cfg.Infectious)
	}
	if cfg.ParticleWidth != 16 || cfg.InitialActiveParticles != 256 {
		t.Errorf("tuning config width = %d active = %d", cfg.ParticleWidth, cfg.InitialActiveParticles)
	}
}

func TestEvaluateScoresRun(t *testing.T) {
	pv := NewParamVector()
	base := config.Defaults().Physarum
	base.InitialActiveParticles = 200
	e := NewEvaluator(pv, tuningConfig(base, 16), 32, 32, 4, 2, []uint64{1, 2})

	start := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		start[i] = (spec.Min + spec.Max) / 2
	}
	score := e.Evaluate(start)
	if score.Evenness <= 0 || score.Evenness > 1 {
		t.Errorf("Evenness = %v, want in (0, 1]", score.Evenness)
	}
	if score.Fitness != -score.Evenness {
		t.Errorf("Fitness = %v, want %v", score.Fitness, -score.Evenness)
	}
	if score.Survivors < 1 || score.Survivors > 3 {
		t.Errorf("Survivors = %d", score.Survivors)
	}
}

func TestDescribe(t *testing.T) {
	pv := &ParamVector{Specs: []ParamSpec{{Key: "a"}, {Key: "b"}}}
	if got := pv.Describe([]float64{1, 0.5}); got != "a=1.0000;b=0.5000" {
		t.Errorf("Describe = %q", got)
	}
	if !strings.Contains(NewParamVector().Describe(make([]float64, 15)), "attract.2.1=") {
		t.Error("Describe missing attraction key")
	}
}
