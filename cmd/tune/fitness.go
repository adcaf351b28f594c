package main

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
	"github.com/pthm-cable/slimefield/physarum"
)

// Score summarizes one evaluation across all seeds.
type Score struct {
	Fitness   float64 // negated mean evenness; lower is better
	Evenness  float64
	Survivors int // species alive at the end of the worst run
}

// Evaluator runs short headless physarum runs on the reference device and
// scores how evenly the three species share the agent population while
// infection is on.
type Evaluator struct {
	params      *ParamVector
	base        config.PhysarumConfig
	width       int
	height      int
	frames      int
	sampleEvery int
	seeds       []uint64
}

// NewEvaluator creates an evaluator over a width×height world.
func NewEvaluator(params *ParamVector, base config.PhysarumConfig, width, height, frames, sampleEvery int, seeds []uint64) *Evaluator {
	return &Evaluator{
		params:      params,
		base:        base,
		width:       width,
		height:      height,
		frames:      frames,
		sampleEvery: max(1, sampleEvery),
		seeds:       seeds,
	}
}

// tuningConfig forces the settings under which species compete: three
// species, all infectious, and an agent grid of the given width.
func tuningConfig(cfg config.PhysarumConfig, particleWidth int) config.PhysarumConfig {
	cfg.SpeciesCount = 3
	cfg.Infectious = [3]bool{true, true, true}
	cfg.ParticleWidth = particleWidth
	cfg.InitialActiveParticles = min(cfg.InitialActiveParticles, particleWidth*particleWidth)
	return cfg
}

// Evenness is the normalized Shannon entropy of the species counts: 1 when
// all three are equal, 0 when one species holds every agent or none exist.
func Evenness(species [3]int) float64 {
	total := 0
	for _, n := range species {
		total += n
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, n := range species {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		h -= p * math.Log(p)
	}
	return h / math.Log(3)
}

func alive(species [3]int) int {
	n := 0
	for _, c := range species {
		if c > 0 {
			n++
		}
	}
	return n
}

type runResult struct {
	evenness  float64
	survivors int
	err       error
}

// Evaluate scores raw parameter values. A failed run scores as the worst
// possible evenness.
func (e *Evaluator) Evaluate(values []float64) Score {
	results := make([]runResult, len(e.seeds))
	var wg sync.WaitGroup
	for i, seed := range e.seeds {
		wg.Add(1)
		go func(idx int, seed uint64) {
			defer wg.Done()
			results[idx] = e.run(values, seed)
		}(i, seed)
	}
	wg.Wait()

	score := Score{Survivors: 3}
	for _, r := range results {
		if r.err != nil {
			slog.Warn("evaluation run failed", "error", r.err)
			return Score{}
		}
		score.Evenness += r.evenness
		score.Survivors = min(score.Survivors, r.survivors)
	}
	if len(results) > 0 {
		score.Evenness /= float64(len(results))
	}
	score.Fitness = -score.Evenness
	return score
}

// run steps one simulation and averages the evenness of its census samples.
func (e *Evaluator) run(values []float64, seed uint64) runResult {
	dev := softgpu.New()
	s, err := physarum.New(dev, e.base, rand.New(rand.NewPCG(seed, 3)))
	if err != nil {
		return runResult{err: err}
	}
	if err := e.params.Apply(s, values); err != nil {
		return runResult{err: err}
	}
	ok, err := s.Init(e.width, e.height)
	if err != nil {
		return runResult{err: err}
	}
	defer s.Dispose()
	if !ok {
		return runResult{err: gpu.ErrUnsupported}
	}

	var sum float64
	var samples int
	var last [3]int
	for f := 1; f <= e.frames; f++ {
		if err := s.Step(1000.0 / 60); err != nil {
			return runResult{err: fmt.Errorf("frame %d: %w", f, err)}
		}
		if f%e.sampleEvery != 0 && f != e.frames {
			continue
		}
		c, err := s.Census()
		if err != nil {
			return runResult{err: err}
		}
		sum += Evenness(c.Species)
		samples++
		last = c.Species
	}
	if samples == 0 {
		return runResult{}
	}
	return runResult{evenness: sum / float64(samples), survivors: alive(last)}
}
