// Package main searches physarum steering parameters with CMA-ES for
// settings where three infectious species coexist instead of one taking
// over the whole population.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
	"github.com/pthm-cable/slimefield/physarum"
)

// Trial is one row of tune_log.csv.
type Trial struct {
	Eval      int     `csv:"eval"`
	Fitness   float64 `csv:"fitness"`
	Evenness  float64 `csv:"evenness"`
	Survivors int     `csv:"survivors"`
	Params    string  `csv:"params"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	outputDir := flag.String("output", "", "Output directory for results")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	seeds := flag.Int("seeds", 2, "Number of seeds per evaluation")
	frames := flag.Int("frames", 240, "Frames per run")
	sampleEvery := flag.Int("sample-every", 30, "Frames between population samples")
	particleWidth := flag.Int("particle-width", 32, "Agent grid width during tuning")
	width := flag.Int("width", 96, "World width during tuning")
	height := flag.Int("height", 96, "World height during tuning")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fail("invalid log level", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *outputDir == "" {
		fail("missing flag", fmt.Errorf("-output is required"))
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fail("failed to create output directory", err)
	}
	if err := config.Init(*configPath); err != nil {
		fail("failed to load config", err)
	}
	baseCfg := config.Cfg()
	tuned := tuningConfig(baseCfg.Physarum, *particleWidth)

	params := NewParamVector()
	ref, err := physarum.New(softgpu.New(), tuned, rand.New(rand.NewPCG(0, 0)))
	if err != nil {
		fail("failed to create ref simulation", err)
	}
	start, err := params.Current(ref)
	if err != nil {
		fail("failed to read starting parameters", err)
	}

	evalSeeds := make([]uint64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}
	evaluator := NewEvaluator(params, tuned, *width, *height, *frames, *sampleEvery, evalSeeds)

	logFile, err := os.Create(filepath.Join(*outputDir, "tune_log.csv"))
	if err != nil {
		fail("failed to create log file", err)
	}
	defer logFile.Close()

	dim := params.Dim()
	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3*math.Log(float64(dim)))
	}

	evalCount := 0
	best := Score{Fitness: math.Inf(1)}
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			score := evaluator.Evaluate(raw)
			evalCount++

			if score.Fitness < best.Fitness {
				best = score
				bestParams = raw
			}

			trial := []Trial{{
				Eval:      evalCount,
				Fitness:   score.Fitness,
				Evenness:  score.Evenness,
				Survivors: score.Survivors,
				Params:    params.Describe(raw),
			}}
			write := gocsv.MarshalWithoutHeaders
			if evalCount == 1 {
				write = gocsv.Marshal
			}
			if err := write(trial, logFile); err != nil {
				slog.Error("failed to write trial", "eval", evalCount, "error", err)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(*maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			fmt.Printf("Eval %d/%d: evenness=%.3f survivors=%d (best=%.3f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, score.Evenness, score.Survivors, best.Evenness,
				formatDuration(elapsed), formatDuration(remaining))
			return score.Fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // runs already fan out across seeds
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	fmt.Printf("Starting CMA-ES with %d parameters, population=%d, max_evals=%d\n", dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, frames per run: %d\n", *seeds, *frames)

	result, err := optimize.Minimize(problem, params.Normalize(start), settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		fail("no evaluations completed", fmt.Errorf("zero evaluations"))
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best evenness: %.3f (%d species surviving)\n", best.Evenness, best.Survivors)
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Key, bestParams[i])
	}

	if err := params.Apply(ref, bestParams); err != nil {
		fail("failed to apply best parameters", err)
	}
	bestCfg := *baseCfg
	bestCfg.Physarum = ref.Config()
	bestCfg.Physarum.ParticleWidth = baseCfg.Physarum.ParticleWidth
	bestCfg.Physarum.InitialActiveParticles = baseCfg.Physarum.InitialActiveParticles

	configOut := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOut); err != nil {
		fail("failed to write best config", err)
	}
	fmt.Printf("\nBest config saved to: %s\n", configOut)
}

func fail(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
