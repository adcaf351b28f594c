package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	FrameDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks per-pass timings over a rolling window. Phase names
// are the pass names the simulations report through StartPhase.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	frameStart    time.Time
	phaseStart    time.Time
	lastPhase     string

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
		now:           time.Now,
	}
}

// StartFrame begins timing a new frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = p.now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts the named one.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndFrame finishes timing the current frame and records the sample.
func (p *PerfCollector) EndFrame() {
	now := p.now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	p.samples[p.writeIndex] = PerfSample{
		FrameDuration: now.Sub(p.frameStart),
		Phases:        p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// Timing summarizes one series of durations, in microseconds.
type Timing struct {
	Mean, StdDev, P50, P95, Max float64
}

func summarize(us []float64) Timing {
	if len(us) == 0 {
		return Timing{}
	}
	slices.Sort(us)
	return Timing{
		Mean:   stat.Mean(us, nil),
		StdDev: stat.StdDev(us, nil),
		P50:    stat.Quantile(0.5, stat.Empirical, us, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, us, nil),
		Max:    us[len(us)-1],
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Frames int
	Frame  Timing

	// Phase breakdown and share of the mean frame time, in percent.
	Phases   map[string]Timing
	PhasePct map[string]float64

	FPS float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	st := PerfStats{
		Frames:   p.sampleCount,
		Phases:   make(map[string]Timing),
		PhasePct: make(map[string]float64),
	}
	if p.sampleCount == 0 {
		return st
	}

	frame := make([]float64, 0, p.sampleCount)
	phases := make(map[string][]float64)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		frame = append(frame, micros(s.FrameDuration))
		for phase, d := range s.Phases {
			phases[phase] = append(phases[phase], micros(d))
		}
	}

	st.Frame = summarize(frame)
	if st.Frame.Mean > 0 {
		st.FPS = 1e6 / st.Frame.Mean
	}
	for phase, us := range phases {
		// Frames that skipped a pass count as zero for that pass.
		total := 0.0
		for _, v := range us {
			total += v
		}
		t := summarize(us)
		st.Phases[phase] = t
		if st.Frame.Mean > 0 {
			st.PhasePct[phase] = total / float64(p.sampleCount) / st.Frame.Mean * 100
		}
	}
	return st
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// PhaseNames returns the recorded phase names in sorted order.
func (s PerfStats) PhaseNames() []string {
	names := make([]string, 0, len(s.Phases))
	for name := range s.Phases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("frames", s.Frames),
		slog.Int("avg_frame_us", int(s.Frame.Mean)),
		slog.Int("p95_frame_us", int(s.Frame.P95)),
		slog.Int("max_frame_us", int(s.Frame.Max)),
		slog.Int("fps", int(s.FPS)),
	}
	for _, phase := range s.PhaseNames() {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv: the whole frame or a single pass
// over one window.
type PerfStatsCSV struct {
	WindowEnd  int     `csv:"window_end"`
	Simulation string  `csv:"simulation"`
	Phase      string  `csv:"phase"`
	MeanUS     float64 `csv:"mean_us"`
	StdDevUS   float64 `csv:"stddev_us"`
	P50US      float64 `csv:"p50_us"`
	P95US      float64 `csv:"p95_us"`
	MaxUS      float64 `csv:"max_us"`
	Pct        float64 `csv:"pct"`
}

// FramePhase is the phase column value of the whole-frame row.
const FramePhase = "frame"

// ToCSV flattens s into a frame row followed by one row per phase.
func (s PerfStats) ToCSV(windowEnd int, simulation string) []PerfStatsCSV {
	row := func(phase string, t Timing, pct float64) PerfStatsCSV {
		return PerfStatsCSV{
			WindowEnd:  windowEnd,
			Simulation: simulation,
			Phase:      phase,
			MeanUS:     t.Mean,
			StdDevUS:   t.StdDev,
			P50US:      t.P50,
			P95US:      t.P95,
			MaxUS:      t.Max,
			Pct:        pct,
		}
	}
	rows := []PerfStatsCSV{row(FramePhase, s.Frame, 100)}
	for _, phase := range s.PhaseNames() {
		rows = append(rows, row(phase, s.Phases[phase], s.PhasePct[phase]))
	}
	return rows
}
