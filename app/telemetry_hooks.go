package app

import (
	"log/slog"

	"github.com/pthm-cable/slimefield/sim"
)

// flushTelemetry logs and records perf windows and agent censuses at
// their configured intervals.
func (a *App) flushTelemetry() {
	name := a.sims.Active().Name()

	if interval := a.cfg.Telemetry.StatsInterval; interval > 0 && a.frame%interval == 0 {
		stats := a.perf.Stats()
		a.lastPerf = &stats
		if a.logStats {
			slog.Info("perf", "sim", name, "frame", a.frame, "stats", stats)
		}
		if err := a.output.WritePerf(stats, a.frame, name); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	counter, ok := a.sims.Active().(sim.Counter)
	if !ok {
		return
	}
	p, sampled, err := a.pop.Sample(a.frame, name, counter)
	if err != nil {
		slog.Error("population sample failed", "error", err)
		return
	}
	if !sampled {
		return
	}
	if a.logStats {
		slog.Info("population", "sim", name, "census", p)
	}
	if err := a.output.WritePopulation(p); err != nil {
		slog.Error("failed to write population", "error", err)
	}
}
