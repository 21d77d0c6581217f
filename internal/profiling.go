package internal

import (
	"context"
	"os"
	"runtime"
	"time"
)

type Profiler struct {
	enabled bool
	logger  *Logger
}

func NewProfiler(logger *Logger) *Profiler {
	enabled := os.Getenv("ENABLE_PROFILING") == "true"
	return &Profiler{
		enabled: enabled,
		logger:  logger,
	}
}

func (p *Profiler) LogMemoryStats() {
	if !p.enabled {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	p.logger.Info("memory_stats").
		Component("profiler").
		Operation("log_stats").
		Meta("alloc_mb", bToMb(m.Alloc)).
		Meta("total_alloc_mb", bToMb(m.TotalAlloc)).
		Meta("sys_mb", bToMb(m.Sys)).
		Meta("gc_cycles", m.NumGC).
		Meta("goroutines", runtime.NumGoroutine()).
		Log()
}

func (p *Profiler) StartPeriodicMemoryLogging() {
	if !p.enabled {
		return
	}

	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			p.LogMemoryStats()
		}
	}()

	p.logger.Info("periodic_memory_logging_started").
		Component("profiler").
		Operation("start_periodic").
		Log()
}

// ProfileFunction times fn and logs its allocation delta when profiling is
// enabled; otherwise it just runs fn.
func (p *Profiler) ProfileFunction(ctx context.Context, name string, fn func() error) error {
	if !p.enabled {
		return fn()
	}

	start := time.Now()
	var m1, m2 runtime.MemStats

	runtime.ReadMemStats(&m1)
	err := fn()
	runtime.ReadMemStats(&m2)

	duration := time.Since(start)
	allocDiff := m2.TotalAlloc - m1.TotalAlloc

	p.logger.Info("function_profiled").
		Component("profiler").
		Operation("profile_function").
		Meta("function_name", name).
		Duration(duration).
		Meta("memory_alloc_bytes", allocDiff).
		Log()

	return err
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
