// Package observability aggregates engine counters and process metrics
// and reports them periodically through the structured logger.
package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// EngineStats collects atomic counters for the chat engine. It doubles
// as a supervised worker that logs a report at a fixed interval.
type EngineStats struct {
	log      *slog.Logger
	interval time.Duration
	proc     *process.Process

	appends        uint64
	snapshots      uint64
	streamSessions uint64
	receiptUpdates uint64
}

func NewEngineStats(log *slog.Logger, interval time.Duration) *EngineStats {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("process metrics unavailable", "error", err)
		proc = nil
	}
	return &EngineStats{log: log, interval: interval, proc: proc}
}

func (s *EngineStats) IncrAppends()        { atomic.AddUint64(&s.appends, 1) }
func (s *EngineStats) IncrSnapshots()      { atomic.AddUint64(&s.snapshots, 1) }
func (s *EngineStats) IncrStreamSessions() { atomic.AddUint64(&s.streamSessions, 1) }
func (s *EngineStats) IncrReceiptUpdates() { atomic.AddUint64(&s.receiptUpdates, 1) }

// Run reports until the context is cancelled.
func (s *EngineStats) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.report()
			return nil
		case <-ticker.C:
			s.report()
		}
	}
}

func (s *EngineStats) report() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	attrs := []any{
		"appends", atomic.LoadUint64(&s.appends),
		"snapshots", atomic.LoadUint64(&s.snapshots),
		"stream_sessions", atomic.LoadUint64(&s.streamSessions),
		"receipt_updates", atomic.LoadUint64(&s.receiptUpdates),
		"alloc_mb", mem.Alloc / 1024 / 1024,
		"num_gc", mem.NumGC,
		"goroutines", runtime.NumGoroutine(),
	}
	if s.proc != nil {
		if cpu, err := s.proc.CPUPercent(); err == nil {
			attrs = append(attrs, "cpu_percent", cpu)
		}
		if info, err := s.proc.MemoryInfo(); err == nil {
			attrs = append(attrs, "rss_mb", info.RSS/1024/1024)
		}
	}
	s.log.Info("engine stats", attrs...)
}
