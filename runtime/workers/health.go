package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"notifyhub/observability"
)

// HealthWorker periodically logs process resource usage together with the
// hub counters. It is observation only, nothing reads its output at
// runtime.
type HealthWorker struct {
	log      *slog.Logger
	stats    *observability.Stats
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, stats *observability.Stats, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, stats: stats, interval: interval}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu := selfStats(proc)
			snapshot := w.stats.Snapshot()
			w.log.Info("hub health",
				"rss_mb", rss/1024/1024,
				"cpu_percent", cpu,
				"connections", snapshot.Connections,
				"frames_delivered", snapshot.FramesDelivered,
				"frames_dropped", snapshot.FramesDropped,
				"notifications_persisted", snapshot.NotificationsPersisted,
				"commands_dropped", snapshot.CommandsDropped)
		}
	}
}

func selfStats(proc *process.Process) (rss uint64, cpu float64) {
	if mem, err := proc.MemoryInfo(); err == nil {
		rss = mem.RSS
	}
	if percent, err := proc.CPUPercent(); err == nil {
		cpu = percent
	}
	return rss, cpu
}
